package modal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/modal-labs/libmodal/modal-go"

	"github.com/spachava753/sweep/internal/environment"
)

// ProviderConfig holds Modal-specific configuration.
type ProviderConfig struct {
	// AppName is the name of the Modal app to use. If empty, a unique name is generated.
	AppName string
	// Regions specifies the Modal regions (e.g., "us-east", "us-west").
	Regions []string
	// Verbose enables detailed sandbox logging.
	Verbose bool
}

// ParseProviderConfig extracts Modal-specific config from the generic
// provider_config map in the experiment configuration.
func ParseProviderConfig(config map[string]any) ProviderConfig {
	pc := ProviderConfig{}
	if config == nil {
		return pc
	}
	if v, ok := config["app_name"].(string); ok {
		pc.AppName = v
	}
	if v, ok := config["region"].(string); ok {
		pc.Regions = []string{v}
	}
	if v, ok := config["regions"].([]any); ok {
		for _, r := range v {
			if s, ok := r.(string); ok {
				pc.Regions = append(pc.Regions, s)
			}
		}
	}
	if v, ok := config["verbose"].(bool); ok {
		pc.Verbose = v
	}
	return pc
}

// Provider implements the Modal environment provider using Modal Sandboxes.
type Provider struct {
	client *modal.Client
	config ProviderConfig
}

// NewProvider creates a new Modal provider.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if err := checkImageBuilderVersion(); err != nil {
		return nil, err
	}

	slog.Debug("initializing modal client")
	client, err := modal.NewClient()
	if err != nil {
		return nil, fmt.Errorf("creating modal client: %w", err)
	}
	return &Provider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "modal"
}

// BuildImage validates the build context. For Modal the actual image build
// happens lazily in CreateEnvironment, so the context directory itself is
// returned as the image reference.
func (p *Provider) BuildImage(ctx context.Context, opts environment.BuildImageOptions) (string, error) {
	dockerfilePath := filepath.Join(opts.ContextDir, "Dockerfile")
	if _, err := os.Stat(dockerfilePath); err != nil {
		return "", fmt.Errorf("Dockerfile not found at %s: %w", dockerfilePath, err)
	}
	slog.Debug("modal build deferred - using context directory", "context", opts.ContextDir)
	return opts.ContextDir, nil
}

// PullImage pulls a pre-built image from a registry.
// For Modal, this is a no-op since Modal handles image pulling internally.
func (p *Provider) PullImage(ctx context.Context, imageRef string) error {
	slog.Debug("modal pull is no-op - handled internally", "image", imageRef)
	return nil
}

// CreateEnvironment creates and starts a Modal sandbox.
func (p *Provider) CreateEnvironment(ctx context.Context, opts environment.CreateEnvironmentOptions) (environment.Environment, error) {
	appName := opts.Name
	if appName == "" {
		appName = p.config.AppName
	}
	if appName == "" {
		appName = fmt.Sprintf("sweep-%d", time.Now().UnixNano())
	}

	slog.Debug("creating modal app", "name", appName)

	app, err := p.client.Apps.FromName(ctx, appName, &modal.AppFromNameParams{
		CreateIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating modal app: %w", err)
	}

	var image *modal.Image
	if isDockerContextPath(opts.ImageRef) {
		slog.Debug("building modal image from dockerfile", "context", opts.ImageRef)
		image, err = p.buildImageFromDockerfile(ctx, app, opts.ImageRef)
		if err != nil {
			return nil, fmt.Errorf("building image from dockerfile: %w", err)
		}
	} else {
		slog.Debug("using registry image for modal", "image", opts.ImageRef)
		image = p.client.Images.FromRegistry(opts.ImageRef, nil)
	}

	cpuCount := opts.CPUs
	if cpuCount <= 0 {
		cpuCount = 1
	}
	memoryMiB := opts.MemoryMB
	if memoryMiB <= 0 {
		memoryMiB = 2048
	}

	envVars := make(map[string]string)
	for k, v := range opts.Env {
		envVars[k] = v
	}

	createParams := &modal.SandboxCreateParams{
		CPU:       float64(cpuCount),
		MemoryMiB: memoryMiB,
		Env:       envVars,
		Timeout:   24 * time.Hour, // Maximum allowed
		Verbose:   p.config.Verbose,
		Regions:   p.config.Regions,
	}

	slog.Debug("creating modal sandbox",
		"app", appName,
		"cpus", cpuCount,
		"memory_mib", memoryMiB,
		"regions", p.config.Regions)

	sandbox, err := p.client.Sandboxes.Create(ctx, app, image, createParams)
	if err != nil {
		return nil, fmt.Errorf("creating modal sandbox: %w", err)
	}

	slog.Debug("modal sandbox created", "sandbox_id", sandbox.SandboxID)

	return &Sandbox{
		sandbox:   sandbox,
		appName:   appName,
		startTime: time.Now(),
		cpuCount:  cpuCount,
		memoryMiB: memoryMiB,
	}, nil
}

// buildImageFromDockerfile creates a Modal image from a Dockerfile.
func (p *Provider) buildImageFromDockerfile(ctx context.Context, app *modal.App, contextDir string) (*modal.Image, error) {
	dockerfilePath := filepath.Join(contextDir, "Dockerfile")
	content, err := os.ReadFile(dockerfilePath)
	if err != nil {
		return nil, fmt.Errorf("reading Dockerfile: %w", err)
	}

	baseImage, commands, err := parseDockerfile(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing Dockerfile: %w", err)
	}

	slog.Debug("parsed dockerfile",
		"base_image", baseImage,
		"commands", len(commands))

	image := p.client.Images.FromRegistry(baseImage, nil)
	if len(commands) > 0 {
		image = image.DockerfileCommands(commands, nil)
	}

	// Build eagerly so build errors surface before the first trial
	builtImage, err := image.Build(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("building image: %w", err)
	}

	return builtImage, nil
}

// isDockerContextPath checks if the imageRef looks like a local directory path.
func isDockerContextPath(imageRef string) bool {
	info, err := os.Stat(imageRef)
	return err == nil && info.IsDir()
}

// parseDockerfile extracts base image and commands from a Dockerfile.
func parseDockerfile(content string) (baseImage string, commands []string, err error) {
	lines := strings.Split(content, "\n")
	var currentCmd strings.Builder
	inContinuation := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if inContinuation {
			currentCmd.WriteString(" ")
			if strings.HasSuffix(trimmed, "\\") {
				currentCmd.WriteString(strings.TrimSuffix(trimmed, "\\"))
			} else {
				currentCmd.WriteString(trimmed)
				commands = append(commands, currentCmd.String())
				currentCmd.Reset()
				inContinuation = false
			}
			continue
		}

		if strings.HasPrefix(strings.ToUpper(trimmed), "FROM ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				baseImage = parts[1]
			}
			continue
		}

		upper := strings.ToUpper(trimmed)
		if strings.HasPrefix(upper, "RUN ") ||
			strings.HasPrefix(upper, "COPY ") ||
			strings.HasPrefix(upper, "ADD ") ||
			strings.HasPrefix(upper, "WORKDIR ") ||
			strings.HasPrefix(upper, "ENV ") ||
			strings.HasPrefix(upper, "USER ") ||
			strings.HasPrefix(upper, "EXPOSE ") ||
			strings.HasPrefix(upper, "LABEL ") {

			if strings.HasSuffix(trimmed, "\\") {
				currentCmd.WriteString(strings.TrimSuffix(trimmed, "\\"))
				inContinuation = true
			} else {
				commands = append(commands, trimmed)
			}
		}
	}

	if baseImage == "" {
		return "", nil, fmt.Errorf("no FROM instruction found in Dockerfile")
	}

	return baseImage, commands, nil
}

// Sandbox represents a running Modal sandbox.
type Sandbox struct {
	sandbox   *modal.Sandbox
	appName   string
	startTime time.Time
	cpuCount  int
	memoryMiB int
}

// ID returns the sandbox ID.
func (e *Sandbox) ID() string {
	return e.sandbox.SandboxID
}

// CopyTo copies a local file or directory into the sandbox.
func (e *Sandbox) CopyTo(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dstDir := filepath.Dir(dst)
	if dstDir != "/" && dstDir != "." {
		if _, err := e.execSimple(ctx, fmt.Sprintf("mkdir -p %q", dstDir)); err != nil {
			return fmt.Errorf("creating directory %s: %w", dstDir, err)
		}
	}

	if info.IsDir() {
		return e.copyDirTo(ctx, src, dst)
	}
	return e.copyFileTo(ctx, src, dst)
}

// copyFileTo copies a single file to the sandbox.
func (e *Sandbox) copyFileTo(ctx context.Context, src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}

	f, err := e.sandbox.Open(ctx, dst, "w")
	if err != nil {
		return fmt.Errorf("opening destination file: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("writing to destination: %w", err)
	}

	if err := f.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing file: %w", err)
	}

	return f.Close()
}

// copyDirTo recursively copies a directory to the sandbox.
func (e *Sandbox) copyDirTo(ctx context.Context, src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		dstPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			_, err := e.execSimple(ctx, fmt.Sprintf("mkdir -p %q", dstPath))
			return err
		}

		return e.copyFileTo(ctx, path, dstPath)
	})
}

// execSimple runs a simple command and returns the exit code.
func (e *Sandbox) execSimple(ctx context.Context, cmd string) (int, error) {
	process, err := e.sandbox.Exec(ctx, []string{"bash", "-c", cmd}, &modal.SandboxExecParams{})
	if err != nil {
		return -1, err
	}
	io.Copy(io.Discard, process.Stdout)
	io.Copy(io.Discard, process.Stderr)
	return process.Wait(ctx)
}

// Exec executes a command in the sandbox.
func (e *Sandbox) Exec(ctx context.Context, cmd string, stdout, stderr io.Writer, opts environment.ExecOptions) (int, error) {
	execParams := &modal.SandboxExecParams{
		Env: opts.Env,
	}
	if opts.Timeout > 0 {
		execParams.Timeout = opts.Timeout
	}
	if opts.WorkDir != "" {
		execParams.Workdir = opts.WorkDir
	}

	slog.Debug("executing command in modal sandbox",
		"sandbox_id", e.sandbox.SandboxID,
		"timeout", opts.Timeout)

	process, err := e.sandbox.Exec(ctx, []string{"bash", "-c", cmd}, execParams)
	if err != nil {
		return -1, fmt.Errorf("executing command: %w", err)
	}

	// Stream stdout and stderr concurrently
	done := make(chan struct{}, 2)

	go func() {
		if stdout != nil {
			io.Copy(stdout, process.Stdout)
		} else {
			io.Copy(io.Discard, process.Stdout)
		}
		done <- struct{}{}
	}()

	go func() {
		if stderr != nil {
			io.Copy(stderr, process.Stderr)
		} else {
			io.Copy(io.Discard, process.Stderr)
		}
		done <- struct{}{}
	}()

	<-done
	<-done

	exitCode, err := process.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return -1, fmt.Errorf("waiting for process: %w", err)
	}

	return exitCode, nil
}

// ReadFile reads a file out of the sandbox.
func (e *Sandbox) ReadFile(ctx context.Context, path string) ([]byte, error) {
	f, err := e.sandbox.Open(ctx, path, "r")
	if err != nil {
		return nil, fmt.Errorf("opening %s in sandbox: %w", path, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s from sandbox: %w", path, err)
	}

	return content, nil
}

// Destroy removes the sandbox and cleans up all resources.
func (e *Sandbox) Destroy(ctx context.Context) error {
	slog.Debug("destroying modal sandbox", "sandbox_id", e.sandbox.SandboxID, "app", e.appName)

	if err := e.sandbox.Terminate(ctx); err != nil {
		if !strings.Contains(err.Error(), "already terminated") &&
			!strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("terminating sandbox: %w", err)
		}
	}

	// Stop the Modal app to clean it up from the console.
	// The modal-go SDK doesn't expose AppStop on the public API, so we use the CLI.
	if err := e.stopApp(ctx); err != nil {
		return fmt.Errorf("stopping app: %w", err)
	}

	return nil
}

// stopApp stops the Modal app using the modal CLI.
func (e *Sandbox) stopApp(ctx context.Context) error {
	modalPath, err := exec.LookPath("modal")
	if err != nil {
		return fmt.Errorf("modal CLI not found: the modal-go SDK does not expose the AppStop API, " +
			"so the CLI is required to clean up apps. Install it with: pip install modal")
	}

	cmd := exec.CommandContext(ctx, modalPath, "app", "stop", e.appName)
	output, err := cmd.CombinedOutput()
	if err != nil {
		outStr := string(output)
		if strings.Contains(outStr, "already stopped") ||
			strings.Contains(outStr, "not found") ||
			strings.Contains(outStr, "Could not find") {
			return nil
		}
		return fmt.Errorf("modal app stop failed: %s", outStr)
	}
	return nil
}

// Cost returns the cost incurred by this environment.
// Modal pricing (approximate, as of 2024):
// - CPU: ~$0.000463 per CPU-second
// - Memory: ~$0.000058 per GiB-second
func (e *Sandbox) Cost() float64 {
	duration := time.Since(e.startTime).Seconds()
	cpuCost := duration * float64(e.cpuCount) * 0.000463
	memoryCost := duration * (float64(e.memoryMiB) / 1024.0) * 0.000058
	return cpuCost + memoryCost
}
