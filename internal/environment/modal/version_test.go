package modal

import (
	"errors"
	"strings"
	"testing"
)

// mockConfigReader is a test double for ConfigReader.
type mockConfigReader struct {
	output []byte
	err    error
}

func (m *mockConfigReader) ReadConfig() ([]byte, error) {
	return m.output, m.err
}

func TestCheckImageBuilderVersion(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		readErr     error
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid version",
			output:  `{"image_builder_version": "2025.06"}`,
			wantErr: false,
		},
		{
			name:    "newer version",
			output:  `{"image_builder_version": "2025.12"}`,
			wantErr: false,
		},
		{
			name:        "version not set - null",
			output:      `{"image_builder_version": null}`,
			wantErr:     true,
			errContains: "image_builder_version is not set",
		},
		{
			name:        "version not set - empty string",
			output:      `{"image_builder_version": ""}`,
			wantErr:     true,
			errContains: "image_builder_version is not set",
		},
		{
			name:        "version too old",
			output:      `{"image_builder_version": "2024.10"}`,
			wantErr:     true,
			errContains: "too old",
		},
		{
			name:        "config read fails",
			readErr:     errors.New("modal CLI not found"),
			wantErr:     true,
			errContains: "failed to get modal config",
		},
		{
			name:        "invalid config JSON",
			output:      `not json`,
			wantErr:     true,
			errContains: "failed to parse modal config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockConfigReader{
				output: []byte(tt.output),
				err:    tt.readErr,
			}

			err := checkImageBuilderVersionWith(reader)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got: %v", tt.errContains, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseDockerfile(t *testing.T) {
	dockerfile := `# training image
FROM python:3.12-slim

RUN pip install --no-cache-dir \
    scikit-learn \
    pandas

WORKDIR /work
ENV PYTHONUNBUFFERED=1
CMD ["python"]
`

	base, commands, err := parseDockerfile(dockerfile)
	if err != nil {
		t.Fatalf("parseDockerfile: %v", err)
	}

	if base != "python:3.12-slim" {
		t.Errorf("expected base python:3.12-slim, got %s", base)
	}

	// RUN (with continuations collapsed), WORKDIR, ENV. CMD is not translated.
	if len(commands) != 3 {
		t.Fatalf("expected 3 commands, got %d: %v", len(commands), commands)
	}

	if !strings.Contains(commands[0], "scikit-learn") || !strings.Contains(commands[0], "pandas") {
		t.Errorf("continuation not collapsed: %q", commands[0])
	}
}

func TestParseDockerfileNoFrom(t *testing.T) {
	_, _, err := parseDockerfile("RUN echo hi\n")
	if err == nil {
		t.Error("expected error for Dockerfile without FROM")
	}
}
