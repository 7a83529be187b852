package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

// clearEnv blanks every variable Load reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "GEMINI_API_BASE_URL", "STORYPAINT_BACKEND", "STORYPAINT_MODEL_IMAGE",
		"STORYPAINT_MODEL_TEXT", "PORT", "STORYPAINT_MIN_PAYLOAD_LENGTH", "STORYPAINT_MAX_IMAGE_BYTES",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()

	for _, path := range []string{"", "/etc/storypaint.yaml"} {
		cfg, err := Load(fs, path)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", path, err)
		}
		if diff := cmp.Diff(Default(), cfg); diff != "" {
			t.Errorf("Load(%q) mismatch (-want +got):\n%s", path, diff)
		}
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	file := `
server:
  port: 8080
gemini:
  backend: sdk
  text_model: gemini-custom
locate:
  min_payload_length: 120
activity:
  convert_html: false
`
	if err := afero.WriteFile(fs, "/cfg.yaml", []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("STORYPAINT_MODEL_IMAGE", "gemini-image-custom")

	cfg, err := Load(fs, "/cfg.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want the environment value", cfg.Server.Port)
	}
	if cfg.Gemini.Backend != BackendSDK || cfg.Gemini.TextModel != "gemini-custom" || cfg.Gemini.ImageModel != "gemini-image-custom" {
		t.Errorf("Gemini = %+v", cfg.Gemini)
	}
	if cfg.Gemini.APIKey != "k" || cfg.Locate.MinPayloadLength != 120 || cfg.Activity.ConvertHTML {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Image.MaxBytes != 5<<20 {
		t.Errorf("MaxBytes = %d, want the default", cfg.Image.MaxBytes)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/bad.yaml", []byte("server: [1, 2"), 0o600)

	if _, err := Load(fs, "/bad.yaml"); err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("Load(bad yaml) error = %v", err)
	}

	t.Setenv("STORYPAINT_MIN_PAYLOAD_LENGTH", "lots")
	if _, err := Load(fs, ""); err == nil || !strings.Contains(err.Error(), "STORYPAINT_MIN_PAYLOAD_LENGTH") {
		t.Errorf("Load(bad env) error = %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	cfg := Default()
	cfg.Gemini.TextModel = "saved"

	if err := cfg.Save(fs, "/out.yaml"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(fs, "/out.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing key", mutate: func(c *Config) { c.Gemini.APIKey = "" }, wantErr: "GEMINI_API_KEY"},
		{name: "bad backend", mutate: func(c *Config) { c.Gemini.Backend = "grpc" }, wantErr: "invalid backend"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid port"},
		{name: "bad image limits", mutate: func(c *Config) { c.Image.MaxDimension = 10 }, wantErr: "invalid image limits"},
		{name: "negative pixel limit", mutate: func(c *Config) { c.Image.MaxPixels = -1 }, wantErr: "invalid image limits"},
		{name: "bad threshold", mutate: func(c *Config) { c.Locate.MinPayloadLength = 0 }, wantErr: "min payload length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Gemini.APIKey = "k"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	cfg.Gemini.Timeout = "nonsense"
	cfg.Server.ReadTimeout = "5s"

	if got := cfg.ModelTimeout(); got != 90*time.Second {
		t.Errorf("ModelTimeout() = %v, want the fallback", got)
	}
	if got := cfg.ReadTimeout(); got != 5*time.Second {
		t.Errorf("ReadTimeout() = %v", got)
	}
	if got := cfg.Addr(); got != ":5000" {
		t.Errorf("Addr() = %q", got)
	}
}
