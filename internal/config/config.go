// Package config loads storypaint settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Backends for the Gemini calls.
const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

// Config holds all storypaint settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Image    ImageConfig    `yaml:"image"`
	Locate   LocateConfig   `yaml:"locate"`
	Activity ActivityConfig `yaml:"activity"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
}

// GeminiConfig selects the backend and models. APIKey is normally supplied
// through GEMINI_API_KEY rather than the file.
type GeminiConfig struct {
	Backend    string `yaml:"backend"` // rest or sdk
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ImageModel string `yaml:"image_model"`
	TextModel  string `yaml:"text_model"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// ImageConfig bounds uploaded drawings.
type ImageConfig struct {
	MaxBytes      int    `yaml:"max_bytes"`
	MaxPixels     int    `yaml:"max_pixels"` // declared width×height; 0 disables
	MinDimension  int    `yaml:"min_dimension"`
	MaxDimension  int    `yaml:"max_dimension"`
	ThumbnailSize int    `yaml:"thumbnail_size"`
	TempDir       string `yaml:"temp_dir"`
}

type LocateConfig struct {
	MinPayloadLength int `yaml:"min_payload_length"`
	MaxDepth         int `yaml:"max_depth"`
	MaxTextLength    int `yaml:"max_text_length"`
}

type ActivityConfig struct {
	MinObjectLength int  `yaml:"min_object_length"`
	ConvertHTML     bool `yaml:"convert_html"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     "30s",
			WriteTimeout:    "180s",
			ShutdownTimeout: "15s",
			MaxBodyBytes:    8 << 20,
		},
		Gemini: GeminiConfig{
			Backend:    BackendREST,
			ImageModel: "gemini-2.5-flash-image",
			TextModel:  "gemini-2.0-flash",
			Timeout:    "90s",
			MaxRetries: 2,
		},
		Image: ImageConfig{
			MaxBytes:      5 << 20,
			MaxPixels:     89_478_485,
			MinDimension:  64,
			MaxDimension:  2048,
			ThumbnailSize: 1024,
		},
		Locate: LocateConfig{
			MinPayloadLength: 200,
			MaxDepth:         64,
			MaxTextLength:    32 << 20,
		},
		Activity: ActivityConfig{
			MinObjectLength: 2,
			ConvertHTML:     true,
		},
	}
}

// Load reads path from fs over the defaults, then applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fs, path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if url := os.Getenv("GEMINI_API_BASE_URL"); url != "" {
		c.Gemini.BaseURL = url
	}
	if backend := os.Getenv("STORYPAINT_BACKEND"); backend != "" {
		c.Gemini.Backend = backend
	}
	if model := os.Getenv("STORYPAINT_MODEL_IMAGE"); model != "" {
		c.Gemini.ImageModel = model
	}
	if model := os.Getenv("STORYPAINT_MODEL_TEXT"); model != "" {
		c.Gemini.TextModel = model
	}

	for _, override := range []struct {
		env    string
		target *int
	}{
		{"PORT", &c.Server.Port},
		{"STORYPAINT_MIN_PAYLOAD_LENGTH", &c.Locate.MinPayloadLength},
		{"STORYPAINT_MAX_IMAGE_BYTES", &c.Image.MaxBytes},
	} {
		value := os.Getenv(override.env)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", override.env, value, err)
		}
		*override.target = n
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("Gemini API key not configured (set GEMINI_API_KEY)"))
	}
	if c.Gemini.Backend != BackendREST && c.Gemini.Backend != BackendSDK {
		errs = append(errs, fmt.Errorf("invalid backend %q (valid: %s, %s)", c.Gemini.Backend, BackendREST, BackendSDK))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Image.MaxBytes <= 0 || c.Image.MaxPixels < 0 || c.Image.MinDimension <= 0 || c.Image.ThumbnailSize <= 0 || c.Image.MaxDimension < c.Image.MinDimension {
		errs = append(errs, errors.New("invalid image limits"))
	}
	if c.Locate.MinPayloadLength <= 0 {
		errs = append(errs, fmt.Errorf("invalid min payload length %d", c.Locate.MinPayloadLength))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 30*time.Second)
}

func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 180*time.Second)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

// ModelTimeout bounds a single model call.
func (c *Config) ModelTimeout() time.Duration {
	return parseDuration(c.Gemini.Timeout, 90*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
