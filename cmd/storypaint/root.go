package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/leofalp/storypaint/internal/config"
	"github.com/leofalp/storypaint/providers/observability/promobs"
	"github.com/leofalp/storypaint/providers/observability/slogobs"
)

// app holds what commands share: the filesystem, the standard streams and the
// configuration loaded before any command runs.
type app struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg      *config.Config
	observer *promobs.Observer
}

func newApp() *app {
	return &app{
		fs:     afero.NewOsFs(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "storypaint",
		Short: "Enhance children's drawings and propose an activity about them",
		Long: `storypaint sends a child's drawing to an image model for a cleaner version
and to a text model for a short activity, recovering both from whatever the
models answer.

Run "storypaint serve" to start the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(newServeCmd(a), newLocateCmd(a), newRecoverCmd(a))
	return root
}

// setup loads the configuration, applies the log flags and builds the
// observer.
func (a *app) setup() error {
	cfg, err := config.Load(a.fs, a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	opts := []slogobs.Option{slogobs.WithOutput(a.stderr)}
	if cfg.Log.Level != "" {
		level, ok := slogobs.ParseLevel(cfg.Log.Level)
		if !ok {
			return fmt.Errorf("invalid log level %q", cfg.Log.Level)
		}
		opts = append(opts, slogobs.WithLevel(level))
	}
	if cfg.Log.Format != "" {
		opts = append(opts, slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)))
	}

	a.cfg = cfg
	a.observer = promobs.New(slogobs.New(opts...))
	return nil
}

func (a *app) logger() *slog.Logger {
	return a.observer.Logger()
}
