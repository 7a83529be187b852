package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/storypaint/core/activity"
	"github.com/leofalp/storypaint/core/client"
	"github.com/leofalp/storypaint/core/client/middleware"
	"github.com/leofalp/storypaint/core/locate"
	"github.com/leofalp/storypaint/internal/config"
	"github.com/leofalp/storypaint/internal/imaging"
	"github.com/leofalp/storypaint/internal/server"
	"github.com/leofalp/storypaint/internal/service"
	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/ai/gemini"
	"github.com/leofalp/storypaint/providers/ai/genaisdk"
	"github.com/leofalp/storypaint/providers/observability/slogobs"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := a.buildService(ctx)
			if err != nil {
				return err
			}
			srv := server.New(svc,
				server.WithObserver(a.observer),
				server.WithMetricsHandler(a.observer.Handler()),
				server.WithMaxBodyBytes(a.cfg.Server.MaxBodyBytes),
				server.WithTimeouts(a.cfg.ReadTimeout(), a.cfg.WriteTimeout(), a.cfg.ShutdownTimeout()),
			)
			return srv.Run(ctx, a.cfg.Addr())
		},
	}
}

func (a *app) buildService(ctx context.Context) (*service.Service, error) {
	provider, err := buildProvider(ctx, a.cfg.Gemini)
	if err != nil {
		return nil, err
	}

	c, err := client.New(provider,
		client.WithObserver(a.observer),
		client.WithMiddleware(
			middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: a.cfg.Gemini.MaxRetries}),
			middleware.NewTimeoutMiddleware(a.cfg.ModelTimeout()),
			middleware.NewLoggingMiddleware(a.logger(), callLogLevel(a.logger())),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return service.New(c,
		service.WithObserver(a.observer),
		service.WithModels(a.cfg.Gemini.ImageModel, a.cfg.Gemini.TextModel),
		service.WithLimits(imaging.Limits{
			MaxBytes:      a.cfg.Image.MaxBytes,
			MaxPixels:     a.cfg.Image.MaxPixels,
			MinDimension:  a.cfg.Image.MinDimension,
			MaxDimension:  a.cfg.Image.MaxDimension,
			ThumbnailSize: a.cfg.Image.ThumbnailSize,
		}),
		service.WithStore(imaging.NewStore(a.fs, a.cfg.Image.TempDir)),
		service.WithLocator(newLocator(a.cfg.Locate)),
		service.WithRecoverer(newRecoverer(a.cfg.Activity)),
	)
}

func buildProvider(ctx context.Context, cfg config.GeminiConfig) (ai.Provider, error) {
	switch cfg.Backend {
	case config.BackendSDK:
		provider, err := genaisdk.New(ctx, genaisdk.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
		if err != nil {
			return nil, err
		}
		return provider, nil
	case config.BackendREST, "":
		return gemini.New().WithAPIKey(cfg.APIKey).WithBaseURL(cfg.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// callLogLevel logs prompts and answers only when tracing.
func callLogLevel(logger *slog.Logger) middleware.LogLevel {
	switch {
	case logger.Enabled(context.Background(), slogobs.LevelTrace):
		return middleware.LogLevelVerbose
	case logger.Enabled(context.Background(), slog.LevelDebug):
		return middleware.LogLevelStandard
	}
	return middleware.LogLevelMinimal
}

func newLocator(cfg config.LocateConfig) *locate.Locator {
	return locate.New(
		locate.WithMinPayloadLength(cfg.MinPayloadLength),
		locate.WithMaxDepth(cfg.MaxDepth),
		locate.WithMaxTextLength(cfg.MaxTextLength),
	)
}

func newRecoverer(cfg config.ActivityConfig) *activity.Recoverer {
	return activity.New(
		activity.WithMinObjectLength(cfg.MinObjectLength),
		activity.WithHTMLConversion(cfg.ConvertHTML),
	)
}
