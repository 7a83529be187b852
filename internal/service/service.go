// Package service turns a child's drawing into an enhanced image and a short
// activity by calling an image model and a text model side by side.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/storypaint/core/activity"
	"github.com/leofalp/storypaint/core/client"
	"github.com/leofalp/storypaint/core/locate"
	"github.com/leofalp/storypaint/internal/imaging"
	"github.com/leofalp/storypaint/providers/ai"
	"github.com/leofalp/storypaint/providers/observability"
	"github.com/leofalp/storypaint/providers/observability/slogobs"
)

var (
	// ErrMissingImage is returned when a request carries no image.
	ErrMissingImage = errors.New("Falta 'imagen'.")
	// ErrProcessing wraps failures to keep a valid upload while the request
	// runs.
	ErrProcessing = errors.New("Error procesando la imagen")
)

// Request is the body of a generation request.
type Request struct {
	ImageBase64 string `json:"imagen"`
	Prompt      string `json:"prompt"`
}

// Response is returned for every accepted request. ImagenGenerada is nil when
// the image model failed or its response held no image.
type Response struct {
	ImagenGenerada    *string         `json:"imagen_generada"`
	ActividadGenerada activity.Record `json:"actividad_generada"`
	ModeloUsado       string          `json:"modelo_usado"`
}

// Service runs the generation pipeline.
type Service struct {
	client    *client.Client
	observer  observability.Provider
	store     *imaging.Store
	locator   *locate.Locator
	recoverer *activity.Recoverer
	limits    imaging.Limits

	imageModel string
	textModel  string
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets where spans, logs and outcome metrics go.
func WithObserver(observer observability.Provider) Option {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithStore sets where uploads are kept while a request runs.
func WithStore(store *imaging.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLocator sets the locator that finds the enhanced image in the image
// model response.
func WithLocator(locator *locate.Locator) Option {
	return func(s *Service) {
		s.locator = locator
	}
}

// WithRecoverer sets how the text model reply is turned into an activity.
func WithRecoverer(recoverer *activity.Recoverer) Option {
	return func(s *Service) {
		s.recoverer = recoverer
	}
}

// WithLimits bounds accepted uploads. The default is imaging.DefaultLimits.
func WithLimits(limits imaging.Limits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithModels sets the image and text models. Empty names keep the defaults.
func WithModels(imageModel, textModel string) Option {
	return func(s *Service) {
		if imageModel != "" {
			s.imageModel = imageModel
		}
		if textModel != "" {
			s.textModel = textModel
		}
	}
}

// Default model names.
const (
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultTextModel  = "gemini-2.0-flash"
)

// New creates a Service sending model calls through c.
func New(c *client.Client, opts ...Option) (*Service, error) {
	if c == nil {
		return nil, errors.New("service: client is nil")
	}
	s := &Service{
		client:     c,
		limits:     imaging.DefaultLimits(),
		imageModel: DefaultImageModel,
		textModel:  DefaultTextModel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer == nil {
		s.observer = slogobs.New()
	}
	if s.store == nil {
		s.store = imaging.NewStore(afero.NewOsFs(), "")
	}
	if s.locator == nil {
		s.locator = locate.New()
	}
	if s.recoverer == nil {
		s.recoverer = activity.New()
	}
	return s, nil
}

// ImageModel returns the model reported in responses.
func (s *Service) ImageModel() string {
	return s.imageModel
}

// Generate validates the upload and asks both models concurrently. Upload
// problems are returned as errors wrapping the imaging sentinels; model
// failures only degrade their half of the response.
func (s *Service) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := s.observer.StartSpan(ctx, observability.SpanGenerate)
	defer span.End()

	if strings.TrimSpace(req.ImageBase64) == "" {
		span.SetStatus(observability.StatusError, "missing image")
		return nil, ErrMissingImage
	}

	img, err := imaging.Decode(req.ImageBase64, s.limits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "invalid upload")
		return nil, err
	}
	span.SetAttributes(
		observability.Int(observability.AttrImageWidth, img.Width),
		observability.Int(observability.AttrImageHeight, img.Height),
		observability.String(observability.AttrImageFormat, img.Format),
		observability.Bool(observability.AttrImageResized, img.Resized),
	)

	tmp, err := s.store.Save(img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "store failed")
		return nil, fmt.Errorf("%w: storing upload: %w", ErrProcessing, err)
	}
	defer func() {
		if err := tmp.Cleanup(); err != nil {
			s.observer.Warn(ctx, "temp file not removed", observability.Error(err))
		}
	}()

	drawing, err := tmp.ReadAll()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "store failed")
		return nil, fmt.Errorf("%w: reading stored upload: %w", ErrProcessing, err)
	}

	var (
		enhanced locate.Result
		outcome  activity.Outcome
		g        errgroup.Group
	)
	g.Go(func() error {
		enhanced = s.enhance(ctx, drawing)
		return nil
	})
	g.Go(func() error {
		outcome = s.propose(ctx, drawing, req.Prompt)
		return nil
	})
	_ = g.Wait()

	resp := &Response{ActividadGenerada: outcome.Record, ModeloUsado: s.imageModel}
	if enhanced.Found() {
		b64 := enhanced.Base64()
		resp.ImagenGenerada = &b64
	}
	span.SetStatus(observability.StatusOK, "")
	return resp, nil
}

// enhance asks the image model to clean up the drawing and finds the image in
// whatever it answered.
func (s *Service) enhance(ctx context.Context, drawing []byte) locate.Result {
	ctx, span := s.observer.StartSpan(ctx, observability.SpanImageCall,
		observability.String(observability.AttrLLMModel, s.imageModel))
	defer span.End()

	resp, err := s.client.Send(ctx, ai.ChatRequest{
		Model: s.imageModel,
		Messages: []ai.Message{{
			Role: ai.RoleUser,
			ContentParts: []ai.ContentPart{
				ai.NewTextPart(enhancePrompt),
				ai.NewImagePart("image/png", drawing),
			},
		}},
		GenerationConfig: &ai.GenerationConfig{
			ResponseModalities: []ai.Modality{ai.ModalityText, ai.ModalityImage},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "image call failed")
		s.countLocate(ctx, "none")
		s.observer.Error(ctx, "image generation failed", observability.Error(err))
		return locate.Result{}
	}

	result := s.locator.Locate(resp.Raw)
	if !result.Found() {
		result = s.locator.Locate(resp)
	}

	strategy := result.Strategy
	if !result.Found() {
		strategy = "none"
	}
	span.SetAttributes(
		observability.String(observability.AttrLocateStrategy, strategy),
		observability.Int(observability.AttrLocateNodes, result.Nodes),
		observability.Int(observability.AttrLocateBytes, len(result.Data)),
	)
	if len(result.Faults) > 0 {
		s.observer.Warn(ctx, "locate strategies faulted",
			observability.String(observability.AttrLocateFaults, strings.Join(result.Faults, ",")))
	}
	if !result.Found() {
		s.observer.Warn(ctx, "no image in model response",
			observability.String(observability.AttrLLMFinishReason, resp.FinishReason))
	}
	s.countLocate(ctx, strategy)
	return result
}

// propose asks the text model for an activity. It always yields a valid
// record.
func (s *Service) propose(ctx context.Context, drawing []byte, childText string) activity.Outcome {
	ctx, span := s.observer.StartSpan(ctx, observability.SpanActivityCall,
		observability.String(observability.AttrLLMModel, s.textModel))
	defer span.End()

	var outcome activity.Outcome
	resp, err := s.client.Send(ctx, ai.ChatRequest{
		Model: s.textModel,
		Messages: []ai.Message{{
			Role: ai.RoleUser,
			ContentParts: []ai.ContentPart{
				ai.NewTextPart(activityPrompt(childText)),
				ai.NewImagePart("image/png", drawing),
			},
		}},
		ResponseFormat: &ai.ResponseFormat{
			Type:         ai.FormatJSONSchema,
			OutputSchema: activity.Schema(),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "activity call failed")
		s.observer.Error(ctx, "activity generation failed", observability.Error(err))
		outcome = activity.Outcome{Record: activity.Default(), Source: activity.SourceDefault, Err: err}
	} else {
		outcome = s.recoverer.Recover(resp.Content)
		if !outcome.Parsed() {
			s.observer.Warn(ctx, "model did not return a valid activity, using the default",
				observability.Error(outcome.Err))
		}
	}

	span.SetAttributes(observability.String(observability.AttrActivitySource, string(outcome.Source)))
	s.observer.Counter(observability.MetricActivityTotal).Add(ctx, 1,
		observability.String(observability.AttrActivitySource, string(outcome.Source)))
	return outcome
}

func (s *Service) countLocate(ctx context.Context, strategy string) {
	s.observer.Counter(observability.MetricLocateTotal).Add(ctx, 1,
		observability.String(observability.AttrLocateStrategy, strategy))
}
