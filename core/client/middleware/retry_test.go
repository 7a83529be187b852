package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/leofalp/storypaint/providers/ai"
)

// sequence returns errs in order, then succeeds.
type sequence struct {
	errs  []error
	calls int
}

func (s *sequence) send(_ context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &ai.ChatResponse{Content: "ok"}, nil
}

func status(code int) error {
	return &ai.StatusError{Provider: "test", StatusCode: code, Message: http.StatusText(code)}
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_Outcomes(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		maxRetries    int
		wantCalls     int
		wantErr       bool
		wantExhausted bool
	}{
		{name: "success first try", wantCalls: 1},
		{name: "recovers from 429", errs: []error{status(429)}, maxRetries: 2, wantCalls: 2},
		{name: "recovers from 503 twice", errs: []error{status(503), status(503)}, maxRetries: 2, wantCalls: 3},
		{name: "network error is retried", errs: []error{&net.OpError{Op: "dial", Err: errors.New("refused")}}, maxRetries: 1, wantCalls: 2},
		{name: "400 is final", errs: []error{status(400)}, maxRetries: 3, wantCalls: 1, wantErr: true},
		{name: "plain error is final", errs: []error{errors.New("bad schema")}, maxRetries: 3, wantCalls: 1, wantErr: true},
		{
			name:          "exhausted",
			errs:          []error{status(500), status(502), status(503)},
			maxRetries:    2,
			wantCalls:     3,
			wantErr:       true,
			wantExhausted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := &sequence{errs: tt.errs}
			send := NewRetryMiddleware(fastRetry(tt.maxRetries))(seq.send)

			resp, err := send(context.Background(), ai.ChatRequest{})
			if seq.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", seq.calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && resp.Content != "ok" {
				t.Errorf("response = %+v", resp)
			}
			if errors.Is(err, ErrRetryExhausted) != tt.wantExhausted {
				t.Errorf("errors.Is(ErrRetryExhausted) = %v, want %v (err %v)", !tt.wantExhausted, tt.wantExhausted, err)
			}
			if tt.wantExhausted && !ai.IsTemporary(err) {
				t.Errorf("exhausted error %v does not wrap the last StatusError", err)
			}
		})
	}
}

func TestRetry_Defaults(t *testing.T) {
	config := RetryConfig{}
	applyRetryDefaults(&config)
	if config.MaxRetries != 2 || config.InitialBackoff != time.Second || config.MaxBackoff != 20*time.Second || config.RetryableFunc == nil {
		t.Errorf("defaults = %+v", config)
	}
}

func TestRetry_CustomRetryable(t *testing.T) {
	seq := &sequence{errs: []error{errors.New("flaky"), errors.New("flaky")}}
	config := fastRetry(3)
	config.RetryableFunc = func(err error) bool { return err.Error() == "flaky" }

	if _, err := NewRetryMiddleware(config)(seq.send)(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("error = %v", err)
	}
	if seq.calls != 3 {
		t.Errorf("calls = %d, want 3", seq.calls)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seq := &sequence{}
	send := func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		seq.calls++
		cancel()
		return nil, status(503)
	}

	config := RetryConfig{MaxRetries: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}
	_, err := NewRetryMiddleware(config)(send)(ctx, ai.ChatRequest{})
	if err == nil || errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want a cancellation error", err)
	}
	if seq.calls != 1 {
		t.Errorf("calls = %d, want 1", seq.calls)
	}
}

func TestDefaultRetryableFunc(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"429", status(429), true},
		{"401", status(401), false},
		{"net", &net.DNSError{Err: "no such host", Name: "x"}, true},
	}
	for _, tt := range tests {
		if got := defaultRetryableFunc(tt.err); got != tt.want {
			t.Errorf("%s: defaultRetryableFunc() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
