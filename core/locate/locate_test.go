package locate

import (
	"bytes"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
)

// Shapes mirroring the typed responses of the generateContent SDK.
type sdkBlob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

type sdkPart struct {
	Text       string   `json:"text,omitempty"`
	InlineData *sdkBlob `json:"inlineData,omitempty"`
}

type sdkContent struct {
	Parts []*sdkPart `json:"parts,omitempty"`
	Role  string     `json:"role,omitempty"`
}

type sdkCandidate struct {
	Content      *sdkContent `json:"content,omitempty"`
	FinishReason string      `json:"finishReason,omitempty"`
}

type sdkResponse struct {
	Candidates   []*sdkCandidate `json:"candidates,omitempty"`
	ModelVersion string          `json:"modelVersion,omitempty"`
}

func TestLocate_Strategies(t *testing.T) {
	image := noisyPNG(t, 21)
	encoded := b64(image)

	tests := []struct {
		name         string
		input        any
		wantStrategy string
	}{
		{
			name:         "gallery data field",
			input:        map[string]any{"images": []any{map[string]any{"data": encoded}}},
			wantStrategy: ProbeGallery,
		},
		{
			name:         "gallery alias field",
			input:        map[string]any{"generated_images": []any{map[string]any{"image": map[string]any{"image_bytes": encoded}}}},
			wantStrategy: ProbeGallery,
		},
		{
			name:         "gallery element is the payload",
			input:        map[string]any{"images": []any{"data:image/png;base64," + encoded}},
			wantStrategy: ProbeGallery,
		},
		{
			name: "typed generateContent response with raw bytes",
			input: &sdkResponse{
				Candidates: []*sdkCandidate{{
					Content: &sdkContent{Parts: []*sdkPart{
						{Text: "Here is your drawing."},
						{InlineData: &sdkBlob{MIMEType: "image/png", Data: image}},
					}},
					FinishReason: "STOP",
				}},
				ModelVersion: "gemini-2.5-flash-image",
			},
			wantStrategy: ProbeCandidates,
		},
		{
			name: "decoded generateContent response",
			input: map[string]any{"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{
					map[string]any{"inline_data": map[string]any{"mime_type": "image/png", "data": encoded}},
				}},
			}}},
			wantStrategy: ProbeCandidates,
		},
		{
			name:         "single content object",
			input:        map[string]any{"content": map[string]any{"parts": []any{map[string]any{"inlineData": map[string]any{"data": encoded}}}}},
			wantStrategy: ProbeContentParts,
		},
		{
			name:         "stringified json body",
			input:        `{"images": [{"b64_json": "` + encoded + `"}]}`,
			wantStrategy: ProbeGallery,
		},
		{
			name:         "unknown layout found by the scan",
			input:        map[string]any{"result": map[string]any{"output": []any{"ok", map[string]any{"blob": encoded}}}},
			wantStrategy: StrategyScan,
		},
		{
			name:         "escaped dump in an unhinted field",
			input:        map[string]any{"text": "generated: " + pyBytesRepr(image)},
			wantStrategy: StrategyScan,
		},
		{
			name:         "quoted run inside prose",
			input:        "model said: data='" + encoded + "' and stopped",
			wantStrategy: StrategyFullText,
		},
		{
			name:         "data uri inside prose",
			input:        []any{"see data:image/png;base64," + encoded + " for the result"},
			wantStrategy: StrategyFullText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Locate(tt.input)
			if !result.Found() {
				t.Fatalf("Locate() found nothing: %s", result)
			}
			if result.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", result.Strategy, tt.wantStrategy)
			}
			if !bytes.Equal(result.Data, image) {
				t.Errorf("Data has %d bytes, want the original %d", len(result.Data), len(image))
			}
			if result.MimeType() != "image/png" {
				t.Errorf("MimeType() = %q, want image/png", result.MimeType())
			}
		})
	}
}

func TestLocate_ProbeOutranksLongerCandidates(t *testing.T) {
	image := noisyPNG(t, 22)
	decoy := randomBytes(len(image)*2, 23)

	response := map[string]any{
		"images":     []any{map[string]any{"data": b64(image)}},
		"debug_data": b64(decoy),
		"payload":    b64(decoy),
	}

	result := Locate(response)
	if result.Strategy != ProbeGallery {
		t.Fatalf("Strategy = %q, want %q", result.Strategy, ProbeGallery)
	}
	if !bytes.Equal(result.Data, image) {
		t.Error("Locate() returned the decoy instead of the gallery image")
	}
}

type previewedImage struct {
	Data string `json:"data"`
}

type previewedResponse struct {
	Preview   *previewedImage   `json:"preview"`
	DataCache string            `json:"data_cache"`
	Images    []*previewedImage `json:"images"`
}

func TestLocate_SharedGalleryElement(t *testing.T) {
	image := noisyPNG(t, 25)
	decoy := randomBytes(len(image), 26)
	element := &previewedImage{Data: b64(image)}

	result := Locate(&previewedResponse{
		Preview:   element,
		DataCache: b64(decoy),
		Images:    []*previewedImage{element},
	})
	if result.Strategy != ProbeGallery {
		t.Fatalf("Strategy = %q, want %q", result.Strategy, ProbeGallery)
	}
	if !bytes.Equal(result.Data, image) {
		t.Error("Locate() returned the cached decoy instead of the gallery image")
	}
}

func TestLocate_EscapeRoundTrip(t *testing.T) {
	image := noisyPNG(t, 24)

	result := Locate(map[string]any{"text": pyBytesRepr(image)})
	if !result.Found() {
		t.Fatal("Locate() found nothing")
	}
	if !bytes.Equal(result.Data[:4], []byte{0x89, 0x50, 0x4e, 0x47}) {
		t.Errorf("first bytes = % x, want 89 50 4e 47", result.Data[:4])
	}
}

func TestLocate_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{name: "nil", input: nil},
		{name: "plain string", input: "hello"},
		{name: "number", input: 42},
		{name: "flat metadata", input: map[string]any{"id": "resp_abc123", "finish_reason": "STOP", "tokens": 12}},
		{name: "short base64 below the threshold", input: map[string]any{"data": strings.Repeat("A", 199)}},
		{name: "empty gallery", input: map[string]any{"images": []any{}}},
		{name: "typed response without image", input: &sdkResponse{Candidates: []*sdkCandidate{{Content: &sdkContent{Parts: []*sdkPart{{Text: "no image today"}}}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Locate(tt.input)
			if result.Found() {
				t.Fatalf("Locate() found %d bytes via %s", len(result.Data), result.Strategy)
			}
			if result.Strategy != "" || result.Base64() != "" {
				t.Errorf("not-found result carries Strategy %q, Base64 %q", result.Strategy, result.Base64())
			}
			if len(result.Faults) != 0 {
				t.Errorf("Faults = %v, want none", result.Faults)
			}
		})
	}
}

func TestLocate_TrustedProbeBytes(t *testing.T) {
	opaque := randomBytes(32, 25)
	response := &sdkResponse{Candidates: []*sdkCandidate{{
		Content: &sdkContent{Parts: []*sdkPart{{InlineData: &sdkBlob{MIMEType: "image/webp", Data: opaque}}}},
	}}}

	result := Locate(response)
	if result.Strategy != ProbeCandidates || !bytes.Equal(result.Data, opaque) {
		t.Errorf("Locate() = %s, want the inline bytes via %s", result, ProbeCandidates)
	}

	if result := Locate(map[string]any{"misc": opaque}); result.Found() {
		t.Errorf("Locate() accepted opaque bytes outside a probe: %s", result)
	}
}

func TestLocate_FaultIsolation(t *testing.T) {
	image := noisyPNG(t, 26)
	broken := Probe{Name: "broken", Candidates: func(*Node) []*Node { panic("boom") }}
	l := New(WithProbes(broken))

	result := l.Locate(map[string]any{"payload": b64(image)})
	if result.Strategy != StrategyScan {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategyScan)
	}
	if len(result.Faults) != 1 || !strings.HasPrefix(result.Faults[0], "broken: boom") {
		t.Errorf("Faults = %v, want the broken probe", result.Faults)
	}
}

func TestLocator_MinPayloadLength(t *testing.T) {
	payload := randomBytes(45, 27)
	response := map[string]any{"data": b64(payload)}

	if result := Locate(response); result.Found() {
		t.Fatalf("default locator accepted a %d character payload", len(b64(payload)))
	}

	result := New(WithMinPayloadLength(50)).Locate(response)
	if !bytes.Equal(result.Data, payload) {
		t.Errorf("tuned locator = %s, want the payload", result)
	}
}

func TestLocator_Options(t *testing.T) {
	l := New(WithHintKeys("Inline_Data"), WithMaxDepth(-1))
	opts := l.Options()

	if opts.MinPayloadLength != DefaultMinPayloadLength {
		t.Errorf("MinPayloadLength = %d, want %d", opts.MinPayloadLength, DefaultMinPayloadLength)
	}
	if opts.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", opts.MaxDepth, DefaultMaxDepth)
	}
	if len(opts.HintKeys) != 1 || opts.HintKeys[0] != "inlinedata" {
		t.Errorf("HintKeys = %v, want [inlinedata]", opts.HintKeys)
	}
	if len(opts.Probes) != len(DefaultProbes()) {
		t.Errorf("Probes = %d, want the default chain", len(opts.Probes))
	}

	opts.HintKeys[0] = "mutated"
	if l.Options().HintKeys[0] != "inlinedata" {
		t.Error("Options() exposed internal state")
	}
}

func TestLocateJSON(t *testing.T) {
	image := noisyPNG(t, 28)
	encoded := b64(image)

	tests := []struct {
		name         string
		body         string
		wantStrategy string
	}{
		{
			name:         "rest body",
			body:         `{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"image/png","data":"` + encoded + `"}}]},"finishReason":"STOP","index":0}],"usageMetadata":{"totalTokenCount":1290}}`,
			wantStrategy: ProbeCandidates,
		},
		{
			name:         "not json",
			body:         `upstream error, partial body: '` + encoded + `'`,
			wantStrategy: StrategyFullText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LocateJSON([]byte(tt.body))
			if result.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", result.Strategy, tt.wantStrategy)
			}
			if result.Base64() != encoded {
				t.Error("Base64() does not round-trip the payload")
			}
		})
	}
}

func TestResult_String(t *testing.T) {
	found := Result{Data: []byte("\x89PNG\r\n"), Strategy: ProbeGallery}
	if got, want := found.String(), "image/png 6 bytes via gallery"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	missing := Result{Nodes: 4, Faults: []string{"gallery: boom"}}
	if got := missing.String(); !strings.Contains(got, "not found") || !strings.Contains(got, "gallery: boom") {
		t.Errorf("String() = %q", got)
	}

	opaque := Result{Data: []byte{1, 2, 3}}
	if opaque.MimeType() != "application/octet-stream" {
		t.Errorf("MimeType() = %q", opaque.MimeType())
	}
	if _, err := base64.StdEncoding.DecodeString(opaque.Base64()); err != nil {
		t.Errorf("Base64() is not valid base64: %v", err)
	}
}

func TestLocate_Concurrent(t *testing.T) {
	image := noisyPNG(t, 29)
	response := map[string]any{"images": []any{map[string]any{"data": b64(image)}}}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result := Locate(response); !bytes.Equal(result.Data, image) {
				errs <- result.String()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Errorf("concurrent Locate() = %s", msg)
	}
}
