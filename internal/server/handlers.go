package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/leofalp/storypaint/internal/imaging"
	"github.com/leofalp/storypaint/internal/service"
	"github.com/leofalp/storypaint/providers/observability"
)

const consentHeader = "X-Upload-Consent"

// Client-facing error messages.
const (
	msgConsentRequired = "Consentimiento de subida requerido (header X-Upload-Consent)"
	msgInvalidJSON     = "JSON inválido."
	msgInternal        = "Error interno"
)

// ErrConsentRequired is reported when the upload consent header is missing or
// not affirmative.
var ErrConsentRequired = errors.New(msgConsentRequired)

var consentValues = map[string]bool{"true": true, "1": true, "yes": true}

// uploadErrors are reported to the client with their own message.
var uploadErrors = []error{
	service.ErrMissingImage,
	service.ErrProcessing,
	imaging.ErrInvalidBase64,
	imaging.ErrImageTooLarge,
	imaging.ErrInvalidImage,
	imaging.ErrUnsupportedFormat,
	imaging.ErrTooSmall,
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !consentValues[strings.ToLower(strings.TrimSpace(r.Header.Get(consentHeader)))] {
		writeError(w, http.StatusForbidden, ErrConsentRequired.Error())
		return
	}

	var body map[string]any
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, imaging.ErrImageTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	req := service.Request{}
	req.ImageBase64, _ = body["imagen"].(string)
	req.Prompt, _ = body["prompt"].(string)

	resp, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		for _, known := range uploadErrors {
			if errors.Is(err, known) {
				writeError(w, http.StatusBadRequest, clientMessage(err, known))
				return
			}
		}
		s.observer.Error(r.Context(), "generation failed",
			observability.String(observability.AttrRequestID, middleware.GetReqID(r.Context())),
			observability.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// clientMessage keeps detail added around a sentinel only when the sentinel
// leads the message, as in "Formato no soportado: GIF". Internal detail
// wrapped after it is dropped.
func clientMessage(err, sentinel error) string {
	if errors.Is(sentinel, service.ErrProcessing) {
		return sentinel.Error()
	}
	if msg := err.Error(); strings.HasPrefix(msg, sentinel.Error()) {
		return msg
	}
	return sentinel.Error()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
