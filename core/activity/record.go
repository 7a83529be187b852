package activity

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/leofalp/storypaint/internal/jsonschema"
)

// Record is a short activity proposed to a child about their drawing. The JSON
// field names are the ones the mobile client renders.
type Record struct {
	Titulo          string   `json:"titulo" jsonschema:"description=Título corto y divertido"`
	Mision          string   `json:"mision" jsonschema:"description=Misión en una frase, dirigida al niño"`
	Instrucciones   []string `json:"instrucciones" jsonschema:"description=Pasos sencillos, uno por elemento"`
	DuracionMinutos float64  `json:"duracion_minutos" jsonschema:"description=Duración estimada en minutos"`
	Materiales      []string `json:"materiales" jsonschema:"description=Materiales comunes de casa o del colegio"`
	RetoExtra       string   `json:"reto_extra,omitempty" jsonschema:"description=Reto opcional para quien termine antes"`
}

var defaultRecord = Record{
	Titulo:          "Actividad creativa",
	Mision:          "Inventa una historia corta sobre el dibujo",
	Instrucciones:   []string{"Di un nombre a tu dibujo", "Cuenta una historia en 3 frases", "Dibuja el final"},
	DuracionMinutos: 5,
	Materiales:      []string{"Papel", "Lápices"},
	RetoExtra:       "Cambia el final de la historia",
}

// Default returns the fallback activity used when the model output cannot be
// recovered. Each call returns a fresh copy.
func Default() Record {
	return defaultRecord.Clone()
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Instrucciones = slices.Clone(r.Instrucciones)
	r.Materiales = slices.Clone(r.Materiales)
	return r
}

var (
	// ErrNoObject is returned when the text holds no candidate JSON object.
	ErrNoObject = errors.New("no JSON object found")

	// ErrMissingField is returned when a required key is absent or empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a key holds a value of the wrong type.
	ErrInvalidField = errors.New("invalid field")
)

// Required keys of a recovered object.
const (
	KeyTitulo          = "titulo"
	KeyMision          = "mision"
	KeyInstrucciones   = "instrucciones"
	KeyDuracionMinutos = "duracion_minutos"
	KeyMateriales      = "materiales"
	KeyRetoExtra       = "reto_extra"
)

// fromObject converts a decoded JSON object into a Record. Any missing
// required key or wrongly typed value rejects the whole object.
func fromObject(obj map[string]any) (Record, error) {
	var (
		r   Record
		err error
	)
	if r.Titulo, err = requiredString(obj, KeyTitulo); err != nil {
		return Record{}, err
	}
	if r.Mision, err = requiredString(obj, KeyMision); err != nil {
		return Record{}, err
	}
	if r.Instrucciones, err = stringList(obj, KeyInstrucciones); err != nil {
		return Record{}, err
	}
	if len(r.Instrucciones) == 0 {
		return Record{}, fmt.Errorf("%w: %s is empty", ErrMissingField, KeyInstrucciones)
	}
	if r.DuracionMinutos, err = number(obj, KeyDuracionMinutos); err != nil {
		return Record{}, err
	}
	if r.Materiales, err = stringList(obj, KeyMateriales); err != nil {
		return Record{}, err
	}

	if raw, ok := obj[KeyRetoExtra]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: %s is %T, want string", ErrInvalidField, KeyRetoExtra, raw)
		}
		r.RetoExtra = s
	}
	return r, nil
}

func requiredString(obj map[string]any, key string) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrInvalidField, key, raw)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingField, key)
	}
	return s, nil
}

func stringList(obj map[string]any, key string) ([]string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want list", ErrInvalidField, key, raw)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %T, want string", ErrInvalidField, key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

func number(obj map[string]any, key string) (float64, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	f, ok := raw.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s is %T, want number", ErrInvalidField, key, raw)
	}
	return f, nil
}

// Schema describes Record as the JSON schema requested from the model as its
// structured response. Each call returns a fresh schema.
func Schema() *jsonschema.Schema {
	return jsonschema.MustGenerate[Record]()
}
