package activity

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecover_DefaultRecord(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrEmptyText},
		{name: "whitespace", input: " \n\t ", wantErr: ErrEmptyText},
		{name: "prose", input: "not json at all", wantErr: ErrNoObject},
		{name: "fenced object missing keys", input: "```json\n{\"titulo\":\"x\"}\n```", wantErr: ErrMissingField},
		{name: "empty object", input: "{}", wantErr: ErrMissingField},
		{
			name:    "wrongly typed duration",
			input:   `{"titulo":"A","mision":"B","instrucciones":["1"],"duracion_minutos":"cinco","materiales":["x"]}`,
			wantErr: ErrInvalidField,
		},
		{
			name:    "empty instructions",
			input:   `{"titulo":"A","mision":"B","instrucciones":[],"duracion_minutos":5,"materiales":["x"]}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "non-string material",
			input:   `{"titulo":"A","mision":"B","instrucciones":["1"],"duracion_minutos":5,"materiales":["x", 3]}`,
			wantErr: ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recover(tt.input)
			if got.Source != SourceDefault {
				t.Errorf("Source = %q, want %q", got.Source, SourceDefault)
			}
			if got.Parsed() {
				t.Error("Parsed() = true for a default outcome")
			}
			if diff := cmp.Diff(Default(), got.Record); diff != "" {
				t.Errorf("Record mismatch (-want +got):\n%s", diff)
			}
			if !errors.Is(got.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", got.Err, tt.wantErr)
			}
		})
	}
}

func TestRecover_Parsed(t *testing.T) {
	full := Record{
		Titulo:          "A",
		Mision:          "B",
		Instrucciones:   []string{"1"},
		DuracionMinutos: 5,
		Materiales:      []string{"x"},
		RetoExtra:       "y",
	}
	dragons := Record{
		Titulo:          "Dragones",
		Mision:          "Dale un nombre al dragón",
		Instrucciones:   []string{"Mira tu dibujo", "Piensa un nombre"},
		DuracionMinutos: 10,
		Materiales:      []string{},
	}
	const dragonsJSON = `{"titulo":"Dragones","mision":"Dale un nombre al dragón","instrucciones":["Mira tu dibujo","Piensa un nombre"],"duracion_minutos":10,"materiales":[]}`

	tests := []struct {
		name  string
		input string
		want  Record
	}{
		{
			name:  "fenced block with surrounding noise",
			input: "noise ```json\n{\"titulo\":\"A\",\"mision\":\"B\",\"instrucciones\":[\"1\"],\"duracion_minutos\":5,\"materiales\":[\"x\"],\"reto_extra\":\"y\"}\n``` trailing",
			want:  full,
		},
		{
			name:  "upper case fence label",
			input: "```JSON\n" + dragonsJSON + "\n```",
			want:  dragons,
		},
		{
			name:  "tilde fence",
			input: "~~~json\n" + dragonsJSON + "\n~~~",
			want:  dragons,
		},
		{
			name:  "bare object in prose",
			input: "¡Claro! Aquí tienes la actividad: " + dragonsJSON + " Espero que te guste.",
			want:  dragons,
		},
		{
			name:  "unlabelled fence and stray backticks",
			input: "```\n`" + dragonsJSON + "`\n```",
			want:  dragons,
		},
		{
			name:  "single quotes and trailing comma",
			input: `{'titulo': 'Dragones', 'mision': 'Dale un nombre al dragón', 'instrucciones': ['Mira tu dibujo', 'Piensa un nombre'], 'duracion_minutos': 10, 'materiales': [],}`,
			want:  dragons,
		},
		{
			name:  "output truncated before the closing brace",
			input: "Actividad: " + strings.TrimSuffix(dragonsJSON, "}"),
			want:  dragons,
		},
		{
			name:  "values wrapped in schema envelopes",
			input: `{"titulo":{"type":"string","value":"Dragones"},"mision":{"type":"string","value":"Dale un nombre al dragón"},"instrucciones":{"type":"array","value":["Mira tu dibujo","Piensa un nombre"]},"duracion_minutos":{"type":"number","value":10},"materiales":{"type":"array","value":[]}}`,
			want:  dragons,
		},
		{
			name:  "fenced block without an object, bare object valid",
			input: "```json\nlo siento, no puedo\n```\n" + dragonsJSON,
			want:  dragons,
		},
		{
			name:  "extra keys are ignored",
			input: `{"titulo":"A","mision":"B","instrucciones":["1"],"duracion_minutos":5,"materiales":["x"],"reto_extra":"y","edad":"5-8"}`,
			want:  full,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recover(tt.input)
			if got.Source != SourceParsed {
				t.Fatalf("Source = %q (err %v), want %q", got.Source, got.Err, SourceParsed)
			}
			if got.Err != nil {
				t.Errorf("Err = %v, want nil", got.Err)
			}
			if diff := cmp.Diff(tt.want, got.Record); diff != "" {
				t.Errorf("Record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecover_HTML(t *testing.T) {
	input := `<p>Aquí tienes:</p><pre><code class="language-json">{&quot;titulo&quot;:&quot;A&quot;,&quot;mision&quot;:&quot;B&quot;,&quot;instrucciones&quot;:[&quot;1&quot;],&quot;duracion_minutos&quot;:5,&quot;materiales&quot;:[&quot;x&quot;]}</code></pre>`

	got := Recover(input)
	if !got.Parsed() {
		t.Fatalf("Source = %q (err %v), want parsed", got.Source, got.Err)
	}
	if got.Record.Titulo != "A" || got.Record.DuracionMinutos != 5 {
		t.Errorf("Record = %+v", got.Record)
	}

	if got := New(WithHTMLConversion(false)).Recover(input); got.Parsed() {
		t.Errorf("Recover() without HTML conversion parsed entity-encoded text: %+v", got.Record)
	}
}

func TestRecoverer_MinObjectLength(t *testing.T) {
	const record = `{"titulo":"A","mision":"B","instrucciones":["1"],"duracion_minutos":5,"materiales":["x"]}`
	input := "Usa {nombre} como marcador. " + record

	if got := New(WithMinObjectLength(20)).Recover(input); !got.Parsed() {
		t.Errorf("Source = %q (err %v), want parsed", got.Source, got.Err)
	}
}

func TestDefault_ReturnsCopy(t *testing.T) {
	first := Default()
	first.Instrucciones[0] = "changed"
	first.Materiales = append(first.Materiales, "Tijeras")

	if diff := cmp.Diff(Default(), Recover("").Record); diff != "" {
		t.Errorf("Default() was mutated (-want +got):\n%s", diff)
	}
	if Default().Instrucciones[0] != "Di un nombre a tu dibujo" {
		t.Error("Default() shares its backing arrays")
	}
}

func TestRecord_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.Instrucciones[0] = "otro"
	clone.Materiales[0] = "Cartulina"

	if original.Instrucciones[0] == "otro" {
		t.Error("Clone() shares Instrucciones with the original")
	}
	if original.Materiales[0] == "Cartulina" {
		t.Error("Clone() shares Materiales with the original")
	}
	if diff := cmp.Diff(original, original.Clone()); diff != "" {
		t.Errorf("Clone() mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectCandidates(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		minLength int
		want      []string
	}{
		{
			name:      "no brace",
			input:     "hola",
			minLength: 2,
			want:      nil,
		},
		{
			name:      "single object",
			input:     `a {"k":1} b`,
			minLength: 2,
			want:      []string{`{"k":1}`, `{"k":1} b`},
		},
		{
			name:      "nested object",
			input:     `{"a":{"b":1}}`,
			minLength: 2,
			want:      []string{`{"a":{"b":1}`, `{"a":{"b":1}}`},
		},
		{
			name:      "short span skipped",
			input:     `{x} then {"k":1}`,
			minLength: 5,
			want:      []string{`{"k":1}`, `{x} then {"k":1}`},
		},
		{
			name:      "truncated",
			input:     `ok {"k":[1,2`,
			minLength: 2,
			want:      []string{`{"k":[1,2`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectCandidates(tt.input, tt.minLength)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("objectCandidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	schema := Schema()
	if schema.Type != "object" {
		t.Fatalf("Type = %q, want object", schema.Type)
	}

	want := []string{KeyTitulo, KeyMision, KeyInstrucciones, KeyDuracionMinutos, KeyMateriales}
	if diff := cmp.Diff(want, schema.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}

	types := map[string]string{
		KeyTitulo:          "string",
		KeyMision:          "string",
		KeyInstrucciones:   "array",
		KeyDuracionMinutos: "number",
		KeyMateriales:      "array",
		KeyRetoExtra:       "string",
	}
	if len(schema.Properties) != len(types) {
		t.Errorf("properties = %d, want %d", len(schema.Properties), len(types))
	}
	for key, typ := range types {
		property, ok := schema.Properties[key]
		if !ok {
			t.Errorf("property %q missing", key)
			continue
		}
		if property.Type != typ {
			t.Errorf("%s type = %q, want %q", key, property.Type, typ)
		}
		if property.Description == "" {
			t.Errorf("%s has no description", key)
		}
	}
	if items := schema.Properties[KeyMateriales].Items; items == nil || items.Type != "string" {
		t.Errorf("materiales items = %+v, want strings", items)
	}

	schema.Required = nil
	if len(Schema().Required) == 0 {
		t.Error("Schema() returned a shared schema")
	}
}
