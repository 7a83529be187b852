package service

import "fmt"

const enhancePrompt = "Mejora este dibujo de un niño pequeño: refuerza todas las líneas, " +
	"suaviza colores y limpia trazos. Mantén la intención original, " +
	"no añadas elementos nuevos. Devuélvelo como PNG, solo la imagen."

// activityPrompt embeds the child's own words, quoted.
func activityPrompt(childText string) string {
	return fmt.Sprintf("Eres un diseñador de juegos para niños de 5 a 8 años.\n"+
		"Basándote solo en el dibujo y en este texto del niño: %q\n\n"+
		"Genera UNA actividad simple y divertida. Responde EXCLUSIVAMENTE con JSON válido:\n"+
		`{ "titulo": "...", "mision": "...", "instrucciones": ["Paso 1","Paso 2"], "duracion_minutos": 5, "materiales": ["..."], "reto_extra": "..." }`,
		childText)
}
