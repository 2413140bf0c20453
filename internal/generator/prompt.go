package generator

import (
	"fmt"
	"strings"

	"mental-triage/internal/models"
	"mental-triage/internal/triage/catalog"
)

const systemPrompt = `Eres un asistente especializado en triage inicial de salud mental. Tu rol es ayudar a realizar una evaluación
preliminar para determinar la urgencia y posibles áreas de atención que requiere la persona.

Directrices importantes:
1. Mantén un tono profesional pero empático
2. No realices diagnósticos definitivos, solo sugerencias preliminares
3. Ante cualquier señal de riesgo inmediato, prioriza la seguridad del usuario
4. Sé directo y claro
5. No des consejos terapéuticos, solo recomendaciones de búsqueda de ayuda profesional`

const analysisTemplate = `Basado en las respuestas proporcionadas, realiza un análisis considerando:

1. Nivel de urgencia:
   - ALTO: Riesgo inmediato de autolesión o crisis aguda
   - MEDIO: Malestar significativo pero sin riesgo inmediato
   - BAJO: Malestar manejable, puede esperar atención regular

2. Áreas principales de preocupación (máximo 3)

3. Diagnósticos preliminares con su confianza (0-100) e indicadores clave

4. Recomendaciones inmediatas:
   - Si es urgente: contacto inmediato con servicios de emergencia
   - Si es medio: consulta profesional en los próximos días
   - Si es bajo: consulta profesional para evaluación regular

Formato de respuesta requerido (solo JSON):
{
    "urgency_level": "ALTO|MEDIO|BAJO",
    "main_concerns": ["concern1", "concern2", "concern3"],
    "preliminary_diagnoses": [
        {"condition": "condición", "confidence": 75, "key_indicators": ["indicador1"], "severity": "Leve|Moderada|Alta"}
    ],
    "recommendations": ["rec1", "rec2", "rec3"],
    "risk_factors": ["risk1", "risk2"],
    "protective_factors": ["protective1", "protective2"]
}`

// BuildPrompt lists every answer under its question text, in ask order,
// followed by the response format.
func BuildPrompt(cat *catalog.Catalog, responses models.Responses) string {
	var b strings.Builder
	b.WriteString("Respuestas del usuario:\n")
	for _, a := range responses {
		fmt.Fprintf(&b, "Pregunta: %s\nRespuesta: %s\n", cat.Text(a.QuestionID), a.Text)
	}
	b.WriteString("\n")
	b.WriteString(analysisTemplate)
	return b.String()
}
