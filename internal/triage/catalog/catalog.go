// Package catalog holds the canonical triage question sequence.
package catalog

import "strings"

// Question ids in canonical order.
const (
	MainConcern       = "main_concern"
	Duration          = "duration"
	DailyImpact       = "daily_impact"
	MoodChanges       = "mood_changes"
	SleepPatterns     = "sleep_patterns"
	SupportSystem     = "support_system"
	PreviousTreatment = "previous_treatment"
	SelfHarm          = "self_harm"
	SubstanceUse      = "substance_use"
	CopingMechanisms  = "coping_mechanisms"
)

const PriorityHigh = "high"

type Question struct {
	ID       string
	Text     string
	Purpose  string
	Priority string
	Position int
}

// Catalog is immutable after construction.
type Catalog struct {
	questions []Question
	byID      map[string]int
}

var canonical = []Question{
	{ID: MainConcern, Text: "¿Cuál es el principal motivo por el que buscas ayuda en este momento?", Purpose: "Identificar la preocupación principal y nivel de malestar"},
	{ID: Duration, Text: "¿Desde hace cuánto tiempo te sientes así?", Purpose: "Evaluar la cronicidad de los síntomas"},
	{ID: DailyImpact, Text: "¿Cómo está afectando esta situación tu vida diaria (trabajo, relaciones, actividades)?", Purpose: "Evaluar el impacto funcional"},
	{ID: MoodChanges, Text: "¿Has notado cambios significativos en tu estado de ánimo recientemente?", Purpose: "Identificar alteraciones del estado de ánimo"},
	{ID: SleepPatterns, Text: "¿Cómo han estado tus patrones de sueño últimamente?", Purpose: "Evaluar alteraciones del sueño"},
	{ID: SupportSystem, Text: "¿Cuentas con personas cercanas que te apoyen en este momento?", Purpose: "Evaluar red de apoyo social"},
	{ID: PreviousTreatment, Text: "¿Has recibido ayuda profesional en salud mental anteriormente?", Purpose: "Identificar historial de tratamiento"},
	{ID: SelfHarm, Text: "¿Has tenido pensamientos de hacerte daño o de que la vida no vale la pena?", Purpose: "Evaluar riesgo de autolesión", Priority: PriorityHigh},
	{ID: SubstanceUse, Text: "¿Has notado cambios en tu consumo de alcohol u otras sustancias?", Purpose: "Evaluar uso de sustancias"},
	{ID: CopingMechanisms, Text: "¿Qué haces habitualmente cuando te sientes así?", Purpose: "Identificar estrategias de afrontamiento"},
}

// Default returns the canonical ten-question catalog.
func Default() *Catalog {
	return New(canonical)
}

// New builds a catalog, assigning positions in slice order.
func New(questions []Question) *Catalog {
	c := &Catalog{
		questions: make([]Question, len(questions)),
		byID:      make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		q.Position = i
		c.questions[i] = q
		c.byID[q.ID] = i
	}
	return c
}

func (c *Catalog) Get(id string) (Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Questions returns a copy of the sequence.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

func (c *Catalog) Len() int {
	return len(c.questions)
}

// FindByText identifies the question an assistant turn asked.
func (c *Catalog) FindByText(text string) (Question, bool) {
	text = strings.TrimSpace(text)
	for _, q := range c.questions {
		if q.Text == text {
			return q, true
		}
	}
	return Question{}, false
}

// Text returns the question text for an id, or the id itself when unknown.
func (c *Catalog) Text(id string) string {
	if q, ok := c.Get(id); ok {
		return q.Text
	}
	return id
}
