package analysis

import (
	"fmt"
	"strings"
	"time"

	"mental-triage/internal/models"
)

var urgencyBanner = map[models.UrgencyLevel]string{
	models.UrgencyAlto:  "ALTO - Requiere atención inmediata",
	models.UrgencyMedio: "MEDIO - Requiere atención próxima",
	models.UrgencyBajo:  "BAJO - Puede esperar atención regular",
}

// FormatReport renders a result as a plain-text report.
func FormatReport(result *models.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("EVALUACIÓN PRELIMINAR DE SALUD MENTAL\n")
	b.WriteString("=====================================\n\n")

	banner, ok := urgencyBanner[result.UrgencyLevel]
	if !ok {
		banner = string(result.UrgencyLevel)
	}
	fmt.Fprintf(&b, "Nivel de Urgencia: %s\n\n", banner)

	writeSection(&b, "Preocupaciones Principales", result.MainConcerns)

	b.WriteString("Diagnósticos Preliminares:\n")
	if len(result.PreliminaryDiagnoses) == 0 {
		b.WriteString("• Ninguno identificado\n")
	}
	for _, d := range result.PreliminaryDiagnoses {
		fmt.Fprintf(&b, "• %s (Confianza: %s, Severidad: %s)\n", d.Condition, d.DisplayConfidence(), d.Severity)
		if len(d.KeyIndicators) > 0 {
			fmt.Fprintf(&b, "  Indicadores: %s\n", strings.Join(d.KeyIndicators, ", "))
		}
	}
	b.WriteString("\n")

	writeSection(&b, "Factores de Riesgo", result.RiskFactors)
	writeSection(&b, "Factores Protectores", result.ProtectiveFactors)
	writeSection(&b, "Recomendaciones", result.Recommendations)

	b.WriteString("Nota: Esta es una evaluación preliminar y no constituye un diagnóstico profesional.\n")
	fmt.Fprintf(&b, "Fecha de evaluación: %s\n", reportDate(result.Timestamp))
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "%s:\n", title)
	if len(items) == 0 {
		b.WriteString("• Ninguno identificado\n")
	}
	for _, it := range items {
		fmt.Fprintf(b, "• %s\n", it)
	}
	b.WriteString("\n")
}

func reportDate(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("02/01/2006 15:04")
}
