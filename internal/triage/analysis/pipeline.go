package analysis

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/common/metrics"
	"mental-triage/internal/common/observability"
	"mental-triage/internal/models"
)

// Pipeline runs a Source and passes its payload through the Validator.
type Pipeline struct {
	source    Source
	validator *Validator
	logger    logger.Logger
}

func NewPipeline(source Source, validator *Validator, log logger.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		validator: validator,
		logger:    log.WithFields(map[string]interface{}{"component": "analysis", "source": source.Name()}),
	}
}

// Analyze never returns a partial result.
func (p *Pipeline) Analyze(ctx context.Context, responses models.Responses) (result *models.AnalysisResult, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "analysis.analyze",
		attribute.String("analysis.source", p.source.Name()),
		attribute.Int("analysis.answers", len(responses)),
	)
	defer func() {
		metrics.AnalysisDuration.WithLabelValues(p.source.Name()).Observe(time.Since(start).Seconds())
		if result != nil {
			span.SetAttributes(attribute.String("analysis.urgency_level", string(result.UrgencyLevel)))
		}
		observability.EndSpan(span, err)
	}()

	payload, err := p.source.Generate(ctx, responses)
	if err != nil {
		var stdErr *apperrors.StandardError
		if !errors.As(err, &stdErr) {
			err = apperrors.NewAnalysisError("analysis source failed", err)
		}
		p.logger.Error("analysis source failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	result, err = p.validator.Validate(payload)
	if err != nil {
		fields := map[string]interface{}{"error": err.Error()}
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Metadata["violations"] != nil {
			fields["violations"] = stdErr.Metadata["violations"]
		}
		p.logger.Warn("analysis payload rejected", fields)
		return nil, err
	}

	p.logger.Info("analysis completed", map[string]interface{}{
		"urgencyLevel": string(result.UrgencyLevel),
		"diagnoses":    len(result.PreliminaryDiagnoses),
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return result, nil
}
