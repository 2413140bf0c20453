// Package generator asks an OpenAI-compatible chat endpoint for the analysis
// payload. The payload is validated downstream like any other source.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"

	"mental-triage/internal/common/config"
	apperrors "mental-triage/internal/common/errors"
	httpclient "mental-triage/internal/common/http"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/common/observability"
	"mental-triage/internal/models"
	"mental-triage/internal/triage/analysis"
	"mental-triage/internal/triage/catalog"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1500
	defaultTimeout   = 30 * time.Second
)

type Generator struct {
	client    openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	catalog   *catalog.Catalog
	schema    map[string]interface{}
	logger    logger.Logger
}

func New(cfg config.GeneratorConfig, cat *catalog.Catalog, log logger.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewValidationError("generator.api_key", "API key is required")
	}

	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(httpclient.NewClient(timeout)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	g := &Generator{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		catalog:   cat,
		schema:    analysis.ResultSchemaDocument(),
		logger:    log.WithFields(map[string]interface{}{"component": "generator"}),
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.catalog == nil {
		g.catalog = catalog.Default()
	}
	return g, nil
}

func (g *Generator) Name() string { return "generator" }

// Generate returns the decoded JSON object from the model reply.
func (g *Generator) Generate(ctx context.Context, responses models.Responses) (payload map[string]interface{}, err error) {
	ctx, span := observability.StartSpan(ctx, "generator.generate",
		attribute.String("gen_ai.request.model", g.model),
		attribute.Int("gen_ai.request.max_tokens", g.maxTokens),
	)
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(g.catalog, responses)),
		},
		MaxTokens: openai.Int(int64(g.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "triage_analysis",
					Description: openai.String("Preliminary mental health triage analysis"),
					Schema:      g.schema,
					Strict:      openai.Bool(false),
				},
			},
		},
		Temperature: openai.Float(0.2),
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.NewGeneratorTimeoutError(err)
		}
		return nil, apperrors.NewGeneratorFailedError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewGeneratorFailedError(errors.New("no choices in response"))
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
	)
	g.logger.Debug("generator completed", map[string]interface{}{
		"model":            g.model,
		"durationMs":       time.Since(start).Milliseconds(),
		"promptTokens":     resp.Usage.PromptTokens,
		"completionTokens": resp.Usage.CompletionTokens,
	})

	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &payload); err != nil {
		return nil, apperrors.NewValidationError("payload", "generator reply is not a JSON object")
	}
	return payload, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
