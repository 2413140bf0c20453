package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mental-triage/internal/common/config"
	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
	"mental-triage/internal/triage/catalog"
)

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1767225600,
		"model":   "gpt-4o-mini",
		"choices": []interface{}{map[string]interface{}{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
		"usage": map[string]interface{}{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	}
}

type capture struct {
	path string
	body map[string]interface{}
}

func newServer(t *testing.T, status int, content string, delay time.Duration, got *capture) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.path = r.URL.Path
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &got.body)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(completion(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGenerator(t *testing.T, baseURL string, timeoutMs int) *Generator {
	g, err := New(config.GeneratorConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		Timeout:    timeoutMs,
		MaxRetries: 0,
	}, catalog.Default(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return g
}

func sampleResponses() models.Responses {
	r := models.Responses{}
	r.Set(catalog.MainConcern, "Me siento muy triste")
	r.Set(catalog.Duration, "Más de dos semanas")
	return r
}

const payloadJSON = `{"urgency_level":"medio","main_concerns":["Tristeza"],"preliminary_diagnoses":[],"risk_factors":[],"protective_factors":[],"recommendations":["Consultar"]}`

func TestGenerator_Generate(t *testing.T) {
	got := &capture{}
	srv := newServer(t, http.StatusOK, payloadJSON, 0, got)
	g := newTestGenerator(t, srv.URL+"/", 2000)

	payload, err := g.Generate(context.Background(), sampleResponses())

	require.NoError(t, err)
	assert.Equal(t, "medio", payload["urgency_level"])
	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "gpt-4o-mini", got.body["model"])

	messages, ok := got.body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]interface{})
	assert.Contains(t, user["content"], "Pregunta: "+catalog.Default().Text(catalog.MainConcern)+"\nRespuesta: Me siento muy triste")

	format := got.body["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
}

func TestGenerator_StripsCodeFence(t *testing.T) {
	srv := newServer(t, http.StatusOK, "```json\n"+payloadJSON+"\n```", 0, nil)
	g := newTestGenerator(t, srv.URL+"/", 2000)

	payload, err := g.Generate(context.Background(), sampleResponses())

	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Consultar"}, payload["recommendations"])
}

func TestGenerator_NonJSONReply(t *testing.T) {
	srv := newServer(t, http.StatusOK, "Lo siento, no puedo ayudar con eso.", 0, nil)
	g := newTestGenerator(t, srv.URL+"/", 2000)

	_, err := g.Generate(context.Background(), sampleResponses())

	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestGenerator_UpstreamError(t *testing.T) {
	srv := newServer(t, http.StatusInternalServerError, "", 0, nil)
	g := newTestGenerator(t, srv.URL+"/", 2000)

	_, err := g.Generate(context.Background(), sampleResponses())

	assert.ErrorIs(t, err, apperrors.ErrGeneratorFailed)
}

func TestGenerator_Timeout(t *testing.T) {
	srv := newServer(t, http.StatusOK, payloadJSON, 500*time.Millisecond, nil)
	g := newTestGenerator(t, srv.URL+"/", 50)

	_, err := g.Generate(context.Background(), sampleResponses())

	assert.ErrorIs(t, err, apperrors.ErrGeneratorTimeout)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(config.GeneratorConfig{}, nil, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestBuildPrompt_KeepsAskOrder(t *testing.T) {
	r := models.Responses{}
	r.Set(catalog.SelfHarm, "No")
	r.Set(catalog.MainConcern, "Ansiedad")

	prompt := BuildPrompt(catalog.Default(), r)

	selfHarm := strings.Index(prompt, catalog.Default().Text(catalog.SelfHarm))
	main := strings.Index(prompt, catalog.Default().Text(catalog.MainConcern))
	assert.True(t, selfHarm >= 0 && main > selfHarm)
	assert.True(t, strings.HasSuffix(prompt, "}"))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1} "))
}
