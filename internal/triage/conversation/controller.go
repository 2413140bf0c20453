// Package conversation drives a triage session: question sequencing,
// answer binding, risk prioritization and the final analysis hand-off.
package conversation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/common/metrics"
	"mental-triage/internal/models"
	"mental-triage/internal/triage/catalog"
	"mental-triage/internal/triage/symptoms"
)

const (
	defaultMaxMessageLength = 1000
	answerSeparator         = " / "
)

// Analyzer turns the recorded answers into a validated result.
type Analyzer interface {
	Analyze(ctx context.Context, responses models.Responses) (*models.AnalysisResult, error)
}

// Store is the persistence contract the controller needs.
type Store interface {
	Save(ctx context.Context, record *models.ConversationRecord) (string, error)
	Load(ctx context.Context, id string) (*models.ConversationRecord, error)
}

// Notifier is told about ALTO results.
type Notifier interface {
	NotifyHighUrgency(ctx context.Context, conversationID string, result *models.AnalysisResult) error
}

// Deps wires a Controller.
type Deps struct {
	Catalog          *catalog.Catalog
	Risk             *symptoms.RiskMatcher
	Analyzer         Analyzer
	Store            Store
	Notifier         Notifier
	Logger           logger.Logger
	MaxMessageLength int
	SchemaVersion    string
	Clock            func() time.Time
}

// Reply is returned by Process.
type Reply struct {
	Message        string                 `json:"message"`
	State          State                  `json:"status"`
	Analysis       *models.AnalysisResult `json:"analysis,omitempty"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Warning        string                 `json:"warning,omitempty"`
}

// Controller owns one session. All methods are safe for concurrent use;
// calls on the same controller are serialized.
type Controller struct {
	mu         sync.Mutex
	id         string
	deps       Deps
	logger     logger.Logger
	session    session
	lastActive atomic.Int64
}

func NewController(id string, deps Deps) *Controller {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.MaxMessageLength <= 0 {
		deps.MaxMessageLength = defaultMaxMessageLength
	}
	if deps.SchemaVersion == "" {
		deps.SchemaVersion = models.SchemaVersion
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}

	c := &Controller{
		id:      id,
		deps:    deps,
		logger:  deps.Logger.WithFields(map[string]interface{}{"component": "conversation", "sessionId": id}),
		session: newSession(),
	}
	c.touch()
	return c
}

func (c *Controller) ID() string { return c.id }

// LastActive is readable without taking the controller lock.
func (c *Controller) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Controller) touch() {
	c.lastActive.Store(c.deps.Clock().UnixNano())
}

// Start resets the session and returns the opening message.
func (c *Controller) Start() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = newSession()
	c.session.state = StateInProgress
	c.session.history = append(c.session.history, Turn{Role: RoleAssistant, Text: OpeningMessage})
	c.touch()

	metrics.SessionsStarted.Inc()
	c.logger.Info("conversation started", nil)
	return OpeningMessage
}

// Process handles one user message.
func (c *Controller) Process(ctx context.Context, message string) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if err := c.checkMessage(message); err != nil {
		metrics.MessagesProcessed.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}
	text := strings.TrimSpace(message)

	if exitWords[strings.ToLower(text)] {
		c.session.history = append(c.session.history,
			Turn{Role: RoleUser, Text: text},
			Turn{Role: RoleAssistant, Text: FarewellMessage})
		c.session.state = StateAborted
		metrics.MessagesProcessed.WithLabelValues(metrics.OutcomeAborted).Inc()
		c.logger.Info("conversation aborted by user", map[string]interface{}{"answered": len(c.session.responses)})
		return &Reply{Message: FarewellMessage, State: StateAborted}, nil
	}

	lastAsked, asked := c.lastAskedQuestion()
	c.session.history = append(c.session.history, Turn{Role: RoleUser, Text: text})

	if asked && !c.session.covered[lastAsked.ID] {
		c.session.responses.Set(lastAsked.ID, c.explicitAnswer(lastAsked.ID, text))
		c.session.covered[lastAsked.ID] = true
		delete(c.session.implicit, lastAsked.ID)
	}

	if c.deps.Risk.ContainsRiskKeyword(text) && !c.session.responses.Has(catalog.SelfHarm) {
		c.session.responses.Set(catalog.SelfHarm, text)
		c.session.implicit[catalog.SelfHarm] = true
		c.logger.Warn("risk vocabulary detected, self harm question prioritized", nil)
	}

	if next, ok := c.nextQuestion(lastAsked.Text); ok {
		c.session.history = append(c.session.history, Turn{Role: RoleAssistant, Text: next.Text})
		metrics.MessagesProcessed.WithLabelValues(metrics.OutcomeQuestion).Inc()
		return &Reply{Message: next.Text, State: StateInProgress}, nil
	}

	return c.finish(ctx)
}

// explicitAnswer keeps an implicit disclosure that no other answer holds, so
// it still reaches the analysis and the stored record.
func (c *Controller) explicitAnswer(id, text string) string {
	if !c.session.implicit[id] {
		return text
	}
	prior, _ := c.session.responses.Get(id)
	if prior == "" || prior == text {
		return text
	}
	for _, a := range c.session.responses {
		if a.QuestionID != id && a.Text == prior {
			return text
		}
	}
	return prior + answerSeparator + text
}

// checkMessage rejects a message before any state is touched.
func (c *Controller) checkMessage(message string) error {
	if c.session.state != StateInProgress {
		return apperrors.NewInvalidInputError(MsgInactive)
	}
	if strings.TrimSpace(message) == "" {
		return apperrors.NewInvalidInputError(MsgEmpty)
	}
	if utf8.RuneCountInString(message) > c.deps.MaxMessageLength {
		return apperrors.NewInvalidInputError(MsgTooLong)
	}
	if !utf8.ValidString(message) {
		return apperrors.NewInvalidInputError(MsgInvalid)
	}
	for _, r := range message {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return apperrors.NewInvalidInputError(MsgInvalid)
		}
	}
	return nil
}

// lastAskedQuestion finds the question the latest assistant turn asked.
func (c *Controller) lastAskedQuestion() (catalog.Question, bool) {
	for i := len(c.session.history) - 1; i >= 0; i-- {
		turn := c.session.history[i]
		if turn.Role != RoleAssistant {
			continue
		}
		return c.deps.Catalog.FindByText(turn.Text)
	}
	return catalog.Question{}, false
}

// nextQuestion picks the forced self harm question when risk vocabulary is on
// record, else the first uncovered question in canonical order. A candidate
// with the same text as the previous question is skipped.
func (c *Controller) nextQuestion(previousText string) (catalog.Question, bool) {
	var candidates []catalog.Question

	if !c.session.covered[catalog.SelfHarm] && c.riskOnRecord() {
		if q, ok := c.deps.Catalog.Get(catalog.SelfHarm); ok {
			candidates = append(candidates, q)
		}
	}
	for _, q := range c.deps.Catalog.Questions() {
		if !c.session.covered[q.ID] {
			candidates = append(candidates, q)
		}
	}

	for _, q := range candidates {
		if q.Text == previousText {
			continue
		}
		return q, true
	}
	return catalog.Question{}, false
}

func (c *Controller) riskOnRecord() bool {
	texts := make([]string, 0, len(c.session.responses))
	for _, a := range c.session.responses {
		texts = append(texts, a.Text)
	}
	return c.deps.Risk.AnyRiskKeyword(texts...)
}

// finish runs the analysis. On failure the session stays IN_PROGRESS so the
// next message retries the same transition.
func (c *Controller) finish(ctx context.Context) (*Reply, error) {
	responses := c.session.responses.Clone()

	result, err := c.deps.Analyzer.Analyze(ctx, responses)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues(metrics.OutcomeFailed).Inc()
		c.logger.Error("analysis failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	c.session.analysis = result
	c.session.state = StateComplete
	c.session.history = append(c.session.history, Turn{Role: RoleAssistant, Text: ClosingMessage})

	metrics.MessagesProcessed.WithLabelValues(metrics.OutcomeAnalysis).Inc()
	metrics.AnalysesCompleted.WithLabelValues(string(result.UrgencyLevel)).Inc()

	reply := &Reply{Message: ClosingMessage, State: StateComplete, Analysis: result}

	record := &models.ConversationRecord{
		Metadata: models.Metadata{Version: c.deps.SchemaVersion},
		Conversation: models.Conversation{
			Responses: responses,
			Analysis:  result,
		},
	}
	id, err := c.deps.Store.Save(ctx, record)
	if err != nil {
		reply.Warning = StorageWarning
		c.logger.Error("conversation not persisted", map[string]interface{}{"error": err.Error()})
	} else {
		reply.ConversationID = id
		c.session.conversationID = id
	}

	if result.UrgencyLevel == models.UrgencyAlto && c.deps.Notifier != nil {
		if err := c.deps.Notifier.NotifyHighUrgency(ctx, id, result); err != nil {
			c.logger.Error("high urgency notification failed", map[string]interface{}{"error": err.Error()})
		}
	}

	c.logger.Info("conversation completed", map[string]interface{}{
		"urgencyLevel":   string(result.UrgencyLevel),
		"conversationId": id,
	})
	return reply, nil
}

// End marks an in-progress session aborted. Stored data is not touched.
func (c *Controller) End() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.session.state == StateInProgress {
		c.session.state = StateAborted
		c.session.history = append(c.session.history, Turn{Role: RoleAssistant, Text: FarewellMessage})
		c.logger.Info("conversation ended", nil)
	}
	return FarewellMessage
}

// Load replaces the session with a stored conversation, inactive.
func (c *Controller) Load(ctx context.Context, conversationID string) (*Snapshot, error) {
	record, err := c.deps.Store.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	s := newSession()
	s.responses = record.Conversation.Responses.Clone()
	for _, a := range s.responses {
		s.covered[a.QuestionID] = true
		s.history = append(s.history,
			Turn{Role: RoleAssistant, Text: c.deps.Catalog.Text(a.QuestionID)},
			Turn{Role: RoleUser, Text: a.Text})
	}
	s.analysis = record.Conversation.Analysis
	s.conversationID = record.Metadata.ConversationID
	s.state = StateAborted
	if s.analysis != nil {
		s.state = StateComplete
	}
	c.session = s

	snap := c.session.snapshot(c.id)
	return &snap, nil
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.snapshot(c.id)
}

// Active reports whether the session accepts messages.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.state == StateInProgress
}
