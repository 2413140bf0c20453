package conversation

import (
	"sort"

	"mental-triage/internal/models"
)

// State of a conversation session.
type State string

const (
	StateInit       State = "INIT"
	StateInProgress State = "IN_PROGRESS"
	StateComplete   State = "COMPLETE"
	StateAborted    State = "ABORTED"
)

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Turn is one chat history entry.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// session is owned by exactly one Controller.
type session struct {
	responses      models.Responses
	history        []Turn
	covered        map[string]bool
	implicit       map[string]bool
	state          State
	analysis       *models.AnalysisResult
	conversationID string
}

func newSession() session {
	return session{
		covered:  make(map[string]bool),
		implicit: make(map[string]bool),
		state:    StateInit,
	}
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	SessionID      string                 `json:"session_id"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	State          State                  `json:"status"`
	Responses      models.Responses       `json:"responses"`
	History        []Turn                 `json:"history"`
	Covered        []string               `json:"covered"`
	Implicit       []string               `json:"implicit,omitempty"`
	Analysis       *models.AnalysisResult `json:"analysis,omitempty"`
}

func (s *session) snapshot(sessionID string) Snapshot {
	history := make([]Turn, len(s.history))
	copy(history, s.history)
	return Snapshot{
		SessionID:      sessionID,
		ConversationID: s.conversationID,
		State:          s.state,
		Responses:      s.responses.Clone(),
		History:        history,
		Covered:        sortedKeys(s.covered),
		Implicit:       sortedKeys(s.implicit),
		Analysis:       s.analysis,
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
