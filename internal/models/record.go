package models

import (
	"encoding/json"
	"time"
)

// SchemaVersion is written into metadata.version for new records.
const SchemaVersion = "1.0"

// ConversationRecord is the persisted form of a finished conversation.
type ConversationRecord struct {
	Metadata     Metadata     `json:"metadata"`
	Conversation Conversation `json:"conversation"`
}

type Metadata struct {
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
	Version        string `json:"version"`
}

// Time parses the ISO-8601 timestamp. Zero time when unparsable.
func (m Metadata) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Conversation holds the answers and, once analysed, the result.
// A missing analysis is persisted as an empty object.
type Conversation struct {
	Responses Responses       `json:"responses"`
	Analysis  *AnalysisResult `json:"analysis"`
}

func (c Conversation) MarshalJSON() ([]byte, error) {
	wire := struct {
		Responses Responses   `json:"responses"`
		Analysis  interface{} `json:"analysis"`
	}{Responses: c.Responses, Analysis: struct{}{}}
	if c.Analysis != nil {
		wire.Analysis = c.Analysis
	}
	return json.Marshal(wire)
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	var wire struct {
		Responses Responses       `json:"responses"`
		Analysis  json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Responses = wire.Responses
	c.Analysis = nil

	if len(wire.Analysis) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(wire.Analysis, &fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	var result AnalysisResult
	if err := json.Unmarshal(wire.Analysis, &result); err != nil {
		return err
	}
	c.Analysis = &result
	return nil
}

// Summary is the history view of a stored conversation.
type Summary struct {
	ID           string       `json:"id"`
	Date         string       `json:"date"`
	MainConcern  string       `json:"main_concern"`
	UrgencyLevel UrgencyLevel `json:"urgency_level,omitempty"`
}

// Summarize builds the history entry for a record.
func (r *ConversationRecord) Summarize() Summary {
	s := Summary{
		ID:   r.Metadata.ConversationID,
		Date: r.Metadata.Timestamp,
	}
	if t := r.Metadata.Time(); !t.IsZero() {
		s.Date = t.Format("2006-01-02 15:04")
	}
	s.MainConcern, _ = r.Conversation.Responses.Get("main_concern")
	if r.Conversation.Analysis != nil {
		s.UrgencyLevel = r.Conversation.Analysis.UrgencyLevel
	}
	return s
}
