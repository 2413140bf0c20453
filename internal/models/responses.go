package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Answer is one question-id → raw answer pair.
type Answer struct {
	QuestionID string
	Text       string
}

// Responses maps question ids to raw answers, keeping insertion order.
// A question id appears at most once.
type Responses []Answer

// Get returns the answer recorded for a question id.
func (r Responses) Get(id string) (string, bool) {
	for _, a := range r {
		if a.QuestionID == id {
			return a.Text, true
		}
	}
	return "", false
}

// Has reports whether the question id has an answer.
func (r Responses) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Set records an answer. An existing id is overwritten in place so the
// original ask order is kept.
func (r *Responses) Set(id, text string) {
	for i := range *r {
		if (*r)[i].QuestionID == id {
			(*r)[i].Text = text
			return
		}
	}
	*r = append(*r, Answer{QuestionID: id, Text: text})
}

// IDs returns the question ids in ask order.
func (r Responses) IDs() []string {
	ids := make([]string, len(r))
	for i, a := range r {
		ids[i] = a.QuestionID
	}
	return ids
}

// Clone returns an independent copy.
func (r Responses) Clone() Responses {
	if r == nil {
		return nil
	}
	out := make(Responses, len(r))
	copy(out, r)
	return out
}

// MarshalJSON writes a JSON object whose keys follow ask order.
func (r Responses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.QuestionID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of strings, keeping document order.
func (r *Responses) UnmarshalJSON(data []byte) error {
	*r = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("responses: expected object, got %v", tok)
	}

	out := Responses{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("responses: expected string key, got %v", keyTok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("responses: value for %q: %w", key, err)
		}
		out.Set(key, text)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}
