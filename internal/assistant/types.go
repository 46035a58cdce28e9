package assistant

import (
	"encoding/json"
	"fmt"
	"time"

	"ambuassist/internal/types"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// HistoryMessage is one stored turn.
type HistoryMessage struct {
	Role      types.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
}

// Time parses Timestamp, returning the zero time when it is missing or malformed.
func (m HistoryMessage) Time() time.Time {
	return ParseTimestamp(m.Timestamp)
}

// ParseTimestamp reads the service's ISO timestamps, with or without zone.
// It returns the zero time when s is missing or malformed.
func ParseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type historyEntry struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
	Scope     string  `json:"ambulatorio"`
}

// ActionResult is the structured side of a chat response.
type ActionResult struct {
	NavigateTo       string         `json:"navigate_to,omitempty"`
	DocumentURL      string         `json:"document_url,omitempty"`
	DocumentEndpoint string         `json:"document_endpoint,omitempty"`
	Filename         string         `json:"filename,omitempty"`
	Patient          *types.Patient `json:"patient,omitempty"`
	ActionType       string         `json:"action_type,omitempty"`
}

// HasDocument reports whether the action offers a download.
func (a *ActionResult) HasDocument() bool {
	return a != nil && (a.DocumentURL != "" || a.DocumentEndpoint != "")
}

// ChatResponse is the reply to a chat turn.
type ChatResponse struct {
	Response  string        `json:"response"`
	SessionID string        `json:"session_id"`
	Action    *ActionResult `json:"action_performed,omitempty"`
}

// ExtractResult lists the candidates read from an image.
type ExtractResult struct {
	Patients []types.Patient `json:"patients"`
	Count    int             `json:"count"`
}

type batchPatient struct {
	FirstName string         `json:"nome"`
	LastName  string         `json:"cognome"`
	Category  types.Category `json:"tipo"`
	Scope     string         `json:"ambulatorio"`
}

type batchRequest struct {
	Patients []batchPatient `json:"patients"`
}

// BatchResult reports a batch create.
type BatchResult struct {
	Created Count `json:"created"`
	Errors  Count `json:"errors"`
}

// Count decodes either a number or a list (counting its items).
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = Count(n)
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err == nil {
		*c = Count(len(items))
		return nil
	}
	return fmt.Errorf("count: unexpected value %s", string(b))
}
