// Package timeline is the ordered, append-only log of chat turns shown in the widget.
package timeline

import (
	"time"

	"ambuassist/internal/types"
)

// DocumentOffer is a downloadable document attached to an assistant reply.
// Exactly one of URL (absolute) or Endpoint (relative to the API base) is set.
type DocumentOffer struct {
	URL      string
	Endpoint string
	Filename string
}

// Message is a single turn. The optional attachments are owned by the message:
// Choices are the quick replies offered for the next user reply, Extracted and
// DefaultCategory describe an extraction awaiting confirmation. Retry holds the
// command re-sent when the user picks RetryLabel.
type Message struct {
	Role    types.Role
	Content string
	Time    time.Time

	Document        *DocumentOffer
	Choices         []string
	Retry           string
	Extracted       []types.Patient
	DefaultCategory types.Category
}

// RetryLabel is the quick reply offered after a failed send.
const RetryLabel = "Riprova"

// Timeline is an append-only message log. The only way to remove messages
// is to replace the whole log (session switch, new chat).
type Timeline struct {
	messages []Message
}

// New returns a timeline seeded with msgs (copied).
func New(msgs ...Message) *Timeline {
	t := &Timeline{}
	t.Replace(msgs)
	return t
}

// Append adds m at the end, stamping the time if it is zero.
func (t *Timeline) Append(m Message) {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	t.messages = append(t.messages, m)
}

// User appends a user turn.
func (t *Timeline) User(content string) {
	t.Append(Message{Role: types.RoleUser, Content: content})
}

// Assistant appends an assistant turn.
func (t *Timeline) Assistant(content string) {
	t.Append(Message{Role: types.RoleAssistant, Content: content})
}

// Replace installs msgs as the full log.
func (t *Timeline) Replace(msgs []Message) {
	t.messages = make([]Message, len(msgs))
	copy(t.messages, msgs)
}

// Len returns the number of messages.
func (t *Timeline) Len() int { return len(t.messages) }

// Messages returns a copy of the log in order.
func (t *Timeline) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recent message.
func (t *Timeline) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastAssistant returns the most recent assistant message.
func (t *Timeline) LastAssistant() (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == types.RoleAssistant {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// PendingChoices returns the quick replies offered by the last message, if the
// last message is an assistant turn. A user reply consumes the offer.
func (t *Timeline) PendingChoices() []string {
	last, ok := t.Last()
	if !ok || last.Role != types.RoleAssistant {
		return nil
	}
	return last.Choices
}

// LastDocument returns the most recent document offer.
func (t *Timeline) LastDocument() (*DocumentOffer, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if d := t.messages[i].Document; d != nil {
			return d, true
		}
	}
	return nil, false
}
