// Package session holds the state aggregate of one chat widget: the active
// conversation, its timeline and every piece of in-progress interaction state.
// All mutation happens on the event loop; nothing here is locked.
package session

import (
	"ambuassist/internal/assistant"
	"ambuassist/internal/drag"
	"ambuassist/internal/extraction"
	"ambuassist/internal/logging"
	"ambuassist/internal/memory"
	"ambuassist/internal/timeline"
	"ambuassist/internal/types"
	"ambuassist/internal/workflow"
)

// State is the session-scoped aggregate.
type State struct {
	Scope string

	// ID is empty until the first successful exchange, then fixed for the
	// lifetime of the timeline.
	ID string

	// Epoch changes whenever the timeline is replaced. Remote replies carry
	// the epoch they were issued under; a mismatch means the reply is stale.
	Epoch uint64

	Timeline   *timeline.Timeline
	Workflow   workflow.RunState
	Extraction extraction.Pending
	Memory     memory.Context
	Drag       *drag.Controller

	Roster []types.SessionSummary
}

// New returns an empty session for scope.
func New(scope string, d *drag.Controller) *State {
	return &State{
		Scope:    scope,
		Timeline: timeline.New(),
		Drag:     d,
	}
}

// StartNew begins a fresh conversation locally. Nothing is deleted remotely.
// Context memory survives; only an explicit clear forgets it.
func (s *State) StartNew() {
	s.replace("", nil)
	logging.Session("started new conversation (epoch=%d)", s.Epoch)
}

// Install makes a loaded conversation current, replacing the timeline and
// dropping any workflow or extraction in progress.
func (s *State) Install(id string, msgs []timeline.Message) {
	s.replace(id, msgs)
	logging.Session("installed session %s with %d messages (epoch=%d)", id, len(msgs), s.Epoch)
}

func (s *State) replace(id string, msgs []timeline.Message) {
	s.ID = id
	s.Epoch++
	s.Timeline.Replace(msgs)
	workflow.Abandon(&s.Workflow)
	s.Extraction.Discard()
}

// AssignID records the id returned by the first successful exchange. It
// never overwrites an existing id.
func (s *State) AssignID(id string) bool {
	if s.ID != "" || id == "" {
		return false
	}
	s.ID = id
	logging.Session("session id assigned: %s", id)
	return true
}

// IsCurrent reports whether a reply issued under epoch still belongs to the
// visible timeline.
func (s *State) IsCurrent(epoch uint64) bool {
	return epoch == s.Epoch
}

// SetRoster replaces the roster.
func (s *State) SetRoster(r []types.SessionSummary) {
	s.Roster = append([]types.SessionSummary(nil), r...)
}

// RemoveFromRoster drops id from the roster. If id is the active session a
// new conversation is started. It reports whether that happened.
func (s *State) RemoveFromRoster(id string) bool {
	kept := s.Roster[:0]
	for _, r := range s.Roster {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.Roster = kept

	if id != "" && id == s.ID {
		s.StartNew()
		return true
	}
	return false
}

// ClearRoster empties the roster and starts a new conversation.
func (s *State) ClearRoster() {
	s.Roster = nil
	s.StartNew()
}

// FromHistory converts stored turns into timeline messages. Roles other
// than user render as assistant turns.
func FromHistory(msgs []assistant.HistoryMessage) []timeline.Message {
	out := make([]timeline.Message, 0, len(msgs))
	for _, m := range msgs {
		role := types.RoleAssistant
		if m.Role == types.RoleUser {
			role = types.RoleUser
		}
		out = append(out, timeline.Message{Role: role, Content: m.Content, Time: m.Time()})
	}
	return out
}
