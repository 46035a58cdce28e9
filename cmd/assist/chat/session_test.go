package chat

import (
	"testing"

	"ambuassist/internal/assistant"
	"ambuassist/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(ids ...string) []types.SessionSummary {
	out := make([]types.SessionSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.SessionSummary{ID: id, LastMessage: "messaggio " + id, LastTimestamp: "2026-01-15T10:30:00"})
	}
	return out
}

func TestRoster_OpenListsSessions(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("a", "b")

	m = press(t, m, alt('h'))

	assert.Equal(t, ListView, m.viewMode)
	assert.Len(t, m.list.Items(), 2)
	assert.Equal(t, roster("a", "b"), env.cache.roster(testScope))

	m = press(t, m, keyEsc)
	assert.Equal(t, ChatView, m.viewMode)
}

func TestRoster_LoadInstallsConversation(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("s2")
	env.backend.history["s2"] = []assistant.HistoryMessage{
		{Role: types.RoleUser, Content: "ciao", Timestamp: "2026-01-15T10:30:00"},
		{Role: "system", Content: "Buongiorno!", Timestamp: "2026-01-15T10:30:02"},
	}

	m = press(t, m, alt('1')) // a workflow in progress is dropped by the load
	require.True(t, m.state.Workflow.Active())
	epoch := m.state.Epoch

	m = press(t, m, alt('h'))
	m = press(t, m, keyEnter)

	assert.Equal(t, ChatView, m.viewMode)
	assert.Equal(t, "s2", m.state.ID)
	assert.Greater(t, m.state.Epoch, epoch)
	assert.False(t, m.state.Workflow.Active())

	msgs := m.state.Timeline.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)

	// The loaded id is used by the next exchange.
	m = submit(t, m, "e poi?")
	calls := env.backend.chats()
	require.Len(t, calls, 1)
	assert.Equal(t, "s2", calls[0].SessionID)
	assert.Equal(t, "s2", m.state.ID)
}

func TestRoster_EmptyHistoryKeepsState(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("vuota")

	m = submit(t, m, "ciao")
	before := m.state.Timeline.Len()

	m = press(t, m, alt('h'))
	m = press(t, m, keyEnter)

	assert.Equal(t, EmptySessionNotice, m.notice)
	assert.Equal(t, before, m.state.Timeline.Len())
	assert.Equal(t, "sess-1", m.state.ID)
}

func TestRoster_LoadError(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("x")
	env.backend.historyErr = &assistant.RemoteError{Op: "history", Status: 500}

	m = press(t, m, alt('h'))
	m = press(t, m, keyEnter)

	assert.Equal(t, LoadErrorNotice, m.notice)
	assert.Equal(t, "", m.state.ID)
}

func TestRoster_SupersededLoadIgnored(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.history["old"] = []assistant.HistoryMessage{{Role: types.RoleUser, Content: "vecchia"}}
	env.backend.history["new"] = []assistant.HistoryMessage{{Role: types.RoleUser, Content: "nuova"}}

	m, first, _ := m.loadSession("old")
	m, second, _ := m.loadSession("new")

	m = settle(t, m, second)
	m = settle(t, m, first)

	assert.Equal(t, "new", m.state.ID)
	last, _ := m.state.Timeline.Last()
	assert.Equal(t, "nuova", last.Content)
}

func TestRoster_DeleteActiveStartsNewChat(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("sess-1", "sess-2")

	m = submit(t, m, "ciao")
	require.Equal(t, "sess-1", m.state.ID)

	m = press(t, m, alt('h'))
	m = press(t, m, keyAltDelete)

	assert.Equal(t, []string{"sess-1"}, env.backend.deleted)
	assert.Equal(t, "", m.state.ID)
	assert.Equal(t, 0, m.state.Timeline.Len())
	assert.Equal(t, DeletedNotice, m.notice)
	if diff := cmp.Diff(roster("sess-2"), m.state.Roster); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(roster("sess-2"), env.cache.roster(testScope)); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
}

func TestRoster_DeleteDeduplicated(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)

	m, first, _ := m.deleteSession("x")
	m, second, _ := m.deleteSession("x")
	assert.Nil(t, second)

	settle(t, m, first)
	assert.Equal(t, []string{"x"}, env.backend.deleted)
}

func TestRoster_DeleteFailureKeepsSession(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("a")
	env.backend.deleteErr = &assistant.RemoteError{Op: "delete", Status: 404}

	m = press(t, m, alt('h'))
	m = press(t, m, keyAltDelete)

	assert.Equal(t, DeleteErrorNotice, m.notice)
	assert.Len(t, m.state.Roster, 1)
}

func TestRoster_ClearHistory(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("a", "b")

	m = submit(t, m, "ciao")
	m = press(t, m, alt('x'))

	assert.Equal(t, 1, env.backend.clears)
	assert.Empty(t, m.state.Roster)
	assert.Equal(t, "", m.state.ID)
	assert.Equal(t, 0, m.state.Timeline.Len())
	assert.Equal(t, HistoryClearedNotice, m.notice)
	assert.Empty(t, env.cache.roster(testScope))
}

func TestRoster_OfflineFallsBackToCache(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.cache.rosters[testScope] = roster("cached")
	env.backend.listErr = errOffline

	m = press(t, m, alt('h'))

	assert.Equal(t, OfflineCacheNotice, m.notice)
	assert.Equal(t, roster("cached"), m.state.Roster)
}

func TestRoster_RemoteErrorKeepsRosterSilently(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = roster("a")
	m = press(t, m, alt('h'))
	m = press(t, m, keyEsc)

	env.backend.listErr = &assistant.RemoteError{Op: "sessions", Status: 503}
	m.notice = ""
	m = press(t, m, alt('h'))

	assert.Equal(t, "", m.notice)
	assert.Equal(t, roster("a"), m.state.Roster)
}

func TestNewChat_KeepsMemory(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)
	m.state.Memory.Observe(&patientRossi, "open")
	m = submit(t, m, "ciao")

	m = press(t, m, alt('n'))

	assert.Equal(t, "", m.state.ID)
	assert.Equal(t, 0, m.state.Timeline.Len())
	require.NotNil(t, m.state.Memory.LastEntity)
	assert.Equal(t, "Mario Rossi", m.state.Memory.LastEntity.DisplayName())
}
