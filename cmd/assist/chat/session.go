package chat

import (
	"ambuassist/internal/assistant"
	"ambuassist/internal/logging"
	"ambuassist/internal/session"
	"ambuassist/internal/types"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================
// Roster listing, loading, deletion and clearing. The remote service is
// authoritative; the roster cache only answers when it is unreachable.

// Notices of the session operations.
const (
	OfflineNotice        = "Servizio non raggiungibile"
	OfflineCacheNotice   = "Servizio non raggiungibile: elenco chat dalla cache"
	LoadErrorNotice      = "Errore nel caricamento della chat"
	EmptySessionNotice   = "Questa chat non contiene messaggi"
	DeletedNotice        = "Chat eliminata"
	DeleteErrorNotice    = "Errore nell'eliminazione"
	HistoryClearedNotice = "Cronologia eliminata"
	NewChatNotice        = "Nuova chat"
)

// listSessions fetches the roster, falling back to the cache on connectivity failure.
func (m Model) listSessions() tea.Cmd {
	backend, cache, scope := m.backend, m.cache, m.state.Scope
	return func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()

		sessions, err := backend.ListSessions(ctx)
		if err == nil {
			return sessionsLoadedMsg{sessions: sessions}
		}
		if assistant.IsConnectivity(err) && cache != nil {
			cached, cerr := cache.Roster(scope)
			if cerr == nil {
				return sessionsLoadedMsg{sessions: cached, err: err, fromCache: true}
			}
			logging.Get(logging.CategoryStore).Warn("roster cache unavailable: %v", cerr)
		}
		return sessionsLoadedMsg{err: err}
	}
}

// handleSessionsLoaded installs a fresh roster. Connectivity failures are
// reported; any other failure is logged and the stale roster is kept.
func (m Model) handleSessionsLoaded(msg sessionsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if !assistant.IsConnectivity(msg.err) {
			logging.Get(logging.CategorySession).Warn("list sessions failed (status %d): %v", assistant.StatusOf(msg.err), msg.err)
			return m, nil
		}
		notice := OfflineNotice
		if msg.fromCache {
			m.state.SetRoster(msg.sessions)
			m.refreshRosterList()
			notice = OfflineCacheNotice
		}
		return m, m.setNotice(notice)
	}

	m.state.SetRoster(msg.sessions)
	m.refreshRosterList()
	logging.SessionDebug("roster loaded: %d sessions", len(msg.sessions))
	return m, m.persistRoster()
}

// persistRoster writes the current roster to the cache.
func (m Model) persistRoster() tea.Cmd {
	cache := m.cache
	if cache == nil {
		return nil
	}
	scope := m.state.Scope
	roster := append([]types.SessionSummary(nil), m.state.Roster...)
	return func() tea.Msg {
		if err := cache.ReplaceRoster(scope, roster); err != nil {
			logging.Get(logging.CategoryStore).Warn("cannot cache roster: %v", err)
		}
		return nil
	}
}

func (m *Model) refreshRosterList() {
	items := make([]list.Item, 0, len(m.state.Roster))
	for _, s := range m.state.Roster {
		date := ""
		if t := assistant.ParseTimestamp(s.LastTimestamp); !t.IsZero() {
			date = t.Local().Format("02/01/2006 15:04")
		}
		items = append(items, sessionItem{
			id:     s.ID,
			date:   date,
			desc:   s.LastMessage,
			active: s.ID != "" && s.ID == m.state.ID,
		})
	}
	m.list.SetItems(items)
}

func (m Model) openRoster() (Model, tea.Cmd, bool) {
	m.viewMode = ListView
	m.refreshRosterList()
	return m, m.listSessions(), true
}

// startNewChat clears the timeline locally; nothing is deleted remotely.
func (m Model) startNewChat() (Model, tea.Cmd, bool) {
	m.state.StartNew()
	m.isLoading = false
	m.selectedOption = 0
	m.refreshRosterList()
	m.refreshViewport()
	return m, m.setNotice(NewChatNotice), true
}

// loadSession fetches a conversation. A later load supersedes an earlier one.
func (m Model) loadSession(id string) (Model, tea.Cmd, bool) {
	m.loadingID = id
	backend := m.backend
	return m, func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		msgs, err := backend.LoadHistory(ctx, id)
		return historyLoadedMsg{id: id, msgs: msgs, err: err}
	}, true
}

// handleHistoryLoaded installs the loaded conversation. An empty history
// leaves the current state untouched.
func (m Model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.loadingID {
		logging.SessionDebug("ignoring superseded history load for %s", msg.id)
		return m, nil
	}
	m.loadingID = ""

	if msg.err != nil {
		logging.Get(logging.CategorySession).Error("load history %s failed: %v", msg.id, msg.err)
		return m, m.setNotice(LoadErrorNotice)
	}
	if len(msg.msgs) == 0 {
		m.viewMode = ChatView
		return m, m.setNotice(EmptySessionNotice)
	}

	m.state.Install(msg.id, session.FromHistory(msg.msgs))
	m.isLoading = false
	m.selectedOption = 0
	m.viewMode = ChatView
	m.refreshRosterList()
	m.refreshViewport()
	return m, nil
}

func (m Model) deleteSession(id string) (Model, tea.Cmd, bool) {
	if m.deletingIDs[id] {
		return m, nil, true
	}
	m.deletingIDs[id] = true
	backend := m.backend
	return m, func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		return sessionDeletedMsg{id: id, err: backend.DeleteSession(ctx, id)}
	}, true
}

// handleSessionDeleted drops the session from the roster; deleting the
// active conversation starts a new one.
func (m Model) handleSessionDeleted(msg sessionDeletedMsg) (tea.Model, tea.Cmd) {
	delete(m.deletingIDs, msg.id)
	if msg.err != nil {
		logging.Get(logging.CategorySession).Error("delete session %s failed: %v", msg.id, msg.err)
		return m, m.setNotice(DeleteErrorNotice)
	}

	if m.state.RemoveFromRoster(msg.id) {
		m.isLoading = false
		m.refreshViewport()
	}
	m.refreshRosterList()

	cmds := []tea.Cmd{m.setNotice(DeletedNotice)}
	if cache, scope := m.cache, m.state.Scope; cache != nil {
		cmds = append(cmds, func() tea.Msg {
			if err := cache.Remove(scope, msg.id); err != nil {
				logging.Get(logging.CategoryStore).Warn("cannot uncache session %s: %v", msg.id, err)
			}
			return nil
		})
	}
	return m, tea.Batch(cmds...)
}

func (m Model) clearHistory() (Model, tea.Cmd, bool) {
	backend := m.backend
	return m, func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		return historyClearedMsg{err: backend.ClearHistory(ctx)}
	}, true
}

// handleHistoryCleared empties the roster and starts a new conversation.
func (m Model) handleHistoryCleared(msg historyClearedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.Get(logging.CategorySession).Error("clear history failed: %v", msg.err)
		return m, m.setNotice(DeleteErrorNotice)
	}

	m.state.ClearRoster()
	m.isLoading = false
	m.selectedOption = 0
	m.refreshRosterList()
	m.refreshViewport()

	cmds := []tea.Cmd{m.setNotice(HistoryClearedNotice)}
	if cache, scope := m.cache, m.state.Scope; cache != nil {
		cmds = append(cmds, func() tea.Msg {
			if err := cache.Clear(scope); err != nil {
				logging.Get(logging.CategoryStore).Warn("cannot clear roster cache: %v", err)
			}
			return nil
		})
	}
	return m, tea.Batch(cmds...)
}
