package chat

import (
	"fmt"
	"strings"
	"testing"

	"ambuassist/internal/assistant"
	"ambuassist/internal/memory"
	"ambuassist/internal/timeline"
	"ambuassist/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"
)

func TestView_WelcomeOnEmptyTimeline(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Come posso aiutarti") {
		t.Errorf("expected welcome text in view")
	}
	if !strings.Contains(view, "Azioni rapide") {
		t.Errorf("expected generic suggestions heading in view")
	}
}

func TestView_EverySuggestionVisible(t *testing.T) {
	t.Parallel()
	both := types.Patient{ID: "7", FirstName: "Anna", LastName: "Bianchi", Category: types.CategoryPICCMED}

	tests := []struct {
		name   string
		width  int
		entity *types.Patient
	}{
		{"generic menu", 120, nil},
		{"generic menu narrow terminal", 40, nil},
		{"entity menu", 120, &both},
		{"entity menu narrow terminal", 40, &both},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := NewTestModel(t)
			if tt.entity != nil {
				m.state.Memory.Observe(tt.entity, "open")
			}
			next, _ := m.Update(tea.WindowSizeMsg{Width: tt.width, Height: 40})
			m = next.(Model)

			view := ansi.Strip(m.View())
			suggestions := memory.Suggestions(m.state.Memory)
			if len(suggestions) != 5 {
				t.Fatalf("expected a full menu, got %d suggestions", len(suggestions))
			}
			for i, s := range suggestions {
				label := fmt.Sprintf("%d %s", i+1, s.Label)
				if !strings.Contains(view, label) {
					t.Errorf("suggestion %q missing from view:\n%s", label, view)
				}
			}
			if got := lipgloss.Height(m.View()); got > 40 {
				t.Errorf("view is %d rows, taller than the terminal", got)
			}
		})
	}
}

func TestView_NotReadyBeforeWindowSize(t *testing.T) {
	t.Parallel()
	m := InitChat(Deps{Backend: newFakeBackend()})
	defer m.Shutdown()
	if got := m.View(); got != "Inizializzazione..." {
		t.Errorf("View() = %q before the first WindowSizeMsg", got)
	}
}

func TestChat_SessionIDAssignedOnce(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	replies := []string{"sess-1", "sess-2"}
	env.backend.chatFn = func(message, sid string) (*assistant.ChatResponse, error) {
		id := replies[0]
		replies = replies[1:]
		return &assistant.ChatResponse{Response: "ok " + message, SessionID: id}, nil
	}

	m = submit(t, m, "ciao")
	m = submit(t, m, "come stai?")

	want := []chatCall{
		{Message: "ciao", SessionID: ""},
		{Message: "come stai?", SessionID: "sess-1"},
	}
	if diff := cmp.Diff(want, env.backend.chats()); diff != "" {
		t.Errorf("chat calls mismatch (-want +got):\n%s", diff)
	}
	if m.state.ID != "sess-1" {
		t.Errorf("session id = %q, want sess-1", m.state.ID)
	}
	if m.state.Timeline.Len() != 4 {
		t.Errorf("timeline has %d messages, want 4", m.state.Timeline.Len())
	}
}

func TestChat_EnterIgnoredWhileLoading(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)

	m.textarea.SetValue("primo")
	next, pending := m.Update(keyEnter)
	m = next.(Model)
	if !m.isLoading {
		t.Fatal("expected chat gate to be set")
	}

	m.textarea.SetValue("secondo")
	next, cmd := m.Update(keyEnter)
	m = next.(Model)
	if cmd != nil {
		t.Errorf("Enter while loading should not issue a command")
	}
	if m.textarea.Value() != "secondo" {
		t.Errorf("input should be kept while loading, got %q", m.textarea.Value())
	}

	m = settle(t, m, pending)
	if m.isLoading {
		t.Errorf("gate should be released after the reply")
	}
	if n := len(env.backend.chats()); n != 1 {
		t.Errorf("chat calls = %d, want 1", n)
	}
}

func TestChat_StaleReplyDropped(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)

	m.textarea.SetValue("quanti pazienti?")
	next, pending := m.Update(keyEnter)
	m = next.(Model)

	m = press(t, m, alt('n'))
	if m.state.Timeline.Len() != 0 {
		t.Fatalf("new chat should empty the timeline")
	}

	m = settle(t, m, pending)
	if m.state.Timeline.Len() != 0 {
		t.Errorf("stale reply was appended: %+v", m.state.Timeline.Messages())
	}
	if m.state.ID != "" {
		t.Errorf("stale reply assigned session id %q", m.state.ID)
	}
	if m.isLoading {
		t.Errorf("gate should be released by the stale reply")
	}
}

func TestChat_StaleReplyDoesNotReleaseNewerGate(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)

	m.textarea.SetValue("prima")
	next, first := m.Update(keyEnter)
	m = next.(Model)
	m = press(t, m, alt('n'))

	m.textarea.SetValue("seconda")
	next, second := m.Update(keyEnter)
	m = next.(Model)

	m = settle(t, m, first)
	if !m.isLoading {
		t.Errorf("an old reply must not release the gate of the newer call")
	}
	m = settle(t, m, second)
	if m.isLoading {
		t.Errorf("gate should be released by its own reply")
	}
}

func TestChat_FailureOffersRetry(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	fail := true
	env.backend.chatFn = func(message, sid string) (*assistant.ChatResponse, error) {
		if fail {
			return nil, errOffline
		}
		return &assistant.ChatResponse{Response: "Paziente trovato", SessionID: "s"}, nil
	}

	m = submit(t, m, "cerca paziente Rossi")
	last, _ := m.state.Timeline.Last()
	if last.Content != ConnectionErrorText {
		t.Fatalf("last message = %q, want the connection error", last.Content)
	}
	if diff := cmp.Diff([]string{timeline.RetryLabel}, last.Choices); diff != "" {
		t.Errorf("retry choice mismatch (-want +got):\n%s", diff)
	}
	if m.isLoading {
		t.Errorf("gate should be released after a failure")
	}

	fail = false
	m = press(t, m, keyEnter)
	calls := env.backend.chats()
	if len(calls) != 2 || calls[1].Message != "cerca paziente Rossi" {
		t.Errorf("retry should resend the same command, calls = %+v", calls)
	}
	last, _ = m.state.Timeline.Last()
	if last.Content != "Paziente trovato" {
		t.Errorf("last message = %q after retry", last.Content)
	}
}

func TestChat_ActionUpdatesMemoryAndNavigates(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.chatFn = func(message, sid string) (*assistant.ChatResponse, error) {
		return &assistant.ChatResponse{
			Response:  "Ho creato Mario Rossi.",
			SessionID: "s1",
			Action: &assistant.ActionResult{
				NavigateTo: "/pazienti/42",
				Patient:    &types.Patient{ID: "42", FirstName: "Mario", LastName: "Rossi", Category: types.CategoryPICC},
				ActionType: "create_patient",
			},
		}, nil
	}

	m = submit(t, m, "Crea paziente PICC Mario Rossi")

	if m.state.Memory.LastEntity == nil || m.state.Memory.LastEntity.DisplayName() != "Mario Rossi" {
		t.Fatalf("memory not updated: %+v", m.state.Memory)
	}
	if m.notice != NavigateNotice {
		t.Errorf("notice = %q, want %q", m.notice, NavigateNotice)
	}
	if diff := cmp.Diff([]string{"/pazienti/42"}, env.navigator.opened()); diff != "" {
		t.Errorf("navigation mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(ansi.Strip(m.View()), "Azioni per Mario Rossi") {
		t.Errorf("suggestions should switch to the entity menu")
	}
}

func TestChat_RosterReloadedAfterReply(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.sessions = []types.SessionSummary{{ID: "sess-1", LastMessage: "ciao"}}

	m = submit(t, m, "ciao")

	if len(m.state.Roster) != 1 {
		t.Errorf("roster = %+v, want the reloaded session", m.state.Roster)
	}
	if got := env.cache.roster(testScope); len(got) != 1 {
		t.Errorf("roster cache = %+v, want it refreshed", got)
	}
}

func TestChat_DocumentDownload(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.downloadData = []byte("%PDF-1.4")
	env.backend.chatFn = func(message, sid string) (*assistant.ChatResponse, error) {
		return &assistant.ChatResponse{
			Response:  "Ecco il report.",
			SessionID: "s",
			Action:    &assistant.ActionResult{DocumentEndpoint: "/reports/1", Filename: "report.pdf"},
		}, nil
	}

	m = press(t, m, alt('d'))
	if m.notice != NoDocumentNotice {
		t.Errorf("notice = %q without documents", m.notice)
	}

	m = submit(t, m, "stampa il report")
	if !strings.Contains(m.renderHistory(), "report.pdf") {
		t.Errorf("document offer not rendered")
	}

	m = press(t, m, alt('d'))
	if !strings.HasPrefix(m.notice, "Documento salvato in ") {
		t.Errorf("notice = %q after download", m.notice)
	}
}

func TestSuggestions_StatsQuerySendsChat(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)

	m = press(t, m, alt('3'))

	calls := env.backend.chats()
	if len(calls) != 1 || calls[0].Message != "Quanti PICC ho impiantato questo mese?" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestSuggestions_ChangePatientClearsMemory(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)
	m.state.Memory.Observe(&types.Patient{FirstName: "Anna", LastName: "Bianchi", Category: types.CategoryMED}, "open")

	// Apri cartella, Appuntamento, Copia scheda MED, Cambia paziente
	m = press(t, m, alt('4'))

	if m.state.Memory.LastEntity != nil {
		t.Errorf("memory should be cleared")
	}
	if m.notice != MemoryClearedNotice {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestSuggestionKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"alt+1", 0, true},
		{"alt+9", 8, true},
		{"alt+0", 0, false},
		{"alt+x", 0, false},
		{"1", 0, false},
	}
	for _, tt := range tests {
		got, ok := suggestionKey(tt.key)
		if ok != tt.ok || got != tt.want {
			t.Errorf("suggestionKey(%q) = %d,%v want %d,%v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInputHistory_UpRecallsPreviousInputs(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)
	m = submit(t, m, "primo")
	m = submit(t, m, "secondo")

	m.textarea.SetValue("bozza")
	m = press(t, m, keyUp)
	if m.textarea.Value() != "secondo" {
		t.Errorf("up #1 = %q", m.textarea.Value())
	}
	m = press(t, m, keyUp)
	if m.textarea.Value() != "primo" {
		t.Errorf("up #2 = %q", m.textarea.Value())
	}
	m = press(t, m, keyDown)
	m = press(t, m, keyDown)
	if m.textarea.Value() != "bozza" {
		t.Errorf("down past newest should restore the draft, got %q", m.textarea.Value())
	}
}

func TestConfigReload_SwitchesTheme(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	if m.styles.Theme.IsDark {
		t.Fatal("test config starts light")
	}

	next := *env.cfg
	next.UI.Theme = "dark"
	next.Scope = "altro"
	updated, _ := m.Update(ConfigReloadedMsg{Config: &next})
	m = updated.(Model)

	if !m.styles.Theme.IsDark {
		t.Errorf("theme should be hot-swapped")
	}
	if m.cfg.Scope != testScope {
		t.Errorf("scope must not change on reload, got %q", m.cfg.Scope)
	}
}

func TestNoticeExpires(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)
	m = press(t, m, alt('m'))
	seq := m.noticeSeq

	next, _ := m.Update(clearNoticeMsg{seq: seq - 1})
	m = next.(Model)
	if m.notice == "" {
		t.Errorf("an older timer must not clear a newer notice")
	}
	next, _ = m.Update(clearNoticeMsg{seq: seq})
	m = next.(Model)
	if m.notice != "" {
		t.Errorf("notice should expire, got %q", m.notice)
	}
}

func TestQuit(t *testing.T) {
	t.Parallel()
	m, _ := NewTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
}
