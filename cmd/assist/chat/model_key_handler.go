package chat

import (
	"strconv"
	"strings"

	"ambuassist/internal/logging"
	"ambuassist/internal/router"
	"ambuassist/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsg processes keyboard input. The boolean reports whether the key
// was consumed; unconsumed keys are forwarded to the focused component.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	key := msg.String()

	if key == "ctrl+c" {
		m.Shutdown()
		return m, tea.Quit, true
	}

	switch m.viewMode {
	case ListView:
		return m.handleListKey(key)
	case FilePickerView:
		if key == "esc" || key == "alt+i" {
			m.viewMode = ChatView
			return m, nil, true
		}
		return m, nil, false
	}

	switch key {
	case "esc":
		if workflow.Abandon(&m.state.Workflow) {
			logging.Workflow("workflow abandoned by user")
			m.state.Timeline.Assistant(AbandonText)
			m.refreshViewport()
		}
		return m, nil, true

	case "enter":
		return m.handleSubmit()

	case "alt+h":
		return m.openRoster()

	case "alt+n":
		return m.startNewChat()

	case "alt+x":
		return m.clearHistory()

	case "alt+i":
		return m.openImagePicker()

	case "alt+e":
		return m.startExtraction(router.InferCategory(m.textarea.Value()))

	case "alt+y":
		return m.confirmExtraction()

	case "alt+u":
		return m.discardExtraction()

	case "alt+v":
		return m.toggleListening()

	case "alt+s":
		return m.speakLastReply()

	case "alt+m":
		m.state.Memory.Clear()
		logging.Memory("context memory cleared")
		m.refreshViewport()
		return m, m.setNotice(MemoryClearedNotice), true

	case "alt+d":
		return m.downloadDocument()

	case "alt+0":
		m.state.Drag.Reset()
		return m, nil, true

	case "tab", "shift+tab":
		if choices := m.state.Timeline.PendingChoices(); len(choices) > 0 {
			m.moveSelection(choices, key == "tab")
			return m, nil, true
		}

	case "up", "down":
		if choices := m.state.Timeline.PendingChoices(); len(choices) > 0 && strings.TrimSpace(m.textarea.Value()) == "" {
			m.moveSelection(choices, key == "down")
			return m, nil, true
		}
		if m.browseHistory(key == "up") {
			return m, nil, true
		}

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true
	}

	if n, ok := suggestionKey(key); ok {
		return m.activateSuggestion(n)
	}
	return m, nil, false
}

// suggestionKey maps alt+1..alt+9 to a 0-based suggestion index.
func suggestionKey(key string) (int, bool) {
	digit, ok := strings.CutPrefix(key, "alt+")
	if !ok || len(digit) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(digit)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func (m Model) handleListKey(key string) (Model, tea.Cmd, bool) {
	switch key {
	case "esc", "alt+h":
		m.viewMode = ChatView
		return m, nil, true
	case "enter":
		if it, ok := m.list.SelectedItem().(sessionItem); ok {
			return m.loadSession(it.id)
		}
		return m, nil, true
	case "alt+delete":
		if it, ok := m.list.SelectedItem().(sessionItem); ok {
			return m.deleteSession(it.id)
		}
		return m, nil, true
	case "alt+x":
		return m.clearHistory()
	case "alt+n":
		m.viewMode = ChatView
		return m.startNewChat()
	}
	return m, nil, false
}

// moveSelection cycles the quick-reply cursor.
func (m *Model) moveSelection(choices []string, forward bool) {
	if forward {
		m.selectedOption = (m.selectedOption + 1) % len(choices)
	} else {
		m.selectedOption = (m.selectedOption - 1 + len(choices)) % len(choices)
	}
	m.refreshViewport()
}

// pushHistory records a submitted input.
func (m *Model) pushHistory(text string) {
	if text == "" {
		return
	}
	if n := len(m.inputHistory); n == 0 || m.inputHistory[n-1] != text {
		m.inputHistory = append(m.inputHistory, text)
	}
	m.historyIndex = -1
	m.draft = ""
}

// browseHistory recalls previous inputs. It reports whether the input changed.
func (m *Model) browseHistory(older bool) bool {
	if len(m.inputHistory) == 0 {
		return false
	}
	switch {
	case older && m.historyIndex == -1:
		m.draft = m.textarea.Value()
		m.historyIndex = len(m.inputHistory) - 1
	case older && m.historyIndex > 0:
		m.historyIndex--
	case older:
		return false
	case m.historyIndex == -1:
		return false
	case m.historyIndex < len(m.inputHistory)-1:
		m.historyIndex++
	default:
		m.historyIndex = -1
		m.textarea.SetValue(m.draft)
		return true
	}
	m.textarea.SetValue(m.inputHistory[m.historyIndex])
	return true
}
