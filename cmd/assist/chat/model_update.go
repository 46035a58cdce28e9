package chat

import (
	"ambuassist/internal/drag"
	"ambuassist/internal/logging"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKeyMsg(msg); handled {
			return next, cmd
		}

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.state.Drag.Resize(drag.Size{W: msg.Width, H: msg.Height})
		m.layout()
		m.ready = true
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case chatResultMsg:
		return m.handleChatResult(msg)

	case sessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case sessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case historyClearedMsg:
		return m.handleHistoryCleared(msg)

	case extractResultMsg:
		return m.handleExtractResult(msg)

	case batchResultMsg:
		return m.handleBatchResult(msg)

	case documentSavedMsg:
		if msg.err != nil {
			logging.Get(logging.CategoryAPI).Error("document download failed: %v", msg.err)
			return m, m.setNotice(DownloadErrorNotice)
		}
		return m, m.setNotice("Documento salvato in " + msg.path)

	case navigateResultMsg:
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("navigation to %s failed: %v", msg.target, msg.err)
		}
		return m, nil

	case recognitionMsg:
		return m.handleRecognition(msg)

	case synthesisMsg:
		return m.handleSynthesis(msg)

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, nil
	}

	return m.forward(msg)
}

// forward hands msg to the component that owns the current view.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.viewMode {
	case ListView:
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	case FilePickerView:
		return m.updateFilePicker(msg)
	}

	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.viewport, vpCmd = m.viewport.Update(msg)
	}
	return m, tea.Batch(tiCmd, vpCmd)
}
