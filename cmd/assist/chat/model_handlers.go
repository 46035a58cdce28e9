package chat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ambuassist/internal/logging"
	"ambuassist/internal/memory"
	"ambuassist/internal/router"
	"ambuassist/internal/timeline"
	"ambuassist/internal/types"
	"ambuassist/internal/workflow"

	tea "github.com/charmbracelet/bubbletea"
)

// User-facing texts.
const (
	ConnectionErrorText = "Mi dispiace, ho avuto un problema di connessione. Riprova tra poco."
	AbandonText         = "Procedura annullata."
	RequiredAnswerText  = "Questa risposta è obbligatoria."
	InvalidChoiceText   = "Scegli una delle opzioni proposte."
	SkippedAnswer       = "(saltato)"

	NavigateNotice      = "Apertura cartella paziente..."
	BusyNotice          = "Attendi la risposta in corso..."
	MemoryClearedNotice = "Memoria azzerata"
	NoDocumentNotice    = "Nessun documento da scaricare"
	DownloadErrorNotice = "Errore nel download del documento"
)

// =============================================================================
// SUBMIT AND ROUTING
// =============================================================================

// handleSubmit sends the input field. Enter is ignored while a chat call is
// in flight. An empty input picks the highlighted quick reply, or skips an
// optional workflow step.
func (m Model) handleSubmit() (Model, tea.Cmd, bool) {
	if m.isLoading {
		return m, nil, true
	}

	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		if choices := m.state.Timeline.PendingChoices(); len(choices) > 0 {
			return m.pickQuickReply(choices)
		}
		if !m.state.Workflow.Active() {
			return m, nil, true
		}
	}

	m.textarea.Reset()
	m.pushHistory(text)
	return m.dispatch(text)
}

// dispatch routes text and runs the matching handler.
func (m Model) dispatch(text string) (Model, tea.Cmd, bool) {
	d := router.Route(text, m.snapshot())
	logging.Routing("routed %q -> %s", text, d.Disposition)

	switch d.Disposition {
	case router.WorkflowAnswer:
		return m.answerWorkflow(text)
	case router.ConfirmExtraction:
		m.state.Timeline.User(text)
		return m.confirmExtraction()
	case router.DiscardExtraction:
		m.state.Timeline.User(text)
		return m.discardExtraction()
	case router.TriggerExtraction:
		m.state.Timeline.User(text)
		return m.startExtraction(d.Category)
	default:
		return m.sendChat(text)
	}
}

// pickQuickReply submits the highlighted choice of the last assistant turn.
func (m Model) pickQuickReply(choices []string) (Model, tea.Cmd, bool) {
	idx := m.selectedOption
	if idx < 0 || idx >= len(choices) {
		idx = 0
	}
	choice := choices[idx]
	m.selectedOption = 0

	if last, ok := m.state.Timeline.Last(); ok && choice == timeline.RetryLabel && last.Retry != "" {
		logging.Routing("retrying %q", last.Retry)
		return m.sendChat(last.Retry)
	}
	return m.dispatch(choice)
}

// =============================================================================
// WORKFLOWS
// =============================================================================

func (m Model) answerWorkflow(text string) (Model, tea.Cmd, bool) {
	if text != "" {
		m.state.Timeline.User(text)
	} else if p, ok := m.engine.Current(&m.state.Workflow); ok && p.Optional {
		m.state.Timeline.User(SkippedAnswer)
	}

	out, err := m.engine.Answer(&m.state.Workflow, text)
	switch {
	case errors.Is(err, workflow.ErrAnswerRequired):
		m.reprompt(RequiredAnswerText)
	case errors.Is(err, workflow.ErrInvalidChoice):
		m.reprompt(InvalidChoiceText)
	case err != nil:
		logging.Get(logging.CategoryWorkflow).Error("answer rejected: %v", err)
		m.refreshViewport()
	case out.Done:
		logging.Workflow("workflow completed: %q", out.Command)
		return m.sendChat(out.Command)
	default:
		m.appendPrompt(*out.Next, "")
	}
	return m, nil, true
}

// startWorkflow begins def id with prefill, replacing any active run.
func (m Model) startWorkflow(id workflow.ID, prefill map[string]string) (Model, tea.Cmd, bool) {
	out, err := m.engine.Start(&m.state.Workflow, id, prefill)
	if err != nil {
		logging.Get(logging.CategoryWorkflow).Error("cannot start workflow %s: %v", id, err)
		return m, nil, true
	}
	logging.Workflow("workflow %s started (prefill=%d)", id, len(prefill))
	if out.Done {
		return m.sendChat(out.Command)
	}
	m.appendPrompt(*out.Next, "")
	return m, nil, true
}

// reprompt repeats the current step after a rejected answer.
func (m *Model) reprompt(reason string) {
	p, ok := m.engine.Current(&m.state.Workflow)
	if !ok {
		m.state.Timeline.Assistant(reason)
		m.refreshViewport()
		return
	}
	m.appendPrompt(p, reason)
}

// appendPrompt shows a workflow question with its choices as quick replies.
func (m *Model) appendPrompt(p workflow.Prompt, reason string) {
	var sb strings.Builder
	if reason != "" {
		sb.WriteString(reason)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "**%s** (%d/%d)\n\n%s", p.Title, p.Step, p.Total, p.Text)
	m.state.Timeline.Append(timeline.Message{
		Role:    types.RoleAssistant,
		Content: sb.String(),
		Choices: p.Choices,
	})
	m.selectedOption = 0
	m.refreshViewport()
}

// =============================================================================
// CHAT
// =============================================================================

// sendChat appends text as a user turn and issues it to the service.
func (m Model) sendChat(text string) (Model, tea.Cmd, bool) {
	if m.isLoading {
		return m, m.setNotice(BusyNotice), true
	}
	m.state.Timeline.User(text)
	m.isLoading = true
	m.chatSeq++
	m.selectedOption = 0
	m.refreshViewport()

	seq := m.chatSeq
	epoch := m.state.Epoch
	sessionID := m.state.ID
	backend := m.backend
	call := func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		resp, err := backend.Chat(ctx, text, sessionID)
		return chatResultMsg{seq: seq, epoch: epoch, command: text, resp: resp, err: err}
	}
	return m, tea.Batch(call, m.spinner.Tick), true
}

// handleChatResult applies a chat reply. The gate is released whatever the
// outcome; replies issued under an older epoch are dropped.
func (m Model) handleChatResult(msg chatResultMsg) (tea.Model, tea.Cmd) {
	if msg.seq == m.chatSeq {
		m.isLoading = false
	}

	if !m.state.IsCurrent(msg.epoch) {
		logging.Get(logging.CategoryAPI).Warn("dropping chat reply for epoch %d (current %d)", msg.epoch, m.state.Epoch)
		return m, nil
	}

	if msg.err != nil {
		logging.Get(logging.CategoryAPI).Error("chat failed: %v", msg.err)
		m.state.Timeline.Append(timeline.Message{
			Role:    types.RoleAssistant,
			Content: ConnectionErrorText,
			Choices: []string{timeline.RetryLabel},
			Retry:   msg.command,
		})
		m.selectedOption = 0
		m.refreshViewport()
		return m, nil
	}

	resp := msg.resp
	m.state.AssignID(resp.SessionID)

	reply := timeline.Message{Role: types.RoleAssistant, Content: resp.Response}
	var cmds []tea.Cmd
	if a := resp.Action; a != nil {
		if a.HasDocument() {
			reply.Document = &timeline.DocumentOffer{URL: a.DocumentURL, Endpoint: a.DocumentEndpoint, Filename: a.Filename}
		}
		if m.state.Memory.Observe(a.Patient, a.ActionType) {
			logging.Memory("remembering %s (%s)", a.Patient.DisplayName(), a.ActionType)
		}
		if a.NavigateTo != "" {
			cmds = append(cmds, m.setNotice(NavigateNotice), m.navigate(a.NavigateTo))
		}
	}
	m.state.Timeline.Append(reply)
	m.refreshViewport()

	cmds = append(cmds, m.listSessions())
	return m, tea.Batch(cmds...)
}

// =============================================================================
// SUGGESTIONS
// =============================================================================

// activateSuggestion runs the n-th quick action of the current menu.
func (m Model) activateSuggestion(n int) (Model, tea.Cmd, bool) {
	suggestions := memory.Suggestions(m.state.Memory)
	if n < 0 || n >= len(suggestions) {
		return m, nil, true
	}
	s := suggestions[n]
	logging.UIDebug("suggestion %q activated", s.Label)

	switch s.Kind {
	case memory.KindClearMemory:
		m.state.Memory.Clear()
		logging.Memory("context memory cleared")
		m.refreshViewport()
		return m, m.setNotice(MemoryClearedNotice), true
	case memory.KindWorkflow:
		return m.startWorkflow(s.Workflow, s.Prefill)
	default:
		return m.sendChat(s.Command)
	}
}

// =============================================================================
// NAVIGATION AND DOCUMENTS
// =============================================================================

func (m Model) navigate(target string) tea.Cmd {
	nav := m.navigator
	return func() tea.Msg {
		if nav == nil {
			logging.UI("navigation requested to %s (no navigator configured)", target)
			return navigateResultMsg{target: target}
		}
		return navigateResultMsg{target: target, err: nav.Open(target)}
	}
}

// downloadDocument saves the most recent document offer into the download dir.
func (m Model) downloadDocument() (Model, tea.Cmd, bool) {
	doc, ok := m.state.Timeline.LastDocument()
	if !ok {
		return m, m.setNotice(NoDocumentNotice), true
	}

	dir := m.cfg.UI.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := doc.Filename
	if name == "" {
		name = filepath.Base(doc.URL + doc.Endpoint)
	}
	dest := filepath.Join(dir, filepath.Base(name))

	backend := m.backend
	offer := *doc
	save := func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		data, err := backend.Download(ctx, offer.URL, offer.Endpoint)
		if err != nil {
			return documentSavedMsg{err: err}
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return documentSavedMsg{err: err}
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return documentSavedMsg{err: err}
		}
		logging.API("document saved to %s (%d bytes)", dest, len(data))
		return documentSavedMsg{path: dest}
	}
	return m, tea.Batch(m.setNotice("Download di "+name+"..."), save), true
}
