package chat

import (
	"ambuassist/internal/logging"
	"ambuassist/internal/speech"

	tea "github.com/charmbracelet/bubbletea"
)

// waitRecognition reads the next event of a recognition session. A closed
// channel ends the loop.
func waitRecognition(ch <-chan speech.RecognitionEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return recognitionMsg{ev: ev, ch: ch}
	}
}

// waitSynthesis reads the next event of an utterance.
func waitSynthesis(ch <-chan speech.SynthesisEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return synthesisMsg{ev: ev, ch: ch}
	}
}

// toggleListening starts or stops speech-to-text.
func (m Model) toggleListening() (Model, tea.Cmd, bool) {
	if !m.speech.CanRecognize() {
		if notice, ok := m.speech.UnsupportedNotice(speech.CapRecognition); ok {
			return m, m.setNotice(notice), true
		}
		return m, nil, true
	}

	if m.speech.Listening {
		m.speech.StopListening()
		logging.SpeechDebug("recognition stop requested")
		return m, nil, true
	}

	ch, err := m.speech.StartListening()
	if err != nil {
		logging.Get(logging.CategorySpeech).Error("cannot start recognition: %v", err)
		return m, m.setNotice(speech.RecognitionErrorNotice), true
	}
	return m, waitRecognition(ch), true
}

// handleRecognition mirrors transcripts into the input field.
func (m Model) handleRecognition(msg recognitionMsg) (tea.Model, tea.Cmd) {
	upd := m.speech.HandleRecognition(msg.ev)
	if upd.SetInput {
		m.textarea.SetValue(upd.Input)
		m.textarea.CursorEnd()
	}

	cmds := []tea.Cmd{waitRecognition(msg.ch)}
	if upd.Notice != "" {
		cmds = append(cmds, m.setNotice(upd.Notice))
	}
	return m, tea.Batch(cmds...)
}

// speakLastReply reads the most recent assistant turn aloud.
func (m Model) speakLastReply() (Model, tea.Cmd, bool) {
	if !m.speech.CanSynthesize() {
		if notice, ok := m.speech.UnsupportedNotice(speech.CapSynthesis); ok {
			return m, m.setNotice(notice), true
		}
		return m, nil, true
	}

	last, ok := m.state.Timeline.LastAssistant()
	if !ok {
		return m, nil, true
	}
	if m.speech.Speaking {
		m.speech.StopSpeaking()
		return m, nil, true
	}

	ch, err := m.speech.Speak(last.Content)
	if err != nil {
		logging.Get(logging.CategorySpeech).Error("cannot speak: %v", err)
		return m, m.setNotice(speech.SynthesisErrorNotice), true
	}
	return m, waitSynthesis(ch), true
}

func (m Model) handleSynthesis(msg synthesisMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitSynthesis(msg.ch)}
	if notice := m.speech.HandleSynthesis(msg.ev); notice != "" {
		cmds = append(cmds, m.setNotice(notice))
	}
	return m, tea.Batch(cmds...)
}
