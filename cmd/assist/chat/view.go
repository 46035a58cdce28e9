package chat

import (
	"fmt"
	"strings"

	"ambuassist/internal/memory"
	"ambuassist/internal/timeline"
	"ambuassist/internal/types"

	"github.com/charmbracelet/lipgloss"
)

// renderHistory renders the timeline, the pending quick replies and the
// pending image.
func (m Model) renderHistory() string {
	msgs := m.state.Timeline.Messages()
	if len(msgs) == 0 {
		return m.safeRenderMarkdown(welcomeText)
	}

	var sb strings.Builder
	for _, msg := range msgs {
		if msg.Role == types.RoleUser {
			sb.WriteString(m.styles.Bold.Foreground(m.styles.Theme.Primary).Render("Tu") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Content))
			sb.WriteString("\n\n")
			continue
		}

		sb.WriteString(m.styles.Bold.Foreground(m.styles.Theme.Accent).Render("Assistente") + "\n")
		sb.WriteString(m.safeRenderMarkdown(msg.Content))
		sb.WriteString("\n")
		if msg.Document != nil {
			sb.WriteString(m.styles.Info.Render("📄 "+documentName(msg.Document)+"  (Alt+D per scaricare)") + "\n\n")
		}
	}

	if choices := m.state.Timeline.PendingChoices(); len(choices) > 0 {
		sb.WriteString(m.renderQuickReplies(choices))
	}

	if p := m.state.Extraction; p.ReadyToExtract() {
		sb.WriteString(m.styles.Muted.Render("🖼  "+p.Image.Name+" pronta per l'estrazione (Alt+E)") + "\n")
	}
	return sb.String()
}

func (m Model) renderQuickReplies(choices []string) string {
	var sb strings.Builder
	for i, c := range choices {
		label := fmt.Sprintf("%d. %s", i+1, c)
		if i == m.selectedOption {
			sb.WriteString(m.styles.QuickReplySel.Render(label))
		} else {
			sb.WriteString(m.styles.QuickReply.Render(label))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.Muted.Render("Tab per scegliere, Invio per inviare") + "\n")
	return sb.String()
}

func documentName(d *timeline.DocumentOffer) string {
	if d.Filename != "" {
		return d.Filename
	}
	return "documento"
}

// safeRenderMarkdown renders markdown with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content + "\n"
}

func (m Model) View() string {
	if !m.ready {
		return "Inizializzazione..."
	}

	p := m.panelSize()
	inner := p.W - 2
	if inner < 1 {
		inner = 1
	}

	var body string
	switch m.viewMode {
	case ListView:
		body = m.renderRoster()
	case FilePickerView:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Muted.Render("Seleziona un'immagine (Esc per annullare)"),
			m.filepicker.View(),
		)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			m.renderSuggestions(inner),
			m.renderStatus(inner),
			m.styles.RenderDivider(inner),
			m.textarea.View(),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.renderTitleBar(inner), body)
	panel := m.styles.Panel.
		Width(inner).
		Height(p.H - 2).
		MaxHeight(p.H).
		Render(content)

	o := m.state.Drag.Origin()
	return lipgloss.NewStyle().MarginLeft(o.X).MarginTop(o.Y).Render(panel)
}

// renderTitleBar draws the drag handle with the session label and the
// speech indicators.
func (m Model) renderTitleBar(width int) string {
	label := "Assistente IA · nuova chat"
	if id := m.state.ID; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		label = "Assistente IA · chat " + id
	}

	var icons []string
	if m.speech.Listening {
		icons = append(icons, "🎤")
	}
	if m.speech.Speaking {
		icons = append(icons, "🔊")
	}
	if !m.state.Drag.Docked() {
		icons = append(icons, "⇱")
	}
	right := strings.Join(icons, " ")

	gap := width - 2 - lipgloss.Width(label) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.styles.TitleBar.Width(width).MaxWidth(width).Render(label + strings.Repeat(" ", gap) + right)
}

func (m Model) renderRoster() string {
	if len(m.state.Roster) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Title.Render("Cronologia chat"),
			m.styles.Muted.Render("Nessuna chat precedente"),
			"",
			m.styles.Muted.Render("Esc per tornare · Alt+N nuova chat"),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		m.styles.Muted.Render("Invio apri · Alt+Canc elimina · Alt+X elimina tutto · Esc indietro"),
	)
}

// renderSuggestions draws the quick actions of the current context: the
// heading on its own row, then the chips wrapped to width.
func (m Model) renderSuggestions(width int) string {
	clip := lipgloss.NewStyle().MaxWidth(width)
	rows := []string{clip.Render(m.styles.Bold.Render(memory.Heading(m.state.Memory) + ":"))}

	var line []string
	used := 0
	for i, s := range memory.Suggestions(m.state.Memory) {
		chip := clip.Render(m.styles.Suggestion.Render(fmt.Sprintf("%d %s", i+1, s.Label)))
		w := lipgloss.Width(chip)
		if len(line) > 0 && used+1+w > width {
			rows = append(rows, strings.Join(line, " "))
			line, used = nil, 0
		}
		if len(line) > 0 {
			used++
		}
		line = append(line, chip)
		used += w
	}
	if len(line) > 0 {
		rows = append(rows, strings.Join(line, " "))
	}
	return strings.Join(rows, "\n")
}

// renderStatus draws the busy indicator, the current notice or a key hint.
func (m Model) renderStatus(width int) string {
	var line string
	switch {
	case m.isLoading:
		line = m.spinner.View() + " " + m.styles.Muted.Render("Sto pensando...")
	case m.state.Extraction.Extracting():
		line = m.spinner.View() + " " + m.styles.Muted.Render(ExtractingNotice)
	case m.isBatching:
		line = m.spinner.View() + " " + m.styles.Muted.Render("Creo i pazienti...")
	case m.notice != "":
		line = m.styles.Info.Render(m.notice)
	case m.speech.Listening:
		line = m.styles.Error.Render("🎤 Registrazione in corso... Parla ora")
	case m.state.Workflow.Active():
		line = m.styles.Warning.Render(m.engine.Title(&m.state.Workflow)) + m.styles.Muted.Render(" · Esc per annullare")
	default:
		line = m.styles.Muted.Render("Invio invia · Alt+H cronologia · Alt+I immagine · Alt+V voce")
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}
