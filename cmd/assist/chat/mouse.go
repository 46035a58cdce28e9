package chat

import (
	"ambuassist/internal/drag"

	tea "github.com/charmbracelet/bubbletea"
)

// pointerEvent translates a terminal mouse event into a drag gesture.
func pointerEvent(msg tea.MouseMsg) (drag.PointerEvent, bool) {
	ev := drag.PointerEvent{Source: drag.SourceMouse, X: msg.X, Y: msg.Y}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return ev, false
		}
		ev.Kind = drag.PointerDown
	case tea.MouseActionMotion:
		ev.Kind = drag.PointerMove
	case tea.MouseActionRelease:
		ev.Kind = drag.PointerUp
	default:
		return ev, false
	}
	return ev, true
}

// handleMouse drags the panel by its title bar; wheel events scroll the
// timeline.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if ev, ok := pointerEvent(msg); ok && m.state.Drag.Handle(ev) {
		return m, nil
	}
	if m.viewMode != ChatView || m.state.Drag.Dragging {
		return m, nil
	}
	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}
