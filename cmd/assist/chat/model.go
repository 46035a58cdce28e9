// Package chat implements the floating assistant widget as a bubbletea model.
// Every remote call runs as a tea.Cmd; its result re-enters Update as a
// message and is applied there, so the session state has a single writer.
package chat

import (
	"context"
	"os"
	"time"

	"ambuassist/cmd/assist/ui"
	"ambuassist/internal/config"
	"ambuassist/internal/drag"
	"ambuassist/internal/extraction"
	"ambuassist/internal/logging"
	"ambuassist/internal/router"
	"ambuassist/internal/session"
	"ambuassist/internal/speech"
	"ambuassist/internal/workflow"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// InitChat builds the widget model.
func InitChat(d Deps) Model {
	timer := logging.StartTimer(logging.CategoryBoot, "InitChat")
	defer timer.Stop()

	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	reg := d.Registry
	if reg == nil {
		reg = workflow.DefaultRegistry()
	}
	bridge := d.Speech
	if bridge == nil {
		bridge = speech.NewBridge(nil, nil)
	}

	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))

	ta := textarea.New()
	ta.Placeholder = "Scrivi un messaggio..."
	ta.Prompt = "│ "
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(inputHeight)
	ta.SetWidth(cfg.UI.PanelWidth - 4)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = styles.Prompt
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(cfg.UI.PanelWidth-2, cfg.UI.PanelHeight-chromeRows)

	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, cfg.UI.PanelWidth-2, cfg.UI.PanelHeight-titleRows-1)
	l.Title = "Cronologia chat"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = styles.Title

	fp := newImagePicker()

	ctx, cancel := context.WithCancel(context.Background())

	controller := drag.New(drag.Size{}, drag.Size{W: cfg.UI.PanelWidth, H: cfg.UI.PanelHeight}, titleRows)

	m := Model{
		textarea:       ta,
		viewport:       vp,
		spinner:        sp,
		list:           l,
		filepicker:     fp,
		styles:         styles,
		renderer:       newRenderer(styles, cfg.UI.PanelWidth-4),
		viewMode:       ChatView,
		cfg:            cfg,
		state:          session.New(cfg.Scope, controller),
		engine:         workflow.NewEngine(reg),
		speech:         bridge,
		backend:        d.Backend,
		cache:          d.Cache,
		navigator:      d.Navigator,
		deletingIDs:    make(map[string]bool),
		historyIndex:   -1,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
		timeout:        cfg.GetAPITimeout(),
	}
	logging.Boot("chat widget initialized for scope %q", cfg.Scope)
	return m
}

func newImagePicker() filepicker.Model {
	fp := filepicker.New()
	fp.AllowedTypes = extraction.AllowedExtensions
	fp.AutoHeight = false
	fp.Height = 10
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	} else if home, err := os.UserHomeDir(); err == nil {
		fp.CurrentDirectory = home
	}
	return fp
}

func newRenderer(styles ui.Styles, width int) *glamour.TermRenderer {
	if width < 10 {
		width = 10
	}
	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.Get(logging.CategoryUI).Warn("markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		tea.EnableMouseCellMotion,
		m.listSessions(),
	)
}

// Shutdown cancels in-flight calls and stops speech.
func (m Model) Shutdown() {
	if m.shutdownCancel != nil {
		m.shutdownCancel()
	}
	m.speech.Close()
}

// State exposes the session aggregate.
func (m Model) State() *session.State { return m.state }

// =============================================================================
// HELPERS
// =============================================================================

// callCtx bounds a remote call by the configured timeout and the model's lifetime.
func (m Model) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.shutdownCtx, m.timeout)
}

func (m Model) snapshot() router.Snapshot {
	return router.Snapshot{Workflow: &m.state.Workflow, Extraction: &m.state.Extraction}
}

// setNotice shows text in the status line and schedules its removal.
func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	seq := m.noticeSeq
	logging.UIDebug("notice: %s", text)
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

// panelSize is the configured panel clamped to the terminal.
func (m Model) panelSize() drag.Size {
	w, h := m.cfg.UI.PanelWidth, m.cfg.UI.PanelHeight
	if m.width > 0 && w > m.width {
		w = m.width
	}
	if m.height > 0 && h > m.height {
		h = m.height
	}
	return drag.Size{W: w, H: h}
}

// layout resizes every component to the current panel.
func (m *Model) layout() {
	p := m.panelSize()
	m.state.Drag.SetPanel(p)

	inner := p.W - 2
	if inner < 1 {
		inner = 1
	}
	m.viewport.Width = inner
	m.fitViewport()
	m.textarea.SetWidth(inner)

	listHeight := p.H - titleRows - 1
	if listHeight < 1 {
		listHeight = 1
	}
	m.list.SetSize(inner, listHeight)
	m.filepicker.Height = listHeight - 2

	m.renderer = newRenderer(m.styles, inner-2)
}

// fitViewport gives the timeline every row left by the chrome and the
// current suggestion menu.
func (m *Model) fitViewport() {
	p := m.panelSize()
	inner := p.W - 2
	if inner < 1 {
		inner = 1
	}
	h := p.H - chromeRows - lipgloss.Height(m.renderSuggestions(inner))
	if h < 1 {
		h = 1
	}
	m.viewport.Height = h
}

// refreshViewport re-renders the timeline and scrolls to the newest turn.
func (m *Model) refreshViewport() {
	m.fitViewport()
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// applyConfig hot-swaps the settings that may change while running.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	logging.Configure(cfg.LoggingSettings())

	themeChanged := cfg.UI.Theme != m.cfg.UI.Theme
	synthChanged := cfg.Speech.Synthesis != m.cfg.Speech.Synthesis

	next := *m.cfg
	next.UI.Theme = cfg.UI.Theme
	next.UI.PanelWidth = cfg.UI.PanelWidth
	next.UI.PanelHeight = cfg.UI.PanelHeight
	next.UI.OpenCommand = cfg.UI.OpenCommand
	next.UI.DownloadDir = cfg.UI.DownloadDir
	next.Speech.Synthesis = cfg.Speech.Synthesis
	next.Logging = cfg.Logging
	m.cfg = &next

	if themeChanged {
		m.styles = ui.NewStyles(ui.ThemeByName(next.UI.Theme))
		m.spinner.Style = m.styles.Spinner
		m.textarea.FocusedStyle.Prompt = m.styles.Prompt
		m.list.Styles.Title = m.styles.Title
	}
	if synthChanged {
		_, syn := speech.Detect(next.Speech)
		m.speech.SetSynthesizer(syn)
	}
	m.layout()
	m.refreshViewport()
	logging.UI("configuration reloaded (theme=%s, synth=%v)", next.UI.Theme, synthChanged)
}
