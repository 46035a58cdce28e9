package chat

import (
	"context"
	"time"

	"ambuassist/cmd/assist/ui"
	"ambuassist/internal/assistant"
	"ambuassist/internal/config"
	"ambuassist/internal/extraction"
	"ambuassist/internal/session"
	"ambuassist/internal/speech"
	"ambuassist/internal/types"
	"ambuassist/internal/workflow"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	// titleRows is the border line plus the title bar; the drag handle.
	titleRows = 2
	// inputHeight is the number of textarea rows.
	inputHeight = 2
	// chromeRows is every fixed panel row that is not the timeline viewport:
	// top border, title, status, divider, input, bottom border. The
	// suggestion rows depend on the menu and are measured in fitViewport.
	chromeRows = 1 + 1 + 1 + 1 + inputHeight + 1
)

// ViewMode determines which component is focused/active
type ViewMode int

const (
	ChatView ViewMode = iota
	ListView
	FilePickerView
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the remote assistant service as seen by the widget.
// *assistant.Client satisfies it.
type Backend interface {
	ListSessions(ctx context.Context) ([]types.SessionSummary, error)
	LoadHistory(ctx context.Context, sessionID string) ([]assistant.HistoryMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ClearHistory(ctx context.Context) error
	Chat(ctx context.Context, message, sessionID string) (*assistant.ChatResponse, error)
	Extract(ctx context.Context, img *extraction.Image, category types.Category) (*assistant.ExtractResult, error)
	BatchCreate(ctx context.Context, patients []types.Patient, category types.Category) (*assistant.BatchResult, error)
	Download(ctx context.Context, url, endpoint string) ([]byte, error)
}

// RosterCache keeps the last known roster for offline use.
// *store.RosterCache satisfies it.
type RosterCache interface {
	ReplaceRoster(scope string, sessions []types.SessionSummary) error
	Roster(scope string) ([]types.SessionSummary, error)
	Remove(scope, sessionID string) error
	Clear(scope string) error
}

// Navigator opens a route of the web application.
type Navigator interface {
	Open(target string) error
}

// Deps bundles what InitChat needs. Cache and Navigator are optional.
type Deps struct {
	Config    *config.Config
	Backend   Backend
	Cache     RosterCache
	Speech    *speech.Bridge
	Navigator Navigator
	Registry  *workflow.Registry
}

// =============================================================================
// MESSAGES
// =============================================================================

type (
	// chatResultMsg carries a chat reply tagged with the epoch it was issued under.
	chatResultMsg struct {
		seq     int
		epoch   uint64
		command string
		resp    *assistant.ChatResponse
		err     error
	}

	sessionsLoadedMsg struct {
		sessions  []types.SessionSummary
		err       error
		fromCache bool
	}

	historyLoadedMsg struct {
		id   string
		msgs []assistant.HistoryMessage
		err  error
	}

	sessionDeletedMsg struct {
		id  string
		err error
	}

	historyClearedMsg struct {
		err error
	}

	// extractResultMsg carries an extraction reply tagged with the pending token.
	extractResultMsg struct {
		token  string
		result *assistant.ExtractResult
		err    error
	}

	batchResultMsg struct {
		requested int
		result    *assistant.BatchResult
		err       error
	}

	documentSavedMsg struct {
		path string
		err  error
	}

	navigateResultMsg struct {
		target string
		err    error
	}

	recognitionMsg struct {
		ev speech.RecognitionEvent
		ch <-chan speech.RecognitionEvent
	}

	synthesisMsg struct {
		ev speech.SynthesisEvent
		ch <-chan speech.SynthesisEvent
	}

	// ConfigReloadedMsg is sent by the config watcher.
	ConfigReloadedMsg struct {
		Config *config.Config
	}

	clearNoticeMsg struct {
		seq int
	}
)

// sessionItem is a list item for the session roster
type sessionItem struct {
	id, date, desc string
	active         bool
}

func (i sessionItem) Title() string {
	if i.desc == "" {
		return "(chat vuota)"
	}
	return i.desc
}

func (i sessionItem) Description() string {
	if i.active {
		return i.date + " · attiva"
	}
	return i.date
}

func (i sessionItem) FilterValue() string { return i.desc }

// noticeTTL is how long a notice stays in the status line.
const noticeTTL = 4 * time.Second

// =============================================================================
// MODEL
// =============================================================================

// Model is the widget: one session State driven by the bubbletea loop.
type Model struct {
	// UI components
	textarea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	list       list.Model
	filepicker filepicker.Model
	styles     ui.Styles
	renderer   *glamour.TermRenderer

	viewMode ViewMode
	width    int
	height   int
	ready    bool

	// Domain
	cfg       *config.Config
	state     *session.State
	engine    *workflow.Engine
	speech    *speech.Bridge
	backend   Backend
	cache     RosterCache
	navigator Navigator

	// Gates
	isLoading   bool   // chat call in flight
	chatSeq     int    // identifies the call isLoading waits for
	loadingID   string // history load in flight; later loads supersede earlier ones
	isBatching  bool
	deletingIDs map[string]bool

	// Status line
	notice    string
	noticeSeq int

	// Quick replies
	selectedOption int

	// Input history
	inputHistory []string
	historyIndex int
	draft        string

	// Lifecycle
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	timeout        time.Duration
}
