// Package chat provides test utilities for TUI testing.
// This file contains fakes, fixtures, and helpers for testing the chat package.
package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ambuassist/internal/assistant"
	"ambuassist/internal/config"
	"ambuassist/internal/extraction"
	"ambuassist/internal/speech"
	"ambuassist/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type chatCall struct {
	Message   string
	SessionID string
}

type batchCall struct {
	Patients []types.Patient
	Category types.Category
}

// fakeBackend records every call and answers from its fields.
type fakeBackend struct {
	mu sync.Mutex

	chatCalls []chatCall
	chatFn    func(message, sessionID string) (*assistant.ChatResponse, error)

	sessions []types.SessionSummary
	listErr  error
	lists    int

	history    map[string][]assistant.HistoryMessage
	historyErr error

	deleted   []string
	deleteErr error

	clears   int
	clearErr error

	extractCalls  []types.Category
	extractResult *assistant.ExtractResult
	extractErr    error

	batchCalls  []batchCall
	batchResult *assistant.BatchResult
	batchErr    error

	downloadData []byte
	downloadErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: make(map[string][]assistant.HistoryMessage)}
}

func (f *fakeBackend) ListSessions(context.Context) ([]types.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]types.SessionSummary(nil), f.sessions...), nil
}

func (f *fakeBackend) LoadHistory(_ context.Context, id string) ([]assistant.HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[id], nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeBackend) ClearHistory(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.clearErr
}

func (f *fakeBackend) Chat(_ context.Context, message, sessionID string) (*assistant.ChatResponse, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, chatCall{Message: message, SessionID: sessionID})
	fn := f.chatFn
	f.mu.Unlock()
	if fn != nil {
		return fn(message, sessionID)
	}
	return &assistant.ChatResponse{Response: "Fatto.", SessionID: "sess-1"}, nil
}

func (f *fakeBackend) Extract(_ context.Context, _ *extraction.Image, cat types.Category) (*assistant.ExtractResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls = append(f.extractCalls, cat)
	return f.extractResult, f.extractErr
}

func (f *fakeBackend) BatchCreate(_ context.Context, patients []types.Patient, cat types.Category) (*assistant.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, batchCall{Patients: append([]types.Patient(nil), patients...), Category: cat})
	return f.batchResult, f.batchErr
}

func (f *fakeBackend) Download(context.Context, string, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadData, f.downloadErr
}

func (f *fakeBackend) chats() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.chatCalls...)
}

// =============================================================================
// FAKE CACHE AND NAVIGATOR
// =============================================================================

type fakeCache struct {
	mu      sync.Mutex
	rosters map[string][]types.SessionSummary
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{rosters: make(map[string][]types.SessionSummary)}
}

func (c *fakeCache) ReplaceRoster(scope string, s []types.SessionSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rosters[scope] = append([]types.SessionSummary(nil), s...)
	return nil
}

func (c *fakeCache) Roster(scope string) ([]types.SessionSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]types.SessionSummary(nil), c.rosters[scope]...), nil
}

func (c *fakeCache) Remove(scope, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []types.SessionSummary
	for _, s := range c.rosters[scope] {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	c.rosters[scope] = kept
	return nil
}

func (c *fakeCache) Clear(scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rosters, scope)
	return nil
}

func (c *fakeCache) roster(scope string) []types.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rosters[scope]
}

type fakeNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *fakeNavigator) Open(target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
	return nil
}

func (n *fakeNavigator) opened() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

// =============================================================================
// FAKE SPEECH
// =============================================================================

// scriptedRecognizer emits its transcripts as interim results, the last one final.
type scriptedRecognizer struct {
	transcripts []string
}

func (r *scriptedRecognizer) Name() string    { return "scripted" }
func (r *scriptedRecognizer) Supported() bool { return true }
func (r *scriptedRecognizer) Recognize(_ context.Context, emit func(speech.RecognitionEvent)) error {
	for i, t := range r.transcripts {
		kind := speech.Interim
		if i == len(r.transcripts)-1 {
			kind = speech.Final
		}
		emit(speech.RecognitionEvent{Kind: kind, Transcript: t})
	}
	return nil
}

// =============================================================================
// TEST MODEL
// =============================================================================

const testScope = "Ambulatorio Centrale"

type testEnv struct {
	backend   *fakeBackend
	cache     *fakeCache
	navigator *fakeNavigator
	cfg       *config.Config
	bridge    *speech.Bridge
}

// TestModelOption customizes the harness.
type TestModelOption func(*testEnv)

func withBridge(b *speech.Bridge) TestModelOption {
	return func(e *testEnv) { e.bridge = b }
}

func withConfig(fn func(*config.Config)) TestModelOption {
	return func(e *testEnv) { fn(e.cfg) }
}

// NewTestModel returns a sized model wired to fakes.
func NewTestModel(t *testing.T, opts ...TestModelOption) (Model, *testEnv) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scope = testScope
	cfg.UI.DownloadDir = t.TempDir()
	cfg.UI.OpenCommand = ""

	env := &testEnv{
		backend:   newFakeBackend(),
		cache:     newFakeCache(),
		navigator: &fakeNavigator{},
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(env)
	}

	m := InitChat(Deps{
		Config:    env.cfg,
		Backend:   env.backend,
		Cache:     env.cache,
		Speech:    env.bridge,
		Navigator: env.navigator,
	})
	t.Cleanup(m.Shutdown)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), env
}

// collect runs cmd and returns the messages it produces. Commands that do not
// answer promptly (ticks, blinks) are abandoned.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()

	select {
	case msg := <-out:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var msgs []tea.Msg
			for _, c := range batch {
				msgs = append(msgs, collect(c)...)
			}
			return msgs
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// settle feeds the results of cmd back into the model until nothing is left.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := collect(cmd)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("model did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case spinner.TickMsg, clearNoticeMsg:
			continue
		}
		next, c := m.Update(msg)
		m = next.(Model)
		queue = append(queue, collect(c)...)
	}
	return m
}

// press sends one key and settles its effects.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	return settle(t, next.(Model), cmd)
}

// submit types text into the input and presses Enter.
func submit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.textarea.SetValue(text)
	return press(t, m, keyEnter)
}

var (
	keyEnter     = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc       = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab       = tea.KeyMsg{Type: tea.KeyTab}
	keyUp        = tea.KeyMsg{Type: tea.KeyUp}
	keyDown      = tea.KeyMsg{Type: tea.KeyDown}
	keyAltDelete = tea.KeyMsg{Type: tea.KeyDelete, Alt: true}
)

func alt(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true}
}

// pngFixture writes a file that sniffs as image/png.
func pngFixture(t *testing.T, name string) *extraction.Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	img, err := extraction.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	return img
}

var errOffline = &assistant.ConnectivityError{Op: "test", Err: errors.New("connection refused")}
