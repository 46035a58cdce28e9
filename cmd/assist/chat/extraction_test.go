package chat

import (
	"strings"
	"testing"

	"ambuassist/internal/assistant"
	"ambuassist/internal/extraction"
	"ambuassist/internal/types"

	"github.com/google/go-cmp/cmp"
)

func extracted(names ...string) *assistant.ExtractResult {
	res := &assistant.ExtractResult{Count: len(names)}
	for _, n := range names {
		first, last, _ := strings.Cut(n, " ")
		res.Patients = append(res.Patients, types.Patient{FirstName: first, LastName: last})
	}
	return res
}

// withImage selects a fresh PNG fixture.
func withImage(t *testing.T, m Model, name string) Model {
	t.Helper()
	m.selectImage(pngFixture(t, name))
	return m
}

func TestExtraction_ConfirmCreatesBatch(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = extracted("Mario Rossi", "Anna Bianchi", "Luca Verdi")
	env.backend.batchResult = &assistant.BatchResult{Created: 3}

	m = withImage(t, m, "lista.png")
	m = submit(t, m, "estrai picc")

	if diff := cmp.Diff([]types.Category{types.CategoryPICC}, env.backend.extractCalls); diff != "" {
		t.Errorf("extract calls mismatch (-want +got):\n%s", diff)
	}
	if !m.state.Extraction.AwaitingConfirmation() {
		t.Fatalf("expected candidates awaiting confirmation, status %v", m.state.Extraction.Status)
	}
	last, _ := m.state.Timeline.Last()
	if diff := cmp.Diff([]string{"conferma", "annulla"}, last.Choices); diff != "" {
		t.Errorf("confirmation choices mismatch (-want +got):\n%s", diff)
	}
	if len(last.Extracted) != 3 {
		t.Errorf("extracted list = %+v", last.Extracted)
	}

	m = submit(t, m, "conferma")

	if len(env.backend.batchCalls) != 1 {
		t.Fatalf("batch calls = %d, want 1", len(env.backend.batchCalls))
	}
	call := env.backend.batchCalls[0]
	if call.Category != types.CategoryPICC || len(call.Patients) != 3 {
		t.Errorf("batch call = %+v", call)
	}
	for _, p := range call.Patients {
		if p.Category != types.CategoryPICC {
			t.Errorf("patient %s tagged %q", p.DisplayName(), p.Category)
		}
	}
	last, _ = m.state.Timeline.Last()
	if last.Content != "Ho creato 3 pazienti." {
		t.Errorf("last message = %q", last.Content)
	}
	if m.isBatching {
		t.Errorf("batch flag should be cleared")
	}
	if n := len(env.backend.chats()); n != 0 {
		t.Errorf("extraction flow must not reach the chat, got %d calls", n)
	}
}

func TestExtraction_SecondConfirmFindsNothing(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = extracted("Mario Rossi")
	env.backend.batchResult = &assistant.BatchResult{Created: 1}

	m = withImage(t, m, "uno.png")
	m = press(t, m, alt('e'))
	m = press(t, m, alt('y'))
	m = press(t, m, alt('y'))

	if len(env.backend.batchCalls) != 1 {
		t.Errorf("batch calls = %d, want 1", len(env.backend.batchCalls))
	}
	if m.notice != NothingToConfirm {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestExtraction_PartialBatch(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = extracted("Mario Rossi", "Anna Bianchi", "Luca Verdi")
	env.backend.batchResult = &assistant.BatchResult{Created: 1, Errors: 2}

	m = withImage(t, m, "lista.png")
	m = submit(t, m, "aggiungi med")
	m = submit(t, m, "sì")

	if env.backend.batchCalls[0].Category != types.CategoryMED {
		t.Errorf("category = %q, want MED", env.backend.batchCalls[0].Category)
	}
	last, _ := m.state.Timeline.Last()
	if last.Content != "Pazienti creati: 1. Non creati: 2." {
		t.Errorf("last message = %q", last.Content)
	}
}

func TestExtraction_EmptyResult(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = &assistant.ExtractResult{}

	m = withImage(t, m, "vuota.png")
	m = submit(t, m, "estrai")

	last, _ := m.state.Timeline.Last()
	if last.Content != extraction.EmptyResultText {
		t.Errorf("last message = %q", last.Content)
	}
	if m.state.Extraction.HasImage() {
		t.Errorf("empty result should clear the pending image")
	}
}

func TestExtraction_Failure(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractErr = errOffline

	m = withImage(t, m, "lista.png")
	m = press(t, m, alt('e'))

	last, _ := m.state.Timeline.Last()
	if last.Content != extraction.FailureText {
		t.Errorf("last message = %q", last.Content)
	}
	if m.state.Extraction.Extracting() {
		t.Errorf("failure should leave the extracting phase")
	}
}

func TestExtraction_StaleResultIgnored(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = extracted("Mario Rossi")

	m = withImage(t, m, "prima.png")
	next, pending := m.Update(alt('e'))
	m = next.(Model)

	m = withImage(t, m, "seconda.png")
	m = settle(t, m, pending)

	if m.state.Extraction.AwaitingConfirmation() {
		t.Errorf("result for the replaced image was applied")
	}
	if !m.state.Extraction.ReadyToExtract() || m.state.Extraction.Image.Name != "seconda.png" {
		t.Errorf("the new image should be ready, got %+v", m.state.Extraction)
	}
	for _, msg := range m.state.Timeline.Messages() {
		if len(msg.Extracted) > 0 {
			t.Errorf("stale candidates shown: %+v", msg)
		}
	}
}

func TestExtraction_Discard(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = extracted("Mario Rossi", "Anna Bianchi")

	m = withImage(t, m, "lista.png")
	m = submit(t, m, "estrai picc")
	m = submit(t, m, "annulla")

	last, _ := m.state.Timeline.Last()
	if last.Content != extraction.DiscardText {
		t.Errorf("last message = %q", last.Content)
	}
	if m.state.Extraction.HasImage() || len(env.backend.batchCalls) != 0 {
		t.Errorf("discard should drop everything without creating")
	}
	if n := len(env.backend.chats()); n != 0 {
		t.Errorf("discard must not reach the chat, got %d calls", n)
	}
}

func TestExtraction_OtherTextWhileAwaitingGoesToChat(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)
	env.backend.extractResult = extracted("Mario Rossi")

	m = withImage(t, m, "lista.png")
	m = submit(t, m, "estrai")
	m = submit(t, m, "quanti appuntamenti oggi?")

	if calls := env.backend.chats(); len(calls) != 1 {
		t.Errorf("chat calls = %+v", calls)
	}
	if !m.state.Extraction.AwaitingConfirmation() {
		t.Errorf("candidates should still await confirmation")
	}
}

func TestExtraction_NoImage(t *testing.T) {
	t.Parallel()
	m, env := NewTestModel(t)

	m = press(t, m, alt('e'))
	if m.notice != NoImageNotice {
		t.Errorf("notice = %q", m.notice)
	}
	if len(env.backend.extractCalls) != 0 {
		t.Errorf("extract called without an image")
	}
}
