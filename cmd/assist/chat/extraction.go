package chat

import (
	"errors"
	"fmt"

	"ambuassist/internal/extraction"
	"ambuassist/internal/logging"
	"ambuassist/internal/timeline"
	"ambuassist/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// IMAGE EXTRACTION
// =============================================================================
// Image selection, extraction and confirmation. Extraction results carry the
// pending token so a result for a replaced image is ignored.

const (
	NoImageNotice      = "Seleziona prima un'immagine (Alt+I)"
	ExtractBusyNotice  = "Estrazione già in corso"
	AwaitingNotice     = "Conferma o annulla i pazienti estratti"
	NothingToConfirm   = "Nessun paziente in attesa di conferma"
	NotImageNotice     = "Il file selezionato non è un'immagine"
	ExtractingNotice   = "Analizzo l'immagine..."
	BatchFailureText   = "Non sono riuscito a creare i pazienti. Riprova più tardi."
	imageSelectedFmt   = "Immagine selezionata: %s. Scrivi ad esempio \"estrai picc\" o premi Alt+E."
	extractionStartFmt = "extraction started for %s as %s"
)

func (m Model) openImagePicker() (Model, tea.Cmd, bool) {
	m.filepicker = newImagePicker()
	m.filepicker.Height = m.list.Height() - 2
	m.viewMode = FilePickerView
	return m, m.filepicker.Init(), true
}

// updateFilePicker drives the picker and selects the chosen image.
func (m Model) updateFilePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.viewMode = ChatView
		img, err := extraction.LoadImage(path)
		if err != nil {
			logging.Get(logging.CategoryExtraction).Warn("rejected %s: %v", path, err)
			return m, tea.Batch(cmd, m.setNotice(NotImageNotice))
		}
		return m, tea.Batch(cmd, m.selectImage(img))
	}

	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		logging.Get(logging.CategoryExtraction).Warn("disabled file selected: %s", path)
		return m, tea.Batch(cmd, m.setNotice(NotImageNotice))
	}
	return m, cmd
}

// selectImage replaces any pending extraction with img.
func (m *Model) selectImage(img *extraction.Image) tea.Cmd {
	if m.state.Extraction.HasImage() {
		logging.Extraction("replacing pending image %s", m.state.Extraction.Image.Name)
	}
	m.state.Extraction.Select(img)
	logging.Extraction("image selected: %s (%s, %d bytes)", img.Name, img.MIME, img.Size)
	return m.setNotice(fmt.Sprintf(imageSelectedFmt, img.Name))
}

// startExtraction sends the pending image for extraction as category.
func (m Model) startExtraction(category types.Category) (Model, tea.Cmd, bool) {
	token, err := m.state.Extraction.Begin(category)
	switch {
	case errors.Is(err, extraction.ErrNoImage):
		return m, m.setNotice(NoImageNotice), true
	case errors.Is(err, extraction.ErrBusy):
		return m, m.setNotice(ExtractBusyNotice), true
	case errors.Is(err, extraction.ErrAwaitingConfirmation):
		return m, m.setNotice(AwaitingNotice), true
	case err != nil:
		logging.Get(logging.CategoryExtraction).Error("cannot begin extraction: %v", err)
		return m, nil, true
	}

	p := m.state.Extraction
	logging.Extraction(extractionStartFmt, p.Image.Name, p.Category)
	m.refreshViewport()

	img, cat := p.Image, p.Category
	backend := m.backend
	call := func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		res, err := backend.Extract(ctx, img, cat)
		return extractResultMsg{token: token, result: res, err: err}
	}
	return m, tea.Batch(call, m.spinner.Tick, m.setNotice(ExtractingNotice)), true
}

// handleExtractResult shows the candidates for confirmation, or explains
// why there are none.
func (m Model) handleExtractResult(msg extractResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if err := m.state.Extraction.Fail(msg.token); errors.Is(err, extraction.ErrStale) {
			logging.Extraction("ignoring failure of a replaced extraction")
			return m, nil
		}
		logging.Get(logging.CategoryExtraction).Error("extraction failed: %v", msg.err)
		m.state.Timeline.Assistant(extraction.FailureText)
		m.refreshViewport()
		return m, nil
	}

	var patients []types.Patient
	if msg.result != nil {
		patients = msg.result.Patients
	}
	awaiting, err := m.state.Extraction.Resolve(msg.token, patients)
	if errors.Is(err, extraction.ErrStale) {
		logging.Extraction("ignoring result of a replaced extraction")
		return m, nil
	}
	if err != nil {
		logging.Get(logging.CategoryExtraction).Error("cannot resolve extraction: %v", err)
		return m, nil
	}

	if !awaiting {
		m.state.Timeline.Assistant(extraction.EmptyResultText)
		m.refreshViewport()
		return m, nil
	}

	p := m.state.Extraction
	logging.Extraction("%d candidates awaiting confirmation as %s", len(p.Entities), p.Category)
	m.state.Timeline.Append(timeline.Message{
		Role:            types.RoleAssistant,
		Content:         extraction.ConfirmationPrompt(p.Entities, p.Category),
		Choices:         []string{"conferma", "annulla"},
		Extracted:       append([]types.Patient(nil), p.Entities...),
		DefaultCategory: p.Category,
	})
	m.selectedOption = 0
	m.refreshViewport()
	return m, nil
}

// confirmExtraction batch-creates the awaiting candidates. The pending state
// is cleared before the call, so a second confirm finds nothing.
func (m Model) confirmExtraction() (Model, tea.Cmd, bool) {
	batch, err := m.state.Extraction.Take()
	if err != nil {
		m.refreshViewport()
		return m, m.setNotice(NothingToConfirm), true
	}

	m.isBatching = true
	m.refreshViewport()
	logging.Extraction("confirming %d candidates as %s", len(batch.Patients), batch.Category)

	backend := m.backend
	call := func() tea.Msg {
		ctx, cancel := m.callCtx()
		defer cancel()
		res, err := backend.BatchCreate(ctx, batch.Patients, batch.Category)
		return batchResultMsg{requested: len(batch.Patients), result: res, err: err}
	}
	return m, tea.Batch(call, m.spinner.Tick), true
}

func (m Model) handleBatchResult(msg batchResultMsg) (tea.Model, tea.Cmd) {
	m.isBatching = false
	if msg.err != nil {
		logging.Get(logging.CategoryExtraction).Error("batch create of %d failed: %v", msg.requested, msg.err)
		m.state.Timeline.Assistant(BatchFailureText)
		m.refreshViewport()
		return m, nil
	}

	var created, failed int
	if msg.result != nil {
		created, failed = int(msg.result.Created), int(msg.result.Errors)
	}
	logging.Extraction("batch create: %d created, %d failed", created, failed)
	m.state.Timeline.Assistant(extraction.BatchResultText(created, failed))
	m.refreshViewport()
	return m, nil
}

func (m Model) discardExtraction() (Model, tea.Cmd, bool) {
	if !m.state.Extraction.Discard() {
		m.refreshViewport()
		return m, m.setNotice(NothingToConfirm), true
	}
	logging.Extraction("pending extraction discarded")
	m.state.Timeline.Assistant(extraction.DiscardText)
	m.refreshViewport()
	return m, nil, true
}
