// Package extraction tracks the two-phase image-to-patients flow: an image is
// selected and sent for extraction, then the candidate patients are either
// confirmed as a batch create or discarded.
package extraction

import (
	"errors"
	"fmt"
	"strings"

	"ambuassist/internal/types"

	"github.com/google/uuid"
)

var (
	ErrNoImage              = errors.New("extraction: no image selected")
	ErrBusy                 = errors.New("extraction: extraction already in progress")
	ErrAwaitingConfirmation = errors.New("extraction: previous result awaits confirmation")
	ErrNothingToConfirm     = errors.New("extraction: nothing awaits confirmation")
	ErrStale                = errors.New("extraction: result belongs to a replaced image")
)

// Status is the phase of the pending extraction.
type Status int

const (
	StatusIdle Status = iota
	StatusExtracting
	StatusAwaitingConfirmation
)

func (s Status) String() string {
	switch s {
	case StatusExtracting:
		return "extracting"
	case StatusAwaitingConfirmation:
		return "awaiting-confirmation"
	default:
		return "idle"
	}
}

// Pending is the single pending extraction. Invariant: Entities is non-empty
// only while Status is StatusAwaitingConfirmation.
type Pending struct {
	Image    *Image
	Status   Status
	Entities []types.Patient
	Category types.Category

	// Token identifies the current image; results carrying another token are
	// discarded.
	Token string
}

// HasImage reports whether an image is selected.
func (p *Pending) HasImage() bool { return p.Image != nil }

// Extracting reports whether a remote extraction is in flight.
func (p *Pending) Extracting() bool { return p.Status == StatusExtracting }

// AwaitingConfirmation reports whether candidates await confirm or discard.
func (p *Pending) AwaitingConfirmation() bool { return p.Status == StatusAwaitingConfirmation }

// ReadyToExtract reports whether an image is selected but not yet extracted.
func (p *Pending) ReadyToExtract() bool { return p.Image != nil && p.Status == StatusIdle }

// Select installs img as the pending image, silently replacing whatever was
// pending before (including an in-flight extraction, whose result will then
// be stale). It returns the new token.
func (p *Pending) Select(img *Image) string {
	p.reset()
	p.Image = img
	p.Token = uuid.NewString()
	return p.Token
}

// Begin moves a selected image into the extracting phase for category.
func (p *Pending) Begin(category types.Category) (string, error) {
	switch {
	case p.Image == nil:
		return "", ErrNoImage
	case p.Status == StatusExtracting:
		return "", ErrBusy
	case p.Status == StatusAwaitingConfirmation:
		return "", ErrAwaitingConfirmation
	}
	if category == "" {
		category = types.DefaultCategory
	}
	p.Status = StatusExtracting
	p.Category = category
	return p.Token, nil
}

// Resolve records the extraction result for token. A non-empty result moves to
// awaiting confirmation and reports true; an empty result clears the image.
func (p *Pending) Resolve(token string, entities []types.Patient) (bool, error) {
	if token == "" || token != p.Token || p.Status != StatusExtracting {
		return false, ErrStale
	}
	if len(entities) == 0 {
		p.reset()
		return false, nil
	}
	p.Entities = make([]types.Patient, len(entities))
	copy(p.Entities, entities)
	p.Status = StatusAwaitingConfirmation
	return true, nil
}

// Fail records a failed extraction for token; the image is dropped and no
// retry is attempted.
func (p *Pending) Fail(token string) error {
	if token == "" || token != p.Token || p.Status != StatusExtracting {
		return ErrStale
	}
	p.reset()
	return nil
}

// Batch is what a confirmation submits.
type Batch struct {
	Patients []types.Patient
	Category types.Category
}

// Take removes the awaiting candidates and returns them tagged with the
// most recently offered category. The pending state is cleared before the
// remote create is issued, so a second confirmation finds nothing.
func (p *Pending) Take() (Batch, error) {
	if p.Status != StatusAwaitingConfirmation || len(p.Entities) == 0 {
		return Batch{}, ErrNothingToConfirm
	}
	b := Batch{Category: p.Category, Patients: make([]types.Patient, len(p.Entities))}
	for i, e := range p.Entities {
		e.Category = p.Category
		b.Patients[i] = e
	}
	p.reset()
	return b, nil
}

// Discard drops the image and any candidates. It reports whether anything
// was pending.
func (p *Pending) Discard() bool {
	had := p.Image != nil || len(p.Entities) > 0
	p.reset()
	return had
}

func (p *Pending) reset() {
	*p = Pending{}
}

// =============================================================================
// USER-FACING TEXT
// =============================================================================

// ConfirmationPrompt lists the candidates and explains how to proceed.
func ConfirmationPrompt(entities []types.Patient, category types.Category) string {
	var sb strings.Builder
	if len(entities) == 1 {
		sb.WriteString("Ho trovato 1 paziente nell'immagine:\n")
	} else {
		fmt.Fprintf(&sb, "Ho trovato %d pazienti nell'immagine:\n", len(entities))
	}
	for _, e := range entities {
		fmt.Fprintf(&sb, "- %s\n", e.DisplayName())
	}
	fmt.Fprintf(&sb, "\nVerranno creati come **%s**. Rispondi \"conferma\" per procedere o \"annulla\" per scartarli.", category.Label())
	return sb.String()
}

// EmptyResultText is shown when the image yields no names.
const EmptyResultText = "Non ho trovato nomi di pazienti nell'immagine. Prova con una foto più nitida."

// FailureText is shown when the extraction call fails.
const FailureText = "Non sono riuscito a leggere l'immagine. Riprova selezionandola di nuovo."

// DiscardText acknowledges a discard.
const DiscardText = "Ok, ho scartato i pazienti estratti."

// BatchResultText reports a batch-create outcome.
func BatchResultText(created, failed int) string {
	switch {
	case failed == 0 && created == 1:
		return "Ho creato 1 paziente."
	case failed == 0:
		return fmt.Sprintf("Ho creato %d pazienti.", created)
	default:
		return fmt.Sprintf("Pazienti creati: %d. Non creati: %d.", created, failed)
	}
}
