// Package speech wraps the speech-to-text and text-to-speech capabilities
// behind small interfaces with feature detection and disabled fallbacks.
// Both capabilities are independent and may run at the same time.
package speech

import (
	"context"
	"errors"

	"ambuassist/internal/config"
)

// ErrUnsupported is returned by a capability that is not available here.
var ErrUnsupported = errors.New("speech: capability not supported")

// RecognitionKind classifies recognition events.
type RecognitionKind int

const (
	Interim RecognitionKind = iota
	Final
	RecognitionEnd
	RecognitionError
)

// RecognitionEvent is one recognizer callback. Transcript is the whole
// utterance heard so far, not a delta.
type RecognitionEvent struct {
	Session    int
	Kind       RecognitionKind
	Transcript string
	Err        error
}

// Recognizer captures one utterance and reports transcripts through emit
// until ctx is cancelled or the utterance ends.
type Recognizer interface {
	Name() string
	Supported() bool
	Recognize(ctx context.Context, emit func(RecognitionEvent)) error
}

// SynthesisKind classifies synthesis events.
type SynthesisKind int

const (
	SpeakStart SynthesisKind = iota
	SpeakEnd
	SpeakError
)

// SynthesisEvent is one synthesizer callback.
type SynthesisEvent struct {
	Utterance int
	Kind      SynthesisKind
	Err       error
}

// Synthesizer speaks text, blocking until playback ends or ctx is cancelled.
type Synthesizer interface {
	Name() string
	Supported() bool
	Speak(ctx context.Context, text string) error
}

// DisabledRecognizer is the fallback when no recognizer is available.
type DisabledRecognizer struct{ Reason string }

func (DisabledRecognizer) Name() string    { return "disabled" }
func (DisabledRecognizer) Supported() bool { return false }
func (DisabledRecognizer) Recognize(context.Context, func(RecognitionEvent)) error {
	return ErrUnsupported
}

// DisabledSynthesizer is the fallback when no synthesizer is available.
type DisabledSynthesizer struct{ Reason string }

func (DisabledSynthesizer) Name() string                        { return "disabled" }
func (DisabledSynthesizer) Supported() bool                     { return false }
func (DisabledSynthesizer) Speak(context.Context, string) error { return ErrUnsupported }

// Detect builds the capabilities described by cfg, falling back to the
// disabled variants when a capability cannot work on this machine.
func Detect(cfg config.SpeechConfig) (Recognizer, Synthesizer) {
	var rec Recognizer = DisabledRecognizer{Reason: "provider none"}
	if cfg.Recognition.Provider == "gcp" {
		g := NewGCPRecognizer(cfg.Language, cfg.Recognition)
		if g.Supported() {
			rec = g
		} else {
			rec = DisabledRecognizer{Reason: "audio capture command not found"}
		}
	}

	var syn Synthesizer = DisabledSynthesizer{Reason: "no synthesis command"}
	if cfg.Synthesis.Command != "" {
		e := NewExecSynthesizer(cfg.Synthesis)
		if e.Supported() {
			syn = e
		} else {
			syn = DisabledSynthesizer{Reason: "synthesis command not found"}
		}
	}
	return rec, syn
}
