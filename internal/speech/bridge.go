package speech

import (
	"context"
	"errors"

	"ambuassist/internal/logging"
)

// Capability names one of the two speech capabilities.
type Capability int

const (
	CapRecognition Capability = iota
	CapSynthesis
)

// Notices shown once when a capability is missing.
const (
	RecognitionUnsupportedNotice = "Riconoscimento vocale non supportato"
	SynthesisUnsupportedNotice   = "Sintesi vocale non supportata"
	RecognitionErrorNotice       = "Errore nel riconoscimento vocale"
	SynthesisErrorNotice         = "Errore nella sintesi vocale"
)

// Bridge holds the listening and speaking flags. It is owned by the event
// loop: only the goroutines it starts run concurrently, and they talk back
// exclusively through the returned channels.
type Bridge struct {
	rec Recognizer
	syn Synthesizer

	Listening bool
	Speaking  bool

	session      int
	cancelListen context.CancelFunc
	utterance    int
	cancelSpeak  context.CancelFunc

	noticed map[Capability]bool
}

// NewBridge wraps the given capabilities; nil means disabled.
func NewBridge(rec Recognizer, syn Synthesizer) *Bridge {
	if rec == nil {
		rec = DisabledRecognizer{}
	}
	if syn == nil {
		syn = DisabledSynthesizer{}
	}
	logging.Speech("speech bridge: recognizer=%s(%v) synthesizer=%s(%v)",
		rec.Name(), rec.Supported(), syn.Name(), syn.Supported())
	return &Bridge{rec: rec, syn: syn, noticed: make(map[Capability]bool)}
}

// CanRecognize reports whether speech-to-text is available.
func (b *Bridge) CanRecognize() bool { return b.rec.Supported() }

// CanSynthesize reports whether text-to-speech is available.
func (b *Bridge) CanSynthesize() bool { return b.syn.Supported() }

// UnsupportedNotice returns the notice for a missing capability the first
// time it is requested, and false afterwards.
func (b *Bridge) UnsupportedNotice(c Capability) (string, bool) {
	if b.noticed[c] {
		return "", false
	}
	b.noticed[c] = true
	if c == CapRecognition {
		return RecognitionUnsupportedNotice, true
	}
	return SynthesisUnsupportedNotice, true
}

// StartListening starts a recognition session. Events arrive on the returned
// channel, which is closed after the terminal RecognitionEnd or
// RecognitionError event.
func (b *Bridge) StartListening() (<-chan RecognitionEvent, error) {
	if !b.rec.Supported() {
		return nil, ErrUnsupported
	}
	b.StopListening()

	b.session++
	id := b.session
	ctx, cancel := context.WithCancel(context.Background())
	b.cancelListen = cancel
	b.Listening = true

	out := make(chan RecognitionEvent, 32)
	go func() {
		defer close(out)
		emit := func(ev RecognitionEvent) {
			ev.Session = id
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}
		err := b.rec.Recognize(ctx, emit)
		if err != nil && !errors.Is(err, context.Canceled) {
			out <- RecognitionEvent{Session: id, Kind: RecognitionError, Err: err}
			return
		}
		out <- RecognitionEvent{Session: id, Kind: RecognitionEnd}
	}()

	logging.SpeechDebug("recognition session %d started", id)
	return out, nil
}

// StopListening asks the active session to stop. The flag is cleared when
// its terminal event arrives.
func (b *Bridge) StopListening() bool {
	if b.cancelListen == nil {
		return false
	}
	b.cancelListen()
	b.cancelListen = nil
	return true
}

// RecognitionUpdate is what the input field should do after an event.
type RecognitionUpdate struct {
	// SetInput means Input overwrites the input field.
	SetInput bool
	Input    string
	Notice   string
	Done     bool
}

// HandleRecognition applies ev. Events from a superseded session are ignored.
func (b *Bridge) HandleRecognition(ev RecognitionEvent) RecognitionUpdate {
	if ev.Session != b.session {
		return RecognitionUpdate{}
	}
	switch ev.Kind {
	case Interim, Final:
		return RecognitionUpdate{SetInput: true, Input: ev.Transcript}
	case RecognitionError:
		b.Listening = false
		b.cancelListen = nil
		logging.Get(logging.CategorySpeech).Warn("recognition session %d failed: %v", ev.Session, ev.Err)
		return RecognitionUpdate{Notice: RecognitionErrorNotice, Done: true}
	default:
		b.Listening = false
		b.cancelListen = nil
		logging.SpeechDebug("recognition session %d ended", ev.Session)
		return RecognitionUpdate{Done: true}
	}
}

// Speak replaces any utterance in progress with text. Markdown is stripped
// first. Events arrive on the returned channel, which closes after SpeakEnd
// or SpeakError.
func (b *Bridge) Speak(text string) (<-chan SynthesisEvent, error) {
	if !b.syn.Supported() {
		return nil, ErrUnsupported
	}
	if b.cancelSpeak != nil {
		b.cancelSpeak()
	}

	b.utterance++
	id := b.utterance
	ctx, cancel := context.WithCancel(context.Background())
	b.cancelSpeak = cancel
	plain := StripMarkdown(text)

	out := make(chan SynthesisEvent, 2)
	go func() {
		defer close(out)
		out <- SynthesisEvent{Utterance: id, Kind: SpeakStart}
		err := b.syn.Speak(ctx, plain)
		if err != nil && ctx.Err() == nil {
			out <- SynthesisEvent{Utterance: id, Kind: SpeakError, Err: err}
			return
		}
		out <- SynthesisEvent{Utterance: id, Kind: SpeakEnd}
	}()
	return out, nil
}

// StopSpeaking cancels the current utterance.
func (b *Bridge) StopSpeaking() bool {
	if b.cancelSpeak == nil {
		return false
	}
	b.cancelSpeak()
	b.cancelSpeak = nil
	return true
}

// HandleSynthesis applies ev and returns a notice to show, if any. Events
// of a cancelled utterance do not touch the flag.
func (b *Bridge) HandleSynthesis(ev SynthesisEvent) string {
	if ev.Utterance != b.utterance {
		return ""
	}
	switch ev.Kind {
	case SpeakStart:
		b.Speaking = true
	case SpeakError:
		b.Speaking = false
		b.cancelSpeak = nil
		logging.Get(logging.CategorySpeech).Warn("utterance %d failed: %v", ev.Utterance, ev.Err)
		return SynthesisErrorNotice
	default:
		b.Speaking = false
		b.cancelSpeak = nil
	}
	return ""
}

// SetSynthesizer swaps the text-to-speech capability, stopping any
// utterance in progress. A nil syn disables synthesis.
func (b *Bridge) SetSynthesizer(syn Synthesizer) {
	if syn == nil {
		syn = DisabledSynthesizer{}
	}
	b.StopSpeaking()
	b.Speaking = false
	b.syn = syn
	delete(b.noticed, CapSynthesis)
	logging.Speech("synthesizer replaced: %s(%v)", syn.Name(), syn.Supported())
}

// Close stops both capabilities.
func (b *Bridge) Close() {
	b.StopListening()
	b.StopSpeaking()
}
