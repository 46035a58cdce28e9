package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"ambuassist/internal/config"
	"ambuassist/internal/logging"
)

// ExecSynthesizer speaks through a local command such as espeak-ng. The text
// is passed as the last argument; a positive rate is passed as "-s <rate>".
type ExecSynthesizer struct {
	argv []string
	rate int
}

// NewExecSynthesizer builds a synthesizer from cfg.
func NewExecSynthesizer(cfg config.SynthesisConfig) *ExecSynthesizer {
	return &ExecSynthesizer{argv: strings.Fields(cfg.Command), rate: cfg.Rate}
}

func (e *ExecSynthesizer) Name() string {
	if len(e.argv) == 0 {
		return "exec"
	}
	return "exec:" + e.argv[0]
}

// Supported reports whether the command is on PATH.
func (e *ExecSynthesizer) Supported() bool {
	if len(e.argv) == 0 {
		return false
	}
	_, err := exec.LookPath(e.argv[0])
	return err == nil
}

// Speak runs the command and waits for it; cancelling ctx kills it.
func (e *ExecSynthesizer) Speak(ctx context.Context, text string) error {
	if len(e.argv) == 0 {
		return ErrUnsupported
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	args := append([]string{}, e.argv[1:]...)
	if e.rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.rate))
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, e.argv[0], args...)
	logging.SpeechDebug("speaking %d chars via %s", len(text), e.argv[0])
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", e.argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
