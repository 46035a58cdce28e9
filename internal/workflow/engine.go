package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownWorkflow = errors.New("workflow: unknown definition")
	ErrNotActive       = errors.New("workflow: no active workflow")
	ErrAnswerRequired  = errors.New("workflow: answer required")
	ErrInvalidChoice   = errors.New("workflow: answer is not one of the offered choices")
)

// RunState is the progress of the single active workflow. The zero value is
// inactive. While active, Index always names a valid step of the definition.
type RunState struct {
	ID     ID
	Index  int
	Fields map[string]string
}

// Active reports whether a workflow is running.
func (rs *RunState) Active() bool {
	return rs != nil && rs.ID != ""
}

// Prompt is what the engine asks next.
type Prompt struct {
	Title    string
	Text     string
	Choices  []string
	Optional bool
	Step     int // 1-based
	Total    int
}

// Outcome is the result of a transition: either a Next prompt, or Done with
// the synthesized Command.
type Outcome struct {
	Next    *Prompt
	Done    bool
	Command string
}

// Engine drives RunStates against a registry of definitions.
type Engine struct {
	reg *Registry
}

// NewEngine returns an engine over reg.
func NewEngine(reg *Registry) *Engine {
	return &Engine{reg: reg}
}

// Registry returns the engine's definitions.
func (e *Engine) Registry() *Registry { return e.reg }

// Start activates workflow id in rs, replacing any run in progress. Fields in
// prefill are recorded up front and their steps are skipped; if every step is
// prefilled the run completes immediately.
func (e *Engine) Start(rs *RunState, id ID, prefill map[string]string) (Outcome, error) {
	def, ok := e.reg.Get(id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, id)
	}
	rs.ID = id
	rs.Index = 0
	rs.Fields = make(map[string]string, len(def.Steps))
	for k, v := range prefill {
		rs.Fields[k] = strings.TrimSpace(v)
	}
	return e.advance(rs, def, 0), nil
}

// Current returns the prompt of the active step.
func (e *Engine) Current(rs *RunState) (Prompt, bool) {
	if !rs.Active() {
		return Prompt{}, false
	}
	def, ok := e.reg.Get(rs.ID)
	if !ok {
		return Prompt{}, false
	}
	return promptFor(def, rs.Index), true
}

// Title returns the title of the active workflow.
func (e *Engine) Title(rs *RunState) string {
	if !rs.Active() {
		return ""
	}
	if def, ok := e.reg.Get(rs.ID); ok {
		return def.Title
	}
	return string(rs.ID)
}

// Answer records answer for the current step and moves on. On a validation
// error the state is left untouched so the caller can re-ask.
func (e *Engine) Answer(rs *RunState, answer string) (Outcome, error) {
	if !rs.Active() {
		return Outcome{}, ErrNotActive
	}
	def, ok := e.reg.Get(rs.ID)
	if !ok {
		Abandon(rs)
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, rs.ID)
	}

	step := def.Steps[rs.Index]
	answer = strings.TrimSpace(answer)
	switch {
	case answer == "" && !step.Optional:
		return Outcome{}, ErrAnswerRequired
	case answer != "" && step.Strict:
		choice, ok := step.resolveChoice(answer)
		if !ok {
			return Outcome{}, ErrInvalidChoice
		}
		answer = choice
	case answer != "":
		// Free text: only an exact choice is normalized, anything else is kept as typed.
		if choice, ok := step.exactChoice(answer); ok {
			answer = choice
		}
	}

	rs.Fields[step.Field] = answer
	return e.advance(rs, def, rs.Index+1), nil
}

// advance moves to the first step at or after from whose field is not yet
// filled, or completes the run.
func (e *Engine) advance(rs *RunState, def *Definition, from int) Outcome {
	for i := from; i < len(def.Steps); i++ {
		if _, filled := rs.Fields[def.Steps[i].Field]; filled {
			continue
		}
		rs.Index = i
		p := promptFor(def, i)
		return Outcome{Next: &p}
	}

	cmd := def.Build(rs.Fields)
	Abandon(rs)
	return Outcome{Done: true, Command: cmd}
}

// Abandon clears rs. It reports whether a workflow was active.
func Abandon(rs *RunState) bool {
	was := rs.Active()
	rs.ID = ""
	rs.Index = 0
	rs.Fields = nil
	return was
}

func promptFor(def *Definition, i int) Prompt {
	s := def.Steps[i]
	choices := make([]string, len(s.Choices))
	copy(choices, s.Choices)
	return Prompt{
		Title:    def.Title,
		Text:     s.Prompt,
		Choices:  choices,
		Optional: s.Optional,
		Step:     i + 1,
		Total:    len(def.Steps),
	}
}
