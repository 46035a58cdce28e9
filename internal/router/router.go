// Package router decides, for every submitted text, which component consumes
// it. Rules are evaluated in a fixed order and the first match wins.
package router

import (
	"strings"
	"unicode"

	"ambuassist/internal/extraction"
	"ambuassist/internal/types"
	"ambuassist/internal/workflow"
)

// Disposition is where a submitted text goes.
type Disposition int

const (
	Chat Disposition = iota
	WorkflowAnswer
	ConfirmExtraction
	DiscardExtraction
	TriggerExtraction
)

func (d Disposition) String() string {
	switch d {
	case WorkflowAnswer:
		return "workflow-answer"
	case ConfirmExtraction:
		return "extraction-confirm"
	case DiscardExtraction:
		return "extraction-discard"
	case TriggerExtraction:
		return "extraction-trigger"
	default:
		return "chat"
	}
}

// Keyword sets.
var (
	ConfirmKeywords = []string{"conferma", "sì", "si", "ok"}
	DiscardKeywords = []string{"annulla", "no"}
	TriggerKeywords = []string{"picc", "med", "estrai", "aggiungi"}
)

// Snapshot is the state the decision depends on.
type Snapshot struct {
	Workflow   *workflow.RunState
	Extraction *extraction.Pending
}

// Decision is the routing outcome. Text is the submitted text unchanged;
// Category is set for TriggerExtraction.
type Decision struct {
	Disposition Disposition
	Text        string
	Category    types.Category
}

type rule struct {
	name  string
	match func(text, norm string, s Snapshot) (Decision, bool)
}

var rules = []rule{
	{"workflow-answer", matchWorkflow},
	{"extraction-reply", matchExtractionReply},
	{"extraction-trigger", matchTrigger},
	{"chat", func(text, _ string, _ Snapshot) (Decision, bool) {
		return Decision{Disposition: Chat, Text: text}, true
	}},
}

// Route returns the disposition of text given s.
func Route(text string, s Snapshot) Decision {
	norm := normalize(text)
	for _, r := range rules {
		if d, ok := r.match(text, norm, s); ok {
			return d
		}
	}
	return Decision{Disposition: Chat, Text: text}
}

func matchWorkflow(text, _ string, s Snapshot) (Decision, bool) {
	if !s.Workflow.Active() {
		return Decision{}, false
	}
	return Decision{Disposition: WorkflowAnswer, Text: text}, true
}

// Text that matches neither keyword set falls through to the later rules.
func matchExtractionReply(text, norm string, s Snapshot) (Decision, bool) {
	if s.Extraction == nil || !s.Extraction.AwaitingConfirmation() {
		return Decision{}, false
	}
	word := strings.TrimFunc(norm, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })
	switch {
	case contains(ConfirmKeywords, word):
		return Decision{Disposition: ConfirmExtraction, Text: text}, true
	case contains(DiscardKeywords, word):
		return Decision{Disposition: DiscardExtraction, Text: text}, true
	}
	return Decision{}, false
}

func matchTrigger(text, norm string, s Snapshot) (Decision, bool) {
	if s.Extraction == nil || !s.Extraction.ReadyToExtract() {
		return Decision{}, false
	}
	for _, kw := range TriggerKeywords {
		if strings.Contains(norm, kw) {
			return Decision{Disposition: TriggerExtraction, Text: text, Category: InferCategory(norm)}, true
		}
	}
	return Decision{}, false
}

// InferCategory picks the extraction category mentioned in text: MED when
// only "med" appears, PICC_MED when both appear, PICC otherwise.
func InferCategory(text string) types.Category {
	norm := normalize(text)
	hasPICC := strings.Contains(norm, "picc")
	hasMED := strings.Contains(norm, "med")
	switch {
	case hasMED && hasPICC:
		return types.CategoryPICCMED
	case hasMED:
		return types.CategoryMED
	default:
		return types.CategoryPICC
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains(set []string, s string) bool {
	for _, k := range set {
		if k == s {
			return true
		}
	}
	return false
}
