// Package memory keeps the short-lived conversational context (the last
// patient the assistant acted on) and derives quick suggestions from it.
package memory

import (
	"strings"

	"ambuassist/internal/types"
	"ambuassist/internal/workflow"
)

// Context is the last referenced patient and the action performed on it.
// It only feeds suggestions; it never rewrites commands.
type Context struct {
	LastEntity *types.Patient
	LastAction string
}

// Observe records the structured result of a successful chat turn. The
// record is overwritten, not merged, and only when entity is non-nil.
func (c *Context) Observe(entity *types.Patient, action string) bool {
	if entity == nil {
		return false
	}
	e := *entity
	c.LastEntity = &e
	c.LastAction = action
	return true
}

// Clear forgets the context.
func (c *Context) Clear() {
	c.LastEntity = nil
	c.LastAction = ""
}

// Kind is what a suggestion does when picked.
type Kind int

const (
	KindChat Kind = iota
	KindWorkflow
	KindClearMemory
)

// Suggestion is a quick action.
type Suggestion struct {
	Label    string
	Kind     Kind
	Command  string            // KindChat
	Workflow workflow.ID       // KindWorkflow
	Prefill  map[string]string // KindWorkflow
}

// StatsQuery is the monthly statistics question of the generic menu.
const StatsQuery = "Quanti PICC ho impiantato questo mese?"

// Suggestions computes the quick actions for c. It does not modify c.
func Suggestions(c Context) []Suggestion {
	if c.LastEntity == nil {
		return generic()
	}

	e := *c.LastEntity
	name := e.DisplayName()
	out := []Suggestion{
		{Label: "Apri cartella", Kind: KindChat, Command: "apri cartella di " + strings.ToLower(name)},
		{
			Label:    "Appuntamento",
			Kind:     KindWorkflow,
			Workflow: workflow.NewAppointment,
			Prefill:  map[string]string{workflow.FieldPatient: name},
		},
	}
	if e.Category.IncludesPICC() {
		out = append(out, Suggestion{
			Label:    "Copia scheda PICC",
			Kind:     KindWorkflow,
			Workflow: workflow.CopyRecord,
			Prefill:  map[string]string{workflow.FieldPatient: name, workflow.FieldRecord: workflow.RecordPICC},
		})
	}
	if e.Category.IncludesMED() {
		out = append(out, Suggestion{
			Label:    "Copia scheda MED",
			Kind:     KindWorkflow,
			Workflow: workflow.CopyRecord,
			Prefill:  map[string]string{workflow.FieldPatient: name, workflow.FieldRecord: workflow.RecordMED},
		})
	}
	return append(out, Suggestion{Label: "Cambia paziente", Kind: KindClearMemory})
}

func generic() []Suggestion {
	return []Suggestion{
		{Label: "Nuovo paziente", Kind: KindWorkflow, Workflow: workflow.NewPatient},
		{Label: "Nuovo appuntamento", Kind: KindWorkflow, Workflow: workflow.NewAppointment},
		{Label: "Statistiche del mese", Kind: KindChat, Command: StatsQuery},
		{Label: "Copia scheda", Kind: KindWorkflow, Workflow: workflow.CopyRecord},
		{Label: "Cerca paziente", Kind: KindWorkflow, Workflow: workflow.SearchPatient},
	}
}

// Heading is the title shown above the suggestions.
func Heading(c Context) string {
	if c.LastEntity == nil {
		return "Azioni rapide"
	}
	return "Azioni per " + c.LastEntity.DisplayName()
}
