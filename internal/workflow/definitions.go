package workflow

import (
	"strings"

	"ambuassist/internal/types"
)

// Workflow ids.
const (
	NewPatient     ID = "new-patient"
	NewAppointment ID = "new-appointment"
	CopyRecord     ID = "copy-record"
	SearchPatient  ID = "search-patient"
)

// Field names shared with suggestion prefills.
const (
	FieldName     = "nome"
	FieldCategory = "tipo"
	FieldCode     = "codice"
	FieldPatient  = "paziente"
	FieldDate     = "data"
	FieldSlot     = "fascia"
	FieldRecord   = "scheda"
)

// Choice labels.
const (
	SlotMorning   = "Mattina (8:00-12:00)"
	SlotAfternoon = "Pomeriggio (14:00-18:00)"
	RecordPICC    = "Scheda impianto PICC"
	RecordMED     = "Scheda gestione MED"
)

// The command phrasings below are understood by the remote interpreter as-is.

// NewPatientDefinition creates a patient: name, category, optional code.
func NewPatientDefinition() *Definition {
	return &Definition{
		ID:    NewPatient,
		Title: "Nuovo paziente",
		Steps: []Step{
			{Prompt: "Come si chiama il paziente? (nome e cognome)", Field: FieldName},
			{
				Prompt:  "Che tipo di paziente è?",
				Field:   FieldCategory,
				Choices: []string{types.CategoryPICC.Label(), types.CategoryMED.Label(), types.CategoryPICCMED.Label()},
				Strict:  true,
			},
			{Prompt: "Codice paziente? (facoltativo, premi Invio per saltare)", Field: FieldCode, Optional: true},
		},
		Build: func(f map[string]string) string {
			cat, ok := types.ParseCategory(f[FieldCategory])
			if !ok {
				cat = types.DefaultCategory
			}
			cmd := "Crea paziente " + f[FieldName] + " tipo " + string(cat)
			if code := f[FieldCode]; code != "" {
				cmd += " codice " + code
			}
			return cmd
		},
	}
}

// NewAppointmentDefinition books an appointment: patient, day, time window.
func NewAppointmentDefinition() *Definition {
	return &Definition{
		ID:    NewAppointment,
		Title: "Nuovo appuntamento",
		Steps: []Step{
			{Prompt: "Per quale paziente?", Field: FieldPatient},
			{Prompt: "Per quando? Scegli o scrivi una data.", Field: FieldDate, Choices: []string{"Oggi", "Domani", "Dopodomani"}},
			{Prompt: "In quale fascia oraria?", Field: FieldSlot, Choices: []string{SlotMorning, SlotAfternoon}, Strict: true},
		},
		Build: func(f map[string]string) string {
			return "dai appuntamento a " + strings.ToLower(f[FieldPatient]) +
				" per " + strings.ToLower(f[FieldDate]) +
				" di " + firstWordLower(f[FieldSlot])
		},
	}
}

// CopyRecordDefinition copies a PICC or MED record to a new date.
func CopyRecordDefinition() *Definition {
	return &Definition{
		ID:    CopyRecord,
		Title: "Copia scheda",
		Steps: []Step{
			{Prompt: "Di quale paziente vuoi copiare la scheda?", Field: FieldPatient},
			{Prompt: "Quale scheda?", Field: FieldRecord, Choices: []string{RecordPICC, RecordMED}, Strict: true},
			{Prompt: "Con quale data? (es. oggi, 12/03)", Field: FieldDate},
		},
		Build: func(f map[string]string) string {
			kind := "impianto picc"
			if f[FieldRecord] == RecordMED {
				kind = "gestione med"
			}
			return "copia scheda " + kind + " di " + strings.ToLower(f[FieldPatient]) +
				" del " + strings.ToLower(f[FieldDate])
		},
	}
}

// SearchPatientDefinition looks a patient up by name.
func SearchPatientDefinition() *Definition {
	return &Definition{
		ID:    SearchPatient,
		Title: "Cerca paziente",
		Steps: []Step{
			{Prompt: "Quale paziente cerchi?", Field: FieldName},
		},
		Build: func(f map[string]string) string {
			return "cerca paziente " + f[FieldName]
		},
	}
}

// DefaultRegistry returns the four built-in workflows.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewPatientDefinition(),
		NewAppointmentDefinition(),
		CopyRecordDefinition(),
		SearchPatientDefinition(),
	)
}

func firstWordLower(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
