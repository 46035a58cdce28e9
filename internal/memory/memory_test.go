package memory

import (
	"testing"

	"ambuassist/internal/types"
	"ambuassist/internal/workflow"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func labels(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, x := range s {
		out[i] = x.Label
	}
	return out
}

func TestSuggestions_Generic(t *testing.T) {
	got := labels(Suggestions(Context{}))
	want := []string{"Nuovo paziente", "Nuovo appuntamento", "Statistiche del mese", "Copia scheda", "Cerca paziente"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("generic menu mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Azioni rapide", Heading(Context{}))
}

func TestSuggestions_CategoryConditional(t *testing.T) {
	tests := []struct {
		cat  types.Category
		want []string
	}{
		{types.CategoryPICC, []string{"Apri cartella", "Appuntamento", "Copia scheda PICC", "Cambia paziente"}},
		{types.CategoryMED, []string{"Apri cartella", "Appuntamento", "Copia scheda MED", "Cambia paziente"}},
		{types.CategoryPICCMED, []string{"Apri cartella", "Appuntamento", "Copia scheda PICC", "Copia scheda MED", "Cambia paziente"}},
		{"", []string{"Apri cartella", "Appuntamento", "Cambia paziente"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			c := Context{LastEntity: &types.Patient{FirstName: "Mario", LastName: "Rossi", Category: tt.cat}}
			assert.Equal(t, tt.want, labels(Suggestions(c)))
		})
	}
}

func TestSuggestions_EntityPayloads(t *testing.T) {
	c := Context{LastEntity: &types.Patient{FirstName: "Mario", LastName: "Rossi", Category: types.CategoryPICCMED}}
	s := Suggestions(c)

	assert.Equal(t, KindChat, s[0].Kind)
	assert.Equal(t, "apri cartella di mario rossi", s[0].Command)

	assert.Equal(t, workflow.NewAppointment, s[1].Workflow)
	assert.Equal(t, map[string]string{workflow.FieldPatient: "Mario Rossi"}, s[1].Prefill)

	assert.Equal(t, workflow.RecordPICC, s[2].Prefill[workflow.FieldRecord])
	assert.Equal(t, workflow.RecordMED, s[3].Prefill[workflow.FieldRecord])
	assert.Equal(t, KindClearMemory, s[4].Kind)
	assert.Equal(t, "Azioni per Mario Rossi", Heading(c))
}

func TestSuggestions_ReadOnly(t *testing.T) {
	p := &types.Patient{FirstName: "Anna", LastName: "Bianchi", Category: types.CategoryMED}
	c := Context{LastEntity: p, LastAction: "open"}
	before := *p
	_ = Suggestions(c)
	assert.Equal(t, before, *c.LastEntity)
	assert.Equal(t, "open", c.LastAction)
}

func TestObserve_OverwritesAndIgnoresNil(t *testing.T) {
	var c Context
	assert.False(t, c.Observe(nil, "stats"))
	assert.Nil(t, c.LastEntity)

	first := &types.Patient{ID: "1", FirstName: "Mario", LastName: "Rossi", Category: types.CategoryPICC}
	assert.True(t, c.Observe(first, "open_patient"))
	first.LastName = "mutated"
	assert.Equal(t, "Rossi", c.LastEntity.LastName, "memory keeps its own copy")

	assert.True(t, c.Observe(&types.Patient{FirstName: "Anna", LastName: "Bianchi"}, ""))
	assert.Equal(t, "Bianchi", c.LastEntity.LastName)
	assert.Equal(t, types.Category(""), c.LastEntity.Category, "fields are not merged")
	assert.Equal(t, "", c.LastAction)

	assert.False(t, c.Observe(nil, "x"))
	assert.Equal(t, "Bianchi", c.LastEntity.LastName, "a result without entity leaves memory alone")

	c.Clear()
	assert.Equal(t, Context{}, c)
}
