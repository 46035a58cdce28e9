package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveChoice(t *testing.T) {
	slot := Step{Choices: []string{SlotMorning, SlotAfternoon}, Strict: true}
	category := Step{Choices: []string{"PICC", "MED", "PICC + MED"}, Strict: true}

	tests := []struct {
		name   string
		step   Step
		answer string
		want   string
		ok     bool
	}{
		{"exact", slot, SlotMorning, SlotMorning, true},
		{"case insensitive", category, "med", "MED", true},
		{"index", slot, "2", SlotAfternoon, true},
		{"index out of range", slot, "3", "", false},
		{"first word", slot, "Pomeriggio", SlotAfternoon, true},
		{"typo in first word", slot, "mattna", SlotMorning, true},
		{"typo in short choice", category, "pic", "PICC", true},
		{"too far", category, "ortopedia", "", false},
		{"unrelated", slot, "sera", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.step.resolveChoice(tt.answer)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_OrderAndReplace(t *testing.T) {
	r := NewRegistry(NewPatientDefinition(), SearchPatientDefinition(), &Definition{ID: NewPatient, Title: "Altro"})
	assert.Equal(t, []ID{NewPatient, SearchPatient}, r.IDs())
	d, ok := r.Get(NewPatient)
	assert.True(t, ok)
	assert.Equal(t, "Altro", d.Title)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}
