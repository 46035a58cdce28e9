// Package types holds the domain records shared by the assistant components:
// patient categories, patient identities and chat roles.
package types

import (
	"strings"
)

// =============================================================================
// PATIENT CATEGORIES
// =============================================================================

// Category is the care-pathway classification attached to a patient record.
type Category string

const (
	CategoryPICC    Category = "PICC"     // Peripherally inserted central catheter pathway
	CategoryMED     Category = "MED"      // Wound care / dressing pathway
	CategoryPICCMED Category = "PICC_MED" // Both pathways
)

// DefaultCategory is used whenever no category can be inferred.
const DefaultCategory = CategoryPICC

// ParseCategory normalizes the spellings the backend and the user produce
// ("picc", "PICC + MED", "picc_med", "MED") into a Category.
func ParseCategory(s string) (Category, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "+", "_", "-", "_").Replace(norm)
	switch norm {
	case "PICC":
		return CategoryPICC, true
	case "MED":
		return CategoryMED, true
	case "PICC_MED", "MED_PICC":
		return CategoryPICCMED, true
	}
	return "", false
}

// IncludesPICC reports whether the category covers the PICC pathway.
func (c Category) IncludesPICC() bool {
	return c == CategoryPICC || c == CategoryPICCMED
}

// IncludesMED reports whether the category covers the MED pathway.
func (c Category) IncludesMED() bool {
	return c == CategoryMED || c == CategoryPICCMED
}

// Label returns the user-facing label ("PICC + MED" for the combined pathway).
func (c Category) Label() string {
	if c == CategoryPICCMED {
		return "PICC + MED"
	}
	return string(c)
}

// =============================================================================
// PATIENTS
// =============================================================================

// Patient is the identity of a person record as exchanged with the backend.
// ID is empty for candidates that have not been created yet.
type Patient struct {
	ID        string   `json:"id,omitempty"`
	FirstName string   `json:"nome"`
	LastName  string   `json:"cognome"`
	Category  Category `json:"tipo,omitempty"`
}

// DisplayName renders "Nome Cognome", tolerating missing parts.
func (p Patient) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// =============================================================================
// CHAT ROLES
// =============================================================================

// Role identifies the author of a timeline message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// =============================================================================
// SESSIONS
// =============================================================================

// SessionSummary is a roster entry: a past conversation and its preview.
type SessionSummary struct {
	ID            string `json:"session_id"`
	LastMessage   string `json:"last_message"`
	LastTimestamp string `json:"last_timestamp"`
}
