// Package workflow runs declaratively defined, multi-step guided forms. A
// completed run yields exactly one command string for the remote assistant.
package workflow

import (
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ID names a workflow definition.
type ID string

// Step is one question of a workflow.
type Step struct {
	Prompt   string
	Field    string
	Choices  []string // offered as quick replies
	Strict   bool     // answer must match one of Choices
	Optional bool     // an empty answer is accepted
}

// Definition is a named, ordered list of steps plus a pure command builder.
type Definition struct {
	ID    ID
	Title string
	Steps []Step
	Build func(fields map[string]string) string
}

// resolveChoice maps an answer onto a step's choice set. Matching is
// case-insensitive; a 1-based index ("2") selects by position; the first word
// of a choice ("mattina") selects it; otherwise a single closest choice within
// a small edit distance wins.
func (s Step) resolveChoice(answer string) (string, bool) {
	if c, ok := s.exactChoice(answer); ok {
		return c, true
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(s.Choices) {
		return s.Choices[n-1], true
	}

	norm := strings.ToLower(answer)
	best, bestDist, tie := -1, maxTypoDistance+1, false
	for i, c := range s.Choices {
		for _, cand := range choiceForms(s.Choices, i) {
			if cand == norm {
				return c, true
			}
			d := levenshtein.ComputeDistance(norm, cand)
			if d*2 >= len(cand) {
				continue
			}
			switch {
			case d < bestDist:
				best, bestDist, tie = i, d, false
			case d == bestDist && best != i:
				tie = true
			}
		}
	}
	if best >= 0 && !tie {
		return s.Choices[best], true
	}
	return "", false
}

// exactChoice returns the choice equal to answer, ignoring case.
func (s Step) exactChoice(answer string) (string, bool) {
	for _, c := range s.Choices {
		if strings.EqualFold(c, answer) {
			return c, true
		}
	}
	return "", false
}

// maxTypoDistance bounds the edits tolerated when matching a choice.
const maxTypoDistance = 2

// choiceForms returns the lower-cased full choice plus its first word, unless
// that word is itself another choice or another choice's first word.
func choiceForms(choices []string, i int) []string {
	full := strings.ToLower(choices[i])
	fields := strings.Fields(full)
	if len(fields) < 2 {
		return []string{full}
	}
	for j, other := range choices {
		if j == i {
			continue
		}
		of := strings.Fields(strings.ToLower(other))
		if len(of) > 0 && of[0] == fields[0] {
			return []string{full}
		}
	}
	return []string{full, fields[0]}
}
