// Package textnorm cleans up free text returned by the language model before
// it is used as a dish name, description or ingredient list.
package textnorm

import (
	"errors"
	"regexp"
	"strings"
)

// edgePunctuation matches runs of characters outside ASCII letters, digits and
// Hangul syllables at either end of a string.
var edgePunctuation = regexp.MustCompile(`^[^a-zA-Z0-9가-힣]+|[^a-zA-Z0-9가-힣]+$`)

var (
	// ErrNoSeparator is returned when a dish answer has no "(" separating the
	// name from its description.
	ErrNoSeparator = errors.New("no dish name/description separator found")
	// ErrEmptyName is returned when nothing is left of the dish name after cleanup.
	ErrEmptyName = errors.New("empty dish name")
	// ErrEmptyDescription is returned when nothing is left of the description after cleanup.
	ErrEmptyDescription = errors.New("empty dish description")
)

// CandidateName is a dish suggested by the model: a Korean name and an
// English description used for image rendering.
type CandidateName struct {
	Name        string
	Description string
}

// StripEdgePunctuation removes leading and trailing characters that are not
// letters, digits or Hangul. Interior characters are kept as they are.
// Empty or whitespace-only input is returned unchanged.
func StripEdgePunctuation(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return edgePunctuation.ReplaceAllString(s, "")
}

// StripLabelPrefix drops everything up to and including the first colon,
// e.g. "재료: 설탕 2컵" becomes "설탕 2컵".
func StripLabelPrefix(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// ParseDishAnswer splits a single-line answer of the form
// "한국이름(english description)" on its first "(".
func ParseDishAnswer(raw string) (CandidateName, error) {
	raw = strings.TrimSpace(raw)
	i := strings.Index(raw, "(")
	if i < 0 {
		return CandidateName{}, ErrNoSeparator
	}

	name := StripEdgePunctuation(strings.TrimSpace(raw[:i]))
	desc := strings.TrimSpace(raw[i+1:])
	desc = StripEdgePunctuation(strings.TrimSpace(strings.TrimRight(desc, ")")))

	if strings.TrimSpace(name) == "" {
		return CandidateName{}, ErrEmptyName
	}
	if strings.TrimSpace(desc) == "" {
		return CandidateName{}, ErrEmptyDescription
	}

	return CandidateName{Name: name, Description: desc}, nil
}
