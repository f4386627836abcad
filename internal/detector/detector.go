package detector

import (
	"fmt"
	"strings"
	"unicode"
)

// problemValues are recognition outputs that always need a human look.
var problemValues = map[string]struct{}{
	"":         {},
	"UNMARKED": {},
	"INVALID":  {},
	"MULTI":    {},
	"MULTIPLE": {},
	"?":        {},
	"NA":       {},
	"BLANK":    {},
	"EMPTY":    {},
}

// validAlternatives are the letters a sheet can legitimately mark.
var validAlternatives = map[rune]struct{}{
	'A': {},
	'B': {},
	'C': {},
	'D': {},
	'E': {},
}

// Detect reports whether a recognized answer value needs human review.
func Detect(value string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return true
	}
	if _, ok := problemValues[normalized]; ok {
		return true
	}

	var letters []rune
	seen := map[rune]struct{}{}
	for _, r := range normalized {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
			seen[r] = struct{}{}
		}
	}

	// Purely numeric or garbage values carry no answer at all.
	if len(letters) == 0 {
		return true
	}
	// More than one distinct letter means a multi-mark.
	if len(seen) > 1 {
		return true
	}

	only := letters[0]
	if _, ok := validAlternatives[only]; !ok {
		return true
	}
	// A valid letter surrounded by noise ("A1", "-A") is still suspect.
	return normalized != string(only)
}

// DetectIssues runs Detect over the tracked question keys and returns one
// "question: value" entry per triggering question, preserving key order.
func DetectIssues(answers map[string]string, questionKeys []string) []string {
	var issues []string
	for _, question := range questionKeys {
		value := strings.TrimSpace(answers[question])
		if Detect(value) {
			display := value
			if display == "" {
				display = "blank"
			}
			issues = append(issues, fmt.Sprintf("%s: %s", question, display))
		}
	}
	return issues
}
