package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"unmarked sentinel", "UNMARKED", true},
		{"unmarked lowercase", "unmarked", true},
		{"invalid sentinel", "INVALID", true},
		{"multi sentinel", "MULTI", true},
		{"multiple sentinel", "MULTIPLE", true},
		{"question mark", "?", true},
		{"na sentinel", "NA", true},
		{"blank sentinel", "BLANK", true},
		{"empty sentinel", "EMPTY", true},
		{"numeric", "1", true},
		{"garbage symbols", "##", true},
		{"multi mark", "AB", true},
		{"letter outside range", "F", true},
		{"valid with suffix", "A1", true},
		{"valid with prefix", "-A", true},
		{"valid A", "A", false},
		{"valid B", "B", false},
		{"valid C", "C", false},
		{"valid D", "D", false},
		{"valid E", "E", false},
		{"valid lowercase", "c", false},
		{"valid padded", " D ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.value), "Detect(%q)", tt.value)
		})
	}
}

func TestDetectIssues(t *testing.T) {
	answers := map[string]string{
		"q1": "",
		"q2": "A",
		"q3": "AB",
	}

	issues := DetectIssues(answers, []string{"q1", "q2", "q3"})

	require.Len(t, issues, 2)
	assert.Equal(t, "q1: blank", issues[0])
	assert.Equal(t, "q3: AB", issues[1])
}

func TestDetectIssuesAllClean(t *testing.T) {
	answers := map[string]string{"q1": "A", "q2": "E"}

	issues := DetectIssues(answers, []string{"q1", "q2"})

	assert.Empty(t, issues)
}

func TestDetectIssuesUntrackedKeysIgnored(t *testing.T) {
	answers := map[string]string{"q1": "A", "extra": "??"}

	issues := DetectIssues(answers, []string{"q1"})

	assert.Empty(t, issues)
}
