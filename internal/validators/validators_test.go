package validators

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidBatchID(t *testing.T) {
	tests := []struct {
		name    string
		batchID string
		want    bool
	}{
		{"simple", "batch-001", true},
		{"underscores", "exam_2026_A", true},
		{"empty", "", false},
		{"traversal", "../etc", false},
		{"slash", "a/b", false},
		{"tilde", "~root", false},
		{"spaces", "batch 1", false},
		{"too long", strings.Repeat("a", 129), false},
		{"max length", strings.Repeat("a", 128), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidBatchID(tt.batchID))
		})
	}
}

func TestValidTemplateName(t *testing.T) {
	assert.True(t, ValidTemplateName("enem-2026"))
	assert.False(t, ValidTemplateName(""))
	assert.False(t, ValidTemplateName("..template"))
	assert.False(t, ValidTemplateName(strings.Repeat("t", 65)))
}

func TestValidFileID(t *testing.T) {
	assert.True(t, ValidFileID("sheet-001.png"))
	assert.True(t, ValidFileID("scan_42"))
	assert.False(t, ValidFileID("../sheet.png"))
	assert.False(t, ValidFileID("dir/sheet.png"))
	assert.False(t, ValidFileID(""))
}

func TestValidAuditUser(t *testing.T) {
	assert.True(t, ValidAuditUser("reviewer@example.com"))
	assert.True(t, ValidAuditUser("maria.silva"))
	assert.False(t, ValidAuditUser(""))
	assert.False(t, ValidAuditUser("user name"))
	assert.False(t, ValidAuditUser(strings.Repeat("u", 65)))
}

func TestValidAnswerValue(t *testing.T) {
	for _, value := range []string{"A", "B", "C", "D", "E", "", "UNMARKED"} {
		assert.True(t, ValidAnswerValue(value), "value %q", value)
	}
	for _, value := range []string{"F", "a", "AB", "?", "INVALID", "1"} {
		assert.False(t, ValidAnswerValue(value), "value %q", value)
	}
}

func TestSanitizeUserInput(t *testing.T) {
	assert.Equal(t, "scriptalert(1)script", SanitizeUserInput(`<script>alert(1)</script>`, 256))
	assert.Equal(t, "plain note", SanitizeUserInput("  plain note  ", 256))
	assert.Equal(t, "abc", SanitizeUserInput("abcdef", 3))
	assert.Equal(t, "", SanitizeUserInput("", 10))
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	joined, err := SafeJoin(root, "batch-1/results.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "batch-1", "results.csv"), joined)

	_, err = SafeJoin(root, "../outside.csv")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = SafeJoin(root, "a/../../outside.csv")
	assert.ErrorIs(t, err, ErrPathTraversal)

	// The root itself resolves fine.
	joined, err = SafeJoin(root, ".")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), joined)
}
