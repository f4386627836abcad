package validators

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrPathTraversal is returned when a relative path escapes its root.
var ErrPathTraversal = errors.New("path traversal detected")

var (
	batchIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	templatePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	fileIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	userPattern     = regexp.MustCompile(`^[a-zA-Z0-9@._-]+$`)
	unsafePattern   = regexp.MustCompile(`[<>"'/\\]`)
)

// dangerousFragments are rejected anywhere inside an identifier, case
// insensitively, before the allow-list pattern is applied.
var dangerousFragments = []string{"..", "~", "/etc", "/root", "/sys", "/proc"}

func containsDangerous(value string) bool {
	lower := strings.ToLower(value)
	for _, fragment := range dangerousFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// ValidBatchID reports whether a batch identifier is safe to use in paths.
func ValidBatchID(batchID string) bool {
	if batchID == "" || len(batchID) > 128 {
		return false
	}
	if containsDangerous(batchID) {
		return false
	}
	return batchIDPattern.MatchString(batchID)
}

// ValidTemplateName reports whether a template name is safe to use in paths.
func ValidTemplateName(template string) bool {
	if template == "" || len(template) > 64 {
		return false
	}
	if containsDangerous(template) {
		return false
	}
	return templatePattern.MatchString(template)
}

// ValidFileID reports whether a file identifier is safe to use in paths.
// Dots are allowed so file ids can carry an extension.
func ValidFileID(fileID string) bool {
	if fileID == "" || len(fileID) > 256 {
		return false
	}
	if containsDangerous(fileID) {
		return false
	}
	return fileIDPattern.MatchString(fileID)
}

// ValidAuditUser reports whether an exporting-identity header value is usable.
func ValidAuditUser(user string) bool {
	if user == "" || len(user) > 64 {
		return false
	}
	return userPattern.MatchString(user)
}

// ValidAnswerValue reports whether a reviewer-supplied answer is acceptable:
// a single letter A-E, empty, or the explicit UNMARKED sentinel.
func ValidAnswerValue(value string) bool {
	switch value {
	case "", "UNMARKED", "A", "B", "C", "D", "E":
		return true
	}
	return false
}

// SanitizeUserInput truncates to maxLength and strips characters that could
// escape into markup or paths.
func SanitizeUserInput(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	if len(text) > maxLength {
		text = text[:maxLength]
	}
	text = unsafePattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SafeJoin joins a relative path onto root and guarantees the result stays
// inside root. The returned path is absolute.
func SafeJoin(root, relative string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	candidate := filepath.Clean(filepath.Join(rootAbs, relative))
	if candidate != rootAbs && !strings.HasPrefix(candidate, rootAbs+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return candidate, nil
}
