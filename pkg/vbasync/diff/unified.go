package diff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines shown around each hunk.
const ContextLines = 3

// Unified renders a unified diff of two texts for preview. Line ends are
// normalized so CRLF sources render like LF ones.
func Unified(oldName, newName, old, new string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lf(Lines(old)),
		B:        lf(Lines(new)),
		FromFile: oldName,
		ToFile:   newName,
		Context:  ContextLines,
	})
}

func lf(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
