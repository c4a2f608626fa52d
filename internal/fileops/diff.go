package fileops

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// diffContext is the number of unchanged lines shown around each hunk.
const diffContext = 3

// unifiedDiff renders a unified diff between two versions of a file.
func unifiedDiff(before, after, path string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(before),
		B:        diffLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  diffContext,
	})
}

// diffLines splits content for diffing. Empty content is an empty sequence,
// not a single empty line, so creating a file diffs as pure additions.
func diffLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}

// countLines counts logical lines the way a renderer would: a trailing
// newline does not start one more line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n") + 1
	if strings.HasSuffix(s, "\n") {
		n--
	}
	return n
}

// countChanges tallies added and removed lines in a unified diff, skipping
// the +++/--- file headers.
func countChanges(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
