package tools

import (
	"fmt"
	"strings"
)

// longLineLimit is the display width above which a line is split into
// continuation rows. Storage is never split; this is rendering only.
const longLineLimit = 10000

// formatWithLineNumbers renders lines cat -n style: a six-wide right
// aligned line number, a tab, then the text. Lines longer than
// longLineLimit continue on rows labeled "N.1", "N.2", ... so one
// pathological line cannot produce an unreadable row.
func formatWithLineNumbers(lines []string, startLine int) string {
	var out []string
	for i, line := range lines {
		number := startLine + i
		if len(line) <= longLineLimit {
			out = append(out, fmt.Sprintf("%6d\t%s", number, line))
			continue
		}
		for k := 0; len(line) > 0; k++ {
			chunk := line
			if len(chunk) > longLineLimit {
				chunk = chunk[:longLineLimit]
			}
			line = line[len(chunk):]
			label := fmt.Sprintf("%d", number)
			if k > 0 {
				label = fmt.Sprintf("%d.%d", number, k)
			}
			out = append(out, fmt.Sprintf("%6s\t%s", label, chunk))
		}
	}
	return strings.Join(out, "\n")
}
