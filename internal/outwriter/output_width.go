package outwriter

import (
	"os"

	"golang.org/x/term"
)

// terminalWidth returns the width of stdout, or 80 when it is not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return width
}

// maxNameWidth calculates how wide the task and schedule columns may be for
// a terminal of the given width.
func maxNameWidth(termWidth int) int {
	// Rank + Kind + Backup + Event + Expected with borders/padding
	baseWidth := 100

	available := (termWidth - baseWidth) / 2
	if available < 12 {
		return 12
	}
	if available > 40 {
		return 40
	}
	return available
}
