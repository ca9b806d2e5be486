package position

import (
	"fmt"
	"strings"
)

// Snippet renders the source line holding pos with a caret under the
// reported column. Tabs before the column are preserved so the caret lines
// up in a terminal.
func (sf *SourceFile) Snippet(pos Position) string {
	if sf == nil || !pos.IsValid() {
		return ""
	}

	line := sf.GetLine(pos.Line)
	if line == "" && pos.Line > len(sf.Lines) {
		return ""
	}

	var result strings.Builder

	result.WriteString(fmt.Sprintf("%4d | %s\n", pos.Line, line))
	result.WriteString("     | ")
	addCaret(&result, line, pos.Column)
	result.WriteString("\n")

	return result.String()
}

// addCaret pads up to col (1-based) and writes a single caret.
func addCaret(result *strings.Builder, line string, col int) {
	runes := []rune(line)

	for i := 1; i < col; i++ {
		if i <= len(runes) && runes[i-1] == '\t' {
			result.WriteString("\t")
		} else {
			result.WriteString(" ")
		}
	}

	result.WriteString("^")
}
