package ninja

import "strings"

// DefaultWidth is the column at which lines are wrapped when a Writer is
// constructed with width 0.
const DefaultWidth = 78

// indentUnit is the number of spaces a single indent level contributes.
const indentUnit = 2

func indentSpaces(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat(" ", level*indentUnit)
}

// wrapLine renders text (already escaped) at the given indent level,
// breaking it across multiple physical lines when it would otherwise
// exceed width. Each continuation line is indented two levels deeper than
// level and the broken line ends in " $". A break may only occur at an
// unescaped space; if none exists at or before the width limit, the
// routine searches forward for the next eligible space, and if none exists
// at all the line is emitted unwrapped.
func wrapLine(level int, text string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	var out strings.Builder
	prefix := indentSpaces(level)
	contPrefix := indentSpaces(level + 2)

	line := prefix + text
	start := len(prefix)
	for len(line) > width {
		pos := findBreak(line, start, width)
		if pos < 0 {
			break
		}
		out.WriteString(line[:pos])
		out.WriteString(" $\n")
		line = contPrefix + line[pos+1:]
		// The continuation indent is not itself a break point.
		start = len(contPrefix)
	}
	out.WriteString(line)
	out.WriteByte('\n')
	return out.String()
}

// findBreak locates the best eligible space to break line on, searching
// leftward from width down to start for the rightmost eligible space, and
// if none is found there, rightward from width+1 to the end of the line
// for the first eligible space. It returns -1 if no eligible space exists.
func findBreak(line string, start, width int) int {
	limit := width
	if limit > len(line) {
		limit = len(line)
	}
	for i := limit; i > start; i-- {
		if line[i-1] == ' ' && escapedSpaceIsBreakable(line, i-1) {
			return i - 1
		}
	}
	for i := limit; i < len(line); i++ {
		if line[i] == ' ' && escapedSpaceIsBreakable(line, i) {
			return i
		}
	}
	return -1
}
