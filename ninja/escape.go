// Package ninja writes well-formed Ninja build files: pools, rules, builds,
// includes, variable expansion, and the escaping and word-wrapping Ninja's
// own grammar requires.
package ninja

import (
	"fmt"
	"strings"
)

// pathEscaper turns a path into the form Ninja expects inside a build
// statement's input/output list. Order matters: a pre-existing "$ " must be
// doubled to "$$ " before bare spaces are escaped, otherwise a path that
// already carries an intentional "$ " would be indistinguishable from one
// that merely contains a literal space.
var pathEscaper = strings.NewReplacer(
	"$ ", "$$ ",
	" ", "$ ",
	":", "$:",
)

// stringEscaper is used for values that are opaque text rather than paths
// (for example a description derived from a filename). It only protects a
// literal "$" from being read as the start of a variable reference.
var stringEscaper = strings.NewReplacer("$", "$$")

// EscapePath escapes p for use as a Ninja input or output path.
func EscapePath(p string) (string, error) {
	if err := checkNoNewline(p); err != nil {
		return "", err
	}
	return pathEscaper.Replace(p), nil
}

// EscapeString escapes s for use as an opaque Ninja value (not a path).
func EscapeString(s string) (string, error) {
	if err := checkNoNewline(s); err != nil {
		return "", err
	}
	return stringEscaper.Replace(s), nil
}

func checkNoNewline(s string) error {
	if strings.ContainsRune(s, '\n') {
		return fmt.Errorf("ninja: value %q contains a newline", s)
	}
	return nil
}

// escapedSpaceIsBreakable reports whether the space at byte offset i in s is
// an eligible word-wrap point: one preceded by an even number of '$'
// characters, i.e. not itself part of a "$ " escape sequence.
func escapedSpaceIsBreakable(s string, i int) bool {
	count := 0
	for j := i - 1; j >= 0 && s[j] == '$'; j-- {
		count++
	}
	return count%2 == 0
}
