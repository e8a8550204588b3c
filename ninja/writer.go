package ninja

import (
	"bytes"
	"fmt"
	"sort"
)

// Writer accumulates Ninja syntax and is a pure sink: nothing it does
// touches a filesystem or network. Call String or Bytes once all
// declarations have been written to obtain the finished document.
type Writer struct {
	buf   bytes.Buffer
	width int

	pools  map[string]bool
	rules  map[string]bool
	failed error
}

// NewWriter returns a Writer that wraps lines at DefaultWidth columns.
func NewWriter() *Writer {
	return NewWriterWidth(DefaultWidth)
}

// NewWriterWidth returns a Writer that wraps lines at the given width.
// A width of 0 falls back to DefaultWidth.
func NewWriterWidth(width int) *Writer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Writer{
		width: width,
		pools: make(map[string]bool),
		rules: make(map[string]bool),
	}
}

// Err returns the first error encountered by any call on w, if any. Once
// set, subsequent calls are no-ops; callers that check Err only at the end
// do not need to check it after every call.
func (w *Writer) Err() error {
	return w.failed
}

func (w *Writer) fail(err error) error {
	if w.failed == nil {
		w.failed = err
	}
	return err
}

func (w *Writer) writeLine(indent int, text string) error {
	if w.failed != nil {
		return w.failed
	}
	if err := checkNoNewline(text); err != nil {
		return w.fail(err)
	}
	w.buf.WriteString(wrapLine(indent, text, w.width))
	return nil
}

// Newline emits a blank line, used to visually separate declarations.
func (w *Writer) Newline() error {
	if w.failed != nil {
		return w.failed
	}
	w.buf.WriteByte('\n')
	return nil
}

// Comment emits a `# text` line at indent 0.
func (w *Writer) Comment(text string) error {
	return w.writeLine(0, "# "+text)
}

// Variable emits `key = value` at the given indent level.
func (w *Writer) Variable(key, value string, indent int) error {
	return w.writeLine(indent, key+" = "+value)
}

// VariableList emits `key = v1 v2 v3 ...` at the given indent level, the
// values joined by single spaces with no further escaping applied — callers
// that need escaped values must escape each element before calling this.
func (w *Writer) VariableList(key string, values []string, indent int) error {
	return w.writeLine(indent, key+" = "+joinSpace(values))
}

// Pool emits a pool declaration. The name must be unique among pools
// declared on w.
func (w *Writer) Pool(name string, depth int) error {
	if w.failed != nil {
		return w.failed
	}
	if w.pools[name] {
		return w.fail(fmt.Errorf("ninja: pool %q already declared", name))
	}
	if err := w.writeLine(0, "pool "+name); err != nil {
		return err
	}
	if err := w.Variable("depth", fmt.Sprintf("%d", depth), 1); err != nil {
		return err
	}
	w.pools[name] = true
	return nil
}

// Rule emits a rule declaration: the command line followed by any set
// RuleSet fields, each at indent 1. The rule name becomes a valid target
// for subsequent Build calls.
func (w *Writer) Rule(name, command string, rs RuleSet) error {
	if w.failed != nil {
		return w.failed
	}
	if w.rules[name] {
		return w.fail(fmt.Errorf("ninja: rule %q already declared", name))
	}
	if err := w.writeLine(0, "rule "+name); err != nil {
		return err
	}
	if err := w.Variable("command", command, 1); err != nil {
		return err
	}
	for _, f := range rs.ruleFields() {
		if err := w.Variable(f.key, f.value, 1); err != nil {
			return err
		}
	}
	w.rules[name] = true
	return nil
}

// Build emits a build declaration for the given rule and returns outputs
// unchanged, matching the spec's `build(outputs, rule, BuildSet) → outputs`
// shape so callers can thread the produced paths straight into the next
// stage of planning. rule must already have been declared via Rule.
func (w *Writer) Build(outputs []string, rule string, bs BuildSet) ([]string, error) {
	if w.failed != nil {
		return nil, w.failed
	}
	if !w.rules[rule] {
		return nil, w.fail(fmt.Errorf("ninja: build references undeclared rule %q", rule))
	}
	if len(outputs) == 0 {
		return nil, w.fail(fmt.Errorf("ninja: build has no outputs"))
	}

	outEsc, err := escapePaths(outputs)
	if err != nil {
		return nil, w.fail(err)
	}
	line := "build " + joinSpace(outEsc)

	if len(bs.ImplicitOutputs) > 0 {
		impOutEsc, err := escapePaths(bs.ImplicitOutputs)
		if err != nil {
			return nil, w.fail(err)
		}
		line += " | " + joinSpace(impOutEsc)
	}

	line += ": " + rule

	if len(bs.Inputs) > 0 {
		in, err := escapePaths(bs.Inputs)
		if err != nil {
			return nil, w.fail(err)
		}
		line += " " + joinSpace(in)
	}
	if len(bs.Implicit) > 0 {
		imp, err := escapePaths(bs.Implicit)
		if err != nil {
			return nil, w.fail(err)
		}
		line += " | " + joinSpace(imp)
	}
	if len(bs.OrderOnly) > 0 {
		oo, err := escapePaths(bs.OrderOnly)
		if err != nil {
			return nil, w.fail(err)
		}
		line += " || " + joinSpace(oo)
	}

	if err := w.writeLine(0, line); err != nil {
		return nil, err
	}

	if bs.Pool != "" {
		if err := w.Variable("pool", bs.Pool, 1); err != nil {
			return nil, err
		}
	}
	if bs.Dyndep != "" {
		if err := w.Variable("dyndep", bs.Dyndep, 1); err != nil {
			return nil, err
		}
	}
	if len(bs.Variables) > 0 {
		keys := make([]string, 0, len(bs.Variables))
		for k := range bs.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.Variable(k, bs.Variables[k], 1); err != nil {
				return nil, err
			}
		}
	}

	return outputs, nil
}

// Include emits an `include path` statement.
func (w *Writer) Include(path string) error {
	esc, err := EscapePath(path)
	if err != nil {
		return w.fail(err)
	}
	return w.writeLine(0, "include "+esc)
}

// Subninja emits a `subninja path` statement.
func (w *Writer) Subninja(path string) error {
	esc, err := EscapePath(path)
	if err != nil {
		return w.fail(err)
	}
	return w.writeLine(0, "subninja "+esc)
}

// Default emits a `default` statement naming one or more top-level targets.
func (w *Writer) Default(paths []string) error {
	if len(paths) == 0 {
		return w.fail(fmt.Errorf("ninja: default has no paths"))
	}
	esc, err := escapePaths(paths)
	if err != nil {
		return w.fail(err)
	}
	return w.writeLine(0, "default "+joinSpace(esc))
}

// String returns the finished document. Err should be checked first; an
// incomplete write due to a prior error still returns whatever was
// buffered before the failure.
func (w *Writer) String() string {
	return w.buf.String()
}

// Bytes returns the finished document as a byte slice.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func escapePaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		esc, err := EscapePath(p)
		if err != nil {
			return nil, err
		}
		out[i] = esc
	}
	return out, nil
}

func joinSpace(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	n := len(values) - 1
	for _, v := range values {
		n += len(v)
	}
	b := make([]byte, 0, n)
	for i, v := range values {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, v...)
	}
	return string(b)
}
