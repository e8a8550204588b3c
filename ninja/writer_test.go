package ninja

import "testing"

// S1: rule emission with a description, depfile, and deps mode set.
func TestRuleEmission(t *testing.T) {
	w := NewWriter()
	if err := w.Rule("cc", "gcc -c $in -o $out", RuleSet{
		Description: "CC $in",
		Depfile:     "$out.d",
		Deps:        "gcc",
	}); err != nil {
		t.Fatalf("Rule: %v", err)
	}

	want := "rule cc\n" +
		"  command = gcc -c $in -o $out\n" +
		"  description = CC $in\n" +
		"  depfile = $out.d\n" +
		"  deps = gcc\n"
	if got := w.String(); got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

// S2: build with implicit and order-only inputs, no implicit outputs.
func TestBuildImplicitAndOrderOnly(t *testing.T) {
	w := NewWriter()
	mustRule(t, w, "cc", "gcc -c $in -o $out")

	if _, err := w.Build([]string{"a.o"}, "cc", BuildSet{
		Inputs:    []string{"a.c"},
		Implicit:  []string{"h.h"},
		OrderOnly: []string{"dir"},
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "build a.o: cc a.c | h.h || dir\n"
	if got := w.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// S3: path escaping of spaces and colons in both outputs and inputs.
func TestBuildPathEscaping(t *testing.T) {
	w := NewWriter()
	mustRule(t, w, "cc", "gcc -c $in -o $out")

	if _, err := w.Build([]string{"weird file:name.o"}, "cc", BuildSet{
		Inputs: []string{"src/weird space.c"},
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "build weird$ file$:name.o: cc src/weird$ space.c\n"
	if got := w.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// S4: a narrow width forces a wrap with a continuation indented four spaces.
func TestVariableWrap(t *testing.T) {
	w := NewWriterWidth(20)
	if err := w.Variable("k", "aaaa bbbb cccc dddd", 0); err != nil {
		t.Fatalf("Variable: %v", err)
	}

	want := "k = aaaa bbbb cccc $\n    dddd\n"
	if got := w.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildRejectsUndeclaredRule(t *testing.T) {
	w := NewWriter()
	if _, err := w.Build([]string{"a.o"}, "cc", BuildSet{Inputs: []string{"a.c"}}); err == nil {
		t.Fatal("expected error referencing undeclared rule")
	}
}

func TestNoNewlineInvariant(t *testing.T) {
	w := NewWriter()
	if err := w.Comment("two\nlines"); err == nil {
		t.Fatal("expected error for embedded newline")
	}
}

func TestPathEscapingPreservesExistingDollarSpace(t *testing.T) {
	got, err := EscapePath("already$ escaped value.o")
	if err != nil {
		t.Fatalf("EscapePath: %v", err)
	}
	want := "already$$ escaped$ value.o"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestShortLinesAreNotBroken(t *testing.T) {
	w := NewWriterWidth(78)
	if err := w.Variable("k", "short value", 0); err != nil {
		t.Fatalf("Variable: %v", err)
	}
	want := "k = short value\n"
	if got := w.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func mustRule(t *testing.T, w *Writer, name, command string) {
	t.Helper()
	if err := w.Rule(name, command, RuleSet{}); err != nil {
		t.Fatalf("Rule(%q): %v", name, err)
	}
}
