package plan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnumerateSourcesSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.cpp"), "")
	mustWrite(t, filepath.Join(root, "include", "a.h"), "")
	mustWrite(t, filepath.Join(root, "build", "generated.cpp"), "")
	mustWrite(t, filepath.Join(root, ".hidden", "skip.cpp"), "")

	got, err := EnumerateSources(root, "build-out")
	if err != nil {
		t.Fatalf("EnumerateSources: %v", err)
	}

	want := []string{"a.cpp", "include/a.h"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsCompilable(t *testing.T) {
	cases := map[string]bool{
		"a.cpp": true,
		"a.cc":  true,
		"a.h":   false,
		"a.hpp": false,
	}
	for name, want := range cases {
		if got := IsCompilable(name); got != want {
			t.Errorf("IsCompilable(%q) = %v, want %v", name, got, want)
		}
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
