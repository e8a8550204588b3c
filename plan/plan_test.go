package plan

import (
	"context"
	"strings"
	"testing"

	"github.com/forgepkg/forge/manifest"
	"github.com/forgepkg/forge/registry"
	"github.com/forgepkg/forge/resolve"
)

// noopRegistry satisfies registry.Client without ever being called: the
// manifests built by rootManifestNoDeps declare no dependencies, so resolve.Resolve
// never reaches out to it.
type noopRegistry struct{}

func (noopRegistry) Search(ctx context.Context, query string, limit int) ([]registry.SearchResult, error) {
	return nil, nil
}

func (noopRegistry) Versions(ctx context.Context, name string) ([]string, error) {
	return nil, nil
}

func (noopRegistry) Fetch(ctx context.Context, name, version string) ([]byte, error) {
	return nil, nil
}

func rootManifestNoDeps(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse("forge.toml", []byte(`[package]
name = "app"
version = "1.0.0"
`))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	return m
}

func TestPlanWiresLDFlagsAndLibs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root+"/main.cc", "int main() {}\n")

	m := rootManifestNoDeps(t)
	g, err := resolve.Resolve(context.Background(), m, noopRegistry{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	w, err := Plan(g, "app", Options{
		Profile: "debug",
		OutDir:  "out",
		RootSrc: root,
		Toolchain: Toolchain{
			Cxx:     "c++",
			Ar:      "ar",
			LDFlags: []string{"-static"},
		},
		Libs: []string{"-lpthread"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	out := string(w.Bytes())
	if !strings.Contains(out, "ldflags = -static") {
		t.Errorf("expected ldflags = -static in output, got:\n%s", out)
	}
	if !strings.Contains(out, "libs = -lpthread") {
		t.Errorf("expected libs = -lpthread in output, got:\n%s", out)
	}
	if !strings.Contains(out, "default out/debug/app\n") {
		t.Errorf("expected a default target naming the executable, got:\n%s", out)
	}
}

// declareRules falls back to an unresolved $cxx/$ar token when a Toolchain
// field is empty, and no top-level Ninja variable of that name is ever
// declared: a caller must pass a real compiler/archiver name, which is
// exactly what driver.resolveToolchain's own default is responsible for.
// This asserts the rule commands carry whatever Plan was actually given.
func TestPlanBakesToolchainIntoRuleCommands(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root+"/main.cc", "int main() {}\n")

	m := rootManifestNoDeps(t)
	g, err := resolve.Resolve(context.Background(), m, noopRegistry{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	w, err := Plan(g, "app", Options{
		Profile:   "debug",
		OutDir:    "out",
		RootSrc:   root,
		Toolchain: Toolchain{Cxx: "clang++", Ar: "llvm-ar"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	out := string(w.Bytes())
	if !strings.Contains(out, "command = clang++ ") {
		t.Errorf("expected the compile_cxx/link_exe commands to name clang++, got:\n%s", out)
	}
	// "$cxx " rather than "$cxx": the declared $cxxflags variable shares that
	// prefix.
	if strings.Contains(out, "$cxx ") || strings.Contains(out, "$ar ") {
		t.Errorf("rule commands reference an undeclared $cxx/$ar variable:\n%s", out)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root+"/main.cc", "int main() {}\n")
	mustWrite(t, root+"/util.cc", "void util() {}\n")

	m := rootManifestNoDeps(t)

	run := func() string {
		g, err := resolve.Resolve(context.Background(), m, noopRegistry{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		w, err := Plan(g, "app", Options{Profile: "debug", OutDir: "out", RootSrc: root})
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		return string(w.Bytes())
	}

	a, b := run(), run()
	if a != b {
		t.Errorf("two Plan runs over identical input diverged:\n--- a ---\n%s\n--- b ---\n%s", a, b)
	}
}
