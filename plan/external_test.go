package plan

import (
	"strings"
	"testing"

	"github.com/forgepkg/forge/ninja"
	"github.com/forgepkg/forge/resolve"
)

func TestPlanExternalPackageEmitsCMakeBuild(t *testing.T) {
	w := ninja.NewWriter()
	er := &externalRules{}
	pkg := &resolve.Package{Name: "vendored", Version: "path:../vendored", External: "cmake", ExternalDir: "../vendored"}

	libPath, err := planExternalPackage(w, er, pkg, Options{OutDir: "out", Profile: "debug"})
	if err != nil {
		t.Fatalf("planExternalPackage: %v", err)
	}
	if !strings.HasSuffix(libPath, "libvendored.a") {
		t.Errorf("got lib path %q, want it to end in libvendored.a", libPath)
	}

	out := w.String()
	if !strings.Contains(out, "rule build_cmake") {
		t.Errorf("expected a build_cmake rule, got:\n%s", out)
	}
	if !strings.Contains(out, "build "+libPath+": build_cmake ../vendored") {
		t.Errorf("expected a build statement for %s, got:\n%s", libPath, out)
	}

	// A second external cmake package must not redeclare the rule.
	pkg2 := &resolve.Package{Name: "other", External: "cmake", ExternalDir: "../other"}
	if _, err := planExternalPackage(w, er, pkg2, Options{OutDir: "out", Profile: "debug"}); err != nil {
		t.Fatalf("planExternalPackage (second): %v", err)
	}
	if strings.Count(w.String(), "rule build_cmake") != 1 {
		t.Errorf("expected exactly one build_cmake rule declaration, got:\n%s", w.String())
	}
}
