package driver

import (
	"testing"

	"github.com/forgepkg/forge/manifest"
)

// With CXX unset, resolveToolchain must still produce a real compiler name:
// plan.declareRules bakes Toolchain.Cxx straight into the compile_cxx and
// link_exe rule commands, and no top-level Ninja $cxx variable is ever
// declared to catch an empty fallback.
func TestResolveToolchainDefaultsCxx(t *testing.T) {
	t.Setenv("CXX", "")

	m := &manifest.Manifest{Package: manifest.Package{Name: "app", Version: "1.0.0"}}
	tc := resolveToolchain(m)

	if tc.Cxx != "c++" {
		t.Errorf("got Cxx %q, want the default %q", tc.Cxx, "c++")
	}
}

func TestResolveToolchainHonorsCxxEnv(t *testing.T) {
	t.Setenv("CXX", "clang++")

	m := &manifest.Manifest{Package: manifest.Package{Name: "app", Version: "1.0.0"}}
	tc := resolveToolchain(m)

	if tc.Cxx != "clang++" {
		t.Errorf("got Cxx %q, want %q", tc.Cxx, "clang++")
	}
}
