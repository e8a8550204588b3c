// Package driver orchestrates forge's core packages into the single
// end-to-end operation the CLI exposes: parse the root manifest, resolve
// dependencies, fetch and unpack their sources, plan the Ninja graph,
// write build.ninja, and hand off to the ninja binary. It is the only
// layer that formats errors for a human and maps a ferr kind to a
// process exit code.
package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/forgepkg/forge/ferr"
	"github.com/forgepkg/forge/internal/workpool"
	"github.com/forgepkg/forge/manifest"
	"github.com/forgepkg/forge/plan"
	"github.com/forgepkg/forge/registry"
	"github.com/forgepkg/forge/resolve"
	"github.com/forgepkg/forge/store"
)

// Options configures a single build invocation.
type Options struct {
	ProjectDir  string
	Profile     string // "debug" or "release"; defaults to "debug"
	RegistryURL string
	Verbose     bool
	Parallelism int // worker pool size; 0 uses workpool.DefaultSize
}

const manifestFileName = "forge.toml"

// Run executes one full build: parse, resolve, ensure, plan, emit,
// ninja. It returns the error responsible for failure, if any; callers
// that need a process exit code should pass that error to ExitCode.
func Run(ctx context.Context, opts Options) error {
	profile := opts.Profile
	if profile == "" {
		profile = "debug"
	}

	manifestPath := filepath.Join(opts.ProjectDir, manifestFileName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return &ferr.ManifestParseError{Path: manifestPath, Err: err}
	}
	root, err := manifest.Parse(manifestPath, raw)
	if err != nil {
		return err
	}
	root = root.MergeProfile(profile)

	client, err := newClient(opts.RegistryURL)
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "forge: resolving dependencies for %s %s\n", root.Package.Name, root.Package.Version)
	}
	graph, err := resolve.Resolve(ctx, root, client)
	if err != nil {
		return err
	}

	outDir := defaultOutDir()
	srcStore := store.New(filepath.Join(opts.ProjectDir, outDir, "src"))

	if err := ensureAll(ctx, graph, root.Package.Name, srcStore, client, opts); err != nil {
		return err
	}

	toolchain := resolveToolchain(root)
	w, err := plan.Plan(graph, root.Package.Name, plan.Options{
		Profile:   profile,
		OutDir:    outDir,
		RootSrc:   filepath.Join(opts.ProjectDir, "src"),
		Toolchain: toolchain,
		Libs:      systemLibs(graph),
	})
	if err != nil {
		return err
	}

	ninjaFile := filepath.Join(opts.ProjectDir, outDir, profile, "build.ninja")
	if err := writeAtomic(ninjaFile, w.Bytes()); err != nil {
		return &ferr.SourceUnpackError{Name: root.Package.Name, Version: root.Package.Version, Path: ninjaFile, Err: err}
	}

	return runNinja(ctx, filepath.Dir(ninjaFile), opts.Verbose)
}

// ensureAll materializes every non-root dependency's source into the
// store, fetching as many concurrently as opts.Parallelism allows
// (workpool.DefaultSize when it is 0).
func ensureAll(ctx context.Context, graph *resolve.Graph, rootName string, s *store.Store, client registry.Client, opts Options) error {
	pool := workpool.New(ctx, opts.Parallelism)
	for _, pkg := range graph.Packages() {
		if pkg.Name == rootName {
			continue
		}
		pkg := pkg
		pool.Go(func(ctx context.Context) error {
			_, err := s.Ensure(ctx, pkg.Name, pkg.Version, client)
			return err
		})
	}
	return pool.Wait()
}

// systemLibs collects every -l reference declared by any package in the
// resolution set's manifest, in topological order, deduplicated: a
// dependency's own system library needs (e.g. "pthread") must reach the
// final link step the same as the root's.
func systemLibs(graph *resolve.Graph) []string {
	seen := make(map[string]bool)
	var out []string
	for _, pkg := range graph.Packages() {
		if pkg.Manifest == nil {
			continue
		}
		for _, lib := range pkg.Manifest.Libs {
			if seen[lib] {
				continue
			}
			seen[lib] = true
			out = append(out, "-l"+lib)
		}
	}
	return out
}

func resolveToolchain(m *manifest.Manifest) plan.Toolchain {
	return plan.Toolchain{
		Cxx:      envOr("CXX", "c++"),
		Ar:       envOr("AR", "ar"),
		LDFlags:  splitFlags(envOr("LDFLAGS", "")),
		CxxFlags: append(splitFlags(envOr("CXXFLAGS", "")), m.CxxFlags...),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitFlags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func defaultOutDir() string {
	return "out"
}

// writeAtomic writes data to path via a temp sibling file and a rename,
// so a reader never observes a partially written build.ninja.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func runNinja(ctx context.Context, dir string, verbose bool) error {
	tool, err := exec.LookPath("ninja")
	if err != nil {
		return &ferr.ToolchainNotFound{Tool: "ninja"}
	}

	cmd := exec.CommandContext(ctx, tool)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if verbose {
		cmd.Args = append(cmd.Args, "-v")
	}

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return &ferr.SubprocessFailed{Name: "ninja", Err: err}
		}
		return &ferr.SubprocessFailed{Name: "ninja", Code: exitErr.ExitCode(), Err: err}
	}
	return nil
}

func newClient(baseURL string) (registry.Client, error) {
	if baseURL == "" {
		baseURL = envOr("FORGE_REGISTRY", "https://registry.forgepkg.dev")
	}
	http := registry.NewHTTPClient(baseURL, 60*time.Second)
	return registry.NewCachingClient(http, 256)
}

// ExitCode maps a forge error to a process exit code. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case *ferr.ManifestParseError:
		return 2
	case *ferr.RegistryError, *ferr.PackageNotFound:
		return 3
	case *ferr.NoVersionSatisfies, *ferr.DependencyCycle:
		return 4
	case *ferr.SourceUnpackError:
		return 5
	case *ferr.ToolchainNotFound:
		return 6
	case *ferr.SubprocessFailed:
		if se, ok := err.(*ferr.SubprocessFailed); ok && se.Code != 0 {
			return se.Code
		}
		return 7
	default:
		return 1
	}
}
