// Package resolve implements forge's dependency version resolution: given
// a root manifest and a registry client, it produces a Resolution Set
// pinned to exact versions. The algorithm is backtracking constraint
// intersection, not Go's own minimal version selection — every name's
// active constraints are intersected and the highest satisfying version
// is chosen, backtracking to the most recent choice when a later
// requirement makes that intersection empty.
package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/forgepkg/forge/ferr"
	"github.com/forgepkg/forge/manifest"
	"github.com/forgepkg/forge/registry"
	"github.com/forgepkg/forge/semver"
	"github.com/forgepkg/forge/store"
)

type constraintRecord struct {
	c     semver.Constraint
	chain string
}

type state struct {
	ctx    context.Context
	client registry.Client

	active   map[string][]constraintRecord
	selected map[string]*Package
	edges    []edge
	stack    []string // names currently being resolved, for cycle detection
}

type snapshot struct {
	active   map[string][]constraintRecord
	selected map[string]*Package
	edgesLen int
}

func (s *state) snapshot() snapshot {
	active := make(map[string][]constraintRecord, len(s.active))
	for k, v := range s.active {
		active[k] = append([]constraintRecord(nil), v...)
	}
	selected := make(map[string]*Package, len(s.selected))
	for k, v := range s.selected {
		selected[k] = v
	}
	return snapshot{active: active, selected: selected, edgesLen: len(s.edges)}
}

func (s *state) restore(snap snapshot) {
	s.active = snap.active
	s.selected = snap.selected
	s.edges = s.edges[:snap.edgesLen]
}

// Resolve produces a Resolution Set for root using client to discover and
// fetch candidate versions.
func Resolve(ctx context.Context, root *manifest.Manifest, client registry.Client) (*Graph, error) {
	s := &state{
		ctx:      ctx,
		client:   client,
		active:   make(map[string][]constraintRecord),
		selected: make(map[string]*Package),
	}

	rootName := root.Package.Name
	s.selected[rootName] = &Package{Name: rootName, Version: root.Package.Version, Manifest: root}

	if err := s.walkDeps(root, []string{"root"}, rootName, true); err != nil {
		return nil, err
	}

	g := newGraph()
	for name, p := range s.selected {
		g.byName[name] = p
	}
	g.edges = s.edges
	return g, nil
}

type namedDependency struct {
	name string
	dep  manifest.Dependency
}

// sortedDependencies returns m's direct dependencies (and, if includeDev,
// its dev-dependencies too) sorted by name for deterministic iteration
// order.
func sortedDependencies(m *manifest.Manifest, includeDev bool) []namedDependency {
	var out []namedDependency
	for name, dep := range m.Dependencies {
		out = append(out, namedDependency{name: name, dep: dep})
	}
	if includeDev {
		for name, dep := range m.DevDependencies {
			out = append(out, namedDependency{name: name, dep: dep})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// walkDeps dispatches every dependency of m to either require (a registry
// version range) or selectPinned (a local path or git source), in the
// context of a requirement chain rooted at parent.
func (s *state) walkDeps(m *manifest.Manifest, chain []string, parent string, includeDev bool) error {
	for _, nd := range sortedDependencies(m, includeDev) {
		switch {
		case nd.dep.Range != "":
			childChain := append(append([]string(nil), chain...), nd.name+nd.dep.Range)
			if err := s.require(nd.name, nd.dep.Range, childChain, parent); err != nil {
				return err
			}
		case nd.dep.Path != "" || nd.dep.Git != nil:
			childChain := append(append([]string(nil), chain...), nd.name)
			if err := s.selectPinned(nd.name, nd.dep, childChain, parent); err != nil {
				return err
			}
		}
	}
	return nil
}

// selectPinned resolves a local-path or git dependency. Per spec, pinned
// dependencies are never subject to version selection or backtracking:
// once chosen they are final, and they participate in the rest of
// resolution only as the version they themselves declare.
func (s *state) selectPinned(name string, dep manifest.Dependency, chain []string, parent string) error {
	if contains(s.stack, name) {
		return &ferr.DependencyCycle{Cycle: cyclePath(s.stack, name)}
	}
	s.edges = append(s.edges, edge{parent: parent, child: name})
	if _, ok := s.selected[name]; ok {
		return nil
	}

	s.stack = append(s.stack, name)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	var version string
	var childManifest *manifest.Manifest
	var external string
	switch {
	case dep.Path != "":
		manifestPath := filepath.Join(dep.Path, "forge.toml")
		raw, err := os.ReadFile(manifestPath)
		switch {
		case err == nil:
			m, err := manifest.Parse(manifestPath, raw)
			if err != nil {
				return err
			}
			childManifest = m
			version = m.Package.Version
		case os.IsNotExist(err):
			// No forge.toml: this path dependency may still be buildable
			// if it ships its own CMake or Autotools project.
			bs, detectErr := detectExternalBuildSystem(dep.Path)
			if detectErr != nil {
				return &ferr.SourceUnpackError{Name: name, Path: dep.Path, Err: detectErr}
			}
			external = bs
			version = "path:" + dep.Path
		default:
			return &ferr.SourceUnpackError{Name: name, Path: dep.Path, Err: err}
		}
	case dep.Git != nil:
		version = "git:" + gitRef(dep.Git)
	}

	s.selected[name] = &Package{
		Name:        name,
		Version:     version,
		Manifest:    childManifest,
		Pinned:      true,
		External:    external,
		ExternalDir: dep.Path,
	}

	if childManifest != nil {
		if err := s.walkDeps(childManifest, chain, name, false); err != nil {
			return err
		}
	}
	return nil
}

// detectExternalBuildSystem inspects dir for the marker file of a foreign
// build system forge knows how to drive as an opaque archive-producing
// step: a CMakeLists.txt (cmake) or a configure script (autotools). It
// returns a SourceUnpackError-worthy error only when dir names a local
// path dependency that is neither a forge package nor a recognized
// foreign build, since at that point forge has nothing to build it with.
func detectExternalBuildSystem(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, "CMakeLists.txt")); err == nil {
		return "cmake", nil
	}
	if _, err := os.Stat(filepath.Join(dir, "configure")); err == nil {
		return "autotools", nil
	}
	return "", fmt.Errorf("%s has no forge.toml, CMakeLists.txt, or configure script", dir)
}

func gitRef(g *manifest.GitSource) string {
	switch {
	case g.Rev != "":
		return g.Rev
	case g.Tag != "":
		return g.Tag
	default:
		return g.Branch
	}
}

// require records a new constraint on name arising from parent, then
// ensures name is selected at a version satisfying every constraint
// recorded against it so far, recursing into that version's own
// dependencies.
func (s *state) require(name, rangeStr string, chain []string, parent string) error {
	c, err := semver.ParseConstraint(rangeStr)
	if err != nil {
		return fmt.Errorf("resolve: %s: %w", name, err)
	}

	s.active[name] = append(s.active[name], constraintRecord{c: c, chain: joinChain(chain)})
	s.edges = append(s.edges, edge{parent: parent, child: name})

	intersected, err := intersectAll(s.active[name])
	if err != nil {
		return &ferr.NoVersionSatisfies{Name: name, Chain: chainsOf(s.active[name])}
	}

	if existing, ok := s.selected[name]; ok {
		if contains(s.stack, name) {
			return &ferr.DependencyCycle{Cycle: cyclePath(s.stack, name)}
		}
		if existing.Pinned {
			// A local-path or git dependency is final the moment it is
			// selected: a later range requirement on the same name checks
			// against it, but never backtracks or reselects it.
			v, err := semver.ParseVersion(existing.Version)
			if err != nil {
				// The pin carries no real semver (a git ref, or a path
				// dependency with no forge.toml of its own) — there is
				// nothing to check the range against, so the pin stands.
				return nil
			}
			if !semver.Satisfies(v, intersected) {
				return &ferr.NoVersionSatisfies{Name: name, Chain: chainsOf(s.active[name])}
			}
			return nil
		}
		v, err := semver.ParseVersion(existing.Version)
		if err == nil && semver.Satisfies(v, intersected) {
			return nil
		}
		delete(s.selected, name)
		return s.selectAndResolve(name, chain)
	}

	return s.selectAndResolve(name, chain)
}

// selectAndResolve tries, from highest to lowest precedence, every
// version of name that satisfies its currently active constraints,
// recursing into each candidate's own dependencies. A candidate whose
// subtree fails to resolve is rolled back in full before the next
// candidate is tried.
func (s *state) selectAndResolve(name string, chain []string) error {
	if contains(s.stack, name) {
		return &ferr.DependencyCycle{Cycle: cyclePath(s.stack, name)}
	}

	intersected, err := intersectAll(s.active[name])
	if err != nil {
		return &ferr.NoVersionSatisfies{Name: name, Chain: chainsOf(s.active[name])}
	}

	rawVersions, err := s.client.Versions(s.ctx, name)
	if err != nil {
		return err
	}
	candidates := make([]semver.Version, 0, len(rawVersions))
	for _, raw := range rawVersions {
		v, err := semver.ParseVersion(raw)
		if err != nil {
			continue
		}
		candidates = append(candidates, v)
	}
	semver.SortDescending(candidates)

	s.stack = append(s.stack, name)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	var lastErr error
	for _, cand := range candidates {
		if !semver.Satisfies(cand, intersected) {
			continue
		}

		snap := s.snapshot()

		archive, err := s.client.Fetch(s.ctx, name, cand.String())
		if err != nil {
			s.restore(snap)
			continue
		}
		raw, err := store.ExtractFile(archive, "forge.toml")
		if err != nil {
			s.restore(snap)
			continue
		}
		childManifest, err := manifest.Parse(name+"/forge.toml", raw)
		if err != nil {
			s.restore(snap)
			continue
		}

		s.selected[name] = &Package{Name: name, Version: cand.String(), Manifest: childManifest}

		if err := s.walkDeps(childManifest, chain, name, false); err != nil {
			lastErr = err
			s.restore(snap)
			continue
		}
		return nil
	}

	// A deeper, more specific conflict (naming whichever package the
	// intersection actually went empty for) is more useful than a fresh
	// report about name itself, so it takes priority once every candidate
	// of name has been tried.
	if lastErr != nil {
		return lastErr
	}
	return &ferr.NoVersionSatisfies{Name: name, Chain: chainsOf(s.active[name])}
}

func intersectAll(records []constraintRecord) (semver.Constraint, error) {
	cs := make([]semver.Constraint, len(records))
	for i, r := range records {
		cs[i] = r.c
	}
	return semver.Intersect(cs)
}

func chainsOf(records []constraintRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.chain
	}
	return out
}

func joinChain(chain []string) string {
	s := chain[0]
	for _, c := range chain[1:] {
		s += "→" + c
	}
	return s
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func cyclePath(stack []string, name string) []string {
	var cycle []string
	started := false
	for _, n := range stack {
		if n == name {
			started = true
		}
		if started {
			cycle = append(cycle, n)
		}
	}
	cycle = append(cycle, name)
	return cycle
}
