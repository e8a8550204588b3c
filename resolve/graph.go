package resolve

import (
	"sort"

	"github.com/forgepkg/forge/ferr"
	"github.com/forgepkg/forge/manifest"
)

// Package is a single resolved node: a name pinned to an exact version,
// with the parsed manifest that version declared.
type Package struct {
	Name     string
	Version  string
	Manifest *manifest.Manifest

	// Pinned marks a package selected by selectPinned (a local-path or git
	// dependency): require must never backtrack or reselect it, regardless
	// of what a sibling's own semver range on the same name asks for.
	Pinned bool

	// External names the foreign build system a local-path dependency with
	// no forge.toml was detected to use ("cmake" or "autotools"), or "" for
	// an ordinary forge package. A non-empty External implies Manifest is
	// nil: the planner treats the package as an opaque archive input built
	// by its own tool rather than by compile_cxx.
	External string
	// ExternalDir is the source directory External was detected in. Only
	// meaningful when External is set.
	ExternalDir string
}

type edge struct {
	parent, child string
}

// Graph is the Resolution Set: an arena of Packages keyed by name, with
// dependency edges recorded as name pairs rather than pointers, so
// the set has no cyclic strong ownership and a topological walk is a
// plain sort.
type Graph struct {
	byName map[string]*Package
	edges  []edge
}

func newGraph() *Graph {
	return &Graph{byName: make(map[string]*Package)}
}

// Package looks up a resolved node by name.
func (g *Graph) Package(name string) (*Package, bool) {
	p, ok := g.byName[name]
	return p, ok
}

// Children returns the names name directly depends on, sorted.
func (g *Graph) Children(name string) []string {
	var out []string
	for _, e := range g.edges {
		if e.parent == name {
			out = append(out, e.child)
		}
	}
	sort.Strings(out)
	return out
}

// Packages returns every resolved node, sorted by name for determinism.
func (g *Graph) Packages() []*Package {
	out := make([]*Package, 0, len(g.byName))
	for _, p := range g.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TopoOrder returns every resolved node in dependency order: a package
// always appears after every package it depends on. Ties are decided by
// name in a dependents-first walk that takes ready packages in ascending
// name order; the result is that walk reversed, so it is not ascending
// name order among independent packages. It returns a DependencyCycle
// error if the edge set is not acyclic — resolution itself should already
// have rejected cycles, so this is a defensive check for the graph's own
// invariant. That error's Cycle lists, sorted by name, every package left
// with unresolved incoming edges rather than a walked cycle path.
func (g *Graph) TopoOrder() ([]*Package, error) {
	children := make(map[string][]string)
	indegree := make(map[string]int)
	for name := range g.byName {
		indegree[name] = 0
	}
	for _, e := range g.edges {
		children[e.parent] = append(children[e.parent], e.child)
		indegree[e.child]++
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		next := append([]string(nil), children[n]...)
		sort.Strings(next)
		for _, c := range next {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(order) != len(g.byName) {
		remaining := make([]string, 0)
		for name, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, &ferr.DependencyCycle{Cycle: remaining}
	}

	// TopoOrder must list dependencies before dependents; the Kahn walk
	// above visits sources (no remaining incoming edges) first, and since
	// an edge runs parent -> child meaning "parent depends on child", that
	// is dependents first, so the walk is reversed here.
	reversed := make([]string, len(order))
	for i, n := range order {
		reversed[len(order)-1-i] = n
	}

	out := make([]*Package, len(reversed))
	for i, n := range reversed {
		out[i] = g.byName[n]
	}
	return out, nil
}
