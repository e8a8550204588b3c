// Package manifest parses forge.toml: package identity, compile
// configuration, and dependency declarations. It decodes with
// github.com/BurntSushi/toml so that unrecognized top-level keys — a
// common source of silent typos in a hand-edited manifest — can be
// rejected via MetaData.Undecoded() rather than ignored.
package manifest

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/forgepkg/forge/ferr"
	"github.com/forgepkg/forge/semver"
)

// Package identifies the project or dependency a Manifest describes.
type Package struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version"`
	Edition  string   `toml:"edition,omitempty"`
	CxxStd   string   `toml:"cxx-std,omitempty"`
	BuildSys string   `toml:"build-system,omitempty"`
	Authors  []string `toml:"authors,omitempty"`
	License  string   `toml:"license,omitempty"`
}

// Profile overrides compile flags for a named build profile
// ([profile.debug], [profile.release]).
type Profile struct {
	CxxFlags []string `toml:"cxxflags,omitempty"`
	Defines  []string `toml:"defines,omitempty"`
}

// Target carries the per-triple compile overrides of a [target.<triple>]
// table.
type Target struct {
	CxxFlags []string          `toml:"cxxflags,omitempty"`
	Defines  []string          `toml:"defines,omitempty"`
	Deps     map[string]Dependency `toml:"dependencies,omitempty"`
}

// Manifest is the parsed form of a forge.toml.
type Manifest struct {
	Package         Package               `toml:"package"`
	CxxFlags        []string              `toml:"cxxflags,omitempty"`
	Defines         []string              `toml:"defines,omitempty"`
	Libs            []string              `toml:"libs,omitempty"`
	Dependencies    map[string]Dependency `toml:"dependencies,omitempty"`
	DevDependencies map[string]Dependency `toml:"dev-dependencies,omitempty"`
	Scripts         map[string]string     `toml:"scripts,omitempty"`
	Profiles        map[string]Profile    `toml:"profile,omitempty"`
	Targets         map[string]Target     `toml:"target,omitempty"`
}

// Dependency is a single entry under [dependencies] or [dev-dependencies].
// It is polymorphic in the manifest text: a bare string is a semver range
// against the registry; an inline table names a local path or a git
// source. Exactly one of Range, Path, or Git is ever set.
type Dependency struct {
	Range string
	Path  string
	Git   *GitSource
}

// GitSource pins a dependency to a git remote, at exactly one of Rev, Tag,
// or Branch.
type GitSource struct {
	URL    string
	Rev    string
	Tag    string
	Branch string
}

type dependencyTable struct {
	Path   string `toml:"path"`
	Git    string `toml:"git"`
	Rev    string `toml:"rev"`
	Tag    string `toml:"tag"`
	Branch string `toml:"branch"`
}

// UnmarshalTOML implements toml.Unmarshaler so a Dependency can decode from
// either a bare string or an inline table, matching the polymorphic shape
// forge.toml's [dependencies] table allows per entry.
func (d *Dependency) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		d.Range = v
		return nil
	case map[string]interface{}:
		var t dependencyTable
		if s, ok := v["path"].(string); ok {
			t.Path = s
		}
		if s, ok := v["git"].(string); ok {
			t.Git = s
		}
		if s, ok := v["rev"].(string); ok {
			t.Rev = s
		}
		if s, ok := v["tag"].(string); ok {
			t.Tag = s
		}
		if s, ok := v["branch"].(string); ok {
			t.Branch = s
		}
		return dependencyFromTable(d, t)
	default:
		return fmt.Errorf("manifest: dependency value must be a string or table, got %T", data)
	}
}

func dependencyFromTable(d *Dependency, t dependencyTable) error {
	switch {
	case t.Path != "" && t.Git != "":
		return fmt.Errorf("manifest: dependency cannot set both path and git")
	case t.Path != "":
		d.Path = t.Path
	case t.Git != "":
		pins := 0
		for _, s := range []string{t.Rev, t.Tag, t.Branch} {
			if s != "" {
				pins++
			}
		}
		if pins != 1 {
			return fmt.Errorf("manifest: git dependency %q must set exactly one of rev, tag, or branch", t.Git)
		}
		d.Git = &GitSource{URL: t.Git, Rev: t.Rev, Tag: t.Tag, Branch: t.Branch}
	default:
		return fmt.Errorf("manifest: dependency table must set path or git")
	}
	return nil
}

// Parse decodes a forge.toml document. Path is used only for diagnostics.
func Parse(path string, text []byte) (*Manifest, error) {
	var m Manifest
	meta, err := toml.Decode(string(text), &m)
	if err != nil {
		return nil, &ferr.ManifestParseError{Path: path, Err: err}
	}

	var keys []string
	for _, k := range meta.Undecoded() {
		// Keys inside an inline dependency table are consumed by
		// Dependency.UnmarshalTOML, which the decoder does not record.
		inDepTable := (len(k) >= 3 && (k[0] == "dependencies" || k[0] == "dev-dependencies")) ||
			(len(k) >= 4 && k[0] == "target" && k[2] == "dependencies")
		if !inDepTable {
			keys = append(keys, strings.Join(k, "."))
		}
	}
	if len(keys) > 0 {
		return nil, &ferr.ManifestParseError{
			Path: path,
			Keys: []string{"<root>"},
			Err:  fmt.Errorf("unrecognized key(s): %s", strings.Join(keys, ", ")),
		}
	}

	if m.Package.Name == "" {
		return nil, &ferr.ManifestParseError{Path: path, Keys: []string{"package", "name"}, Err: fmt.Errorf("required")}
	}
	if m.Package.Version == "" {
		return nil, &ferr.ManifestParseError{Path: path, Keys: []string{"package", "version"}, Err: fmt.Errorf("required")}
	}
	canon, err := semver.ValidatePackageVersion(m.Package.Version)
	if err != nil {
		return nil, &ferr.ManifestParseError{Path: path, Keys: []string{"package", "version"}, Err: err}
	}
	m.Package.Version = canon

	return &m, nil
}

// MergeProfile returns a snapshot of m with the named [profile.*] table's
// flags folded over the base CxxFlags/Defines. Fields the profile does not
// set are left as the base declared them; an unknown profile name is not
// an error — it simply contributes nothing.
func (m *Manifest) MergeProfile(name string) *Manifest {
	out := *m
	p, ok := m.Profiles[name]
	if !ok {
		return &out
	}
	out.CxxFlags = mergeStrings(m.CxxFlags, p.CxxFlags)
	out.Defines = mergeStrings(m.Defines, p.Defines)
	return &out
}

func mergeStrings(base, override []string) []string {
	if len(override) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(override))
	out = append(out, base...)
	out = append(out, override...)
	return out
}
