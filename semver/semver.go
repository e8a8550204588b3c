// Package semver wraps github.com/Masterminds/semver/v3 for range
// satisfaction and ordering, and golang.org/x/mod/semver for the strict
// MAJOR.MINOR.PATCH validation a package's own identity version requires
// (a constraint may be loose; a package's declared version may not be).
package semver

import (
	"fmt"
	"sort"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	xsemver "golang.org/x/mod/semver"
)

// Version is a parsed semantic version.
type Version struct {
	v   *mm.Version
	raw string
}

// Constraint is a parsed semantic version range, e.g. "^1.2", "~1.4",
// ">=1.0.0 <2.0.0".
type Constraint struct {
	c   *mm.Constraints
	raw string
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v, raw: raw}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Prerelease reports whether v carries a pre-release component.
func (v Version) Prerelease() bool {
	return v.v != nil && v.v.Prerelease() != ""
}

func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c, raw: raw}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Constraint) String() string {
	return c.raw
}

// Satisfies reports whether v satisfies c. Pre-release versions only
// satisfy a constraint that itself names a pre-release, Masterminds'
// default pre-release exclusion rule; the pre-release need not share the
// constraint's version core.
func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, ordering pre-release versions per semver 2.0 precedence.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// SortDescending sorts versions from highest to lowest precedence in
// place. The sort is stable so candidates of equal precedence retain
// their relative registry order.
func SortDescending(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) > 0
	})
}

// MaxSatisfying returns the highest-precedence version in candidates that
// satisfies c. candidates need not be pre-sorted.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}

// Intersect combines constraints into a single Constraint whose
// satisfaction requires satisfying every input. Masterminds treats a
// comma-joined range list as a logical AND.
func Intersect(constraints []Constraint) (Constraint, error) {
	if len(constraints) == 0 {
		return ParseConstraint("*")
	}
	parts := make([]string, len(constraints))
	for i, c := range constraints {
		parts[i] = c.raw
	}
	return ParseConstraint(strings.Join(parts, ", "))
}

// ValidatePackageVersion enforces the strict MAJOR.MINOR.PATCH form a
// package's own declared identity version must take — unlike a
// constraint, a package version may not elide components. It returns the
// version string without a leading "v".
func ValidatePackageVersion(raw string) (string, error) {
	prefixed := raw
	if !strings.HasPrefix(prefixed, "v") {
		prefixed = "v" + prefixed
	}
	if !xsemver.IsValid(prefixed) {
		return "", fmt.Errorf("semver: %q is not a valid semantic version", raw)
	}
	if xsemver.Canonical(prefixed) != prefixed {
		return "", fmt.Errorf("semver: %q must specify MAJOR.MINOR.PATCH exactly", raw)
	}
	return strings.TrimPrefix(prefixed, "v"), nil
}
