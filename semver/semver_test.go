package semver

import "testing"

func TestSatisfiesCaret(t *testing.T) {
	c := MustParseConstraint("^1.0")
	for _, tc := range []struct {
		v    string
		want bool
	}{
		{"1.0.0", true},
		{"1.2.3", true},
		{"2.0.0", false},
		{"0.9.0", false},
	} {
		v := MustParseVersion(tc.v)
		if got := Satisfies(v, c); got != tc.want {
			t.Errorf("Satisfies(%s, ^1.0) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestMaxSatisfyingPicksHighest(t *testing.T) {
	c := MustParseConstraint("^1.0")
	candidates := []Version{
		MustParseVersion("1.0.0"),
		MustParseVersion("1.2.3"),
		MustParseVersion("2.0.0"),
	}
	best, ok := MaxSatisfying(c, candidates)
	if !ok {
		t.Fatal("expected a satisfying version")
	}
	if best.String() != "1.2.3" {
		t.Errorf("got %s, want 1.2.3", best.String())
	}
}

func TestMaxSatisfyingNoneSatisfy(t *testing.T) {
	c := MustParseConstraint("^3.0")
	candidates := []Version{MustParseVersion("1.0.0"), MustParseVersion("2.0.0")}
	if _, ok := MaxSatisfying(c, candidates); ok {
		t.Fatal("expected no satisfying version")
	}
}

func TestSortDescending(t *testing.T) {
	versions := []Version{
		MustParseVersion("1.0.0"),
		MustParseVersion("2.0.0"),
		MustParseVersion("1.5.0"),
	}
	SortDescending(versions)
	want := []string{"2.0.0", "1.5.0", "1.0.0"}
	for i, w := range want {
		if versions[i].String() != w {
			t.Errorf("position %d: got %s, want %s", i, versions[i].String(), w)
		}
	}
}

func TestIntersectNarrowsRange(t *testing.T) {
	c, err := Intersect([]Constraint{
		MustParseConstraint(">=1.0.0"),
		MustParseConstraint("<2.0.0"),
	})
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if !Satisfies(MustParseVersion("1.5.0"), c) {
		t.Error("expected 1.5.0 to satisfy the intersection")
	}
	if Satisfies(MustParseVersion("2.0.0"), c) {
		t.Error("expected 2.0.0 to violate the intersection")
	}
}

func TestPrereleaseExcludedByDefault(t *testing.T) {
	c := MustParseConstraint("^1.0")
	v := MustParseVersion("1.0.0-alpha.1")
	if Satisfies(v, c) {
		t.Error("a plain range should not admit a pre-release by default")
	}
}

func TestValidatePackageVersionRequiresAllThreeComponents(t *testing.T) {
	if _, err := ValidatePackageVersion("1.2"); err == nil {
		t.Error("expected error for a two-component version")
	}
	canon, err := ValidatePackageVersion("1.2.3")
	if err != nil {
		t.Fatalf("ValidatePackageVersion: %v", err)
	}
	if canon != "1.2.3" {
		t.Errorf("got %q, want %q", canon, "1.2.3")
	}
}

func TestValidatePackageVersionStripsLeadingV(t *testing.T) {
	canon, err := ValidatePackageVersion("v1.2.3")
	if err != nil {
		t.Fatalf("ValidatePackageVersion: %v", err)
	}
	if canon != "1.2.3" {
		t.Errorf("got %q, want %q", canon, "1.2.3")
	}
}
