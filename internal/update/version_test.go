package update

import "testing"

func parseTestVersion(major, minor, patch uint8, pre *PreRelease) Version {
	return Version{Major: major, Minor: minor, Patch: patch, Pre: pre}
}

func TestVersionOrderingScenario(t *testing.T) {
	alpha1 := parseTestVersion(1, 0, 0, &PreRelease{Tag: Alpha, Number: 1})
	alpha2 := parseTestVersion(1, 0, 0, &PreRelease{Tag: Alpha, Number: 2})
	beta1 := parseTestVersion(1, 0, 0, &PreRelease{Tag: Beta, Number: 1})
	release := parseTestVersion(1, 0, 0, nil)
	v110 := parseTestVersion(1, 1, 0, nil)
	v200 := parseTestVersion(2, 0, 0, nil)

	ordered := []Version{alpha1, alpha2, beta1, release, v110, v200}
	for i := 0; i < len(ordered)-1; i++ {
		if ordered[i].Compare(ordered[i+1]) >= 0 {
			t.Fatalf("expected %+v < %+v", ordered[i], ordered[i+1])
		}
		if !ordered[i+1].GreaterThan(ordered[i]) {
			t.Fatalf("expected %+v.GreaterThan(%+v)", ordered[i+1], ordered[i])
		}
	}
}

func TestVersionEqualToSelf(t *testing.T) {
	v := parseTestVersion(1, 2, 3, &PreRelease{Tag: Beta, Number: 4})
	if v.Compare(v) != 0 {
		t.Fatalf("expected a version to compare equal to itself")
	}
}

func TestParseVersionRoundTrip(t *testing.T) {
	for _, s := range []string{"1.2.3", "0.1.0-alpha.2", "9.9.9-beta.0"} {
		v, err := ParseVersion(s)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", s, err)
		}
		if got := v.String(); got != s {
			t.Fatalf("ParseVersion(%q).String() = %q", s, got)
		}
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	for _, s := range []string{"1.2", "1.2.3.4", "a.b.c", "1.2.3-gamma.1"} {
		if _, err := ParseVersion(s); err == nil {
			t.Fatalf("ParseVersion(%q) = nil error, want error", s)
		}
	}
}
