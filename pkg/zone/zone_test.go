package zone

import "testing"

func TestMatchesPatternForms(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		// "/dir/" substring on the full path, including a leading component
		{"/vendor/", "vendor/lib/x.py", true},
		{"/vendor/", "src/vendor/x.py", true},
		{"/vendor/", "src/vendored/x.py", false},
		// ".ext" suffix on the filename
		{".pb.go", "api/service.pb.go", true},
		{".pb.go", "api/servicepb.go", false},
		// "prefix_" basename prefix
		{"test_", "tests/test_scoring.py", true},
		{"test_", "tests/scoring_test.py", false},
		// "_suffix" basename ends-with before the extension
		{"_test", "pkg/state/store_test.go", true},
		{"_test", "pkg/state/store.go", false},
		// exact basename
		{"Makefile", "build/Makefile", true},
		{"Makefile", "build/Makefile.am", false},
	}
	for _, tc := range cases {
		if got := Matches(tc.pattern, tc.path); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestClassifyDefaults(t *testing.T) {
	c := NewClassifier(nil, nil)
	cases := []struct {
		path string
		want Zone
	}{
		{"src/app/main.py", Production},
		{"vendor/requests/api.py", Vendor},
		{"node_modules/react/index.js", Vendor},
		{"gen/generated/schema.py", Generated},
		{"api/v1/service.pb.go", Generated},
		{"tests/test_merge.py", Test},
		{"pkg/queue/queue_test.go", Test},
		{"scripts/release.sh", Script},
		{"pyproject.toml", Config},
		{"deploy/Dockerfile", Config},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// User overrides beat plugin rules beat defaults; first match wins.
	overrides := []Rule{{"/vendor/", Production}}
	plugin := []Rule{{".toml", Script}}
	c := NewClassifier(overrides, plugin)

	if got := c.Classify("vendor/keep/x.py"); got != Production {
		t.Errorf("override lost to default: %q", got)
	}
	if got := c.Classify("config/app.toml"); got != Script {
		t.Errorf("plugin rule lost to default: %q", got)
	}
}

func TestClassifyExactPathOverride(t *testing.T) {
	c := NewClassifier([]Rule{{"src/legacy/dump.py", Generated}}, nil)
	if got := c.Classify("src/legacy/dump.py"); got != Generated {
		t.Errorf("exact-path override ignored: %q", got)
	}
	if got := c.Classify("src/legacy/other.py"); got != Production {
		t.Errorf("exact-path override leaked: %q", got)
	}
}

func TestPolicyFor(t *testing.T) {
	// Generated and vendor skip everything.
	for _, z := range []Zone{Generated, Vendor} {
		if PolicyFor("smells", z) != Skip {
			t.Errorf("%s zone should skip all detectors", z)
		}
	}
	// Test zone: structural noise detectors skip, the rest downgrade.
	if PolicyFor("dupes", Test) != Skip {
		t.Error("dupes should skip in test zone")
	}
	if PolicyFor("smells", Test) != Downgrade {
		t.Error("smells should downgrade in test zone")
	}
	// Script zone is mostly normal.
	if PolicyFor("smells", Script) != Normal {
		t.Error("smells should be normal in script zone")
	}
	if PolicyFor("orphaned", Script) != Skip {
		t.Error("orphaned should skip in script zone")
	}
	if PolicyFor("large", Production) != Normal {
		t.Error("production is always normal")
	}
}

func TestExcludedFromScoring(t *testing.T) {
	for _, z := range All {
		want := z == Generated || z == Vendor
		if got := ExcludedFromScoring(z); got != want {
			t.Errorf("ExcludedFromScoring(%q) = %v", z, got)
		}
	}
}
