package lang

import (
	"strings"
	"testing"
)

func pythonPlugin(t *testing.T) Plugin {
	t.Helper()
	for _, p := range All() {
		if p.Name() == "python" {
			return p
		}
	}
	t.Fatal("python plugin missing")
	return nil
}

func TestForFile(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"src/app/main.py", "python"},
		{"pkg/store/store.go", "go"},
		{"web/src/App.tsx", "javascript"},
		{"web/src/util.mjs", "javascript"},
	}
	for _, tc := range cases {
		p, ok := ForFile(tc.path)
		if !ok || p.Name() != tc.want {
			t.Errorf("ForFile(%q) = %v, want %s", tc.path, p, tc.want)
		}
	}
	if _, ok := ForFile("README.md"); ok {
		t.Error("markdown claimed by a plugin")
	}
}

func TestDetectByMarkerAndCount(t *testing.T) {
	files := []string{"main.go", "util.go", "scripts/one_off.py"}
	plugins := Detect(files, func(marker string) bool { return marker == "go.mod" })
	if len(plugins) == 0 || plugins[0].Name() != "go" {
		t.Fatalf("primary = %v", names(plugins))
	}

	// Marker outweighs a larger stray file count.
	files = []string{"a.py", "b.py", "c.py", "main.go"}
	plugins = Detect(files, func(marker string) bool { return marker == "go.mod" })
	if plugins[0].Name() != "go" {
		t.Errorf("marker did not outrank file count: %v", names(plugins))
	}
}

func TestPythonImports(t *testing.T) {
	py := pythonPlugin(t)
	src := strings.Join([]string{
		"import os",
		"from pkg.util import helper",
		"# import commented_out",
		"def f():",
		"    import json",
		"",
	}, "\n")

	imports := py.Imports([]byte(src))
	if len(imports) != 3 {
		t.Fatalf("imports = %+v", imports)
	}
	if imports[0].Raw != "os" || imports[0].Deferred {
		t.Errorf("imports[0] = %+v", imports[0])
	}
	if imports[1].Raw != "pkg.util" {
		t.Errorf("imports[1] = %+v", imports[1])
	}
	if !imports[2].Deferred {
		t.Error("function-body import should be deferred")
	}
}

func TestPythonResolveImport(t *testing.T) {
	py := pythonPlugin(t)
	got := py.ResolveImport("src/app/views.py", "app.models")
	wantAny := map[string]bool{
		"app/models.py":             true,
		"app/models/__init__.py":    true,
		"src/app/app/models.py":     true,
		"src/app/app/models/__init__.py": true,
	}
	if len(got) != 4 {
		t.Fatalf("candidates = %v", got)
	}
	for _, c := range got {
		if !wantAny[c] {
			t.Errorf("unexpected candidate %q", c)
		}
	}
}

func TestPythonIsEntry(t *testing.T) {
	py := pythonPlugin(t)
	if !py.IsEntry("pkg/__main__.py", nil) {
		t.Error("__main__.py is an entry point")
	}
	if !py.IsEntry("tool.py", []byte("if __name__ == \"__main__\":\n    main()\n")) {
		t.Error("main guard is an entry point")
	}
	if py.IsEntry("pkg/util.py", []byte("def f():\n    pass\n")) {
		t.Error("plain module flagged as entry")
	}
}

func TestPythonExtractFunctions(t *testing.T) {
	py := pythonPlugin(t)
	src := strings.Join([]string{
		"def simple(a, b):",
		"    return a + b",
		"",
		"def branchy(x):",
		"    if x > 0:",
		"        for i in range(x):",
		"            print(i)",
		"    return x",
		"",
	}, "\n")

	fns := py.ExtractFunctions("m.py", []byte(src))
	if len(fns) != 2 {
		t.Fatalf("functions = %+v", fns)
	}
	if fns[0].Name != "simple" || fns[0].Params != 2 || fns[0].Line != 1 {
		t.Errorf("simple = %+v", fns[0])
	}
	if fns[0].Complexity != 1 {
		t.Errorf("simple complexity = %d", fns[0].Complexity)
	}
	if fns[1].Name != "branchy" {
		t.Errorf("branchy = %+v", fns[1])
	}
	// 1 + if + for.
	if fns[1].Complexity != 3 {
		t.Errorf("branchy complexity = %d", fns[1].Complexity)
	}
	if fns[1].Nesting < 2 {
		t.Errorf("branchy nesting = %d", fns[1].Nesting)
	}
	if fns[0].BodyHash == fns[1].BodyHash {
		t.Error("distinct bodies hashed identically")
	}
}

func TestNormalizedHashIgnoresCommentsAndSpacing(t *testing.T) {
	py := pythonPlugin(t)
	a := py.ExtractFunctions("a.py", []byte("def f(x):\n    return x + 1  # inc\n"))
	b := py.ExtractFunctions("b.py", []byte("def f(x):\n    return  x   + 1\n"))
	if len(a) != 1 || len(b) != 1 {
		t.Fatal("extraction failed")
	}
	if a[0].BodyHash != b[0].BodyHash {
		t.Error("normalization should make these bodies identical")
	}
}

func names(ps []Plugin) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
