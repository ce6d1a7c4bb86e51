package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGlobPatterns(t *testing.T) {
	m := FromPatterns([]string{"*.gen.ts", "*.min.js"})
	if !m.Ignored("src/api/client.gen.ts", false) {
		t.Error("glob should match at any depth")
	}
	if m.Ignored("src/api/client.ts", false) {
		t.Error("non-matching file ignored")
	}
}

func TestDirOnlyRule(t *testing.T) {
	m := FromPatterns([]string{"fixtures/"})
	if !m.Ignored("fixtures", true) {
		t.Error("dir rule should match the directory")
	}
	if !m.Ignored("tests/fixtures", true) {
		t.Error("unanchored dir rule should match at depth")
	}
	if m.Ignored("fixtures", false) {
		t.Error("dir-only rule matched a plain file")
	}
	// Files under an ignored directory are ignored too.
	if !m.Ignored("fixtures/sample.json", false) {
		t.Error("file under ignored dir should be ignored")
	}
}

func TestAnchoredRule(t *testing.T) {
	m := FromPatterns([]string{"/sandbox"})
	if !m.Ignored("sandbox", false) {
		t.Error("anchored rule should match at the root")
	}
	if m.Ignored("src/sandbox", false) {
		t.Error("anchored rule matched below the root")
	}
}

func TestInteriorSlashAnchors(t *testing.T) {
	m := FromPatterns([]string{"docs/*.md"})
	if !m.Ignored("docs/readme.md", false) {
		t.Error("interior-slash pattern should match from the root")
	}
	if m.Ignored("pkg/docs/readme.md", false) {
		t.Error("interior-slash pattern matched at depth")
	}
}

func TestNegation(t *testing.T) {
	m := FromPatterns([]string{"*.log", "!keep.log"})
	if !m.Ignored("out/build.log", false) {
		t.Error("*.log should ignore build.log")
	}
	if m.Ignored("out/keep.log", false) {
		t.Error("negation did not rescue keep.log")
	}
}

func TestNegationBeatsParentDir(t *testing.T) {
	m := FromPatterns([]string{"generated/", "!generated/schema.py"})
	if !m.Ignored("generated/junk.py", false) {
		t.Error("generated/junk.py should be ignored")
	}
	if m.Ignored("generated/schema.py", false) {
		t.Error("negated file inside ignored dir should survive")
	}
}

func TestLastMatchWins(t *testing.T) {
	m := FromPatterns([]string{"!a.txt", "a.txt"})
	if !m.Ignored("a.txt", false) {
		t.Error("later positive rule should win over earlier negation")
	}
}

func TestLoadMissingAndComments(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if !m.Empty() {
		t.Error("missing file should yield empty matcher")
	}

	content := "# generated output\n\n*.gen.ts\nfixtures/\n"
	if err := os.WriteFile(filepath.Join(dir, File), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err = Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Empty() || !m.Ignored("x.gen.ts", false) || !m.Ignored("fixtures", true) {
		t.Error("loaded rules did not apply")
	}
}
