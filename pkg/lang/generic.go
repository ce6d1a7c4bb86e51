package lang

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/scourdev/scour/pkg/phase"
	"github.com/scourdev/scour/pkg/zone"
)

// importPattern pairs an import regex with the deferred flag and a resolver
// that turns the captured module string into candidate repo paths.
type importPattern struct {
	re       *regexp.Regexp
	deferred bool
}

// spec is the static table behind a generic plugin. All language behavior
// is data; the extraction machinery below is shared.
type spec struct {
	name       string
	extensions []string
	markers    []string
	zoneRules  []zone.Rule
	thresholds phase.Thresholds

	imports []importPattern
	// resolve turns a captured import target into candidate repo paths.
	resolve func(fromRel, raw string) []string

	entryPatterns []*regexp.Regexp
	entryBases    []string

	// funcStart captures (name, params) at a function definition line.
	funcStart *regexp.Regexp
	// indentBlocks languages (Python) end a function when indentation
	// drops; otherwise braces are balanced.
	indentBlocks bool
	// branchKeywords increment cyclomatic complexity.
	branchKeywords []string
	lineComment    string
}

// generic implements Plugin from a spec table.
type generic struct {
	s spec

	branchRe *regexp.Regexp
}

func newGeneric(s spec) *generic {
	g := &generic{s: s}
	if len(s.branchKeywords) > 0 {
		g.branchRe = regexp.MustCompile(`\b(` + strings.Join(s.branchKeywords, "|") + `)\b`)
	}
	return g
}

func (g *generic) Name() string                 { return g.s.name }
func (g *generic) Extensions() []string         { return g.s.extensions }
func (g *generic) DetectMarkers() []string      { return g.s.markers }
func (g *generic) ZoneRules() []zone.Rule       { return g.s.zoneRules }
func (g *generic) Thresholds() phase.Thresholds { return g.s.thresholds }

func (g *generic) IsEntry(rel string, content []byte) bool {
	base := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		base = rel[i+1:]
	}
	for _, b := range g.s.entryBases {
		if base == b {
			return true
		}
	}
	for _, re := range g.s.entryPatterns {
		if re.Match(content) {
			return true
		}
	}
	return false
}

func (g *generic) Imports(content []byte) []Import {
	var out []Import
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if g.s.lineComment != "" && strings.HasPrefix(trimmed, g.s.lineComment) {
			continue
		}
		for _, p := range g.s.imports {
			m := p.re.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			deferred := p.deferred
			// Indented imports inside function bodies are lazy.
			if g.s.indentBlocks && line != trimmed {
				deferred = true
			}
			out = append(out, Import{Raw: m[1], Deferred: deferred})
			break
		}
	}
	return out
}

func (g *generic) ResolveImport(fromRel, raw string) []string {
	if g.s.resolve == nil {
		return nil
	}
	return g.s.resolve(fromRel, raw)
}

// ExtractFunctions runs the shared lightweight extractor: regex-matched
// function starts, block tracking by indentation or braces, complexity as
// 1 + branch keyword count, and a normalized body hash for duplicate
// detection.
func (g *generic) ExtractFunctions(rel string, content []byte) []phase.Function {
	if g.s.funcStart == nil {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	var out []phase.Function

	i := 0
	for i < len(lines) {
		m := g.s.funcStart.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		// The name is the first non-empty capture; the parameter list is
		// always the final capture. Specs with alternating name slots
		// (arrow functions vs declarations) rely on this.
		name := ""
		for _, c := range m[1 : len(m)-1] {
			if c != "" {
				name = c
				break
			}
		}
		if name == "" {
			i++
			continue
		}
		params := countParams(m[len(m)-1])

		var body []string
		var end int
		if g.s.indentBlocks {
			body, end = indentBlock(lines, i)
		} else {
			body, end = braceBlock(lines, i)
		}

		fn := phase.Function{
			File:    rel,
			Name:    name,
			Line:    i + 1,
			LOC:     len(body),
			Params:  params,
			Nesting: maxNesting(body, g.s.indentBlocks),
		}
		fn.Complexity = 1
		if g.branchRe != nil {
			for _, l := range body {
				fn.Complexity += len(g.branchRe.FindAllString(l, -1))
			}
		}
		fn.Normalized = normalizeBody(body, g.s.lineComment)
		fn.BodyHash = fmt.Sprintf("%x", sha256.Sum256([]byte(fn.Normalized)))
		out = append(out, fn)

		if end > i {
			i = end
		} else {
			i++
		}
	}
	return out
}

func countParams(paramList string) int {
	paramList = strings.TrimSpace(paramList)
	if paramList == "" {
		return 0
	}
	depth, n := 0, 1
	for _, r := range paramList {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				n++
			}
		}
	}
	return n
}

// indentBlock collects the body of an indentation-delimited function
// starting at lines[start]. Returns the body lines and the index after it.
func indentBlock(lines []string, start int) ([]string, int) {
	base := indentOf(lines[start])
	var body []string
	i := start + 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			body = append(body, line)
			continue
		}
		if indentOf(line) <= base {
			break
		}
		body = append(body, line)
	}
	// Trim trailing blank lines from the body.
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}
	return body, i
}

// braceBlock collects a brace-delimited body starting at the definition
// line. Strings and comments are not tokenized; the heuristic is fine for
// ranking, not for compilation.
func braceBlock(lines []string, start int) ([]string, int) {
	depth := 0
	opened := false
	var body []string
	for i := start; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if i > start {
			body = append(body, lines[i])
		}
		if opened && depth <= 0 {
			return body, i + 1
		}
	}
	return body, len(lines)
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func maxNesting(body []string, indentBlocks bool) int {
	if indentBlocks {
		base := -1
		maxIndent := 0
		for _, line := range body {
			if strings.TrimSpace(line) == "" {
				continue
			}
			ind := indentOf(line)
			if base == -1 || ind < base {
				base = ind
			}
			if ind > maxIndent {
				maxIndent = ind
			}
		}
		if base < 0 {
			return 0
		}
		return (maxIndent - base) / 4
	}
	depth, maxDepth := 0, 0
	for _, line := range body {
		for _, r := range line {
			switch r {
			case '{':
				depth++
				if depth > maxDepth {
					maxDepth = depth
				}
			case '}':
				depth--
			}
		}
	}
	return maxDepth
}

// normalizeBody strips comments, collapses whitespace, and lowercases so
// near-identical bodies hash identically.
func normalizeBody(body []string, lineComment string) string {
	var b strings.Builder
	for _, line := range body {
		if lineComment != "" {
			if i := strings.Index(line, lineComment); i >= 0 {
				line = line[:i]
			}
		}
		line = strings.ToLower(strings.Join(strings.Fields(line), " "))
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
