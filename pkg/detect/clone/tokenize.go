package clone

import "strings"

// Token kinds. Identifiers and literals collapse to a single kind each so
// renamed variables and changed constants still match; keywords and
// operators keep their exact spelling since they carry the structure.
const (
	kindIdent   = "id"
	kindLiteral = "lit"
)

// keywords spans the built-in languages; classifying a non-keyword as a
// keyword only sharpens matching, never breaks it.
var keywords = map[string]bool{
	"if": true, "else": true, "elif": true, "for": true, "while": true,
	"return": true, "break": true, "continue": true, "switch": true,
	"case": true, "default": true, "func": true, "def": true, "class": true,
	"try": true, "except": true, "catch": true, "finally": true,
	"raise": true, "throw": true, "with": true, "import": true, "from": true,
	"const": true, "var": true, "let": true, "lambda": true, "yield": true,
	"async": true, "await": true, "go": true, "defer": true, "select": true,
	"range": true, "in": true, "not": true, "and": true, "or": true,
	"nil": true, "none": true, "null": true, "true": true, "false": true,
}

// tokenize converts a normalized (lowercased, whitespace-collapsed) body
// into a token kind sequence.
func tokenize(normalized string) []string {
	var tokens []string
	for _, line := range strings.Split(normalized, "\n") {
		for _, word := range splitSymbols(line) {
			switch {
			case word == "":
			case keywords[word]:
				tokens = append(tokens, word)
			case isLiteral(word):
				tokens = append(tokens, kindLiteral)
			case isIdent(word):
				tokens = append(tokens, kindIdent)
			default:
				tokens = append(tokens, word) // operator or punctuation
			}
		}
	}
	return tokens
}

// splitSymbols splits a line into words and individual symbol runs.
func splitSymbols(line string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == ' ' || r == '\t':
			flush()
		case isWordRune(r):
			cur.WriteRune(r)
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isLiteral(word string) bool {
	r := word[0]
	return (r >= '0' && r <= '9') || r == '"' || r == '\''
}

func isIdent(word string) bool {
	r := word[0]
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
