// Package sqlscan splits SQL text into coarse tokens so parameter markers can
// be found without touching string literals, quoted identifiers or comments.
package sqlscan

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind classifies a token
type Kind int

const (
	Text Kind = iota
	String
	Identifier
	Comment
	Named
	Positional
)

// Token is a run of SQL text of a single kind
type Token struct {
	Kind  Kind
	Value string
}

// Scanner tokenizes SQL for one string literal syntax
type Scanner struct {
	def   *lexer.StatefulDefinition
	kinds map[lexer.TokenType]Kind
}

var (
	// Standard accepts only '' as an escape inside string literals, so
	// 'C:\' is a complete literal.
	Standard = newScanner(`'(?:''|[^'])*'`)
	// BackslashEscapes also accepts \' and other backslash escapes inside
	// string literals, as MySQL does by default.
	BackslashEscapes = newScanner(`'(?:''|\\.|[^'\\])*'`)
)

// Rules are tried in order; the first match wins.
func newScanner(stringPattern string) *Scanner {
	def := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: stringPattern},
		{Name: "QuotedIdent", Pattern: `"(?:""|[^"])*"|` + "`(?:``|[^`])*`"},
		{Name: "LineComment", Pattern: `--[^\n]*`},
		{Name: "BlockComment", Pattern: `/\*(?:[^*]|\*+[^*/])*\*+/`},
		{Name: "Cast", Pattern: `::`},
		{Name: "Named", Pattern: `:[A-Za-z_][A-Za-z0-9_]*`},
		{Name: "Positional", Pattern: `\?`},
		{Name: "Text", Pattern: "[^'\"`:?/\\-]+"},
		{Name: "Char", Pattern: `[\s\S]`},
	})
	symbols := def.Symbols()
	return &Scanner{
		def: def,
		kinds: map[lexer.TokenType]Kind{
			symbols["String"]:       String,
			symbols["QuotedIdent"]:  Identifier,
			symbols["LineComment"]:  Comment,
			symbols["BlockComment"]: Comment,
			symbols["Named"]:        Named,
			symbols["Positional"]:   Positional,
		},
	}
}

// Tokenize splits query with the Standard scanner
func Tokenize(query string) ([]Token, error) { return Standard.Tokenize(query) }

// Rewrite rewrites query with the Standard scanner
func Rewrite(query string, replace func(Token) (string, error)) (string, error) {
	return Standard.Rewrite(query, replace)
}

// Tokenize splits query into tokens. Adjacent text is merged.
func (s *Scanner) Tokenize(query string) ([]Token, error) {
	lex, err := s.def.LexString("", query)
	if err != nil {
		return nil, err
	}

	var out []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			return out, nil
		}
		kind, ok := s.kinds[tok.Type]
		if !ok {
			kind = Text
		}
		if kind == Text && len(out) > 0 && out[len(out)-1].Kind == Text {
			out[len(out)-1].Value += tok.Value
			continue
		}
		out = append(out, Token{Kind: kind, Value: tok.Value})
	}
}

// Rewrite rebuilds query, replacing every Named and Positional marker with
// the result of replace. Other tokens are copied unchanged.
func (s *Scanner) Rewrite(query string, replace func(Token) (string, error)) (string, error) {
	tokens, err := s.Tokenize(query)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(query))
	for _, tok := range tokens {
		if tok.Kind != Named && tok.Kind != Positional {
			sb.WriteString(tok.Value)
			continue
		}
		out, err := replace(tok)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}
