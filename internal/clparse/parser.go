// Package clparse parses OpenCL C source into the clast syntax tree.
//
// Only the top level of a translation unit is parsed in detail: function
// definitions and prototypes have their specifiers, names and parameter
// declarations recorded, while function bodies, initializers, typedefs and
// aggregate definitions are skipped by bracket matching. Preprocessor
// directives are rejected; the input must already be preprocessed.
package clparse

import (
	"fmt"

	"github.com/cwbudde/clargs/internal/clast"
)

var funcSpecifiers = map[string]bool{
	"kernel":   true,
	"__kernel": true,
	"inline":   true,
	"__inline": true,
	"static":   true,
	"extern":   true,
	"register": true,
	"auto":     true,
}

var qualifiers = map[string]bool{
	"const":        true,
	"volatile":     true,
	"restrict":     true,
	"__restrict":   true,
	"global":       true,
	"__global":     true,
	"local":        true,
	"__local":      true,
	"constant":     true,
	"__constant":   true,
	"private":      true,
	"__private":    true,
	"read_only":    true,
	"__read_only":  true,
	"write_only":   true,
	"__write_only": true,
	"read_write":   true,
	"__read_write": true,
}

// builtin type keywords; never taken as a declarator name.
var typeKeywords = map[string]bool{
	"void":     true,
	"bool":     true,
	"_Bool":    true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"float":    true,
	"double":   true,
	"half":     true,
	"signed":   true,
	"unsigned": true,
}

var signedness = map[string]bool{"signed": true, "unsigned": true}

var integerBases = map[string]bool{"char": true, "short": true, "int": true, "long": true}

// Parser turns source text into a clast.TranslationUnit. It holds no state
// between calls and is safe for concurrent use.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse parses src. Errors are *SyntaxError.
func (*Parser) Parse(src string) (*clast.TranslationUnit, error) {
	tokens, err := newLexer(src).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.translationUnit()
}

type parser struct {
	tokens []Token
	pos    int
}

// specifiers collects a declaration specifier list.
type specifiers struct {
	funcSpecs []string
	quals     []string
	names     []string
	aggregate *clast.Struct
}

func (s *specifiers) hasType() bool {
	return len(s.names) > 0 || s.aggregate != nil
}

// ----------------------------------------------------------------------------
// Token helpers
// ----------------------------------------------------------------------------

func (p *parser) cur() Token {
	return p.peek(0)
}

func (p *parser) peek(offset int) Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) is(punct string) bool {
	tok := p.cur()
	return tok.Kind == TokPunct && tok.Text == punct
}

func (p *parser) isWord(word string) bool {
	tok := p.cur()
	return tok.Kind == TokIdent && tok.Text == word
}

func (p *parser) atEOF() bool {
	return p.cur().Kind == TokEOF
}

func (p *parser) expect(punct string) error {
	if !p.is(punct) {
		return p.errorf(p.cur(), "expected %q, got %s", punct, p.cur())
	}
	p.advance()
	return nil
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &SyntaxError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)}
}

// skipBalanced consumes a bracketed group starting at the current open token
// and returns the tokens between the brackets.
func (p *parser) skipBalanced(open, close string) ([]Token, error) {
	start := p.cur()
	if err := p.expect(open); err != nil {
		return nil, err
	}
	from := p.pos
	depth := 1
	for {
		tok := p.cur()
		if tok.Kind == TokEOF {
			return nil, p.errorf(start, "unbalanced %q", open)
		}
		if tok.Kind == TokPunct {
			switch tok.Text {
			case open:
				depth++
			case close:
				depth--
			}
		}
		if depth == 0 {
			inner := p.tokens[from:p.pos]
			p.advance()
			return inner, nil
		}
		p.advance()
	}
}

// skipToSemicolon consumes tokens up to and including the next ';' outside
// any brackets.
func (p *parser) skipToSemicolon() error {
	start := p.cur()
	depth := 0
	for {
		tok := p.cur()
		if tok.Kind == TokEOF {
			return p.errorf(start, "expected ';' before end of input")
		}
		if tok.Kind == TokPunct {
			switch tok.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			case ";":
				if depth == 0 {
					p.advance()
					return nil
				}
			}
		}
		p.advance()
	}
}

func (p *parser) skipAttributes() error {
	for p.isWord("__attribute__") || p.isWord("__attribute") {
		p.advance()
		if _, err := p.skipBalanced("(", ")"); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (p *parser) translationUnit() (*clast.TranslationUnit, error) {
	tu := &clast.TranslationUnit{}
	for !p.atEOF() {
		if p.is(";") {
			p.advance()
			continue
		}
		decl, err := p.externalDecl()
		if err != nil {
			return nil, err
		}
		tu.Decls = append(tu.Decls, decl)
	}
	return tu, nil
}

func (p *parser) externalDecl() (clast.Decl, error) {
	start := p.cur()
	if p.isWord("typedef") {
		if err := p.skipToSemicolon(); err != nil {
			return nil, err
		}
		return &clast.OtherDecl{Line: start.Line}, nil
	}

	spec, err := p.declSpecifiers()
	if err != nil {
		return nil, err
	}
	if !spec.hasType() {
		return nil, p.errorf(p.cur(), "expected type specifier, got %s", p.cur())
	}
	// struct S { ... };
	if p.is(";") {
		p.advance()
		return &clast.OtherDecl{Line: start.Line}, nil
	}

	ret := spec.baseType()
	for p.is("*") {
		p.advance()
		quals, err := p.pointerQuals()
		if err != nil {
			return nil, err
		}
		ret = &clast.Pointer{Inner: ret, Quals: quals}
	}

	nameTok := p.cur()
	if nameTok.Kind != TokIdent || !p.peekIs(1, "(") {
		// variables, arrays, function pointers: nothing to extract
		if err := p.skipToSemicolon(); err != nil {
			return nil, err
		}
		return &clast.OtherDecl{Line: start.Line}, nil
	}
	p.advance()

	params, err := p.paramList()
	if err != nil {
		return nil, err
	}
	if err := p.skipAttributes(); err != nil {
		return nil, err
	}

	switch {
	case p.is("{"):
		if _, err := p.skipBalanced("{", "}"); err != nil {
			return nil, err
		}
		return &clast.FuncDef{
			Name:       nameTok.Text,
			Specifiers: spec.funcSpecs,
			Return:     ret,
			Params:     params,
			Line:       nameTok.Line,
		}, nil
	case p.atEOF():
		return nil, p.errorf(p.cur(), "expected function body or ';' after %q", nameTok.Text)
	default:
		if err := p.skipToSemicolon(); err != nil {
			return nil, err
		}
		return &clast.FuncDecl{
			Name:       nameTok.Text,
			Specifiers: spec.funcSpecs,
			Params:     params,
			Line:       nameTok.Line,
		}, nil
	}
}

func (p *parser) peekIs(offset int, punct string) bool {
	tok := p.peek(offset)
	return tok.Kind == TokPunct && tok.Text == punct
}

// declSpecifiers reads function specifiers, qualifiers, attributes and type
// names up to the declarator. An identifier is taken as the declarator name
// once a type has been seen and the token after it ends a declarator.
func (p *parser) declSpecifiers() (*specifiers, error) {
	spec := &specifiers{}
	for {
		tok := p.cur()
		if tok.Kind != TokIdent {
			return spec, nil
		}
		word := tok.Text
		switch {
		case funcSpecifiers[word]:
			spec.funcSpecs = append(spec.funcSpecs, word)
			p.advance()
		case qualifiers[word]:
			spec.quals = append(spec.quals, word)
			p.advance()
		case word == "__attribute__" || word == "__attribute":
			if err := p.skipAttributes(); err != nil {
				return nil, err
			}
		case word == "struct" || word == "union" || word == "enum":
			agg, err := p.aggregate()
			if err != nil {
				return nil, err
			}
			spec.aggregate = agg
		case typeKeywords[word]:
			spec.names = append(spec.names, word)
			p.advance()
		default:
			if spec.hasType() && p.endsDeclarator(p.peek(1)) {
				return spec, nil
			}
			spec.names = append(spec.names, word)
			p.advance()
		}
	}
}

func (p *parser) endsDeclarator(tok Token) bool {
	if tok.Kind == TokIdent {
		return tok.Text == "__attribute__" || tok.Text == "__attribute"
	}
	if tok.Kind != TokPunct {
		return tok.Kind == TokEOF
	}
	switch tok.Text {
	case "(", ")", "[", ";", ",", "=", ":":
		return true
	}
	return false
}

func (p *parser) aggregate() (*clast.Struct, error) {
	agg := &clast.Struct{Keyword: p.advance().Text}
	if p.cur().Kind == TokIdent {
		agg.Tag = p.advance().Text
	}
	if p.is("{") {
		if _, err := p.skipBalanced("{", "}"); err != nil {
			return nil, err
		}
	}
	if agg.Tag == "" && !p.is(";") && p.cur().Kind != TokIdent && !p.is("*") {
		return nil, p.errorf(p.cur(), "expected %s tag or body", agg.Keyword)
	}
	return agg, nil
}

func (s *specifiers) baseType() clast.Type {
	if s.aggregate != nil {
		return s.aggregate
	}
	return &clast.Named{Names: normalizeNames(s.names), Quals: s.quals}
}

// normalizeNames folds "unsigned int" style pairs into a single token.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for i := 0; i < len(names); i++ {
		if signedness[names[i]] && i+1 < len(names) && integerBases[names[i+1]] {
			out = append(out, names[i]+" "+names[i+1])
			i++
			continue
		}
		out = append(out, names[i])
	}
	return out
}

func (p *parser) pointerQuals() ([]string, error) {
	var quals []string
	for {
		switch {
		case p.cur().Kind == TokIdent && qualifiers[p.cur().Text]:
			quals = append(quals, p.advance().Text)
		case p.isWord("__attribute__") || p.isWord("__attribute"):
			if err := p.skipAttributes(); err != nil {
				return nil, err
			}
		default:
			return quals, nil
		}
	}
}

func (p *parser) paramList() ([]*clast.ParamDecl, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if p.is(")") {
		p.advance()
		return nil, nil
	}
	if p.isWord("void") && p.peekIs(1, ")") {
		p.advance()
		p.advance()
		return nil, nil
	}

	var params []*clast.ParamDecl
	for {
		if p.is("...") {
			return nil, p.errorf(p.cur(), "variadic parameters are not supported")
		}
		param, err := p.paramDecl()
		if err != nil {
			return nil, err
		}
		params = append(params, param)

		switch {
		case p.is(","):
			p.advance()
		case p.is(")"):
			p.advance()
			return params, nil
		default:
			return nil, p.errorf(p.cur(), "expected ',' or ')' in parameter list, got %s", p.cur())
		}
	}
}

func (p *parser) paramDecl() (*clast.ParamDecl, error) {
	start := p.cur()
	spec, err := p.declSpecifiers()
	if err != nil {
		return nil, err
	}
	if !spec.hasType() {
		return nil, p.errorf(p.cur(), "expected parameter type, got %s", p.cur())
	}

	var t clast.Type = spec.baseType()
	for p.is("*") {
		p.advance()
		quals, err := p.pointerQuals()
		if err != nil {
			return nil, err
		}
		t = &clast.Pointer{Inner: t, Quals: quals}
	}
	if p.is("(") {
		return nil, p.errorf(p.cur(), "function pointer parameters are not supported")
	}

	param := &clast.ParamDecl{Quals: spec.quals, Line: start.Line}
	if p.cur().Kind == TokIdent && !typeKeywords[p.cur().Text] {
		param.Name = p.advance().Text
	}
	for p.is("[") {
		inner, err := p.skipBalanced("[", "]")
		if err != nil {
			return nil, err
		}
		dim := ""
		for _, tok := range inner {
			dim += tok.Text
		}
		t = &clast.Array{Inner: t, Dim: dim}
	}
	if err := p.skipAttributes(); err != nil {
		return nil, err
	}
	param.Type = t
	return param, nil
}
