package clparse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokNumber
	TokString
	TokChar
	TokPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokIdent:
		return "identifier"
	case TokNumber:
		return "number"
	case TokString:
		return "string literal"
	case TokChar:
		return "character literal"
	case TokPunct:
		return "punctuator"
	default:
		return "unknown"
	}
}

// Token is a lexical token with its source position.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Kind == TokEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%q", t.Text)
}

type lexer struct {
	input        string
	position     int  // start of current char
	readPosition int  // after current char
	ch           rune // current char, 0 at end of input
	line         int
	column       int
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.position = l.readPosition
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.readPosition += w
	l.column++
}

func (l *lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// tokenize lexes the whole input. Comments and whitespace are dropped.
func (l *lexer) tokenize() ([]Token, error) {
	var tokens []Token
	for {
		if err := l.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) skipSpaceAndComments() error {
	for !l.atEnd() {
		switch {
		case l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r'):
			// line continuation
			l.readChar()
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '#' && l.atLineStart():
			if err := l.skipDirective(); err != nil {
				return err
			}
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			line, col := l.line, l.column
			l.readChar()
			l.readChar()
			for {
				if l.atEnd() {
					return &SyntaxError{Line: line, Column: col, Msg: "unterminated block comment"}
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return nil
		}
	}
	return nil
}

// atLineStart reports whether only blanks precede the current char on its
// line.
func (l *lexer) atLineStart() bool {
	for i := l.position - 1; i >= 0; i-- {
		switch l.input[i] {
		case ' ', '\t':
			continue
		case '\n', '\r':
			return true
		default:
			return false
		}
	}
	return true
}

// skipDirective consumes a #pragma, #line or "# 1 file" line marker up to
// the end of its line. Any other directive is an error: macros, includes
// and conditionals must be expanded before parsing.
func (l *lexer) skipDirective() error {
	line, col := l.line, l.column
	l.readChar()
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}
	start := l.position
	for !l.atEnd() && isIdentPart(l.ch) {
		l.readChar()
	}
	name := l.input[start:l.position]

	switch {
	case name == "pragma", name == "line", name != "" && isDigit(rune(name[0])):
	case name == "" && (l.atEnd() || l.ch == '\n' || l.ch == '\r'):
		// null directive
	default:
		return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf("preprocessor directives are not supported: #%s", name)}
	}

	for !l.atEnd() && l.ch != '\n' {
		if l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r') {
			l.readChar()
			if l.ch == '\r' && l.peekChar() == '\n' {
				l.readChar()
			}
		}
		l.readChar()
	}
	return nil
}

func (l *lexer) next() (Token, error) {
	line, col := l.line, l.column
	if l.atEnd() {
		return Token{Kind: TokEOF, Line: line, Column: col}, nil
	}

	switch {
	case l.ch == '#':
		return Token{}, &SyntaxError{Line: line, Column: col, Msg: "'#' outside a preprocessor directive"}
	case isIdentStart(l.ch):
		start := l.position
		for !l.atEnd() && isIdentPart(l.ch) {
			l.readChar()
		}
		return Token{Kind: TokIdent, Text: l.input[start:l.position], Line: line, Column: col}, nil
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(line, col), nil
	case l.ch == '"' || l.ch == '\'':
		return l.readQuoted(line, col)
	case l.ch == '.' && strings.HasPrefix(l.input[l.position:], "..."):
		l.readChar()
		l.readChar()
		l.readChar()
		return Token{Kind: TokPunct, Text: "...", Line: line, Column: col}, nil
	case strings.ContainsRune("{}()[];,*=<>+-/%&|^!~?:.", l.ch):
		text := string(l.ch)
		l.readChar()
		return Token{Kind: TokPunct, Text: text, Line: line, Column: col}, nil
	default:
		return Token{}, &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf("unexpected character %q", l.ch)}
	}
}

func (l *lexer) readNumber(line, col int) Token {
	start := l.position
	for !l.atEnd() {
		prev := l.ch
		if isIdentPart(l.ch) || l.ch == '.' {
			l.readChar()
			// exponent sign: 1e-5, 0x1p+3
			if (prev == 'e' || prev == 'E' || prev == 'p' || prev == 'P') && (l.ch == '+' || l.ch == '-') {
				l.readChar()
			}
			continue
		}
		break
	}
	return Token{Kind: TokNumber, Text: l.input[start:l.position], Line: line, Column: col}
}

func (l *lexer) readQuoted(line, col int) (Token, error) {
	quote := l.ch
	start := l.position
	l.readChar()
	for {
		if l.atEnd() || l.ch == '\n' {
			return Token{}, &SyntaxError{Line: line, Column: col, Msg: "unterminated literal"}
		}
		if l.ch == '\\' {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == quote {
			l.readChar()
			break
		}
		l.readChar()
	}
	kind := TokString
	if quote == '\'' {
		kind = TokChar
	}
	return Token{Kind: kind, Text: l.input[start:l.position], Line: line, Column: col}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
