package decl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	default:
		return "punctuation"
	}
}

type token struct {
	text string
	kind tokenKind
	pos  Pos
}

func (t token) String() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%q", t.text)
}

func (t token) is(punct string) bool { return t.kind == tokPunct && t.text == punct }

func (t token) isIdent(name string) bool { return t.kind == tokIdent && t.text == name }

type lexer struct {
	file         string
	input        string
	position     int
	readPosition int
	ch           rune
	line         int
	column       int
}

func newLexer(file, input string) *lexer {
	l := &lexer{file: file, input: input, line: 1}
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
		l.readPosition++
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

func (l *lexer) pos() Pos { return Pos{File: l.file, Line: l.line, Column: l.column} }

func (l *lexer) errorf(pos Pos, format string, args ...any) error {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) atEOF() bool { return l.position >= len(l.input) }

// skipSpace consumes whitespace and comments.
func (l *lexer) skipSpace() error {
	for !l.atEOF() {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos()
			l.readChar()
			l.readChar()
			for {
				if l.atEOF() {
					return l.errorf(start, "unterminated block comment")
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

func (l *lexer) next() (token, error) {
	if err := l.skipSpace(); err != nil {
		return token{}, err
	}
	pos := l.pos()
	if l.atEOF() {
		return token{kind: tokEOF, pos: pos}, nil
	}
	switch ch := l.ch; {
	case isIdentStart(ch):
		start := l.position
		for !l.atEOF() && isIdentPart(l.ch) {
			l.readChar()
		}
		return token{kind: tokIdent, text: l.input[start:l.position], pos: pos}, nil
	case isDigit(ch) || (ch == '-' && isDigit(l.peekChar())) || (ch == '.' && isDigit(l.peekChar())):
		start := l.position
		l.readChar()
		for !l.atEOF() && (isDigit(l.ch) || l.ch == '.' || l.ch == 'e' || l.ch == 'E' || l.ch == 'x' || l.ch == 'X' ||
			(l.ch >= 'a' && l.ch <= 'f') || (l.ch >= 'A' && l.ch <= 'F') ||
			((l.ch == '+' || l.ch == '-') && (l.input[l.position-1] == 'e' || l.input[l.position-1] == 'E'))) {
			l.readChar()
		}
		return token{kind: tokNumber, text: l.input[start:l.position], pos: pos}, nil
	case ch == '"' || ch == '\'':
		return l.readString(pos, ch)
	case ch == '.' && strings.HasPrefix(l.input[l.position:], "..."):
		l.readChar()
		l.readChar()
		l.readChar()
		return token{kind: tokPunct, text: "...", pos: pos}, nil
	case strings.ContainsRune("{}()[]<>:;,?|=@.", ch):
		l.readChar()
		return token{kind: tokPunct, text: string(ch), pos: pos}, nil
	default:
		return token{}, l.errorf(pos, "unexpected character %q", ch)
	}
}

func (l *lexer) readString(pos Pos, quote rune) (token, error) {
	var b strings.Builder
	l.readChar()
	for {
		if l.atEOF() || l.ch == '\n' {
			return token{}, l.errorf(pos, "unterminated string literal")
		}
		if l.ch == quote {
			l.readChar()
			return token{kind: tokString, text: b.String(), pos: pos}, nil
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '\\', '\'', '"':
				b.WriteRune(l.ch)
			default:
				return token{}, l.errorf(l.pos(), "unknown escape sequence \\%c", l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }
