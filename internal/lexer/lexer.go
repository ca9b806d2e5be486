// Package lexer implements the Qython lexical analyzer. Indentation is
// significant: the lexer tracks an indentation stack and produces INDENT and
// DEDENT tokens around blocks, joins lines inside brackets and drops blank and
// comment-only lines.
package lexer

import (
	"strings"

	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/position"
)

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	filename     string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // line of ch
	column       int  // column of ch

	indents     []string // indentation stack; the bottom entry is always ""
	pending     []Token  // queued INDENT/DEDENT/EOF tokens
	depth       int      // open brackets; newlines inside them are joined
	atLineStart bool
	finished    bool
	last        TokenType

	err *diagnostic.Diagnostic
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer instance with filename for error reporting
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		input:       input,
		filename:    filename,
		line:        1,
		indents:     []string{""},
		atLineStart: true,
		last:        TokenNewline,
	}

	l.readChar()
	return l
}

// Err returns the lexical diagnostic, if scanning failed.
func (l *Lexer) Err() *diagnostic.Diagnostic {
	return l.err
}

// Tokenize scans the whole input. On failure it returns the tokens read so far
// together with the diagnostic.
func Tokenize(input, filename string) ([]Token, *diagnostic.Diagnostic) {
	l := NewWithFilename(input, filename)

	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			return tokens, l.Err()
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition > len(l.input) {
		return
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition == len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) byte {
	idx := l.readPosition + n - 1
	if idx >= len(l.input) {
		return 0
	}
	return l.input[idx]
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) pos() position.Position {
	return position.Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   l.column,
		Offset:   l.position,
	}
}

// skipWhitespace skips whitespace characters (except newlines)
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	tok := l.nextToken()
	l.last = tok.Type
	return tok
}

func (l *Lexer) nextToken() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	if l.err != nil {
		return Token{Type: TokenEOF, Pos: l.pos()}
	}

	if l.atLineStart && l.depth == 0 {
		l.atLineStart = false
		if tok, ok := l.readIndentation(); !ok {
			return tok
		}
		if len(l.pending) > 0 {
			return l.nextToken()
		}
	}

	l.skipWhitespace()
	if l.ch == '#' {
		l.skipComment()
	}

	start := l.pos()
	if l.atEOF() {
		return l.endOfInput(start)
	}

	switch {
	case l.ch == '\n':
		l.readChar()
		if l.depth > 0 {
			return l.nextToken()
		}
		l.atLineStart = true
		return Token{Type: TokenNewline, Literal: "\n", Pos: start}
	case l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r' && l.peekAt(2) == '\n'):
		for l.ch != '\n' {
			l.readChar()
		}
		l.readChar()
		return l.nextToken()
	case isLetter(l.ch) || l.ch == '_':
		ident := l.readIdentifier()
		return Token{Type: lookupIdent(ident), Literal: ident, Pos: start}
	case isDigit(l.ch) || l.ch == '.' && isDigit(l.peekChar()):
		return l.readNumber(start)
	case l.ch == '"' || l.ch == '\'':
		return l.readString(start)
	}

	return l.readOperator(start)
}

// readIndentation measures the leading whitespace of the next logical line
// and queues INDENT or DEDENT tokens against the indentation stack.
func (l *Lexer) readIndentation() (Token, bool) {
	for {
		begin := l.position
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\f' {
			l.readChar()
		}
		indent := l.input[begin:l.position]
		pos := l.pos()

		if l.ch == '#' {
			l.skipComment()
		}
		if l.ch == '\r' && l.peekChar() == '\n' {
			l.readChar()
		}
		if l.atEOF() {
			return Token{}, true
		}
		if l.ch == '\n' {
			l.readChar()
			continue
		}

		return l.applyIndent(indent, pos)
	}
}

func (l *Lexer) applyIndent(indent string, pos position.Position) (Token, bool) {
	top := l.indents[len(l.indents)-1]

	switch {
	case indent == top:
	case strings.HasPrefix(indent, top):
		l.indents = append(l.indents, indent)
		l.pending = append(l.pending, Token{Type: TokenIndent, Literal: indent, Pos: pos})
	case strings.HasPrefix(top, indent):
		for len(indent) < len(top) {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos})
			top = l.indents[len(l.indents)-1]
		}
		if top != indent {
			return l.fail(pos, diagnostic.CodeUnmatchedDedent,
				"unindent does not match any outer indentation level"), false
		}
	default:
		return l.fail(pos, diagnostic.CodeMixedIndent,
			"inconsistent use of tabs and spaces in indentation"), false
	}

	return Token{}, true
}

// endOfInput closes the last logical line and every open block.
func (l *Lexer) endOfInput(pos position.Position) Token {
	if l.finished {
		return Token{Type: TokenEOF, Pos: pos}
	}
	l.finished = true

	if l.last != TokenNewline {
		l.pending = append(l.pending, Token{Type: TokenNewline, Pos: pos})
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos})
	}
	l.pending = append(l.pending, Token{Type: TokenEOF, Pos: pos})

	return l.nextToken()
}

func (l *Lexer) readIdentifier() string {
	begin := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[begin:l.position]
}

func (l *Lexer) readNumber(start position.Position) Token {
	begin := l.position
	tt := TokenInteger

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		tt = TokenFloat
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || (next == '+' || next == '-') && isDigit(l.peekAt(2)) {
			tt = TokenFloat
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	// Letters, underscores or a second point glued to the digits
	if isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '.' {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '.' {
			l.readChar()
		}
		return l.fail(start, diagnostic.CodeMalformedNumber,
			"malformed number %q", l.input[begin:l.position])
	}

	return Token{Type: tt, Literal: l.input[begin:l.position], Pos: start}
}

// readString reads a quoted string and returns its decoded value. Triple
// quoted strings may span lines.
func (l *Lexer) readString(start position.Position) Token {
	quote := l.ch
	triple := l.peekChar() == quote && l.peekAt(2) == quote

	l.readChar()
	if triple {
		l.readChar()
		l.readChar()
	}

	var sb strings.Builder
	for {
		if l.atEOF() || l.ch == '\n' && !triple {
			return l.fail(start, diagnostic.CodeUnterminatedString, "unterminated string literal")
		}

		if l.ch == quote {
			if !triple {
				l.readChar()
				break
			}
			if l.peekChar() == quote && l.peekAt(2) == quote {
				l.readChar()
				l.readChar()
				l.readChar()
				break
			}
		}

		if l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				continue
			}
			sb.WriteString(unescape(l.ch))
			l.readChar()
			continue
		}

		sb.WriteByte(l.ch)
		l.readChar()
	}

	return Token{Type: TokenString, Literal: sb.String(), Pos: start}
}

func unescape(ch byte) string {
	switch ch {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case '\\', '\'', '"':
		return string(ch)
	case '\n':
		return ""
	default:
		return "\\" + string(ch)
	}
}

var twoCharOps = map[string]TokenType{
	"==": TokenEq,
	"!=": TokenNe,
	"<=": TokenLe,
	">=": TokenGe,
	"+=": TokenPlusAssign,
	"-=": TokenMinusAssign,
	"*=": TokenMulAssign,
	"/=": TokenDivAssign,
	"**": TokenPower,
	"//": TokenFloorDiv,
}

var oneCharOps = map[byte]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMul,
	'/': TokenDiv,
	'%': TokenMod,
	'=': TokenAssign,
	'<': TokenLt,
	'>': TokenGt,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	',': TokenComma,
	':': TokenColon,
	'.': TokenDot,
	';': TokenSemicolon,
}

func (l *Lexer) readOperator(start position.Position) Token {
	if tt, ok := twoCharOps[string([]byte{l.ch, l.peekChar()})]; ok {
		lit := string([]byte{l.ch, l.peekChar()})
		l.readChar()
		l.readChar()
		return Token{Type: tt, Literal: lit, Pos: start}
	}

	tt, ok := oneCharOps[l.ch]
	if !ok {
		return l.fail(start, diagnostic.CodeIllegalChar, "illegal character %q", rune(l.ch))
	}

	switch tt {
	case TokenLParen, TokenLBracket, TokenLBrace:
		l.depth++
	case TokenRParen, TokenRBracket, TokenRBrace:
		if l.depth > 0 {
			l.depth--
		}
	}

	lit := string(l.ch)
	l.readChar()
	return Token{Type: tt, Literal: lit, Pos: start}
}

func (l *Lexer) fail(pos position.Position, code, format string, args ...any) Token {
	l.pending = nil
	l.err = diagnostic.NewDiagnostic().
		Lexical().
		Code(code).
		Message(format, args...).
		At(pos).
		Build()

	return Token{Type: TokenError, Literal: l.err.Message, Pos: pos}
}

// isLetter checks if character is ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is ASCII digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
