package lexer

import (
	"fmt"

	"github.com/qython-lang/qython/internal/position"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types
const (
	// special
	TokenEOF TokenType = iota
	TokenError
	TokenNewline
	TokenIndent
	TokenDedent

	// literals
	TokenIdentifier
	TokenInteger
	TokenFloat
	TokenString

	// keywords
	TokenDef
	TokenReturn
	TokenIf
	TokenWhile
	TokenDo
	TokenAnd
	TokenOr
	TokenNot
	TokenTrue
	TokenFalse
	TokenNone
	TokenRaise

	// keywords of the host syntax that the restricted grammar rejects
	TokenFor
	TokenElif
	TokenElse
	TokenBreak
	TokenContinue
	TokenReserved

	// operators
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenFloorDiv
	TokenMod
	TokenPower
	TokenAssign
	TokenPlusAssign
	TokenMinusAssign
	TokenMulAssign
	TokenDivAssign
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe

	// delimiters
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenColon
	TokenDot
	TokenSemicolon
)

// Token represents a lexical token with position information
type Token struct {
	Literal string
	Pos     position.Position
	Type    TokenType
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal, t.Pos.Line, t.Pos.Column)
}

// Describe renders the token the way diagnostics quote it.
func (t Token) Describe() string {
	switch t.Type {
	case TokenEOF, TokenNewline, TokenIndent, TokenDedent:
		return t.Type.String()
	case TokenIdentifier:
		return fmt.Sprintf("identifier %q", t.Literal)
	case TokenInteger, TokenFloat:
		return fmt.Sprintf("number %s", t.Literal)
	case TokenString:
		return "string literal"
	default:
		return fmt.Sprintf("'%s'", t.Literal)
	}
}

// tokenNames provides string representations for token types
var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenError:   "ERROR",
	TokenNewline: "NEWLINE",
	TokenIndent:  "INDENT",
	TokenDedent:  "DEDENT",

	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",

	TokenDef:    "def",
	TokenReturn: "return",
	TokenIf:     "if",
	TokenWhile:  "while",
	TokenDo:     "do",
	TokenAnd:    "and",
	TokenOr:     "or",
	TokenNot:    "not",
	TokenTrue:   "True",
	TokenFalse:  "False",
	TokenNone:   "None",
	TokenRaise:  "raise",

	TokenFor:      "for",
	TokenElif:     "elif",
	TokenElse:     "else",
	TokenBreak:    "break",
	TokenContinue: "continue",
	TokenReserved: "RESERVED",

	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenMul:         "*",
	TokenDiv:         "/",
	TokenFloorDiv:    "//",
	TokenMod:         "%",
	TokenPower:       "**",
	TokenAssign:      "=",
	TokenPlusAssign:  "+=",
	TokenMinusAssign: "-=",
	TokenMulAssign:   "*=",
	TokenDivAssign:   "/=",
	TokenEq:          "==",
	TokenNe:          "!=",
	TokenLt:          "<",
	TokenLe:          "<=",
	TokenGt:          ">",
	TokenGe:          ">=",

	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenComma:     ",",
	TokenColon:     ":",
	TokenDot:       ".",
	TokenSemicolon: ";",
}

// keywords maps string keywords to their token types
var keywords = map[string]TokenType{
	"def":    TokenDef,
	"return": TokenReturn,
	"if":     TokenIf,
	"while":  TokenWhile,
	"do":     TokenDo,
	"and":    TokenAnd,
	"or":     TokenOr,
	"not":    TokenNot,
	"True":   TokenTrue,
	"False":  TokenFalse,
	"None":   TokenNone,
	"raise":  TokenRaise,

	"for":      TokenFor,
	"elif":     TokenElif,
	"else":     TokenElse,
	"break":    TokenBreak,
	"continue": TokenContinue,

	"lambda":   TokenReserved,
	"class":    TokenReserved,
	"import":   TokenReserved,
	"in":       TokenReserved,
	"is":       TokenReserved,
	"pass":     TokenReserved,
	"global":   TokenReserved,
	"nonlocal": TokenReserved,
	"yield":    TokenReserved,
	"try":      TokenReserved,
	"except":   TokenReserved,
	"finally":  TokenReserved,
	"with":     TokenReserved,
	"as":       TokenReserved,
	"del":      TokenReserved,
	"assert":   TokenReserved,
	"async":    TokenReserved,
	"await":    TokenReserved,
}

// lookupIdent checks if identifier is keyword
func lookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}
