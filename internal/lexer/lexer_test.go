package lexer

import (
	"testing"

	"github.com/qython-lang/qython/internal/diagnostic"
)

type expectedToken struct {
	expectedType  TokenType
	expectedValue string
}

func checkTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%s)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Literal)
		}
	}
}

func TestBasicTokens(t *testing.T) {
	input := "def sq(x):\n    return x ** 2\n"

	checkTokens(t, input, []expectedToken{
		{TokenDef, "def"},
		{TokenIdentifier, "sq"},
		{TokenLParen, "("},
		{TokenIdentifier, "x"},
		{TokenRParen, ")"},
		{TokenColon, ":"},
		{TokenNewline, "\n"},
		{TokenIndent, "    "},
		{TokenReturn, "return"},
		{TokenIdentifier, "x"},
		{TokenPower, "**"},
		{TokenInteger, "2"},
		{TokenNewline, "\n"},
		{TokenDedent, ""},
		{TokenEOF, ""},
	})
}

func TestOperators(t *testing.T) {
	input := `a // b ** c % d != e <= f >= g == h += -= *= /= < > = + - * /`

	checkTokens(t, input, []expectedToken{
		{TokenIdentifier, "a"},
		{TokenFloorDiv, "//"},
		{TokenIdentifier, "b"},
		{TokenPower, "**"},
		{TokenIdentifier, "c"},
		{TokenMod, "%"},
		{TokenIdentifier, "d"},
		{TokenNe, "!="},
		{TokenIdentifier, "e"},
		{TokenLe, "<="},
		{TokenIdentifier, "f"},
		{TokenGe, ">="},
		{TokenIdentifier, "g"},
		{TokenEq, "=="},
		{TokenIdentifier, "h"},
		{TokenPlusAssign, "+="},
		{TokenMinusAssign, "-="},
		{TokenMulAssign, "*="},
		{TokenDivAssign, "/="},
		{TokenLt, "<"},
		{TokenGt, ">"},
		{TokenAssign, "="},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenMul, "*"},
		{TokenDiv, "/"},
		{TokenNewline, ""},
		{TokenEOF, ""},
	})
}

func TestKeywords(t *testing.T) {
	input := `for elif else break continue lambda in converge on starting from times do raise None`

	checkTokens(t, input, []expectedToken{
		{TokenFor, "for"},
		{TokenElif, "elif"},
		{TokenElse, "else"},
		{TokenBreak, "break"},
		{TokenContinue, "continue"},
		{TokenReserved, "lambda"},
		{TokenReserved, "in"},
		{TokenIdentifier, "converge"},
		{TokenIdentifier, "on"},
		{TokenIdentifier, "starting"},
		{TokenIdentifier, "from"},
		{TokenIdentifier, "times"},
		{TokenDo, "do"},
		{TokenRaise, "raise"},
		{TokenNone, "None"},
	})
}

func TestNumbers(t *testing.T) {
	input := `1 2.5 .5 1e-10 3E4 007`

	checkTokens(t, input, []expectedToken{
		{TokenInteger, "1"},
		{TokenFloat, "2.5"},
		{TokenFloat, ".5"},
		{TokenFloat, "1e-10"},
		{TokenFloat, "3E4"},
		{TokenInteger, "007"},
	})
}

func TestStrings(t *testing.T) {
	input := "\"a\\\"b\" 'c' \"\"\"doc\n  line\"\"\" 'tab\\there'"

	checkTokens(t, input, []expectedToken{
		{TokenString, `a"b`},
		{TokenString, "c"},
		{TokenString, "doc\n  line"},
		{TokenString, "tab\there"},
		{TokenNewline, ""},
		{TokenEOF, ""},
	})
}

func TestBracketJoining(t *testing.T) {
	input := "def f(a,\n      b):\n    return [a,\n b]\n"

	checkTokens(t, input, []expectedToken{
		{TokenDef, "def"},
		{TokenIdentifier, "f"},
		{TokenLParen, "("},
		{TokenIdentifier, "a"},
		{TokenComma, ","},
		{TokenIdentifier, "b"},
		{TokenRParen, ")"},
		{TokenColon, ":"},
		{TokenNewline, "\n"},
		{TokenIndent, "    "},
		{TokenReturn, "return"},
		{TokenLBracket, "["},
		{TokenIdentifier, "a"},
		{TokenComma, ","},
		{TokenIdentifier, "b"},
		{TokenRBracket, "]"},
		{TokenNewline, "\n"},
		{TokenDedent, ""},
		{TokenEOF, ""},
	})
}

func TestBlankAndCommentLines(t *testing.T) {
	input := "def f():\n\n    # note\n    x = 1  # trailing\n\n    return x\n"

	checkTokens(t, input, []expectedToken{
		{TokenDef, "def"},
		{TokenIdentifier, "f"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenColon, ":"},
		{TokenNewline, "\n"},
		{TokenIndent, "    "},
		{TokenIdentifier, "x"},
		{TokenAssign, "="},
		{TokenInteger, "1"},
		{TokenNewline, "\n"},
		{TokenReturn, "return"},
		{TokenIdentifier, "x"},
		{TokenNewline, "\n"},
		{TokenDedent, ""},
		{TokenEOF, ""},
	})
}

func TestNestedDedent(t *testing.T) {
	input := "def f():\n    if x:\n        y = 1\n    return y\n"

	checkTokens(t, input, []expectedToken{
		{TokenDef, "def"},
		{TokenIdentifier, "f"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenColon, ":"},
		{TokenNewline, "\n"},
		{TokenIndent, "    "},
		{TokenIf, "if"},
		{TokenIdentifier, "x"},
		{TokenColon, ":"},
		{TokenNewline, "\n"},
		{TokenIndent, "        "},
		{TokenIdentifier, "y"},
		{TokenAssign, "="},
		{TokenInteger, "1"},
		{TokenNewline, "\n"},
		{TokenDedent, ""},
		{TokenReturn, "return"},
		{TokenIdentifier, "y"},
		{TokenNewline, "\n"},
		{TokenDedent, ""},
		{TokenEOF, ""},
	})
}

func TestDedentsAtEOF(t *testing.T) {
	input := "def f():\n    if x:\n        y = 1"

	tokens, diag := Tokenize(input, "f.qy")
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}

	tail := tokens[len(tokens)-4:]
	want := []TokenType{TokenNewline, TokenDedent, TokenDedent, TokenEOF}
	for i, tt := range want {
		if tail[i].Type != tt {
			t.Fatalf("tail[%d] - tokentype wrong. expected=%q, got=%q", i, tt, tail[i].Type)
		}
	}
}

func TestPositions(t *testing.T) {
	tokens, diag := Tokenize("def f(x):\n    return x\n", "f.qy")
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}

	tests := []struct {
		index  int
		line   int
		column int
	}{
		{0, 1, 1},  // def
		{2, 1, 6},  // (
		{6, 1, 10}, // NEWLINE
		{7, 2, 5},  // INDENT
		{8, 2, 5},  // return
		{9, 2, 12}, // x
	}

	for i, tt := range tests {
		tok := tokens[tt.index]
		if tok.Pos.Line != tt.line || tok.Pos.Column != tt.column {
			t.Fatalf("tests[%d] - %s at %d:%d, want %d:%d",
				i, tok.Type, tok.Pos.Line, tok.Pos.Column, tt.line, tt.column)
		}
		if tok.Pos.Filename != "f.qy" {
			t.Fatalf("tests[%d] - filename wrong: %q", i, tok.Pos.Filename)
		}
	}
}

func TestLexicalErrors(t *testing.T) {
	tests := []struct {
		input  string
		code   string
		line   int
		column int
	}{
		{"def f():\n    x = 1\n  y = 2\n", diagnostic.CodeUnmatchedDedent, 3, 3},
		{"def f():\n    x = 1\n\ty = 2\n", diagnostic.CodeMixedIndent, 3, 2},
		{"def f():\n    if x:\n    \ty = 2\n    \t\tz = 1\n  \ty = 3\n", diagnostic.CodeMixedIndent, 5, 4},
		{"x = 1abc", diagnostic.CodeMalformedNumber, 1, 5},
		{"x = 1.2.3", diagnostic.CodeMalformedNumber, 1, 5},
		{`x = "abc`, diagnostic.CodeUnterminatedString, 1, 5},
		{"x = 'ab\ncd'", diagnostic.CodeUnterminatedString, 1, 5},
		{"x = 1 $ 2", diagnostic.CodeIllegalChar, 1, 7},
		{"x = !y", diagnostic.CodeIllegalChar, 1, 5},
	}

	for i, tt := range tests {
		_, diag := Tokenize(tt.input, "")
		if diag == nil {
			t.Fatalf("tests[%d] - expected a diagnostic for %q", i, tt.input)
		}
		if diag.Kind != diagnostic.KindLexical || diag.Phase != diagnostic.PhaseLex {
			t.Fatalf("tests[%d] - kind wrong: %v/%v", i, diag.Kind, diag.Phase)
		}
		if diag.Code != tt.code {
			t.Fatalf("tests[%d] - code wrong. expected=%s, got=%s (%s)", i, tt.code, diag.Code, diag.Message)
		}
		if diag.Pos.Line != tt.line || diag.Pos.Column != tt.column {
			t.Fatalf("tests[%d] - position wrong. expected=%d:%d, got=%d:%d",
				i, tt.line, tt.column, diag.Pos.Line, diag.Pos.Column)
		}
	}
}
