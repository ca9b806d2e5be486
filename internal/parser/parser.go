// Package parser implements the Qython recursive descent parser. It builds
// the surface syntax tree from the token stream and rejects every construct
// outside the restricted grammar with a syntax diagnostic naming the tokens
// that would have been accepted.
package parser

import (
	"fmt"

	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/lexer"
)

// Parser represents the recursive descent parser
type Parser struct {
	tokens  []lexer.Token
	index   int
	current lexer.Token
	peek    lexer.Token

	err *diagnostic.Diagnostic
}

var (
	exprStart = []string{"IDENTIFIER", "NUMBER", "STRING", "(", "[", "-", "not", "True", "False", "None"}
	stmtStart = append([]string{"def", "return", "if", "while", "do", "converge", "raise"}, exprStart...)
)

// rejected names the host-syntax constructs the grammar refuses.
var rejected = map[lexer.TokenType]string{
	lexer.TokenFor:      "'for'",
	lexer.TokenElif:     "'elif'",
	lexer.TokenElse:     "'else:'",
	lexer.TokenBreak:    "'break'",
	lexer.TokenContinue: "'continue'",
}

// New creates a parser over a token stream that ends with EOF.
func New(tokens []lexer.Token) *Parser {
	p := &Parser{tokens: tokens}

	// Read the first two tokens
	p.nextToken()
	p.nextToken()

	return p
}

// Parse tokenizes and parses src in one step.
func Parse(src, filename string) (*ast.Program, *diagnostic.Diagnostic) {
	tokens, diag := lexer.Tokenize(src, filename)
	if diag != nil {
		return nil, diag
	}
	return New(tokens).ParseProgram()
}

// ParseProgram parses the whole token stream.
func (p *Parser) ParseProgram() (*ast.Program, *diagnostic.Diagnostic) {
	program := &ast.Program{Pos: p.current.Pos}

	for p.err == nil && !p.currentTokenIs(lexer.TokenEOF) {
		if p.currentTokenIs(lexer.TokenNewline) {
			p.nextToken()
			continue
		}
		if !p.currentTokenIs(lexer.TokenDef) {
			p.unexpected(p.current, "def")
			break
		}

		fn := p.parseFunctionDef()
		if fn == nil {
			break
		}
		program.Functions = append(program.Functions, fn)
		p.nextToken()
	}

	if p.err != nil {
		return nil, p.err
	}
	return program, nil
}

// nextToken advances the parser to the next token
func (p *Parser) nextToken() {
	p.current = p.peek
	if p.index < len(p.tokens) {
		p.peek = p.tokens[p.index]
		p.index++
	} else {
		p.peek = lexer.Token{Type: lexer.TokenEOF, Pos: p.current.Pos}
	}
}

// currentTokenIs checks if the current token is of the given type
func (p *Parser) currentTokenIs(tokenType lexer.TokenType) bool {
	return p.current.Type == tokenType
}

// peekTokenIs checks if the peek token is of the given type
func (p *Parser) peekTokenIs(tokenType lexer.TokenType) bool {
	return p.peek.Type == tokenType
}

func (p *Parser) peekIsWord(word string) bool {
	return p.peek.Type == lexer.TokenIdentifier && p.peek.Literal == word
}

// expectPeek advances if the peek token matches the expected type. The
// reported expected set is alternatives followed by tokenType.
func (p *Parser) expectPeek(tokenType lexer.TokenType, alternatives ...string) bool {
	if p.peekTokenIs(tokenType) {
		p.nextToken()
		return true
	}

	expected := append(append([]string{}, alternatives...), tokenType.String())
	p.unexpected(p.peek, expected...)
	return false
}

// expectWord advances past a contextual keyword such as `times` or `from`.
func (p *Parser) expectWord(word string) bool {
	if p.peekIsWord(word) {
		p.nextToken()
		return true
	}

	if p.err == nil {
		p.err = diagnostic.NewDiagnostic().
			Syntax().
			Code(diagnostic.CodeMalformedExtended).
			Message("unexpected %s in extension header", p.peek.Describe()).
			At(p.peek.Pos).
			Expect(fmt.Sprintf("'%s'", word)).
			Build()
	}
	return false
}

// unexpected records a syntax error at tok. Only the first error is kept.
func (p *Parser) unexpected(tok lexer.Token, expected ...string) {
	if p.err != nil {
		return
	}

	if construct, ok := rejected[tok.Type]; ok {
		p.err = diagnostic.Common.Unsupported(tok.Pos, construct, expected...)
		return
	}
	if tok.Type == lexer.TokenReserved || tok.Type == lexer.TokenLBrace {
		p.err = diagnostic.Common.Unsupported(tok.Pos, fmt.Sprintf("'%s'", tok.Literal), expected...)
		return
	}
	p.err = diagnostic.Common.UnexpectedToken(tok.Pos, tok.Describe(), expected...)
}

func (p *Parser) unsupported(tok lexer.Token, construct string, expected ...string) {
	if p.err == nil {
		p.err = diagnostic.Common.Unsupported(tok.Pos, construct, expected...)
	}
}

// ====== Definitions and blocks ======

// parseFunctionDef parses `def name(params):` and its block. It leaves the
// closing DEDENT as the current token.
func (p *Parser) parseFunctionDef() *ast.FunctionDef {
	fn := &ast.FunctionDef{Pos: p.current.Pos}

	if !p.expectPeek(lexer.TokenIdentifier) {
		return nil
	}
	fn.Name = p.current.Literal

	if !p.expectPeek(lexer.TokenLParen) {
		return nil
	}

	fn.Params = p.parseParameters()
	if p.err != nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenColon) {
		return nil
	}

	fn.Body = p.parseBlock()
	if p.err != nil {
		return nil
	}

	// A leading string literal is the docstring
	if len(fn.Body) > 0 {
		if es, ok := fn.Body[0].(*ast.ExprStmt); ok {
			if s, ok := es.X.(*ast.String); ok {
				fn.Docstring = s.Value
				fn.Body = fn.Body[1:]
			}
		}
	}

	return fn
}

func (p *Parser) parseParameters() []string {
	params := []string{}

	if p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(lexer.TokenIdentifier) {
			return nil
		}
		params = append(params, p.current.Literal)

		switch {
		case p.peekTokenIs(lexer.TokenAssign):
			p.unsupported(p.peek, "default parameter value", ",", ")")
			return nil
		case p.peekTokenIs(lexer.TokenComma):
			p.nextToken()
			if p.peekTokenIs(lexer.TokenRParen) {
				p.nextToken()
				return params
			}
		default:
			if !p.expectPeek(lexer.TokenRParen, ",") {
				return nil
			}
			return params
		}
	}
}

// parseBlock parses NEWLINE INDENT statements DEDENT after a colon. The
// DEDENT is left as the current token.
func (p *Parser) parseBlock() []ast.Statement {
	if !p.expectPeek(lexer.TokenNewline) {
		return nil
	}
	if !p.expectPeek(lexer.TokenIndent) {
		return nil
	}
	p.nextToken()

	var body []ast.Statement
	for p.err == nil && !p.currentTokenIs(lexer.TokenDedent) && !p.currentTokenIs(lexer.TokenEOF) {
		stmt := p.parseStatement()
		if p.err != nil || stmt == nil {
			return nil
		}
		body = append(body, stmt)
		p.nextToken()
	}

	return body
}

// ====== Statements ======

func (p *Parser) parseStatement() ast.Statement {
	switch p.current.Type {
	case lexer.TokenDef:
		if fn := p.parseFunctionDef(); fn != nil {
			return fn
		}
		return nil
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	case lexer.TokenIf:
		return p.parseIfStatement()
	case lexer.TokenWhile:
		return p.parseWhileStatement()
	case lexer.TokenDo:
		return p.parseRepeatStatement()
	case lexer.TokenRaise:
		return p.parseRaiseStatement()
	case lexer.TokenIdentifier:
		if p.current.Literal == "converge" && p.peekIsWord("on") {
			return p.parseConvergeStatement()
		}
	case lexer.TokenFor, lexer.TokenElif, lexer.TokenElse, lexer.TokenBreak, lexer.TokenContinue,
		lexer.TokenReserved, lexer.TokenIndent, lexer.TokenSemicolon:
		p.unexpected(p.current, stmtStart...)
		return nil
	}

	return p.parseSimpleStatement()
}

var augmented = map[lexer.TokenType]string{
	lexer.TokenPlusAssign:  "+",
	lexer.TokenMinusAssign: "-",
	lexer.TokenMulAssign:   "*",
	lexer.TokenDivAssign:   "/",
}

// parseSimpleStatement parses an assignment, an augmented assignment or an
// expression statement, ending on its NEWLINE.
func (p *Parser) parseSimpleStatement() ast.Statement {
	start := p.current
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	var stmt ast.Statement
	switch {
	case p.peekTokenIs(lexer.TokenAssign):
		target := p.assignTarget(expr)
		if target == nil {
			return nil
		}
		p.nextToken()
		p.nextToken()
		value := p.parseTupleFreeExpression()
		if value == nil {
			return nil
		}
		stmt = &ast.Assign{Target: target.Value, Value: value, Pos: start.Pos}

	case augmented[p.peek.Type] != "":
		target := p.assignTarget(expr)
		if target == nil {
			return nil
		}
		op := augmented[p.peek.Type]
		p.nextToken()
		p.nextToken()
		value := p.parseTupleFreeExpression()
		if value == nil {
			return nil
		}
		stmt = &ast.Assign{
			Target: target.Value,
			Value: &ast.BinaryOp{
				Op:    op,
				Left:  &ast.Name{Value: target.Value, Pos: target.Pos},
				Right: value,
				Pos:   target.Pos,
			},
			Pos: start.Pos,
		}

	case p.peekTokenIs(lexer.TokenComma):
		p.unsupported(p.peek, "tuple", "=", "NEWLINE")
		return nil

	default:
		stmt = &ast.ExprStmt{X: expr, Pos: start.Pos}
	}

	if !p.expectPeek(lexer.TokenNewline) {
		return nil
	}
	return stmt
}

func (p *Parser) assignTarget(expr ast.Expression) *ast.Name {
	if name, ok := expr.(*ast.Name); ok {
		return name
	}

	if p.err == nil {
		p.err = diagnostic.NewDiagnostic().
			Syntax().
			Code(diagnostic.CodeInvalidTarget).
			Message("cannot assign to %s", expr.Kind()).
			At(expr.GetPos()).
			Expect("IDENTIFIER").
			Build()
	}
	return nil
}

// parseTupleFreeExpression parses an expression and rejects a trailing
// comma, which would make it a tuple.
func (p *Parser) parseTupleFreeExpression() ast.Expression {
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if p.peekTokenIs(lexer.TokenComma) {
		p.unsupported(p.peek, "tuple", "NEWLINE")
		return nil
	}
	return expr
}

// parseReturnStatement parses a return statement
func (p *Parser) parseReturnStatement() *ast.Return {
	ret := &ast.Return{Pos: p.current.Pos}

	if p.peekTokenIs(lexer.TokenNewline) {
		p.nextToken()
		return ret
	}

	p.nextToken()
	ret.Value = p.parseTupleFreeExpression()
	if ret.Value == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenNewline) {
		return nil
	}
	return ret
}

// parseIfStatement parses an if statement. There is no else branch.
func (p *Parser) parseIfStatement() *ast.If {
	stmt := &ast.If{Pos: p.current.Pos}

	p.nextToken()
	stmt.Cond = p.parseExpression(LOWEST)
	if stmt.Cond == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenColon) {
		return nil
	}

	stmt.Body = p.parseBlock()
	if p.err != nil {
		return nil
	}
	return stmt
}

// parseWhileStatement parses a while statement
func (p *Parser) parseWhileStatement() *ast.While {
	stmt := &ast.While{Pos: p.current.Pos}

	p.nextToken()
	stmt.Cond = p.parseExpression(LOWEST)
	if stmt.Cond == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenColon) {
		return nil
	}

	stmt.Body = p.parseBlock()
	if p.err != nil {
		return nil
	}
	return stmt
}

// parseRepeatStatement parses `do COUNT times:`.
func (p *Parser) parseRepeatStatement() *ast.RepeatStmt {
	stmt := &ast.RepeatStmt{Pos: p.current.Pos}

	p.nextToken()
	stmt.Count = p.parseExpression(LOWEST)
	if stmt.Count == nil {
		return nil
	}

	if !p.expectWord("times") {
		return nil
	}
	if !p.expectPeek(lexer.TokenColon) {
		return nil
	}

	stmt.Body = p.parseBlock()
	if p.err != nil {
		return nil
	}
	return stmt
}

// parseConvergeStatement parses `converge on NAME starting from EXPR:`.
func (p *Parser) parseConvergeStatement() *ast.ConvergeStmt {
	stmt := &ast.ConvergeStmt{Pos: p.current.Pos}

	p.nextToken() // on
	if !p.expectPeek(lexer.TokenIdentifier) {
		return nil
	}
	stmt.Var = p.current.Literal

	if !p.expectWord("starting") || !p.expectWord("from") {
		return nil
	}

	p.nextToken()
	stmt.Start = p.parseTupleFreeExpression()
	if stmt.Start == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenColon) {
		return nil
	}

	stmt.Body = p.parseBlock()
	if p.err != nil {
		return nil
	}
	return stmt
}

// parseRaiseStatement parses `raise EXPR`.
func (p *Parser) parseRaiseStatement() *ast.Raise {
	stmt := &ast.Raise{Pos: p.current.Pos}

	if p.peekTokenIs(lexer.TokenNewline) {
		p.unexpected(p.peek, exprStart...)
		return nil
	}

	p.nextToken()
	stmt.Message = p.parseTupleFreeExpression()
	if stmt.Message == nil {
		return nil
	}

	if !p.expectPeek(lexer.TokenNewline) {
		return nil
	}
	return stmt
}
