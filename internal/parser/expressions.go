package parser

import (
	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/lexer"
)

// ====== Expression Parsing (Pratt Parser) ======

// Precedence levels for operators
type Precedence int

const (
	_ Precedence = iota
	LOWEST
	LOGICAL_OR  // or
	LOGICAL_AND // and
	LOGICAL_NOT // not X
	COMPARE     // == != < <= > >=
	SUM         // + -
	PRODUCT     // * / // %
	PREFIX      // -X +X
	POWER       // ** (right associative)
	CALL        // f(X) X[Y] X.Y
)

// Associativity of operators sharing a precedence level
type Associativity int

const (
	LeftAssociative Associativity = iota
	RightAssociative
	NonAssociative
)

// precedences maps token types to their precedence levels
var precedences = map[lexer.TokenType]Precedence{
	lexer.TokenOr:  LOGICAL_OR,
	lexer.TokenAnd: LOGICAL_AND,

	lexer.TokenEq: COMPARE,
	lexer.TokenNe: COMPARE,
	lexer.TokenLt: COMPARE,
	lexer.TokenLe: COMPARE,
	lexer.TokenGt: COMPARE,
	lexer.TokenGe: COMPARE,

	lexer.TokenPlus:  SUM,
	lexer.TokenMinus: SUM,

	lexer.TokenMul:      PRODUCT,
	lexer.TokenDiv:      PRODUCT,
	lexer.TokenFloorDiv: PRODUCT,
	lexer.TokenMod:      PRODUCT,

	lexer.TokenPower: POWER,

	lexer.TokenLParen:   CALL,
	lexer.TokenLBracket: CALL,
	lexer.TokenDot:      CALL,
}

// operatorAssociativity maps precedence levels to their associativity
var operatorAssociativity = map[Precedence]Associativity{
	LOGICAL_OR:  LeftAssociative,
	LOGICAL_AND: LeftAssociative,
	COMPARE:     NonAssociative,
	SUM:         LeftAssociative,
	PRODUCT:     LeftAssociative,
	POWER:       RightAssociative,
	CALL:        LeftAssociative,
}

// peekPrecedence returns the precedence of the peek token
func (p *Parser) peekPrecedence() Precedence {
	if p, ok := precedences[p.peek.Type]; ok {
		return p
	}
	return LOWEST
}

// currentPrecedence returns the precedence of the current token
func (p *Parser) currentPrecedence() Precedence {
	if p, ok := precedences[p.current.Type]; ok {
		return p
	}
	return LOWEST
}

// parseExpression parses expressions using Pratt parsing with associativity
func (p *Parser) parseExpression(precedence Precedence) ast.Expression {
	left := p.parsePrefixExpression()
	if left == nil {
		return nil
	}

	for p.err == nil && p.shouldContinueParsing(precedence) {
		p.nextToken()
		left = p.parseInfixExpression(left)
		if left == nil {
			return nil
		}
	}

	if p.err != nil {
		return nil
	}
	return left
}

// shouldContinueParsing determines if parsing should continue based on precedence and associativity
func (p *Parser) shouldContinueParsing(precedence Precedence) bool {
	peekPrec := p.peekPrecedence()

	if precedence > peekPrec {
		return false
	}

	if precedence == peekPrec {
		switch operatorAssociativity[peekPrec] {
		case RightAssociative:
			return true
		case NonAssociative:
			p.err = diagnostic.NewDiagnostic().
				Syntax().
				Code(diagnostic.CodeChainedCompare).
				Message("chained comparisons are not supported").
				At(p.peek.Pos).
				Expect("and", "or", ")", "NEWLINE").
				Build()
			return false
		default:
			return false
		}
	}

	return true
}

// parsePrefixExpression parses atoms and prefix operators
func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.current

	switch tok.Type {
	case lexer.TokenIdentifier:
		return &ast.Name{Value: tok.Literal, Pos: tok.Pos}
	case lexer.TokenInteger:
		return &ast.Number{Literal: tok.Literal, Pos: tok.Pos}
	case lexer.TokenFloat:
		return &ast.Number{Literal: tok.Literal, IsFloat: true, Pos: tok.Pos}
	case lexer.TokenString:
		return &ast.String{Value: tok.Literal, Pos: tok.Pos}
	case lexer.TokenTrue:
		return &ast.Bool{Value: true, Pos: tok.Pos}
	case lexer.TokenFalse:
		return &ast.Bool{Value: false, Pos: tok.Pos}
	case lexer.TokenNone:
		return &ast.None{Pos: tok.Pos}
	case lexer.TokenLParen:
		return p.parseGroupedExpression()
	case lexer.TokenLBracket:
		return p.parseListLiteral()
	case lexer.TokenMinus, lexer.TokenPlus:
		p.nextToken()
		operand := p.parseExpression(PREFIX)
		if operand == nil {
			return nil
		}
		return &ast.UnaryOp{Op: tok.Literal, Operand: operand, Pos: tok.Pos}
	case lexer.TokenNot:
		p.nextToken()
		operand := p.parseExpression(LOGICAL_NOT)
		if operand == nil {
			return nil
		}
		return &ast.UnaryOp{Op: "not", Operand: operand, Pos: tok.Pos}
	}

	p.unexpected(tok, exprStart...)
	return nil
}

// parseInfixExpression parses binary operators, calls and subscripts
func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	switch p.current.Type {
	case lexer.TokenLParen:
		return p.parseCallExpression(left)
	case lexer.TokenLBracket:
		return p.parseIndexExpression(left)
	case lexer.TokenDot:
		p.unsupported(p.current, "attribute access", "(", "[", "NEWLINE")
		return nil
	}

	return p.parseBinaryExpression(left)
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	op := p.current.Literal
	precedence := p.currentPrecedence()

	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}

	return &ast.BinaryOp{Op: op, Left: left, Right: right, Pos: left.GetPos()}
}

// parseGroupedExpression parses a parenthesized expression. Parentheses
// holding a comma or nothing would be a tuple.
func (p *Parser) parseGroupedExpression() ast.Expression {
	if p.peekTokenIs(lexer.TokenRParen) {
		p.unsupported(p.current, "tuple", exprStart...)
		return nil
	}

	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if p.peekTokenIs(lexer.TokenComma) {
		p.unsupported(p.peek, "tuple", ")")
		return nil
	}
	if !p.expectPeek(lexer.TokenRParen) {
		return nil
	}
	return expr
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.List{Pos: p.current.Pos, Elements: []ast.Expression{}}

	if p.peekTokenIs(lexer.TokenRBracket) {
		p.nextToken()
		return list
	}

	for {
		p.nextToken()
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list.Elements = append(list.Elements, elem)

		if !p.peekTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(lexer.TokenRBracket) {
			break
		}
	}

	if !p.expectPeek(lexer.TokenRBracket, ",") {
		return nil
	}
	return list
}

// parseCallExpression parses positional and keyword arguments
func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	call := &ast.Call{Func: callee, Pos: callee.GetPos()}

	if p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
		return call
	}

	for {
		p.nextToken()

		if p.currentTokenIs(lexer.TokenIdentifier) && p.peekTokenIs(lexer.TokenAssign) {
			kw := &ast.Keyword{Name: p.current.Literal, Pos: p.current.Pos}
			p.nextToken()
			p.nextToken()
			kw.Value = p.parseExpression(LOWEST)
			if kw.Value == nil {
				return nil
			}
			call.Kwargs = append(call.Kwargs, kw)
		} else {
			if len(call.Kwargs) > 0 {
				p.err = diagnostic.NewDiagnostic().
					Syntax().
					Code(diagnostic.CodeUnexpectedToken).
					Message("positional argument follows keyword argument").
					At(p.current.Pos).
					Expect("IDENTIFIER=").
					Build()
				return nil
			}
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
		}

		if !p.peekTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(lexer.TokenRParen) {
			break
		}
	}

	if !p.expectPeek(lexer.TokenRParen, ",") {
		return nil
	}
	return call
}

// parseIndexExpression parses a single subscript. Slices are rejected.
func (p *Parser) parseIndexExpression(target ast.Expression) ast.Expression {
	if p.peekTokenIs(lexer.TokenColon) {
		p.unsupported(p.peek, "slice", exprStart...)
		return nil
	}

	p.nextToken()
	index := p.parseExpression(LOWEST)
	if index == nil {
		return nil
	}

	switch {
	case p.peekTokenIs(lexer.TokenColon):
		p.unsupported(p.peek, "slice", "]")
		return nil
	case p.peekTokenIs(lexer.TokenComma):
		p.unsupported(p.peek, "tuple", "]")
		return nil
	}

	if !p.expectPeek(lexer.TokenRBracket) {
		return nil
	}
	return &ast.Index{Target: target, Index: index, Pos: target.GetPos()}
}
