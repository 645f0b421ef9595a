package syntax

import (
	"fmt"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/registry"
)

// Parser is a recursive descent parser over a token slice.
type Parser struct {
	module string
	toks   []Token
	pos    int
}

// bailout unwinds the parser on the first error.
type bailout struct{ err *errors.Error }

// Parse parses src as module. The returned error is a compile error
// carrying the module name and line.
func Parse(module, src string) (m *Module, err error) {
	p := &Parser{module: module, toks: Tokenize(src)}

	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			m, err = nil, b.err
		}
	}()

	m = &Module{Name: module}
	p.skipLines()
	for !p.check(TokenEOF) {
		m.Stmts = append(m.Stmts, p.parseDefinition())
		p.endStatement()
		p.skipLines()
	}
	return m, nil
}

// ParseExpression parses src as a single expression. Used by the REPL to
// echo expression values.
func ParseExpression(module, src string) (x Expr, err error) {
	p := &Parser{module: module, toks: Tokenize(src)}

	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			x, err = nil, b.err
		}
	}()

	p.skipLines()
	x = p.parseExpr()
	p.skipLines()
	if !p.check(TokenEOF) {
		p.fail("Expect end of expression.")
	}
	return x, nil
}

// ---------------------------------------------------------------------------
// Token helpers

func (p *Parser) cur() Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if t.Type == TokenError {
		p.failAt(t, t.Text)
	}
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(t TokenType) bool {
	tok := p.cur()
	if tok.Type == TokenError {
		p.failAt(tok, tok.Text)
	}
	return tok.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType, msg string) Token {
	if !p.check(t) {
		p.fail(msg)
	}
	return p.advance()
}

func (p *Parser) skipLines() {
	for p.match(TokenLine) {
	}
}

// nextNonLine returns the type of the next token that is not a newline.
func (p *Parser) nextNonLine() TokenType {
	for i := p.pos; i < len(p.toks); i++ {
		if p.toks[i].Type != TokenLine {
			return p.toks[i].Type
		}
	}
	return TokenEOF
}

func (p *Parser) endStatement() {
	switch {
	case p.match(TokenLine):
	case p.check(TokenRBrace), p.check(TokenEOF):
	default:
		p.fail("Expect newline after statement.")
	}
}

func (p *Parser) fail(msg string) {
	p.failAt(p.cur(), msg)
}

func (p *Parser) failAt(t Token, msg string) {
	var where string
	switch t.Type {
	case TokenError:
		where = "Error"
	case TokenEOF:
		where = "Error at end of file"
	case TokenLine:
		where = "Error at newline"
	default:
		where = fmt.Sprintf("Error at '%s'", t.Text)
	}
	if t.Type != TokenError {
		msg = where + ": " + msg
	} else {
		msg = where + ": " + t.Text
	}
	panic(bailout{err: errors.Compile(p.module, t.Line, msg)})
}

// ---------------------------------------------------------------------------
// Statements

func (p *Parser) parseDefinition() Stmt {
	switch {
	case p.check(TokenClass):
		return p.parseClass(false)
	case p.check(TokenForeign):
		line := p.advance().Line
		if !p.check(TokenClass) {
			p.fail("Expect 'class' after 'foreign'.")
		}
		c := p.parseClass(true)
		c.Line = line
		return c
	case p.check(TokenImport):
		return p.parseImport()
	}
	return p.parseStatement()
}

func (p *Parser) parseStatement() Stmt {
	tok := p.cur()
	switch tok.Type {
	case TokenVar:
		p.advance()
		name := p.expect(TokenName, "Expect variable name.")
		s := &VarStmt{Name: name.Text, Line: tok.Line}
		if p.match(TokenEq) {
			p.skipLines()
			s.Init = p.parseExpr()
		}
		return s
	case TokenIf:
		p.advance()
		p.expect(TokenLParen, "Expect '(' after 'if'.")
		p.skipLines()
		cond := p.parseExpr()
		p.skipLines()
		p.expect(TokenRParen, "Expect ')' after if condition.")
		p.skipLines()
		s := &IfStmt{Cond: cond, Then: p.parseStatement(), Line: tok.Line}
		if p.nextNonLine() == TokenElse {
			p.skipLines()
			p.advance()
			p.skipLines()
			s.Else = p.parseStatement()
		}
		return s
	case TokenWhile:
		p.advance()
		p.expect(TokenLParen, "Expect '(' after 'while'.")
		p.skipLines()
		cond := p.parseExpr()
		p.skipLines()
		p.expect(TokenRParen, "Expect ')' after while condition.")
		p.skipLines()
		return &WhileStmt{Cond: cond, Body: p.parseStatement(), Line: tok.Line}
	case TokenFor:
		p.advance()
		p.expect(TokenLParen, "Expect '(' after 'for'.")
		p.skipLines()
		name := p.expect(TokenName, "Expect for loop variable name.")
		p.expect(TokenIn, "Expect 'in' after loop variable.")
		p.skipLines()
		seq := p.parseExpr()
		p.skipLines()
		p.expect(TokenRParen, "Expect ')' after loop expression.")
		p.skipLines()
		return &ForStmt{Name: name.Text, Seq: seq, Body: p.parseStatement(), Line: tok.Line}
	case TokenBreak:
		p.advance()
		return &BreakStmt{Line: tok.Line}
	case TokenContinue:
		p.advance()
		return &ContinueStmt{Line: tok.Line}
	case TokenReturn:
		p.advance()
		s := &ReturnStmt{Line: tok.Line}
		if !p.check(TokenLine) && !p.check(TokenRBrace) && !p.check(TokenEOF) {
			s.Value = p.parseExpr()
		}
		return s
	case TokenLBrace:
		return p.parseBlock()
	case TokenClass, TokenForeign, TokenImport:
		p.fail("Class definitions and imports must be at top level.")
	}
	return &ExprStmt{X: p.parseExpr(), Line: tok.Line}
}

func (p *Parser) parseBlock() *BlockStmt {
	open := p.expect(TokenLBrace, "Expect '{'.")
	b := &BlockStmt{Line: open.Line}
	p.skipLines()
	for !p.check(TokenRBrace) {
		if p.check(TokenEOF) {
			p.fail("Expect '}' after block.")
		}
		b.Stmts = append(b.Stmts, p.parseStatement())
		p.endStatement()
		p.skipLines()
	}
	p.advance()
	return b
}

func (p *Parser) parseImport() Stmt {
	line := p.advance().Line
	name := p.expect(TokenString, "Expect a string after 'import'.")
	s := &ImportStmt{Module: name.Text, Line: line}
	if p.match(TokenFor) {
		p.skipLines()
		for {
			v := p.expect(TokenName, "Expect variable name.")
			s.Names = append(s.Names, v.Text)
			if !p.match(TokenComma) {
				break
			}
			p.skipLines()
		}
	}
	return s
}

// ---------------------------------------------------------------------------
// Classes

func (p *Parser) parseClass(foreign bool) *ClassStmt {
	line := p.advance().Line
	name := p.expect(TokenName, "Expect class name.")
	c := &ClassStmt{Name: name.Text, Foreign: foreign, Line: line}

	if p.match(TokenIs) {
		c.Super = p.parsePostfix()
	}

	p.expect(TokenLBrace, "Expect '{' after class declaration.")
	p.skipLines()

	seen := make(map[string]bool)
	for !p.match(TokenRBrace) {
		if p.check(TokenEOF) {
			p.fail("Expect '}' after class body.")
		}
		m := p.parseMember()
		key := m.Signature
		if m.Static || m.Kind == MethodConstructor {
			key = "static " + key
		}
		if seen[key] {
			p.failAt(p.toks[p.pos-1], fmt.Sprintf("Class %s already defines a method '%s'.", c.Name, m.Signature))
		}
		seen[key] = true
		c.Methods = append(c.Methods, m)

		if !p.check(TokenRBrace) {
			p.expect(TokenLine, "Expect newline after definition in class.")
		}
		p.skipLines()
	}
	return c
}

func (p *Parser) parseMember() *MethodDecl {
	m := &MethodDecl{Line: p.cur().Line}

	for {
		switch {
		case p.match(TokenForeign):
			m.Foreign = true
			continue
		case p.match(TokenStatic):
			m.Static = true
			continue
		}
		break
	}

	if p.match(TokenConstruct) {
		if m.Static || m.Foreign {
			p.fail("Constructors cannot be static or foreign.")
		}
		name := p.expect(TokenName, "Expect constructor name after 'construct'.")
		m.Name = name.Text
		m.Kind = MethodConstructor
		m.Params = p.parseParams(TokenLParen, TokenRParen, "Expect '(' after constructor name.")
		m.Signature = registry.Method(m.Name, len(m.Params)).String()
		m.Body, m.ExprBody = p.parseBody()
		return m
	}

	tok := p.cur()
	switch {
	case tok.Type == TokenLBracket:
		m.Params = p.parseParams(TokenLBracket, TokenRBracket, "Expect '['.")
		if len(m.Params) == 0 {
			p.fail("Subscript needs at least one parameter.")
		}
		m.Kind = MethodSubscript
		sig := registry.Subscript(len(m.Params))
		if p.match(TokenEq) {
			m.Params = append(m.Params, p.parseSetterParam())
			m.Kind = MethodSubscriptSetter
			sig = registry.SubscriptSetter(len(m.Params) - 1)
		}
		m.Signature = sig.String()
	case tok.Type == TokenName:
		p.advance()
		m.Name = tok.Text
		switch {
		case p.check(TokenEq):
			p.advance()
			m.Params = []string{p.parseSetterParam()}
			m.Kind = MethodSetter
			m.Signature = registry.Setter(m.Name).String()
		case p.check(TokenLParen):
			m.Params = p.parseParams(TokenLParen, TokenRParen, "Expect '('.")
			m.Kind = MethodCall
			m.Signature = registry.Method(m.Name, len(m.Params)).String()
		default:
			m.Kind = MethodGetter
			m.Signature = registry.Getter(m.Name).String()
		}
	case isOperatorToken(tok.Type):
		p.advance()
		m.Name = operatorTokens[tok.Type]
		if p.check(TokenLParen) {
			m.Params = p.parseParams(TokenLParen, TokenRParen, "Expect '('.")
			if len(m.Params) != 1 {
				p.fail("Infix operators take exactly one parameter.")
			}
			m.Kind = MethodInfix
			m.Signature = registry.Infix(m.Name).String()
		} else {
			if tok.Type != TokenMinus && tok.Type != TokenBang && tok.Type != TokenTilde {
				p.failAt(tok, "Expect '(' after infix operator.")
			}
			m.Kind = MethodPrefix
			m.Signature = registry.Prefix(m.Name).String()
		}
	default:
		p.fail("Expect method definition.")
	}

	if m.Foreign {
		return m
	}
	m.Body, m.ExprBody = p.parseBody()
	return m
}

func (p *Parser) parseSetterParam() string {
	p.expect(TokenLParen, "Expect '(' after '='.")
	name := p.expect(TokenName, "Expect parameter name.")
	p.expect(TokenRParen, "Expect ')' after parameter name.")
	return name.Text
}

func (p *Parser) parseParams(open, close TokenType, msg string) []string {
	p.expect(open, msg)
	var params []string
	p.skipLines()
	for !p.check(close) {
		name := p.expect(TokenName, "Expect parameter name.")
		params = append(params, name.Text)
		p.skipLines()
		if !p.match(TokenComma) {
			break
		}
		p.skipLines()
	}
	p.expect(close, "Expect closing delimiter after parameters.")
	return params
}

// parseBody parses a method body. A body whose first token after '{' is on
// the same line and starts an expression is a single-expression body.
func (p *Parser) parseBody() (*BlockStmt, Expr) {
	if !p.check(TokenLBrace) {
		p.fail("Expect '{' to begin method body.")
	}
	next := p.peekAt(1).Type
	switch next {
	case TokenLine, TokenRBrace,
		TokenVar, TokenIf, TokenWhile, TokenFor, TokenReturn, TokenBreak, TokenContinue, TokenLBrace:
		return p.parseBlock(), nil
	}
	p.advance()
	x := p.parseExpr()
	p.skipLines()
	p.expect(TokenRBrace, "Expect '}' at end of block.")
	return nil, x
}

// ---------------------------------------------------------------------------
// Expressions

var binaryPrec = map[TokenType]int{
	TokenPipePipe:  1,
	TokenAmpAmp:    2,
	TokenEqEq:      3,
	TokenBangEq:    3,
	TokenIs:        4,
	TokenLt:        5,
	TokenLtEq:      5,
	TokenGt:        5,
	TokenGtEq:      5,
	TokenPipe:      6,
	TokenCaret:     7,
	TokenAmp:       8,
	TokenLtLt:      9,
	TokenGtGt:      9,
	TokenDotDot:    10,
	TokenDotDotDot: 10,
	TokenPlus:      11,
	TokenMinus:     11,
	TokenStar:      12,
	TokenSlash:     12,
	TokenPercent:   12,
}

func isOperatorToken(t TokenType) bool {
	_, ok := operatorTokens[t]
	return ok
}

func (p *Parser) parseExpr() Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() Expr {
	lhs := p.parseConditional()
	if !p.check(TokenEq) {
		return lhs
	}
	eq := p.advance()
	p.skipLines()
	rhs := p.parseAssignment()

	switch t := lhs.(type) {
	case *Ident, *FieldExpr:
		return &AssignExpr{Target: lhs, Value: rhs, Line: eq.Line}
	case *CallExpr:
		switch t.Kind {
		case MethodGetter:
			return &CallExpr{
				Recv:      t.Recv,
				Name:      t.Name,
				Signature: registry.Setter(t.Name).String(),
				Args:      []Expr{rhs},
				Kind:      MethodSetter,
				Line:      t.Line,
			}
		case MethodSubscript:
			return &CallExpr{
				Recv:      t.Recv,
				Signature: registry.SubscriptSetter(len(t.Args)).String(),
				Args:      append(append([]Expr(nil), t.Args...), rhs),
				Kind:      MethodSubscriptSetter,
				Line:      t.Line,
			}
		}
	}
	p.failAt(eq, "Invalid assignment target.")
	return nil
}

func (p *Parser) parseConditional() Expr {
	cond := p.parseBinary(1)
	if !p.check(TokenQuestion) {
		return cond
	}
	q := p.advance()
	p.skipLines()
	then := p.parseConditional()
	p.skipLines()
	p.expect(TokenColon, "Expect ':' after then branch of conditional operator.")
	p.skipLines()
	els := p.parseConditional()
	return &CondExpr{Cond: cond, Then: then, Else: els, Line: q.Line}
}

func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		op := p.cur()
		prec := binaryPrec[op.Type]
		if prec == 0 || prec < minPrec {
			return left
		}
		p.advance()
		p.skipLines()
		right := p.parseBinary(prec + 1)

		switch op.Type {
		case TokenPipePipe, TokenAmpAmp:
			left = &LogicalExpr{L: left, R: right, And: op.Type == TokenAmpAmp, Line: op.Line}
		case TokenIs:
			left = &IsExpr{X: left, Class: right, Line: op.Line}
		default:
			left = &BinaryExpr{L: left, R: right, Op: operatorTokens[op.Type], Line: op.Line}
		}
	}
}

func (p *Parser) parseUnary() Expr {
	switch tok := p.cur(); tok.Type {
	case TokenMinus, TokenBang, TokenTilde:
		p.advance()
		return &UnaryExpr{Op: operatorTokens[tok.Type], X: p.parseUnary(), Line: tok.Line}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for {
		switch {
		case p.check(TokenLine) && p.nextNonLine() == TokenDot:
			p.skipLines()
		case p.check(TokenDot):
			p.advance()
			p.skipLines()
			name := p.expect(TokenName, "Expect method name after '.'.")
			x = p.parseCallSuffix(x, name)
		case p.check(TokenLBracket):
			open := p.advance()
			args := p.parseArgs(TokenRBracket, "Expect ']' after subscript arguments.")
			if len(args) == 0 {
				p.failAt(open, "Subscript needs at least one argument.")
			}
			x = &CallExpr{
				Recv:      x,
				Signature: registry.Subscript(len(args)).String(),
				Args:      args,
				Kind:      MethodSubscript,
				Line:      open.Line,
			}
		default:
			return x
		}
	}
}

// parseCallSuffix parses the optional argument list after a method name.
func (p *Parser) parseCallSuffix(recv Expr, name Token) *CallExpr {
	call := &CallExpr{Recv: recv, Name: name.Text, Line: name.Line}
	if p.check(TokenLParen) {
		p.advance()
		call.Args = p.parseArgs(TokenRParen, "Expect ')' after arguments.")
		call.Kind = MethodCall
		call.Signature = registry.Method(name.Text, len(call.Args)).String()
		return call
	}
	call.Kind = MethodGetter
	call.Signature = registry.Getter(name.Text).String()
	return call
}

// parseArgs parses a comma-separated expression list up to close. The
// opening delimiter has been consumed.
func (p *Parser) parseArgs(close TokenType, msg string) []Expr {
	var args []Expr
	p.skipLines()
	for !p.check(close) {
		args = append(args, p.parseExpr())
		p.skipLines()
		if !p.match(TokenComma) {
			break
		}
		p.skipLines()
	}
	p.expect(close, msg)
	return args
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		return &NumLit{Value: tok.Num, Line: tok.Line}
	case TokenString:
		p.advance()
		return &StrLit{Value: tok.Text, Line: tok.Line}
	case TokenInterpolation:
		return p.parseInterpolation()
	case TokenTrue, TokenFalse:
		p.advance()
		return &BoolLit{Value: tok.Type == TokenTrue, Line: tok.Line}
	case TokenNull:
		p.advance()
		return &NullLit{Line: tok.Line}
	case TokenThis:
		p.advance()
		return &ThisExpr{Line: tok.Line}
	case TokenLParen:
		p.advance()
		p.skipLines()
		x := p.parseExpr()
		p.skipLines()
		p.expect(TokenRParen, "Expect ')' after expression.")
		return x
	case TokenLBracket:
		p.advance()
		elems := p.parseArgs(TokenRBracket, "Expect ']' after list elements.")
		return &ListLit{Elems: elems, Line: tok.Line}
	case TokenName:
		p.advance()
		if p.check(TokenLParen) {
			return p.parseCallSuffix(nil, tok)
		}
		return &Ident{Name: tok.Text, Line: tok.Line}
	case TokenField:
		p.advance()
		return &FieldExpr{Name: tok.Text, Line: tok.Line}
	case TokenStaticField:
		p.advance()
		return &FieldExpr{Name: tok.Text, Static: true, Line: tok.Line}
	case TokenSuper:
		p.advance()
		call := &SuperCall{Line: tok.Line}
		if p.match(TokenDot) {
			name := p.expect(TokenName, "Expect method name after 'super.'.")
			c := p.parseCallSuffix(nil, name)
			call.Name, call.Signature, call.Args = c.Name, c.Signature, c.Args
			return call
		}
		p.expect(TokenLParen, "Expect '.' or '(' after 'super'.")
		call.Args = p.parseArgs(TokenRParen, "Expect ')' after arguments.")
		return call
	}
	p.fail("Expect expression.")
	return nil
}

func (p *Parser) parseInterpolation() Expr {
	x := &InterpExpr{Line: p.cur().Line}
	for p.check(TokenInterpolation) {
		part := p.advance()
		x.Parts = append(x.Parts, part.Text)
		p.skipLines()
		x.Exprs = append(x.Exprs, p.parseExpr())
		p.skipLines()
	}
	end := p.expect(TokenString, "Expect end of string interpolation.")
	x.Parts = append(x.Parts, end.Text)
	return x
}
