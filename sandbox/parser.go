package sandbox

import "fmt"

// parser is a small recursive-descent parser for the subset of
// class-based syntax this sandbox supports (spec §9's "fixed
// subset" option, chosen over embedding a full scripting engine for
// determinism and auditability).
type parser struct {
	toks []token
	pos  int
	src  string
}

func parseProgram(source string) (*program, error) {
	toks, err := lex(source)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: source}
	return p.parseProgram()
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(lit string) (token, error) {
	t := p.cur()
	if t.kind != tokPunct || t.lit != lit {
		return t, fmt.Errorf("line %d: expected %q, got %q", t.line, lit, t.lit)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return t, fmt.Errorf("line %d: expected identifier, got %q", t.line, t.lit)
	}
	return p.advance(), nil
}

func (p *parser) atPunct(lit string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.lit == lit
}

func (p *parser) atIdent(lit string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.lit == lit
}

func (p *parser) parseProgram() (*program, error) {
	prog := &program{}
	for p.atIdent("class") {
		c, err := p.parseClass()
		if err != nil {
			return nil, err
		}
		prog.classes = append(prog.classes, c)
	}
	if !p.atIdent("exports") {
		return nil, fmt.Errorf("line %d: expected top-level \"exports = ...;\" statement", p.cur().line)
	}
	p.advance()
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	prog.exports = e
	return prog, nil
}

func (p *parser) parseClass() (*classDecl, error) {
	p.advance() // "class"
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	c := &classDecl{name: nameTok.lit}
	if p.atIdent("extends") {
		p.advance()
		extTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		c.extends = extTok.lit
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	for !p.atPunct("}") {
		m, err := p.parseMethod()
		if err != nil {
			return nil, err
		}
		if m.name == "constructor" {
			c.ctor = m
		} else {
			c.methods = append(c.methods, m)
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) parseMethod() (*methodDecl, error) {
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	m := &methodDecl{name: nameTok.lit}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for !p.atPunct(")") {
		pt, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		m.params = append(m.params, pt.lit)
		if p.atPunct(",") {
			p.advance()
		}
	}
	p.advance() // ")"
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	m.body = body
	m.source = printMethod(m)
	return m, nil
}

func (p *parser) parseBlock() ([]stmt, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []stmt
	for !p.atPunct("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance() // "}"
	return stmts, nil
}

func (p *parser) parseStmt() (stmt, error) {
	switch {
	case p.atIdent("return"):
		p.advance()
		if p.atPunct(";") {
			p.advance()
			return returnStmt{}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return returnStmt{value: e}, nil

	case p.atIdent("super"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return superCallStmt{args: args}, nil

	case p.atIdent("if"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		then, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		var els []stmt
		if p.atIdent("else") {
			p.advance()
			els, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
		}
		return ifStmt{cond: cond, then: then, els_: els}, nil

	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *parser) parseAssignOrExprStmt() (stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.atPunct("=") || p.atPunct("+=") || p.atPunct("-=") {
		op := p.advance().lit
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return assignStmt{target: e, op: op, value: val}, nil
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return exprStmt{value: e}, nil
}

func (p *parser) parseArgs() ([]expr, error) {
	var args []expr
	for !p.atPunct(")") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.atPunct(",") {
			p.advance()
		}
	}
	p.advance() // ")"
	return args, nil
}

// Operator precedence, lowest to highest.
var precLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseExpr() (expr, error) {
	return p.parseBinary(0)
}

func (p *parser) parseBinary(level int) (expr, error) {
	if level >= len(precLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind != tokPunct || !contains(precLevels[level], t.lit) {
			return left, nil
		}
		op := p.advance().lit
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, left: left, right: right}
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (p *parser) parseUnary() (expr, error) {
	if p.atPunct("-") || p.atPunct("!") {
		op := p.advance().lit
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: op, operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atPunct("."):
			p.advance()
			fieldTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			e = memberExpr{object: e, field: fieldTok.lit}
		case p.atPunct("("):
			p.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			e = callExpr{callee: e, args: args}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.cur()
	switch {
	case t.kind == tokNumber:
		p.advance()
		var n int64
		for _, c := range t.lit {
			n = n*10 + int64(c-'0')
		}
		return numberExpr{value: n}, nil
	case t.kind == tokString:
		p.advance()
		return stringExpr{value: t.lit}, nil
	case t.kind == tokIdent && t.lit == "true":
		p.advance()
		return boolExpr{value: true}, nil
	case t.kind == tokIdent && t.lit == "false":
		p.advance()
		return boolExpr{value: false}, nil
	case t.kind == tokIdent && t.lit == "this":
		p.advance()
		return thisExpr{}, nil
	case t.kind == tokIdent && t.lit == "new":
		p.advance()
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return newExpr{class: nameTok.lit, args: args}, nil
	case t.kind == tokIdent:
		p.advance()
		return identExpr{name: t.lit}, nil
	case t.kind == tokPunct && t.lit == "(":
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %q", t.line, t.lit)
}
