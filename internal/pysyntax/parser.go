package pysyntax

import (
	"fmt"
	"slices"
)

// bailout carries a syntax error up through the recursive descent.
type bailout struct{ err *Error }

type parser struct {
	file string
	toks []Token
	pos  int
}

// Parse parses a whole source file. Top-level statements and class bodies are
// parsed in full; bodies of other compound statements keep only their block
// structure.
func Parse(file, src string) (mod *Module, err error) {
	toks, err := Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, toks: toks}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			mod, err = nil, b.err
		}
	}()
	return p.module(), nil
}

func (p *parser) failf(pos Pos, format string, args ...any) {
	panic(bailout{&Error{File: p.file, Pos: pos, Msg: fmt.Sprintf(format, args...)}})
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOp(text string) bool {
	tok := p.peek()
	return tok.Kind == OP && tok.Text == text
}

func (p *parser) isKeyword(text string) bool {
	tok := p.peek()
	return tok.Kind == NAME && tok.Text == text
}

func (p *parser) expectOp(text string) Token {
	if !p.isOp(text) {
		p.failf(p.peek().Pos, "expected '%s'", text)
	}
	return p.next()
}

func (p *parser) expectKeyword(text string) Token {
	if !p.isKeyword(text) {
		p.failf(p.peek().Pos, "expected '%s'", text)
	}
	return p.next()
}

func (p *parser) expectName() Token {
	tok := p.peek()
	if tok.Kind != NAME {
		p.failf(tok.Pos, "expected a name")
	}
	if _, ok := reserved[tok.Text]; ok {
		p.failf(tok.Pos, "invalid syntax: '%s' is a keyword", tok.Text)
	}
	return p.next()
}

func (p *parser) module() *Module {
	mod := &Module{}
	for p.peek().Kind != EOF {
		mod.Body = append(mod.Body, p.statement(true)...)
	}
	return mod
}

// statement parses one logical line or compound statement. full selects
// whether simple statements get their expressions parsed.
func (p *parser) statement(full bool) []Stmt {
	tok := p.peek()
	switch {
	case tok.Kind == INDENT:
		p.failf(tok.Pos, "unexpected indent")
	case tok.Kind == DEDENT:
		p.failf(tok.Pos, "unexpected unindent")
	case tok.Kind == NEWLINE:
		p.next()
		return nil
	case p.isOp("@"):
		return []Stmt{p.decorated(full)}
	case p.isKeyword("class"):
		return []Stmt{p.classDef(nil)}
	case p.isCompoundStart():
		return []Stmt{p.block()}
	}
	return p.simpleStatements(full)
}

func (p *parser) isCompoundStart() bool {
	tok := p.peek()
	if tok.Kind != NAME {
		return false
	}
	if tok.Text == "async" {
		nxt := p.peekAt(1)
		return nxt.Kind == NAME && (nxt.Text == "def" || nxt.Text == "for" || nxt.Text == "with")
	}
	if _, ok := compoundKeywords[tok.Text]; ok {
		return true
	}
	if tok.Text == "match" || tok.Text == "case" {
		return p.lineEndsWithColon()
	}
	return false
}

// lineEndsWithColon reports whether the current logical line ends in ':',
// which is how soft-keyword blocks are told apart from plain names.
func (p *parser) lineEndsWithColon() bool {
	for i := p.pos; i < len(p.toks); i++ {
		if k := p.toks[i].Kind; k == NEWLINE || k == EOF {
			prev := p.toks[i-1]
			return prev.Kind == OP && prev.Text == ":"
		}
	}
	return false
}

func (p *parser) decorated(full bool) Stmt {
	var decorators []Expr
	for p.isOp("@") {
		at := p.next()
		if full {
			decorators = append(decorators, p.namedExpr())
		} else {
			p.skipSimple()
			decorators = append(decorators, &Opaque{Pos: at.Pos, Kind: "decorator"})
		}
		if p.peek().Kind != NEWLINE {
			p.failf(p.peek().Pos, "invalid syntax")
		}
		p.next()
	}
	switch {
	case p.isKeyword("class"):
		return p.classDef(decorators)
	case p.isKeyword("def"), p.isKeyword("async") && p.peekAt(1).Text == "def":
		return p.block()
	}
	p.failf(p.peek().Pos, "expected a class or function definition after decorator")
	return nil
}

func (p *parser) classDef(decorators []Expr) Stmt {
	start := p.expectKeyword("class")
	cls := &ClassDef{Pos: start.Pos, Decorators: decorators}
	cls.Name = p.expectName().Text
	if p.isOp("[") {
		p.skipBracketed()
	}
	if p.isOp("(") {
		open := p.next()
		call := p.arguments(open.Pos, nil)
		cls.Bases, cls.Keywords = call.Args, call.Keywords
	}
	p.expectOp(":")
	cls.Body = p.suite(true)
	return cls
}

// skipBracketed consumes a bracketed group, such as a type parameter list.
// The lexer has already checked that brackets balance.
func (p *parser) skipBracketed() {
	depth := 0
	for {
		tok := p.next()
		if tok.Kind == EOF {
			p.failf(tok.Pos, "unexpected end of file")
		}
		if tok.Kind != OP {
			continue
		}
		switch tok.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// isTypeAlias reports whether the line is a "type Name[...] = value" statement.
// Elsewhere "type" is an ordinary name.
func (p *parser) isTypeAlias() bool {
	if !p.isKeyword("type") {
		return false
	}
	name := p.peekAt(1)
	if name.Kind != NAME {
		return false
	}
	_, kw := reserved[name.Text]
	return !kw
}

func (p *parser) block() Stmt {
	start := p.peek()
	p.skipHeader()
	return &Block{Pos: start.Pos, Keyword: start.Text, Body: p.suite(false)}
}

// skipHeader consumes a compound statement header through its colon. Colons
// inside brackets and those closing a lambda parameter list do not count.
func (p *parser) skipHeader() {
	depth, lambdas := 0, 0
	for {
		tok := p.next()
		switch tok.Kind {
		case NEWLINE, EOF, INDENT, DEDENT:
			p.failf(tok.Pos, "expected ':'")
		case NAME:
			if tok.Text == "lambda" && depth == 0 {
				lambdas++
			}
		case OP:
			switch tok.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			case ":":
				if depth > 0 {
					continue
				}
				if lambdas == 0 {
					return
				}
				lambdas--
			}
		}
	}
}

func (p *parser) suite(full bool) []Stmt {
	if p.peek().Kind != NEWLINE {
		return p.simpleStatements(full)
	}
	p.next()
	if p.peek().Kind != INDENT {
		p.failf(p.peek().Pos, "expected an indented block")
	}
	p.next()
	var body []Stmt
	for k := p.peek().Kind; k != DEDENT && k != EOF; k = p.peek().Kind {
		body = append(body, p.statement(full)...)
	}
	if p.peek().Kind == DEDENT {
		p.next()
	}
	return body
}

func (p *parser) simpleStatements(full bool) []Stmt {
	var out []Stmt
	for {
		out = append(out, p.simpleStatement(full))
		if p.isOp(";") {
			p.next()
			if p.peek().Kind == NEWLINE {
				break
			}
			continue
		}
		break
	}
	if tok := p.peek(); tok.Kind != NEWLINE {
		p.failf(tok.Pos, "invalid syntax")
	}
	p.next()
	return out
}

func (p *parser) skipSimple() {
	for {
		tok := p.peek()
		if tok.Kind == NEWLINE || tok.Kind == EOF || (tok.Kind == OP && tok.Text == ";") {
			return
		}
		p.next()
	}
}

func (p *parser) simpleStatement(full bool) Stmt {
	tok := p.peek()
	if _, ok := simpleKeywords[tok.Text]; !full || (tok.Kind == NAME && ok) || p.isTypeAlias() {
		p.skipSimple()
		return &OtherStmt{Pos: tok.Pos, Keyword: tok.Text}
	}

	first := p.starExprList()
	switch {
	case p.isOp("="):
		targets := []Expr{first}
		for p.isOp("=") {
			p.next()
			targets = append(targets, p.assignValue())
		}
		value := targets[len(targets)-1]
		targets = targets[:len(targets)-1]
		for _, t := range targets {
			p.checkTarget(t)
		}
		return &Assign{Pos: tok.Pos, Targets: targets, Value: value}
	case p.isOp(":"):
		p.next()
		p.checkTarget(first)
		p.test()
		if p.isOp("=") {
			p.next()
			p.assignValue()
		}
		return &OtherStmt{Pos: tok.Pos, Keyword: "annotation"}
	case p.peek().Kind == OP:
		if _, ok := augmentedOps[p.peek().Text]; ok {
			p.next()
			p.checkTarget(first)
			p.assignValue()
			return &OtherStmt{Pos: tok.Pos, Keyword: "augmented"}
		}
	}
	return &ExprStmt{Pos: tok.Pos, Value: first}
}

func (p *parser) assignValue() Expr {
	if p.isKeyword("yield") {
		return p.yieldExpr()
	}
	return p.starExprList()
}

func (p *parser) checkTarget(e Expr) {
	switch t := e.(type) {
	case *Name:
		if t.ID == "None" || t.ID == "True" || t.ID == "False" {
			p.failf(t.Pos, "cannot assign to %s", t.ID)
		}
	case *Attribute, *Subscript:
	case *Tuple:
		for _, elt := range t.Elts {
			p.checkTarget(elt)
		}
	case *List:
		for _, elt := range t.Elts {
			p.checkTarget(elt)
		}
	case *Starred:
		p.checkTarget(t.Value)
	default:
		p.failf(e.Position(), "cannot assign to expression")
	}
}

// startsExpr reports whether tok can begin an expression.
func startsExpr(tok Token) bool {
	switch tok.Kind {
	case NUMBER, STRING:
		return true
	case NAME:
		if _, ok := reserved[tok.Text]; !ok {
			return true
		}
		switch tok.Text {
		case "None", "True", "False", "not", "lambda", "await":
			return true
		}
	case OP:
		switch tok.Text {
		case "(", "[", "{", "-", "+", "~", "*", "...":
			return true
		}
	}
	return false
}

// starExprList parses a comma separated list of expressions, collapsing a
// single element without a trailing comma to the element itself.
func (p *parser) starExprList() Expr {
	start := p.peek()
	first := p.starOrNamed()
	if !p.isOp(",") {
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if !startsExpr(p.peek()) {
			break
		}
		elts = append(elts, p.starOrNamed())
	}
	return &Tuple{Pos: start.Pos, Elts: elts}
}

func (p *parser) starOrNamed() Expr {
	if p.isOp("*") {
		star := p.next()
		return &Starred{Pos: star.Pos, Value: p.bitOr()}
	}
	return p.namedExpr()
}

// targetList parses for-loop targets, which stop short of comparisons so the
// following 'in' is left alone.
func (p *parser) targetList() Expr {
	start := p.peek()
	one := func() Expr {
		if p.isOp("*") {
			star := p.next()
			return &Starred{Pos: star.Pos, Value: p.bitOr()}
		}
		return p.bitOr()
	}
	first := one()
	if !p.isOp(",") {
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if p.isKeyword("in") {
			break
		}
		elts = append(elts, one())
	}
	return &Tuple{Pos: start.Pos, Elts: elts}
}

func (p *parser) namedExpr() Expr {
	tok := p.peek()
	if tok.Kind == NAME && p.peekAt(1).Kind == OP && p.peekAt(1).Text == ":=" {
		name := p.expectName()
		p.next()
		return &Opaque{Pos: tok.Pos, Kind: ":=", Operands: []Expr{&Name{Pos: name.Pos, ID: name.Text}, p.test()}}
	}
	return p.test()
}

func (p *parser) test() Expr {
	if p.isKeyword("lambda") {
		return p.lambda()
	}
	start := p.peek()
	body := p.orTest()
	if !p.isKeyword("if") {
		return body
	}
	p.next()
	cond := p.orTest()
	p.expectKeyword("else")
	orElse := p.test()
	return &Opaque{Pos: start.Pos, Kind: "if", Operands: []Expr{body, cond, orElse}}
}

// testNoCond is the condition form used after 'if' in comprehensions.
func (p *parser) testNoCond() Expr {
	if p.isKeyword("lambda") {
		return p.lambda()
	}
	return p.orTest()
}

func (p *parser) lambda() Expr {
	start := p.expectKeyword("lambda")
	var operands []Expr
	for !p.isOp(":") {
		switch {
		case p.isOp("*"), p.isOp("**"):
			p.next()
			if p.peek().Kind == NAME {
				p.expectName()
			}
		case p.isOp("/"):
			p.next()
		default:
			p.expectName()
			if p.isOp("=") {
				p.next()
				operands = append(operands, p.test())
			}
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	p.expectOp(":")
	operands = append(operands, p.test())
	return &Opaque{Pos: start.Pos, Kind: "lambda", Operands: operands}
}

func (p *parser) orTest() Expr {
	return p.boolChain("or", p.andTest)
}

func (p *parser) andTest() Expr {
	return p.boolChain("and", p.notTest)
}

func (p *parser) boolChain(op string, operand func() Expr) Expr {
	start := p.peek()
	left := operand()
	if !p.isKeyword(op) {
		return left
	}
	operands := []Expr{left}
	for p.isKeyword(op) {
		p.next()
		operands = append(operands, operand())
	}
	return &Opaque{Pos: start.Pos, Kind: op, Operands: operands}
}

func (p *parser) notTest() Expr {
	if p.isKeyword("not") {
		tok := p.next()
		return &Opaque{Pos: tok.Pos, Kind: "not", Operands: []Expr{p.notTest()}}
	}
	return p.comparison()
}

func (p *parser) comparison() Expr {
	start := p.peek()
	left := p.bitOr()
	operands := []Expr{left}
	for {
		tok := p.peek()
		switch {
		case tok.Kind == OP && (tok.Text == "<" || tok.Text == ">" || tok.Text == "==" ||
			tok.Text == ">=" || tok.Text == "<=" || tok.Text == "!="):
			p.next()
		case p.isKeyword("in"):
			p.next()
		case p.isKeyword("not") && p.peekAt(1).Kind == NAME && p.peekAt(1).Text == "in":
			p.next()
			p.next()
		case p.isKeyword("is"):
			p.next()
			if p.isKeyword("not") {
				p.next()
			}
		default:
			if len(operands) == 1 {
				return left
			}
			return &Opaque{Pos: start.Pos, Kind: "compare", Operands: operands}
		}
		operands = append(operands, p.bitOr())
	}
}

// binaryLevels lists binary operators from loosest to tightest binding.
var binaryLevels = [][]string{
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "//", "%", "@"},
}

func (p *parser) bitOr() Expr {
	return p.binary(0)
}

func (p *parser) binary(level int) Expr {
	if level == len(binaryLevels) {
		return p.factor()
	}
	start := p.peek()
	left := p.binary(level + 1)
	for {
		tok := p.peek()
		if tok.Kind != OP || !slices.Contains(binaryLevels[level], tok.Text) {
			return left
		}
		p.next()
		right := p.binary(level + 1)
		left = &Opaque{Pos: start.Pos, Kind: tok.Text, Operands: []Expr{left, right}}
	}
}

func (p *parser) factor() Expr {
	tok := p.peek()
	if tok.Kind == OP && (tok.Text == "-" || tok.Text == "+" || tok.Text == "~") {
		p.next()
		return &Opaque{Pos: tok.Pos, Kind: "unary" + tok.Text, Operands: []Expr{p.factor()}}
	}
	return p.power()
}

func (p *parser) power() Expr {
	start := p.peek()
	var base Expr
	if p.isKeyword("await") {
		p.next()
		base = &Opaque{Pos: start.Pos, Kind: "await", Operands: []Expr{p.primary()}}
	} else {
		base = p.primary()
	}
	if p.isOp("**") {
		p.next()
		return &Opaque{Pos: start.Pos, Kind: "**", Operands: []Expr{base, p.factor()}}
	}
	return base
}

func (p *parser) primary() Expr {
	e := p.atom()
	for {
		switch {
		case p.isOp("("):
			open := p.next()
			e = p.arguments(open.Pos, e)
		case p.isOp("["):
			open := p.next()
			e = &Subscript{Pos: open.Pos, Value: e, Index: p.subscripts()}
			p.expectOp("]")
		case p.isOp("."):
			dot := p.next()
			name := p.expectName()
			e = &Attribute{Pos: dot.Pos, Value: e, Attr: name.Text}
		default:
			return e
		}
	}
}

// arguments parses a call argument list after its opening parenthesis.
func (p *parser) arguments(pos Pos, fn Expr) *Call {
	call := &Call{Pos: pos, Func: fn}
	seen := map[string]struct{}{}
	var afterKeyword, afterMapping bool
	for !p.isOp(")") {
		tok := p.peek()
		switch {
		case p.isOp("**"):
			p.next()
			call.Keywords = append(call.Keywords, Keyword{Pos: tok.Pos, Value: p.test()})
			afterMapping = true
		case p.isOp("*"):
			if afterMapping {
				p.failf(tok.Pos, "iterable argument unpacking follows keyword argument unpacking")
			}
			p.next()
			call.Args = append(call.Args, &Starred{Pos: tok.Pos, Value: p.test()})
		case tok.Kind == NAME && p.peekAt(1).Kind == OP && p.peekAt(1).Text == "=":
			name := p.expectName()
			p.next()
			if _, dup := seen[name.Text]; dup {
				p.failf(name.Pos, "keyword argument repeated: %s", name.Text)
			}
			seen[name.Text] = struct{}{}
			call.Keywords = append(call.Keywords, Keyword{Pos: name.Pos, Arg: name.Text, Value: p.test()})
			afterKeyword = true
		default:
			if afterKeyword || afterMapping {
				p.failf(tok.Pos, "positional argument follows keyword argument")
			}
			arg := p.namedExpr()
			if p.isKeyword("for") || p.isKeyword("async") {
				arg = &Opaque{Pos: tok.Pos, Kind: "genexp", Operands: append([]Expr{arg}, p.comprehension()...)}
			}
			call.Args = append(call.Args, arg)
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	p.expectOp(")")
	return call
}

func (p *parser) subscripts() Expr {
	start := p.peek()
	first := p.subscript()
	if !p.isOp(",") {
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		elts = append(elts, p.subscript())
	}
	return &Tuple{Pos: start.Pos, Elts: elts}
}

func (p *parser) subscript() Expr {
	start := p.peek()
	var lower Expr
	if !p.isOp(":") {
		lower = p.starOrNamed()
		if !p.isOp(":") {
			return lower
		}
	}
	s := &Slice{Pos: start.Pos, Lower: lower}
	p.expectOp(":")
	if !p.isOp(":") && !p.isOp("]") && !p.isOp(",") {
		s.Upper = p.test()
	}
	if p.isOp(":") {
		p.next()
		if !p.isOp("]") && !p.isOp(",") {
			s.Step = p.test()
		}
	}
	return s
}

// comprehension parses one or more for/if clauses and returns their operands.
func (p *parser) comprehension() []Expr {
	var operands []Expr
	for {
		switch {
		case p.isKeyword("async") && p.peekAt(1).Text == "for":
			p.next()
			fallthrough
		case p.isKeyword("for"):
			p.next()
			operands = append(operands, p.targetList())
			p.expectKeyword("in")
			operands = append(operands, p.orTest())
		case p.isKeyword("if"):
			p.next()
			operands = append(operands, p.testNoCond())
		default:
			return operands
		}
	}
}

func (p *parser) yieldExpr() Expr {
	start := p.expectKeyword("yield")
	y := &Opaque{Pos: start.Pos, Kind: "yield"}
	switch {
	case p.isKeyword("from"):
		p.next()
		y.Kind = "yield from"
		y.Operands = []Expr{p.test()}
	case startsExpr(p.peek()):
		y.Operands = []Expr{p.starExprList()}
	}
	return y
}

func (p *parser) atom() Expr {
	tok := p.peek()
	switch tok.Kind {
	case NAME:
		if _, ok := reserved[tok.Text]; ok && tok.Text != "None" && tok.Text != "True" && tok.Text != "False" {
			p.failf(tok.Pos, "invalid syntax")
		}
		p.next()
		return &Name{Pos: tok.Pos, ID: tok.Text}
	case NUMBER:
		p.next()
		return &Num{Pos: tok.Pos, Text: tok.Text}
	case STRING:
		return p.stringLiteral()
	case OP:
		switch tok.Text {
		case "(":
			return p.parenthesized()
		case "[":
			return p.listDisplay()
		case "{":
			return p.braceDisplay()
		case "...":
			p.next()
			return &Opaque{Pos: tok.Pos, Kind: "..."}
		}
	case EOF:
		p.failf(tok.Pos, "unexpected EOF while parsing")
	}
	p.failf(tok.Pos, "invalid syntax")
	return nil
}

// stringLiteral joins adjacent literals the way the language concatenates them.
func (p *parser) stringLiteral() Expr {
	first := p.peek()
	s := &Str{Pos: first.Pos}
	for n := 0; p.peek().Kind == STRING; n++ {
		tok := p.next()
		isBytes := slices.Contains([]string{"b", "br", "rb"}, tok.Prefix)
		if n > 0 && isBytes != s.Bytes {
			p.failf(tok.Pos, "cannot mix bytes and nonbytes literals")
		}
		s.Bytes = isBytes
		s.Formatted = s.Formatted || slices.Contains([]string{"f", "fr", "rf"}, tok.Prefix)
		s.Value += tok.Value
	}
	return s
}

func (p *parser) parenthesized() Expr {
	open := p.expectOp("(")
	if p.isOp(")") {
		p.next()
		return &Tuple{Pos: open.Pos}
	}
	if p.isKeyword("yield") {
		y := p.yieldExpr()
		p.expectOp(")")
		return y
	}
	first := p.starOrNamed()
	switch {
	case p.isKeyword("for") || p.isKeyword("async"):
		gen := &Opaque{Pos: open.Pos, Kind: "genexp", Operands: append([]Expr{first}, p.comprehension()...)}
		p.expectOp(")")
		return gen
	case p.isOp(","):
		elts := []Expr{first}
		for p.isOp(",") {
			p.next()
			if p.isOp(")") {
				break
			}
			elts = append(elts, p.starOrNamed())
		}
		p.expectOp(")")
		return &Tuple{Pos: open.Pos, Elts: elts}
	}
	p.expectOp(")")
	return first
}

func (p *parser) listDisplay() Expr {
	open := p.expectOp("[")
	if p.isOp("]") {
		p.next()
		return &List{Pos: open.Pos}
	}
	first := p.starOrNamed()
	if p.isKeyword("for") || p.isKeyword("async") {
		comp := &Opaque{Pos: open.Pos, Kind: "listcomp", Operands: append([]Expr{first}, p.comprehension()...)}
		p.expectOp("]")
		return comp
	}
	list := &List{Pos: open.Pos, Elts: []Expr{first}}
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		list.Elts = append(list.Elts, p.starOrNamed())
	}
	p.expectOp("]")
	return list
}

func (p *parser) braceDisplay() Expr {
	open := p.expectOp("{")
	if p.isOp("}") {
		p.next()
		return &Dict{Pos: open.Pos}
	}
	if p.isOp("**") {
		return p.dictDisplay(open.Pos, nil, nil)
	}
	first := p.starOrNamed()
	if p.isOp(":") {
		if _, starred := first.(*Starred); starred {
			p.failf(first.Position(), "cannot use a starred expression in a dictionary key")
		}
		p.next()
		value := p.test()
		if p.isKeyword("for") || p.isKeyword("async") {
			comp := &Opaque{Pos: open.Pos, Kind: "dictcomp", Operands: append([]Expr{first, value}, p.comprehension()...)}
			p.expectOp("}")
			return comp
		}
		return p.dictDisplay(open.Pos, first, value)
	}
	if p.isKeyword("for") || p.isKeyword("async") {
		comp := &Opaque{Pos: open.Pos, Kind: "setcomp", Operands: append([]Expr{first}, p.comprehension()...)}
		p.expectOp("}")
		return comp
	}
	set := &Set{Pos: open.Pos, Elts: []Expr{first}}
	for p.isOp(",") {
		p.next()
		if p.isOp("}") {
			break
		}
		set.Elts = append(set.Elts, p.starOrNamed())
	}
	p.expectOp("}")
	return set
}

// dictDisplay continues a dict display. A non-nil key is the entry already read.
func (p *parser) dictDisplay(pos Pos, key, value Expr) Expr {
	d := &Dict{Pos: pos}
	if key != nil {
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, value)
		if !p.isOp(",") {
			p.expectOp("}")
			return d
		}
		p.next()
	}
	for !p.isOp("}") {
		if p.isOp("**") {
			p.next()
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, p.bitOr())
		} else {
			k := p.test()
			p.expectOp(":")
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, p.test())
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	p.expectOp("}")
	return d
}
