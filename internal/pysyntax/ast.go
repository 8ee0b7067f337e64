package pysyntax

// Node is anything with a source position.
type Node interface {
	Position() Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expression nodes.
type (
	// Name is an identifier, including None, True and False.
	Name struct {
		Pos
		ID string
	}

	// Str is one or more adjacent string literals joined together.
	Str struct {
		Pos
		Value     string
		Bytes     bool
		Formatted bool
	}

	// Num is a numeric literal kept in source form.
	Num struct {
		Pos
		Text string
	}

	// Attribute is Value.Attr.
	Attribute struct {
		Pos
		Value Expr
		Attr  string
	}

	// Call is Func(Args..., Keywords...).
	Call struct {
		Pos
		Func     Expr
		Args     []Expr
		Keywords []Keyword
	}

	// Subscript is Value[Index].
	Subscript struct {
		Pos
		Value Expr
		Index Expr
	}

	// Slice is lower:upper:step inside a subscript; any part may be nil.
	Slice struct {
		Pos
		Lower, Upper, Step Expr
	}

	List struct {
		Pos
		Elts []Expr
	}

	Tuple struct {
		Pos
		Elts []Expr
	}

	Set struct {
		Pos
		Elts []Expr
	}

	// Dict keeps keys and values aligned; a nil key marks a **mapping spread.
	Dict struct {
		Pos
		Keys   []Expr
		Values []Expr
	}

	// Starred is *Value.
	Starred struct {
		Pos
		Value Expr
	}

	// Opaque covers expressions whose value is never resolved statically:
	// operators, lambdas, comprehensions, conditionals, yield and await.
	Opaque struct {
		Pos
		Kind     string
		Operands []Expr
	}
)

// Keyword is a named call argument. Arg is empty for **mapping arguments.
type Keyword struct {
	Pos
	Arg   string
	Value Expr
}

func (*Name) exprNode()      {}
func (*Str) exprNode()       {}
func (*Num) exprNode()       {}
func (*Attribute) exprNode() {}
func (*Call) exprNode()      {}
func (*Subscript) exprNode() {}
func (*Slice) exprNode()     {}
func (*List) exprNode()      {}
func (*Tuple) exprNode()     {}
func (*Set) exprNode()       {}
func (*Dict) exprNode()      {}
func (*Starred) exprNode()   {}
func (*Opaque) exprNode()    {}

// Statement nodes.
type (
	// Module is a parsed source file.
	Module struct {
		Body []Stmt
	}

	// ClassDef is a class statement with a fully parsed body.
	ClassDef struct {
		Pos
		Name       string
		Decorators []Expr
		Bases      []Expr
		Keywords   []Keyword
		Body       []Stmt
	}

	// Assign is target = [target = ...] value.
	Assign struct {
		Pos
		Targets []Expr
		Value   Expr
	}

	// ExprStmt is an expression evaluated for its side effects.
	ExprStmt struct {
		Pos
		Value Expr
	}

	// Block is any compound statement other than a class. Only its
	// structure is kept; simple statements inside become OtherStmt.
	Block struct {
		Pos
		Keyword string
		Body    []Stmt
	}

	// OtherStmt is a simple statement whose contents are not inspected.
	OtherStmt struct {
		Pos
		Keyword string
	}
)

func (*ClassDef) stmtNode()  {}
func (*Assign) stmtNode()    {}
func (*ExprStmt) stmtNode()  {}
func (*Block) stmtNode()     {}
func (*OtherStmt) stmtNode() {}

// StringValue returns the text of a plain string literal. Bytes and
// formatted literals are not plain strings.
func StringValue(e Expr) (string, bool) {
	s, ok := e.(*Str)
	if !ok || s.Bytes || s.Formatted {
		return "", false
	}
	return s.Value, true
}

// AttributeName returns the trailing attribute of a dotted access like a.b.c.
func AttributeName(e Expr) (string, bool) {
	a, ok := e.(*Attribute)
	if !ok {
		return "", false
	}
	return a.Attr, true
}

// KeywordMap indexes named arguments by name, skipping **mapping arguments.
func (c *Call) KeywordMap() map[string]Expr {
	out := make(map[string]Expr, len(c.Keywords))
	for _, kw := range c.Keywords {
		if kw.Arg != "" {
			out[kw.Arg] = kw.Value
		}
	}
	return out
}
