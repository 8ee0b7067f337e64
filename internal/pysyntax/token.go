// Package pysyntax tokenizes and parses the subset of Python source needed to read
// migration descriptors: block structure, class definitions, assignments and the
// full expression grammar used inside them.
package pysyntax

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

// Token kinds.
const (
	EOF TokenKind = iota
	NEWLINE
	INDENT
	DEDENT
	NAME
	NUMBER
	STRING
	OP
)

var tokenKindNames = [...]string{
	EOF:     "EOF",
	NEWLINE: "NEWLINE",
	INDENT:  "INDENT",
	DEDENT:  "DEDENT",
	NAME:    "NAME",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	OP:      "OP",
}

// String implements fmt.Stringer.
func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Position returns the position itself so that embedding Pos satisfies Node.
func (p Pos) Position() Pos { return p }

// Token is one lexical token.
type Token struct {
	Kind   TokenKind
	Text   string // raw source text; for STRING it includes prefix and quotes
	Value  string // decoded contents for STRING
	Prefix string // lower-cased string prefix, e.g. "r", "b", "f"
	Pos    Pos
}

// Error is a syntax error with its location.
type Error struct {
	File string
	Pos  Pos
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Col, e.Msg)
}

// reserved lists the hard keywords. None, True and False are valid atoms.
var reserved = map[string]struct{}{
	"False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {}, "async": {},
	"await": {}, "break": {}, "class": {}, "continue": {}, "def": {}, "del": {}, "elif": {},
	"else": {}, "except": {}, "finally": {}, "for": {}, "from": {}, "global": {}, "if": {},
	"import": {}, "in": {}, "is": {}, "lambda": {}, "nonlocal": {}, "not": {}, "or": {},
	"pass": {}, "raise": {}, "return": {}, "try": {}, "while": {}, "with": {}, "yield": {},
}

// compoundKeywords open a statement with a header and an indented suite.
var compoundKeywords = map[string]struct{}{
	"if": {}, "elif": {}, "else": {}, "for": {}, "while": {}, "with": {},
	"try": {}, "except": {}, "finally": {}, "def": {}, "async": {},
}

// simpleKeywords open statements whose operands are not inspected.
var simpleKeywords = map[string]struct{}{
	"import": {}, "from": {}, "return": {}, "pass": {}, "raise": {}, "del": {}, "assert": {},
	"global": {}, "nonlocal": {}, "break": {}, "continue": {},
}

// augmentedOps are the in-place assignment operators.
var augmentedOps = map[string]struct{}{
	"+=": {}, "-=": {}, "*=": {}, "/=": {}, "//=": {}, "%=": {}, "@=": {},
	"&=": {}, "|=": {}, "^=": {}, ">>=": {}, "<<=": {}, "**=": {},
}

// operators ordered longest first for maximal munch.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", ":=", "**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"(", ")", "[", "]", "{", "}", ",", ":", ";", ".", "=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
}
