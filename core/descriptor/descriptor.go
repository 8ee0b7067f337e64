// Package descriptor extracts typed operations from migration descriptor files.
package descriptor

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/huangsam/migdelta/internal/pysyntax"
	"github.com/huangsam/migdelta/schema"
)

// ErrSyntax wraps every failure to parse a descriptor's source.
var ErrSyntax = errors.New("invalid descriptor syntax")

// Version identifies the extraction rules. Cached parse results from another
// version are never reused.
const Version = "v1"

// Parse reads one descriptor's source and returns its operations in
// declaration order. The owning group is derived from path.
func Parse(path string, content []byte) (schema.Descriptor, error) {
	mod, err := pysyntax.Parse(path, string(content))
	if err != nil {
		return schema.Descriptor{}, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	return schema.Descriptor{
		Path:       path,
		Group:      OwningGroup(path),
		Operations: Operations(mod),
	}, nil
}

// OwningGroup returns the name of the directory two levels above the file,
// i.e. "shop" for shop/migrations/0001_initial.py. Relative paths are resolved
// against the working directory first. It is empty at the filesystem root.
func OwningGroup(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	group := filepath.Base(filepath.Dir(filepath.Dir(filepath.Clean(path))))
	if group == string(filepath.Separator) || group == "." {
		return ""
	}
	return group
}

// Operations walks a parsed module to its operation list. Only the first
// top-level Migration class is consulted, and within it the first plain
// assignment of a list to "operations".
func Operations(mod *pysyntax.Module) []schema.Operation {
	list := operationList(mod)
	if list == nil {
		return nil
	}
	ops := make([]schema.Operation, 0, len(list.Elts))
	for _, elt := range list.Elts {
		if op, ok := operation(elt); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

func operationList(mod *pysyntax.Module) *pysyntax.List {
	for _, stmt := range mod.Body {
		cls, ok := stmt.(*pysyntax.ClassDef)
		if !ok || cls.Name != schema.DescriptorClass {
			continue
		}
		for _, inner := range cls.Body {
			assign, ok := inner.(*pysyntax.Assign)
			if !ok || !assignsTo(assign, schema.OperationsAttribute) {
				continue
			}
			if list, ok := assign.Value.(*pysyntax.List); ok {
				return list
			}
		}
		return nil
	}
	return nil
}

func assignsTo(assign *pysyntax.Assign, name string) bool {
	for _, target := range assign.Targets {
		if n, ok := target.(*pysyntax.Name); ok && n.ID == name {
			return true
		}
	}
	return false
}

// operation converts one list element. Elements that are not calls on a
// dotted attribute are skipped.
func operation(e pysyntax.Expr) (schema.Operation, bool) {
	call, ok := e.(*pysyntax.Call)
	if !ok {
		return schema.Operation{}, false
	}
	name, ok := pysyntax.AttributeName(call.Func)
	if !ok {
		return schema.Operation{}, false
	}

	op := schema.Operation{Kind: schema.ParseOpKind(name)}
	keywords := call.KeywordMap()
	for arg, value := range keywords {
		if s, ok := pysyntax.StringValue(value); ok {
			if op.Args == nil {
				op.Args = make(map[string]string)
			}
			op.Args[arg] = s
		}
	}
	if op.Kind == schema.CreateModelOp {
		op.Fields = fieldNames(keywords["fields"])
	}
	return op, true
}

// fieldNames reads the leading string of each (name, field) pair.
func fieldNames(e pysyntax.Expr) []string {
	var elts []pysyntax.Expr
	switch v := e.(type) {
	case *pysyntax.List:
		elts = v.Elts
	case *pysyntax.Tuple:
		elts = v.Elts
	default:
		return nil
	}

	var names []string
	for _, elt := range elts {
		var pair []pysyntax.Expr
		switch v := elt.(type) {
		case *pysyntax.Tuple:
			pair = v.Elts
		case *pysyntax.List:
			pair = v.Elts
		}
		if len(pair) == 0 {
			continue
		}
		if name, ok := pysyntax.StringValue(pair[0]); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
