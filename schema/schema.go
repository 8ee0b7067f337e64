// Package schema has configs, models and global variables for all parts of migdelta.
package schema

import (
	"encoding/json"
	"fmt"
)

// OpKind is the closed set of descriptor operations the analysis understands.
type OpKind int

// Operation kinds. OtherOp covers every unrecognized call and is ignored downstream.
const (
	OtherOp OpKind = iota
	CreateModelOp
	DeleteModelOp
	RenameModelOp
	AddFieldOp
	RemoveFieldOp
	RenameFieldOp
)

var opKindNames = map[OpKind]string{
	OtherOp:       "Other",
	CreateModelOp: "CreateModel",
	DeleteModelOp: "DeleteModel",
	RenameModelOp: "RenameModel",
	AddFieldOp:    "AddField",
	RemoveFieldOp: "RemoveField",
	RenameFieldOp: "RenameField",
}

// ParseOpKind maps a callee attribute name to its kind. Unknown names yield OtherOp.
func ParseOpKind(name string) OpKind {
	for kind, n := range opKindNames {
		if kind != OtherOp && n == name {
			return kind
		}
	}
	return OtherOp
}

// String implements fmt.Stringer.
func (k OpKind) String() string {
	if n, ok := opKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// IsModelLevel reports whether the kind names a whole model rather than a field.
func (k OpKind) IsModelLevel() bool {
	return k == CreateModelOp || k == DeleteModelOp || k == RenameModelOp
}

// MarshalJSON encodes the kind by name so cached operations survive enum reordering.
func (k OpKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *OpKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*k = ParseOpKind(name)
	return nil
}

// Operation is one declared mutation inside a descriptor file.
// Args only holds keyword arguments whose value is a plain string literal.
type Operation struct {
	Kind   OpKind            `json:"kind"`
	Args   map[string]string `json:"args,omitempty"`
	Fields []string          `json:"fields,omitempty"` // CreateModel field names, in declaration order
}

// Arg returns the resolved string literal for a keyword argument.
func (o Operation) Arg(name string) (string, bool) {
	v, ok := o.Args[name]
	return v, ok && v != ""
}

// Descriptor is the parsed form of one migration file.
type Descriptor struct {
	Path       string      `json:"path"`
	Group      string      `json:"group"` // owning-group label derived from the path
	Operations []Operation `json:"operations"`
}

// Status is the lifecycle state of a model within one analysis run.
type Status int

// All model statuses, encoded with their report integer codes.
const (
	DeletedStatus  Status = -1
	ModifiedStatus Status = 0 // default
	CreatedStatus  Status = 1
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case DeletedStatus:
		return "deleted"
	case CreatedStatus:
		return "created"
	default:
		return "modified"
	}
}

// ModelReport is the serialized change record for one model.
type ModelReport struct {
	Status      Status   `json:"status"`
	RenamedFrom *string  `json:"renamed_from"`
	Added       []string `json:"added"`
	Removed     []string `json:"removed"`
}

// Result maps qualified model names to their change records.
type Result map[string]ModelReport

// Models returns the result keys in sorted order.
func (r Result) Models() []string {
	return SortedKeys(r)
}
