// Package delta folds descriptor operations into per-model change records.
package delta

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v2"
	"github.com/huangsam/migdelta/schema"
)

// ModelChange is the running change record for one model.
// A field name is never in both Added and Removed.
type ModelChange struct {
	Status      schema.Status
	RenamedFrom *string
	Added       *set.Set[string]
	Removed     *set.Set[string]
	Current     *set.Set[string] // fields believed to exist after the operations seen so far
}

func newModelChange() *ModelChange {
	return &ModelChange{
		Status:  schema.ModifiedStatus,
		Added:   set.New[string](0),
		Removed: set.New[string](0),
		Current: set.New[string](0),
	}
}

// add records a net addition, undoing any earlier net removal.
func (m *ModelChange) add(field string) {
	m.Removed.Remove(field)
	m.Added.Insert(field)
	m.Current.Insert(field)
}

// remove records a net removal unless the field was added in this run,
// in which case the two cancel out.
func (m *ModelChange) remove(field string) {
	if !m.Added.Remove(field) {
		m.Removed.Insert(field)
	}
	m.Current.Remove(field)
}

func (m *ModelChange) rename(oldName, newName string) {
	m.Current.Remove(oldName)
	m.Current.Insert(newName)
	if oldName == newName {
		return
	}
	switch {
	case m.Added.Contains(oldName):
		m.Added.Remove(oldName)
	case m.Removed.Contains(oldName):
	default:
		m.Removed.Insert(oldName)
	}
	m.Removed.Remove(newName)
	m.Added.Insert(newName)
}

func (m *ModelChange) reset() {
	m.Added = set.New[string](0)
	m.Removed = set.New[string](0)
	m.Current = set.New[string](0)
}

// Report converts the record to its serialized form with sorted field lists.
func (m *ModelChange) Report() schema.ModelReport {
	report := schema.ModelReport{
		Status:  m.Status,
		Added:   sorted(m.Added),
		Removed: sorted(m.Removed),
	}
	if m.RenamedFrom != nil {
		from := *m.RenamedFrom
		report.RenamedFrom = &from
	}
	return report
}

func sorted(s *set.Set[string]) []string {
	out := make([]string, 0, s.Size())
	out = append(out, s.Slice()...)
	slices.Sort(out)
	return out
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithQualifiedFields makes field operations key on the owning group too, so
// they reach records created by model operations in the same group.
func WithQualifiedFields(enabled bool) Option {
	return func(a *Accumulator) {
		a.qualifyFields = enabled
	}
}

// Accumulator owns the mapping from model key to change record. It is not safe
// for concurrent use; operations must be applied in migration order.
type Accumulator struct {
	models        map[string]*ModelChange
	qualifyFields bool
}

// New creates an empty accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{models: make(map[string]*ModelChange)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Len returns the number of tracked models.
func (a *Accumulator) Len() int {
	return len(a.models)
}

// Model returns the record stored under key, if any.
func (a *Accumulator) Model(key string) (*ModelChange, bool) {
	m, ok := a.models[key]
	return m, ok
}

func (a *Accumulator) fetch(key string) *ModelChange {
	m, ok := a.models[key]
	if !ok {
		m = newModelChange()
		a.models[key] = m
	}
	return m
}

// modelKey resolves the record key an operation of kind refers to. Model-level
// operations always key on the group-qualified name. Field operations use the
// bare lower-cased model_name unless qualified fields are enabled, so by default
// they do not meet the records that model operations create.
func (a *Accumulator) modelKey(kind schema.OpKind, group, model string) string {
	if kind.IsModelLevel() || a.qualifyFields {
		return schema.QualifiedName(group, model)
	}
	return strings.ToLower(model)
}

// ApplyDescriptor applies every operation of d in declaration order.
func (a *Accumulator) ApplyDescriptor(d schema.Descriptor) {
	for _, op := range d.Operations {
		a.Apply(d.Group, op)
	}
}

// Apply folds one operation into the mapping. Operations missing a required
// literal argument and unknown kinds are ignored.
func (a *Accumulator) Apply(group string, op schema.Operation) {
	switch op.Kind {
	case schema.CreateModelOp:
		name, ok := op.Arg("name")
		if !ok {
			return
		}
		m := a.fetch(a.modelKey(op.Kind, group, name))
		m.Status = schema.CreatedStatus
		for _, field := range op.Fields {
			m.add(field)
		}

	case schema.DeleteModelOp:
		name, ok := op.Arg("name")
		if !ok {
			return
		}
		m := a.fetch(a.modelKey(op.Kind, group, name))
		m.Status = schema.DeletedStatus
		m.reset()

	case schema.RenameModelOp:
		oldName, okOld := op.Arg("old_name")
		newName, okNew := op.Arg("new_name")
		if !okOld || !okNew {
			return
		}
		oldKey := a.modelKey(op.Kind, group, oldName)
		newKey := a.modelKey(op.Kind, group, newName)
		m := a.fetch(oldKey)
		if m.RenamedFrom == nil && m.Status != schema.CreatedStatus {
			m.RenamedFrom = &oldKey
		}
		delete(a.models, oldKey)
		a.models[newKey] = m

	case schema.AddFieldOp, schema.RemoveFieldOp:
		field, okField := op.Arg("name")
		model, okModel := op.Arg("model_name")
		if !okField || !okModel {
			return
		}
		m := a.fetch(a.modelKey(op.Kind, group, model))
		if op.Kind == schema.AddFieldOp {
			m.add(field)
		} else {
			m.remove(field)
		}

	case schema.RenameFieldOp:
		oldName, okOld := op.Arg("old_name")
		newName, okNew := op.Arg("new_name")
		model, okModel := op.Arg("model_name")
		if !okOld || !okNew || !okModel {
			return
		}
		a.fetch(a.modelKey(op.Kind, group, model)).rename(oldName, newName)

	case schema.OtherOp:
	}
}

// Result serializes every record keyed by its current model key.
func (a *Accumulator) Result() schema.Result {
	result := make(schema.Result, len(a.models))
	for key, m := range a.models {
		result[key] = m.Report()
	}
	return result
}
