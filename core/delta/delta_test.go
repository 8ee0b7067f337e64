package delta

import (
	"math/rand/v2"
	"testing"

	"github.com/huangsam/migdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(kind schema.OpKind, args ...string) schema.Operation {
	o := schema.Operation{Kind: kind, Args: map[string]string{}}
	for i := 0; i+1 < len(args); i += 2 {
		o.Args[args[i]] = args[i+1]
	}
	return o
}

func createModel(name string, fields ...string) schema.Operation {
	o := op(schema.CreateModelOp, "name", name)
	o.Fields = fields
	return o
}

func addField(model, field string) schema.Operation {
	return op(schema.AddFieldOp, "model_name", model, "name", field)
}

func removeField(model, field string) schema.Operation {
	return op(schema.RemoveFieldOp, "model_name", model, "name", field)
}

func renameField(model, oldName, newName string) schema.Operation {
	return op(schema.RenameFieldOp, "model_name", model, "old_name", oldName, "new_name", newName)
}

func renameModel(oldName, newName string) schema.Operation {
	return op(schema.RenameModelOp, "old_name", oldName, "new_name", newName)
}

func deleteModel(name string) schema.Operation {
	return op(schema.DeleteModelOp, "name", name)
}

func report(t *testing.T, a *Accumulator, key string) schema.ModelReport {
	t.Helper()
	m, ok := a.Model(key)
	require.True(t, ok, "model %s not tracked", key)
	return m.Report()
}

func strPtr(s string) *string { return &s }

func TestAddThenRemoveCancels(t *testing.T) {
	a := New()
	a.Apply("shop", addField("Widget", "title"))
	a.Apply("shop", removeField("Widget", "title"))

	r := report(t, a, "widget")
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
	assert.Equal(t, schema.ModifiedStatus, r.Status)
}

func TestRemoveThenAddLeavesOnlyAdded(t *testing.T) {
	a := New()
	a.Apply("shop", removeField("widget", "title"))
	a.Apply("shop", addField("widget", "title"))

	r := report(t, a, "widget")
	assert.Equal(t, []string{"title"}, r.Added)
	assert.Empty(t, r.Removed)
}

func TestRemovePreexistingField(t *testing.T) {
	a := New()
	a.Apply("shop", removeField("widget", "sku"))

	r := report(t, a, "widget")
	assert.Empty(t, r.Added)
	assert.Equal(t, []string{"sku"}, r.Removed)
	assert.Equal(t, schema.ModifiedStatus, r.Status)
}

func TestCreateModel(t *testing.T) {
	a := New()
	a.Apply("shop", createModel("Widget", "id", "title"))

	assert.Equal(t, schema.ModelReport{
		Status:  schema.CreatedStatus,
		Added:   []string{"id", "title"},
		Removed: []string{},
	}, report(t, a, "shop.widget"))
}

func TestCreateModelClearsEarlierRemovals(t *testing.T) {
	a := New()
	a.Apply("shop", deleteModel("Widget"))
	a.Apply("", removeField("shop.widget", "title"))
	a.Apply("shop", createModel("Widget", "title"))

	r := report(t, a, "shop.widget")
	assert.Equal(t, schema.CreatedStatus, r.Status)
	assert.Equal(t, []string{"title"}, r.Added)
	assert.Empty(t, r.Removed)
}

func TestCreateThenDelete(t *testing.T) {
	a := New(WithQualifiedFields(true))
	a.Apply("shop", createModel("Widget", "id", "title"))
	a.Apply("shop", addField("Widget", "subtitle"))
	a.Apply("shop", removeField("Widget", "legacy"))
	a.Apply("shop", deleteModel("Widget"))

	m, ok := a.Model("shop.widget")
	require.True(t, ok)
	assert.Equal(t, schema.DeletedStatus, m.Status)
	assert.True(t, m.Added.Empty())
	assert.True(t, m.Removed.Empty())
	assert.True(t, m.Current.Empty())
}

func TestDeleteUnknownModel(t *testing.T) {
	a := New()
	a.Apply("blog", deleteModel("Post"))

	assert.Equal(t, schema.ModelReport{
		Status:  schema.DeletedStatus,
		Added:   []string{},
		Removed: []string{},
	}, report(t, a, "blog.post"))
}

func TestRenameModelRekeys(t *testing.T) {
	a := New()
	a.Apply("shop", renameModel("Item", "Product"))

	_, ok := a.Model("shop.item")
	assert.False(t, ok, "old key must be gone")
	r := report(t, a, "shop.product")
	assert.Equal(t, strPtr("shop.item"), r.RenamedFrom)
	assert.Equal(t, 1, a.Len())
}

func TestRenameModelFirstRenameWins(t *testing.T) {
	a := New()
	a.Apply("shop", renameModel("Item", "Product"))
	a.Apply("shop", renameModel("Product", "Article"))

	r := report(t, a, "shop.article")
	assert.Equal(t, strPtr("shop.item"), r.RenamedFrom)
	assert.Equal(t, 1, a.Len())
}

func TestRenameCreatedModelKeepsNoOrigin(t *testing.T) {
	a := New()
	a.Apply("shop", createModel("Widget", "id"))
	a.Apply("shop", renameModel("Widget", "Gadget"))

	r := report(t, a, "shop.gadget")
	assert.Nil(t, r.RenamedFrom)
	assert.Equal(t, schema.CreatedStatus, r.Status)
	assert.Equal(t, []string{"id"}, r.Added)
}

func TestRenameModelCaseOnly(t *testing.T) {
	a := New()
	a.Apply("shop", addField("x", "y"))
	a.Apply("shop", renameModel("Widget", "WIDGET"))

	r := report(t, a, "shop.widget")
	assert.Equal(t, strPtr("shop.widget"), r.RenamedFrom)
	assert.Equal(t, 2, a.Len())
}

func TestRenameField(t *testing.T) {
	tests := []struct {
		name    string
		ops     []schema.Operation
		added   []string
		removed []string
	}{
		{
			name:    "preexisting field",
			ops:     []schema.Operation{renameField("widget", "sku", "code")},
			added:   []string{"code"},
			removed: []string{"sku"},
		},
		{
			name:    "field added this run",
			ops:     []schema.Operation{addField("widget", "sku"), renameField("widget", "sku", "code")},
			added:   []string{"code"},
			removed: []string{},
		},
		{
			name:    "field removed this run",
			ops:     []schema.Operation{removeField("widget", "sku"), renameField("widget", "sku", "code")},
			added:   []string{"code"},
			removed: []string{"sku"},
		},
		{
			name:    "rename back to a removed name",
			ops:     []schema.Operation{renameField("widget", "a", "b"), renameField("widget", "b", "a")},
			added:   []string{"a"},
			removed: []string{},
		},
		{
			name:    "same name",
			ops:     []schema.Operation{renameField("widget", "a", "a")},
			added:   []string{},
			removed: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			for _, o := range tt.ops {
				a.Apply("shop", o)
			}
			r := report(t, a, "widget")
			assert.Equal(t, tt.added, r.Added)
			assert.Equal(t, tt.removed, r.Removed)
		})
	}
}

func TestRenameFieldTracksCurrentFields(t *testing.T) {
	a := New(WithQualifiedFields(true))
	a.Apply("shop", createModel("Widget", "id", "title"))
	a.Apply("shop", renameField("Widget", "title", "headline"))

	m, ok := a.Model("shop.widget")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"id", "headline"}, m.Current.Slice())
}

func TestMissingArgumentsAreSkipped(t *testing.T) {
	a := New()
	a.Apply("shop", op(schema.CreateModelOp))
	a.Apply("shop", op(schema.DeleteModelOp, "name", ""))
	a.Apply("shop", op(schema.RenameModelOp, "old_name", "A"))
	a.Apply("shop", op(schema.AddFieldOp, "model_name", "widget"))
	a.Apply("shop", op(schema.RemoveFieldOp, "name", "title"))
	a.Apply("shop", op(schema.RenameFieldOp, "model_name", "widget", "old_name", "a"))
	a.Apply("shop", op(schema.OtherOp, "name", "Widget", "model_name", "widget"))

	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Result())
}

// Unqualified field operations and group-qualified model operations land on
// different records unless field qualification is enabled.
func TestModelKeyResolution(t *testing.T) {
	tests := []struct {
		name    string
		kind    schema.OpKind
		qualify bool
		want    string
	}{
		{"create model", schema.CreateModelOp, false, "shop.widget"},
		{"delete model", schema.DeleteModelOp, false, "shop.widget"},
		{"rename model", schema.RenameModelOp, false, "shop.widget"},
		{"add field bare", schema.AddFieldOp, false, "widget"},
		{"remove field bare", schema.RemoveFieldOp, false, "widget"},
		{"rename field bare", schema.RenameFieldOp, false, "widget"},
		{"add field qualified", schema.AddFieldOp, true, "shop.widget"},
		{"create model qualified", schema.CreateModelOp, true, "shop.widget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(WithQualifiedFields(tt.qualify))
			assert.Equal(t, tt.want, a.modelKey(tt.kind, "Shop", "Widget"))
		})
	}
}

func TestFieldOperationsKeyOnBareModelName(t *testing.T) {
	a := New()
	a.ApplyDescriptor(schema.Descriptor{Group: "shop", Operations: []schema.Operation{
		createModel("Widget", "id", "title"),
	}})
	a.ApplyDescriptor(schema.Descriptor{Group: "shop", Operations: []schema.Operation{
		removeField("Widget", "title"),
		addField("Widget", "subtitle"),
	}})

	result := a.Result()
	assert.Equal(t, []string{"shop.widget", "widget"}, result.Models())
	assert.Equal(t, schema.ModelReport{
		Status:  schema.CreatedStatus,
		Added:   []string{"id", "title"},
		Removed: []string{},
	}, result["shop.widget"])
	assert.Equal(t, schema.ModelReport{
		Status:  schema.ModifiedStatus,
		Added:   []string{"subtitle"},
		Removed: []string{"title"},
	}, result["widget"])
}

func TestQualifiedFieldsAcrossDescriptors(t *testing.T) {
	a := New(WithQualifiedFields(true))

	a.ApplyDescriptor(schema.Descriptor{Group: "shop", Operations: []schema.Operation{
		createModel("Widget", "id", "title"),
	}})
	assert.Equal(t, schema.ModelReport{
		Status:  schema.CreatedStatus,
		Added:   []string{"id", "title"},
		Removed: []string{},
	}, report(t, a, "shop.widget"))

	a.ApplyDescriptor(schema.Descriptor{Group: "shop", Operations: []schema.Operation{
		removeField("Widget", "title"),
		addField("Widget", "subtitle"),
	}})
	assert.Equal(t, schema.ModelReport{
		Status:  schema.CreatedStatus,
		Added:   []string{"id", "subtitle"},
		Removed: []string{},
	}, report(t, a, "shop.widget"))

	a.ApplyDescriptor(schema.Descriptor{Group: "shop", Operations: []schema.Operation{
		renameField("Widget", "id", "uid"),
	}})
	assert.Equal(t, schema.ModelReport{
		Status:  schema.CreatedStatus,
		Added:   []string{"subtitle", "uid"},
		Removed: []string{},
	}, report(t, a, "shop.widget"))
	assert.Equal(t, 1, a.Len())
}

func TestSameModelNameInDifferentGroups(t *testing.T) {
	a := New()
	a.Apply("shop", createModel("Item", "id"))
	a.Apply("blog", deleteModel("Item"))

	result := a.Result()
	assert.Equal(t, schema.CreatedStatus, result["shop.item"].Status)
	assert.Equal(t, schema.DeletedStatus, result["blog.item"].Status)
}

func TestResultIsDetached(t *testing.T) {
	a := New()
	a.Apply("shop", renameModel("A", "B"))
	result := a.Result()
	*result["shop.b"].RenamedFrom = "changed"

	again := a.Result()
	assert.Equal(t, strPtr("shop.a"), again["shop.b"].RenamedFrom)
}

// No sequence of operations may leave a field both added and removed.
func TestAddedAndRemovedNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1024))
	models := []string{"Widget", "Gadget", "Item"}
	fields := []string{"id", "title", "sku", "price", "owner"}
	pick := func(xs []string) string { return xs[rng.IntN(len(xs))] }

	for round := 0; round < 200; round++ {
		a := New(WithQualifiedFields(round%2 == 0))
		for step := 0; step < 50; step++ {
			var o schema.Operation
			switch rng.IntN(6) {
			case 0:
				o = createModel(pick(models), pick(fields), pick(fields))
			case 1:
				o = deleteModel(pick(models))
			case 2:
				o = renameModel(pick(models), pick(models))
			case 3:
				o = addField(pick(models), pick(fields))
			case 4:
				o = removeField(pick(models), pick(fields))
			case 5:
				o = renameField(pick(models), pick(fields), pick(fields))
			}
			a.Apply("shop", o)

			for key, m := range a.models {
				for _, f := range m.Added.Slice() {
					require.Falsef(t, m.Removed.Contains(f),
						"round %d step %d: %s has %q in both added and removed", round, step, key, f)
				}
			}
		}
	}
}
