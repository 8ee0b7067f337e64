package schema

import (
	"cmp"
	"slices"
	"strings"
)

// SortedKeys returns the keys of a string-keyed map in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// QualifiedName builds the lower-cased "<group>.<model>" key.
// An empty group yields the bare lower-cased model name.
func QualifiedName(group, model string) string {
	model = strings.ToLower(model)
	if group == "" {
		return model
	}
	return strings.ToLower(group) + "." + model
}

// FormatFieldList renders field names for table cells.
func FormatFieldList(fields []string) string {
	if len(fields) == 0 {
		return "-"
	}
	return strings.Join(fields, ", ")
}

// OrderDescriptorPaths sorts descriptor paths by owning group and then by file name,
// which follows the numbered-prefix application order within a group.
func OrderDescriptorPaths(paths []string, group func(string) string, base func(string) string) []string {
	out := slices.Clone(paths)
	slices.SortStableFunc(out, func(a, b string) int {
		if c := cmp.Compare(group(a), group(b)); c != 0 {
			return c
		}
		return cmp.Compare(base(a), base(b))
	})
	return out
}
