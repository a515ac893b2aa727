package session

import (
	"slices"
	"strings"
)

// MultiSelectPrefix marks a dispatched value as a picker submission so the
// server can tell it apart from free text.
const MultiSelectPrefix = "__ms__"

// Draft is the local, unsent selection of a multi-select picker. The zero
// value is an empty draft. Draft values are immutable: every edit returns a
// new Draft.
type Draft struct {
	selected []string // pre-listed ids, in toggle order
	newIDs   []string // typed ids, in entry order
}

// Count is the number of chosen ids from both sources.
func (d Draft) Count() int {
	return len(d.selected) + len(d.newIDs)
}

// Complete reports whether exactly limit ids are chosen. Submitting is only
// possible when this holds.
func (d Draft) Complete(limit int) bool {
	return limit >= 1 && d.Count() == limit
}

// IsSelected reports whether a pre-listed id is chosen.
func (d Draft) IsSelected(id string) bool {
	return slices.Contains(d.selected, id)
}

// NewIDs returns the typed ids in entry order.
func (d Draft) NewIDs() []string {
	return slices.Clone(d.newIDs)
}

func (d Draft) has(id string) bool {
	return slices.Contains(d.selected, id) || slices.Contains(d.newIDs, id)
}

// Toggle selects or deselects a pre-listed item. Disabled and unknown items
// are ignored, and selecting beyond the picker's limit is a no-op.
func (d Draft) Toggle(ms MultiSelect, id string) (Draft, bool) {
	item, ok := ms.Item(id)
	if !ok || item.Disabled {
		return d, false
	}
	if i := slices.Index(d.selected, id); i >= 0 {
		return Draft{selected: slices.Delete(slices.Clone(d.selected), i, i+1), newIDs: d.newIDs}, true
	}
	if d.Count() >= ms.Max || slices.Contains(d.newIDs, id) {
		return d, false
	}
	return Draft{selected: append(slices.Clone(d.selected), id), newIDs: d.newIDs}, true
}

// Add appends a typed id. Blank ids, duplicates against either source, and
// additions past the limit are rejected.
func (d Draft) Add(ms MultiSelect, id string) (Draft, bool) {
	id = strings.TrimSpace(id)
	if id == "" || d.has(id) || d.Count() >= ms.Max {
		return d, false
	}
	return Draft{selected: d.selected, newIDs: append(slices.Clone(d.newIDs), id)}, true
}

// Remove drops a typed id.
func (d Draft) Remove(id string) (Draft, bool) {
	i := slices.Index(d.newIDs, id)
	if i < 0 {
		return d, false
	}
	return Draft{selected: d.selected, newIDs: slices.Delete(slices.Clone(d.newIDs), i, i+1)}, true
}

// Ordered lists the chosen ids: pre-listed selections in the picker's item
// order, then typed ids in entry order.
func (d Draft) Ordered(ms MultiSelect) []string {
	out := make([]string, 0, d.Count())
	for _, it := range ms.Items {
		if slices.Contains(d.selected, it.ID) {
			out = append(out, it.ID)
		}
	}
	return append(out, d.newIDs...)
}

// Encode is the value dispatched to the server.
func (d Draft) Encode(ms MultiSelect) string {
	return MultiSelectPrefix + strings.Join(d.Ordered(ms), ",")
}

// Label is the human readable echo of the submission.
func (d Draft) Label(ms MultiSelect) string {
	return strings.Join(d.Ordered(ms), ", ")
}
