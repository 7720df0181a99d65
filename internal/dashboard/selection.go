// Package dashboard derives what the scan dashboard shows: the filtered
// sidebar, the current selection, the detail state and the progress summary.
package dashboard

// Selection is the currently selected scan, if any. It is a value: callers
// pass it explicitly and Toggle returns a new one.
type Selection struct {
	id string
}

// NoSelection is the empty selection.
var NoSelection = Selection{}

// Select returns a selection of id. An empty id yields NoSelection.
func Select(id string) Selection {
	return Selection{id: id}
}

// ID returns the selected id and whether anything is selected.
func (s Selection) ID() (string, bool) {
	return s.id, s.id != ""
}

// IsSelected reports whether id is the current selection.
func (s Selection) IsSelected(id string) bool {
	return id != "" && s.id == id
}

// Toggle selects id, or clears the selection when id is already selected.
func (s Selection) Toggle(id string) Selection {
	if s.IsSelected(id) {
		return NoSelection
	}
	return Select(id)
}
