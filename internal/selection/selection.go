// Package selection tracks which layer table rows are selected.
package selection

import "sort"

// defaultRow is the row of the undeletable default layer.
const defaultRow = 0

// State is a set of selected row indices. It names rows only; it knows
// nothing about the layers behind them.
type State struct {
	rows map[int]struct{}
}

// New returns an empty selection.
func New() *State {
	return &State{rows: make(map[int]struct{})}
}

// Select replaces the selection with rows. Negative rows are ignored.
func (s *State) Select(rows []int) {
	s.rows = make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r >= 0 {
			s.rows[r] = struct{}{}
		}
	}
}

// Toggle adds row when absent and removes it when present.
func (s *State) Toggle(row int) {
	if row < 0 {
		return
	}
	if s.rows == nil {
		s.rows = make(map[int]struct{})
	}
	if _, ok := s.rows[row]; ok {
		delete(s.rows, row)
		return
	}
	s.rows[row] = struct{}{}
}

// Clear empties the selection.
func (s *State) Clear() {
	s.rows = make(map[int]struct{})
}

// Empty reports whether nothing is selected.
func (s *State) Empty() bool { return len(s.rows) == 0 }

// Len returns the number of selected rows.
func (s *State) Len() int { return len(s.rows) }

// Contains reports whether row is selected.
func (s *State) Contains(row int) bool {
	_, ok := s.rows[row]
	return ok
}

// Rows returns the selected rows in ascending order.
func (s *State) Rows() []int {
	out := make([]int, 0, len(s.rows))
	for r := range s.rows {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Clamp drops rows at or beyond size and reports whether anything changed.
func (s *State) Clamp(size int) bool {
	changed := false
	for r := range s.rows {
		if r >= size {
			delete(s.rows, r)
			changed = true
		}
	}
	return changed
}

// CanDelete reports whether a delete would remove anything from a collection
// of size rows. An explicit selection qualifies unless it is only the default
// row; an empty selection qualifies when a non-default last row exists to
// act as the implicit target.
func (s *State) CanDelete(size int) bool {
	if s.Empty() {
		return size > 1
	}
	for r := range s.rows {
		if r != defaultRow {
			return true
		}
	}
	return false
}

// Targets returns the rows a delete acts on: the explicit selection, or the
// last row when nothing is selected. The default row may be included; the
// collection refuses to remove it.
func (s *State) Targets(size int) []int {
	if !s.Empty() {
		return s.Rows()
	}
	if size > 1 {
		return []int{size - 1}
	}
	return nil
}
