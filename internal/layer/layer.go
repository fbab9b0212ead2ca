// Package layer holds the layer record and the ordered collection that keeps
// exactly one layer active and the default layer pinned at index 0.
package layer

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrIndexOutOfRange reports a row index outside the collection.
	ErrIndexOutOfRange = errors.New("layer: index out of range")
	// ErrInvariantViolation reports a collection that would not have exactly
	// one active layer, or a misplaced default layer.
	ErrInvariantViolation = errors.New("layer: invariant violation")
	// ErrFrozen reports a mutation attempted while the collection is frozen.
	ErrFrozen = errors.New("layer: collection is frozen")
)

// DefaultIndex is the row of the permanent default layer.
const DefaultIndex = 0

// Layer is one named grouping of drawable content.
type Layer struct {
	ID      string
	Name    string
	Color   string // "#rrggbb"
	Visible bool
	Locked  bool
	Active  bool
	Default bool
}

// New returns a visible, inactive layer with a fresh ID.
func New(name, color string) *Layer {
	return &Layer{
		ID:      uuid.NewString(),
		Name:    name,
		Color:   color,
		Visible: true,
	}
}

// NewDefault returns the active default layer that occupies index 0.
func NewDefault(name, color string) *Layer {
	l := New(name, color)
	l.Active = true
	l.Default = true
	return l
}

// Clone copies the styling and visibility of l under a new name and ID.
// The clone is neither active nor default.
func (l *Layer) Clone(name string) *Layer {
	return &Layer{
		ID:      uuid.NewString(),
		Name:    name,
		Color:   l.Color,
		Visible: l.Visible,
		Locked:  l.Locked,
	}
}
