package layer

import (
	"fmt"
	"sort"
)

// ChangeKind identifies what a change event describes.
type ChangeKind string

const (
	ChangeAppended ChangeKind = "appended"
	ChangeRemoved  ChangeKind = "removed"
	ChangeActive   ChangeKind = "active"
	ChangeEdited   ChangeKind = "edited"
)

// Change is published to subscribers after a collection mutation.
type Change struct {
	Kind    ChangeKind
	Indices []int
}

// Collection is an ordered set of layers. Index 0 is always the default
// layer and exactly one layer is active once a mutation returns.
//
// A Collection is not safe for concurrent use; it belongs to the thread that
// drives the hosting UI.
type Collection struct {
	layers []*Layer
	subs   map[int]func(Change)
	nextID int
	frozen int
}

// NewCollection returns a collection holding only the active default layer.
func NewCollection(defaultName, defaultColor string) *Collection {
	return &Collection{layers: []*Layer{NewDefault(defaultName, defaultColor)}}
}

// NewCollectionFrom wraps layers supplied by a host document. The slice is
// adopted, not copied, and must already satisfy the collection invariants.
func NewCollectionFrom(layers []*Layer) (*Collection, error) {
	c := &Collection{layers: layers}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the collection is non-empty, that only index 0 is the
// default layer and that exactly one layer is active.
func (c *Collection) Validate() error {
	if len(c.layers) == 0 {
		return fmt.Errorf("%w: empty collection", ErrInvariantViolation)
	}
	active := 0
	for i, l := range c.layers {
		if l == nil {
			return fmt.Errorf("%w: nil layer at %d", ErrInvariantViolation, i)
		}
		if l.Default != (i == DefaultIndex) {
			return fmt.Errorf("%w: default flag on row %d", ErrInvariantViolation, i)
		}
		if l.Active {
			active++
		}
	}
	if active != 1 {
		return fmt.Errorf("%w: %d active layers", ErrInvariantViolation, active)
	}
	return nil
}

// Len returns the number of layers.
func (c *Collection) Len() int { return len(c.layers) }

// At returns the layer at index i.
func (c *Collection) At(i int) (*Layer, error) {
	if err := c.checkIndex(i); err != nil {
		return nil, err
	}
	return c.layers[i], nil
}

// Layers returns the layers in display order. The slice is a copy; the
// layers are shared.
func (c *Collection) Layers() []*Layer {
	return append([]*Layer(nil), c.layers...)
}

// Default returns the layer at index 0.
func (c *Collection) Default() *Layer { return c.layers[DefaultIndex] }

// ActiveIndex scans for the active layer and returns its row, or -1.
func (c *Collection) ActiveIndex() int {
	for i, l := range c.layers {
		if l.Active {
			return i
		}
	}
	return -1
}

// Active returns the active layer, or nil when none is active.
func (c *Collection) Active() *Layer {
	if i := c.ActiveIndex(); i >= 0 {
		return c.layers[i]
	}
	return nil
}

// HasActiveLayer reports whether any layer is active.
func (c *Collection) HasActiveLayer() bool { return c.ActiveIndex() >= 0 }

// IndexOfName returns the row of the first layer named name, or -1.
func (c *Collection) IndexOfName(name string) int {
	for i, l := range c.layers {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// FindByName returns the first layer named name, or nil.
func (c *Collection) FindByName(name string) *Layer {
	if i := c.IndexOfName(name); i >= 0 {
		return c.layers[i]
	}
	return nil
}

// Append adds l at the end. An active l takes over as the only active layer.
// The collection is left untouched when the result would break the
// invariants.
func (c *Collection) Append(l *Layer) error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("%w: nil layer", ErrInvariantViolation)
	}
	if l.Default {
		return fmt.Errorf("%w: default layer appended at row %d", ErrInvariantViolation, len(c.layers))
	}
	prev := c.ActiveIndex()
	c.layers = append(c.layers, l)
	idx := len(c.layers) - 1
	if l.Active && prev >= 0 {
		c.layers[prev].Active = false
	}
	if err := c.Validate(); err != nil {
		// roll back
		c.layers = c.layers[:idx]
		if l.Active && prev >= 0 {
			c.layers[prev].Active = true
		}
		return err
	}
	c.publish(Change{Kind: ChangeAppended, Indices: []int{idx}})
	return nil
}

// SetActive makes the layer at i the only active layer.
func (c *Collection) SetActive(i int) error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	if err := c.checkIndex(i); err != nil {
		return err
	}
	if c.layers[i].Active {
		return nil
	}
	for _, l := range c.layers {
		l.Active = false
	}
	c.layers[i].Active = true
	c.publish(Change{Kind: ChangeActive, Indices: []int{i}})
	return nil
}

// ResetDefaultActive makes the default layer the only active layer.
func (c *Collection) ResetDefaultActive() error {
	return c.SetActive(DefaultIndex)
}

// Remove deletes the layers at indices, never the default layer, and returns
// the rows actually removed in ascending order. Any out-of-range index fails
// the call before anything is removed.
//
// Removing the active layer leaves the collection with no active layer; the
// caller restores one with ResetDefaultActive.
func (c *Collection) Remove(indices []int) ([]int, error) {
	if err := c.checkMutable(); err != nil {
		return nil, err
	}
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if err := c.checkIndex(i); err != nil {
			return nil, err
		}
		if i != DefaultIndex {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return nil, nil
	}
	removed := make([]int, 0, len(drop))
	for i := range drop {
		removed = append(removed, i)
	}
	sort.Ints(removed)

	kept := make([]*Layer, 0, len(c.layers)-len(drop))
	for i, l := range c.layers {
		if !drop[i] {
			kept = append(kept, l)
		}
	}
	c.layers = kept
	c.publish(Change{Kind: ChangeRemoved, Indices: removed})
	return removed, nil
}

// Rename changes the name of the layer at i.
func (c *Collection) Rename(i int, name string) error {
	return c.edit(i, func(l *Layer) { l.Name = name })
}

// SetVisible shows or hides the layer at i.
func (c *Collection) SetVisible(i int, visible bool) error {
	return c.edit(i, func(l *Layer) { l.Visible = visible })
}

// SetLocked locks or unlocks the layer at i.
func (c *Collection) SetLocked(i int, locked bool) error {
	return c.edit(i, func(l *Layer) { l.Locked = locked })
}

// SetColor sets the display color of the layer at i.
func (c *Collection) SetColor(i int, color string) error {
	return c.edit(i, func(l *Layer) { l.Color = color })
}

func (c *Collection) edit(i int, fn func(*Layer)) error {
	if err := c.checkMutable(); err != nil {
		return err
	}
	if err := c.checkIndex(i); err != nil {
		return err
	}
	fn(c.layers[i])
	c.publish(Change{Kind: ChangeEdited, Indices: []int{i}})
	return nil
}

// Freeze makes every mutator fail with ErrFrozen until the returned thaw
// func runs. Freezes nest; calling thaw more than once has no further effect.
func (c *Collection) Freeze() (thaw func()) {
	c.frozen++
	done := false
	return func() {
		if !done {
			done = true
			c.frozen--
		}
	}
}

// Frozen reports whether mutators are currently refused.
func (c *Collection) Frozen() bool { return c.frozen > 0 }

func (c *Collection) checkMutable() error {
	if c.frozen > 0 {
		return ErrFrozen
	}
	return nil
}

func (c *Collection) checkIndex(i int) error {
	if i < 0 || i >= len(c.layers) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(c.layers))
	}
	return nil
}
