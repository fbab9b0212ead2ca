package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/layerdesk/internal/layer"
	"github.com/jask/layerdesk/internal/selection"
)

var (
	ErrReentrant    = errors.New("layers: operation already in progress")
	ErrCapacity     = errors.New("layers: collection is full")
	ErrNoCollection = errors.New("layers: no collection bound")
	ErrEmptyName    = errors.New("layers: empty layer name")
)

// Table columns, in display order.
const (
	ColumnName = iota
	ColumnColor
	ColumnVisible
	ColumnLocked
	ColumnActive
)

const (
	DeleteTitle   = "Delete Layers"
	DeleteMessage = "Delete the selected layer(s)? Content on deleted layers moves to the default layer. This cannot be undone."
)

// Notifier is told once a controller operation has completed.
type Notifier interface {
	OnCollectionChanged()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

func (f NotifierFunc) OnCollectionChanged() { f() }

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(message, title string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(message, title string) bool

func (f ConfirmFunc) Confirm(message, title string) bool { return f(message, title) }

// Presenter receives row/column focus requests. It is never read back.
type Presenter interface {
	Focus(row, column int)
	SelectRow(row int)
}

// DeleteAction is the enablement target of the delete command.
type DeleteAction interface {
	SetDeleteEnabled(enabled bool)
}

// Settings is a snapshot of the contextual state derived from the bound
// collection and the selection.
type Settings struct {
	CanDelete   bool
	ActiveIndex int
	Size        int
	Selected    []int
}

// DeleteResult describes a completed (or declined) delete.
type DeleteResult struct {
	Removed     []int
	SelectedRow int // -1 when nothing was deleted
	ActiveReset bool
	Aborted     bool
}

// LayerController runs create/import/delete against one bound collection and
// its table selection. Operations are synchronous and non-reentrant: a call
// made while another is in progress (e.g. from a Notifier callback) fails with
// ErrReentrant and changes nothing. While a collaborator is being called the
// bound collection is frozen, so direct mutations from a callback fail with
// layer.ErrFrozen.
//
// Collaborators may be nil. A nil Confirmer declines every delete. The zero
// value is an unbound controller ready for use.
type LayerController struct {
	Notifier  Notifier
	Confirmer Confirmer
	Presenter Presenter
	Delete    DeleteAction
	Log       *zap.Logger
	MaxLayers int // 0 means unbounded

	coll *layer.Collection
	sel  selection.State
	sub  *layer.Subscription
	busy bool
}

// NewLayerController returns an unbound controller.
func NewLayerController() *LayerController {
	return &LayerController{}
}

// Collection returns the bound collection.
func (c *LayerController) Collection() *layer.Collection { return c.coll }

// Bind switches the controller to coll. The previous change subscription is
// released, the selection is cleared and contextual settings are refreshed.
// A collection that breaks the layer invariants is refused and the previous
// binding kept.
func (c *LayerController) Bind(coll *layer.Collection) error {
	if coll == nil {
		return ErrNoCollection
	}
	if err := c.begin("bind"); err != nil {
		return err
	}
	defer c.end()
	if err := coll.Validate(); err != nil {
		c.log().Error("refusing invalid layer collection", zap.Error(err))
		return fmt.Errorf("bind: %w", err)
	}

	c.sub.Close()
	c.coll = coll
	c.sel.Clear()
	c.sub = coll.Subscribe(c.onChange)
	c.log().Debug("bound layer collection", zap.Int("layers", coll.Len()))
	c.complete()
	return nil
}

// Unbind releases the collection and its subscription, clears the selection
// and notifies. The collection itself is left as it was.
func (c *LayerController) Unbind() error {
	if err := c.begin("unbind"); err != nil {
		return err
	}
	defer c.end()
	c.sub.Close()
	c.sub = nil
	c.coll = nil
	c.sel.Clear()
	c.complete()
	return nil
}

// CreateLayer appends a copy of the active layer (or the default layer when
// none is active) under a disambiguated name and makes it active. It returns
// the new row, or -1 when nothing was created.
func (c *LayerController) CreateLayer() (int, error) {
	if err := c.begin("create layer"); err != nil {
		return -1, err
	}
	defer c.end()
	if c.coll == nil {
		return -1, ErrNoCollection
	}
	if c.MaxLayers > 0 && c.coll.Len() >= c.MaxLayers {
		c.log().Info("layer capacity reached", zap.Int("max", c.MaxLayers))
		return -1, fmt.Errorf("create layer: %w", ErrCapacity)
	}

	ref := c.coll.Active()
	if ref == nil {
		ref = c.coll.Default()
	}
	l := ref.Clone(c.coll.DisambiguateName(ref.Name))
	l.Active = true
	if err := c.coll.Append(l); err != nil {
		c.log().Error("append new layer", zap.Error(err))
		return -1, fmt.Errorf("create layer: %w", err)
	}
	row := c.coll.Len() - 1

	c.sel.Select([]int{row})
	if c.Presenter != nil {
		c.callout(func() {
			c.Presenter.SelectRow(row)
			c.Presenter.Focus(row, ColumnName)
		})
	}
	c.log().Debug("created layer", zap.String("name", l.Name), zap.String("from", ref.Name), zap.Int("row", row))
	c.complete()
	return row, nil
}

// ImportLayer adds a layer discovered while loading a document. Names are
// not disambiguated: a candidate whose name already exists resolves to the
// existing layer, and a nil candidate resolves to the default layer.
// Contextual settings are refreshed on every successful path.
func (c *LayerController) ImportLayer(candidate *layer.Layer) (*layer.Layer, error) {
	if err := c.begin("import layer"); err != nil {
		return nil, err
	}
	defer c.end()
	if c.coll == nil {
		return nil, ErrNoCollection
	}

	if candidate == nil {
		c.complete()
		return c.coll.Default(), nil
	}
	if existing := c.coll.FindByName(candidate.Name); existing != nil {
		c.complete()
		return existing, nil
	}
	if near := c.nearDuplicate(candidate.Name); near != "" {
		c.log().Warn("imported layer name resembles an existing layer",
			zap.String("name", candidate.Name), zap.String("existing", near))
	}
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if err := c.coll.Append(candidate); err != nil {
		c.log().Error("append imported layer", zap.String("name", candidate.Name), zap.Error(err))
		return nil, fmt.Errorf("import layer %q: %w", candidate.Name, err)
	}
	c.log().Debug("imported layer", zap.String("name", candidate.Name))
	c.complete()
	return candidate, nil
}

// ImportLayers imports candidates in document order and returns the layer
// each one resolved to.
func (c *LayerController) ImportLayers(candidates []*layer.Layer) ([]*layer.Layer, error) {
	out := make([]*layer.Layer, 0, len(candidates))
	for _, cand := range candidates {
		l, err := c.ImportLayer(cand)
		if err != nil {
			return out, err
		}
		out = append(out, l)
	}
	return out, nil
}

// DeleteLayers removes the selected layers, or the last layer when nothing is
// selected, after the Confirmer agrees. The default layer is never removed.
// If the active layer goes, the default layer becomes active and its row is
// selected; otherwise the row where the delete happened is selected.
func (c *LayerController) DeleteLayers() (DeleteResult, error) {
	res := DeleteResult{SelectedRow: -1}
	if err := c.begin("delete layers"); err != nil {
		return res, err
	}
	defer c.end()
	if c.coll == nil {
		return res, ErrNoCollection
	}

	size := c.coll.Len()
	if !c.sel.CanDelete(size) {
		return res, nil
	}
	targets := c.sel.Targets(size)
	for _, row := range targets {
		if row < 0 || row >= size {
			return res, fmt.Errorf("delete layers: %w: row %d", layer.ErrIndexOutOfRange, row)
		}
	}
	if !c.confirm() {
		c.log().Info("delete declined", zap.Ints("rows", targets))
		res.Aborted = true
		return res, nil
	}

	removed, err := c.coll.Remove(targets)
	if err != nil {
		return res, fmt.Errorf("delete layers: %w", err)
	}
	res.Removed = removed

	if !c.coll.HasActiveLayer() {
		if err := c.coll.ResetDefaultActive(); err != nil {
			return res, fmt.Errorf("delete layers: %w", err)
		}
		res.ActiveReset = true
		res.SelectedRow = layer.DefaultIndex
	} else {
		res.SelectedRow = layer.DefaultIndex
		if len(removed) > 0 {
			res.SelectedRow = min(removed[0], c.coll.Len()-1)
		}
	}
	if err := c.coll.Validate(); err != nil {
		c.log().Error("collection invalid after delete", zap.Error(err))
		return res, err
	}

	c.sel.Select([]int{res.SelectedRow})
	if c.Presenter != nil {
		c.callout(func() { c.Presenter.SelectRow(res.SelectedRow) })
	}
	c.log().Debug("deleted layers", zap.Ints("rows", removed), zap.Bool("activeReset", res.ActiveReset))
	c.complete()
	return res, nil
}

// Select replaces the table selection.
func (c *LayerController) Select(rows []int) error {
	if err := c.begin("select"); err != nil {
		return err
	}
	defer c.end()
	if c.coll == nil {
		return ErrNoCollection
	}
	for _, r := range rows {
		if r < 0 || r >= c.coll.Len() {
			return fmt.Errorf("select: %w: row %d", layer.ErrIndexOutOfRange, r)
		}
	}
	c.sel.Select(rows)
	c.complete()
	return nil
}

// ToggleSelected adds or removes row from the selection.
func (c *LayerController) ToggleSelected(row int) error {
	if err := c.begin("toggle selection"); err != nil {
		return err
	}
	defer c.end()
	if c.coll == nil {
		return ErrNoCollection
	}
	if row < 0 || row >= c.coll.Len() {
		return fmt.Errorf("toggle selection: %w: row %d", layer.ErrIndexOutOfRange, row)
	}
	c.sel.Toggle(row)
	c.complete()
	return nil
}

// ClearSelection empties the selection.
func (c *LayerController) ClearSelection() error {
	if err := c.begin("clear selection"); err != nil {
		return err
	}
	defer c.end()
	c.sel.Clear()
	c.complete()
	return nil
}

// SetActive makes row the active layer.
func (c *LayerController) SetActive(row int) error {
	return c.mutate("set active", func(coll *layer.Collection) error {
		return coll.SetActive(row)
	})
}

// RenameLayer renames the layer at row. Names are trimmed and must not be
// empty; uniqueness is not enforced.
func (c *LayerController) RenameLayer(row int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return c.mutate("rename layer", func(coll *layer.Collection) error {
		return coll.Rename(row, name)
	})
}

// ToggleVisible flips the visibility of the layer at row.
func (c *LayerController) ToggleVisible(row int) error {
	return c.mutate("toggle visibility", func(coll *layer.Collection) error {
		l, err := coll.At(row)
		if err != nil {
			return err
		}
		return coll.SetVisible(row, !l.Visible)
	})
}

// ToggleLocked flips the lock of the layer at row.
func (c *LayerController) ToggleLocked(row int) error {
	return c.mutate("toggle lock", func(coll *layer.Collection) error {
		l, err := coll.At(row)
		if err != nil {
			return err
		}
		return coll.SetLocked(row, !l.Locked)
	})
}

// UpdateLayerCollection is called by the host after it changed the bound
// collection's contents wholesale.
func (c *LayerController) UpdateLayerCollection() error {
	return c.mutate("update collection", func(coll *layer.Collection) error {
		c.sel.Clamp(coll.Len())
		return nil
	})
}

// UpdateContextualSettings recomputes whether a delete is possible and pushes
// the result to the delete action. It changes nothing else.
func (c *LayerController) UpdateContextualSettings() bool {
	canDelete := c.coll != nil && c.sel.CanDelete(c.coll.Len())
	if c.Delete != nil {
		c.Delete.SetDeleteEnabled(canDelete)
	}
	return canDelete
}

// Settings returns the current contextual state.
func (c *LayerController) Settings() Settings {
	s := Settings{ActiveIndex: -1, Selected: c.sel.Rows()}
	if c.coll != nil {
		s.CanDelete = c.sel.CanDelete(c.coll.Len())
		s.ActiveIndex = c.coll.ActiveIndex()
		s.Size = c.coll.Len()
	}
	return s
}

// Selected returns the selected rows in ascending order.
func (c *LayerController) Selected() []int { return c.sel.Rows() }

func (c *LayerController) mutate(op string, fn func(*layer.Collection) error) error {
	if err := c.begin(op); err != nil {
		return err
	}
	defer c.end()
	if c.coll == nil {
		return ErrNoCollection
	}
	if err := fn(c.coll); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.complete()
	return nil
}

// onChange handles collection events raised outside a controller operation,
// such as host edits. Events raised by the controller's own mutations are
// covered by complete.
func (c *LayerController) onChange(ch layer.Change) {
	if c.busy {
		return
	}
	c.busy = true
	defer c.end()
	if c.sel.Clamp(c.coll.Len()) {
		c.log().Debug("selection clamped after external change", zap.String("kind", string(ch.Kind)))
	}
	c.complete()
}

func (c *LayerController) begin(op string) error {
	if c.busy {
		c.log().Warn("re-entrant layer operation rejected", zap.String("op", op))
		return fmt.Errorf("%s: %w", op, ErrReentrant)
	}
	c.busy = true
	return nil
}

func (c *LayerController) end() { c.busy = false }

// complete refreshes contextual settings and notifies. It runs while the
// guard is still held so that callbacks cannot re-enter.
func (c *LayerController) complete() {
	c.callout(func() {
		c.UpdateContextualSettings()
		if c.Notifier != nil {
			c.Notifier.OnCollectionChanged()
		}
	})
}

func (c *LayerController) confirm() bool {
	if c.Confirmer == nil {
		return false
	}
	var ok bool
	c.callout(func() { ok = c.Confirmer.Confirm(DeleteMessage, DeleteTitle) })
	return ok
}

// callout runs fn with the bound collection frozen.
func (c *LayerController) callout(fn func()) {
	if c.coll != nil {
		defer c.coll.Freeze()()
	}
	fn()
}

// nearDuplicate returns an existing layer name within one edit of name,
// ignoring case, or "".
func (c *LayerController) nearDuplicate(name string) string {
	upper := strings.ToUpper(name)
	for _, l := range c.coll.Layers() {
		if levenshtein.ComputeDistance(upper, strings.ToUpper(l.Name)) <= 1 {
			return l.Name
		}
	}
	return ""
}

func (c *LayerController) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
