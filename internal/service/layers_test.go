package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/layerdesk/internal/fixtures"
	"github.com/jask/layerdesk/internal/layer"
)

type recorder struct {
	notified      int
	deleteEnabled []bool
	focus         [][2]int
	selectedRows  []int
	confirm       bool
	prompts       int
	onNotify      func()
	onConfirm     func()
}

func (r *recorder) OnCollectionChanged() {
	r.notified++
	if r.onNotify != nil {
		r.onNotify()
	}
}
func (r *recorder) SetDeleteEnabled(enabled bool) { r.deleteEnabled = append(r.deleteEnabled, enabled) }
func (r *recorder) Focus(row, column int)         { r.focus = append(r.focus, [2]int{row, column}) }
func (r *recorder) SelectRow(row int)             { r.selectedRows = append(r.selectedRows, row) }
func (r *recorder) Confirm(message, title string) bool {
	r.prompts++
	if r.onConfirm != nil {
		r.onConfirm()
	}
	return r.confirm
}

func (r *recorder) lastEnabled() bool { return r.deleteEnabled[len(r.deleteEnabled)-1] }

func setupController(t *testing.T, names ...string) (*LayerController, *layer.Collection, *recorder) {
	t.Helper()
	coll := layer.NewCollection("Layer 0", "#000000")
	for _, n := range names {
		require.NoError(t, coll.Append(layer.New(n, "#ff0000")))
	}
	rec := &recorder{confirm: true}
	c := NewLayerController()
	c.Notifier = rec
	c.Confirmer = rec
	c.Presenter = rec
	c.Delete = rec
	require.NoError(t, c.Bind(coll))
	rec.notified = 0
	return c, coll, rec
}

func layerNames(c *layer.Collection) []string {
	var out []string
	for _, l := range c.Layers() {
		out = append(out, l.Name)
	}
	return out
}

func requireInvariants(t *testing.T, c *layer.Collection) {
	t.Helper()
	require.GreaterOrEqual(t, c.Len(), 1)
	require.True(t, c.Default().Default)
	require.NoError(t, c.Validate())
}

func TestCreateLayerFromActive(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	require.NoError(t, c.SetActive(1))
	rec.notified = 0

	row, err := c.CreateLayer()
	require.NoError(t, err)
	require.Equal(t, 2, row)
	require.Equal(t, []string{"Layer 0", "Wall", "Wall (1)"}, layerNames(coll))
	require.Equal(t, 2, coll.ActiveIndex())
	require.Equal(t, "#ff0000", coll.Active().Color)
	require.Equal(t, [2]int{2, ColumnName}, rec.focus[len(rec.focus)-1])
	require.Equal(t, []int{2}, c.Selected())
	require.Equal(t, 1, rec.notified)
	requireInvariants(t, coll)

	row, err = c.CreateLayer()
	require.NoError(t, err)
	require.Equal(t, 3, row)
	require.Equal(t, "Wall (2)", coll.Active().Name)
	require.Equal(t, 2, rec.notified)
	requireInvariants(t, coll)
}

func TestCreateLayerFromDefault(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t)
	row, err := c.CreateLayer()
	require.NoError(t, err)
	require.Equal(t, 1, row)
	require.Equal(t, "Layer 0 (1)", coll.Active().Name)
	require.False(t, coll.Active().Default)
}

func TestCreateLayerWithoutActiveUsesDefault(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall")
	coll.Default().Active = false // host left no active layer

	row, err := c.CreateLayer()
	require.NoError(t, err)
	require.Equal(t, "Layer 0 (1)", coll.Active().Name)
	require.Equal(t, row, coll.ActiveIndex())
	requireInvariants(t, coll)
}

func TestCreateLayerCapacity(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	c.MaxLayers = 2
	row, err := c.CreateLayer()
	require.ErrorIs(t, err, ErrCapacity)
	require.Equal(t, -1, row)
	require.Equal(t, 2, coll.Len())
	require.Zero(t, rec.notified)
}

func TestImportLayer(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")

	existing := coll.FindByName("Wall")
	got, err := c.ImportLayer(layer.New("Wall", "#00ff00"))
	require.NoError(t, err)
	require.Same(t, existing, got)
	require.Equal(t, 2, coll.Len())
	require.Equal(t, "#ff0000", got.Color)
	require.Equal(t, 1, rec.notified)

	cand := layer.New("Door", "#00ff00")
	got, err = c.ImportLayer(cand)
	require.NoError(t, err)
	require.Same(t, cand, got)
	require.Equal(t, 3, coll.Len())
	require.Equal(t, 2, rec.notified)

	got, err = c.ImportLayer(nil)
	require.NoError(t, err)
	require.Same(t, coll.Default(), got)
	require.Equal(t, 3, rec.notified)
	requireInvariants(t, coll)
}

func TestImportLayerKeepsNamesVerbatim(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall")
	cand := &layer.Layer{Name: "Wall (1)", Color: "#123456"}
	got, err := c.ImportLayer(cand)
	require.NoError(t, err)
	require.Equal(t, "Wall (1)", got.Name)
	require.NotEmpty(t, got.ID)
	require.Equal(t, 0, coll.ActiveIndex())
}

func TestImportActiveCandidateTakesOver(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t)
	cand := layer.New("Wall", "#000000")
	cand.Active = true
	_, err := c.ImportLayer(cand)
	require.NoError(t, err)
	require.Equal(t, 1, coll.ActiveIndex())
	requireInvariants(t, coll)
}

func TestImportDefaultCandidateRejected(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t)
	_, err := c.ImportLayer(layer.NewDefault("Other", "#000000"))
	require.ErrorIs(t, err, layer.ErrInvariantViolation)
	require.Equal(t, 1, coll.Len())
	require.Zero(t, rec.notified)
}

func TestImportLayersInOrder(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t)
	got, err := c.ImportLayers(fixtures.Candidates("Wall", "Door", "Wall"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Same(t, got[0], got[2])
	require.Equal(t, []string{"Layer 0", "Wall", "Door"}, layerNames(coll))
}

func TestDeleteDefaultOnlyRemovesNothing(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t)
	require.NoError(t, c.Select([]int{0}))
	require.False(t, rec.lastEnabled())

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.Empty(t, res.Removed)
	require.Equal(t, -1, res.SelectedRow)
	require.Zero(t, rec.prompts)
	require.Equal(t, 1, coll.Len())

	require.NoError(t, c.ClearSelection())
	require.False(t, rec.lastEnabled())
}

func TestDeleteActiveLayerResetsDefault(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall", "Door")
	require.NoError(t, c.SetActive(2))
	require.NoError(t, c.Select([]int{2}))
	rec.notified = 0

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.Equal(t, []int{2}, res.Removed)
	require.True(t, res.ActiveReset)
	require.Equal(t, 0, res.SelectedRow)
	require.Equal(t, 0, coll.ActiveIndex())
	require.Equal(t, []int{0}, c.Selected())
	require.Equal(t, 0, rec.selectedRows[len(rec.selectedRows)-1])
	require.Equal(t, 1, rec.notified)
	require.Equal(t, 1, rec.prompts)
	requireInvariants(t, coll)
}

func TestDeleteInactiveLayerSelectsWhereItWas(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall", "Door", "Window")
	require.NoError(t, c.SetActive(3))
	require.NoError(t, c.Select([]int{1}))

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.False(t, res.ActiveReset)
	require.Equal(t, 1, res.SelectedRow)
	require.Equal(t, []string{"Layer 0", "Door", "Window"}, layerNames(coll))
	require.Equal(t, "Window", coll.Active().Name)
}

func TestDeleteLastRowClampsSelection(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall", "Door")
	require.NoError(t, c.Select([]int{0, 2}))

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.Equal(t, []int{2}, res.Removed)
	require.Equal(t, 1, res.SelectedRow)
	require.Equal(t, 2, coll.Len())
}

func TestDeleteWithEmptySelectionTargetsLastRow(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall", "Door")
	require.True(t, rec.lastEnabled())

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.Equal(t, []int{2}, res.Removed)
	require.Equal(t, []string{"Layer 0", "Wall"}, layerNames(coll))
}

func TestDeleteDeclinedChangesNothing(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	rec.confirm = false
	require.NoError(t, c.Select([]int{1}))
	rec.notified = 0

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.True(t, res.Aborted)
	require.Equal(t, 2, coll.Len())
	require.Equal(t, []int{1}, c.Selected())
	require.Zero(t, rec.notified)
}

func TestDeleteWithoutConfirmerDeclines(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall")
	c.Confirmer = nil
	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.True(t, res.Aborted)
	require.Equal(t, 2, coll.Len())
}

func TestUpdateContextualSettingsIdempotent(t *testing.T) {
	t.Parallel()
	c, _, rec := setupController(t, "Wall")
	require.NoError(t, c.Select([]int{1}))
	n := len(rec.deleteEnabled)
	first := c.UpdateContextualSettings()
	second := c.UpdateContextualSettings()
	require.True(t, first)
	require.Equal(t, first, second)
	require.Equal(t, []bool{true, true}, rec.deleteEnabled[n:])
}

func TestNotifierReentryRejected(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t)
	var reentryErr error
	rec.onNotify = func() {
		_, reentryErr = c.CreateLayer()
	}
	_, err := c.CreateLayer()
	require.NoError(t, err)
	require.ErrorIs(t, reentryErr, ErrReentrant)
	require.Equal(t, 2, coll.Len())
	require.Equal(t, 1, rec.notified)

	// guard is released afterwards
	rec.onNotify = nil
	_, err = c.CreateLayer()
	require.NoError(t, err)
}

func TestBindReplacesSubscription(t *testing.T) {
	t.Parallel()
	c, first, rec := setupController(t, "Wall")
	require.NoError(t, c.Select([]int{1}))

	second := layer.NewCollection("Layer 0", "#000000")
	require.NoError(t, c.Bind(second))
	require.Same(t, second, c.Collection())
	require.Empty(t, c.Selected())
	require.False(t, rec.lastEnabled())

	// edits to the old collection no longer reach the controller
	rec.notified = 0
	require.NoError(t, first.Append(layer.New("Door", "#000000")))
	require.Zero(t, rec.notified)

	// edits to the new one do
	require.NoError(t, second.Append(layer.New("Door", "#000000")))
	require.Equal(t, 1, rec.notified)
	require.True(t, rec.lastEnabled())

	require.ErrorIs(t, c.Bind(nil), ErrNoCollection)
}

func TestExternalShrinkClampsSelection(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall", "Door")
	require.NoError(t, c.Select([]int{1, 2}))
	_, err := coll.Remove([]int{2})
	require.NoError(t, err)
	require.Equal(t, []int{1}, c.Selected())
}

func TestUnboundController(t *testing.T) {
	t.Parallel()
	c := NewLayerController()
	_, err := c.CreateLayer()
	require.ErrorIs(t, err, ErrNoCollection)
	_, err = c.ImportLayer(nil)
	require.ErrorIs(t, err, ErrNoCollection)
	_, err = c.DeleteLayers()
	require.ErrorIs(t, err, ErrNoCollection)
	require.False(t, c.UpdateContextualSettings())
	require.Equal(t, -1, c.Settings().ActiveIndex)
}

func TestRenameAndToggles(t *testing.T) {
	t.Parallel()
	c, coll, _ := setupController(t, "Wall")
	require.NoError(t, c.RenameLayer(1, "  Walls "))
	require.Equal(t, "Walls", coll.Layers()[1].Name)
	require.ErrorIs(t, c.RenameLayer(1, "   "), ErrEmptyName)
	require.ErrorIs(t, c.RenameLayer(7, "x"), layer.ErrIndexOutOfRange)

	require.NoError(t, c.ToggleVisible(1))
	require.False(t, coll.Layers()[1].Visible)
	require.NoError(t, c.ToggleLocked(1))
	require.True(t, coll.Layers()[1].Locked)

	require.ErrorIs(t, c.Select([]int{5}), layer.ErrIndexOutOfRange)
	require.NoError(t, c.ToggleSelected(1))
	require.NoError(t, c.ToggleSelected(0))
	require.Equal(t, []int{0, 1}, c.Selected())

	s := c.Settings()
	require.True(t, s.CanDelete)
	require.Equal(t, 2, s.Size)
	require.Equal(t, 0, s.ActiveIndex)
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	t.Parallel()
	for seed := int64(1); seed <= 20; seed++ {
		r := rand.New(rand.NewSource(seed))
		c, coll, rec := setupController(t)
		for _, op := range fixtures.Ops(r, 200) {
			rec.confirm = op.Confirm
			var err error
			switch op.Kind {
			case fixtures.OpCreate:
				_, err = c.CreateLayer()
			case fixtures.OpImport:
				_, err = c.ImportLayer(layer.New(op.Name, "#000000"))
			case fixtures.OpDelete:
				_, err = c.DeleteLayers()
			case fixtures.OpSelect:
				err = c.Select(fixtures.Rows(op.Rows, coll.Len()))
			case fixtures.OpClear:
				err = c.ClearSelection()
			case fixtures.OpSetActive:
				err = c.SetActive(fixtures.Rows(op.Rows, coll.Len())[0])
			case fixtures.OpToggleVisible:
				err = c.ToggleVisible(fixtures.Rows(op.Rows, coll.Len())[0])
			}
			require.NoError(t, err, "seed %d op %s", seed, op.Kind)
			requireInvariants(t, coll)
			for _, row := range c.Selected() {
				require.Less(t, row, coll.Len())
			}
			require.Equal(t, c.Settings().CanDelete, rec.lastEnabled())
		}
	}
}

func TestUpdateLayerCollectionClamps(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall", "Door")
	require.NoError(t, c.Select([]int{1, 2}))

	// simulate a host that rewrote the collection without events
	c.sub.Close()
	_, err := coll.Remove([]int{1, 2})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, c.Selected())

	rec.notified = 0
	require.NoError(t, c.UpdateLayerCollection())
	require.Empty(t, c.Selected())
	require.False(t, rec.lastEnabled())
	require.Equal(t, 1, rec.notified)
}

func TestNotifierCannotMutateCollection(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	var mutateErr error
	rec.onNotify = func() {
		_, mutateErr = coll.Remove([]int{2})
	}

	row, err := c.CreateLayer()
	require.NoError(t, err)
	require.Equal(t, 2, row)
	require.ErrorIs(t, mutateErr, layer.ErrFrozen)
	require.Equal(t, 3, coll.Len())
	require.Equal(t, 2, coll.ActiveIndex())
	require.Equal(t, []int{2}, c.Selected())
	requireInvariants(t, coll)

	// frozen only while the callback runs
	rec.onNotify = nil
	require.False(t, coll.Frozen())
	require.NoError(t, coll.Rename(1, "Walls"))
}

func TestConfirmerCannotMutateCollection(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall", "Door")
	require.NoError(t, c.Select([]int{1}))
	var mutateErr error
	rec.onConfirm = func() {
		mutateErr = coll.SetActive(2)
	}

	res, err := c.DeleteLayers()
	require.NoError(t, err)
	require.ErrorIs(t, mutateErr, layer.ErrFrozen)
	require.Equal(t, []int{1}, res.Removed)
	require.Equal(t, 0, coll.ActiveIndex())
	requireInvariants(t, coll)
}

func TestReentrantBindAndUnbindRejected(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	other := layer.NewCollection("Layer 0", "#000000")
	var bindErr, unbindErr error
	rec.onNotify = func() {
		bindErr = c.Bind(other)
		unbindErr = c.Unbind()
	}

	_, err := c.CreateLayer()
	require.NoError(t, err)
	require.ErrorIs(t, bindErr, ErrReentrant)
	require.ErrorIs(t, unbindErr, ErrReentrant)
	require.Same(t, coll, c.Collection())
	require.Equal(t, []int{2}, c.Selected())
}

func TestUnbindReleasesCollection(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	require.NoError(t, c.Select([]int{1}))
	rec.notified = 0

	require.NoError(t, c.Unbind())
	require.Nil(t, c.Collection())
	require.Empty(t, c.Selected())
	require.False(t, rec.lastEnabled())
	require.Equal(t, 1, rec.notified)

	require.NoError(t, coll.Append(layer.New("Door", "#000000")))
	require.Equal(t, 1, rec.notified)

	_, err := c.CreateLayer()
	require.ErrorIs(t, err, ErrNoCollection)
	require.NoError(t, c.Unbind())
}

func TestBindRejectsInvalidCollection(t *testing.T) {
	t.Parallel()
	c, coll, rec := setupController(t, "Wall")
	rec.notified = 0

	err := c.Bind(&layer.Collection{})
	require.ErrorIs(t, err, layer.ErrInvariantViolation)

	noActive := layer.NewCollection("Layer 0", "#000000")
	noActive.Default().Active = false
	err = c.Bind(noActive)
	require.ErrorIs(t, err, layer.ErrInvariantViolation)

	require.Same(t, coll, c.Collection())
	require.Zero(t, rec.notified)
	_, err = c.ImportLayer(nil)
	require.NoError(t, err)
}

func TestZeroValueControllerIsUsable(t *testing.T) {
	t.Parallel()
	var c LayerController
	coll := layer.NewCollection("Layer 0", "#000000")
	require.NoError(t, c.Bind(coll))
	row, err := c.CreateLayer()
	require.NoError(t, err)
	require.Equal(t, 1, row)
	require.Equal(t, []int{1}, c.Selected())
	require.True(t, c.Settings().CanDelete)
}
