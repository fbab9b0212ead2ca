package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jask/layerdesk/internal/config"
	"github.com/jask/layerdesk/internal/layer"
	"github.com/jask/layerdesk/internal/logger"
	"github.com/jask/layerdesk/internal/service"
)

// App is the layer management window. It is the controller's presenter,
// delete action, confirmer and notifier.
type App struct {
	ctx        context.Context
	cfg        config.Config
	ctrl       *service.LayerController
	stage      *service.StageService
	cursor     int
	modal      modalState
	input      string
	renameRow  int
	confirmed  bool
	canDelete  bool
	status     string
	background service.BackgroundColor
	width      int
	height     int
}

type modalState string

const (
	modalNone          modalState = ""
	modalConfirmDelete modalState = "confirmDelete"
	modalRename        modalState = "rename"
)

type backgroundMsg service.BackgroundColor

type boundsSavedMsg struct{}

type errMsg struct{ err error }

// New builds the window around ctrl and performs the initial stage setup:
// the selection is cleared and contextual settings refreshed. stage may be
// nil, in which case background changes are not persisted.
func New(ctx context.Context, cfg config.Config, ctrl *service.LayerController, stage *service.StageService) *App {
	a := &App{
		ctx:   ctx,
		cfg:   cfg,
		ctrl:  ctrl,
		stage: stage,
	}
	if bg, ok := service.LookupBackground(cfg.UI.Background); ok {
		a.background = bg
	} else {
		a.background = service.BackgroundColors[0]
	}
	ctrl.Notifier = a
	ctrl.Confirmer = a
	ctrl.Presenter = a
	ctrl.Delete = a
	if err := ctrl.ClearSelection(); err != nil {
		a.status = err.Error()
	}
	return a
}

func (a *App) Init() tea.Cmd {
	return a.loadBackground()
}

// OnCollectionChanged keeps the cursor on a live row.
func (a *App) OnCollectionChanged() {
	if coll := a.ctrl.Collection(); coll != nil && a.cursor >= coll.Len() {
		a.cursor = coll.Len() - 1
	}
}

// SetDeleteEnabled records whether the delete key does anything.
func (a *App) SetDeleteEnabled(enabled bool) { a.canDelete = enabled }

// SelectRow moves the cursor to row.
func (a *App) SelectRow(row int) { a.cursor = row }

// Focus moves the cursor to row and starts editing the name cell when the
// name column is focused.
func (a *App) Focus(row, column int) {
	a.cursor = row
	if column != service.ColumnName {
		return
	}
	if l, err := a.ctrl.Collection().At(row); err == nil {
		a.openRename(row, l.Name)
	}
}

// Confirm answers with the user's choice from the delete modal. The answer is
// consumed by the call.
func (a *App) Confirm(message, title string) bool {
	ok := a.confirmed
	a.confirmed = false
	return ok
}

func (a *App) loadBackground() tea.Cmd {
	if a.stage == nil {
		return nil
	}
	return func() tea.Msg {
		name, err := a.stage.BackgroundColor(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		bg, ok := service.LookupBackground(name)
		if !ok {
			return errMsg{fmt.Errorf("%w: %q", service.ErrUnknownBackground, name)}
		}
		return backgroundMsg(bg)
	}
}

func (a *App) cycleBackgroundCmd() tea.Cmd {
	next := service.NextBackground(a.background.Name)
	if a.stage == nil {
		return func() tea.Msg { return backgroundMsg(next) }
	}
	return func() tea.Msg {
		bg, err := a.stage.SelectBackgroundColor(a.ctx, next.Name)
		if err != nil {
			return errMsg{err}
		}
		return backgroundMsg(bg)
	}
}

// resetStageCmd restores the stored window bounds and background to their
// defaults.
func (a *App) resetStageCmd() tea.Cmd {
	if a.stage == nil {
		bg, ok := service.LookupBackground(a.cfg.UI.Background)
		if !ok {
			bg = service.BackgroundColors[0]
		}
		return func() tea.Msg { return backgroundMsg(bg) }
	}
	load := a.loadBackground()
	return func() tea.Msg {
		if err := a.stage.Reset(a.ctx); err != nil {
			return errMsg{err}
		}
		return load()
	}
}

func (a *App) saveBoundsCmd(width, height int) tea.Cmd {
	if a.stage == nil {
		return nil
	}
	return func() tea.Msg {
		b, err := a.stage.WindowBounds(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		b.Width, b.Height = width, height
		if err := a.stage.SetWindowBounds(a.ctx, b); err != nil {
			return errMsg{err}
		}
		return boundsSavedMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		return a.handleKey(m)
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		if m.Width > 0 && m.Height > 0 {
			return a, a.saveBoundsCmd(m.Width, m.Height)
		}
	case backgroundMsg:
		a.background = service.BackgroundColor(m)
	case boundsSavedMsg:
	case errMsg:
		logger.L(a.ctx).Error("stage preferences", zap.Error(m.err))
		a.status = m.err.Error()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	coll := a.ctrl.Collection()
	if coll == nil {
		if key.Matches(m, Keys.Quit) {
			return a, tea.Quit
		}
		return a, nil
	}
	size := coll.Len()
	switch {
	case key.Matches(m, Keys.Quit):
		return a, tea.Quit
	case key.Matches(m, Keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, Keys.Down):
		if a.cursor < size-1 {
			a.cursor++
		}
	case key.Matches(m, Keys.Toggle):
		a.report(a.ctrl.ToggleSelected(a.cursor))
	case key.Matches(m, Keys.Clear):
		a.report(a.ctrl.ClearSelection())
	case key.Matches(m, Keys.Create):
		if _, err := a.ctrl.CreateLayer(); err != nil {
			a.report(err)
		}
	case key.Matches(m, Keys.Delete):
		if !a.canDelete {
			a.status = "nothing to delete"
			return a, nil
		}
		a.modal = modalConfirmDelete
	case key.Matches(m, Keys.Activate):
		a.report(a.ctrl.SetActive(a.cursor))
	case key.Matches(m, Keys.Rename):
		if l, err := coll.At(a.cursor); err == nil {
			a.openRename(a.cursor, l.Name)
		}
	case key.Matches(m, Keys.Visible):
		a.report(a.ctrl.ToggleVisible(a.cursor))
	case key.Matches(m, Keys.Lock):
		a.report(a.ctrl.ToggleLocked(a.cursor))
	case key.Matches(m, Keys.Background):
		return a, a.cycleBackgroundCmd()
	case key.Matches(m, Keys.Reset):
		return a, a.resetStageCmd()
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalConfirmDelete:
		switch {
		case key.Matches(m, Keys.Confirm):
			a.modal = modalNone
			a.confirmed = true
			a.deleteLayers()
		case key.Matches(m, Keys.Cancel):
			a.modal = modalNone
			a.confirmed = false
			a.deleteLayers()
		}
	case modalRename:
		switch m.Type {
		case tea.KeyEsc:
			a.modal = modalNone
			a.input = ""
		case tea.KeyEnter:
			text := strings.TrimSpace(a.input)
			if text == "" {
				a.status = "enter a name"
				return a, nil
			}
			a.modal = modalNone
			a.input = ""
			a.report(a.ctrl.RenameLayer(a.renameRow, text))
		case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
			if r := []rune(a.input); len(r) > 0 {
				a.input = string(r[:len(r)-1])
			}
		case tea.KeySpace:
			a.input += " "
		case tea.KeyRunes:
			a.input += string(m.Runes)
		}
	}
	return a, nil
}

func (a *App) deleteLayers() {
	res, err := a.ctrl.DeleteLayers()
	switch {
	case err != nil:
		a.report(err)
	case res.Aborted:
		a.status = "delete cancelled"
	case len(res.Removed) > 0:
		a.status = fmt.Sprintf("deleted %d layer(s)", len(res.Removed))
		if res.ActiveReset {
			a.status += "; default layer is now active"
		}
	}
}

func (a *App) openRename(row int, name string) {
	a.modal = modalRename
	a.renameRow = row
	a.input = name
}

func (a *App) report(err error) {
	if err == nil {
		a.status = ""
		return
	}
	logger.L(a.ctx).Info("layer operation failed", zap.Error(err))
	a.status = err.Error()
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func (a *App) View() string {
	fg := lipgloss.Color(service.ForegroundFor(a.background.Hex))
	bg := lipgloss.Color(a.background.Hex)
	body := titleStyle.Foreground(fg).Background(bg).Render(a.cfg.UI.Title) + "\n\n"
	body += a.renderTable()
	if a.status != "" {
		body += "\n" + a.status
	}
	body += "\n\n" + a.renderHelp()
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	return body
}

func (a *App) renderTable() string {
	coll := a.ctrl.Collection()
	if coll == nil {
		return "no layers"
	}
	selected := map[int]bool{}
	for _, r := range a.ctrl.Selected() {
		selected[r] = true
	}
	out := dimStyle.Render(fmt.Sprintf("    %-3s %-24s %-8s %-7s %-6s %s", "", "Name", "Color", "Visible", "Locked", "Active")) + "\n"
	for i, l := range coll.Layers() {
		marker := " "
		if i == a.cursor {
			marker = "▶"
		}
		box := "[ ]"
		if selected[i] {
			box = "[x]"
		}
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color)).Render("■")
		out += fmt.Sprintf("%s   %s %-24s %s %-6s %-7s %-6s %s\n",
			marker, box, layerLabel(l), swatch, l.Color, onOff(l.Visible), onOff(l.Locked), activeMark(l.Active))
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderHelp() string {
	deleteHelp := Keys.Delete.Help()
	parts := make([]string, 0, len(Keys.ShortHelp()))
	for _, b := range Keys.ShortHelp() {
		h := b.Help()
		if h == deleteHelp && !a.canDelete {
			continue
		}
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return dimStyle.Render(strings.Join(parts, "  "))
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalConfirmDelete:
		return titleStyle.Render(service.DeleteTitle) + "\n" + service.DeleteMessage + "\n[y] Yes  [n] No"
	case modalRename:
		return titleStyle.Render("Layer name") + fmt.Sprintf("\n%s\n[enter] Save  [esc] Cancel", a.input)
	default:
		return ""
	}
}

func layerLabel(l *layer.Layer) string {
	if l.Default {
		return l.Name + " (default)"
	}
	return l.Name
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func activeMark(b bool) string {
	if b {
		return "*"
	}
	return ""
}
