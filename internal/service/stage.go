package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jask/layerdesk/internal/database"
	"github.com/jask/layerdesk/internal/database/repository"
)

// StageName is the preference key of the layer management window.
const StageName = "layerManagement"

var (
	ErrUnknownBackground = errors.New("stage: unknown background color")
	ErrBadBounds         = errors.New("stage: window bounds must have positive size")
)

// BackgroundColor is one entry of the fixed background palette.
type BackgroundColor struct {
	Name string
	Hex  string
}

// BackgroundColors lists the selectable window backgrounds in menu order.
var BackgroundColors = []BackgroundColor{
	{Name: "White", Hex: "#ffffff"},
	{Name: "Light Gray", Hex: "#d3d3d3"},
	{Name: "Gray", Hex: "#808080"},
	{Name: "Dark Gray", Hex: "#404040"},
	{Name: "Black", Hex: "#000000"},
}

// LookupBackground finds a background by name, ignoring case.
func LookupBackground(name string) (BackgroundColor, bool) {
	for _, bg := range BackgroundColors {
		if strings.EqualFold(bg.Name, strings.TrimSpace(name)) {
			return bg, true
		}
	}
	return BackgroundColor{}, false
}

// NextBackground returns the palette entry after name, wrapping around.
// Unknown names start from the first entry.
func NextBackground(name string) BackgroundColor {
	for i, bg := range BackgroundColors {
		if strings.EqualFold(bg.Name, name) {
			return BackgroundColors[(i+1)%len(BackgroundColors)]
		}
	}
	return BackgroundColors[0]
}

// ForegroundFor picks black or white text for legibility on hex.
func ForegroundFor(hex string) string {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return "#000000"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return "#000000"
	}
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	if 0.299*r+0.587*g+0.114*b < 128 {
		return "#ffffff"
	}
	return "#000000"
}

// Bounds is a window position and size.
type Bounds struct {
	X, Y, Width, Height int
}

// StageService reads and writes the layer window's presentation
// preferences.
type StageService struct {
	DB       *sql.DB
	Prefs    *repository.StagePrefsRepo
	Defaults repository.StagePrefs
}

// Load returns the stored preferences, or the defaults when none are stored.
func (s *StageService) Load(ctx context.Context) (repository.StagePrefs, error) {
	p, err := s.Prefs.ByStage(ctx, s.stage())
	if err != nil {
		return repository.StagePrefs{}, fmt.Errorf("load stage prefs: %w", err)
	}
	if p == nil {
		d := s.Defaults
		d.Stage = s.stage()
		return d, nil
	}
	return *p, nil
}

// BackgroundColor returns the selected background name.
func (s *StageService) BackgroundColor(ctx context.Context) (string, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return p.Background, nil
}

// SelectBackgroundColor stores name as the background and returns its
// palette entry.
func (s *StageService) SelectBackgroundColor(ctx context.Context, name string) (BackgroundColor, error) {
	bg, ok := LookupBackground(name)
	if !ok {
		return BackgroundColor{}, fmt.Errorf("%w: %q", ErrUnknownBackground, name)
	}
	p, err := s.Load(ctx)
	if err != nil {
		return BackgroundColor{}, err
	}
	p.Background = bg.Name
	if err := s.save(ctx, p); err != nil {
		return BackgroundColor{}, err
	}
	return bg, nil
}

// WindowBounds returns the stored window position and size.
func (s *StageService) WindowBounds(ctx context.Context) (Bounds, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}, nil
}

// SetWindowBounds stores the window position and size.
func (s *StageService) SetWindowBounds(ctx context.Context, b Bounds) error {
	if b.Width <= 0 || b.Height <= 0 {
		return ErrBadBounds
	}
	p, err := s.Load(ctx)
	if err != nil {
		return err
	}
	p.X, p.Y, p.Width, p.Height = b.X, b.Y, b.Width, b.Height
	return s.save(ctx, p)
}

// Reset replaces the stored preferences with the defaults.
func (s *StageService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("stage: db not configured")
	}
	return database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		repo := repository.NewStagePrefsRepo(tx)
		if err := repo.Delete(ctx, s.stage()); err != nil {
			return fmt.Errorf("reset stage prefs: %w", err)
		}
		d := s.Defaults
		d.Stage = s.stage()
		d.ID = database.StageID(d.Stage)
		return repo.InsertIfMissing(ctx, d)
	})
}

func (s *StageService) save(ctx context.Context, p repository.StagePrefs) error {
	if p.ID == "" {
		p.ID = database.StageID(p.Stage)
	}
	if err := s.Prefs.Upsert(ctx, p); err != nil {
		return fmt.Errorf("save stage prefs: %w", err)
	}
	return nil
}

func (s *StageService) stage() string {
	if s.Defaults.Stage != "" {
		return s.Defaults.Stage
	}
	return StageName
}
