package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/layerdesk/internal/config"
	"github.com/jask/layerdesk/internal/database"
	"github.com/jask/layerdesk/internal/database/repository"
	"github.com/jask/layerdesk/internal/layer"
	"github.com/jask/layerdesk/internal/logger"
	"github.com/jask/layerdesk/internal/prefs"
	"github.com/jask/layerdesk/internal/service"
	"github.com/jask/layerdesk/internal/tui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("layerdesk: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var outputs []string
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return fmt.Errorf("mkdir log dir: %w", err)
		}
		outputs = append(outputs, cfg.Log.File)
	}
	lg, err := logger.New(cfg.Log.Level, cfg.Log.Development, outputs...)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	ctx := logger.NewContext(context.Background(), lg)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}

	if err := database.RunMigrations(cfg.Database.Path, "internal/database/migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	defaults := repository.StagePrefs{
		Stage:      service.StageName,
		Background: cfg.UI.Background,
		X:          cfg.UI.X,
		Y:          cfg.UI.Y,
		Width:      cfg.UI.Width,
		Height:     cfg.UI.Height,
	}
	if err := database.SeedDefaults(ctx, db, defaults); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	stage := &service.StageService{DB: db, Prefs: repository.NewStagePrefsRepo(db), Defaults: defaults}

	coll := layer.NewCollection(cfg.Layers.DefaultName, cfg.Layers.DefaultColor)
	ctrl := service.NewLayerController()
	ctrl.Log = lg.Named("layers")
	ctrl.MaxLayers = cfg.Layers.MaxLayers
	if err := ctrl.Bind(coll); err != nil {
		return fmt.Errorf("bind layers: %w", err)
	}

	seed := make([]*layer.Layer, 0, len(cfg.Layers.Seed))
	for _, name := range cfg.Layers.Seed {
		seed = append(seed, layer.New(name, cfg.Layers.DefaultColor))
	}
	if _, err := ctrl.ImportLayers(seed); err != nil {
		return fmt.Errorf("import seed layers: %w", err)
	}
	if cfg.Layers.File != "" {
		doc, err := prefs.LoadLayers(cfg.Layers.File)
		if err != nil {
			return fmt.Errorf("load layer file %s: %w", cfg.Layers.File, err)
		}
		if _, err := ctrl.ImportLayers(doc); err != nil {
			return fmt.Errorf("import layer file: %w", err)
		}
	}
	lg.Info("layer collection ready", zap.Int("layers", coll.Len()))

	p := tea.NewProgram(tui.New(ctx, cfg, ctrl, stage), tea.WithAltScreen())
	_, runErr := p.Run()

	if err := ctrl.Unbind(); err != nil {
		lg.Error("unbind layers", zap.Error(err))
	}
	if cfg.Layers.File != "" {
		if err := prefs.SaveLayers(cfg.Layers.File, coll.Layers()); err != nil {
			lg.Error("save layer file", zap.String("path", cfg.Layers.File), zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	return nil
}
