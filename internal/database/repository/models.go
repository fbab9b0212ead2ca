package repository

import "time"

// StagePrefs represents a stage_prefs row: per-window presentation settings.
type StagePrefs struct {
	ID         string
	Stage      string
	Background string
	X          int
	Y          int
	Width      int
	Height     int
	UpdatedAt  time.Time
}
