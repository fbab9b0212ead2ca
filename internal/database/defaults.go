package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/jask/layerdesk/internal/database/repository"
)

// StageID derives the stable row ID of a stage's preferences.
func StageID(stage string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("stage:"+stage)).String()
}

// SeedDefaults ensures each stage in defaults has a preferences row.
// Existing rows are left alone, so it is safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, defaults ...repository.StagePrefs) error {
	repo := repository.NewStagePrefsRepo(db)
	for _, p := range defaults {
		if p.ID == "" {
			p.ID = StageID(p.Stage)
		}
		if err := repo.InsertIfMissing(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
