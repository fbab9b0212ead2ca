package repository

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StagePrefsRepo handles stage preferences.
type StagePrefsRepo struct {
	db DBTX
}

func NewStagePrefsRepo(db DBTX) *StagePrefsRepo { return &StagePrefsRepo{db: db} }

func (r *StagePrefsRepo) Upsert(ctx context.Context, p StagePrefs) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO stage_prefs(id, stage, background, x, y, width, height, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(stage) DO UPDATE SET
	 background=excluded.background,
	 x=excluded.x,
	 y=excluded.y,
	 width=excluded.width,
	 height=excluded.height,
	 updated_at=CURRENT_TIMESTAMP;
	`, p.ID, p.Stage, p.Background, p.X, p.Y, p.Width, p.Height)
	return err
}

// InsertIfMissing stores p only when no row exists for its stage.
func (r *StagePrefsRepo) InsertIfMissing(ctx context.Context, p StagePrefs) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO stage_prefs(id, stage, background, x, y, width, height)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(stage) DO NOTHING;
	`, p.ID, p.Stage, p.Background, p.X, p.Y, p.Width, p.Height)
	return err
}

func (r *StagePrefsRepo) ByStage(ctx context.Context, stage string) (*StagePrefs, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, stage, background, x, y, width, height, updated_at
	FROM stage_prefs WHERE stage = ?`, stage)
	var p StagePrefs
	if err := row.Scan(&p.ID, &p.Stage, &p.Background, &p.X, &p.Y, &p.Width, &p.Height, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *StagePrefsRepo) List(ctx context.Context) ([]StagePrefs, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, stage, background, x, y, width, height, updated_at
	FROM stage_prefs ORDER BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StagePrefs
	for rows.Next() {
		var p StagePrefs
		if err := rows.Scan(&p.ID, &p.Stage, &p.Background, &p.X, &p.Y, &p.Width, &p.Height, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StagePrefsRepo) Delete(ctx context.Context, stage string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stage_prefs WHERE stage = ?`, stage)
	return err
}
