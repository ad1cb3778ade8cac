package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// PlayerRow is the persisted snapshot of a player's in-world state.
type PlayerRow struct {
	Name     string
	Health   int32
	Score    int32
	Deaths   int32
	LastSlot int
}

type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Load returns the player snapshot for name, or nil if none exists yet.
func (r *PlayerRepo) Load(ctx context.Context, name string) (*PlayerRow, error) {
	row := &PlayerRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, health, score, deaths, last_slot
		 FROM players WHERE name = $1`, name,
	).Scan(&row.Name, &row.Health, &row.Score, &row.Deaths, &row.LastSlot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Save upserts the player snapshot.
func (r *PlayerRepo) Save(ctx context.Context, row *PlayerRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO players (name, health, score, deaths, last_slot, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (name) DO UPDATE SET
		   health = EXCLUDED.health,
		   score = EXCLUDED.score,
		   deaths = EXCLUDED.deaths,
		   last_slot = EXCLUDED.last_slot,
		   updated_at = NOW()`,
		row.Name, row.Health, row.Score, row.Deaths, row.LastSlot,
	)
	return err
}
