package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotRepository persists the value-node literals of an entity's stat tree.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the stored values of entityID for tree.
func (r *SnapshotRepository) Save(ctx context.Context, entityID uuid.UUID, tree string, values map[string]float64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if _, err := tx.Exec(ctx,
		`DELETE FROM entity_stat_values WHERE entity_id = $1 AND tree_name = $2`,
		entityID, tree,
	); err != nil {
		return fmt.Errorf("deleting stat values of %s: %w", entityID, err)
	}

	for key, v := range values {
		if _, err := tx.Exec(ctx,
			`INSERT INTO entity_stat_values (entity_id, tree_name, key, value) VALUES ($1, $2, $3, $4)`,
			entityID, tree, key, v,
		); err != nil {
			return fmt.Errorf("inserting stat value %q of %s: %w", key, entityID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing stat values of %s: %w", entityID, err)
	}
	return nil
}

// Load returns the stored values of entityID for tree. An entity without a
// snapshot yields an empty map.
func (r *SnapshotRepository) Load(ctx context.Context, entityID uuid.UUID, tree string) (map[string]float64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key, value FROM entity_stat_values WHERE entity_id = $1 AND tree_name = $2`,
		entityID, tree,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stat values of %s: %w", entityID, err)
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var (
			key string
			v   float64
		)
		if err := rows.Scan(&key, &v); err != nil {
			return nil, fmt.Errorf("scanning stat value row: %w", err)
		}
		values[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stat value rows: %w", err)
	}
	return values, nil
}

// DeleteEntity removes every snapshot of entityID.
func (r *SnapshotRepository) DeleteEntity(ctx context.Context, entityID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM entity_stat_values WHERE entity_id = $1`, entityID); err != nil {
		return fmt.Errorf("deleting stat values of %s: %w", entityID, err)
	}
	return nil
}
