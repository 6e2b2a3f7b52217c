package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/statustree/internal/stat"
	"github.com/udisondev/statustree/internal/statdef"
)

// DefinitionRepository stores stat tree definitions.
// A definition is identified by its name; saving replaces all of its records.
type DefinitionRepository struct {
	db *pgxpool.Pool
}

// NewDefinitionRepository creates a new DefinitionRepository.
func NewDefinitionRepository(db *pgxpool.Pool) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

// Save inserts or replaces def and returns the tree ID.
func (r *DefinitionRepository) Save(ctx context.Context, def *statdef.Definition) (uuid.UUID, error) {
	if def.Name == "" {
		return uuid.Nil, fmt.Errorf("saving definition: empty name")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO stat_trees (id, name, root_index)
		VALUES ($1, $2, $3)
		ON CONFLICT (name)
		DO UPDATE SET root_index = EXCLUDED.root_index, updated_at = now()
		RETURNING id`,
		uuid.New(), def.Name, def.RootIndex,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting tree %q: %w", def.Name, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM stat_tree_nodes WHERE tree_id = $1`, id); err != nil {
		return uuid.Nil, fmt.Errorf("deleting nodes of tree %q: %w", def.Name, err)
	}

	for i, n := range def.Nodes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stat_tree_nodes
				(tree_id, idx, key, node_type, value, operator_type,
				 min_value, max_value, pos_x, pos_y, child_indices, parent_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			id, i, n.Key, int16(n.NodeType), n.Value, int16(n.OperatorType),
			n.MinValue, n.MaxValue, n.Position[0], n.Position[1],
			toInt32s(n.ChildIndices), n.ParentIndex,
		); err != nil {
			return uuid.Nil, fmt.Errorf("inserting node %d of tree %q: %w", i, def.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing tree %q: %w", def.Name, err)
	}
	return id, nil
}

// Load returns the definition with the given name.
// Returns nil, nil if it does not exist.
func (r *DefinitionRepository) Load(ctx context.Context, name string) (*statdef.Definition, error) {
	var (
		id        uuid.UUID
		rootIndex int32
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, root_index FROM stat_trees WHERE name = $1`, name,
	).Scan(&id, &rootIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying tree %q: %w", name, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT key, node_type, value, operator_type, min_value, max_value,
		       pos_x, pos_y, child_indices, parent_index
		FROM stat_tree_nodes
		WHERE tree_id = $1
		ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("querying nodes of tree %q: %w", name, err)
	}
	defer rows.Close()

	def := statdef.New(name)
	def.RootIndex = int(rootIndex)
	for rows.Next() {
		var (
			rec          statdef.Record
			nodeType     int16
			operatorType int16
			children     []int32
			parent       int32
		)
		if err := rows.Scan(
			&rec.Key, &nodeType, &rec.Value, &operatorType, &rec.MinValue, &rec.MaxValue,
			&rec.Position[0], &rec.Position[1], &children, &parent,
		); err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		rec.NodeType = statdef.NodeType(nodeType)
		rec.OperatorType = stat.OperatorType(operatorType)
		rec.ChildIndices = fromInt32s(children)
		rec.ParentIndex = int(parent)
		def.Nodes = append(def.Nodes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node rows: %w", err)
	}

	return def, nil
}

// List returns the names of all stored definitions, sorted.
func (r *DefinitionRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM stat_trees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying tree names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting tree names: %w", err)
	}
	return names, nil
}

// Delete removes a definition and its records. Deleting an absent name is not an error.
func (r *DefinitionRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM stat_trees WHERE name = $1`, name); err != nil {
		return fmt.Errorf("deleting tree %q: %w", name, err)
	}
	return nil
}

func toInt32s(s []int) []int32 {
	out := make([]int32, len(s))
	for i, v := range s {
		out[i] = int32(v)
	}
	return out
}

func fromInt32s(s []int32) []int {
	if len(s) == 0 {
		return nil
	}
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}
