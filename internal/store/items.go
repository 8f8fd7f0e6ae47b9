package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/sinalizacao/internal/model"
)

const itemColumns = `id, code, description, classification, function, color, shape, size, extras,
	entry, exit, min_stock, max_stock, observations, created_by, updated_by, updated_at`

// PutItem inserts or replaces an item. A new item is placed after every
// existing one in insertion order, so it lists first; a replaced item keeps
// its position.
func PutItem(ctx context.Context, db *sql.DB, it model.Item) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (seq, `+itemColumns+`)
		 VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM items), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     code = excluded.code,
		     description = excluded.description,
		     classification = excluded.classification,
		     function = excluded.function,
		     color = excluded.color,
		     shape = excluded.shape,
		     size = excluded.size,
		     extras = excluded.extras,
		     entry = excluded.entry,
		     exit = excluded.exit,
		     min_stock = excluded.min_stock,
		     max_stock = excluded.max_stock,
		     observations = excluded.observations,
		     created_by = excluded.created_by,
		     updated_by = excluded.updated_by,
		     updated_at = excluded.updated_at`,
		it.ID, it.Code, it.Description, it.Classification, it.Function, it.Color, it.Shape, it.Size, it.Extras,
		it.Entry, it.Exit, it.MinStock, it.MaxStock, it.Observations, it.CreatedBy, it.UpdatedBy, it.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving item %s: %w", it.ID, err)
	}
	return nil
}

// ListItems returns every item, newest first.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteItem removes an item permanently.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (model.Item, error) {
	var it model.Item
	err := s.Scan(&it.ID, &it.Code, &it.Description, &it.Classification, &it.Function, &it.Color,
		&it.Shape, &it.Size, &it.Extras, &it.Entry, &it.Exit, &it.MinStock, &it.MaxStock,
		&it.Observations, &it.CreatedBy, &it.UpdatedBy, &it.UpdatedAt)
	return it, err
}
