package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/sinalizacao/internal/model"
)

// Journal writes engine changes through to the database.
type Journal struct {
	DB *sql.DB
}

func (j Journal) PutItem(ctx context.Context, it model.Item) error {
	return PutItem(ctx, j.DB, it)
}

func (j Journal) DeleteItem(ctx context.Context, id string) error {
	return DeleteItem(ctx, j.DB, id)
}

func (j Journal) PutUser(ctx context.Context, u model.User) error {
	return PutUser(ctx, j.DB, u)
}

func (j Journal) DeleteUser(ctx context.Context, id string) error {
	return DeleteUser(ctx, j.DB, id)
}

// Load reads every profile and item, items newest first.
func Load(ctx context.Context, db *sql.DB) ([]model.User, []model.Item, error) {
	users, err := ListUsers(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("loading users: %w", err)
	}
	items, err := ListItems(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("loading items: %w", err)
	}
	return users, items, nil
}
