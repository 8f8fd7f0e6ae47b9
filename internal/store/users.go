package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/sinalizacao/internal/model"
)

const userColumns = `id, name, role, pass, is_admin,
	can_add_items, can_edit_items, can_delete_items, can_manage_users, reset_requested`

// PutUser inserts or replaces a user profile. New profiles list last.
func PutUser(ctx context.Context, db *sql.DB, u model.User) error {
	p := u.Permissions
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (seq, `+userColumns+`)
		 VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM users), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name,
		     role = excluded.role,
		     pass = excluded.pass,
		     is_admin = excluded.is_admin,
		     can_add_items = excluded.can_add_items,
		     can_edit_items = excluded.can_edit_items,
		     can_delete_items = excluded.can_delete_items,
		     can_manage_users = excluded.can_manage_users,
		     reset_requested = excluded.reset_requested`,
		u.ID, u.Name, u.Role, u.Pass, u.IsAdmin,
		p.CanAddItems, p.CanEditItems, p.CanDeleteItems, p.CanManageUsers, u.ResetRequested,
	)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser returns a user by ID, or nil if it does not exist.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// ListUsers returns every profile in creation order.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of profiles.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// DeleteUser removes a profile permanently.
func DeleteUser(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	return nil
}

func scanUser(s scanner) (model.User, error) {
	var u model.User
	p := &u.Permissions
	err := s.Scan(&u.ID, &u.Name, &u.Role, &u.Pass, &u.IsAdmin,
		&p.CanAddItems, &p.CanEditItems, &p.CanDeleteItems, &p.CanManageUsers, &u.ResetRequested)
	return u, err
}
