package testutil

import (
	"context"

	"github.com/uptrace/bun"
)

// CreateUser inserts a user with an unusable password hash and returns its id.
func CreateUser(ctx context.Context, db bun.IDB, username string, admin bool) (string, error) {
	var id string
	err := db.NewRaw(
		"INSERT INTO users (username, password_hash, is_admin) VALUES (?, '!', ?) RETURNING id",
		username, admin,
	).Scan(ctx, &id)
	return id, err
}

// CreateText inserts a public plain text and returns its id.
func CreateText(ctx context.Context, db bun.IDB, uri, title, addedBy string) (string, error) {
	var id string
	err := db.NewRaw(
		"INSERT INTO texts (uri, title, tokenized_content, added_by) VALUES (?, ?, '<word id=\"1\">x</word>', ?) RETURNING id",
		uri, title, addedBy,
	).Scan(ctx, &id)
	return id, err
}
