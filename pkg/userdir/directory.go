// Package userdir resolves a user's current role from the business
// database, so privilege-sensitive routes see role changes made after the
// session was issued instead of trusting the session-cached copy.
package userdir

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salesdash/authkit/pkg/session"
)

// Querier is the minimal query surface the directory needs. Satisfied by
// *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const roleQuery = `SELECT role FROM users WHERE id = $1 AND deleted_at IS NULL`

// Directory resolves user roles against the users table.
type Directory struct {
	db Querier
}

// New creates a Directory over the given query surface.
func New(db Querier) *Directory {
	return &Directory{db: db}
}

// Resolve returns the user's current role. A user that is missing,
// deleted, or carries an unrecognized role resolves to an error, never to
// a usable role.
func (d *Directory) Resolve(ctx context.Context, userID uuid.UUID) (session.Role, error) {
	var raw string
	if err := d.db.QueryRow(ctx, roleQuery, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.RoleUnknown, ErrUnknownUser
		}
		return session.RoleUnknown, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	role, err := session.ParseRole(raw)
	if err != nil {
		return session.RoleUnknown, fmt.Errorf("%w: user %s has role %q", ErrUnknownUser, userID, raw)
	}
	return role, nil
}
