package userdir_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/authkit/pkg/session"
	"github.com/salesdash/authkit/pkg/userdir"
)

type fakeRow struct {
	role string
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.role
	return nil
}

type fakeQuerier struct {
	roles map[uuid.UUID]string
	err   error
}

func (q fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if q.err != nil {
		return fakeRow{err: q.err}
	}
	role, ok := q.roles[args[0].(uuid.UUID)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{role: role}
}

func TestDirectory_Resolve(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	dir := userdir.New(fakeQuerier{roles: map[uuid.UUID]string{userID: "manager"}})

	role, err := dir.Resolve(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, session.RoleManager, role)
}

func TestDirectory_ResolveFailsClosed(t *testing.T) {
	t.Parallel()

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		dir := userdir.New(fakeQuerier{})
		role, err := dir.Resolve(context.Background(), uuid.New())
		assert.ErrorIs(t, err, userdir.ErrUnknownUser)
		assert.Equal(t, session.RoleUnknown, role)
	})

	t.Run("unrecognized role value", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		dir := userdir.New(fakeQuerier{roles: map[uuid.UUID]string{userID: "superuser"}})
		role, err := dir.Resolve(context.Background(), userID)
		assert.ErrorIs(t, err, userdir.ErrUnknownUser)
		assert.Equal(t, session.RoleUnknown, role)
	})

	t.Run("database down", func(t *testing.T) {
		t.Parallel()

		dir := userdir.New(fakeQuerier{err: errors.New("connection refused")})
		role, err := dir.Resolve(context.Background(), uuid.New())
		assert.ErrorIs(t, err, userdir.ErrDirectoryUnavailable)
		assert.Equal(t, session.RoleUnknown, role)
	})
}
