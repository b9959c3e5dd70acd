package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/models"
)

func TestAccountUpsert(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.store)
	ctx := context.Background()

	newcomer := models.Actor{ID: "google-42", Role: models.RoleVolunteer}
	_, err := accounts.Me(ctx, newcomer)
	assert.ErrorIs(t, err, ErrNotFound)

	account, err := accounts.Upsert(ctx, newcomer, models.UpsertAccountRequest{Name: "Bea", Email: "bea@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleVolunteer, account.Role)

	account, err = accounts.Upsert(ctx, newcomer, models.UpsertAccountRequest{Name: "Beatriz", Email: "bea@example.com"})
	require.NoError(t, err)

	me, err := accounts.Me(ctx, newcomer)
	require.NoError(t, err)
	assert.Equal(t, "Beatriz", me.Name)
	assert.Equal(t, account.ID, me.ID)
}

func TestAccountUpsertErrors(t *testing.T) {
	env := newTestEnv(t)
	accounts := NewAccountService(env.store)
	ctx := context.Background()

	_, err := accounts.Upsert(ctx, anonymous, models.UpsertAccountRequest{Name: "X", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = accounts.Upsert(ctx, volunteer, models.UpsertAccountRequest{Name: "Ana", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)

	// ngo@example.com belongs to ngo-1
	_, err = accounts.Upsert(ctx, volunteer, models.UpsertAccountRequest{Name: "Ana", Email: "ngo@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}
