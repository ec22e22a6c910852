package auth_test

import (
	"context"
	"testing"

	"membershipPortal/internal/auth"
	"membershipPortal/internal/testutil"
	"membershipPortal/models"
	"membershipPortal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMember(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "auth_bootstrap")
	repo := repository.NewAgentRepository(d)
	ctx := context.Background()

	created, err := auth.EnsureMember(ctx, repo, "admin", "s3cret!", "admin@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	m, err := repo.GetByUsername(ctx, "ADMIN")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.UserTypeMember, m.UserType)
	assert.NoError(t, auth.CheckPassword(m.PasswordHash, "s3cret!"))

	created, err = auth.EnsureMember(ctx, repo, "admin", "another-password", "")
	require.NoError(t, err)
	assert.False(t, created, "existing user is kept")
	again, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, m.PasswordHash, again.PasswordHash)
}

func TestEnsureMember_Disabled(t *testing.T) {
	created, err := auth.EnsureMember(context.Background(), nil, "", "", "")
	require.NoError(t, err)
	assert.False(t, created)
}
