package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/auth"
	"github.com/lalith-99/disputedesk/internal/errs"
	"github.com/lalith-99/disputedesk/internal/models"
	"github.com/lalith-99/disputedesk/internal/repository/memory"
)

func TestResolve_KnownUser(t *testing.T) {
	users := memory.NewUserStore()
	created, err := users.Create(context.Background(), "casey@example.com", "Casey", "x", models.RoleClient)
	require.NoError(t, err)

	r := NewResolver(users, zap.NewNop())

	got, err := r.Resolve(context.Background(), &auth.Claims{UserID: created.ID, Email: created.Email})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.RoleClient, got.Role)
}

func TestResolve_NoSession(t *testing.T) {
	r := NewResolver(memory.NewUserStore(), zap.NewNop())

	_, err := r.Resolve(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnauthenticated))

	_, err = r.Resolve(context.Background(), &auth.Claims{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnauthenticated))
}

func TestResolve_UnknownUser(t *testing.T) {
	r := NewResolver(memory.NewUserStore(), zap.NewNop())

	_, err := r.Resolve(context.Background(), &auth.Claims{UserID: uuid.New(), Email: "ghost@example.com"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUnknownUser))
}

func TestResolve_StoredRoleWinsOverTokenRole(t *testing.T) {
	// The token's role claim is display-only; the stored row decides.
	users := memory.NewUserStore()
	created, err := users.Create(context.Background(), "casey@example.com", "Casey", "x", models.RoleClient)
	require.NoError(t, err)

	r := NewResolver(users, zap.NewNop())

	got, err := r.Resolve(context.Background(), &auth.Claims{
		UserID: created.ID,
		Email:  created.Email,
		Role:   models.RoleAdmin, // forged or stale
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, got.Role)
}
