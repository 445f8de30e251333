// Package identity maps an authenticated principal (verified token claims)
// to the internal user record. The resolver runs on every request; roles
// are never cached across requests, so a role change takes effect on the
// next call, not the next login.
package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/auth"
	"github.com/lalith-99/disputedesk/internal/errs"
	"github.com/lalith-99/disputedesk/internal/models"
	"github.com/lalith-99/disputedesk/internal/repository"
)

type Resolver struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewResolver(users repository.UserRepository, logger *zap.Logger) *Resolver {
	return &Resolver{users: users, logger: logger}
}

// Resolve returns the user record for the verified claims. The token's
// email is the ground truth subject from the identity collaborator; the
// role in the claims is ignored in favor of the stored row.
//
// Fails with Unauthenticated when claims are absent, UnknownUser when the
// session is valid but no user row exists yet.
func (r *Resolver) Resolve(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	if claims == nil || claims.Email == "" {
		return nil, errs.Unauthenticated("no session")
	}

	user, err := r.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		return nil, errs.FromCollaborator("resolve user", err)
	}
	if user == nil {
		r.logger.Warn("authenticated principal has no user record",
			zap.String("email", claims.Email),
		)
		return nil, errs.UnknownUser(claims.Email)
	}

	return user, nil
}
