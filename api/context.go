package api

import (
	"context"

	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
)

type keyType string

const (
	userKey   keyType = "user"
	claimsKey keyType = "claims"
)

func ctxWithUser(ctx context.Context, user *models.User, claims *services.Claims) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, claimsKey, claims)
}

// ctxGetUser returns the authenticated user, or nil for an anonymous request.
func ctxGetUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

func ctxGetClaims(ctx context.Context) *services.Claims {
	claims, _ := ctx.Value(claimsKey).(*services.Claims)
	return claims
}

// viewerID is 0 for anonymous requests.
func viewerID(ctx context.Context) uint {
	if user := ctxGetUser(ctx); user != nil {
		return user.ID
	}
	return 0
}
