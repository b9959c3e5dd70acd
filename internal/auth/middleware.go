package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/log"
	"volunteerhub/internal/models"
)

const actorKey = "actor"

// Verifier resolves a bearer token to the calling actor
type Verifier interface {
	Verify(ctx context.Context, raw string) (models.Actor, error)
}

// Chain tries each verifier in order and returns the first actor resolved
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, raw string) (models.Actor, error) {
	err := ErrInvalidToken
	for _, v := range c {
		actor, verr := v.Verify(ctx, raw)
		if verr == nil {
			return actor, nil
		}
		// An expired first-party token is more useful to report than the
		// next verifier's rejection
		if errors.Is(verr, ErrExpiredToken) || err == ErrInvalidToken {
			err = verr
		}
	}
	return models.Actor{}, err
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		actor, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			logger := log.WithComponent("auth")
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected bearer token")
			msg := "Invalid token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRole only lets the given roles through. It must run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not allowed for this role"})
	}
}

// ActorFrom returns the actor set by RequireAuth
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
