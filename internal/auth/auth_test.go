package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"volunteerhub/internal/models"
	"volunteerhub/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier("test-secret", time.Hour)
	require.NoError(t, err)
	return v
}

func TestJWTRoundTrip(t *testing.T) {
	v := newVerifier(t)
	actor := models.Actor{ID: "ngo-1", Role: models.RoleNGO}

	token, err := v.GenerateToken(actor)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestJWTRejects(t *testing.T) {
	v := newVerifier(t)
	other, err := NewJWTVerifier("another-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.GenerateToken(models.Actor{ID: "x", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role: models.RoleVolunteer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "vol-1",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrExpiredToken)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "vol-1",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err = badRole.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateTokenNeedsValidActor(t *testing.T) {
	v := newVerifier(t)
	_, err := v.GenerateToken(models.Actor{ID: "", Role: models.RoleAdmin})
	assert.Error(t, err)
	_, err = v.GenerateToken(models.Actor{ID: "a", Role: "root"})
	assert.Error(t, err)

	_, err = NewJWTVerifier("", time.Hour)
	assert.Error(t, err)
}

type accountsByEmail map[string]*models.Account

func (m accountsByEmail) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	if a, ok := m[email]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func googleVerifier(accounts AccountLookup, claims map[string]interface{}, err error) *GoogleVerifier {
	v := NewGoogleVerifier("client-id", accounts)
	v.validate = func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
		if err != nil {
			return nil, err
		}
		return &idtoken.Payload{Audience: audience, Subject: "1234", Claims: claims}, nil
	}
	return v
}

func TestGoogleVerifier(t *testing.T) {
	accounts := accountsByEmail{
		"ngo@example.com": {ID: "ngo-1", Role: models.RoleNGO, Email: "ngo@example.com"},
	}
	ctx := context.Background()

	t.Run("known account", func(t *testing.T) {
		v := googleVerifier(accounts, map[string]interface{}{"email": "ngo@example.com", "email_verified": true}, nil)
		actor, err := v.Verify(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, models.Actor{ID: "ngo-1", Role: models.RoleNGO}, actor)
	})

	t.Run("new identity signs in as volunteer", func(t *testing.T) {
		v := googleVerifier(accounts, map[string]interface{}{"email": "new@example.com", "email_verified": true}, nil)
		actor, err := v.Verify(ctx, "id-token")
		require.NoError(t, err)
		assert.Equal(t, models.Actor{ID: "google-1234", Role: models.RoleVolunteer}, actor)
	})

	t.Run("unverified email", func(t *testing.T) {
		v := googleVerifier(accounts, map[string]interface{}{"email": "ngo@example.com", "email_verified": false}, nil)
		_, err := v.Verify(ctx, "id-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("invalid token", func(t *testing.T) {
		v := googleVerifier(accounts, nil, errors.New("idtoken: audience provided does not match"))
		_, err := v.Verify(ctx, "id-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestChainPrefersFirstMatch(t *testing.T) {
	v := newVerifier(t)
	token, err := v.GenerateToken(models.Actor{ID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	google := googleVerifier(accountsByEmail{}, nil, errors.New("not a google token"))
	chain := Chain{v, google}

	actor, err := chain.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", actor.ID)

	_, err = chain.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newRouter(v Verifier) *gin.Engine {
	r := gin.New()
	r.GET("/me", RequireAuth(v), func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/admin", RequireAuth(v), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMiddleware(t *testing.T) {
	v := newVerifier(t)
	r := newRouter(v)

	volunteerToken, err := v.GenerateToken(models.Actor{ID: "vol-1", Role: models.RoleVolunteer})
	require.NoError(t, err)
	adminToken, err := v.GenerateToken(models.Actor{ID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic " + volunteerToken, http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + volunteerToken, http.StatusOK},
		{"lowercase scheme", "/me", "bearer " + volunteerToken, http.StatusOK},
		{"role denied", "/admin", "Bearer " + volunteerToken, http.StatusForbidden},
		{"role allowed", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
