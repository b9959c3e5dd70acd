package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"

	"volunteerhub/internal/models"
	"volunteerhub/internal/store"
)

// AccountLookup finds accounts by verified email
type AccountLookup interface {
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// GoogleVerifier accepts Google ID tokens issued for the configured client id.
// A verified email that belongs to an account resolves to that account; an
// unknown identity signs in as a volunteer keyed by its Google subject.
type GoogleVerifier struct {
	audience string
	accounts AccountLookup
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string, accounts AccountLookup) *GoogleVerifier {
	return &GoogleVerifier{
		audience: clientID,
		accounts: accounts,
		validate: idtoken.Validate,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, raw string) (models.Actor, error) {
	payload, err := v.validate(ctx, raw, v.audience)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified || payload.Subject == "" {
		return models.Actor{}, fmt.Errorf("%w: email missing or unverified", ErrInvalidToken)
	}

	account, err := v.accounts.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return models.Actor{ID: account.ID, Role: account.Role}, nil
	case errors.Is(err, store.ErrNotFound):
		return models.Actor{ID: "google-" + payload.Subject, Role: models.RoleVolunteer}, nil
	default:
		return models.Actor{}, fmt.Errorf("failed to look up account: %w", err)
	}
}
