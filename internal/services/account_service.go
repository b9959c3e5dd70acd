package services

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"volunteerhub/internal/log"
	"volunteerhub/internal/models"
	"volunteerhub/internal/store"
)

// AccountService keeps the profile behind every actor. The role always comes
// from the verified token, never from the request body.
type AccountService struct {
	store    store.Store
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAccountService(st store.Store) *AccountService {
	return &AccountService{
		store:    st,
		validate: newValidator(),
		logger:   log.WithComponent("accounts"),
	}
}

// Upsert creates or updates the caller's own account
func (s *AccountService) Upsert(ctx context.Context, actor models.Actor, req models.UpsertAccountRequest) (*models.Account, error) {
	if actor.ID == "" || !actor.Role.Valid() {
		return nil, authorizationError("sign in to manage your account")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &Error{Kind: KindValidation, Msg: "invalid account", Err: err}
	}

	account := &models.Account{
		ID:    actor.ID,
		Role:  actor.Role,
		Name:  req.Name,
		Email: req.Email,
	}
	if err := s.store.UpsertAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError("email %s is already in use", req.Email)
		}
		return nil, err
	}

	s.logger.Info().Str("account_id", account.ID).Str("role", string(account.Role)).Msg("Account saved")
	return account, nil
}

// Me returns the caller's account
func (s *AccountService) Me(ctx context.Context, actor models.Actor) (*models.Account, error) {
	if actor.ID == "" {
		return nil, authorizationError("sign in to view your account")
	}
	account, err := s.store.GetAccount(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("no account for %s", actor.ID)
		}
		return nil, err
	}
	return account, nil
}
