package services

import (
	"context"

	"github.com/traderedge/apiserver/types"
)

// AccountRepository defines persistence operations for trading accounts.
type AccountRepository interface {
	List(ctx context.Context, userID int) ([]types.Account, error)
	Get(ctx context.Context, userID, id int) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Update(ctx context.Context, account types.Account) (types.Account, error)
	Delete(ctx context.Context, userID, id int) error
}

// AccountService encapsulates trading-account use-cases.
type AccountService struct {
	repo AccountRepository
}

func NewAccountService(repo AccountRepository) *AccountService {
	return &AccountService{repo: repo}
}

func (s *AccountService) List(ctx context.Context, userID int) ([]types.Account, error) {
	return s.repo.List(ctx, userID)
}

func (s *AccountService) Get(ctx context.Context, userID, id int) (types.Account, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *AccountService) Create(ctx context.Context, account types.Account) (types.Account, error) {
	return s.repo.Create(ctx, account)
}

func (s *AccountService) Update(ctx context.Context, account types.Account) (types.Account, error) {
	return s.repo.Update(ctx, account)
}

func (s *AccountService) Delete(ctx context.Context, userID, id int) error {
	return s.repo.Delete(ctx, userID, id)
}
