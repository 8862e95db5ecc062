package services

import (
	"context"

	"github.com/traderedge/apiserver/types"
)

// TradeRepository defines persistence operations for trades.
type TradeRepository interface {
	List(ctx context.Context, userID, offset, limit int) ([]types.Trade, int, error)
	Get(ctx context.Context, userID, id int) (types.Trade, error)
	Create(ctx context.Context, trade types.Trade) (types.Trade, error)
	Update(ctx context.Context, trade types.Trade) (types.Trade, error)
	SetAttachmentKey(ctx context.Context, userID, id int, key string) error
	Delete(ctx context.Context, userID, id int) error
}

// TradeService encapsulates trade use-cases.
type TradeService struct {
	repo TradeRepository
}

func NewTradeService(repo TradeRepository) *TradeService {
	return &TradeService{repo: repo}
}

func (s *TradeService) List(ctx context.Context, userID, offset, limit int) ([]types.Trade, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, userID, offset, limit)
}

func (s *TradeService) Get(ctx context.Context, userID, id int) (types.Trade, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *TradeService) Create(ctx context.Context, trade types.Trade) (types.Trade, error) {
	return s.repo.Create(ctx, trade)
}

func (s *TradeService) Update(ctx context.Context, trade types.Trade) (types.Trade, error) {
	return s.repo.Update(ctx, trade)
}

func (s *TradeService) SetAttachmentKey(ctx context.Context, userID, id int, key string) error {
	return s.repo.SetAttachmentKey(ctx, userID, id, key)
}

func (s *TradeService) Delete(ctx context.Context, userID, id int) error {
	return s.repo.Delete(ctx, userID, id)
}
