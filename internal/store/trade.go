package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/traderedge/apiserver/types"
)

// TradeRepository handles persistence for trades. Every operation is scoped
// to a user id; another user's trade behaves as if it does not exist.
type TradeRepository struct {
	db *sql.DB
}

func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

const tradeColumns = `id, user_id, account_id, symbol, direction, quantity, entry_price, exit_price,
		opened_at, closed_at, pnl, notes, attachment_key, created_at, updated_at`

func (r *TradeRepository) List(ctx context.Context, userID, offset, limit int) ([]types.Trade, int, error) {
	const countQuery = `SELECT COUNT(*) FROM trades WHERE user_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY opened_at DESC, id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	trades := make([]types.Trade, 0, limit)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, 0, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

func (r *TradeRepository) Get(ctx context.Context, userID, id int) (types.Trade, error) {
	const query = `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE id = $1 AND user_id = $2`
	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Trade{}, ErrNotFound
		}
		return types.Trade{}, err
	}
	return trade, nil
}

func (r *TradeRepository) Create(ctx context.Context, trade types.Trade) (types.Trade, error) {
	now := time.Now()
	trade.CreatedAt = now
	trade.UpdatedAt = now

	const query = `
		INSERT INTO trades (user_id, account_id, symbol, direction, quantity, entry_price, exit_price,
			opened_at, closed_at, pnl, notes, attachment_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		trade.UserID,
		trade.AccountID,
		trade.Symbol,
		trade.Direction,
		trade.Quantity,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.OpenedAt,
		trade.ClosedAt,
		trade.PnL,
		trade.Notes,
		trade.AttachmentKey,
		trade.CreatedAt,
		trade.UpdatedAt,
	).Scan(&trade.ID); err != nil {
		return types.Trade{}, err
	}
	return trade, nil
}

func (r *TradeRepository) Update(ctx context.Context, trade types.Trade) (types.Trade, error) {
	trade.UpdatedAt = time.Now()

	const query = `
		UPDATE trades
		SET account_id = $1,
			symbol = $2,
			direction = $3,
			quantity = $4,
			entry_price = $5,
			exit_price = $6,
			opened_at = $7,
			closed_at = $8,
			pnl = $9,
			notes = $10,
			updated_at = $11
		WHERE id = $12 AND user_id = $13`
	result, err := r.db.ExecContext(
		ctx,
		query,
		trade.AccountID,
		trade.Symbol,
		trade.Direction,
		trade.Quantity,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.OpenedAt,
		trade.ClosedAt,
		trade.PnL,
		trade.Notes,
		trade.UpdatedAt,
		trade.ID,
		trade.UserID,
	)
	if err != nil {
		return types.Trade{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Trade{}, err
	}
	if affected == 0 {
		return types.Trade{}, ErrNotFound
	}
	return trade, nil
}

// SetAttachmentKey records the object-storage key of the uploaded screenshot.
func (r *TradeRepository) SetAttachmentKey(ctx context.Context, userID, id int, key string) error {
	const query = `
		UPDATE trades
		SET attachment_key = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TradeRepository) Delete(ctx context.Context, userID, id int) error {
	const query = `DELETE FROM trades WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (types.Trade, error) {
	var trade types.Trade
	err := row.Scan(
		&trade.ID,
		&trade.UserID,
		&trade.AccountID,
		&trade.Symbol,
		&trade.Direction,
		&trade.Quantity,
		&trade.EntryPrice,
		&trade.ExitPrice,
		&trade.OpenedAt,
		&trade.ClosedAt,
		&trade.PnL,
		&trade.Notes,
		&trade.AttachmentKey,
		&trade.CreatedAt,
		&trade.UpdatedAt,
	)
	return trade, err
}
