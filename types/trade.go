package types

import "time"

// Trade directions.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade is a single journal entry for an executed trade.
type Trade struct {
	ID        int     `json:"id" db:"id"`
	UserID    int     `json:"-" db:"user_id"`
	AccountID *int    `json:"account_id,omitempty" db:"account_id"`
	Symbol    string  `json:"symbol" db:"symbol"`
	Direction string  `json:"direction" db:"direction"`
	Quantity  float64 `json:"quantity" db:"quantity"`

	EntryPrice float64  `json:"entry_price" db:"entry_price"`
	ExitPrice  *float64 `json:"exit_price,omitempty" db:"exit_price"`

	OpenedAt time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty" db:"closed_at"`

	// PnL is the realized profit or loss, if the trade is closed.
	PnL *float64 `json:"pnl,omitempty" db:"pnl"`

	Notes string `json:"notes" db:"notes"`

	// AttachmentKey is the object-storage key of the chart screenshot
	// uploaded for this trade, if any.
	AttachmentKey string `json:"-" db:"attachment_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
