package types

import "time"

// Account is a trading account the user journals against.
type Account struct {
	ID              int       `json:"id" db:"id"`
	UserID          int       `json:"-" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Broker          string    `json:"broker" db:"broker"`
	Currency        string    `json:"currency" db:"currency"`
	StartingBalance float64   `json:"starting_balance" db:"starting_balance"`
	CurrentBalance  float64   `json:"current_balance" db:"current_balance"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
