package types

import (
	"encoding/json"
	"time"
)

// RiskPlan holds the user's risk management plan document as produced by
// the questionnaire flow. Plan and Questionnaire are stored as opaque JSON;
// the backend never interprets their shape.
type RiskPlan struct {
	ID            int             `json:"-" db:"id"`
	UserID        int             `json:"-" db:"user_id"`
	Plan          json.RawMessage `json:"plan" db:"plan"`
	Questionnaire json.RawMessage `json:"questionnaire" db:"questionnaire"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
