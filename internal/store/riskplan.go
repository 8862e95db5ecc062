package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/traderedge/apiserver/types"
)

// RiskPlanRepository handles persistence for per-user risk plans.
// Each user has at most one plan row; Upsert replaces it in place.
type RiskPlanRepository struct {
	db *sql.DB
}

func NewRiskPlanRepository(db *sql.DB) *RiskPlanRepository {
	return &RiskPlanRepository{db: db}
}

func (r *RiskPlanRepository) GetByUser(ctx context.Context, userID int) (types.RiskPlan, error) {
	const query = `
		SELECT id, user_id, plan, questionnaire, created_at, updated_at
		FROM risk_plans
		WHERE user_id = $1`
	var plan types.RiskPlan
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Plan,
		&plan.Questionnaire,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.RiskPlan{}, ErrNotFound
		}
		return types.RiskPlan{}, err
	}
	return plan, nil
}

func (r *RiskPlanRepository) Upsert(ctx context.Context, plan types.RiskPlan) (types.RiskPlan, error) {
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	const query = `
		INSERT INTO risk_plans (user_id, plan, questionnaire, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
			questionnaire = EXCLUDED.questionnaire,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		plan.UserID,
		[]byte(plan.Plan),
		[]byte(plan.Questionnaire),
		plan.CreatedAt,
		plan.UpdatedAt,
	).Scan(&plan.ID, &plan.CreatedAt); err != nil {
		return types.RiskPlan{}, err
	}
	return plan, nil
}
