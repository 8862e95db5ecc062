package services

import (
	"context"

	"github.com/traderedge/apiserver/types"
)

// RiskPlanRepository defines persistence operations for risk plans.
type RiskPlanRepository interface {
	GetByUser(ctx context.Context, userID int) (types.RiskPlan, error)
	Upsert(ctx context.Context, plan types.RiskPlan) (types.RiskPlan, error)
}

// RiskPlanService encapsulates risk-plan use-cases.
type RiskPlanService struct {
	repo RiskPlanRepository
}

func NewRiskPlanService(repo RiskPlanRepository) *RiskPlanService {
	return &RiskPlanService{repo: repo}
}

func (s *RiskPlanService) GetByUser(ctx context.Context, userID int) (types.RiskPlan, error) {
	return s.repo.GetByUser(ctx, userID)
}

func (s *RiskPlanService) Save(ctx context.Context, plan types.RiskPlan) (types.RiskPlan, error) {
	return s.repo.Upsert(ctx, plan)
}
