package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/traderedge/apiserver/internal/services"
	"github.com/traderedge/apiserver/internal/store"
	"github.com/traderedge/apiserver/types"
)

// UserPlanHandler exposes the user's subscription tier. Upgrading the tier
// is what lifts the free-plan login gate.
type UserPlanHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

func NewUserPlanHandler(userService *services.UserService, logger *zap.Logger) *UserPlanHandler {
	return &UserPlanHandler{userService: userService, logger: logger}
}

// UserPlanRouter registers plan-tier routes on the given router.
func UserPlanRouter(r chi.Router, handler *UserPlanHandler) {
	r.Get("/plan", handler.GetPlan)
	r.Put("/plan", handler.UpdatePlan)
}

func (h *UserPlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("load user", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{PlanType: user.PlanType})
}

func (h *UserPlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	plan := strings.TrimSpace(req.Plan)
	if !types.KnownPlan(plan) {
		writeError(w, http.StatusBadRequest, "unknown plan")
		return
	}

	if err := h.userService.UpdatePlan(r.Context(), userID, plan); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("update plan", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update plan")
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{PlanType: plan})
}

type UpdatePlanRequest struct {
	Plan string `json:"plan"`
}

type PlanResponse struct {
	PlanType string `json:"plan_type"`
}
