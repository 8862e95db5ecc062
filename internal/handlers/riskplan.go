package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/traderedge/apiserver/internal/services"
	"github.com/traderedge/apiserver/internal/store"
	"github.com/traderedge/apiserver/types"
)

// RiskPlanHandler stores and returns the user's risk management plan
// document produced by the questionnaire flow.
type RiskPlanHandler struct {
	riskPlanService *services.RiskPlanService
	logger          *zap.Logger
}

func NewRiskPlanHandler(riskPlanService *services.RiskPlanService, logger *zap.Logger) *RiskPlanHandler {
	return &RiskPlanHandler{riskPlanService: riskPlanService, logger: logger}
}

// RiskPlanRouter registers risk-plan routes on the given router.
func RiskPlanRouter(r chi.Router, handler *RiskPlanHandler) {
	r.Get("/", handler.Get)
	r.Put("/", handler.Save)
}

func (h *RiskPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	plan, err := h.riskPlanService.GetByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no risk plan saved")
			return
		}
		h.logger.Error("load risk plan", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load risk plan")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (h *RiskPlanHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SaveRiskPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Plan) == 0 {
		writeError(w, http.StatusBadRequest, "plan is required")
		return
	}
	if len(req.Questionnaire) == 0 {
		req.Questionnaire = json.RawMessage("{}")
	}

	saved, err := h.riskPlanService.Save(r.Context(), types.RiskPlan{
		UserID:        userID,
		Plan:          req.Plan,
		Questionnaire: req.Questionnaire,
	})
	if err != nil {
		h.logger.Error("save risk plan", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save risk plan")
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

type SaveRiskPlanRequest struct {
	Plan          json.RawMessage `json:"plan"`
	Questionnaire json.RawMessage `json:"questionnaire"`
}
