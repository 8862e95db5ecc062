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

// AccountHandler provides CRUD endpoints for trading accounts.
type AccountHandler struct {
	accountService *services.AccountService
	logger         *zap.Logger
}

func NewAccountHandler(accountService *services.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accountService: accountService, logger: logger}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(r chi.Router, handler *AccountHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{accountID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accounts, err := h.accountService.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("list accounts", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.accountService.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("get account", zap.Int("account_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch account")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AccountUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	fields, err := checkStruct(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: fields})
		return
	}

	account, err := h.accountService.Create(r.Context(), types.Account{
		UserID:          userID,
		Name:            req.Name,
		Broker:          req.Broker,
		Currency:        req.Currency,
		StartingBalance: req.StartingBalance,
		CurrentBalance:  req.CurrentBalance,
	})
	if err != nil {
		h.logger.Error("create account", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req AccountUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	fields, err := checkStruct(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: fields})
		return
	}

	account, err := h.accountService.Update(r.Context(), types.Account{
		ID:              id,
		UserID:          userID,
		Name:            req.Name,
		Broker:          req.Broker,
		Currency:        req.Currency,
		StartingBalance: req.StartingBalance,
		CurrentBalance:  req.CurrentBalance,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("update account", zap.Int("account_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update account")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.accountService.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("delete account", zap.Int("account_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type AccountUpsertRequest struct {
	Name            string  `json:"name" validate:"required"`
	Broker          string  `json:"broker"`
	Currency        string  `json:"currency" validate:"required"`
	StartingBalance float64 `json:"starting_balance"`
	CurrentBalance  float64 `json:"current_balance"`
}
