package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/traderedge/apiserver/internal/events"
	"github.com/traderedge/apiserver/internal/services"
	"github.com/traderedge/apiserver/internal/storage"
	"github.com/traderedge/apiserver/internal/store"
	"github.com/traderedge/apiserver/types"
)

const (
	maxAttachmentMemory = 8 << 20
	maxAttachmentBytes  = 16 << 20
	formFieldFile       = "file"
)

// TradeHandler provides CRUD and attachment endpoints for journal trades.
type TradeHandler struct {
	tradeService *services.TradeService
	attachments  storage.ObjectStorage
	publisher    *events.Publisher
	logger       *zap.Logger
}

// NewTradeHandler constructs a handler. attachments may be nil when no
// object storage backend is configured; uploads then return 503.
func NewTradeHandler(tradeService *services.TradeService, attachments storage.ObjectStorage, publisher *events.Publisher, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		attachments:  attachments,
		publisher:    publisher,
		logger:       logger,
	}
}

// TradeRouter registers trade routes on the given router.
func TradeRouter(r chi.Router, handler *TradeHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{tradeID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
		r.Post("/attachment", handler.UploadAttachment)
		r.Get("/attachment", handler.GetAttachment)
	})
}

func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.tradeService.List(r.Context(), userID, offset, limit)
	if err != nil {
		h.logger.Error("list trades", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, TradeListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.tradeRequest(w, r)
	if !ok {
		return
	}

	trade, err := h.tradeService.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.Error("get trade", zap.Int("trade_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch trade")
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, fields, err := decodeTradeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: fields})
		return
	}

	trade, err := h.tradeService.Create(r.Context(), req.toTrade(userID, 0))
	if err != nil {
		h.logger.Error("create trade", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create trade")
		return
	}

	h.publisher.TradeCreated(r.Context(), trade)

	writeJSON(w, http.StatusCreated, trade)
}

func (h *TradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.tradeRequest(w, r)
	if !ok {
		return
	}

	req, fields, err := decodeTradeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: fields})
		return
	}

	trade, err := h.tradeService.Update(r.Context(), req.toTrade(userID, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.Error("update trade", zap.Int("trade_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update trade")
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.tradeRequest(w, r)
	if !ok {
		return
	}

	if err := h.tradeService.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.Error("delete trade", zap.Int("trade_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment stores a chart screenshot for the trade.
func (h *TradeHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.tradeRequest(w, r)
	if !ok {
		return
	}

	if h.attachments == nil {
		writeError(w, http.StatusServiceUnavailable, "attachment storage is not configured")
		return
	}

	// Ownership check before touching the object store.
	if _, err := h.tradeService.Get(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.Error("get trade", zap.Int("trade_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch trade")
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldFile]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}
	fileHeader := files[0]

	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	data, err := readFileLimited(file, maxAttachmentBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := attachmentKey(userID, id, fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.attachments.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.logger.Error("store attachment", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}

	if err := h.tradeService.SetAttachmentKey(r.Context(), userID, id, key); err != nil {
		h.logger.Error("record attachment key", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentResponse{Key: key})
}

// GetAttachment streams the trade's stored screenshot back to the client.
func (h *TradeHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.tradeRequest(w, r)
	if !ok {
		return
	}

	if h.attachments == nil {
		writeError(w, http.StatusServiceUnavailable, "attachment storage is not configured")
		return
	}

	trade, err := h.tradeService.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.Error("get trade", zap.Int("trade_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch trade")
		return
	}
	if trade.AttachmentKey == "" {
		writeError(w, http.StatusNotFound, "trade has no attachment")
		return
	}

	reader, err := h.attachments.Get(r.Context(), trade.AttachmentKey)
	if err != nil {
		h.logger.Error("read attachment", zap.String("key", trade.AttachmentKey), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read attachment")
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(trade.AttachmentKey))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func (h *TradeHandler) tradeRequest(w http.ResponseWriter, r *http.Request) (userID, id int, ok bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}

	id, err = parseIDParam(chi.URLParam(r, "tradeID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return 0, 0, false
	}
	return userID, id, true
}

// TradeUpsertRequest is the JSON payload for creating or updating a trade.
type TradeUpsertRequest struct {
	AccountID  *int       `json:"account_id"`
	Symbol     string     `json:"symbol" validate:"required"`
	Direction  string     `json:"direction" validate:"required,oneof=long short"`
	Quantity   float64    `json:"quantity" validate:"required,gt=0"`
	EntryPrice float64    `json:"entry_price" validate:"required"`
	ExitPrice  *float64   `json:"exit_price"`
	OpenedAt   time.Time  `json:"opened_at" validate:"required"`
	ClosedAt   *time.Time `json:"closed_at"`
	PnL        *float64   `json:"pnl"`
	Notes      string     `json:"notes"`
}

func (req TradeUpsertRequest) toTrade(userID, id int) types.Trade {
	return types.Trade{
		ID:         id,
		UserID:     userID,
		AccountID:  req.AccountID,
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Direction:  req.Direction,
		Quantity:   req.Quantity,
		EntryPrice: req.EntryPrice,
		ExitPrice:  req.ExitPrice,
		OpenedAt:   req.OpenedAt,
		ClosedAt:   req.ClosedAt,
		PnL:        req.PnL,
		Notes:      req.Notes,
	}
}

func decodeTradeRequest(r *http.Request) (TradeUpsertRequest, map[string][]string, error) {
	var req TradeUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return TradeUpsertRequest{}, nil, err
	}
	fields, err := checkStruct(req)
	if err != nil {
		return TradeUpsertRequest{}, nil, err
	}
	return req, fields, nil
}

// TradeListResponse is the paginated list response payload.
type TradeListResponse struct {
	Items []types.Trade `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}

// AttachmentResponse reports the stored object key.
type AttachmentResponse struct {
	Key string `json:"key"`
}

func attachmentKey(userID, tradeID int, filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "attachment"
	}
	return fmt.Sprintf("attachments/%d/%d/%s", userID, tradeID, base)
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
