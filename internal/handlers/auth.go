package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traderedge/apiserver/internal/events"
	"github.com/traderedge/apiserver/internal/password"
	"github.com/traderedge/apiserver/internal/services"
	"github.com/traderedge/apiserver/internal/store"
	"github.com/traderedge/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour

// dummyHash absorbs a password verification for unknown emails so the
// 401 path costs the same whether or not the email is registered.
var dummyHash = func() string {
	h, err := password.Hash("no-such-user")
	if err != nil {
		panic(err)
	}
	return h
}()

// AuthHandler provides registration, login and profile endpoints.
type AuthHandler struct {
	userService *services.UserService
	publisher   *events.Publisher
	logger      *zap.Logger
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, publisher *events.Publisher, logger *zap.Logger, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthHandler{
		userService: userService,
		publisher:   publisher,
		logger:      logger,
		secret:      []byte(jwtSecret),
		tokenTTL:    tokenTTL,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Get("/profile", handler.Profile)
}

// RequireAuth enforces a valid bearer token and injects the token's
// subject and session id into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		subject, sessionID, err := parseToken(tokenString, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
		ctx = context.WithValue(ctx, contextSessionKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession loads the authenticated user and rejects tokens whose
// session id no longer matches the user's current one. A fresh login
// rotates the stored session id, so older tokens stop working here.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			h.logger.Error("load user for session check", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if user.ActiveSessionID != "" && user.ActiveSessionID != sessionIDFromContext(r.Context()) {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register creates a new user account and returns an identity token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	fields, err := checkStruct(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: fields})
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("check existing email", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to check user")
		return
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	// The account starts with a session id so the token issued below
	// passes the session check on protected routes.
	sessionID := uuid.NewString()

	user, err := h.userService.Create(r.Context(), types.User{
		Username:        req.FirstName + " " + req.LastName,
		Email:           req.Email,
		PlanType:        req.PlanType,
		PasswordHash:    hashed,
		ActiveSessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		h.logger.Error("create user", zap.String("email", req.Email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database error, could not register user")
		return
	}

	h.publisher.UserRegistered(r.Context(), user)

	token, err := issueToken(user, sessionID, h.secret, h.tokenTTL)
	if err != nil {
		h.logger.Error("issue token", zap.Int("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{AccessToken: token})
}

// Login verifies credentials, rotates the session id and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing email or password")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a comparable verification so the response time does
			// not reveal whether the email exists.
			_, _ = password.Verify(dummyHash, req.Password)
			writeError(w, http.StatusUnauthorized, "bad email or password")
			return
		}
		h.logger.Error("load user by email", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	ok, err := password.Verify(user.PasswordHash, req.Password)
	if err != nil {
		h.logger.Warn("stored hash did not parse", zap.Int("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusUnauthorized, "bad email or password")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "bad email or password")
		return
	}

	if user.PlanType == types.PlanFree {
		writeError(w, http.StatusPaymentRequired, "please upgrade your plan to login")
		return
	}

	sessionID := uuid.NewString()
	if err := h.userService.UpdateSession(r.Context(), user.ID, sessionID); err != nil {
		h.logger.Error("rotate session", zap.Int("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := issueToken(user, sessionID, h.secret, h.tokenTTL)
	if err != nil {
		h.logger.Error("issue token", zap.Int("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{AccessToken: token})
}

// Profile returns the authenticated user's public fields.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
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

	if user.ActiveSessionID != "" && user.ActiveSessionID != sessionIDFromContext(r.Context()) {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		PlanType: user.PlanType,
	})
}

type RegisterRequest struct {
	FirstName   string          `json:"firstName" validate:"required"`
	LastName    string          `json:"lastName" validate:"required"`
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=8"`
	PlanType    string          `json:"plan_type" validate:"required,oneof=free starter pro enterprise"`
	TradingData json.RawMessage `json:"tradingData,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
}

type ProfileResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	PlanType string `json:"plan_type"`
}

type identityClaims struct {
	PlanType      string `json:"plan_type"`
	Username      string `json:"username"`
	SessionID     string `json:"session_id"`
	SetupComplete bool   `json:"setup_complete"`
	jwt.RegisteredClaims
}

func issueToken(user types.User, sessionID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		PlanType:      user.PlanType,
		Username:      user.Username,
		SessionID:     sessionID,
		SetupComplete: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (subject, sessionID string, err error) {
	claims := identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", "", errors.New("missing subject")
	}
	return claims.Subject, claims.SessionID, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
