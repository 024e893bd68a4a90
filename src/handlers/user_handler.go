// backend/src/handlers/user_handler.go

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/contazen/backend/src/config"
	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/security"
	"github.com/username/contazen/backend/src/services"
	"github.com/username/contazen/backend/src/utils"
)

type contextKey string

const userIDContextKey contextKey = "userID"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var passwordRegex = regexp.MustCompile(`^.{6,}$`)

type UserHandler struct {
	authService    *security.AuthService
	summaryService services.SummaryService
	cache          *cache.Cache
}

func NewUserHandler(authService *security.AuthService, summaryService services.SummaryService, reportCache *cache.Cache) *UserHandler {
	return &UserHandler{
		authService:    authService,
		summaryService: summaryService,
		cache:          reportCache,
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	utils.SendJSONError(w, message, statusCode)
}

func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" {
		sendJSONError(w, "Username is required", http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(req.Email) {
		sendJSONError(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(req.Password) {
		sendJSONError(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	if _, err := model.GetUserByEmail(database.DB, req.Email); err == nil {
		sendJSONError(w, "An account with this email already exists", http.StatusConflict)
		return
	}
	if _, err := model.GetUserByUsername(database.DB, req.Username); err == nil {
		sendJSONError(w, "Username is already taken", http.StatusConflict)
		return
	}

	user := &model.User{Username: req.Username, Email: req.Email}
	if err := user.HashPassword(req.Password); err != nil {
		logger.L.Error("Failed to hash password during registration", "error", err)
		sendJSONError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}
	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Error("Failed to create user", "email", req.Email, "error", err)
		sendJSONError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User registered", "userID", user.ID)
	utils.SendJSON(w, map[string]any{"message": "Account created successfully.", "user": user}, http.StatusCreated)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *model.User `json:"user"`
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, strings.TrimSpace(req.Username))
	if err != nil {
		// Same response as a bad password, to avoid account enumeration.
		sendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := user.CheckPassword(req.Password); err != nil {
		logger.L.Warn("Login failed: password mismatch", "userID", user.ID)
		sendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	tokens, err := h.issueSession(user)
	if err != nil {
		logger.L.Error("Failed to issue session on login", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	if err := user.RecordLogin(database.DB); err != nil {
		logger.L.Warn("Failed to record login metadata", "userID", user.ID, "error", err)
	}

	logger.L.Info("User logged in", "userID", user.ID)
	utils.SendJSON(w, tokens, http.StatusOK)
}

// issueSession generates the token pair and persists the session row used
// for revocation checks.
func (h *UserHandler) issueSession(user *model.User) (TokenResponse, error) {
	accessToken, err := h.authService.GenerateAccessToken(user.ID, config.Cfg.AccessTokenExpiry)
	if err != nil {
		return TokenResponse{}, err
	}
	refreshToken, err := h.authService.GenerateRefreshToken(user.ID, config.Cfg.RefreshTokenExpiry)
	if err != nil {
		return TokenResponse{}, err
	}

	session := &model.Session{
		UserID:           user.ID,
		Token:            accessToken,
		RefreshToken:     refreshToken,
		ExpiresAt:        time.Now().Add(config.Cfg.AccessTokenExpiry),
		RefreshExpiresAt: time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		sendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	userIDStr, err := h.authService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		sendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh attempted with unknown session", "userID", userIDStr)
		sendJSONError(w, "Invalid or expired session", http.StatusUnauthorized)
		return
	}
	if time.Now().After(session.RefreshExpiresAt) {
		sendJSONError(w, "Session expired, please log in again", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, session.UserID)
	if err != nil {
		sendJSONError(w, "User not found", http.StatusUnauthorized)
		return
	}

	// Rotate: old session is revoked, a fresh pair is issued.
	if err := model.DeleteSessionByToken(database.DB, session.Token); err != nil {
		logger.L.Warn("Failed to delete rotated session", "userID", user.ID, "error", err)
	}

	tokens, err := h.issueSession(user)
	if err != nil {
		logger.L.Error("Failed to issue session on refresh", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, tokens, http.StatusOK)
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		sendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Warn("Failed to delete session on logout", "error", err)
	}
	utils.SendJSON(w, map[string]string{"message": "Logged out."}, http.StatusOK)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(req.NewPassword) {
		sendJSONError(w, "New password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		sendJSONError(w, "Failed to retrieve user information", http.StatusInternalServerError)
		return
	}
	if user.AuthProvider != "local" {
		sendJSONError(w, "Password changes are not available for this sign-in method", http.StatusBadRequest)
		return
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		logger.L.Warn("Password change rejected: current password mismatch", "userID", userID)
		sendJSONError(w, "Current password is incorrect", http.StatusForbidden)
		return
	}

	if err := user.HashPassword(req.NewPassword); err != nil {
		logger.L.Error("Failed to hash new password", "userID", userID, "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := user.UpdatePassword(database.DB, user.Password); err != nil {
		logger.L.Error("Failed to persist new password", "userID", userID, "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	// All existing sessions are revoked after a password change.
	if err := model.DeleteSessionsByUserID(database.DB, userID); err != nil {
		logger.L.Warn("Failed to revoke sessions after password change", "userID", userID, "error", err)
	}

	utils.SendJSON(w, map[string]string{"message": "Password changed. Please log in again."}, http.StatusOK)
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

func (h *UserHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to get user for account deletion", "userID", userID, "error", err)
		sendJSONError(w, "Failed to retrieve user information", http.StatusInternalServerError)
		return
	}

	// Only local accounts carry a password to verify.
	if user.AuthProvider == "local" {
		if err := user.CheckPassword(req.Password); err != nil {
			logger.L.Warn("Password mismatch for account deletion", "userID", userID)
			sendJSONError(w, "Incorrect password. Account deletion failed.", http.StatusForbidden)
			return
		}
	}

	// users row deletion cascades to accounts, transactions, categories,
	// staged proposals, keyword rules and sessions via FK constraints.
	if _, err = database.DB.Exec("DELETE FROM users WHERE id = ?", userID); err != nil {
		logger.L.Error("Failed to delete user", "userID", userID, "error", err)
		sendJSONError(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	logger.L.Info("Account deleted", "userID", userID)
	w.WriteHeader(http.StatusNoContent)
}

// --- ADMIN FUNCTIONS ---

func isAdmin(email string) bool {
	for _, adminEmail := range config.Cfg.AdminEmails {
		if strings.EqualFold(email, adminEmail) {
			return true
		}
	}
	return false
}

func (h *UserHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			sendJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		user, err := model.GetUserByID(database.DB, userID)
		if err != nil {
			sendJSONError(w, "User not found", http.StatusNotFound)
			return
		}

		if !isAdmin(user.Email) {
			logger.L.Warn("Admin access denied for user", "userID", user.ID)
			sendJSONError(w, "Forbidden: Administrator access required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type AdminStats struct {
	TotalUsers        int `json:"totalUsers"`
	TotalAccounts     int `json:"totalAccounts"`
	TotalTransactions int `json:"totalTransactions"`
	TotalCategories   int `json:"totalCategories"`
	StagedProposals   int `json:"stagedProposals"`
	ActiveSessions    int `json:"activeSessions"`
}

const adminStatsCacheKey = "admin:stats"

func (h *UserHandler) HandleGetAdminStats(w http.ResponseWriter, r *http.Request) {
	if cached, found := h.cache.Get(adminStatsCacheKey); found {
		if stats, ok := cached.(AdminStats); ok {
			utils.SendJSON(w, stats, http.StatusOK)
			return
		}
	}

	var stats AdminStats
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM users", &stats.TotalUsers},
		{"SELECT COUNT(*) FROM accounts", &stats.TotalAccounts},
		{"SELECT COUNT(*) FROM transactions", &stats.TotalTransactions},
		{"SELECT COUNT(*) FROM categories", &stats.TotalCategories},
		{"SELECT COUNT(*) FROM staged_transactions", &stats.StagedProposals},
		{"SELECT COUNT(*) FROM sessions", &stats.ActiveSessions},
	}
	for _, c := range counts {
		if err := database.DB.QueryRow(c.query).Scan(c.dest); err != nil && !errors.Is(err, sql.ErrNoRows) {
			logger.L.Error("Failed to compute admin stat", "query", c.query, "error", err)
			sendJSONError(w, "Failed to compute statistics", http.StatusInternalServerError)
			return
		}
	}

	h.cache.Set(adminStatsCacheKey, stats, time.Minute)
	utils.SendJSON(w, stats, http.StatusOK)
}
