// backend/src/handlers/account_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/ledger"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
	"github.com/username/contazen/backend/src/security/validation"
	"github.com/username/contazen/backend/src/services"
	"github.com/username/contazen/backend/src/utils"
)

type AccountHandler struct {
	summaryService services.SummaryService
}

func NewAccountHandler(summaryService services.SummaryService) *AccountHandler {
	return &AccountHandler{summaryService: summaryService}
}

type accountPayload struct {
	Name           string `json:"name"`
	BankName       string `json:"bank_name"`
	InitialBalance string `json:"initial_balance"`
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Name = validation.SanitizeText(payload.Name)
	payload.BankName = validation.SanitizeText(payload.BankName)
	if err := validation.ValidateStringNotEmpty(payload.Name, "name"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(payload.Name, validation.MaxAccountNameLength, "name"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	initial, err := validation.ValidateAmountAllowNegative(payload.InitialBalance, "initial_balance")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	acc := &models.Account{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           payload.Name,
		BankName:       payload.BankName,
		InitialBalance: initial,
		CurrentBalance: initial,
	}
	if err := model.CreateAccount(database.DB, acc); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create account", "error", err)
		sendJSONError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	utils.SendJSON(w, acc, http.StatusCreated)
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	accounts, err := model.ListAccounts(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list accounts", "error", err)
		sendJSONError(w, "Failed to retrieve accounts", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

// HandleGetBalances recomputes every account balance from the transaction
// fold and refreshes the cached column before responding.
func (h *AccountHandler) HandleGetBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	accounts, err := model.ListAccounts(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list accounts for balances", "error", err)
		sendJSONError(w, "Failed to compute balances", http.StatusInternalServerError)
		return
	}
	transactions, err := model.ListTransactions(database.DB, userID, model.TransactionFilter{})
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list transactions for balances", "error", err)
		sendJSONError(w, "Failed to compute balances", http.StatusInternalServerError)
		return
	}

	balances := ledger.AllBalances(accounts, transactions)
	for _, acc := range accounts {
		if err := model.RefreshAccountBalanceCache(database.DB, userID, acc.ID, balances[acc.ID]); err != nil {
			logger.ErrorFromContext(r.Context(), "Failed to refresh balance cache", "accountID", acc.ID, "error", err)
		}
	}

	utils.SendJSON(w, map[string]any{
		"balances":       balances,
		"global_balance": ledger.GlobalBalance(accounts, transactions),
	}, http.StatusOK)
}

func (h *AccountHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	accountID := chi.URLParam(r, "id")

	acc, err := model.GetAccountByID(database.DB, userID, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Account not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to load account for update", "error", err)
		sendJSONError(w, "Failed to update account", http.StatusInternalServerError)
		return
	}

	var payload accountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Name != "" {
		acc.Name = validation.SanitizeText(payload.Name)
	}
	if payload.BankName != "" {
		acc.BankName = validation.SanitizeText(payload.BankName)
	}
	if payload.InitialBalance != "" {
		initial, err := validation.ValidateAmountAllowNegative(payload.InitialBalance, "initial_balance")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		acc.InitialBalance = initial
	}

	if err := model.UpdateAccount(database.DB, &acc); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to update account", "accountID", accountID, "error", err)
		sendJSONError(w, "Failed to update account", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	utils.SendJSON(w, acc, http.StatusOK)
}

func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	accountID := chi.URLParam(r, "id")

	if err := model.DeleteAccount(database.DB, userID, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Account not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete account", "accountID", accountID, "error", err)
		sendJSONError(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
