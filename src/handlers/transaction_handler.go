// backend/src/handlers/transaction_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/username/contazen/backend/src/budget"
	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
	"github.com/username/contazen/backend/src/security/validation"
	"github.com/username/contazen/backend/src/services"
	"github.com/username/contazen/backend/src/utils"
)

type TransactionHandler struct {
	summaryService services.SummaryService
}

func NewTransactionHandler(summaryService services.SummaryService) *TransactionHandler {
	return &TransactionHandler{summaryService: summaryService}
}

// Optional fields are pointers so an update can tell an absent field (keep
// the stored value) from an explicit empty one (clear it).
type transactionPayload struct {
	Date                 string  `json:"date"`
	DueDate              *string `json:"due_date"`
	Description          string  `json:"description"`
	Amount               string  `json:"amount"`
	Type                 string  `json:"type"`
	Category             *string `json:"category"`
	IsPaid               *bool   `json:"is_paid"`
	Recurrence           *string `json:"recurrence"`
	AccountID            *string `json:"account_id"`
	DestinationAccountID *string `json:"destination_account_id"`
}

func strField(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// buildTransaction validates and assembles a ledger transaction from the
// request payload. Ownership of referenced accounts is checked here so a
// user cannot link transactions to another user's accounts.
func buildTransaction(userID int64, payload transactionPayload) (models.Transaction, int, error) {
	txType := models.TransactionType(payload.Type)
	if !txType.IsValid() {
		return models.Transaction{}, http.StatusBadRequest, errors.New("type must be income, expense or transfer")
	}

	payload.Description = validation.SanitizeText(payload.Description)
	if err := validation.ValidateStringNotEmpty(payload.Description, "description"); err != nil {
		return models.Transaction{}, http.StatusBadRequest, err
	}
	if err := validation.ValidateStringMaxLength(payload.Description, validation.MaxDescriptionLength, "description"); err != nil {
		return models.Transaction{}, http.StatusBadRequest, err
	}

	amount, err := validation.ValidateAmount(payload.Amount, "amount")
	if err != nil {
		return models.Transaction{}, http.StatusBadRequest, err
	}

	date := time.Now()
	if payload.Date != "" {
		date, err = validation.ValidateISODate(payload.Date, "date")
		if err != nil {
			return models.Transaction{}, http.StatusBadRequest, err
		}
	}

	var dueDate *time.Time
	if s := strField(payload.DueDate); s != "" {
		d, err := validation.ValidateISODate(s, "due_date")
		if err != nil {
			return models.Transaction{}, http.StatusBadRequest, err
		}
		dueDate = &d
	}

	accountID := strField(payload.AccountID)
	destinationAccountID := strField(payload.DestinationAccountID)
	if txType == models.TypeTransfer {
		if accountID == "" || destinationAccountID == "" {
			return models.Transaction{}, http.StatusBadRequest, errors.New("transfers require account_id and destination_account_id")
		}
	}
	for _, accID := range []string{accountID, destinationAccountID} {
		if accID == "" {
			continue
		}
		if _, err := model.GetAccountByID(database.DB, userID, accID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.Transaction{}, http.StatusBadRequest, errors.New("referenced account not found")
			}
			return models.Transaction{}, http.StatusInternalServerError, err
		}
	}

	recurrence := strField(payload.Recurrence)
	if recurrence != "" {
		switch models.RecurrenceFrequency(recurrence) {
		case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
		default:
			return models.Transaction{}, http.StatusBadRequest, errors.New("invalid recurrence frequency")
		}
	}

	// An obligation with a future due date defaults to unsettled.
	isPaid := dueDate == nil
	if payload.IsPaid != nil {
		isPaid = *payload.IsPaid
	}

	return models.Transaction{
		ID:                   uuid.New().String(),
		UserID:               userID,
		Date:                 date,
		DueDate:              dueDate,
		Description:          payload.Description,
		Amount:               amount,
		Type:                 txType,
		Category:             validation.SanitizeText(strField(payload.Category)),
		Status:               models.StatusConfirmed,
		IsPaid:               isPaid,
		Source:               models.SourceManual,
		Recurrence:           models.RecurrenceFrequency(recurrence),
		AccountID:            accountID,
		DestinationAccountID: destinationAccountID,
	}, http.StatusOK, nil
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, status, err := buildTransaction(userID, payload)
	if err != nil {
		if status == http.StatusInternalServerError {
			logger.ErrorFromContext(r.Context(), "Failed to validate transaction", "error", err)
			sendJSONError(w, "Failed to create transaction", status)
			return
		}
		sendJSONError(w, err.Error(), status)
		return
	}

	if err := model.CreateTransaction(database.DB, &tx); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create transaction", "error", err)
		sendJSONError(w, "Failed to create transaction", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	utils.SendJSON(w, tx, http.StatusCreated)
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	filter := model.TransactionFilter{
		AccountID: r.URL.Query().Get("account_id"),
		Category:  r.URL.Query().Get("category"),
		Type:      models.TransactionType(r.URL.Query().Get("type")),
	}
	if v := r.URL.Query().Get("is_paid"); v != "" {
		paid := v == "true" || v == "1"
		filter.IsPaid = &paid
	}
	if v := r.URL.Query().Get("month"); v != "" {
		ref, err := time.Parse("2006-01", v)
		if err != nil {
			sendJSONError(w, "month must be in YYYY-MM format", http.StatusBadRequest)
			return
		}
		filter.From, filter.To = budget.MonthWindow(ref)
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := validation.ValidateISODate(v, "from")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.From = from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := validation.ValidateISODate(v, "to")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.To = to
	}

	transactions, err := model.ListTransactions(database.DB, userID, filter)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list transactions", "error", err)
		sendJSONError(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, transactions, http.StatusOK)
}

func (h *TransactionHandler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	txID := chi.URLParam(r, "id")

	existing, err := model.GetTransactionByID(database.DB, userID, txID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to load transaction for update", "error", err)
		sendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Missing fields keep the stored value; an explicit empty string clears
	// the optional ones (due date, category, recurrence, account links).
	if payload.Type == "" {
		payload.Type = string(existing.Type)
	}
	if payload.Description == "" {
		payload.Description = existing.Description
	}
	if payload.Amount == "" {
		payload.Amount = existing.Amount.String()
	}
	if payload.Date == "" {
		payload.Date = existing.Date.Format(time.RFC3339)
	}
	if payload.DueDate == nil && existing.DueDate != nil {
		stored := existing.DueDate.Format(time.RFC3339)
		payload.DueDate = &stored
	}
	if payload.Category == nil {
		payload.Category = &existing.Category
	}
	if payload.Recurrence == nil {
		stored := string(existing.Recurrence)
		payload.Recurrence = &stored
	}
	if payload.AccountID == nil {
		payload.AccountID = &existing.AccountID
	}
	if payload.DestinationAccountID == nil {
		payload.DestinationAccountID = &existing.DestinationAccountID
	}
	if payload.IsPaid == nil {
		payload.IsPaid = &existing.IsPaid
	}

	updated, status, err := buildTransaction(userID, payload)
	if err != nil {
		if status == http.StatusInternalServerError {
			logger.ErrorFromContext(r.Context(), "Failed to validate transaction update", "error", err)
			sendJSONError(w, "Failed to update transaction", status)
			return
		}
		sendJSONError(w, err.Error(), status)
		return
	}

	updated.ID = existing.ID
	updated.Status = existing.Status
	updated.Source = existing.Source
	updated.CreatedAt = existing.CreatedAt

	if err := model.UpdateTransaction(database.DB, &updated); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to update transaction", "transactionID", txID, "error", err)
		sendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	utils.SendJSON(w, updated, http.StatusOK)
}

type payPayload struct {
	IsPaid *bool `json:"is_paid"`
}

// HandlePayTransaction flips the settlement flag. Paying an obligation is
// the moment it starts counting toward balances.
func (h *TransactionHandler) HandlePayTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	txID := chi.URLParam(r, "id")

	paid := true
	var payload payPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && payload.IsPaid != nil {
		paid = *payload.IsPaid
	}

	if err := model.MarkTransactionPaid(database.DB, userID, txID, paid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to mark transaction paid", "transactionID", txID, "error", err)
		sendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	tx, err := model.GetTransactionByID(database.DB, userID, txID)
	if err != nil {
		sendJSONError(w, "Failed to reload transaction", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

type reviewPayload struct {
	Status string `json:"status"`
}

// HandleReviewTransaction moves a transaction through the audit lifecycle.
// Review never touches IsPaid; a rejected line item can still be settled
// money, and vice versa.
func (h *TransactionHandler) HandleReviewTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	txID := chi.URLParam(r, "id")

	var payload reviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	status := models.AuditStatus(payload.Status)
	if !status.IsValid() {
		sendJSONError(w, "status must be pending_audit, confirmed or rejected", http.StatusBadRequest)
		return
	}

	if err := model.SetTransactionStatus(database.DB, userID, txID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to set transaction status", "transactionID", txID, "error", err)
		sendJSONError(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	tx, err := model.GetTransactionByID(database.DB, userID, txID)
	if err != nil {
		sendJSONError(w, "Failed to reload transaction", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	txID := chi.URLParam(r, "id")

	if err := model.DeleteTransaction(database.DB, userID, txID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete transaction", "transactionID", txID, "error", err)
		sendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
