// backend/src/handlers/category_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/budget"
	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
	"github.com/username/contazen/backend/src/security/validation"
	"github.com/username/contazen/backend/src/services"
	"github.com/username/contazen/backend/src/utils"
)

type CategoryHandler struct {
	summaryService services.SummaryService
}

func NewCategoryHandler(summaryService services.SummaryService) *CategoryHandler {
	return &CategoryHandler{summaryService: summaryService}
}

type categoryPayload struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	BudgetLimit *string `json:"budget_limit"`
}

func (h *CategoryHandler) decodeCategory(userID int64, payload categoryPayload) (models.Category, error) {
	name := validation.SanitizeText(payload.Name)
	if err := validation.ValidateStringNotEmpty(name, "name"); err != nil {
		return models.Category{}, err
	}
	if err := validation.ValidateStringMaxLength(name, validation.MaxCategoryNameLength, "name"); err != nil {
		return models.Category{}, err
	}

	catType := models.CategoryType(payload.Type)
	if !catType.IsValid() {
		return models.Category{}, errors.New("type must be income, expense or both")
	}

	var limit decimal.NullDecimal
	if payload.BudgetLimit != nil && *payload.BudgetLimit != "" {
		amount, err := validation.ValidateAmount(*payload.BudgetLimit, "budget_limit")
		if err != nil {
			return models.Category{}, err
		}
		limit = decimal.NewNullDecimal(amount)
	}
	// A budget only makes sense where expenses can land.
	if limit.Valid && !catType.AllowsExpense() {
		return models.Category{}, errors.New("budget_limit requires an expense or both category")
	}

	return models.Category{
		UserID:      userID,
		Name:        name,
		Type:        catType,
		BudgetLimit: limit,
	}, nil
}

func (h *CategoryHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cat, err := h.decodeCategory(userID, payload)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cat.ID = uuid.New().String()

	if err := model.CreateCategory(database.DB, &cat); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create category", "error", err)
		sendJSONError(w, "Failed to create category (name may already exist)", http.StatusConflict)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	utils.SendJSON(w, cat, http.StatusCreated)
}

func (h *CategoryHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	categories, err := model.ListCategories(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list categories", "error", err)
		sendJSONError(w, "Failed to retrieve categories", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, categories, http.StatusOK)
}

func (h *CategoryHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	categoryID := chi.URLParam(r, "id")

	existing, err := model.GetCategoryByID(database.DB, userID, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to load category for update", "error", err)
		sendJSONError(w, "Failed to update category", http.StatusInternalServerError)
		return
	}

	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		payload.Name = existing.Name
	}
	if payload.Type == "" {
		payload.Type = string(existing.Type)
	}
	if payload.BudgetLimit == nil && existing.BudgetLimit.Valid {
		s := existing.BudgetLimit.Decimal.String()
		payload.BudgetLimit = &s
	}

	cat, err := h.decodeCategory(userID, payload)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	cat.ID = existing.ID
	cat.CreatedAt = existing.CreatedAt

	if err := model.UpdateCategory(database.DB, &cat); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to update category", "categoryID", categoryID, "error", err)
		sendJSONError(w, "Failed to update category", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	utils.SendJSON(w, cat, http.StatusOK)
}

// HandleDeleteCategory removes the category only. Transactions keep their
// label and show up under "Uncategorized" in aggregates.
func (h *CategoryHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	categoryID := chi.URLParam(r, "id")

	if err := model.DeleteCategory(database.DB, userID, categoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Category not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete category", "categoryID", categoryID, "error", err)
		sendJSONError(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}

	h.summaryService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}

type budgetProgressEntry struct {
	CategoryID string          `json:"category_id"`
	Category   string          `json:"category"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percent    decimal.Decimal `json:"percent"`
	Severity   string          `json:"severity"`
}

// HandleBudgetProgress evaluates every budgeted category against the paid
// expenses of the requested month (default: current month).
func (h *CategoryHandler) HandleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	ref := time.Now()
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := time.Parse("2006-01", v)
		if err != nil {
			sendJSONError(w, "month must be in YYYY-MM format", http.StatusBadRequest)
			return
		}
		ref = parsed
	}
	periodStart, periodEnd := budget.MonthWindow(ref)

	categories, err := model.ListCategories(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list categories for budget progress", "error", err)
		sendJSONError(w, "Failed to compute budget progress", http.StatusInternalServerError)
		return
	}
	transactions, err := model.ListTransactions(database.DB, userID, model.TransactionFilter{From: periodStart, To: periodEnd})
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list transactions for budget progress", "error", err)
		sendJSONError(w, "Failed to compute budget progress", http.StatusInternalServerError)
		return
	}

	progress := []budgetProgressEntry{}
	for _, cat := range categories {
		if !cat.BudgetLimit.Valid {
			continue
		}
		p, err := budget.Evaluate(cat.Name, cat.BudgetLimit.Decimal, transactions, periodStart, periodEnd)
		if err != nil {
			// Categories without a meaningful limit are simply skipped.
			continue
		}
		progress = append(progress, budgetProgressEntry{
			CategoryID: cat.ID,
			Category:   cat.Name,
			Limit:      p.Limit,
			Spent:      p.Spent,
			Remaining:  p.Remaining,
			Percent:    p.Percent,
			Severity:   string(p.Severity),
		})
	}

	utils.SendJSON(w, map[string]any{
		"period_start": periodStart,
		"period_end":   periodEnd,
		"progress":     progress,
	}, http.StatusOK)
}
