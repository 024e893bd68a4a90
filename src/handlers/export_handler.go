// backend/src/handlers/export_handler.go
package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/security/validation"
)

type ExportHandler struct{}

func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// HandleExportTransactions streams the full transaction history as CSV.
// Text fields pass through formula-injection sanitization so the file is
// safe to open in a spreadsheet.
func (h *ExportHandler) HandleExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	transactions, err := model.ListTransactions(database.DB, userID, model.TransactionFilter{})
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list transactions for export", "error", err)
		sendJSONError(w, "Failed to export transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	writer := csv.NewWriter(w)
	header := []string{"date", "due_date", "description", "amount", "type", "category", "status", "is_paid", "source", "account_id", "destination_account_id"}
	if err := writer.Write(header); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to write CSV header", "error", err)
		return
	}

	for _, tx := range transactions {
		dueDate := ""
		if tx.DueDate != nil {
			dueDate = tx.DueDate.Format(time.RFC3339)
		}
		record := []string{
			tx.Date.Format(time.RFC3339),
			dueDate,
			validation.SanitizeForFormulaInjection(tx.Description),
			tx.Amount.String(),
			string(tx.Type),
			validation.SanitizeForFormulaInjection(tx.Category),
			string(tx.Status),
			strconv.FormatBool(tx.IsPaid),
			string(tx.Source),
			tx.AccountID,
			tx.DestinationAccountID,
		}
		if err := writer.Write(record); err != nil {
			logger.ErrorFromContext(r.Context(), "Failed to write CSV record", "error", err)
			return
		}
	}
	writer.Flush()
}
