package model

import (
	"database/sql"
	"strings"
	"time"

	"github.com/username/contazen/backend/src/models"
)

const transactionColumns = `id, user_id, date, due_date, description, amount, type, category,
	status, is_paid, source, recurrence, account_id, destination_account_id, created_at, updated_at`

func scanTransaction(scanner interface{ Scan(...any) error }) (models.Transaction, error) {
	var tx models.Transaction
	var amount string
	var dueDate sql.NullTime
	var recurrence, accountID, destinationAccountID sql.NullString

	err := scanner.Scan(
		&tx.ID, &tx.UserID, &tx.Date, &dueDate, &tx.Description, &amount, &tx.Type, &tx.Category,
		&tx.Status, &tx.IsPaid, &tx.Source, &recurrence, &accountID, &destinationAccountID,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	tx.Amount = parseDecimal(amount)
	if dueDate.Valid {
		t := dueDate.Time
		tx.DueDate = &t
	}
	tx.Recurrence = models.RecurrenceFrequency(recurrence.String)
	tx.AccountID = accountID.String
	tx.DestinationAccountID = destinationAccountID.String
	return tx, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func CreateTransaction(db *sql.DB, tx *models.Transaction) error {
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	_, err := db.Exec(`
	INSERT INTO transactions (id, user_id, date, due_date, description, amount, type, category,
		status, is_paid, source, recurrence, account_id, destination_account_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Date, nullableTime(tx.DueDate), tx.Description, tx.Amount.String(),
		tx.Type, tx.Category, tx.Status, tx.IsPaid, tx.Source,
		nullableString(string(tx.Recurrence)), nullableString(tx.AccountID),
		nullableString(tx.DestinationAccountID), tx.CreatedAt, tx.UpdatedAt)
	return err
}

func GetTransactionByID(db *sql.DB, userID int64, id string) (models.Transaction, error) {
	row := db.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	return scanTransaction(row)
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	AccountID string
	Category  string
	Type      models.TransactionType
	IsPaid    *bool
	From      time.Time
	To        time.Time
}

func ListTransactions(db *sql.DB, userID int64, filter TransactionFilter) ([]models.Transaction, error) {
	var conditions []string
	args := []any{userID}
	conditions = append(conditions, "user_id = ?")

	if filter.AccountID != "" {
		conditions = append(conditions, "(account_id = ? OR destination_account_id = ?)")
		args = append(args, filter.AccountID, filter.AccountID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.IsPaid != nil {
		conditions = append(conditions, "is_paid = ?")
		args = append(args, *filter.IsPaid)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "date < ?")
		args = append(args, filter.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY date DESC, id DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func UpdateTransaction(db *sql.DB, tx *models.Transaction) error {
	tx.UpdatedAt = time.Now()
	res, err := db.Exec(`
	UPDATE transactions SET date = ?, due_date = ?, description = ?, amount = ?, type = ?,
		category = ?, status = ?, is_paid = ?, recurrence = ?, account_id = ?,
		destination_account_id = ?, updated_at = ?
	WHERE user_id = ? AND id = ?`,
		tx.Date, nullableTime(tx.DueDate), tx.Description, tx.Amount.String(), tx.Type,
		tx.Category, tx.Status, tx.IsPaid, nullableString(string(tx.Recurrence)),
		nullableString(tx.AccountID), nullableString(tx.DestinationAccountID), tx.UpdatedAt,
		tx.UserID, tx.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// MarkTransactionPaid flips the settlement flag. This is the axis that moves
// balances; the audit status is untouched.
func MarkTransactionPaid(db *sql.DB, userID int64, id string, paid bool) error {
	res, err := db.Exec(`UPDATE transactions SET is_paid = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		paid, time.Now(), userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// SetTransactionStatus updates the audit lifecycle tag. This is the review
// axis; the settlement flag is untouched.
func SetTransactionStatus(db *sql.DB, userID int64, id string, status models.AuditStatus) error {
	res, err := db.Exec(`UPDATE transactions SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		status, time.Now(), userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

func DeleteTransaction(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}
