package model

import (
	"database/sql"
	"time"

	"github.com/username/contazen/backend/src/models"
)

const stagedColumns = `id, user_id, session_id, description, amount, type, category,
	due_date, recurrence, response_message, created_at`

func scanStaged(scanner interface{ Scan(...any) error }) (models.StagedTransaction, error) {
	var st models.StagedTransaction
	var amount string
	var dueDate sql.NullTime
	var recurrence sql.NullString

	err := scanner.Scan(&st.ID, &st.UserID, &st.SessionID, &st.Description, &amount,
		&st.Type, &st.Category, &dueDate, &recurrence, &st.ResponseMessage, &st.CreatedAt)
	if err != nil {
		return models.StagedTransaction{}, err
	}

	st.Amount = parseDecimal(amount)
	if dueDate.Valid {
		t := dueDate.Time
		st.DueDate = &t
	}
	st.Recurrence = models.RecurrenceFrequency(recurrence.String)
	return st, nil
}

func CreateStagedTransaction(db *sql.DB, st *models.StagedTransaction) error {
	st.CreatedAt = time.Now()
	_, err := db.Exec(`
	INSERT INTO staged_transactions (id, user_id, session_id, description, amount, type, category,
		due_date, recurrence, response_message, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.UserID, st.SessionID, st.Description, st.Amount.String(), st.Type, st.Category,
		nullableTime(st.DueDate), nullableString(string(st.Recurrence)), st.ResponseMessage, st.CreatedAt)
	return err
}

func GetStagedTransactionByID(db *sql.DB, userID int64, id string) (models.StagedTransaction, error) {
	row := db.QueryRow(`SELECT `+stagedColumns+` FROM staged_transactions WHERE user_id = ? AND id = ?`, userID, id)
	return scanStaged(row)
}

func ListStagedTransactions(db *sql.DB, userID int64) ([]models.StagedTransaction, error) {
	rows, err := db.Query(`SELECT `+stagedColumns+` FROM staged_transactions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	staged := []models.StagedTransaction{}
	for rows.Next() {
		st, err := scanStaged(rows)
		if err != nil {
			return nil, err
		}
		staged = append(staged, st)
	}
	return staged, rows.Err()
}

func DeleteStagedTransaction(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM staged_transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

const ruleColumns = `id, user_id, keyword, category, created_at`

func CreateKeywordRule(db *sql.DB, rule *models.KeywordRule) error {
	rule.CreatedAt = time.Now()
	_, err := db.Exec(`
	INSERT INTO keyword_rules (id, user_id, keyword, category, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Keyword, rule.Category, rule.CreatedAt)
	return err
}

func ListKeywordRules(db *sql.DB, userID int64) ([]models.KeywordRule, error) {
	rows, err := db.Query(`SELECT `+ruleColumns+` FROM keyword_rules WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []models.KeywordRule{}
	for rows.Next() {
		var rule models.KeywordRule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.Category, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func DeleteKeywordRule(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM keyword_rules WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}
