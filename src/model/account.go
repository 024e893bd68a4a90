package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/models"
)

// parseDecimal converts a stored decimal string, defaulting to zero on
// missing or malformed values instead of failing the whole read.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

const accountColumns = `id, user_id, name, bank_name, initial_balance, current_balance, created_at, updated_at`

func scanAccount(scanner interface{ Scan(...any) error }) (models.Account, error) {
	var acc models.Account
	var initial, current string
	err := scanner.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.BankName, &initial, &current, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	acc.InitialBalance = parseDecimal(initial)
	acc.CurrentBalance = parseDecimal(current)
	return acc, nil
}

func CreateAccount(db *sql.DB, acc *models.Account) error {
	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	_, err := db.Exec(`
	INSERT INTO accounts (id, user_id, name, bank_name, initial_balance, current_balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.UserID, acc.Name, acc.BankName,
		acc.InitialBalance.String(), acc.CurrentBalance.String(), acc.CreatedAt, acc.UpdatedAt)
	return err
}

func GetAccountByID(db *sql.DB, userID int64, id string) (models.Account, error) {
	row := db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
	return scanAccount(row)
}

func ListAccounts(db *sql.DB, userID int64) ([]models.Account, error) {
	rows, err := db.Query(`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func UpdateAccount(db *sql.DB, acc *models.Account) error {
	acc.UpdatedAt = time.Now()
	res, err := db.Exec(`
	UPDATE accounts SET name = ?, bank_name = ?, initial_balance = ?, updated_at = ?
	WHERE user_id = ? AND id = ?`,
		acc.Name, acc.BankName, acc.InitialBalance.String(), acc.UpdatedAt, acc.UserID, acc.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// RefreshAccountBalanceCache writes a freshly computed balance into the
// denormalized current_balance column. The column is a display cache; reads
// that matter recompute through the ledger engine.
func RefreshAccountBalanceCache(db *sql.DB, userID int64, accountID string, balance decimal.Decimal) error {
	_, err := db.Exec(`UPDATE accounts SET current_balance = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		balance.String(), time.Now(), userID, accountID)
	return err
}

func DeleteAccount(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}
