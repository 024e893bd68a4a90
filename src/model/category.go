package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/models"
)

const categoryColumns = `id, user_id, name, type, budget_limit, created_at, updated_at`

func scanCategory(scanner interface{ Scan(...any) error }) (models.Category, error) {
	var cat models.Category
	var budgetLimit sql.NullString
	err := scanner.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Type, &budgetLimit, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return models.Category{}, err
	}
	if budgetLimit.Valid {
		cat.BudgetLimit = decimal.NewNullDecimal(parseDecimal(budgetLimit.String))
	}
	return cat, nil
}

func budgetLimitArg(limit decimal.NullDecimal) any {
	if !limit.Valid {
		return nil
	}
	return limit.Decimal.String()
}

func CreateCategory(db *sql.DB, cat *models.Category) error {
	now := time.Now()
	cat.CreatedAt = now
	cat.UpdatedAt = now
	_, err := db.Exec(`
	INSERT INTO categories (id, user_id, name, type, budget_limit, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cat.ID, cat.UserID, cat.Name, cat.Type, budgetLimitArg(cat.BudgetLimit), cat.CreatedAt, cat.UpdatedAt)
	return err
}

func GetCategoryByID(db *sql.DB, userID int64, id string) (models.Category, error) {
	row := db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	return scanCategory(row)
}

func ListCategories(db *sql.DB, userID int64) ([]models.Category, error) {
	rows, err := db.Query(`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func UpdateCategory(db *sql.DB, cat *models.Category) error {
	cat.UpdatedAt = time.Now()
	res, err := db.Exec(`
	UPDATE categories SET name = ?, type = ?, budget_limit = ?, updated_at = ?
	WHERE user_id = ? AND id = ?`,
		cat.Name, cat.Type, budgetLimitArg(cat.BudgetLimit), cat.UpdatedAt, cat.UserID, cat.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// DeleteCategory removes the category only. Transactions referencing it by
// name keep their label and surface as "Uncategorized" in aggregates; there
// is deliberately no cascade.
func DeleteCategory(db *sql.DB, userID int64, id string) error {
	res, err := db.Exec(`DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}
