// backend/src/services/assistant_service.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/username/contazen/backend/src/llm"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
	"github.com/username/contazen/backend/src/security/validation"
)

const classifyFailureMessage = "Desculpe, não consegui processar sua mensagem agora. Seu texto não foi perdido — tente novamente em instantes."

type assistantService struct {
	db         *sql.DB
	classifier llm.Classifier
	timeout    time.Duration
	summary    SummaryService

	mu       sync.Mutex
	inFlight map[string]struct{} // userID+sessionID -> one classification at a time
}

func NewAssistantService(db *sql.DB, classifier llm.Classifier, timeout time.Duration, summary SummaryService) AssistantService {
	return &assistantService{
		db:         db,
		classifier: classifier,
		timeout:    timeout,
		summary:    summary,
		inFlight:   make(map[string]struct{}),
	}
}

// acquireSession reserves the single in-flight classification slot for a
// user's session, so two proposals can never race for the same staging turn.
// The slot is scoped per user; session IDs come from clients and may collide.
func (s *assistantService) acquireSession(userID int64, sessionID string) bool {
	key := sessionKey(userID, sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *assistantService) releaseSession(userID int64, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionKey(userID, sessionID))
}

func sessionKey(userID int64, sessionID string) string {
	return fmt.Sprintf("%d:%s", userID, sessionID)
}

func (s *assistantService) HandleMessage(ctx context.Context, userID int64, sessionID, text string, media []byte, mediaMIME string) (AssistantReply, error) {
	if text == "" && len(media) == 0 {
		return AssistantReply{}, ErrNothingToClassify
	}
	if s.classifier == nil {
		return AssistantReply{}, ErrClassifierUnavailable
	}

	if !s.acquireSession(userID, sessionID) {
		return AssistantReply{}, ErrClassificationBusy
	}
	defer s.releaseSession(userID, sessionID)

	incomeCategories, expenseCategories, err := s.loadCategoryNames(userID)
	if err != nil {
		return AssistantReply{}, fmt.Errorf("loading categories for classification: %w", err)
	}
	rules, err := s.loadRules(userID)
	if err != nil {
		return AssistantReply{}, fmt.Errorf("loading keyword rules: %w", err)
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.classifier.Classify(classifyCtx, llm.ClassifyRequest{
		Text:              text,
		Media:             media,
		MediaMIMEType:     mediaMIME,
		IncomeCategories:  incomeCategories,
		ExpenseCategories: expenseCategories,
		UserRules:         rules,
	})
	if err != nil {
		// Classification failure is non-fatal: the user keeps their input and
		// gets an apology; nothing is staged, nothing is persisted.
		logger.L.Warn("Classification failed", "userID", userID, "sessionID", sessionID,
			"timedOut", errors.Is(err, context.DeadlineExceeded), "error", err)
		return AssistantReply{IsTransaction: false, ResponseMessage: classifyFailureMessage}, nil
	}

	if !result.IsTransaction || result.TransactionDetails == nil {
		return AssistantReply{IsTransaction: false, ResponseMessage: result.ResponseMessage}, nil
	}

	// A cancelled classification must not leave a staged proposal behind.
	if ctx.Err() != nil {
		logger.L.Info("Classification completed after caller cancelled; discarding proposal",
			"userID", userID, "sessionID", sessionID)
		return AssistantReply{}, ctx.Err()
	}

	details := result.TransactionDetails
	llm.ApplyUserRules(details, text, rules)

	staged := models.StagedTransaction{
		ID:              uuid.New().String(),
		UserID:          userID,
		SessionID:       sessionID,
		Description:     validation.SanitizeText(details.Description),
		Amount:          details.Amount,
		Type:            models.TransactionType(details.Type),
		Category:        validation.SanitizeText(details.Category),
		Recurrence:      models.RecurrenceFrequency(details.Recurrence),
		ResponseMessage: result.ResponseMessage,
	}
	if details.DueDate != "" {
		if dueDate, err := validation.ValidateISODate(details.DueDate, "dueDate"); err == nil {
			staged.DueDate = &dueDate
		}
	}

	if err := model.CreateStagedTransaction(s.db, &staged); err != nil {
		return AssistantReply{}, fmt.Errorf("staging classified transaction: %w", err)
	}

	logger.L.Info("Staged assistant proposal", "userID", userID, "stagedID", staged.ID,
		"type", staged.Type, "amount", staged.Amount.String())

	return AssistantReply{
		IsTransaction:   true,
		ResponseMessage: result.ResponseMessage,
		Staged:          &staged,
	}, nil
}

func (s *assistantService) ListStaged(userID int64) ([]models.StagedTransaction, error) {
	return model.ListStagedTransactions(s.db, userID)
}

// ConfirmStaged turns a proposal into a ledger transaction. The insert and
// the staging cleanup happen in one DB transaction.
func (s *assistantService) ConfirmStaged(ctx context.Context, userID int64, stagedID, accountID string) (models.Transaction, error) {
	staged, err := model.GetStagedTransactionByID(s.db, userID, stagedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, ErrStagedNotFound
		}
		return models.Transaction{}, err
	}

	// The account link comes from the caller, so it gets the same ownership
	// check a manual transaction goes through.
	if accountID != "" {
		if _, err := model.GetAccountByID(s.db, userID, accountID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.Transaction{}, ErrAccountNotFound
			}
			return models.Transaction{}, fmt.Errorf("checking confirm account: %w", err)
		}
	}

	now := time.Now()
	tx := models.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Date:        now,
		DueDate:     staged.DueDate,
		Description: staged.Description,
		Amount:      staged.Amount,
		Type:        staged.Type,
		Category:    staged.Category,
		Status:      models.StatusConfirmed,
		IsPaid:      staged.DueDate == nil, // an obligation with a due date is not settled yet
		Source:      models.SourceWhatsAppAI,
		Recurrence:  staged.Recurrence,
		AccountID:   accountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("begin confirm transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := dbTx.Rollback(); rbErr != nil {
				logger.L.Error("Error rolling back staged-confirm transaction", "userID", userID, "rollbackError", rbErr)
			}
		}
	}()

	if _, err = dbTx.Exec(`
	INSERT INTO transactions (id, user_id, date, due_date, description, amount, type, category,
		status, is_paid, source, recurrence, account_id, destination_account_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		tx.ID, tx.UserID, tx.Date, nilIfNoTime(tx.DueDate), tx.Description, tx.Amount.String(),
		tx.Type, tx.Category, tx.Status, tx.IsPaid, tx.Source,
		nilIfEmpty(string(tx.Recurrence)), nilIfEmpty(tx.AccountID),
		tx.CreatedAt, tx.UpdatedAt); err != nil {
		return models.Transaction{}, fmt.Errorf("inserting confirmed transaction: %w", err)
	}

	if _, err = dbTx.Exec(`DELETE FROM staged_transactions WHERE user_id = ? AND id = ?`, userID, stagedID); err != nil {
		return models.Transaction{}, fmt.Errorf("removing confirmed staging row: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		return models.Transaction{}, fmt.Errorf("commit confirm transaction: %w", err)
	}
	committed = true

	if s.summary != nil {
		s.summary.InvalidateUserCache(userID)
	}

	logger.L.Info("Confirmed staged transaction into ledger", "userID", userID,
		"stagedID", stagedID, "transactionID", tx.ID)
	return tx, nil
}

func (s *assistantService) DiscardStaged(userID int64, stagedID string) error {
	err := model.DeleteStagedTransaction(s.db, userID, stagedID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStagedNotFound
	}
	return err
}

func (s *assistantService) loadCategoryNames(userID int64) (income []string, expense []string, err error) {
	categories, err := model.ListCategories(s.db, userID)
	if err != nil {
		return nil, nil, err
	}
	for _, cat := range categories {
		switch cat.Type {
		case models.CategoryIncome:
			income = append(income, cat.Name)
		case models.CategoryExpense:
			expense = append(expense, cat.Name)
		case models.CategoryBoth:
			income = append(income, cat.Name)
			expense = append(expense, cat.Name)
		}
	}
	return income, expense, nil
}

func (s *assistantService) loadRules(userID int64) ([]llm.KeywordRule, error) {
	stored, err := model.ListKeywordRules(s.db, userID)
	if err != nil {
		return nil, err
	}
	rules := make([]llm.KeywordRule, 0, len(stored))
	for _, rule := range stored {
		rules = append(rules, llm.KeywordRule{Keyword: rule.Keyword, Category: rule.Category})
	}
	return rules, nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfNoTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
