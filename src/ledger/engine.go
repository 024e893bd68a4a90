// Package ledger computes deterministic balances from a transaction list.
// Every function is a pure fold over its inputs: no I/O, no mutation, no
// retained state. Monetary values are decimals to avoid binary-float drift
// across many small transactions.
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/username/contazen/backend/src/models"
)

// AccountBalance folds the paid transactions referencing the account over its
// initial balance. Income adds, expense subtracts; a transfer subtracts on
// the source side and adds on the destination side. A transfer whose source
// and destination are both the observed account is a no-op (self-transfer
// guard). Unpaid transactions never move a balance.
func AccountBalance(account models.Account, transactions []models.Transaction) decimal.Decimal {
	balance := account.InitialBalance
	for _, tx := range transactions {
		if !tx.IsPaid {
			continue
		}
		outgoing := tx.AccountID != "" && tx.AccountID == account.ID
		incoming := tx.DestinationAccountID != "" && tx.DestinationAccountID == account.ID
		if !outgoing && !incoming {
			continue
		}
		switch tx.Type {
		case models.TypeTransfer:
			if outgoing && incoming {
				continue
			}
			if outgoing {
				balance = balance.Sub(tx.Amount)
			} else {
				balance = balance.Add(tx.Amount)
			}
		case models.TypeIncome:
			balance = balance.Add(tx.Amount)
		case models.TypeExpense:
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}

// AllBalances applies AccountBalance independently per account. There is no
// shared accumulator between accounts.
func AllBalances(accounts []models.Account, transactions []models.Transaction) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(accounts))
	for _, account := range accounts {
		balances[account.ID] = AccountBalance(account, transactions)
	}
	return balances
}

// GlobalBalance sums the per-account balances. Transfers between two tracked
// accounts net to zero here by construction: the source's subtraction is
// exactly offset by the destination's addition.
func GlobalBalance(accounts []models.Account, transactions []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, balance := range AllBalances(accounts, transactions) {
		total = total.Add(balance)
	}
	return total
}
