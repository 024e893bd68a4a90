package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/contazen/backend/src/ledger"
	"github.com/username/contazen/backend/src/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err, "bad decimal literal %q", s)
	return d
}

func account(t *testing.T, id, initial string) models.Account {
	t.Helper()
	return models.Account{ID: id, Name: "Conta " + id, InitialBalance: dec(t, initial)}
}

func TestAccountBalance_EmptyLedgerEqualsInitialBalance(t *testing.T) {
	acc := account(t, "acc-1", "1234.56")
	got := ledger.AccountBalance(acc, nil)
	assert.True(t, got.Equal(dec(t, "1234.56")), "got %s", got)
}

func TestAccountBalance_PendingExpenseIsExcluded(t *testing.T) {
	acc := account(t, "acc-1", "1000")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeExpense, Amount: dec(t, "200"), IsPaid: true, AccountID: "acc-1"},
		{ID: "t2", Type: models.TypeExpense, Amount: dec(t, "9999"), IsPaid: false, AccountID: "acc-1"},
	}
	got := ledger.AccountBalance(acc, txs)
	assert.True(t, got.Equal(dec(t, "800")), "got %s", got)
}

func TestAccountBalance_IncomeAddsExpenseSubtracts(t *testing.T) {
	acc := account(t, "acc-1", "100.00")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeIncome, Amount: dec(t, "50.25"), IsPaid: true, AccountID: "acc-1"},
		{ID: "t2", Type: models.TypeExpense, Amount: dec(t, "30.10"), IsPaid: true, AccountID: "acc-1"},
		{ID: "t3", Type: models.TypeIncome, Amount: dec(t, "10"), IsPaid: true, AccountID: "acc-other"},
	}
	got := ledger.AccountBalance(acc, txs)
	assert.True(t, got.Equal(dec(t, "120.15")), "got %s", got)
}

func TestAccountBalance_TransferMovesFundsBetweenAccounts(t *testing.T) {
	a := account(t, "A", "500")
	b := account(t, "B", "0")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeTransfer, Amount: dec(t, "300"), IsPaid: true, AccountID: "A", DestinationAccountID: "B"},
	}

	assert.True(t, ledger.AccountBalance(a, txs).Equal(dec(t, "200")))
	assert.True(t, ledger.AccountBalance(b, txs).Equal(dec(t, "300")))
	assert.True(t, ledger.GlobalBalance([]models.Account{a, b}, txs).Equal(dec(t, "500")))
}

func TestAccountBalance_SelfTransferIsNoOp(t *testing.T) {
	acc := account(t, "A", "500")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeTransfer, Amount: dec(t, "300"), IsPaid: true, AccountID: "A", DestinationAccountID: "A"},
	}
	got := ledger.AccountBalance(acc, txs)
	assert.True(t, got.Equal(dec(t, "500")), "self-transfer must not double-count, got %s", got)
}

func TestAccountBalance_UnlinkedTransactionsDoNotMatchAnyAccount(t *testing.T) {
	acc := account(t, "", "100")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeExpense, Amount: dec(t, "40"), IsPaid: true},
	}
	got := ledger.AccountBalance(acc, txs)
	assert.True(t, got.Equal(dec(t, "100")), "got %s", got)
}

func TestAccountBalance_ZeroValueAmountDefaultsToZero(t *testing.T) {
	// A transaction whose amount was never populated folds as zero rather
	// than erroring or producing NaN.
	acc := account(t, "acc-1", "100")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeExpense, IsPaid: true, AccountID: "acc-1"},
	}
	got := ledger.AccountBalance(acc, txs)
	assert.True(t, got.Equal(dec(t, "100")), "got %s", got)
}

func TestAccountBalance_IsPure(t *testing.T) {
	acc := account(t, "acc-1", "250.50")
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeIncome, Amount: dec(t, "10.01"), IsPaid: true, AccountID: "acc-1"},
		{ID: "t2", Type: models.TypeExpense, Amount: dec(t, "3.33"), IsPaid: true, AccountID: "acc-1"},
	}

	first := ledger.AccountBalance(acc, txs)
	second := ledger.AccountBalance(acc, txs)
	assert.True(t, first.Equal(second))
	// Inputs must not have been mutated.
	assert.True(t, acc.InitialBalance.Equal(dec(t, "250.50")))
	assert.True(t, txs[0].Amount.Equal(dec(t, "10.01")))
}

func TestGlobalBalance_EqualsSumOfAllBalances(t *testing.T) {
	accounts := []models.Account{
		account(t, "A", "100"),
		account(t, "B", "200.20"),
		account(t, "C", "-50"),
	}
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeIncome, Amount: dec(t, "75.05"), IsPaid: true, AccountID: "A"},
		{ID: "t2", Type: models.TypeExpense, Amount: dec(t, "20"), IsPaid: true, AccountID: "B"},
		{ID: "t3", Type: models.TypeTransfer, Amount: dec(t, "33.33"), IsPaid: true, AccountID: "B", DestinationAccountID: "C"},
	}

	sum := decimal.Zero
	for _, b := range ledger.AllBalances(accounts, txs) {
		sum = sum.Add(b)
	}
	assert.True(t, sum.Equal(ledger.GlobalBalance(accounts, txs)))
}

func TestGlobalBalance_InternalTransferNetsToZero(t *testing.T) {
	accounts := []models.Account{
		account(t, "A", "1000"),
		account(t, "B", "500"),
	}
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeIncome, Amount: dec(t, "100"), IsPaid: true, AccountID: "A"},
	}

	before := ledger.GlobalBalance(accounts, txs)

	txs = append(txs, models.Transaction{
		ID: "t2", Type: models.TypeTransfer, Amount: dec(t, "250"), IsPaid: true,
		AccountID: "A", DestinationAccountID: "B",
	})
	after := ledger.GlobalBalance(accounts, txs)

	assert.True(t, before.Equal(after), "before=%s after=%s", before, after)
}

func TestAccountBalance_ManySmallAmountsStayExact(t *testing.T) {
	// 0.1 added a thousand times is exactly 100 with decimals; binary floats
	// would have drifted here.
	acc := account(t, "acc-1", "0")
	var txs []models.Transaction
	for i := 0; i < 1000; i++ {
		txs = append(txs, models.Transaction{
			Type: models.TypeIncome, Amount: dec(t, "0.1"), IsPaid: true, AccountID: "acc-1",
		})
	}
	got := ledger.AccountBalance(acc, txs)
	assert.True(t, got.Equal(dec(t, "100")), "got %s", got)
}
