package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	financeapp "github.com/karkhana-erp/backend/internal/application/finance"
	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/finance"
	"github.com/karkhana-erp/backend/internal/infrastructure/persistence"
)

type postingEnv struct {
	tdb *TestDB
	svc *financeapp.PostingService
}

func newPostingEnv(t *testing.T) *postingEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	return &postingEnv{
		tdb: tdb,
		svc: financeapp.NewPostingService(
			persistence.NewFinanceTransactionScope(tdb.Persistence()), nil, nil, nil, nil),
	}
}

// voucherTotals sums both ledger sides of a single voucher
func (e *postingEnv) voucherTotals(t *testing.T, voucher string) (debit, credit decimal.Decimal) {
	t.Helper()

	var row struct {
		Debit  string
		Credit string
	}
	err := e.tdb.DB.Raw(`
		SELECT COALESCE(SUM(debit), 0)::text AS debit,
		       COALESCE(SUM(credit), 0)::text AS credit
		FROM general_ledgers WHERE voucher_number = ?
	`, voucher).Scan(&row).Error
	require.NoError(t, err)
	return decimal.RequireFromString(row.Debit), decimal.RequireFromString(row.Credit)
}

func TestPostLoanTaken(t *testing.T) {
	env := newPostingEnv(t)
	ctx := context.Background()

	bank := env.tdb.SeedAccount("HDFC", "HDFC Current", account.TypeBank, decimal.NewFromInt(1000))

	resp, err := env.svc.PostFinancialTransaction(ctx, financeapp.PostFinancialTransactionRequest{
		Type:      finance.TransactionTypeLoanTaken,
		PartyName: "Gupta Finance",
		AccountID: bank.ID,
		Amount:    decimal.NewFromInt(5000),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.TransactionNumber, "FT-"))
	assert.True(t, strings.HasPrefix(resp.VoucherNumber, "VCH-"))
	assert.True(t, resp.BankImpact.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 2, resp.LegCount)

	assert.True(t, env.tdb.AccountBalance(bank.ID).Equal(decimal.NewFromInt(6000)))

	debit, credit := env.voucherTotals(t, resp.VoucherNumber)
	assert.True(t, debit.Equal(credit), "voucher out of balance: debit=%s credit=%s", debit, credit)
	assert.True(t, debit.Equal(decimal.NewFromInt(5000)))
}

func TestPostRepaymentSplitsPrincipalAndInterest(t *testing.T) {
	env := newPostingEnv(t)
	ctx := context.Background()

	bank := env.tdb.SeedAccount("HDFC", "HDFC Current", account.TypeBank, decimal.NewFromInt(10000))

	resp, err := env.svc.PostFinancialTransaction(ctx, financeapp.PostFinancialTransactionRequest{
		Type:      finance.TransactionTypeRepayment,
		PartyName: "Gupta Finance",
		AccountID: bank.ID,
		Amount:    decimal.NewFromInt(1100),
		Principal: decimal.NewFromInt(1000),
		Interest:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.True(t, resp.BankImpact.Equal(decimal.NewFromInt(-1100)))
	assert.Equal(t, 3, resp.LegCount, "repayment carries principal, interest and bank legs")

	assert.True(t, env.tdb.AccountBalance(bank.ID).Equal(decimal.NewFromInt(8900)))

	debit, credit := env.voucherTotals(t, resp.VoucherNumber)
	assert.True(t, debit.Equal(credit), "voucher out of balance: debit=%s credit=%s", debit, credit)
}

func TestPostRejectsInactiveAccount(t *testing.T) {
	env := newPostingEnv(t)
	ctx := context.Background()

	bank := env.tdb.SeedAccount("HDFC", "HDFC Current", account.TypeBank, decimal.Zero)
	require.NoError(t, env.tdb.DB.Exec(
		"UPDATE accounts SET status = 'inactive' WHERE id = ?", bank.ID).Error)

	_, err := env.svc.PostFinancialTransaction(ctx, financeapp.PostFinancialTransactionRequest{
		Type:      finance.TransactionTypeBorrowing,
		PartyName: "Hand Loan",
		AccountID: bank.ID,
		Amount:    decimal.NewFromInt(500),
	})
	require.Error(t, err)

	var rows int64
	require.NoError(t, env.tdb.DB.Raw("SELECT COUNT(*) FROM financial_transactions").Scan(&rows).Error)
	assert.Zero(t, rows)
}

func TestVoucherNumbersAreUniquePerPosting(t *testing.T) {
	env := newPostingEnv(t)
	ctx := context.Background()

	bank := env.tdb.SeedAccount("HDFC", "HDFC Current", account.TypeBank, decimal.Zero)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		resp, err := env.svc.PostFinancialTransaction(ctx, financeapp.PostFinancialTransactionRequest{
			Type:      finance.TransactionTypeInvestmentReceived,
			PartyName: "Promoter",
			AccountID: bank.ID,
			Amount:    decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		assert.False(t, seen[resp.VoucherNumber], "voucher %s reused", resp.VoucherNumber)
		seen[resp.VoucherNumber] = true
	}
}
