package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/payment"
	"loan-ledger/internal/domain/uow"
)

func TestStore_LoanTxCommitsTogether(t *testing.T) {
	s := New()
	seeded := s.Seed(loan.Loan{LoanID: "L1", AccountID: "A1", RemainingBalance: decimal.NewFromInt(100)})

	err := s.WithinLoanTx(context.Background(), "L1", func(r uow.Repos, l *loan.Loan) error {
		l.RemainingBalance = decimal.NewFromInt(60)
		require.NoError(t, r.Loans.Save(context.Background(), l))
		require.NoError(t, r.Payments.Create(context.Background(), &payment.Payment{PaymentID: "P1", LoanID: l.ID}))

		got, ok := s.Loan("L1")
		require.True(t, ok)
		assert.True(t, got.RemainingBalance.Equal(decimal.NewFromInt(100)), "uncommitted write visible")
		assert.Empty(t, s.Payments())
		return nil
	})
	require.NoError(t, err)

	got, _ := s.Loan("L1")
	assert.True(t, got.RemainingBalance.Equal(decimal.NewFromInt(60)))
	rows, err := s.Repos().Payments.ListByLoanID(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P1", rows[0].PaymentID)
}

func TestStore_LoanTxRollsBack(t *testing.T) {
	s := New()
	s.Seed(loan.Loan{LoanID: "L1", RemainingBalance: decimal.NewFromInt(100)})
	boom := errors.New("boom")

	err := s.WithinLoanTx(context.Background(), "L1", func(r uow.Repos, l *loan.Loan) error {
		l.RemainingBalance = decimal.Zero
		_ = r.Loans.Save(context.Background(), l)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Loan("L1")
	assert.True(t, got.RemainingBalance.Equal(decimal.NewFromInt(100)))
}

func TestStore_MissingLoan(t *testing.T) {
	err := New().WithinLoanTx(context.Background(), "nope", func(uow.Repos, *loan.Loan) error { return nil })
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = New().Repos().Payments.GetByPaymentID(context.Background(), "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStore_ListByAccountPages(t *testing.T) {
	s := New()
	repos := s.Repos()
	for _, acct := range []string{"A", "A", "B", "A"} {
		require.NoError(t, repos.Loans.Create(context.Background(), &loan.Loan{LoanID: acct + string(rune('0'+len(s.loans))), AccountID: acct}))
	}

	page, total, err := repos.Loans.ListByAccount(context.Background(), "A", 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Greater(t, page[0].ID, page[1].ID, "newest first")

	page, _, err = repos.Loans.ListByAccount(context.Background(), "A", 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}
