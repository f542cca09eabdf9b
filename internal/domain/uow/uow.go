package uow

import (
	"context"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/payment"
)

type Repos struct {
	Loans    loan.Repository
	Payments payment.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
