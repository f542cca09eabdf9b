package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate row-locks the loan for the rest of the transaction
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// ListByAccount returns one page of an account's loans, newest first, and the total count
	ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]Loan, int64, error)
	Save(ctx context.Context, l *Loan) error
}
