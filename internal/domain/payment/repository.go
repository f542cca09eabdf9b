package payment

import "context"

type Repository interface {
	// Create appends a payment to its loan's history
	Create(ctx context.Context, p *Payment) error

	// List payments of a loan (numeric FK), oldest first
	ListByLoanID(ctx context.Context, loanID uint64) ([]Payment, error)

	// Get by public payment_id
	GetByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
}
