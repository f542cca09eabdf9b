package loan

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrAlreadyPaidOff       = errors.New("loan already paid off")
	ErrInvalidDate          = errors.New("invalid date")
	ErrBusy                 = errors.New("loan is busy, retry later")
	ErrNotFound             = errors.New("loan not found")
)

// PaymentRejectedError is returned when a payment exceeds the tolerance band.
// It unwraps to ErrInvalidPaymentAmount.
type PaymentRejectedError struct {
	Requested        decimal.Decimal
	SuggestedPayment decimal.Decimal
}

func (e *PaymentRejectedError) Error() string {
	return "payment of " + e.Requested.StringFixed(2) +
		" exceeds remaining balance; pay off the loan with " + e.SuggestedPayment.StringFixed(2) + " instead"
}

func (e *PaymentRejectedError) Unwrap() error { return ErrInvalidPaymentAmount }
