package loan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// toleranceFactor lets a payment exceed the balance by 10% to absorb rounding
// and the interest of the final period.
var toleranceFactor = decimal.RequireFromString("1.1")

type Validation struct {
	Accepted         bool
	SuggestedPayment decimal.Decimal
}

// MaxPayment is the largest regular payment the loan accepts right now.
func MaxPayment(l *Loan) decimal.Decimal {
	return l.RemainingBalance.Mul(toleranceFactor)
}

// ValidatePayment checks a requested amount against the current balance.
// An oversized amount is rejected with a *PaymentRejectedError carrying the
// amount a payoff would need instead.
func ValidatePayment(l *Loan, amount decimal.Decimal) (Validation, error) {
	if err := checkMutable(l); err != nil {
		return Validation{}, err
	}
	if !amount.IsPositive() {
		return Validation{}, fmt.Errorf("%w: amount must be > 0", ErrInvalidPaymentAmount)
	}
	if amount.LessThanOrEqual(MaxPayment(l)) {
		return Validation{Accepted: true}, nil
	}

	rate, err := l.PeriodicRate()
	if err != nil {
		return Validation{}, err
	}
	suggested := l.RemainingBalance.Add(AccrueInterest(l.RemainingBalance, rate))
	return Validation{SuggestedPayment: suggested}, &PaymentRejectedError{
		Requested:        amount,
		SuggestedPayment: suggested,
	}
}
