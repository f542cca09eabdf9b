package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain/payment"
)

// Terms are the borrower supplied inputs a loan is originated from.
type Terms struct {
	Principal            decimal.Decimal
	AnnualInterestRate   decimal.Decimal
	PaymentFrequency     Frequency
	CompoundingFrequency Frequency
	NumberOfPayments     int
	StartDate            time.Time
}

// Originate builds an active loan from its terms. Identity and descriptive
// fields are left for the caller.
func Originate(t Terms) (*Loan, error) {
	sched, err := ComputeSchedule(t.Principal, t.AnnualInterestRate, t.CompoundingFrequency, t.PaymentFrequency, t.NumberOfPayments)
	if err != nil {
		return nil, err
	}
	if t.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidDate)
	}
	start := truncateDay(t.StartDate)
	due := t.PaymentFrequency.Next(start, 1)
	return &Loan{
		Principal:            round2(t.Principal),
		AnnualInterestRate:   t.AnnualInterestRate,
		PaymentFrequency:     t.PaymentFrequency,
		CompoundingFrequency: t.CompoundingFrequency,
		NumberOfPayments:     t.NumberOfPayments,
		PaymentAmount:        sched.PaymentAmount,
		StartDate:            start,
		EndDate:              EndDate(start, t.PaymentFrequency, t.NumberOfPayments),
		Status:               StatusActive,
		AmountPaid:           decimal.Zero,
		RemainingBalance:     round2(t.Principal),
		PaymentsRemaining:    t.NumberOfPayments,
		NextDueDate:          &due,
		StatusUpdatedAt:      start,
	}, nil
}

type PayoffDetails struct {
	FinalPayment  decimal.Decimal
	FinalInterest decimal.Decimal
	TotalPaid     decimal.Decimal
	Savings       decimal.Decimal
}

// Transition is the outcome of a ledger operation. Loan is an updated copy;
// the loan passed in is never modified.
type Transition struct {
	Loan    *Loan
	Payment payment.Payment
	Payoff  *PayoffDetails
}

// ApplyPayment books a regular installment against the loan.
//
// One period of interest is charged on the outstanding balance. The payment
// covers interest first; any interest it cannot cover is reported as unpaid
// and is not added to the balance.
func ApplyPayment(l *Loan, amount decimal.Decimal, date time.Time) (Transition, error) {
	if err := checkMutable(l); err != nil {
		return Transition{}, err
	}
	if !amount.IsPositive() {
		return Transition{}, fmt.Errorf("%w: amount must be > 0", ErrInvalidPaymentAmount)
	}
	amount = round2(amount)
	date = truncateDay(date)
	if err := checkDate(l, date); err != nil {
		return Transition{}, err
	}
	sched, err := l.schedule()
	if err != nil {
		return Transition{}, err
	}

	accrued := AccrueInterest(l.RemainingBalance, sched.PeriodicRate)
	interest := decimal.Min(accrued, amount)
	principalPaid := amount.Sub(interest)

	next := l.clone()
	balance := l.RemainingBalance.Sub(principalPaid)
	overpayment := decimal.Zero
	if balance.IsNegative() {
		overpayment = balance.Neg()
		balance = decimal.Zero
	}
	// The last scheduled installment absorbs the cents left by rounding the
	// installment, as the last row of Amortize does.
	if balance.IsPositive() && l.PaymentsRemaining == 1 && balance.LessThanOrEqual(roundingResidue(l)) {
		amount = amount.Add(balance)
		principalPaid = principalPaid.Add(balance)
		balance = decimal.Zero
	}
	next.RemainingBalance = balance
	next.AmountPaid = l.AmountPaid.Add(amount)
	next.LastPaymentDate = &date

	p := payment.Payment{
		Kind:           payment.KindRegular,
		Amount:         amount,
		Interest:       interest,
		PrincipalPaid:  principalPaid,
		UnpaidInterest: accrued.Sub(interest),
		Overpayment:    overpayment,
		BalanceAfter:   balance,
		PaymentDate:    date,
	}

	if balance.IsZero() {
		projected := projectedInterest(l.RemainingBalance, sched, l.PaymentsRemaining)
		details := settle(next, date, amount, interest, projected)
		return Transition{Loan: next, Payment: p, Payoff: &details}, nil
	}

	if next.PaymentsRemaining > 0 {
		next.PaymentsRemaining--
	}
	due := l.DueDate(l.DueIndex() + 1)
	next.NextDueDate = &due
	return Transition{Loan: next, Payment: p}, nil
}

// Payoff settles the loan early. Interest is charged only for the time elapsed
// since the last payment (or the start date) rather than a full period.
func Payoff(l *Loan, asOf time.Time) (Transition, error) {
	if err := checkMutable(l); err != nil {
		return Transition{}, err
	}
	asOf = truncateDay(asOf)
	if err := checkDate(l, asOf); err != nil {
		return Transition{}, err
	}
	sched, err := l.schedule()
	if err != nil {
		return Transition{}, err
	}

	rate := ProratedRate(sched.PeriodicRate, l.PaymentFrequency, l.accrualAnchor(), asOf)
	finalInterest := AccrueInterest(l.RemainingBalance, rate)
	finalPayment := l.RemainingBalance.Add(finalInterest)
	projected := projectedInterest(l.RemainingBalance, sched, l.PaymentsRemaining)

	next := l.clone()
	next.RemainingBalance = decimal.Zero
	next.AmountPaid = l.AmountPaid.Add(finalPayment)
	next.LastPaymentDate = &asOf
	details := settle(next, asOf, finalPayment, finalInterest, projected)

	p := payment.Payment{
		Kind:           payment.KindPayoff,
		Amount:         finalPayment,
		Interest:       finalInterest,
		PrincipalPaid:  l.RemainingBalance,
		UnpaidInterest: decimal.Zero,
		Overpayment:    decimal.Zero,
		BalanceAfter:   decimal.Zero,
		PaymentDate:    asOf,
	}
	return Transition{Loan: next, Payment: p, Payoff: &details}, nil
}

// settle moves a loan whose balance reached zero into its terminal state.
func settle(l *Loan, date time.Time, finalPayment, finalInterest, projected decimal.Decimal) PayoffDetails {
	l.Status = StatusPaidOff
	l.StatusUpdatedAt = date
	l.PaymentsRemaining = 0
	l.NextDueDate = nil

	savings := projected.Sub(finalInterest)
	if savings.IsNegative() {
		savings = decimal.Zero
	}
	return PayoffDetails{
		FinalPayment:  finalPayment,
		FinalInterest: finalInterest,
		TotalPaid:     l.AmountPaid,
		Savings:       savings,
	}
}

func checkMutable(l *Loan) error {
	if l == nil {
		return ErrNotFound
	}
	if l.Status == StatusPaidOff {
		return ErrAlreadyPaidOff
	}
	if l.Status != StatusActive {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, l.Status)
	}
	return nil
}

func checkDate(l *Loan, date time.Time) error {
	if date.Before(truncateDay(l.StartDate)) {
		return fmt.Errorf("%w: %s is before the loan start date", ErrInvalidDate, date.Format(time.DateOnly))
	}
	if l.LastPaymentDate != nil && date.Before(truncateDay(*l.LastPaymentDate)) {
		return fmt.Errorf("%w: %s is before the last recorded payment", ErrInvalidDate, date.Format(time.DateOnly))
	}
	return nil
}

func (l *Loan) schedule() (Schedule, error) {
	rate, err := l.PeriodicRate()
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{PaymentAmount: l.PaymentAmount, PeriodicRate: rate}, nil
}

// roundingResidue is the most a full term of cent-rounded installments can
// fall short of the balance: one cent per installment.
func roundingResidue(l *Loan) decimal.Decimal {
	return decimal.New(int64(l.NumberOfPayments), -2)
}

// DueDate is the k-th installment date, counted from the start date so that
// month-end starts clamp per month instead of drifting.
func (l *Loan) DueDate(k int) time.Time {
	return l.PaymentFrequency.Next(truncateDay(l.StartDate), k)
}

// DueIndex is the installment number NextDueDate points at.
func (l *Loan) DueIndex() int {
	if l.NextDueDate == nil || l.PaymentFrequency.Months() == 0 {
		return 1
	}
	sy, sm, _ := l.StartDate.UTC().Date()
	dy, dm, _ := l.NextDueDate.UTC().Date()
	months := (dy-sy)*12 + int(dm-sm)
	if k := months / l.PaymentFrequency.Months(); k > 0 {
		return k
	}
	return 1
}
