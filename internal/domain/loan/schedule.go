package loan

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ratePrecision bounds the periodic rate so the same inputs always produce
// the same payment.
const ratePrecision = 10

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

type Schedule struct {
	PaymentAmount decimal.Decimal
	PeriodicRate  decimal.Decimal
}

// ScheduleEntry is one row of an amortization table.
type ScheduleEntry struct {
	Period    int
	DueDate   time.Time
	Payment   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Balance   decimal.Decimal
}

// PeriodicRate converts an annual percentage rate into the effective rate of
// one payment period:
//
//	(1 + annual/100/c)^(c/p) - 1
//
// where c and p are the compounding and payment periods per year.
func PeriodicRate(annualRate decimal.Decimal, compounding, payment Frequency) (decimal.Decimal, error) {
	c, p := compounding.PeriodsPerYear(), payment.PeriodsPerYear()
	if c == 0 || p == 0 {
		return decimal.Zero, fmt.Errorf("%w: unknown frequency %q/%q", ErrInvalidInput, compounding, payment)
	}
	if annualRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: annual rate must be >= 0", ErrInvalidInput)
	}
	if annualRate.IsZero() {
		return decimal.Zero, nil
	}
	nominal := annualRate.Div(hundred).InexactFloat64() / float64(c)
	r := math.Pow(1+nominal, float64(c)/float64(p)) - 1
	return decimal.NewFromFloat(r).Round(ratePrecision), nil
}

// ComputeSchedule derives the level installment for a loan. The result is
// rounded once, to cents, half-up.
func ComputeSchedule(principal, annualRate decimal.Decimal, compounding, payment Frequency, numberOfPayments int) (Schedule, error) {
	if numberOfPayments <= 0 {
		return Schedule{}, fmt.Errorf("%w: number of payments must be > 0", ErrInvalidInput)
	}
	if !principal.IsPositive() {
		return Schedule{}, fmt.Errorf("%w: principal must be > 0", ErrInvalidInput)
	}
	rate, err := PeriodicRate(annualRate, compounding, payment)
	if err != nil {
		return Schedule{}, err
	}

	n := decimal.NewFromInt(int64(numberOfPayments))
	if rate.IsZero() {
		return Schedule{PaymentAmount: round2(principal.Div(n)), PeriodicRate: rate}, nil
	}

	r := rate.InexactFloat64()
	discount := 1 - math.Pow(1+r, -float64(numberOfPayments))
	amount := principal.InexactFloat64() * r / discount
	return Schedule{PaymentAmount: round2(decimal.NewFromFloat(amount)), PeriodicRate: rate}, nil
}

// EndDate is the due date of the last scheduled installment.
func EndDate(start time.Time, payment Frequency, numberOfPayments int) time.Time {
	return payment.Next(start, numberOfPayments)
}

// Amortize lays out the remaining installments starting from balance. The
// first row is installment firstPeriod of a loan started on start. The last
// row settles whatever the rounded installment leaves behind.
func Amortize(balance decimal.Decimal, s Schedule, periods int, start time.Time, firstPeriod int, payment Frequency) []ScheduleEntry {
	if periods <= 0 || !balance.IsPositive() {
		return nil
	}
	out := make([]ScheduleEntry, 0, periods)
	remaining := balance
	for i := 1; i <= periods && remaining.IsPositive(); i++ {
		interest := AccrueInterest(remaining, s.PeriodicRate)
		principal := s.PaymentAmount.Sub(interest)
		if i == periods || principal.GreaterThan(remaining) {
			principal = remaining
		}
		if principal.IsNegative() {
			principal = decimal.Zero
		}
		remaining = remaining.Sub(principal)
		out = append(out, ScheduleEntry{
			Period:    i,
			DueDate:   payment.Next(start, firstPeriod+i-1),
			Payment:   principal.Add(interest),
			Interest:  interest,
			Principal: principal,
			Balance:   remaining,
		})
	}
	return out
}

// projectedInterest sums the interest the remaining schedule would charge if
// the borrower kept paying the installment with no extra payments.
func projectedInterest(balance decimal.Decimal, s Schedule, periods int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range Amortize(balance, s, periods, time.Time{}, 1, FrequencyMonthly) {
		total = total.Add(e.Interest)
	}
	return total
}
