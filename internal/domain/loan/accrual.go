package loan

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// AccrueInterest is the interest owed on balance for one period at rate,
// rounded to cents half-up.
func AccrueInterest(balance, rate decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return round2(balance.Mul(rate))
}

// ProratedRate scales a periodic rate to the time elapsed between from and to.
// Elapsed time is measured in days against the calendar length of the period
// that starts at from, and compounds once per whole period.
func ProratedRate(rate decimal.Decimal, payment Frequency, from, to time.Time) decimal.Decimal {
	from, to = truncateDay(from), truncateDay(to)
	if !rate.IsPositive() || !to.After(from) || !payment.Valid() {
		return decimal.Zero
	}
	periodDays := payment.Next(from, 1).Sub(from).Hours() / 24
	elapsedDays := to.Sub(from).Hours() / 24
	if periodDays <= 0 {
		return decimal.Zero
	}
	fraction := elapsedDays / periodDays
	r := math.Pow(1+rate.InexactFloat64(), fraction) - 1
	return decimal.NewFromFloat(r).Round(ratePrecision)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
