package loan

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusPaidOff Status = "paid_off"
)

type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencyHalfYearly Frequency = "half-yearly"
)

// PeriodsPerYear returns 0 for an unknown frequency.
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencyHalfYearly:
		return 2
	}
	return 0
}

// Months is the calendar length of one period.
func (f Frequency) Months() int {
	if n := f.PeriodsPerYear(); n > 0 {
		return 12 / n
	}
	return 0
}

func (f Frequency) Valid() bool { return f.PeriodsPerYear() > 0 }

// Next moves t forward by n periods. A day past the end of the target month
// clamps to its last day, so Jan 31 + 1 month is Feb 28 (29).
func (f Frequency) Next(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(f.Months()*n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

type Loan struct {
	ID                   uint64          `gorm:"primaryKey;column:id"`
	LoanID               string          `gorm:"column:loan_id;size:32;uniqueIndex:ux_loans_loan_id"`
	AccountID            string          `gorm:"column:account_id;size:32;index:idx_loans_account"`
	Title                string          `gorm:"column:title;size:120"`
	LenderName           string          `gorm:"column:lender_name;size:120"`
	Principal            decimal.Decimal `gorm:"column:principal;type:decimal(18,2)"`
	AnnualInterestRate   decimal.Decimal `gorm:"column:annual_interest_rate;type:decimal(7,4)"`
	PaymentFrequency     Frequency       `gorm:"column:payment_frequency;size:16"`
	CompoundingFrequency Frequency       `gorm:"column:compounding_frequency;size:16"`
	NumberOfPayments     int             `gorm:"column:number_of_payments"`
	PaymentAmount        decimal.Decimal `gorm:"column:payment_amount;type:decimal(18,2)"`
	StartDate            time.Time       `gorm:"column:start_date;type:date"`
	EndDate              time.Time       `gorm:"column:end_date;type:date"`
	Status               Status          `gorm:"column:status;size:16;default:'active'"`
	AmountPaid           decimal.Decimal `gorm:"column:amount_paid;type:decimal(18,2)"`
	RemainingBalance     decimal.Decimal `gorm:"column:remaining_balance;type:decimal(18,2)"`
	PaymentsRemaining    int             `gorm:"column:payments_remaining"`
	NextDueDate          *time.Time      `gorm:"column:next_due_date;type:date"`
	LastPaymentDate      *time.Time      `gorm:"column:last_payment_date;type:date"`
	Notes                string          `gorm:"column:notes;type:text"`
	StatusUpdatedAt      time.Time       `gorm:"column:status_updated_at"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt            gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Loan) TableName() string { return "loans" }

// PeriodicRate recomputes the per-payment-period rate from the loan terms.
func (l *Loan) PeriodicRate() (decimal.Decimal, error) {
	return PeriodicRate(l.AnnualInterestRate, l.CompoundingFrequency, l.PaymentFrequency)
}

// TotalWithInterest is the scheduled cost of the loan over its full term.
func (l *Loan) TotalWithInterest() decimal.Decimal {
	return l.PaymentAmount.Mul(decimal.NewFromInt(int64(l.NumberOfPayments)))
}

// accrualAnchor is the date interest starts running from for the current period.
func (l *Loan) accrualAnchor() time.Time {
	if l.LastPaymentDate != nil {
		return *l.LastPaymentDate
	}
	return l.StartDate
}

func (l *Loan) clone() *Loan {
	cp := *l
	if l.NextDueDate != nil {
		d := *l.NextDueDate
		cp.NextDueDate = &d
	}
	if l.LastPaymentDate != nil {
		d := *l.LastPaymentDate
		cp.LastPaymentDate = &d
	}
	return &cp
}
