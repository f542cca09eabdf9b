package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("payment not found")
)

type Kind string

const (
	KindRegular Kind = "regular"
	KindPayoff  Kind = "payoff"
)

// Table: loan_payments. Rows are append-only; a payment never changes after
// it is recorded.
type Payment struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Public identifier (32-char lowercase hex)
	PaymentID string `gorm:"column:payment_id;type:char(32);not null;uniqueIndex:ux_loan_payments_payment_id"`
	// FK to loans.id (numeric)
	LoanID uint64 `gorm:"column:loan_id;not null;index:idx_loan_payments_loan"`
	Kind   Kind   `gorm:"column:kind;size:16;not null"`

	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Interest       decimal.Decimal `gorm:"column:interest;type:decimal(18,2);not null"`
	PrincipalPaid  decimal.Decimal `gorm:"column:principal_paid;type:decimal(18,2);not null"`
	UnpaidInterest decimal.Decimal `gorm:"column:unpaid_interest;type:decimal(18,2);not null"`
	Overpayment    decimal.Decimal `gorm:"column:overpayment;type:decimal(18,2);not null"`
	BalanceAfter   decimal.Decimal `gorm:"column:balance_after;type:decimal(18,2);not null"`
	PaymentDate    time.Time       `gorm:"column:payment_date;type:date;not null"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Payment) TableName() string { return "loan_payments" }
