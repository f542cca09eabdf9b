package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain/loan"
)

type CreateLoanInput struct {
	Title                string
	LenderName           string
	Amount               decimal.Decimal
	InterestRate         decimal.Decimal
	StartDate            time.Time
	PaymentFrequency     loan.Frequency
	CompoundingFrequency loan.Frequency
	NumberOfPayments     int
	Notes                string
}

type LoanDTO struct {
	ID                   string    `json:"_id"`
	Title                string    `json:"title"`
	LenderName           string    `json:"lenderName"`
	Amount               string    `json:"amount"`
	InterestRate         string    `json:"interestRate"`
	StartDate            string    `json:"startDate"`
	EndDate              string    `json:"endDate"`
	PaymentFrequency     string    `json:"paymentFrequency"`
	CompoundingFrequency string    `json:"compoundingFrequency"`
	NumberOfPayments     int       `json:"numberOfPayments"`
	Status               string    `json:"status"`
	Notes                string    `json:"notes"`
	PaymentAmount        string    `json:"paymentAmount"`
	TotalWithInterest    string    `json:"totalAmount"`
	AmountPaid           string    `json:"amountPaid"`
	RemainingBalance     string    `json:"remainingBalance"`
	PaymentsRemaining    int       `json:"paymentsRemaining"`
	NextDueDate          *string   `json:"nextDueDate"`
	LastPaymentDate      *string   `json:"lastPaymentDate"`
	CreatedAt            time.Time `json:"createdAt"`
}

type ListDTO struct {
	Loans []LoanDTO `json:"loans"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
	Total int64     `json:"total"`
}

type ScheduleEntryDTO struct {
	Period    int    `json:"period"`
	DueDate   string `json:"dueDate"`
	Payment   string `json:"payment"`
	Interest  string `json:"interest"`
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
}

type ScheduleDTO struct {
	LoanID        string             `json:"loanId"`
	PaymentAmount string             `json:"paymentAmount"`
	PeriodicRate  string             `json:"periodicRate"`
	Entries       []ScheduleEntryDTO `json:"entries"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func date(t time.Time) string { return t.Format(time.DateOnly) }

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := date(*t)
	return &s
}

// ToDTO renders a loan in the shape the client reads.
func ToDTO(l *loan.Loan) LoanDTO {
	return LoanDTO{
		ID:                   l.LoanID,
		Title:                l.Title,
		LenderName:           l.LenderName,
		Amount:               money(l.Principal),
		InterestRate:         l.AnnualInterestRate.String(),
		StartDate:            date(l.StartDate),
		EndDate:              date(l.EndDate),
		PaymentFrequency:     string(l.PaymentFrequency),
		CompoundingFrequency: string(l.CompoundingFrequency),
		NumberOfPayments:     l.NumberOfPayments,
		Status:               string(l.Status),
		Notes:                l.Notes,
		PaymentAmount:        money(l.PaymentAmount),
		TotalWithInterest:    money(l.TotalWithInterest()),
		AmountPaid:           money(l.AmountPaid),
		RemainingBalance:     money(l.RemainingBalance),
		PaymentsRemaining:    l.PaymentsRemaining,
		NextDueDate:          datePtr(l.NextDueDate),
		LastPaymentDate:      datePtr(l.LastPaymentDate),
		CreatedAt:            l.CreatedAt,
	}
}
