package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/payment"
)

type PayInput struct {
	Amount decimal.Decimal
	// PaymentDate defaults to today when zero.
	PaymentDate time.Time
}

type PaymentDTO struct {
	PaymentID      string `json:"paymentId"`
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	Interest       string `json:"interest"`
	PrincipalPaid  string `json:"principalPaid"`
	UnpaidInterest string `json:"unpaidInterest"`
	Overpayment    string `json:"overpayment"`
	BalanceAfter   string `json:"balanceAfter"`
	PaymentDate    string `json:"paymentDate"`
}

type ProgressDTO struct {
	OriginalAmount    string `json:"originalAmount"`
	TotalWithInterest string `json:"totalWithInterest"`
	AmountPaid        string `json:"amountPaid"`
	AmountRemaining   string `json:"amountRemaining"`
	RemainingBalance  string `json:"remainingBalance"`
	PaymentsRemaining int    `json:"paymentsRemaining"`
	NextDueDate       string `json:"nextDueDate,omitempty"`
	Status            string `json:"status"`
}

type PayoffDTO struct {
	FinalPayment  string `json:"finalPayment"`
	FinalInterest string `json:"finalInterest"`
	TotalPaid     string `json:"totalPaid"`
	Savings       string `json:"savings"`
	PaidOffAt     string `json:"paidOffAt"`
}

type PayResultDTO struct {
	PaymentDetails  PaymentDTO  `json:"paymentDetails"`
	PaymentProgress ProgressDTO `json:"paymentProgress"`
	PayoffDetails   *PayoffDTO  `json:"payoffDetails,omitempty"`
}

type PayoffResultDTO struct {
	PayoffDetails   PayoffDTO   `json:"payoffDetails"`
	PaymentDetails  PaymentDTO  `json:"paymentDetails"`
	PaymentProgress ProgressDTO `json:"paymentProgress"`
}

type HistoryDTO struct {
	LoanID   string       `json:"loanId"`
	Payments []PaymentDTO `json:"payments"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toPaymentDTO(p *payment.Payment) PaymentDTO {
	return PaymentDTO{
		PaymentID:      p.PaymentID,
		Kind:           string(p.Kind),
		Amount:         money(p.Amount),
		Interest:       money(p.Interest),
		PrincipalPaid:  money(p.PrincipalPaid),
		UnpaidInterest: money(p.UnpaidInterest),
		Overpayment:    money(p.Overpayment),
		BalanceAfter:   money(p.BalanceAfter),
		PaymentDate:    p.PaymentDate.Format(time.DateOnly),
	}
}

// progress summarizes how far along the schedule the loan is.
func progress(l *loan.Loan) ProgressDTO {
	total := l.TotalWithInterest()
	remaining := total.Sub(l.AmountPaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	out := ProgressDTO{
		OriginalAmount:    money(l.Principal),
		TotalWithInterest: money(total),
		AmountPaid:        money(l.AmountPaid),
		AmountRemaining:   money(remaining),
		RemainingBalance:  money(l.RemainingBalance),
		PaymentsRemaining: l.PaymentsRemaining,
		Status:            string(l.Status),
	}
	if l.NextDueDate != nil {
		out.NextDueDate = l.NextDueDate.Format(time.DateOnly)
	}
	return out
}

func toPayoffDTO(d *loan.PayoffDetails, at time.Time) *PayoffDTO {
	if d == nil {
		return nil
	}
	return &PayoffDTO{
		FinalPayment:  money(d.FinalPayment),
		FinalInterest: money(d.FinalInterest),
		TotalPaid:     money(d.TotalPaid),
		Savings:       money(d.Savings),
		PaidOffAt:     at.Format(time.DateOnly),
	}
}
