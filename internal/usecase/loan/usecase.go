package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct {
	repo     loan.Repository
	pageSize int
	now      func() time.Time
}

func NewUsecase(r loan.Repository, pageSize int) *Usecase {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Usecase{repo: r, pageSize: pageSize, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) Create(ctx context.Context, accountID string, in CreateLoanInput) (*LoanDTO, error) {
	if accountID == "" || len(accountID) != 32 {
		return nil, fmt.Errorf("%w: account id must be 32-char hex", loan.ErrInvalidInput)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", loan.ErrInvalidInput)
	}

	l, err := loan.Originate(loan.Terms{
		Principal:            in.Amount,
		AnnualInterestRate:   in.InterestRate,
		PaymentFrequency:     in.PaymentFrequency,
		CompoundingFrequency: in.CompoundingFrequency,
		NumberOfPayments:     in.NumberOfPayments,
		StartDate:            in.StartDate,
	})
	if err != nil {
		return nil, err
	}
	l.LoanID = id.NewID32()
	l.AccountID = accountID
	l.Title = title
	l.LenderName = strings.TrimSpace(in.LenderName)
	l.Notes = in.Notes
	l.StatusUpdatedAt = u.now()

	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "loan created",
		"loan_id", l.LoanID, "account_id", accountID,
		"principal", l.Principal.StringFixed(2), "payment_amount", l.PaymentAmount.StringFixed(2))

	dto := ToDTO(l)
	return &dto, nil
}

func (u *Usecase) Get(ctx context.Context, accountID, loanID string) (*LoanDTO, error) {
	l, err := u.load(ctx, accountID, loanID)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(l)
	return &dto, nil
}

// List returns one page of the account's loans, newest first. Pages are
// numbered from 1.
func (u *Usecase) List(ctx context.Context, accountID string, page int) (*ListDTO, error) {
	if page < 1 {
		page = 1
	}
	rows, total, err := u.repo.ListByAccount(ctx, accountID, (page-1)*u.pageSize, u.pageSize)
	if err != nil {
		return nil, err
	}
	out := &ListDTO{
		Loans: make([]LoanDTO, 0, len(rows)),
		Page:  page,
		Pages: int((total + int64(u.pageSize) - 1) / int64(u.pageSize)),
		Total: total,
	}
	for i := range rows {
		out.Loans = append(out.Loans, ToDTO(&rows[i]))
	}
	return out, nil
}

// Schedule lays out the installments still ahead of the loan.
func (u *Usecase) Schedule(ctx context.Context, accountID, loanID string) (*ScheduleDTO, error) {
	l, err := u.load(ctx, accountID, loanID)
	if err != nil {
		return nil, err
	}
	rate, err := l.PeriodicRate()
	if err != nil {
		return nil, err
	}
	out := &ScheduleDTO{
		LoanID:        l.LoanID,
		PaymentAmount: money(l.PaymentAmount),
		PeriodicRate:  rate.String(),
		Entries:       []ScheduleEntryDTO{},
	}
	if l.Status == loan.StatusPaidOff || l.NextDueDate == nil {
		return out, nil
	}

	periods := l.PaymentsRemaining
	if periods < 1 {
		periods = 1
	}
	s := loan.Schedule{PaymentAmount: l.PaymentAmount, PeriodicRate: rate}
	for _, e := range loan.Amortize(l.RemainingBalance, s, periods, l.StartDate, l.DueIndex(), l.PaymentFrequency) {
		out.Entries = append(out.Entries, ScheduleEntryDTO{
			Period:    e.Period,
			DueDate:   date(e.DueDate),
			Payment:   money(e.Payment),
			Interest:  money(e.Interest),
			Principal: money(e.Principal),
			Balance:   money(e.Balance),
		})
	}
	return out, nil
}

func (u *Usecase) load(ctx context.Context, accountID, loanID string) (*loan.Loan, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNotFound
		}
		return nil, err
	}
	// other accounts' loans are indistinguishable from missing ones
	if l.AccountID != accountID {
		return nil, loan.ErrNotFound
	}
	return l, nil
}
