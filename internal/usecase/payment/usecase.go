package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainLoan "loan-ledger/internal/domain/loan"
	domainLock "loan-ledger/internal/domain/lock"
	domainPayment "loan-ledger/internal/domain/payment"
	"loan-ledger/internal/domain/uow"
	"loan-ledger/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct {
	loanRepo    domainLoan.Repository
	paymentRepo domainPayment.Repository
	uow         uow.UnitOfWork
	locker      domainLock.Locker
	now         func() time.Time
}

// NewUsecase: reads go through the repos, mutations through the UoW under
// the per-loan lock.
func NewUsecase(loans domainLoan.Repository, payments domainPayment.Repository, tx uow.UnitOfWork, locker domainLock.Locker) *Usecase {
	return &Usecase{
		loanRepo:    loans,
		paymentRepo: payments,
		uow:         tx,
		locker:      locker,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Pay records a regular installment.
func (u *Usecase) Pay(ctx context.Context, accountID, loanID string, in PayInput) (*PayResultDTO, error) {
	date := in.PaymentDate
	if date.IsZero() {
		date = u.now()
	}

	var out *PayResultDTO
	err := u.mutate(ctx, accountID, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if _, err := domainLoan.ValidatePayment(l, in.Amount); err != nil {
			return err
		}
		tr, err := domainLoan.ApplyPayment(l, in.Amount, date)
		if err != nil {
			return err
		}
		if err := u.persist(ctx, r, &tr); err != nil {
			return err
		}

		out = &PayResultDTO{
			PaymentDetails:  toPaymentDTO(&tr.Payment),
			PaymentProgress: progress(tr.Loan),
			PayoffDetails:   toPayoffDTO(tr.Payoff, tr.Payment.PaymentDate),
		}
		slog.InfoContext(ctx, "payment applied",
			"loan_id", loanID, "payment_id", tr.Payment.PaymentID,
			"amount", tr.Payment.Amount.StringFixed(2),
			"balance", tr.Loan.RemainingBalance.StringFixed(2),
			"unpaid_interest", tr.Payment.UnpaidInterest.StringFixed(2))
		if tr.Payoff != nil {
			slog.InfoContext(ctx, "loan paid off", "loan_id", loanID, "total_paid", tr.Payoff.TotalPaid.StringFixed(2))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Payoff settles the loan in full as of asOf (today when zero).
func (u *Usecase) Payoff(ctx context.Context, accountID, loanID string, asOf time.Time) (*PayoffResultDTO, error) {
	if asOf.IsZero() {
		asOf = u.now()
	}

	var out *PayoffResultDTO
	err := u.mutate(ctx, accountID, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		tr, err := domainLoan.Payoff(l, asOf)
		if err != nil {
			return err
		}
		if err := u.persist(ctx, r, &tr); err != nil {
			return err
		}

		out = &PayoffResultDTO{
			PayoffDetails:   *toPayoffDTO(tr.Payoff, tr.Payment.PaymentDate),
			PaymentDetails:  toPaymentDTO(&tr.Payment),
			PaymentProgress: progress(tr.Loan),
		}
		slog.InfoContext(ctx, "loan paid off early",
			"loan_id", loanID, "final_payment", tr.Payoff.FinalPayment.StringFixed(2),
			"savings", tr.Payoff.Savings.StringFixed(2))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History lists a loan's payments, oldest first.
func (u *Usecase) History(ctx context.Context, accountID, loanID string) (*HistoryDTO, error) {
	l, err := u.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, notFound(err)
	}
	if l.AccountID != accountID {
		return nil, domainLoan.ErrNotFound
	}
	rows, err := u.paymentRepo.ListByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	out := &HistoryDTO{LoanID: l.LoanID, Payments: make([]PaymentDTO, 0, len(rows))}
	for i := range rows {
		out.Payments = append(out.Payments, toPaymentDTO(&rows[i]))
	}
	return out, nil
}

// Receipt returns one payment of a loan by its public id.
func (u *Usecase) Receipt(ctx context.Context, accountID, loanID, paymentID string) (*PaymentDTO, error) {
	l, err := u.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, notFound(err)
	}
	if l.AccountID != accountID {
		return nil, domainLoan.ErrNotFound
	}
	p, err := u.paymentRepo.GetByPaymentID(ctx, paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.LoanID != l.ID) {
		return nil, domainPayment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := toPaymentDTO(p)
	return &out, nil
}

// mutate runs fn with the loan held by both the per-loan lock and a row lock.
// fn sees the committed state and its writes commit together or not at all.
func (u *Usecase) mutate(ctx context.Context, accountID, loanID string, fn func(r uow.Repos, l *domainLoan.Loan) error) error {
	if u.uow == nil || u.locker == nil {
		return errors.New("payment usecase is not wired")
	}
	release, err := u.locker.Acquire(ctx, loanID)
	if err != nil {
		if errors.Is(err, domainLock.ErrTimeout) {
			slog.WarnContext(ctx, "loan busy", "loan_id", loanID)
			return domainLoan.ErrBusy
		}
		return err
	}
	defer release()

	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.AccountID != accountID {
			return domainLoan.ErrNotFound
		}
		return fn(r, l)
	})
	return notFound(err)
}

func (u *Usecase) persist(ctx context.Context, r uow.Repos, tr *domainLoan.Transition) error {
	tr.Loan.UpdatedAt = u.now()
	if tr.Payoff != nil {
		tr.Loan.StatusUpdatedAt = u.now()
	}
	if err := r.Loans.Save(ctx, tr.Loan); err != nil {
		return err
	}
	tr.Payment.PaymentID = id.NewID32()
	tr.Payment.LoanID = tr.Loan.ID
	return r.Payments.Create(ctx, &tr.Payment)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainLoan.ErrNotFound
	}
	return err
}
