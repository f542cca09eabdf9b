package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/payment"
	"loan-ledger/internal/domain/uow"

	"gorm.io/gorm"
)

var _ uow.UnitOfWork = (*Store)(nil)

// Store is an in-memory UnitOfWork. Transactions buffer their writes and
// commit them together, but reads take no row locks: two transactions on the
// same loan can interleave, which lets tests prove that callers serialize.
type Store struct {
	// Delay is slept between reading the loan and committing, widening the
	// window in which concurrent transactions overlap.
	Delay time.Duration

	mu       sync.Mutex
	nextID   uint64
	loans    map[string]loan.Loan
	payments []payment.Payment
}

func New() *Store {
	return &Store{loans: make(map[string]loan.Loan)}
}

// Seed stores l directly, assigning a numeric id when missing.
func (s *Store) Seed(l loan.Loan) *loan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		s.nextID++
		l.ID = s.nextID
	}
	s.loans[l.LoanID] = l
	return &l
}

// Loan returns a snapshot of the committed loan.
func (s *Store) Loan(loanID string) (loan.Loan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	return l, ok
}

// Payments returns every committed payment.
func (s *Store) Payments() []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.Payment(nil), s.payments...)
}

// Repos returns repositories whose writes commit immediately, for code paths
// that run outside a transaction.
func (s *Store) Repos() uow.Repos {
	return (&txn{s: s, autocommit: true}).repos()
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	tx := &txn{s: s}
	if err := fn(tx.repos()); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	tx := &txn{s: s}
	l, err := tx.loans().GetByLoanIDForUpdate(ctx, loanID)
	if err != nil {
		return err
	}
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if err := fn(tx.repos(), l); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type txn struct {
	s             *Store
	autocommit    bool
	loanWrites    []loan.Loan
	paymentWrites []payment.Payment
}

func (t *txn) repos() uow.Repos { return uow.Repos{Loans: t.loans(), Payments: &paymentRepo{t}} }
func (t *txn) loans() *loanRepo { return &loanRepo{t} }

func (t *txn) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, l := range t.loanWrites {
		t.s.loans[l.LoanID] = l
	}
	t.s.payments = append(t.s.payments, t.paymentWrites...)
	t.loanWrites, t.paymentWrites = nil, nil
}

func (t *txn) flush() {
	if t.autocommit {
		t.commit()
	}
}

type loanRepo struct{ t *txn }

func (r *loanRepo) Create(ctx context.Context, l *loan.Loan) error {
	r.t.s.mu.Lock()
	r.t.s.nextID++
	l.ID = r.t.s.nextID
	r.t.s.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	r.t.loanWrites = append(r.t.loanWrites, *l)
	r.t.flush()
	return nil
}

func (r *loanRepo) Save(ctx context.Context, l *loan.Loan) error {
	r.t.loanWrites = append(r.t.loanWrites, *l)
	r.t.flush()
	return nil
}

func (r *loanRepo) GetByLoanID(ctx context.Context, loanID string) (*loan.Loan, error) {
	l, ok := r.t.s.Loan(loanID)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (r *loanRepo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return r.GetByLoanID(ctx, loanID)
}

func (r *loanRepo) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]loan.Loan, int64, error) {
	r.t.s.mu.Lock()
	var all []loan.Loan
	for _, l := range r.t.s.loans {
		if l.AccountID == accountID {
			all = append(all, l)
		}
	}
	r.t.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []loan.Loan{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

type paymentRepo struct{ t *txn }

func (r *paymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	r.t.s.mu.Lock()
	r.t.s.nextID++
	p.ID = r.t.s.nextID
	r.t.s.mu.Unlock()
	r.t.paymentWrites = append(r.t.paymentWrites, *p)
	r.t.flush()
	return nil
}

func (r *paymentRepo) ListByLoanID(ctx context.Context, loanID uint64) ([]payment.Payment, error) {
	out := []payment.Payment{}
	for _, p := range r.t.s.Payments() {
		if p.LoanID == loanID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate.Before(out[j].PaymentDate) })
	return out, nil
}

func (r *paymentRepo) GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	for _, p := range r.t.s.Payments() {
		if p.PaymentID == paymentID {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
