package mysql

import (
	"context"

	paymentDomain "loan-ledger/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) ListByLoanID(ctx context.Context, loanNumericID uint64) ([]paymentDomain.Payment, error) {
	out := []paymentDomain.Payment{}
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("payment_date ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*paymentDomain.Payment, error) {
	var out paymentDomain.Payment
	res := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&out)
	return &out, res.Error
}
