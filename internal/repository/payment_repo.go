package repository

import (
	"context"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	// SumByInvoice recomputes the paid amount from the payment rows. The sum
	// is always taken from source rows inside the payment transaction; the
	// invoice's amount_paid column is never incremented in place.
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	SumBySale(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, "invoice_id", invoiceID)
}

func (r *paymentRepository) SumBySale(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, "sale_id", saleID)
}

func (r *paymentRepository) sum(ctx context.Context, column string, id uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Where(column+" = ?", id).
		Select("SUM(amount)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := GetDB(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
