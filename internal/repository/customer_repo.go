package repository

import (
	"context"
	"time"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Save(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int) ([]model.Customer, int64, error)
	UpdatedSince(ctx context.Context, shopID uuid.UUID, since time.Time) ([]model.Customer, error)
	ListAllByShop(ctx context.Context, shopID uuid.UUID) ([]model.Customer, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Save(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{}).Where("shop_id = ?", shopID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) UpdatedSince(ctx context.Context, shopID uuid.UUID, since time.Time) ([]model.Customer, error) {
	var customers []model.Customer
	err := GetDB(ctx, r.db).Unscoped().
		Where("shop_id = ? AND updated_at > ?", shopID, since).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepository) ListAllByShop(ctx context.Context, shopID uuid.UUID) ([]model.Customer, error) {
	var customers []model.Customer
	if err := GetDB(ctx, r.db).Where("shop_id = ?", shopID).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
