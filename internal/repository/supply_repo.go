package repository

import (
	"context"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierRepository interface {
	Create(ctx context.Context, supplier *model.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context, page, limit int) ([]model.Supplier, int64, error)
}

type supplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *model.Supplier) error {
	return GetDB(ctx, r.db).Create(supplier).Error
}

func (r *supplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := GetDB(ctx, r.db).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepository) List(ctx context.Context, page, limit int) ([]model.Supplier, int64, error) {
	var suppliers []model.Supplier
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Supplier{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&suppliers).Error; err != nil {
		return nil, 0, err
	}

	return suppliers, total, nil
}

type SupplyRepository interface {
	Create(ctx context.Context, supply *model.Supply) error
	Save(ctx context.Context, supply *model.Supply) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supply, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int) ([]model.Supply, int64, error)
}

type supplyRepository struct {
	db *gorm.DB
}

func NewSupplyRepository(db *gorm.DB) SupplyRepository {
	return &supplyRepository{db: db}
}

func (r *supplyRepository) Create(ctx context.Context, supply *model.Supply) error {
	return GetDB(ctx, r.db).Create(supply).Error
}

func (r *supplyRepository) Save(ctx context.Context, supply *model.Supply) error {
	return GetDB(ctx, r.db).Save(supply).Error
}

func (r *supplyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Supply, error) {
	var supply model.Supply
	if err := GetDB(ctx, r.db).First(&supply, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supply, nil
}

func (r *supplyRepository) ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int) ([]model.Supply, int64, error) {
	var supplies []model.Supply
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Supply{}).Where("shop_id = ?", shopID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Preload("Supplier").Preload("Product").
		Order("supply_date desc").Offset(offset).Limit(limit).
		Find(&supplies).Error
	if err != nil {
		return nil, 0, err
	}

	return supplies, total, nil
}
