package repository

import (
	"context"
	"time"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository interface {
	Create(ctx context.Context, stock *model.Stock) error
	Save(ctx context.Context, stock *model.Stock) error
	Find(ctx context.Context, shopID, productID uuid.UUID) (*model.Stock, error)
	// FindForUpdate row-locks the stock so concurrent decrements for the same
	// (shop, product) pair serialize.
	FindForUpdate(ctx context.Context, shopID, productID uuid.UUID) (*model.Stock, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.Stock, error)
	UpdatedSince(ctx context.Context, shopID uuid.UUID, since time.Time) ([]model.Stock, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Create(ctx context.Context, stock *model.Stock) error {
	return GetDB(ctx, r.db).Create(stock).Error
}

func (r *stockRepository) Save(ctx context.Context, stock *model.Stock) error {
	return GetDB(ctx, r.db).Save(stock).Error
}

func (r *stockRepository) Find(ctx context.Context, shopID, productID uuid.UUID) (*model.Stock, error) {
	var stock model.Stock
	err := GetDB(ctx, r.db).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *stockRepository) FindForUpdate(ctx context.Context, shopID, productID uuid.UUID) (*model.Stock, error) {
	var stock model.Stock
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *stockRepository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.Stock, error) {
	var stocks []model.Stock
	err := GetDB(ctx, r.db).Preload("Product").
		Where("shop_id = ?", shopID).
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *stockRepository) UpdatedSince(ctx context.Context, shopID uuid.UUID, since time.Time) ([]model.Stock, error) {
	var stocks []model.Stock
	err := GetDB(ctx, r.db).
		Where("shop_id = ? AND updated_at > ?", shopID, since).
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}
