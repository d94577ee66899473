package repository

import (
	"context"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShopRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error)
	List(ctx context.Context) ([]model.Shop, error)
	Create(ctx context.Context, shop *model.Shop) error
}

type shopRepository struct {
	db *gorm.DB
}

func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

func (r *shopRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	var shop model.Shop
	if err := GetDB(ctx, r.db).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) List(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	if err := GetDB(ctx, r.db).Order("name asc").Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *shopRepository) Create(ctx context.Context, shop *model.Shop) error {
	return GetDB(ctx, r.db).Create(shop).Error
}
