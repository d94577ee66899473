package service

import (
	"context"
	"errors"
	"fmt"

	"retailsync/internal/auth"
	"retailsync/internal/model"
	"retailsync/internal/repository"
	"retailsync/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductListResponse struct {
	Products []model.Product `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type CustomerListResponse struct {
	Customers []model.Customer `json:"customers"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
}

type CreateCustomerRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	CreditLimit  string `json:"credit_limit"`
	PaymentTerms string `json:"payment_terms"`
}

// CatalogService serves the read side the shop clients and the back office
// share: the central product catalog, per-shop stock levels and per-shop
// customer books.
type CatalogService interface {
	ListProducts(ctx context.Context, page, limit int, search string) (*ProductListResponse, error)
	ListShopStock(ctx context.Context, actor auth.Actor, shopID uuid.UUID) ([]model.Stock, error)
	ListShopCustomers(ctx context.Context, actor auth.Actor, shopID uuid.UUID, page, limit int) (*CustomerListResponse, error)
	CreateCustomer(ctx context.Context, actor auth.Actor, shopID uuid.UUID, req CreateCustomerRequest) (*model.Customer, error)
	ListShops(ctx context.Context, actor auth.Actor) ([]model.Shop, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	stockRepo    repository.StockRepository
	customerRepo repository.CustomerRepository
	shopRepo     repository.ShopRepository
	auditRepo    repository.AuditRepository
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	stockRepo repository.StockRepository,
	customerRepo repository.CustomerRepository,
	shopRepo repository.ShopRepository,
	auditRepo repository.AuditRepository,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		stockRepo:    stockRepo,
		customerRepo: customerRepo,
		shopRepo:     shopRepo,
		auditRepo:    auditRepo,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, page, limit int, search string) (*ProductListResponse, error) {
	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &ProductListResponse{Products: products, Total: total, Page: page, Limit: limit}, nil
}

func (s *catalogService) ListShopStock(ctx context.Context, actor auth.Actor, shopID uuid.UUID) ([]model.Stock, error) {
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}
	if err := s.requireShop(ctx, shopID); err != nil {
		return nil, err
	}
	stock, err := s.stockRepo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return stock, nil
}

func (s *catalogService) ListShopCustomers(ctx context.Context, actor auth.Actor, shopID uuid.UUID, page, limit int) (*CustomerListResponse, error) {
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}
	if err := s.requireShop(ctx, shopID); err != nil {
		return nil, err
	}
	customers, total, err := s.customerRepo.ListByShop(ctx, shopID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return &CustomerListResponse{Customers: customers, Total: total, Page: page, Limit: limit}, nil
}

func (s *catalogService) CreateCustomer(ctx context.Context, actor auth.Actor, shopID uuid.UUID, req CreateCustomerRequest) (*model.Customer, error) {
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}
	if err := s.requireShop(ctx, shopID); err != nil {
		return nil, err
	}

	creditLimit, err := optionalDecimal(req.CreditLimit)
	if err != nil || creditLimit.IsNegative() {
		return nil, apperr.ValidationFields("invalid credit_limit", map[string]string{"credit_limit": "must be a non-negative decimal"})
	}

	customer := model.Customer{
		ShopID:       shopID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		CreditLimit:  creditLimit,
		PaymentTerms: req.PaymentTerms,
	}
	if err := s.customerRepo.Create(ctx, &customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     &actor.UserID,
		Action:     model.ActionCreateCustomer,
		EntityID:   customer.ID.String(),
		EntityName: customer.Name,
	}); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}
	return &customer, nil
}

func (s *catalogService) ListShops(ctx context.Context, actor auth.Actor) ([]model.Shop, error) {
	if actor.Role == model.RoleAdmin {
		return s.shopRepo.List(ctx)
	}
	if actor.ShopID == nil {
		return []model.Shop{}, nil
	}
	shop, err := s.shopRepo.FindByID(ctx, *actor.ShopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []model.Shop{}, nil
		}
		return nil, fmt.Errorf("failed to load shop: %w", err)
	}
	return []model.Shop{*shop}, nil
}

func (s *catalogService) requireShop(ctx context.Context, shopID uuid.UUID) error {
	if _, err := s.shopRepo.FindByID(ctx, shopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("shop not found")
		}
		return fmt.Errorf("failed to load shop: %w", err)
	}
	return nil
}
