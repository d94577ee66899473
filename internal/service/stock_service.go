package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retailsync/internal/model"
	"retailsync/internal/repository"
	ws "retailsync/internal/websocket"
	"retailsync/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockService is the stock adjustment engine: it translates accepted
// sale/invoice line items into quantity decrements and supply intakes into
// increments. Exactly-once application per client record is enforced one
// level up, by the sync state tracker's idempotency record; callers invoke
// ApplyLineItem inside the same transaction that persists the record.
type StockService interface {
	// ApplyLineItem decrements the (shop, product) stock by quantity,
	// creating the row if the shop has never stocked the product. The
	// quantity is allowed to go negative: offline clients can oversell
	// before a sync catches up, and blocking here would corrupt the
	// financial state committed alongside. Oversell and low stock are
	// reported via stock.alert events, not errors.
	ApplyLineItem(ctx context.Context, shopID, productID uuid.UUID, quantity int) (*model.Stock, error)
	// HasStockRow reports whether the shop sells the product at all.
	HasStockRow(ctx context.Context, shopID, productID uuid.UUID) (bool, error)
	Increment(ctx context.Context, shopID, productID uuid.UUID, quantity int) (*model.Stock, error)
}

type stockService struct {
	stockRepo repository.StockRepository
	hub       *ws.Hub
}

func NewStockService(stockRepo repository.StockRepository, hub *ws.Hub) StockService {
	return &stockService{stockRepo: stockRepo, hub: hub}
}

func (s *stockService) ApplyLineItem(ctx context.Context, shopID, productID uuid.UUID, quantity int) (*model.Stock, error) {
	return s.adjust(ctx, shopID, productID, -quantity)
}

func (s *stockService) Increment(ctx context.Context, shopID, productID uuid.UUID, quantity int) (*model.Stock, error) {
	return s.adjust(ctx, shopID, productID, quantity)
}

func (s *stockService) adjust(ctx context.Context, shopID, productID uuid.UUID, delta int) (*model.Stock, error) {
	stock, err := s.stockRepo.FindForUpdate(ctx, shopID, productID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load stock: %w", err)
		}
		stock = &model.Stock{
			ShopID:    shopID,
			ProductID: productID,
			Quantity:  delta,
		}
		if createErr := s.stockRepo.Create(ctx, stock); createErr != nil {
			return nil, fmt.Errorf("failed to create stock row: %w", createErr)
		}
		s.maybeAlert(stock)
		return stock, nil
	}

	stock.Quantity += delta
	if err := s.stockRepo.Save(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to save stock: %w", err)
	}

	if delta < 0 {
		s.maybeAlert(stock)
	}
	return stock, nil
}

func (s *stockService) maybeAlert(stock *model.Stock) {
	if s.hub == nil || stock.Quantity > stock.AlertQuantity {
		return
	}
	s.hub.Notify(ws.EventStockAlert, map[string]interface{}{
		"shop_id":    stock.ShopID.String(),
		"product_id": stock.ProductID.String(),
		"quantity":   stock.Quantity,
		"oversold":   stock.Quantity < 0,
	})
}

func (s *stockService) HasStockRow(ctx context.Context, shopID, productID uuid.UUID) (bool, error) {
	_, err := s.stockRepo.Find(ctx, shopID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// --- Supply intake ---

type RecordSupplyRequest struct {
	SupplierID string `json:"supplier_id" binding:"required"`
	ProductID  string `json:"product_id" binding:"required"`
	ShopID     string `json:"shop_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	CostPrice  string `json:"cost_price" binding:"required"`
	SupplyDate string `json:"supply_date"` // RFC3339; defaults to now
}

type SupplyResponse struct {
	ID         string `json:"id"`
	SupplierID string `json:"supplier_id"`
	ProductID  string `json:"product_id"`
	ShopID     string `json:"shop_id"`
	Quantity   int    `json:"quantity"`
	CostPrice  string `json:"cost_price"`
	TotalCost  string `json:"total_cost"`
	SupplyDate string `json:"supply_date"`
	NewStock   int    `json:"new_stock"`
}

// SupplyService records supplier intakes. TotalCost is derived
// (quantity x cost_price) and recomputed on every write.
type SupplyService interface {
	RecordSupply(ctx context.Context, req RecordSupplyRequest) (*SupplyResponse, error)
}

type supplyService struct {
	supplyRepo   repository.SupplyRepository
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	stockSvc     StockService
	txManager    repository.TransactionManager
}

func NewSupplyService(
	supplyRepo repository.SupplyRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	stockSvc StockService,
	txManager repository.TransactionManager,
) SupplyService {
	return &supplyService{
		supplyRepo:   supplyRepo,
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		stockSvc:     stockSvc,
		txManager:    txManager,
	}
}

func (s *supplyService) RecordSupply(ctx context.Context, req RecordSupplyRequest) (*SupplyResponse, error) {
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid supplier_id", map[string]string{"supplier_id": "must be a uuid"})
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid product_id", map[string]string{"product_id": "must be a uuid"})
	}
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid shop_id", map[string]string{"shop_id": "must be a uuid"})
	}
	costPrice, err := decimal.NewFromString(req.CostPrice)
	if err != nil {
		return nil, apperr.ValidationFields("invalid cost_price", map[string]string{"cost_price": "must be a decimal"})
	}

	supplyDate := time.Now()
	if req.SupplyDate != "" {
		supplyDate, err = time.Parse(time.RFC3339, req.SupplyDate)
		if err != nil {
			return nil, apperr.ValidationFields("invalid supply_date", map[string]string{"supply_date": "must be RFC3339"})
		}
	}

	if _, err := s.supplierRepo.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("supplier not found")
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	supply := model.Supply{
		SupplierID: supplierID,
		ProductID:  productID,
		ShopID:     shopID,
		Quantity:   req.Quantity,
		CostPrice:  costPrice,
		TotalCost:  costPrice.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2),
		SupplyDate: supplyDate,
	}

	var newStock int
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplyRepo.Create(txCtx, &supply); err != nil {
			return fmt.Errorf("failed to create supply: %w", err)
		}
		stock, err := s.stockSvc.Increment(txCtx, shopID, productID, req.Quantity)
		if err != nil {
			return err
		}
		newStock = stock.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SupplyResponse{
		ID:         supply.ID.String(),
		SupplierID: supply.SupplierID.String(),
		ProductID:  supply.ProductID.String(),
		ShopID:     supply.ShopID.String(),
		Quantity:   supply.Quantity,
		CostPrice:  supply.CostPrice.StringFixed(2),
		TotalCost:  supply.TotalCost.StringFixed(2),
		SupplyDate: supply.SupplyDate.Format(time.RFC3339),
		NewStock:   newStock,
	}, nil
}
