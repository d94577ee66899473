package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retailsync/internal/auth"
	"retailsync/internal/ledger"
	"retailsync/internal/model"
	"retailsync/internal/repository"
	ws "retailsync/internal/websocket"
	"retailsync/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice      string `json:"unit_price" binding:"required"`
	TaxRate        string `json:"tax_rate"`
	DiscountAmount string `json:"discount_amount"`
}

type CreateInvoiceRequest struct {
	ShopID     string               `json:"shop_id" binding:"required"`
	CustomerID string               `json:"customer_id" binding:"required"`
	DueDate    string               `json:"due_date" binding:"required"` // YYYY-MM-DD
	Items      []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes      string               `json:"notes"`
	Draft      bool                 `json:"draft"`
}

type InvoiceResponse struct {
	ID             string `json:"id"`
	InvoiceNumber  string `json:"invoice_number"`
	ShopID         string `json:"shop_id"`
	CustomerID     string `json:"customer_id"`
	IssueDate      string `json:"issue_date"`
	DueDate        string `json:"due_date"`
	TotalAmount    string `json:"total_amount"`
	TaxAmount      string `json:"tax_amount"`
	DiscountAmount string `json:"discount_amount"`
	AmountPaid     string `json:"amount_paid"`
	Status         string `json:"status"`
}

type SaleItemRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice    string `json:"unit_price" binding:"required"`
	TaxRate      string `json:"tax_rate"`
	DiscountRate string `json:"discount_rate"`
}

// CreateSaleRequest carries client-computed totals. The server stores them
// verbatim for bit-compatibility with deployed POS clients instead of
// recomputing from items (known correctness gap, flagged to product owners).
type CreateSaleRequest struct {
	ShopID         string            `json:"shop_id" binding:"required"`
	CustomerID     string            `json:"customer_id"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalPrice     string            `json:"total_price" binding:"required"`
	TaxAmount      string            `json:"tax_amount"`
	DiscountAmount string            `json:"discount_amount"`
	PaymentMethod  string            `json:"payment_method"`
	ClientID       string            `json:"client_id"` // set by sync pushes
	CreatedAt      string            `json:"created_at"`
}

type SaleResponse struct {
	ID         string `json:"sale_id"`
	ShopID     string `json:"shop_id"`
	TotalPrice string `json:"total_price"`
	Status     string `json:"status"`
}

// RecordPaymentRequest applies money against exactly one ledger target.
type RecordPaymentRequest struct {
	SaleID      string `json:"sale_id"`
	InvoiceID   string `json:"invoice_id"`
	Amount      string `json:"amount" binding:"required"`
	Method      string `json:"method" binding:"required,oneof=cash card transfer check"`
	Reference   string `json:"reference"`
	PaymentDate string `json:"payment_date"` // YYYY-MM-DD; defaults to today
	ClientID    string `json:"client_id"`    // set by sync pushes
}

type PaymentResponse struct {
	PaymentID  string `json:"payment_id"`
	Status     string `json:"status"`
	AmountPaid string `json:"amount_paid"`
}

// OverdueResult reports one sweep run.
type OverdueResult struct {
	Transitioned int
	Notified     int
}

// --- Interface ---

// LedgerService enforces the derived-state invariants of invoices and sales:
// amount_paid always equals the sum of payment rows, and status is a pure
// function of (amount_paid, total, due date, as-of date). Every mutation is
// one transaction; a saved payment with a stale status is never observable.
type LedgerService interface {
	CreateInvoice(ctx context.Context, actor auth.Actor, req CreateInvoiceRequest) (*InvoiceResponse, error)
	CreateSale(ctx context.Context, actor auth.Actor, req CreateSaleRequest) (*SaleResponse, error)
	RecordPayment(ctx context.Context, actor auth.Actor, req RecordPaymentRequest) (*PaymentResponse, error)
	// RecordShopPayment is the shop-scoped variant: the target must belong to
	// the shop named in the request path.
	RecordShopPayment(ctx context.Context, actor auth.Actor, shopID uuid.UUID, req RecordPaymentRequest) (*PaymentResponse, error)
	// CheckOverdue transitions due invoices to overdue and emits one
	// notification per transition. Safe to run repeatedly: records already
	// overdue or terminal are never revisited.
	CheckOverdue(ctx context.Context, asOf time.Time) (*OverdueResult, error)
	AttachReceipt(ctx context.Context, actor auth.Actor, saleID string, path string) error
}

type ledgerService struct {
	invoiceRepo  repository.InvoiceRepository
	saleRepo     repository.SaleRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	syncRepo     repository.SyncStateRepository
	auditRepo    repository.AuditRepository
	stockSvc     StockService
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewLedgerService(
	invoiceRepo repository.InvoiceRepository,
	saleRepo repository.SaleRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	syncRepo repository.SyncStateRepository,
	auditRepo repository.AuditRepository,
	stockSvc StockService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) LedgerService {
	return &ledgerService{
		invoiceRepo:  invoiceRepo,
		saleRepo:     saleRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		syncRepo:     syncRepo,
		auditRepo:    auditRepo,
		stockSvc:     stockSvc,
		txManager:    txManager,
		hub:          hub,
	}
}

// --- Invoice creation ---

func (s *ledgerService) CreateInvoice(ctx context.Context, actor auth.Actor, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid shop_id", map[string]string{"shop_id": "must be a uuid"})
	}
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid customer_id", map[string]string{"customer_id": "must be a uuid"})
	}
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("customer not found")
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer.ShopID != shopID {
		return nil, apperr.ValidationFields("customer does not belong to this shop", map[string]string{"customer_id": "wrong shop"})
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, apperr.ValidationFields("invalid due_date", map[string]string{"due_date": "must be YYYY-MM-DD"})
	}

	if len(req.Items) == 0 {
		return nil, apperr.ValidationFields("items must not be empty", map[string]string{"items": "required"})
	}

	type parsedItem struct {
		productID uuid.UUID
		quantity  int
		unitPrice decimal.Decimal
		taxRate   decimal.Decimal
		discount  decimal.Decimal
		total     decimal.Decimal
	}

	items := make([]parsedItem, 0, len(req.Items))
	total := decimal.Zero
	taxTotal := decimal.Zero
	discountTotal := decimal.Zero
	for i, itemReq := range req.Items {
		field := fmt.Sprintf("items.%d", i)

		productID, err := uuid.Parse(itemReq.ProductID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid product_id", map[string]string{field + ".product_id": "must be a uuid"})
		}
		// The product must be sold by this shop: a stock row must exist.
		sold, err := s.stockSvc.HasStockRow(ctx, shopID, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to check stock row: %w", err)
		}
		if !sold {
			return nil, apperr.ValidationFields("product not sold by this shop", map[string]string{field + ".product_id": "not stocked by shop"})
		}

		unitPrice, err := decimal.NewFromString(itemReq.UnitPrice)
		if err != nil {
			return nil, apperr.ValidationFields("invalid unit_price", map[string]string{field + ".unit_price": "must be a decimal"})
		}
		taxRate, err := optionalDecimal(itemReq.TaxRate)
		if err != nil {
			return nil, apperr.ValidationFields("invalid tax_rate", map[string]string{field + ".tax_rate": "must be a decimal"})
		}
		discount, err := optionalDecimal(itemReq.DiscountAmount)
		if err != nil {
			return nil, apperr.ValidationFields("invalid discount_amount", map[string]string{field + ".discount_amount": "must be a decimal"})
		}

		lineTotal := ledger.ItemTotal(itemReq.Quantity, unitPrice, taxRate, discount)
		base := unitPrice.Mul(decimal.NewFromInt(int64(itemReq.Quantity)))
		taxTotal = taxTotal.Add(base.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2))
		discountTotal = discountTotal.Add(discount)
		total = total.Add(lineTotal)

		items = append(items, parsedItem{
			productID: productID,
			quantity:  itemReq.Quantity,
			unitPrice: unitPrice,
			taxRate:   taxRate,
			discount:  discount,
			total:     lineTotal,
		})
	}

	status := model.StatusUnpaid
	if req.Draft {
		status = model.StatusDraft
	}

	invoice := model.Invoice{
		ShopID:         shopID,
		CustomerID:     customerID,
		IssueDate:      time.Now(),
		DueDate:        dueDate,
		TotalAmount:    total.Round(2),
		TaxAmount:      taxTotal.Round(2),
		DiscountAmount: discountTotal.Round(2),
		AmountPaid:     decimal.Zero,
		Status:         status,
		Notes:          req.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.generateInvoiceNumber(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		invoice.InvoiceNumber = number

		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		for _, item := range items {
			if err := s.invoiceRepo.CreateItem(txCtx, &model.InvoiceItem{
				InvoiceID:      invoice.ID,
				ProductID:      item.productID,
				Quantity:       item.quantity,
				UnitPrice:      item.unitPrice,
				TotalPrice:     item.total,
				TaxRate:        item.taxRate,
				DiscountAmount: item.discount,
			}); err != nil {
				return fmt.Errorf("failed to create invoice item: %w", err)
			}
			if _, err := s.stockSvc.ApplyLineItem(txCtx, shopID, item.productID, item.quantity); err != nil {
				return err
			}
		}

		return s.audit(txCtx, &actor.UserID, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"shop_id":      shopID.String(),
			"customer_id":  customerID.String(),
			"total_amount": invoice.TotalAmount.StringFixed(2),
			"items":        len(items),
		})
	})
	if err != nil {
		return nil, err
	}

	return toInvoiceResponse(&invoice), nil
}

// --- Sale creation ---

func (s *ledgerService) CreateSale(ctx context.Context, actor auth.Actor, req CreateSaleRequest) (*SaleResponse, error) {
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid shop_id", map[string]string{"shop_id": "must be a uuid"})
	}
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}

	// A client id marks the sale as shop-client origin: it is recorded in
	// the sync tracker within the same transaction and arrives pre-synced.
	// If this client id was already applied, resolve to the stored sale so
	// a direct retry gets the same answer instead of tripping the tracker's
	// unique key.
	var clientID *uuid.UUID
	if req.ClientID != "" {
		parsed, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid client_id", map[string]string{"client_id": "must be a uuid"})
		}
		if app, err := s.syncRepo.FindApplication(ctx, model.EntitySale, parsed); err == nil {
			return s.saleResponseByID(ctx, app.RecordID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check sync application: %w", err)
		}
		clientID = &parsed
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid customer_id", map[string]string{"customer_id": "must be a uuid"})
		}
		customer, err := s.customerRepo.FindByID(ctx, parsed)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("customer not found")
			}
			return nil, fmt.Errorf("failed to load customer: %w", err)
		}
		if customer.ShopID != shopID {
			return nil, apperr.ValidationFields("customer does not belong to this shop", map[string]string{"customer_id": "wrong shop"})
		}
		customerID = &parsed
	}

	totalPrice, err := decimal.NewFromString(req.TotalPrice)
	if err != nil || totalPrice.IsNegative() {
		return nil, apperr.ValidationFields("invalid total_price", map[string]string{"total_price": "must be a non-negative decimal"})
	}
	taxAmount, err := optionalDecimal(req.TaxAmount)
	if err != nil {
		return nil, apperr.ValidationFields("invalid tax_amount", map[string]string{"tax_amount": "must be a decimal"})
	}
	discountAmount, err := optionalDecimal(req.DiscountAmount)
	if err != nil {
		return nil, apperr.ValidationFields("invalid discount_amount", map[string]string{"discount_amount": "must be a decimal"})
	}

	method := req.PaymentMethod
	if method == "" {
		method = model.MethodCash
	}

	type parsedItem struct {
		productID    uuid.UUID
		quantity     int
		unitPrice    decimal.Decimal
		taxRate      decimal.Decimal
		discountRate decimal.Decimal
	}
	items := make([]parsedItem, 0, len(req.Items))
	for i, itemReq := range req.Items {
		field := fmt.Sprintf("items.%d", i)

		productID, err := uuid.Parse(itemReq.ProductID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid product_id", map[string]string{field + ".product_id": "must be a uuid"})
		}
		sold, err := s.stockSvc.HasStockRow(ctx, shopID, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to check stock row: %w", err)
		}
		if !sold {
			return nil, apperr.ValidationFields("product not sold by this shop", map[string]string{field + ".product_id": "not stocked by shop"})
		}
		unitPrice, err := decimal.NewFromString(itemReq.UnitPrice)
		if err != nil {
			return nil, apperr.ValidationFields("invalid unit_price", map[string]string{field + ".unit_price": "must be a decimal"})
		}
		taxRate, err := optionalDecimal(itemReq.TaxRate)
		if err != nil {
			return nil, apperr.ValidationFields("invalid tax_rate", map[string]string{field + ".tax_rate": "must be a decimal"})
		}
		discountRate, err := optionalDecimal(itemReq.DiscountRate)
		if err != nil {
			return nil, apperr.ValidationFields("invalid discount_rate", map[string]string{field + ".discount_rate": "must be a decimal"})
		}
		items = append(items, parsedItem{
			productID:    productID,
			quantity:     itemReq.Quantity,
			unitPrice:    unitPrice,
			taxRate:      taxRate,
			discountRate: discountRate,
		})
	}

	sale := model.Sale{
		ShopID:         shopID,
		CustomerID:     customerID,
		TotalPrice:     totalPrice,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		PaymentMethod:  method,
		Status:         model.StatusUnpaid,
	}

	if clientID != nil {
		sale.ClientID = clientID
		sale.Synced = true
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.saleRepo.Create(txCtx, &sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		for _, item := range items {
			if err := s.saleRepo.CreateItem(txCtx, &model.SaleItem{
				SaleID:       sale.ID,
				ProductID:    item.productID,
				Quantity:     item.quantity,
				UnitPrice:    item.unitPrice,
				TaxRate:      item.taxRate,
				DiscountRate: item.discountRate,
			}); err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}
			if _, err := s.stockSvc.ApplyLineItem(txCtx, shopID, item.productID, item.quantity); err != nil {
				return err
			}
		}

		if clientID != nil {
			if err := s.syncRepo.RecordApplication(txCtx, &model.SyncApplication{
				EntityType: model.EntitySale,
				ClientID:   *clientID,
				RecordID:   sale.ID,
				ShopID:     shopID,
			}); err != nil {
				return fmt.Errorf("failed to record sync application: %w", err)
			}
		}

		return s.audit(txCtx, &actor.UserID, model.ActionCreateSale, sale.ID.String(), "", map[string]interface{}{
			"shop_id":     shopID.String(),
			"total_price": sale.TotalPrice.StringFixed(2),
			"items":       len(items),
		})
	})
	if err != nil {
		return nil, err
	}

	return &SaleResponse{
		ID:         sale.ID.String(),
		ShopID:     sale.ShopID.String(),
		TotalPrice: sale.TotalPrice.StringFixed(2),
		Status:     sale.Status,
	}, nil
}

func (s *ledgerService) saleResponseByID(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return &SaleResponse{
		ID:         sale.ID.String(),
		ShopID:     sale.ShopID.String(),
		TotalPrice: sale.TotalPrice.StringFixed(2),
		Status:     sale.Status,
	}, nil
}

// --- Payment recording ---

func (s *ledgerService) RecordPayment(ctx context.Context, actor auth.Actor, req RecordPaymentRequest) (*PaymentResponse, error) {
	if (req.SaleID == "") == (req.InvoiceID == "") {
		return nil, apperr.Validation("exactly one of sale_id or invoice_id is required")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return nil, apperr.ValidationFields("invalid amount", map[string]string{"amount": "must be a non-negative decimal"})
	}
	amount = amount.Round(2)

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			return nil, apperr.ValidationFields("invalid payment_date", map[string]string{"payment_date": "must be YYYY-MM-DD"})
		}
	}

	var clientID *uuid.UUID
	if req.ClientID != "" {
		parsed, err := uuid.Parse(req.ClientID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid client_id", map[string]string{"client_id": "must be a uuid"})
		}
		clientID = &parsed
	}

	if req.InvoiceID != "" {
		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid invoice_id", map[string]string{"invoice_id": "must be a uuid"})
		}
		return s.payInvoice(ctx, actor, invoiceID, amount, paymentDate, req, clientID)
	}

	saleID, err := uuid.Parse(req.SaleID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid sale_id", map[string]string{"sale_id": "must be a uuid"})
	}
	return s.paySale(ctx, actor, saleID, amount, paymentDate, req, clientID)
}

func (s *ledgerService) RecordShopPayment(ctx context.Context, actor auth.Actor, shopID uuid.UUID, req RecordPaymentRequest) (*PaymentResponse, error) {
	if (req.SaleID == "") == (req.InvoiceID == "") {
		return nil, apperr.Validation("exactly one of sale_id or invoice_id is required")
	}

	// The target must live in the shop named by the path; a target from
	// another shop looks like a missing record, not a forbidden one.
	if req.InvoiceID != "" {
		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid invoice_id", map[string]string{"invoice_id": "must be a uuid"})
		}
		invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("invoice not found")
			}
			return nil, fmt.Errorf("failed to load invoice: %w", err)
		}
		if invoice.ShopID != shopID {
			return nil, apperr.NotFound("invoice not found in this shop")
		}
	} else {
		saleID, err := uuid.Parse(req.SaleID)
		if err != nil {
			return nil, apperr.ValidationFields("invalid sale_id", map[string]string{"sale_id": "must be a uuid"})
		}
		sale, err := s.saleRepo.FindByID(ctx, saleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("sale not found")
			}
			return nil, fmt.Errorf("failed to load sale: %w", err)
		}
		if sale.ShopID != shopID {
			return nil, apperr.NotFound("sale not found in this shop")
		}
	}

	return s.RecordPayment(ctx, actor, req)
}

func (s *ledgerService) payInvoice(ctx context.Context, actor auth.Actor, invoiceID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, req RecordPaymentRequest, clientID *uuid.UUID) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock serializes concurrent recomputations for the same invoice.
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("invoice not found")
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if !actor.CanAccessShop(invoice.ShopID) {
			return apperr.Authorization("no access to this shop")
		}

		payment := model.Payment{
			InvoiceID:     &invoice.ID,
			UserID:        &actor.UserID,
			Amount:        amount,
			PaymentDate:   paymentDate,
			PaymentMethod: req.Method,
			Reference:     req.Reference,
			Synced:        clientID != nil,
			ClientID:      clientID,
		}
		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		// Recompute from rows rather than adding to the stored value; no
		// float drift and no dependence on the previous column state.
		paid, err := s.paymentRepo.SumByInvoice(txCtx, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}

		invoice.AmountPaid = paid
		invoice.Status = ledger.ComputeStatus(paid, invoice.TotalAmount, invoice.DueDate, time.Now(), invoice.Status)
		if err := s.invoiceRepo.Save(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		if clientID != nil {
			if err := s.syncRepo.RecordApplication(txCtx, &model.SyncApplication{
				EntityType: model.EntityPayment,
				ClientID:   *clientID,
				RecordID:   payment.ID,
				ShopID:     invoice.ShopID,
			}); err != nil {
				return fmt.Errorf("failed to record sync application: %w", err)
			}
		}

		if err := s.audit(txCtx, &actor.UserID, model.ActionRecordPayment, payment.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"invoice_id":  invoice.ID.String(),
			"amount":      amount.StringFixed(2),
			"amount_paid": paid.StringFixed(2),
			"status":      invoice.Status,
		}); err != nil {
			return err
		}

		resp = &PaymentResponse{
			PaymentID:  payment.ID.String(),
			Status:     invoice.Status,
			AmountPaid: paid.StringFixed(2),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(ws.EventPaymentApplied, map[string]interface{}{
		"invoice_id": invoiceID.String(),
		"status":     resp.Status,
	})
	return resp, nil
}

func (s *ledgerService) paySale(ctx context.Context, actor auth.Actor, saleID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, req RecordPaymentRequest, clientID *uuid.UUID) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDForUpdate(txCtx, saleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("sale not found")
			}
			return fmt.Errorf("failed to load sale: %w", err)
		}
		if !actor.CanAccessShop(sale.ShopID) {
			return apperr.Authorization("no access to this shop")
		}

		payment := model.Payment{
			SaleID:        &sale.ID,
			UserID:        &actor.UserID,
			Amount:        amount,
			PaymentDate:   paymentDate,
			PaymentMethod: req.Method,
			Reference:     req.Reference,
			Synced:        clientID != nil,
			ClientID:      clientID,
		}
		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		paid, err := s.paymentRepo.SumBySale(txCtx, sale.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}

		sale.Status = ledger.SaleStatus(paid, sale.TotalPrice)
		if err := s.saleRepo.Save(txCtx, sale); err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}

		if clientID != nil {
			if err := s.syncRepo.RecordApplication(txCtx, &model.SyncApplication{
				EntityType: model.EntityPayment,
				ClientID:   *clientID,
				RecordID:   payment.ID,
				ShopID:     sale.ShopID,
			}); err != nil {
				return fmt.Errorf("failed to record sync application: %w", err)
			}
		}

		if err := s.audit(txCtx, &actor.UserID, model.ActionRecordPayment, payment.ID.String(), "", map[string]interface{}{
			"sale_id":     sale.ID.String(),
			"amount":      amount.StringFixed(2),
			"amount_paid": paid.StringFixed(2),
			"status":      sale.Status,
		}); err != nil {
			return err
		}

		resp = &PaymentResponse{
			PaymentID:  payment.ID.String(),
			Status:     sale.Status,
			AmountPaid: paid.StringFixed(2),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(ws.EventPaymentApplied, map[string]interface{}{
		"sale_id": saleID.String(),
		"status":  resp.Status,
	})
	return resp, nil
}

// --- Overdue sweep ---

func (s *ledgerService) CheckOverdue(ctx context.Context, asOf time.Time) (*OverdueResult, error) {
	// Compare against the start of the as-of day: an invoice due today is not
	// yet overdue.
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	candidates, err := s.invoiceRepo.FindOverdueCandidates(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue candidates: %w", err)
	}

	result := &OverdueResult{}
	for _, candidate := range candidates {
		err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, candidate.ID)
			if err != nil {
				return fmt.Errorf("failed to lock invoice: %w", err)
			}
			// Re-check under lock: a racing payment or a concurrent sweep
			// may already have moved the status.
			if invoice.IsTerminal() || invoice.Status == model.StatusOverdue {
				return nil
			}

			invoice.Status = model.StatusOverdue
			if err := s.invoiceRepo.Save(txCtx, invoice); err != nil {
				return fmt.Errorf("failed to mark invoice overdue: %w", err)
			}
			result.Transitioned++

			if err := s.audit(txCtx, nil, model.ActionInvoiceOverdue, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
				"due_date": invoice.DueDate.Format("2006-01-02"),
				"as_of":    asOf.Format("2006-01-02"),
			}); err != nil {
				return err
			}

			s.hub.Notify(ws.EventInvoiceOverdue, map[string]interface{}{
				"invoice_id":     invoice.ID.String(),
				"invoice_number": invoice.InvoiceNumber,
				"customer_id":    invoice.CustomerID.String(),
			})
			result.Notified++
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// --- Receipt upload path ---

func (s *ledgerService) AttachReceipt(ctx context.Context, actor auth.Actor, saleID string, path string) error {
	id, err := uuid.Parse(saleID)
	if err != nil {
		return apperr.ValidationFields("invalid sale id", map[string]string{"sale": "must be a uuid"})
	}
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("sale not found")
		}
		return fmt.Errorf("failed to load sale: %w", err)
	}
	if !actor.CanAccessShop(sale.ShopID) {
		return apperr.Authorization("no access to this shop")
	}

	sale.ReceiptPath = path
	return s.saleRepo.Save(ctx, sale)
}

// --- Helpers ---

func (s *ledgerService) generateInvoiceNumber(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "INV-" + today + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *ledgerService) audit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func optionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func toInvoiceResponse(inv *model.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:             inv.ID.String(),
		InvoiceNumber:  inv.InvoiceNumber,
		ShopID:         inv.ShopID.String(),
		CustomerID:     inv.CustomerID.String(),
		IssueDate:      inv.IssueDate.Format("2006-01-02"),
		DueDate:        inv.DueDate.Format("2006-01-02"),
		TotalAmount:    inv.TotalAmount.StringFixed(2),
		TaxAmount:      inv.TaxAmount.StringFixed(2),
		DiscountAmount: inv.DiscountAmount.StringFixed(2),
		AmountPaid:     inv.AmountPaid.StringFixed(2),
		Status:         inv.Status,
	}
}
