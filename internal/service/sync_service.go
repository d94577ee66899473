package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"retailsync/internal/auth"
	"retailsync/internal/model"
	"retailsync/internal/repository"
	"retailsync/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultBatchLimit caps the number of records per push request.
const DefaultBatchLimit = 500

// --- DTOs ---

// PullQuery carries per-entity watermarks. A nil timestamp means the client
// sent no watermark for that entity and gets a full snapshot of it; a set
// timestamp narrows that entity to rows updated strictly after it.
type PullQuery struct {
	Products  *time.Time
	Customers *time.Time
	Stock     *time.Time
}

// productDelta carries a tombstone flag so clients can purge rows deleted
// at the head office since their last pull.
type productDelta struct {
	model.Product
	Deleted bool `json:"deleted,omitempty"`
}

type customerDelta struct {
	model.Customer
	Deleted bool `json:"deleted,omitempty"`
}

type PullResponse struct {
	Timestamp string          `json:"timestamp"`
	Products  []productDelta  `json:"products"`
	Customers []customerDelta `json:"customers"`
	Stock     []model.Stock   `json:"stock"`
}

type PushCustomerRecord struct {
	ClientID     string `json:"client_id" binding:"required"`
	ShopID       string `json:"shop_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	CreditLimit  string `json:"credit_limit"`
	PaymentTerms string `json:"payment_terms"`
}

type PushSalesRequest struct {
	Sales []CreateSaleRequest `json:"sales" binding:"required,dive"`
}

type PushCustomersRequest struct {
	Customers []PushCustomerRecord `json:"customers" binding:"required,dive"`
}

type PushPaymentsRequest struct {
	Payments []RecordPaymentRequest `json:"payments" binding:"required,dive"`
}

type ProcessedRecord struct {
	ClientID string `json:"client_id"`
	RecordID string `json:"record_id"`
}

type SkippedRecord struct {
	ClientID string `json:"client_id"`
	Reason   string `json:"reason"`
}

// PushResult reports per-record outcomes. Records the caller has no shop
// access for are dropped without an entry here; they are audited server-side.
type PushResult struct {
	Processed []ProcessedRecord `json:"processed"`
	Skipped   []SkippedRecord   `json:"skipped,omitempty"`
}

// --- Interface ---

// SyncService implements the shop-client synchronization protocol: watermark
// pulls of head-office data and idempotent pushes of client-created records.
// Each pushed record is applied in its own transaction; one bad record never
// poisons the rest of the batch.
type SyncService interface {
	GetUpdates(ctx context.Context, actor auth.Actor, shopID uuid.UUID, q PullQuery) (*PullResponse, error)
	PushSales(ctx context.Context, actor auth.Actor, req PushSalesRequest) (*PushResult, error)
	PushCustomers(ctx context.Context, actor auth.Actor, req PushCustomersRequest) (*PushResult, error)
	PushPayments(ctx context.Context, actor auth.Actor, req PushPaymentsRequest) (*PushResult, error)
}

type syncService struct {
	productRepo  repository.ProductRepository
	stockRepo    repository.StockRepository
	customerRepo repository.CustomerRepository
	syncRepo     repository.SyncStateRepository
	auditRepo    repository.AuditRepository
	ledgerSvc    LedgerService
	txManager    repository.TransactionManager
	batchLimit   int
}

func NewSyncService(
	productRepo repository.ProductRepository,
	stockRepo repository.StockRepository,
	customerRepo repository.CustomerRepository,
	syncRepo repository.SyncStateRepository,
	auditRepo repository.AuditRepository,
	ledgerSvc LedgerService,
	txManager repository.TransactionManager,
	batchLimit int,
) SyncService {
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	return &syncService{
		productRepo:  productRepo,
		stockRepo:    stockRepo,
		customerRepo: customerRepo,
		syncRepo:     syncRepo,
		auditRepo:    auditRepo,
		ledgerSvc:    ledgerSvc,
		txManager:    txManager,
		batchLimit:   batchLimit,
	}
}

// --- Pull ---

func (s *syncService) GetUpdates(ctx context.Context, actor auth.Actor, shopID uuid.UUID, q PullQuery) (*PullResponse, error) {
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}

	// Capture the server clock before querying so a row updated mid-pull is
	// picked up again on the next delta instead of falling in the gap.
	now := time.Now().UTC()
	resp := &PullResponse{Timestamp: now.Format(time.RFC3339)}

	// Each entity decides delta vs snapshot on its own watermark: a client
	// that only tracks product changes still gets its customers and stock
	// in full on every pull.
	var (
		products []model.Product
		err      error
	)
	if q.Products != nil {
		products, err = s.productRepo.UpdatedSince(ctx, *q.Products)
	} else {
		products, err = s.productRepo.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product updates: %w", err)
	}
	resp.Products = make([]productDelta, 0, len(products))
	for _, p := range products {
		resp.Products = append(resp.Products, productDelta{Product: p, Deleted: p.DeletedAt.Valid})
	}

	var customers []model.Customer
	if q.Customers != nil {
		customers, err = s.customerRepo.UpdatedSince(ctx, shopID, *q.Customers)
	} else {
		customers, err = s.customerRepo.ListAllByShop(ctx, shopID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer updates: %w", err)
	}
	resp.Customers = make([]customerDelta, 0, len(customers))
	for _, c := range customers {
		resp.Customers = append(resp.Customers, customerDelta{Customer: c, Deleted: c.DeletedAt.Valid})
	}

	var stock []model.Stock
	if q.Stock != nil {
		stock, err = s.stockRepo.UpdatedSince(ctx, shopID, *q.Stock)
	} else {
		stock, err = s.stockRepo.ListByShop(ctx, shopID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock updates: %w", err)
	}
	if stock == nil {
		stock = []model.Stock{}
	}
	resp.Stock = stock

	return resp, nil
}

// --- Push ---

func (s *syncService) PushSales(ctx context.Context, actor auth.Actor, req PushSalesRequest) (*PushResult, error) {
	if len(req.Sales) > s.batchLimit {
		return nil, apperr.PayloadTooLarge(fmt.Sprintf("batch exceeds limit of %d records", s.batchLimit))
	}

	result := newPushResult()
	for _, rec := range req.Sales {
		clientID, err := uuid.Parse(rec.ClientID)
		if err != nil {
			result.skip(rec.ClientID, "client_id must be a uuid")
			continue
		}

		if done, err := s.replayExisting(ctx, result, model.EntitySale, clientID); err != nil {
			return nil, err
		} else if done {
			continue
		}

		sale, err := s.ledgerSvc.CreateSale(ctx, actor, rec)
		if err != nil {
			s.classifyFailure(ctx, result, actor, model.EntitySale, rec.ClientID, err)
			continue
		}
		result.processed(rec.ClientID, sale.ID)
	}
	return result, nil
}

func (s *syncService) PushCustomers(ctx context.Context, actor auth.Actor, req PushCustomersRequest) (*PushResult, error) {
	if len(req.Customers) > s.batchLimit {
		return nil, apperr.PayloadTooLarge(fmt.Sprintf("batch exceeds limit of %d records", s.batchLimit))
	}

	result := newPushResult()
	for _, rec := range req.Customers {
		clientID, err := uuid.Parse(rec.ClientID)
		if err != nil {
			result.skip(rec.ClientID, "client_id must be a uuid")
			continue
		}

		if done, err := s.replayExisting(ctx, result, model.EntityCustomer, clientID); err != nil {
			return nil, err
		} else if done {
			continue
		}

		created, err := s.createCustomer(ctx, actor, clientID, rec)
		if err != nil {
			s.classifyFailure(ctx, result, actor, model.EntityCustomer, rec.ClientID, err)
			continue
		}
		result.processed(rec.ClientID, created.ID.String())
	}
	return result, nil
}

func (s *syncService) PushPayments(ctx context.Context, actor auth.Actor, req PushPaymentsRequest) (*PushResult, error) {
	if len(req.Payments) > s.batchLimit {
		return nil, apperr.PayloadTooLarge(fmt.Sprintf("batch exceeds limit of %d records", s.batchLimit))
	}

	result := newPushResult()
	for _, rec := range req.Payments {
		clientID, err := uuid.Parse(rec.ClientID)
		if err != nil {
			result.skip(rec.ClientID, "client_id must be a uuid")
			continue
		}

		if done, err := s.replayExisting(ctx, result, model.EntityPayment, clientID); err != nil {
			return nil, err
		} else if done {
			continue
		}

		payment, err := s.ledgerSvc.RecordPayment(ctx, actor, rec)
		if err != nil {
			s.classifyFailure(ctx, result, actor, model.EntityPayment, rec.ClientID, err)
			continue
		}
		result.processed(rec.ClientID, payment.PaymentID)
	}
	return result, nil
}

// --- Per-record plumbing ---

// replayExisting resolves already-applied client ids to their server record so
// a retried batch gets the same answer without touching stock or balances.
func (s *syncService) replayExisting(ctx context.Context, result *PushResult, entityType string, clientID uuid.UUID) (bool, error) {
	app, err := s.syncRepo.FindApplication(ctx, entityType, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check sync application: %w", err)
	}
	result.processed(clientID.String(), app.RecordID.String())
	return true, nil
}

// classifyFailure sorts a per-record error into the response. Authorization
// failures are dropped from the reply entirely (the client cannot act on
// them) but leave an audit trail; validation problems are reported back;
// anything else is logged and skipped so the rest of the batch proceeds.
func (s *syncService) classifyFailure(ctx context.Context, result *PushResult, actor auth.Actor, entityType, clientID string, err error) {
	switch {
	case apperr.IsKind(err, apperr.KindAuthorization):
		s.auditSkip(ctx, actor, entityType, clientID, err.Error())
		log.Printf("sync: skipped %s %s for user %s: %v", entityType, clientID, actor.UserID, err)
	case apperr.IsKind(err, apperr.KindValidation), apperr.IsKind(err, apperr.KindNotFound), apperr.IsKind(err, apperr.KindConflict):
		result.skip(clientID, err.Error())
	default:
		log.Printf("sync: failed to apply %s %s: %v", entityType, clientID, err)
		result.skip(clientID, "internal error")
	}
}

func (s *syncService) auditSkip(ctx context.Context, actor auth.Actor, entityType, clientID, reason string) {
	details, _ := json.Marshal(map[string]interface{}{
		"entity_type": entityType,
		"client_id":   clientID,
		"reason":      reason,
	})
	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:  &actor.UserID,
		Action:  model.ActionSyncSkipped,
		Details: string(details),
	}); err != nil {
		log.Printf("sync: failed to audit skipped record %s: %v", clientID, err)
	}
}

func (s *syncService) createCustomer(ctx context.Context, actor auth.Actor, clientID uuid.UUID, rec PushCustomerRecord) (*model.Customer, error) {
	shopID, err := uuid.Parse(rec.ShopID)
	if err != nil {
		return nil, apperr.ValidationFields("invalid shop_id", map[string]string{"shop_id": "must be a uuid"})
	}
	if !actor.CanAccessShop(shopID) {
		return nil, apperr.Authorization("no access to this shop")
	}
	if rec.Name == "" {
		return nil, apperr.ValidationFields("name is required", map[string]string{"name": "required"})
	}
	creditLimit, err := optionalDecimal(rec.CreditLimit)
	if err != nil || creditLimit.IsNegative() {
		return nil, apperr.ValidationFields("invalid credit_limit", map[string]string{"credit_limit": "must be a non-negative decimal"})
	}

	customer := model.Customer{
		ShopID:       shopID,
		Name:         rec.Name,
		Phone:        rec.Phone,
		Email:        rec.Email,
		Address:      rec.Address,
		CreditLimit:  creditLimit,
		PaymentTerms: rec.PaymentTerms,
		Synced:       true,
		ClientID:     &clientID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		if err := s.syncRepo.RecordApplication(txCtx, &model.SyncApplication{
			EntityType: model.EntityCustomer,
			ClientID:   clientID,
			RecordID:   customer.ID,
			ShopID:     shopID,
		}); err != nil {
			return fmt.Errorf("failed to record sync application: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"shop_id":   shopID.String(),
			"client_id": clientID.String(),
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionCreateCustomer,
			EntityID:   customer.ID.String(),
			EntityName: customer.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func newPushResult() *PushResult {
	return &PushResult{Processed: []ProcessedRecord{}, Skipped: []SkippedRecord{}}
}

func (r *PushResult) processed(clientID, recordID string) {
	r.Processed = append(r.Processed, ProcessedRecord{ClientID: clientID, RecordID: recordID})
}

func (r *PushResult) skip(clientID, reason string) {
	r.Skipped = append(r.Skipped, SkippedRecord{ClientID: clientID, Reason: reason})
}
