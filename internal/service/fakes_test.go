package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"retailsync/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the persistence contracts closely
// enough for service tests: not-found maps to gorm.ErrRecordNotFound, the
// sync application store enforces its unique (entity_type, client_id) key,
// and UpdatedSince filters are strict (> watermark, not >=).

type fakeTxManager struct {
	runs int
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.runs++
	return fn(ctx)
}

// --- stock ---

type fakeStockRepo struct {
	rows map[string]*model.Stock
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{rows: make(map[string]*model.Stock)}
}

func stockKey(shopID, productID uuid.UUID) string {
	return shopID.String() + "/" + productID.String()
}

func (f *fakeStockRepo) seed(shopID, productID uuid.UUID, quantity, alert int) {
	f.rows[stockKey(shopID, productID)] = &model.Stock{
		ID:            uuid.New(),
		ShopID:        shopID,
		ProductID:     productID,
		Quantity:      quantity,
		AlertQuantity: alert,
		UpdatedAt:     time.Now(),
	}
}

func (f *fakeStockRepo) Create(ctx context.Context, stock *model.Stock) error {
	if stock.ID == uuid.Nil {
		stock.ID = uuid.New()
	}
	stock.UpdatedAt = time.Now()
	clone := *stock
	f.rows[stockKey(stock.ShopID, stock.ProductID)] = &clone
	return nil
}

func (f *fakeStockRepo) Save(ctx context.Context, stock *model.Stock) error {
	stock.UpdatedAt = time.Now()
	clone := *stock
	f.rows[stockKey(stock.ShopID, stock.ProductID)] = &clone
	return nil
}

func (f *fakeStockRepo) Find(ctx context.Context, shopID, productID uuid.UUID) (*model.Stock, error) {
	row, ok := f.rows[stockKey(shopID, productID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeStockRepo) FindForUpdate(ctx context.Context, shopID, productID uuid.UUID) (*model.Stock, error) {
	return f.Find(ctx, shopID, productID)
}

func (f *fakeStockRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.Stock, error) {
	var out []model.Stock
	for _, row := range f.rows {
		if row.ShopID == shopID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeStockRepo) UpdatedSince(ctx context.Context, shopID uuid.UUID, since time.Time) ([]model.Stock, error) {
	var out []model.Stock
	for _, row := range f.rows {
		if row.ShopID == shopID && row.UpdatedAt.After(since) {
			out = append(out, *row)
		}
	}
	return out, nil
}

// --- invoices ---

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
	items    []model.InvoiceItem
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, invoice *model.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.UpdatedAt = time.Now()
	clone := *invoice
	f.invoices[invoice.ID] = &clone
	return nil
}

func (f *fakeInvoiceRepo) CreateItem(ctx context.Context, item *model.InvoiceItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeInvoiceRepo) Save(ctx context.Context, invoice *model.Invoice) error {
	invoice.UpdatedAt = time.Now()
	clone := *invoice
	f.invoices[invoice.ID] = &clone
	return nil
}

func (f *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *inv
	return &clone, nil
}

func (f *fakeInvoiceRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, item := range f.items {
		if item.InvoiceID == id {
			inv.Items = append(inv.Items, item)
		}
	}
	return inv, nil
}

func (f *fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeInvoiceRepo) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	for _, inv := range f.invoices {
		if strings.HasPrefix(inv.InvoiceNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (f *fakeInvoiceRepo) FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, inv := range f.invoices {
		if inv.IsTerminal() || inv.Status == model.StatusOverdue {
			continue
		}
		if inv.DueDate.Before(asOf) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

// --- sales ---

type fakeSaleRepo struct {
	sales map[uuid.UUID]*model.Sale
	items []model.SaleItem
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (f *fakeSaleRepo) Create(ctx context.Context, sale *model.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	sale.UpdatedAt = time.Now()
	clone := *sale
	f.sales[sale.ID] = &clone
	return nil
}

func (f *fakeSaleRepo) CreateItem(ctx context.Context, item *model.SaleItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeSaleRepo) Save(ctx context.Context, sale *model.Sale) error {
	sale.UpdatedAt = time.Now()
	clone := *sale
	f.sales[sale.ID] = &clone
	return nil
}

func (f *fakeSaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, ok := f.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *sale
	return &clone, nil
}

func (f *fakeSaleRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, item := range f.items {
		if item.SaleID == id {
			sale.Items = append(sale.Items, item)
		}
	}
	return sale, nil
}

func (f *fakeSaleRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	return f.FindByID(ctx, id)
}

// --- payments ---

type fakePaymentRepo struct {
	payments  []model.Payment
	createErr error
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakePaymentRepo) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range f.payments {
		if p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f *fakePaymentRepo) SumBySale(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range f.payments {
		if p.SaleID != nil && *p.SaleID == saleID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f *fakePaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range f.payments {
		if p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- customers ---

type fakeCustomerRepo struct {
	customers map[uuid.UUID]*model.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uuid.UUID]*model.Customer)}
}

func (f *fakeCustomerRepo) seed(shopID uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.customers[id] = &model.Customer{ID: id, ShopID: shopID, Name: "seeded", UpdatedAt: time.Now()}
	return id
}

func (f *fakeCustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	customer.UpdatedAt = time.Now()
	clone := *customer
	f.customers[customer.ID] = &clone
	return nil
}

func (f *fakeCustomerRepo) Save(ctx context.Context, customer *model.Customer) error {
	customer.UpdatedAt = time.Now()
	clone := *customer
	f.customers[customer.ID] = &clone
	return nil
}

func (f *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok || c.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCustomerRepo) ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int) ([]model.Customer, int64, error) {
	var out []model.Customer
	for _, c := range f.customers {
		if c.ShopID == shopID && !c.DeletedAt.Valid {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCustomerRepo) UpdatedSince(ctx context.Context, shopID uuid.UUID, since time.Time) ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range f.customers {
		if c.ShopID == shopID && c.UpdatedAt.After(since) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCustomerRepo) ListAllByShop(ctx context.Context, shopID uuid.UUID) ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range f.customers {
		if c.ShopID == shopID && !c.DeletedAt.Valid {
			out = append(out, *c)
		}
	}
	return out, nil
}

// --- products ---

type fakeProductRepo struct {
	products []model.Product
}

func (f *fakeProductRepo) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.UpdatedAt = time.Now()
	f.products = append(f.products, *product)
	return nil
}

func (f *fakeProductRepo) Update(ctx context.Context, product *model.Product) error {
	for i := range f.products {
		if f.products[i].ID == product.ID {
			product.UpdatedAt = time.Now()
			f.products[i] = *product
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			f.products[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id && !f.products[i].DeletedAt.Valid {
			clone := f.products[i]
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProductRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	for i := range f.products {
		if f.products[i].Barcode == barcode && !f.products[i].DeletedAt.Valid {
			clone := f.products[i]
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProductRepo) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range f.products {
		if p.DeletedAt.Valid {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProductRepo) UpdatedSince(ctx context.Context, since time.Time) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if p.UpdatedAt.After(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if !p.DeletedAt.Valid {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- sync applications ---

type fakeSyncRepo struct {
	apps map[string]model.SyncApplication
}

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{apps: make(map[string]model.SyncApplication)}
}

func appKey(entityType string, clientID uuid.UUID) string {
	return entityType + "/" + clientID.String()
}

func (f *fakeSyncRepo) FindApplication(ctx context.Context, entityType string, clientID uuid.UUID) (*model.SyncApplication, error) {
	app, ok := f.apps[appKey(entityType, clientID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := app
	return &clone, nil
}

func (f *fakeSyncRepo) RecordApplication(ctx context.Context, app *model.SyncApplication) error {
	key := appKey(app.EntityType, app.ClientID)
	if _, exists := f.apps[key]; exists {
		return errors.New("duplicate key value violates unique constraint \"idx_sync_entity_client\"")
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	f.apps[key] = *app
	return nil
}

// --- suppliers / supplies ---

type fakeSupplierRepo struct {
	suppliers map[uuid.UUID]*model.Supplier
}

func newFakeSupplierRepo() *fakeSupplierRepo {
	return &fakeSupplierRepo{suppliers: make(map[uuid.UUID]*model.Supplier)}
}

func (f *fakeSupplierRepo) seed() uuid.UUID {
	id := uuid.New()
	f.suppliers[id] = &model.Supplier{ID: id, Name: "supplier"}
	return id
}

func (f *fakeSupplierRepo) Create(ctx context.Context, supplier *model.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	clone := *supplier
	f.suppliers[supplier.ID] = &clone
	return nil
}

func (f *fakeSupplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s
	return &clone, nil
}

func (f *fakeSupplierRepo) List(ctx context.Context, page, limit int) ([]model.Supplier, int64, error) {
	var out []model.Supplier
	for _, s := range f.suppliers {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

type fakeSupplyRepo struct {
	supplies []model.Supply
}

func (f *fakeSupplyRepo) Create(ctx context.Context, supply *model.Supply) error {
	if supply.ID == uuid.Nil {
		supply.ID = uuid.New()
	}
	f.supplies = append(f.supplies, *supply)
	return nil
}

func (f *fakeSupplyRepo) Save(ctx context.Context, supply *model.Supply) error {
	for i := range f.supplies {
		if f.supplies[i].ID == supply.ID {
			f.supplies[i] = *supply
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeSupplyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supply, error) {
	for i := range f.supplies {
		if f.supplies[i].ID == id {
			clone := f.supplies[i]
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSupplyRepo) ListByShop(ctx context.Context, shopID uuid.UUID, page, limit int) ([]model.Supply, int64, error) {
	var out []model.Supply
	for _, s := range f.supplies {
		if s.ShopID == shopID {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
	logErr  error
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func (f *fakeAuditRepo) countAction(action string) int {
	n := 0
	for _, e := range f.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

// --- shops ---

type fakeShopRepo struct {
	shops map[uuid.UUID]*model.Shop
}

func newFakeShopRepo() *fakeShopRepo {
	return &fakeShopRepo{shops: make(map[uuid.UUID]*model.Shop)}
}

func (f *fakeShopRepo) seed() uuid.UUID {
	id := uuid.New()
	f.shops[id] = &model.Shop{ID: id, Name: "shop"}
	return id
}

func (f *fakeShopRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	shop, ok := f.shops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *shop
	return &clone, nil
}

func (f *fakeShopRepo) List(ctx context.Context) ([]model.Shop, error) {
	var out []model.Shop
	for _, s := range f.shops {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeShopRepo) Create(ctx context.Context, shop *model.Shop) error {
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}
	clone := *shop
	f.shops[shop.ID] = &clone
	return nil
}
