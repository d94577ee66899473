package service

import (
	"context"
	"testing"
	"time"

	"retailsync/internal/auth"
	"retailsync/internal/model"
	ws "retailsync/internal/websocket"
	"retailsync/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ledgerFixture struct {
	svc       LedgerService
	invoices  *fakeInvoiceRepo
	sales     *fakeSaleRepo
	payments  *fakePaymentRepo
	customers *fakeCustomerRepo
	syncApps  *fakeSyncRepo
	audit     *fakeAuditRepo
	stock     *fakeStockRepo
	shopID    uuid.UUID
	admin     auth.Actor
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		invoices:  newFakeInvoiceRepo(),
		sales:     newFakeSaleRepo(),
		payments:  &fakePaymentRepo{},
		customers: newFakeCustomerRepo(),
		syncApps:  newFakeSyncRepo(),
		audit:     &fakeAuditRepo{},
		stock:     newFakeStockRepo(),
		shopID:    uuid.New(),
	}
	hub := ws.NewHub()
	stockSvc := NewStockService(f.stock, hub)
	f.svc = NewLedgerService(f.invoices, f.sales, f.payments, f.customers, f.syncApps, f.audit, stockSvc, &fakeTxManager{}, hub)
	f.admin = auth.Actor{UserID: uuid.New(), Role: model.RoleAdmin}
	return f
}

func (f *ledgerFixture) seedCustomer(t *testing.T) uuid.UUID {
	t.Helper()
	return f.customers.seed(f.shopID)
}

func (f *ledgerFixture) seedProduct(t *testing.T, quantity int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	f.stock.seed(f.shopID, productID, quantity, 5)
	return productID
}

func (f *ledgerFixture) seedInvoice(t *testing.T, total string, dueDate time.Time, status string) uuid.UUID {
	t.Helper()
	inv := &model.Invoice{
		ShopID:        f.shopID,
		CustomerID:    f.customers.seed(f.shopID),
		InvoiceNumber: "INV-20260101-" + uuid.NewString()[:5],
		IssueDate:     time.Now().AddDate(0, 0, -30),
		DueDate:       dueDate,
		TotalAmount:   decimal.RequireFromString(total),
		AmountPaid:    decimal.Zero,
		Status:        status,
	}
	if err := f.invoices.Create(context.Background(), inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv.ID
}

func TestCreateInvoice(t *testing.T) {
	f := newLedgerFixture()
	customerID := f.seedCustomer(t)
	productID := f.seedProduct(t, 10)

	resp, err := f.svc.CreateInvoice(context.Background(), f.admin, CreateInvoiceRequest{
		ShopID:     f.shopID.String(),
		CustomerID: customerID.String(),
		DueDate:    time.Now().AddDate(0, 0, 30).Format("2006-01-02"),
		Items: []InvoiceItemRequest{
			{ProductID: productID.String(), Quantity: 2, UnitPrice: "100.00", TaxRate: "10", DiscountAmount: "5.00"},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// 2 x 100 = 200, +10% tax = 220, -5 discount = 215
	if resp.TotalAmount != "215.00" {
		t.Errorf("total = %s, want 215.00", resp.TotalAmount)
	}
	if resp.Status != model.StatusUnpaid {
		t.Errorf("status = %s, want unpaid", resp.Status)
	}
	wantPrefix := "INV-" + time.Now().Format("20060102") + "-00001"
	if resp.InvoiceNumber != wantPrefix {
		t.Errorf("invoice number = %s, want %s", resp.InvoiceNumber, wantPrefix)
	}

	stock, err := f.stock.Find(context.Background(), f.shopID, productID)
	if err != nil {
		t.Fatalf("find stock: %v", err)
	}
	if stock.Quantity != 8 {
		t.Errorf("stock = %d, want 8", stock.Quantity)
	}
	if f.audit.countAction(model.ActionCreateInvoice) != 1 {
		t.Errorf("expected one CREATE_INVOICE audit entry")
	}
}

func TestCreateInvoiceDraft(t *testing.T) {
	f := newLedgerFixture()
	customerID := f.seedCustomer(t)
	productID := f.seedProduct(t, 10)

	resp, err := f.svc.CreateInvoice(context.Background(), f.admin, CreateInvoiceRequest{
		ShopID:     f.shopID.String(),
		CustomerID: customerID.String(),
		DueDate:    time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
		Items:      []InvoiceItemRequest{{ProductID: productID.String(), Quantity: 1, UnitPrice: "50.00"}},
		Draft:      true,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if resp.Status != model.StatusDraft {
		t.Errorf("status = %s, want draft", resp.Status)
	}
}

func TestCreateInvoiceRejectsForeignCustomer(t *testing.T) {
	f := newLedgerFixture()
	otherShopCustomer := f.customers.seed(uuid.New())
	productID := f.seedProduct(t, 10)

	_, err := f.svc.CreateInvoice(context.Background(), f.admin, CreateInvoiceRequest{
		ShopID:     f.shopID.String(),
		CustomerID: otherShopCustomer.String(),
		DueDate:    "2026-12-01",
		Items:      []InvoiceItemRequest{{ProductID: productID.String(), Quantity: 1, UnitPrice: "10.00"}},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateInvoiceRejectsUnstockedProduct(t *testing.T) {
	f := newLedgerFixture()
	customerID := f.seedCustomer(t)

	_, err := f.svc.CreateInvoice(context.Background(), f.admin, CreateInvoiceRequest{
		ShopID:     f.shopID.String(),
		CustomerID: customerID.String(),
		DueDate:    "2026-12-01",
		Items:      []InvoiceItemRequest{{ProductID: uuid.NewString(), Quantity: 1, UnitPrice: "10.00"}},
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateSaleDecrementsStockAndAllowsNegative(t *testing.T) {
	f := newLedgerFixture()
	productID := f.seedProduct(t, 3)

	resp, err := f.svc.CreateSale(context.Background(), f.admin, CreateSaleRequest{
		ShopID:     f.shopID.String(),
		Items:      []SaleItemRequest{{ProductID: productID.String(), Quantity: 5, UnitPrice: "20.00"}},
		TotalPrice: "100.00",
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if resp.Status != model.StatusUnpaid {
		t.Errorf("status = %s, want unpaid", resp.Status)
	}

	stock, err := f.stock.Find(context.Background(), f.shopID, productID)
	if err != nil {
		t.Fatalf("find stock: %v", err)
	}
	if stock.Quantity != -2 {
		t.Errorf("stock = %d, want -2 (oversell permitted)", stock.Quantity)
	}
}

func TestCreateSaleStoresClientTotalsVerbatim(t *testing.T) {
	f := newLedgerFixture()
	productID := f.seedProduct(t, 10)

	// Total deliberately disagrees with the items: the server must keep the
	// client's figure rather than recompute.
	resp, err := f.svc.CreateSale(context.Background(), f.admin, CreateSaleRequest{
		ShopID:     f.shopID.String(),
		Items:      []SaleItemRequest{{ProductID: productID.String(), Quantity: 1, UnitPrice: "10.00"}},
		TotalPrice: "999.99",
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if resp.TotalPrice != "999.99" {
		t.Errorf("total = %s, want 999.99", resp.TotalPrice)
	}
}

func TestCreateSaleWithClientIDRecordsApplication(t *testing.T) {
	f := newLedgerFixture()
	productID := f.seedProduct(t, 10)
	clientID := uuid.New()

	resp, err := f.svc.CreateSale(context.Background(), f.admin, CreateSaleRequest{
		ShopID:     f.shopID.String(),
		Items:      []SaleItemRequest{{ProductID: productID.String(), Quantity: 1, UnitPrice: "10.00"}},
		TotalPrice: "10.00",
		ClientID:   clientID.String(),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	saleID := uuid.MustParse(resp.ID)
	sale, err := f.sales.FindByID(context.Background(), saleID)
	if err != nil {
		t.Fatalf("find sale: %v", err)
	}
	if !sale.Synced {
		t.Errorf("pushed sale should arrive synced")
	}

	app, err := f.syncApps.FindApplication(context.Background(), model.EntitySale, clientID)
	if err != nil {
		t.Fatalf("find application: %v", err)
	}
	if app.RecordID != saleID {
		t.Errorf("application record = %s, want %s", app.RecordID, saleID)
	}
}

func TestCreateSaleDirectRetryResolvesPriorApplication(t *testing.T) {
	f := newLedgerFixture()
	productID := f.seedProduct(t, 10)

	req := CreateSaleRequest{
		ShopID:     f.shopID.String(),
		Items:      []SaleItemRequest{{ProductID: productID.String(), Quantity: 2, UnitPrice: "10.00"}},
		TotalPrice: "20.00",
		ClientID:   uuid.NewString(),
	}

	first, err := f.svc.CreateSale(context.Background(), f.admin, req)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A direct retry carrying the same client id must return the stored sale
	// instead of failing on the tracker's unique key.
	second, err := f.svc.CreateSale(context.Background(), f.admin, req)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("retry sale id %s != original %s", second.ID, first.ID)
	}

	stock, err := f.stock.Find(context.Background(), f.shopID, productID)
	if err != nil {
		t.Fatalf("find stock: %v", err)
	}
	if stock.Quantity != 8 {
		t.Errorf("stock = %d, want 8 (single decrement)", stock.Quantity)
	}
}

func TestRecordPaymentInvoiceProgression(t *testing.T) {
	f := newLedgerFixture()
	dueDate := time.Now().AddDate(0, 0, 30)
	invoiceID := f.seedInvoice(t, "1000.00", dueDate, model.StatusUnpaid)

	pay := func(amount string) *PaymentResponse {
		t.Helper()
		resp, err := f.svc.RecordPayment(context.Background(), f.admin, RecordPaymentRequest{
			InvoiceID: invoiceID.String(),
			Amount:    amount,
			Method:    model.MethodCash,
		})
		if err != nil {
			t.Fatalf("RecordPayment(%s): %v", amount, err)
		}
		return resp
	}

	resp := pay("400.00")
	if resp.Status != model.StatusPartiallyPaid || resp.AmountPaid != "400.00" {
		t.Errorf("after 400: status=%s paid=%s, want partially_paid 400.00", resp.Status, resp.AmountPaid)
	}

	resp = pay("600.00")
	if resp.Status != model.StatusPaid || resp.AmountPaid != "1000.00" {
		t.Errorf("after 1000: status=%s paid=%s, want paid 1000.00", resp.Status, resp.AmountPaid)
	}

	// Over-payment stays paid, never a distinct state.
	resp = pay("50.00")
	if resp.Status != model.StatusPaid || resp.AmountPaid != "1050.00" {
		t.Errorf("after over-payment: status=%s paid=%s, want paid 1050.00", resp.Status, resp.AmountPaid)
	}

	// Stored amount_paid must equal the recomputed sum of payment rows.
	inv, err := f.invoices.FindByID(context.Background(), invoiceID)
	if err != nil {
		t.Fatalf("find invoice: %v", err)
	}
	sum, _ := f.payments.SumByInvoice(context.Background(), invoiceID)
	if !inv.AmountPaid.Equal(sum) {
		t.Errorf("amount_paid %s != payment sum %s", inv.AmountPaid, sum)
	}
}

func TestRecordPaymentRequiresExactlyOneTarget(t *testing.T) {
	f := newLedgerFixture()

	for name, req := range map[string]RecordPaymentRequest{
		"neither": {Amount: "10.00", Method: model.MethodCash},
		"both":    {InvoiceID: uuid.NewString(), SaleID: uuid.NewString(), Amount: "10.00", Method: model.MethodCash},
	} {
		if _, err := f.svc.RecordPayment(context.Background(), f.admin, req); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("%s: err = %v, want validation error", name, err)
		}
	}
}

func TestRecordPaymentSaleTarget(t *testing.T) {
	f := newLedgerFixture()
	productID := f.seedProduct(t, 10)

	created, err := f.svc.CreateSale(context.Background(), f.admin, CreateSaleRequest{
		ShopID:     f.shopID.String(),
		Items:      []SaleItemRequest{{ProductID: productID.String(), Quantity: 1, UnitPrice: "75.00"}},
		TotalPrice: "75.00",
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	resp, err := f.svc.RecordPayment(context.Background(), f.admin, RecordPaymentRequest{
		SaleID: created.ID,
		Amount: "75.00",
		Method: model.MethodCard,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if resp.Status != model.StatusPaid {
		t.Errorf("status = %s, want paid", resp.Status)
	}
}

func TestRecordPaymentUnknownInvoice(t *testing.T) {
	f := newLedgerFixture()
	_, err := f.svc.RecordPayment(context.Background(), f.admin, RecordPaymentRequest{
		InvoiceID: uuid.NewString(),
		Amount:    "10.00",
		Method:    model.MethodCash,
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRecordPaymentStaffShopIsolation(t *testing.T) {
	f := newLedgerFixture()
	invoiceID := f.seedInvoice(t, "100.00", time.Now().AddDate(0, 0, 10), model.StatusUnpaid)

	otherShop := uuid.New()
	staff := auth.Actor{UserID: uuid.New(), Role: model.RoleStaff, ShopID: &otherShop}

	_, err := f.svc.RecordPayment(context.Background(), staff, RecordPaymentRequest{
		InvoiceID: invoiceID.String(),
		Amount:    "10.00",
		Method:    model.MethodCash,
	})
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("err = %v, want authorization error", err)
	}
	if len(f.payments.payments) != 0 {
		t.Errorf("no payment row should exist after a rejected attempt")
	}
}

func TestRecordShopPaymentWrongShop(t *testing.T) {
	f := newLedgerFixture()
	invoiceID := f.seedInvoice(t, "100.00", time.Now().AddDate(0, 0, 10), model.StatusUnpaid)

	_, err := f.svc.RecordShopPayment(context.Background(), f.admin, uuid.New(), RecordPaymentRequest{
		InvoiceID: invoiceID.String(),
		Amount:    "10.00",
		Method:    model.MethodCash,
	})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	resp, err := f.svc.RecordShopPayment(context.Background(), f.admin, f.shopID, RecordPaymentRequest{
		InvoiceID: invoiceID.String(),
		Amount:    "10.00",
		Method:    model.MethodCash,
	})
	if err != nil {
		t.Fatalf("RecordShopPayment: %v", err)
	}
	if resp.Status != model.StatusPartiallyPaid {
		t.Errorf("status = %s, want partially_paid", resp.Status)
	}
}

func TestCheckOverdue(t *testing.T) {
	f := newLedgerFixture()
	yesterday := time.Now().AddDate(0, 0, -1)
	tomorrow := time.Now().AddDate(0, 0, 1)

	lateUnpaid := f.seedInvoice(t, "100.00", yesterday, model.StatusUnpaid)
	latePartial := f.seedInvoice(t, "100.00", yesterday, model.StatusPartiallyPaid)
	f.seedInvoice(t, "100.00", yesterday, model.StatusPaid)
	f.seedInvoice(t, "100.00", yesterday, model.StatusCancelled)
	f.seedInvoice(t, "100.00", tomorrow, model.StatusUnpaid)
	// Due today is not overdue yet.
	f.seedInvoice(t, "100.00", time.Now(), model.StatusUnpaid)

	result, err := f.svc.CheckOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("CheckOverdue: %v", err)
	}
	if result.Transitioned != 2 {
		t.Errorf("transitioned = %d, want 2", result.Transitioned)
	}
	if result.Notified != 2 {
		t.Errorf("notified = %d, want 2", result.Notified)
	}

	for _, id := range []uuid.UUID{lateUnpaid, latePartial} {
		inv, err := f.invoices.FindByID(context.Background(), id)
		if err != nil {
			t.Fatalf("find invoice: %v", err)
		}
		if inv.Status != model.StatusOverdue {
			t.Errorf("invoice %s status = %s, want overdue", id, inv.Status)
		}
	}

	// A second sweep finds nothing: no repeat transitions, no repeat
	// notifications.
	again, err := f.svc.CheckOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("CheckOverdue again: %v", err)
	}
	if again.Transitioned != 0 || again.Notified != 0 {
		t.Errorf("second sweep transitioned=%d notified=%d, want 0 0", again.Transitioned, again.Notified)
	}
	if got := f.audit.countAction(model.ActionInvoiceOverdue); got != 2 {
		t.Errorf("overdue audit entries = %d, want 2", got)
	}
}

func TestAttachReceipt(t *testing.T) {
	f := newLedgerFixture()
	productID := f.seedProduct(t, 10)

	created, err := f.svc.CreateSale(context.Background(), f.admin, CreateSaleRequest{
		ShopID:     f.shopID.String(),
		Items:      []SaleItemRequest{{ProductID: productID.String(), Quantity: 1, UnitPrice: "10.00"}},
		TotalPrice: "10.00",
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if err := f.svc.AttachReceipt(context.Background(), f.admin, created.ID, "receipts/abc.jpg"); err != nil {
		t.Fatalf("AttachReceipt: %v", err)
	}
	sale, err := f.sales.FindByID(context.Background(), uuid.MustParse(created.ID))
	if err != nil {
		t.Fatalf("find sale: %v", err)
	}
	if sale.ReceiptPath != "receipts/abc.jpg" {
		t.Errorf("receipt path = %s", sale.ReceiptPath)
	}
}
