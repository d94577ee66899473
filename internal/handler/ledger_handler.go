package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"retailsync/internal/middleware"
	"retailsync/internal/model"
	"retailsync/internal/service"
	"retailsync/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
	supplyService service.SupplyService
}

func NewLedgerHandler(ledgerService service.LedgerService, supplyService service.SupplyService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService, supplyService: supplyService}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/invoices", h.CreateInvoice)
		api.POST("/sales", h.CreateSale)
		api.POST("/sales/:sale/receipt", h.UploadReceipt)
		api.POST("/payments", h.RecordPayment)
		api.POST("/shops/:shop/payments", h.RecordShopPayment)
		api.POST("/supplies", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.RecordSupply)
	}
}

// CreateInvoice creates an invoice with line items and decrements stock
// @Summary      Create invoice
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Invoice"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/invoices [post]
func (h *LedgerHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	invoice, err := h.ledgerService.CreateInvoice(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(invoice))
}

// CreateSale records a completed sale and decrements stock
// @Summary      Create sale
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=service.SaleResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/sales [post]
func (h *LedgerHandler) CreateSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	sale, err := h.ledgerService.CreateSale(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(sale))
}

// UploadReceipt attaches a receipt image to a sale
// @Summary      Upload sale receipt
// @Tags         ledger
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        sale     path      string  true  "Sale ID"
// @Param        receipt  formData  file    true  "Receipt image"
// @Success      200      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/sales/{sale}/receipt [post]
func (h *LedgerHandler) UploadReceipt(c *gin.Context) {
	file, err := c.FormFile("receipt")
	if err != nil {
		bindError(c, err)
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".pdf":
	default:
		c.JSON(http.StatusUnprocessableEntity, response.Error("unsupported receipt format: "+ext))
		return
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	receiptDir := filepath.Join(uploadDir, "receipts")
	if err := os.MkdirAll(receiptDir, 0o755); err != nil {
		writeError(c, fmt.Errorf("failed to create upload dir: %w", err))
		return
	}

	storedPath := filepath.Join(receiptDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		writeError(c, fmt.Errorf("failed to store receipt: %w", err))
		return
	}

	if err := h.ledgerService.AttachReceipt(c.Request.Context(), middleware.GetActor(c), c.Param("sale"), storedPath); err != nil {
		// The sale rejected the attachment; do not leave the file orphaned.
		_ = os.Remove(storedPath)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"receipt_path": storedPath}))
}

// RecordPayment applies a payment against an invoice or a sale
// @Summary      Record payment
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/payments [post]
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	payment, err := h.ledgerService.RecordPayment(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(payment))
}

// RecordShopPayment applies a payment against a target belonging to one shop
// @Summary      Record shop payment
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        shop     path      string                        true  "Shop ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/shops/{shop}/payments [post]
func (h *LedgerHandler) RecordShopPayment(c *gin.Context) {
	shopID, err := uuid.Parse(c.Param("shop"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, response.Error("invalid shop id"))
		return
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	payment, err := h.ledgerService.RecordShopPayment(c.Request.Context(), middleware.GetActor(c), shopID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(payment))
}

// RecordSupply books a stock intake from a supplier
// @Summary      Record supply
// @Tags         ledger
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordSupplyRequest  true  "Supply"
// @Success      201      {object}  response.Response{data=service.SupplyResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/supplies [post]
func (h *LedgerHandler) RecordSupply(c *gin.Context) {
	var req service.RecordSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	supply, err := h.supplyService.RecordSupply(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(supply))
}
