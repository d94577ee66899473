package handler

import (
	"net/http"
	"time"

	"retailsync/internal/middleware"
	"retailsync/internal/service"
	"retailsync/pkg/apperr"
	"retailsync/pkg/response"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncService service.SyncService
	rateLimit   gin.HandlerFunc
}

func NewSyncHandler(syncService service.SyncService, rateLimit gin.HandlerFunc) *SyncHandler {
	return &SyncHandler{syncService: syncService, rateLimit: rateLimit}
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	pull := router.Group("/api/shops")
	pull.Use(middleware.RequireAuth())
	{
		pull.GET("/:shop/sync/updates", h.GetUpdates)
	}

	push := router.Group("/api/sync")
	push.Use(middleware.RequireAuth())
	if h.rateLimit != nil {
		push.Use(h.rateLimit)
	}
	{
		push.POST("/sales", h.PushSales)
		push.POST("/customers", h.PushCustomers)
		push.POST("/payments", h.PushPayments)
	}
}

// GetUpdates returns head-office changes for a shop client
// @Summary      Pull updates
// @Description  Returns products/customers/stock; each set is a delta since its watermark, or a full snapshot when its watermark parameter is absent.
// @Tags         sync
// @Security     BearerAuth
// @Produce      json
// @Param        shop       path      string  true   "Shop ID"
// @Param        products   query     string  false  "RFC3339 watermark for products"
// @Param        customers  query     string  false  "RFC3339 watermark for customers"
// @Param        stock      query     string  false  "RFC3339 watermark for stock"
// @Success      200        {object}  response.Response{data=service.PullResponse}
// @Failure      403        {object}  response.Response
// @Router       /api/shops/{shop}/sync/updates [get]
func (h *SyncHandler) GetUpdates(c *gin.Context) {
	shopID, err := parseShopParam(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var query service.PullQuery
	if query.Products, err = watermarkParam(c, "products"); err != nil {
		writeError(c, err)
		return
	}
	if query.Customers, err = watermarkParam(c, "customers"); err != nil {
		writeError(c, err)
		return
	}
	if query.Stock, err = watermarkParam(c, "stock"); err != nil {
		writeError(c, err)
		return
	}

	updates, err := h.syncService.GetUpdates(c.Request.Context(), middleware.GetActor(c), shopID, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(updates))
}

// PushSales applies a batch of client-recorded sales
// @Summary      Push sales
// @Tags         sync
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PushSalesRequest  true  "Sales batch"
// @Success      201      {object}  response.Response{data=service.PushResult}
// @Failure      413      {object}  response.Response
// @Router       /api/sync/sales [post]
func (h *SyncHandler) PushSales(c *gin.Context) {
	var req service.PushSalesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.syncService.PushSales(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

// PushCustomers applies a batch of client-created customers
// @Summary      Push customers
// @Tags         sync
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PushCustomersRequest  true  "Customers batch"
// @Success      201      {object}  response.Response{data=service.PushResult}
// @Failure      413      {object}  response.Response
// @Router       /api/sync/customers [post]
func (h *SyncHandler) PushCustomers(c *gin.Context) {
	var req service.PushCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.syncService.PushCustomers(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

// PushPayments applies a batch of client-recorded payments
// @Summary      Push payments
// @Tags         sync
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PushPaymentsRequest  true  "Payments batch"
// @Success      201      {object}  response.Response{data=service.PushResult}
// @Failure      413      {object}  response.Response
// @Router       /api/sync/payments [post]
func (h *SyncHandler) PushPayments(c *gin.Context) {
	var req service.PushPaymentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	result, err := h.syncService.PushPayments(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

func watermarkParam(c *gin.Context, name string) (*time.Time, error) {
	raw, present := c.GetQuery(name)
	if !present {
		return nil, nil
	}
	// An empty value still selects the entity, from the beginning of time.
	if raw == "" {
		zero := time.Time{}
		return &zero, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.ValidationFields("invalid watermark", map[string]string{name: "must be an RFC3339 timestamp"})
	}
	return &ts, nil
}
