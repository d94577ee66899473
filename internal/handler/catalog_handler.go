package handler

import (
	"net/http"

	"retailsync/internal/middleware"
	"retailsync/internal/model"
	"retailsync/internal/service"
	"retailsync/pkg/apperr"
	"retailsync/pkg/pagination"
	"retailsync/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products")
	products.Use(middleware.RequireAuth())
	{
		products.GET("", h.ListProducts)
	}

	shops := router.Group("/api/shops")
	shops.Use(middleware.RequireAuth())
	{
		shops.GET("", h.ListShops)
		shops.GET("/:shop/stock", h.ListShopStock)
		shops.GET("/:shop/customers", h.ListShopCustomers)
		shops.POST("/:shop/customers", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.CreateCustomer)
	}
}

// ListProducts returns the paginated central product catalog
// @Summary      List products
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 50, max 100)"
// @Param        search  query     string  false  "Name search"
// @Success      200     {object}  response.Response{data=service.ProductListResponse}
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	params := pagination.Parse(c)
	result, err := h.catalogService.ListProducts(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// ListShops returns the shops visible to the caller
// @Summary      List shops
// @Tags         shops
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Shop}
// @Router       /api/shops [get]
func (h *CatalogHandler) ListShops(c *gin.Context) {
	shops, err := h.catalogService.ListShops(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(shops))
}

// ListShopStock returns current stock levels for one shop
// @Summary      List shop stock
// @Tags         shops
// @Security     BearerAuth
// @Produce      json
// @Param        shop  path      string  true  "Shop ID"
// @Success      200   {object}  response.Response{data=[]model.Stock}
// @Failure      403   {object}  response.Response
// @Router       /api/shops/{shop}/stock [get]
func (h *CatalogHandler) ListShopStock(c *gin.Context) {
	shopID, err := parseShopParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	stock, err := h.catalogService.ListShopStock(c.Request.Context(), middleware.GetActor(c), shopID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(stock))
}

// ListShopCustomers returns the customer book for one shop
// @Summary      List shop customers
// @Tags         shops
// @Security     BearerAuth
// @Produce      json
// @Param        shop   path      string  true   "Shop ID"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Items per page"
// @Success      200    {object}  response.Response{data=service.CustomerListResponse}
// @Failure      403    {object}  response.Response
// @Router       /api/shops/{shop}/customers [get]
func (h *CatalogHandler) ListShopCustomers(c *gin.Context) {
	shopID, err := parseShopParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	params := pagination.Parse(c)
	result, err := h.catalogService.ListShopCustomers(c.Request.Context(), middleware.GetActor(c), shopID, params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// CreateCustomer registers a customer for one shop
// @Summary      Create customer
// @Tags         shops
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        shop     path      string                         true  "Shop ID"
// @Param        payload  body      service.CreateCustomerRequest  true  "Customer"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      422      {object}  response.Response
// @Router       /api/shops/{shop}/customers [post]
func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	shopID, err := parseShopParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	customer, err := h.catalogService.CreateCustomer(c.Request.Context(), middleware.GetActor(c), shopID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(customer))
}

func parseShopParam(c *gin.Context) (uuid.UUID, error) {
	shopID, err := uuid.Parse(c.Param("shop"))
	if err != nil {
		return uuid.Nil, apperr.ValidationFields("invalid shop id", map[string]string{"shop": "must be a uuid"})
	}
	return shopID, nil
}
