package customer

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dddkit/api/response"
	customerapp "dddkit/application/customer"
)

// Controller customer controller
type Controller struct {
	customerService *customerapp.ApplicationService
}

func NewController(customerService *customerapp.ApplicationService) *Controller {
	return &Controller{customerService: customerService}
}

// RegisterRoutes mounts the customer routes
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	customerGroup := router.Group("/customers")
	{
		customerGroup.POST("", c.Register)
		customerGroup.GET("/:id", c.GetCustomer)
		customerGroup.POST("/:id/promote", c.Promote)
		customerGroup.PUT("/:id/status", c.UpdateStatus)
		customerGroup.DELETE("/:id", c.Remove)
	}
}

// Register POST /api/v1/customers
func (c *Controller) Register(ctx *gin.Context) {
	var req customerapp.RegisterCustomerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	customer, err := c.customerService.Register(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, customer, "customer registered successfully")
}

// GetCustomer GET /api/v1/customers/:id
func (c *Controller) GetCustomer(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	customer, err := c.customerService.GetCustomer(ctx.Request.Context(), id)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, customer, "customer retrieved successfully")
}

// Promote POST /api/v1/customers/:id/promote
func (c *Controller) Promote(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	customer, err := c.customerService.Promote(ctx.Request.Context(), id)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, customer, "customer promoted successfully")
}

// UpdateStatusRequest body of PUT /customers/:id/status
type UpdateStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdateStatus PUT /api/v1/customers/:id/status
func (c *Controller) UpdateStatus(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	customer, err := c.customerService.UpdateStatus(ctx.Request.Context(), id, *req.Active)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, customer, "customer status updated successfully")
}

// Remove DELETE /api/v1/customers/:id
func (c *Controller) Remove(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := c.customerService.Remove(ctx.Request.Context(), id); err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleNoContent(ctx)
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(ctx, err, "customer ID must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
