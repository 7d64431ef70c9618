/*
Package order - order API controller

Binding failures are answered with response.HandleError (400); everything the
application service returns goes through response.HandleAppError, which
classifies the error and maps it to a status.
*/
package order

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dddkit/api/response"
	orderapp "dddkit/application/order"
)

const defaultPageSize = 20

// Controller order controller
type Controller struct {
	orderService *orderapp.ApplicationService
}

func NewController(orderService *orderapp.ApplicationService) *Controller {
	return &Controller{orderService: orderService}
}

// RegisterRoutes mounts the order routes
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	orderGroup := router.Group("/orders")
	{
		orderGroup.POST("", c.PlaceOrder)
		orderGroup.GET("/:id", c.GetOrder)
		orderGroup.PUT("/:id/status", c.UpdateOrderStatus)
		orderGroup.POST("/:id/lines", c.AddLine)
		orderGroup.DELETE("/:id", c.DeleteOrder)
	}
	router.GET("/customers/:id/orders", c.ListOpenOrders)
	router.GET("/customers/:id/orders/history", c.OrderHistory)
}

// PlaceOrder POST /api/v1/orders
func (c *Controller) PlaceOrder(ctx *gin.Context) {
	var req orderapp.PlaceOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	order, err := c.orderService.PlaceOrder(ctx.Request.Context(), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, order, "order placed successfully")
}

// GetOrder GET /api/v1/orders/:id
func (c *Controller) GetOrder(ctx *gin.Context) {
	order, err := c.orderService.GetOrder(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, order, "order retrieved successfully")
}

// ListOpenOrders GET /api/v1/customers/:id/orders?skip=0&take=20
func (c *Controller) ListOpenOrders(ctx *gin.Context) {
	customerID, ok := pathID(ctx)
	if !ok {
		return
	}
	skip, err1 := strconv.Atoi(ctx.DefaultQuery("skip", "0"))
	take, err2 := strconv.Atoi(ctx.DefaultQuery("take", strconv.Itoa(defaultPageSize)))
	if err1 != nil || err2 != nil {
		response.HandleError(ctx, nil, "skip and take must be integers", http.StatusBadRequest)
		return
	}

	orders, err := c.orderService.ListOpenOrders(ctx.Request.Context(), customerID, skip, take)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandlePaginated(ctx, orders, response.Pagination{Skip: skip, Take: take, Count: len(orders)}, "open orders retrieved successfully")
}

// OrderHistory GET /api/v1/customers/:id/orders/history
func (c *Controller) OrderHistory(ctx *gin.Context) {
	customerID, ok := pathID(ctx)
	if !ok {
		return
	}
	orders, err := c.orderService.OrderHistory(ctx.Request.Context(), customerID)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, orders, "order history retrieved successfully")
}

// UpdateOrderStatusRequest body of PUT /orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateOrderStatus PUT /api/v1/orders/:id/status
func (c *Controller) UpdateOrderStatus(ctx *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	order, err := c.orderService.UpdateOrderStatus(ctx.Request.Context(), orderapp.UpdateOrderStatusRequest{
		OrderID: ctx.Param("id"),
		Status:  req.Status,
		Reason:  req.Reason,
	})
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, order, "order status updated successfully")
}

// AddLine POST /api/v1/orders/:id/lines
func (c *Controller) AddLine(ctx *gin.Context) {
	var req orderapp.OrderLineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	order, err := c.orderService.AddLine(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, order, "order line added successfully")
}

// DeleteOrder DELETE /api/v1/orders/:id
func (c *Controller) DeleteOrder(ctx *gin.Context) {
	if err := c.orderService.DeleteOrder(ctx.Request.Context(), ctx.Param("id")); err != nil {
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
