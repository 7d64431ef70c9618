package order

import "time"

// PlaceOrderRequest Place order request DTO
type PlaceOrderRequest struct {
	CustomerID int64              `json:"customer_id"`
	Currency   string             `json:"currency"`
	Lines      []OrderLineRequest `json:"lines"`
}

// OrderLineRequest one line of a new order
type OrderLineRequest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// UpdateOrderStatusRequest moves an order to the named status
type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // Confirmed, Shipped, Delivered, Cancelled
	Reason  string `json:"reason"`
}

// OrderResponse Order response DTO
type OrderResponse struct {
	ID          string              `json:"id"`
	CustomerID  int64               `json:"customer_id"`
	Lines       []OrderLineResponse `json:"lines"`
	TotalAmount MoneyResponse       `json:"total_amount"`
	Status      string              `json:"status"`
	Version     int                 `json:"version"`
	Deleted     bool                `json:"deleted"`
	CreatedAt   time.Time           `json:"created_at"`
	ModifiedAt  *time.Time          `json:"modified_at,omitempty"`
}

// OrderLineResponse Order line response DTO
type OrderLineResponse struct {
	ID          string        `json:"id"`
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name"`
	Quantity    int           `json:"quantity"`
	UnitPrice   MoneyResponse `json:"unit_price"`
	Subtotal    MoneyResponse `json:"subtotal"`
}

// MoneyResponse Money response DTO
type MoneyResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
