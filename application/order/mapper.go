package order

import (
	"dddkit/domain/order"
	"dddkit/domain/shared"
)

func toLineRequests(currency string, lines []OrderLineRequest) []order.LineRequest {
	requests := make([]order.LineRequest, len(lines))
	for i, line := range lines {
		requests[i] = order.LineRequest{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   shared.NewMoney(line.UnitPrice, currency),
		}
	}
	return requests
}

func toMoney(m shared.Money) MoneyResponse {
	return MoneyResponse{Amount: m.Amount(), Currency: m.Currency()}
}

func toOrderResponse(o *order.Order) *OrderResponse {
	lines := o.Lines()
	out := make([]OrderLineResponse, len(lines))
	for i, line := range lines {
		out[i] = OrderLineResponse{
			ID:          line.ID(),
			ProductID:   line.ProductID(),
			ProductName: line.ProductName(),
			Quantity:    line.Quantity(),
			UnitPrice:   toMoney(line.UnitPrice()),
			Subtotal:    toMoney(line.Subtotal()),
		}
	}

	return &OrderResponse{
		ID:          o.ID(),
		CustomerID:  o.CustomerID(),
		Lines:       out,
		TotalAmount: toMoney(o.Total()),
		Status:      o.Status().Name(),
		Version:     o.Version(),
		Deleted:     o.IsDeleted(),
		CreatedAt:   o.CreatedAt(),
		ModifiedAt:  o.ModifiedAt(),
	}
}

func toOrderResponses(orders []*order.Order) []*OrderResponse {
	out := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}
