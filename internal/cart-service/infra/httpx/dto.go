package httpx

import "github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	UserID     string                      `json:"userId"`
	Items      map[string]CartItemResponse `json:"items"`
	Expiration int64                       `json:"expiration"`
	TotalPrice float64                     `json:"totalPrice"`
	ItemCount  int                         `json:"itemCount"`
}

type CartItemResponse struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// mapCartToResponse converts the cart entity to the wire format. Totals are
// computed on decimals and only converted at the edge.
func mapCartToResponse(cart *entity.Cart) CartResponse {
	items := make(map[string]CartItemResponse, len(cart.Items))
	for id, it := range cart.Items {
		items[id] = CartItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.InexactFloat64(),
		}
	}
	return CartResponse{
		UserID:     cart.UserID,
		Items:      items,
		Expiration: cart.Expiration,
		TotalPrice: cart.TotalPrice().InexactFloat64(),
		ItemCount:  cart.ItemCount(),
	}
}
