package outbox

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
)

// OrderEvent is the data block for every order lifecycle event.
type OrderEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	BagID      uuid.UUID         `json:"bagId"`
	BusinessID uuid.UUID         `json:"businessId"`
	CustomerID *uuid.UUID        `json:"customerId,omitempty"`
	Quantity   int               `json:"quantity"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
	Status     enums.OrderStatus `json:"status"`
	Rating     *int              `json:"rating,omitempty"`
}

// BagCreatedEvent announces a newly listed bag.
type BagCreatedEvent struct {
	BagID             uuid.UUID       `json:"bagId"`
	BusinessID        uuid.UUID       `json:"businessId"`
	Title             string          `json:"title"`
	DiscountPrice     decimal.Decimal `json:"discountPrice"`
	QuantityAvailable int             `json:"quantityAvailable"`
}
