package orders

import (
	"time"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
	"github.com/google/uuid"
)

// Actor is the authenticated caller as supplied by the identity layer.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// PlaceInput is a customer's request to reserve units of a bag.
type PlaceInput struct {
	BagID    uuid.UUID
	Quantity int
}

// RateInput attaches a review to a completed order.
type RateInput struct {
	Rating   int
	Feedback *string
}

// ListParams filters the caller's visible orders.
type ListParams struct {
	Status *enums.OrderStatus
	pagination.Params
}

// OrderDetail is an order joined with the bag fields needed for
// authorization and display.
type OrderDetail struct {
	models.Order
	BusinessID  uuid.UUID `gorm:"column:business_id" json:"business_id"`
	BagTitle    string    `gorm:"column:bag_title" json:"bag_title"`
	PickupStart time.Time `gorm:"column:pickup_start" json:"pickup_start"`
	PickupEnd   time.Time `gorm:"column:pickup_end" json:"pickup_end"`
}

// Review is a rated, completed order as shown on a business profile.
type Review struct {
	OrderID    uuid.UUID  `gorm:"column:order_id" json:"order_id"`
	BagID      uuid.UUID  `gorm:"column:bag_id" json:"bag_id"`
	BagTitle   string     `gorm:"column:bag_title" json:"bag_title"`
	CustomerID *uuid.UUID `gorm:"column:customer_id" json:"customer_id"`
	Rating     int        `gorm:"column:rating" json:"rating"`
	Feedback   *string    `gorm:"column:feedback" json:"feedback"`
	UpdatedAt  time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// OrderList is a page of orders.
type OrderList = pagination.Page[OrderDetail]

// ReviewList is a page of reviews.
type ReviewList = pagination.Page[Review]

type listOrdersParams struct {
	CustomerID *uuid.UUID
	BusinessID *uuid.UUID
	Status     *enums.OrderStatus
	Limit      int
	Cursor     *pagination.Cursor
}

type listReviewsParams struct {
	BusinessID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}
