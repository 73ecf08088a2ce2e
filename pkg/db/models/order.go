package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
)

// Order is a customer's reservation against a single bag. Quantity and
// TotalPrice are fixed at placement.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CustomerID *uuid.UUID        `gorm:"column:customer_id;type:uuid;uniqueIndex:ux_orders_customer_bag_created,priority:1" json:"customer_id"`
	BagID      uuid.UUID         `gorm:"column:bag_id;type:uuid;not null;uniqueIndex:ux_orders_customer_bag_created,priority:2" json:"bag_id"`
	Quantity   int               `gorm:"column:quantity;not null" json:"quantity"`
	TotalPrice decimal.Decimal   `gorm:"column:total_price;type:numeric(10,2);not null" json:"total_price"`
	Status     enums.OrderStatus `gorm:"column:status;type:varchar(16);not null;default:'pending';index:ix_orders_status" json:"status"`
	PickupCode string            `gorm:"column:pickup_code;type:varchar(20);not null;uniqueIndex:ux_orders_pickup_code" json:"pickup_code"`
	Rating     *int              `gorm:"column:rating" json:"rating"`
	Feedback   *string           `gorm:"column:feedback" json:"feedback"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;uniqueIndex:ux_orders_customer_bag_created,priority:3" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
