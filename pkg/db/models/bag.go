package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bag is a surprise bag listing. QuantityAvailable and QuantitySold form the
// inventory ledger and are only moved by the reservation coordinator.
type Bag struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BusinessID        uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index:ix_bags_business" json:"business_id"`
	Title             string          `gorm:"column:title;type:varchar(100);not null" json:"title"`
	Description       *string         `gorm:"column:description" json:"description"`
	OriginalPrice     decimal.Decimal `gorm:"column:original_price;type:numeric(10,2);not null" json:"original_price"`
	DiscountPrice     decimal.Decimal `gorm:"column:discount_price;type:numeric(10,2);not null" json:"discount_price"`
	QuantityAvailable int             `gorm:"column:quantity_available;not null" json:"quantity_available"`
	QuantitySold      int             `gorm:"column:quantity_sold;not null;default:0" json:"quantity_sold"`
	PickupStart       time.Time       `gorm:"column:pickup_start;not null" json:"pickup_start"`
	PickupEnd         time.Time       `gorm:"column:pickup_end;not null;index:ix_bags_pickup_end" json:"pickup_end"`
	ImageURLs         pq.StringArray  `gorm:"column:image_urls;type:text" json:"image_urls"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true;index:ix_bags_active" json:"is_active"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (b *Bag) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
