package bags

import (
	"time"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput holds the validated payload for a new listing.
type CreateInput struct {
	Title             string
	Description       *string
	OriginalPrice     decimal.Decimal
	DiscountPrice     decimal.Decimal
	QuantityAvailable int
	PickupStart       time.Time
	PickupEnd         time.Time
	ImageURLs         []string
}

// UpdateInput carries optional changes; nil fields are left untouched.
type UpdateInput struct {
	Title             *string
	Description       *string
	OriginalPrice     *decimal.Decimal
	DiscountPrice     *decimal.Decimal
	QuantityAvailable *int
	PickupStart       *time.Time
	PickupEnd         *time.Time
	ImageURLs         *[]string
	IsActive          *bool
}

// ListParams filters the public bag listing.
type ListParams struct {
	ActiveOnly bool
	BusinessID *uuid.UUID
	pagination.Params
}

// BagList is a page of bags.
type BagList = pagination.Page[models.Bag]

type listBagsParams struct {
	ActiveOnly bool
	BusinessID *uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}
