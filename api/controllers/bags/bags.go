package bags

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Gulhayo05/Surprise-Bag/api/middleware"
	"github.com/Gulhayo05/Surprise-Bag/api/responses"
	"github.com/Gulhayo05/Surprise-Bag/api/validators"
	internalbags "github.com/Gulhayo05/Surprise-Bag/internal/bags"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

// Prices are decoded by decimal.Decimal, which accepts JSON strings or numbers.
type createBagRequest struct {
	Title             string          `json:"title" validate:"required,notblank,max=100"`
	Description       *string         `json:"description" validate:"omitempty,max=1000"`
	OriginalPrice     decimal.Decimal `json:"original_price"`
	DiscountPrice     decimal.Decimal `json:"discount_price"`
	QuantityAvailable int             `json:"quantity_available" validate:"required,gte=1"`
	PickupStart       time.Time       `json:"pickup_start"`
	PickupEnd         time.Time       `json:"pickup_end"`
	ImageURLs         []string        `json:"image_urls" validate:"omitempty,max=10,dive,url"`
}

type updateBagRequest struct {
	Title             *string          `json:"title" validate:"omitempty,min=1,max=100"`
	Description       *string          `json:"description" validate:"omitempty,max=1000"`
	OriginalPrice     *decimal.Decimal `json:"original_price"`
	DiscountPrice     *decimal.Decimal `json:"discount_price"`
	QuantityAvailable *int             `json:"quantity_available" validate:"omitempty,gte=0"`
	PickupStart       *time.Time       `json:"pickup_start"`
	PickupEnd         *time.Time       `json:"pickup_end"`
	ImageURLs         *[]string        `json:"image_urls" validate:"omitempty,max=10,dive,url"`
	IsActive          *bool            `json:"is_active"`
}

// Create lists a new bag for the calling business owner.
func Create(svc internalbags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}
		ownerID, _, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createBagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bag, err := svc.Create(r.Context(), ownerID, internalbags.CreateInput{
			Title:             validators.SanitizeString(req.Title, 100),
			Description:       req.Description,
			OriginalPrice:     req.OriginalPrice,
			DiscountPrice:     req.DiscountPrice,
			QuantityAvailable: req.QuantityAvailable,
			PickupStart:       req.PickupStart.UTC(),
			PickupEnd:         req.PickupEnd.UTC(),
			ImageURLs:         req.ImageURLs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, bag)
	}
}

// Update applies a partial change to one of the caller's bags.
func Update(svc internalbags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}
		ownerID, bagID, err := ownerAndBag(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateBagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalbags.UpdateInput{
			Title:             req.Title,
			Description:       req.Description,
			OriginalPrice:     req.OriginalPrice,
			DiscountPrice:     req.DiscountPrice,
			QuantityAvailable: req.QuantityAvailable,
			ImageURLs:         req.ImageURLs,
			IsActive:          req.IsActive,
		}
		if req.PickupStart != nil {
			start := req.PickupStart.UTC()
			input.PickupStart = &start
		}
		if req.PickupEnd != nil {
			end := req.PickupEnd.UTC()
			input.PickupEnd = &end
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBagID(ctx, bagID.String())
		}
		bag, err := svc.Update(ctx, ownerID, bagID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, bag)
	}
}

// Delete removes a bag that no order references.
func Delete(svc internalbags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}
		ownerID, bagID, err := ownerAndBag(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), ownerID, bagID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// Detail is the public view of one bag.
func Detail(svc internalbags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}
		bagID, err := validators.ParseUUIDParam(r, "bagId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bag, err := svc.Get(r.Context(), bagID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bag)
	}
}

// List is the public catalogue; active_only defaults to true.
func List(svc internalbags.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bags service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active_only", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalbags.ListParams{
			ActiveOnly: activeOnly,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("business_id")); raw != "" {
			businessID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business_id"))
				return
			}
			params.BusinessID = &businessID
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ownerAndBag(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ownerID, _, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	bagID, err := validators.ParseUUIDParam(r, "bagId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return ownerID, bagID, nil
}
