package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/api/middleware"
	"github.com/Gulhayo05/Surprise-Bag/api/responses"
	"github.com/Gulhayo05/Surprise-Bag/api/validators"
	internalorders "github.com/Gulhayo05/Surprise-Bag/internal/orders"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

type placeOrderRequest struct {
	BagID    string `json:"bag_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

type reviewOrderRequest struct {
	Rating   int     `json:"rating" validate:"required,gte=1,lte=5"`
	Feedback *string `json:"feedback" validate:"omitempty,max=1000"`
}

// Place reserves units of a bag for the calling customer.
func Place(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bagID, err := uuid.Parse(req.BagID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bag_id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBagID(ctx, bagID.String())
		}
		order, err := svc.Place(ctx, actor, internalorders.PlaceInput{BagID: bagID, Quantity: req.Quantity})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

// List returns the orders visible to the caller, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order when the caller may see it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type transitionFunc func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*models.Order, error)

func transition(name string, pick func(internalorders.Service) transitionFunc, svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
			ctx = logg.WithField(ctx, "transition", name)
		}
		order, err := pick(svc)(ctx, actor, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Confirm accepts a pending order on one of the owner's bags.
func Confirm(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition("confirm", func(s internalorders.Service) transitionFunc { return s.Confirm }, svc, logg)
}

// Complete records that a confirmed order was picked up.
func Complete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition("complete", func(s internalorders.Service) transitionFunc { return s.Complete }, svc, logg)
}

// Cancel releases a pending or confirmed order back to stock.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition("cancel", func(s internalorders.Service) transitionFunc { return s.Cancel }, svc, logg)
}

// Review rates a completed order.
func Review(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reviewOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Feedback != nil {
			trimmed := validators.SanitizeString(*req.Feedback, 1000)
			req.Feedback = &trimmed
		}

		order, err := svc.Rate(r.Context(), actor, orderID, internalorders.RateInput{Rating: req.Rating, Feedback: req.Feedback})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// BusinessReviews lists the public reviews left on a business's bags.
func BusinessReviews(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		businessID, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBusinessReviews(r.Context(), businessID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, role, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

func actorAndOrder(r *http.Request) (internalorders.Actor, uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return internalorders.Actor{}, uuid.Nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return internalorders.Actor{}, uuid.Nil, err
	}
	return actor, orderID, nil
}
