package businesses

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/api/middleware"
	"github.com/Gulhayo05/Surprise-Bag/api/responses"
	"github.com/Gulhayo05/Surprise-Bag/api/validators"
	internalbusinesses "github.com/Gulhayo05/Surprise-Bag/internal/businesses"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

type createBusinessRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url"`
}

type updateBusinessRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url"`
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "businesses service unavailable")
}

// Create registers the caller's shop. It starts unapproved.
func Create(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		ownerID, _, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createBusinessRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.Create(r.Context(), ownerID, internalbusinesses.CreateInput{
			Name:        validators.SanitizeString(req.Name, 100),
			Description: req.Description,
			Address:     req.Address,
			LogoURL:     req.LogoURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, business)
	}
}

// Mine returns the caller's own shop, approved or not.
func Mine(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		ownerID, _, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		business, err := svc.Get(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, business)
	}
}

func Update(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		ownerID, businessID, err := ownerAndBusiness(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateBusinessRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.Update(r.Context(), ownerID, businessID, internalbusinesses.UpdateInput{
			Name:        req.Name,
			Description: req.Description,
			Address:     req.Address,
			LogoURL:     req.LogoURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, business)
	}
}

func Delete(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		ownerID, businessID, err := ownerAndBusiness(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), ownerID, businessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// Approve is the admin switch for a shop's approval flag.
func Approve(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		businessID, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req approvalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.SetApproved(r.Context(), businessID, *req.Approved)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, business)
	}
}

func Detail(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		businessID, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		business, err := svc.Get(r.Context(), businessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, business)
	}
}

// List is the public shop directory; approved_only defaults to true.
func List(svc internalbusinesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approvedOnly, err := validators.ParseQueryBool(r, "approved_only", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), internalbusinesses.ListParams{
			ApprovedOnly: approvedOnly,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ownerAndBusiness(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ownerID, _, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	businessID, err := validators.ParseUUIDParam(r, "businessId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return ownerID, businessID, nil
}
