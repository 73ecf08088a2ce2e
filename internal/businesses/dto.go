package businesses

import (
	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
)

// CreateInput registers the caller's shop. The shop id is the owner's user id.
type CreateInput struct {
	Name        string
	Description *string
	Address     *string
	LogoURL     *string
}

func (in CreateInput) toModel(ownerID uuid.UUID) *models.Business {
	return &models.Business{
		ID:          ownerID,
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
		LogoURL:     in.LogoURL,
	}
}

// UpdateInput carries optional profile changes; nil fields are left as is.
// Approval is not part of it.
type UpdateInput struct {
	Name        *string
	Description *string
	Address     *string
	LogoURL     *string
}

func (in UpdateInput) fields() map[string]any {
	out := map[string]any{}
	if in.Name != nil {
		out["name"] = *in.Name
	}
	if in.Description != nil {
		out["description"] = *in.Description
	}
	if in.Address != nil {
		out["address"] = *in.Address
	}
	if in.LogoURL != nil {
		out["logo_url"] = *in.LogoURL
	}
	return out
}

// ListParams filters the public directory.
type ListParams struct {
	ApprovedOnly bool
	pagination.Params
}

type BusinessList = pagination.Page[models.Business]

type listQuery struct {
	ApprovedOnly bool
	Limit        int
	After        *pagination.Cursor
}
