package domain

import (
	"context"

	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

// Organizations live in the identity provider; this package only reads them.
type Service interface {
	// GetBySlug resolves an organization the actor belongs to.
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	ListUsers(ctx context.Context, orgID string) ([]identitydomain.User, error)
}

type Organization struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url,omitempty"`
	AdminIDs []string `json:"admin_ids"`
	// Role is the actor's role in the organization.
	Role string `json:"role"`
}

var ErrNotFound = apperr.NotFound("organization_not_found", "organization not found")
