// Package authprovider talks to the external identity service: it verifies
// session tokens and reads the organization directory.
package authprovider

import (
	"context"
	"strings"

	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

// Session is what a verified token says about the caller.
type Session struct {
	UserID  string
	OrgID   string
	OrgRole string
}

type EmailAddress struct {
	Address  string
	Verified bool
}

// Identity is the provider's profile of a user.
type Identity struct {
	ExternalID     string
	FirstName      string
	LastName       string
	EmailAddresses []EmailAddress
	ImageURL       string
}

// DisplayName joins first and last name, skipping blanks.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(strings.Join(strings.Fields(i.FirstName+" "+i.LastName), " "))
}

// PrimaryEmail returns the first verified address, falling back to the first address.
func (i Identity) PrimaryEmail() string {
	for _, email := range i.EmailAddresses {
		if email.Verified && strings.TrimSpace(email.Address) != "" {
			return strings.TrimSpace(email.Address)
		}
	}
	if len(i.EmailAddresses) > 0 {
		return strings.TrimSpace(i.EmailAddresses[0].Address)
	}
	return ""
}

type Organization struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url,omitempty"`
	AdminIDs []string `json:"admin_ids"`
}

type Member struct {
	ExternalUserID string `json:"user_id"`
	Role           string `json:"role"`
}

// Directory is the narrow view of the identity service used for
// organization and membership lookups.
type Directory interface {
	// ResolveOrganization accepts an organization id or slug.
	ResolveOrganization(ctx context.Context, ref string) (*Organization, error)
	ListMembers(ctx context.Context, orgID string) ([]Member, error)
	GetUser(ctx context.Context, userID string) (*Identity, error)
}

var (
	ErrNotFound      = apperr.NotFound("directory_not_found", "resource not found in directory")
	ErrUpstream      = apperr.Upstream("directory_unavailable", "identity provider request failed")
	ErrNotConfigured = apperr.Upstream("directory_not_configured", "identity provider is not configured")
	ErrInvalidToken  = apperr.Unauthenticated("invalid_token", "session token is invalid")
)
