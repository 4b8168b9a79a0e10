package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

type Service interface {
	// EnsureLocalUser returns the mirrored user for identity, creating it on first sight.
	EnsureLocalUser(ctx context.Context, identity authprovider.Identity) (*User, error)
	// Resolve mirrors externalID, fetching the profile from the directory only when absent.
	Resolve(ctx context.Context, externalID string) (*User, error)
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	ListByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]User, error)
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]User, error)
}

var (
	ErrInvalidExternalID = apperr.Validation("external_id", "invalid_external_id", "external identity id is required")
	ErrNotFound          = apperr.NotFound("user_not_found", "user not found")
)
