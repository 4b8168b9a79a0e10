package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Project, error)
	List(ctx context.Context, orgID string) ([]Project, error)
	Get(ctx context.Context, id snowflake.ID) (*Project, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

type CreateRequest struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

var (
	ErrInvalidName        = apperr.Validation("name", "invalid_name", "project name must be 1 to 100 characters")
	ErrInvalidKey         = apperr.Validation("key", "invalid_key", "project key must be uppercase letters and digits of the configured length")
	ErrDescriptionTooLong = apperr.Validation("description", "description_too_long", "project description must be at most 500 characters")
	ErrKeyTaken           = apperr.Conflict("project_key_taken", "a project with this key already exists")
	ErrNotFound           = apperr.NotFound("project_not_found", "project not found")
)
