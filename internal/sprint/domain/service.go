package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

type Service interface {
	Create(ctx context.Context, projectID snowflake.ID, req CreateRequest) (*Sprint, error)
	Get(ctx context.Context, id snowflake.ID) (*Sprint, error)
	SetStatus(ctx context.Context, id snowflake.ID, status string) (*Sprint, error)
	GetProjectWithSprints(ctx context.Context, projectID snowflake.ID) (*ProjectWithSprints, error)
}

type CreateRequest struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

const MaxNameLength = 100

var (
	ErrInvalidName  = apperr.Validation("name", "invalid_name", "sprint name must be at most 100 characters")
	ErrInvalidDates = apperr.Validation("end_date", "invalid_dates", "sprint must end on or after its start date")
	ErrNotFound     = apperr.NotFound("sprint_not_found", "sprint not found")
)
