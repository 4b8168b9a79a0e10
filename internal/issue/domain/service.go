package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

type Service interface {
	Create(ctx context.Context, projectID snowflake.ID, req CreateRequest) (*View, error)
	// ListForSprint returns the sprint's issues by board column, then order.
	ListForSprint(ctx context.Context, sprintID snowflake.ID, filter Filter) ([]View, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*View, error)
	Delete(ctx context.Context, id snowflake.ID) error
	Reorder(ctx context.Context, batch []ordering.Placement) error
	// Move applies a drag on the sprint board and returns the board after it.
	Move(ctx context.Context, sprintID snowflake.ID, req MoveRequest) ([]View, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]View, error)
}

type CreateRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	SprintID    *snowflake.ID `json:"sprint_id"`
	AssigneeID  *snowflake.ID `json:"assignee_id"`
}

type UpdateRequest struct {
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

type MoveRequest struct {
	Source      ordering.Location `json:"source"`
	Destination ordering.Location `json:"destination"`
}

// Filter narrows a sprint listing. Zero values match everything.
type Filter struct {
	Search      string
	AssigneeIDs []snowflake.ID
	Priority    string
}

var (
	ErrInvalidTitle    = apperr.Validation("title", "invalid_title", "issue title is required")
	ErrInvalidStatus   = apperr.Validation("status", "invalid_status", "status is not a board column")
	ErrInvalidPriority = apperr.Validation("priority", "invalid_priority", "priority is not recognised")
	ErrSprintMismatch  = apperr.Validation("sprint_id", "sprint_project_mismatch", "sprint does not belong to the project")
	ErrUnknownAssignee = apperr.Validation("assignee_id", "unknown_assignee", "assignee is not a known user")
	ErrMixedBatch      = apperr.Validation("batch", "mixed_batch", "a reorder batch must contain issues of one sprint")
	ErrSprintCompleted = apperr.InvalidState("sprint_completed", "issues cannot be added to a completed sprint")
	ErrSprintNotActive = apperr.InvalidState("sprint_not_active", "issues can only be reordered in an active sprint")
	ErrNotFound        = apperr.NotFound("issue_not_found", "issue not found")
)
