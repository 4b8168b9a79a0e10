package ordering

import (
	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

var (
	ErrOrdinalConflict = apperr.Conflict("ordinal_conflict", "another change claimed this position, retry")
	ErrStaleBoard      = apperr.Conflict("stale_board", "the board changed, reload and retry")
	ErrEmptyBatch      = apperr.Validation("batch", "empty_batch", "reorder batch is empty")
	ErrDuplicateIssue  = apperr.Validation("batch", "duplicate_issue", "an issue appears twice in the batch")
	ErrInvalidOrder    = apperr.Validation("order", "invalid_order", "order must be zero or greater")
	ErrInvalidStatus   = apperr.Validation("status", "invalid_status", "status is not a board column")
	ErrNotDense        = apperr.Validation("batch", "not_dense", "reorder would leave gaps or duplicates in a column")
	ErrIssueNotFound   = apperr.NotFound("issue_not_found", "issue not found")
	ErrInvalidMove     = apperr.Validation("move", "invalid_move", "source or destination is outside the board")
)
