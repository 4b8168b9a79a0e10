package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	"gorm.io/gorm"
)

// Repository persists issues and serves as the ordering engine's store.
type Repository interface {
	ordering.Store

	Insert(ctx context.Context, db *gorm.DB, issue *Issue) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Issue, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Issue, error)
	ListBySprint(ctx context.Context, db *gorm.DB, sprintID snowflake.ID, filter Filter) ([]Issue, error)
	// ListForUser returns issues the user reports or is assigned, within
	// the organization, most recently updated first.
	ListForUser(ctx context.Context, db *gorm.DB, orgID string, userID snowflake.ID) ([]Issue, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, status, priority string, order int, at time.Time) error
	// UpdatePriority changes priority only, never status or rank.
	UpdatePriority(ctx context.Context, db *gorm.DB, id snowflake.ID, priority string, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
