package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sprint *Sprint) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sprint, error)
	ListByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]Sprint, error)
	CountByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, at time.Time) error
}
