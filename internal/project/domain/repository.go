package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Project, error)
	ListByOrganization(ctx context.Context, db *gorm.DB, orgID string) ([]Project, error)
	// DeleteCascade removes the project with its sprints and issues. Callers
	// run it inside a transaction.
	DeleteCascade(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
