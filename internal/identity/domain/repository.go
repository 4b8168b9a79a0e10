package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfAbsent inserts user unless its external id already exists and
	// reports whether a row was written.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, user *User) (bool, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*User, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]User, error)
	FindByExternalIDs(ctx context.Context, db *gorm.DB, externalIDs []string) ([]User, error)
}
