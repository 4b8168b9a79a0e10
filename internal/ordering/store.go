package ordering

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Rank is the ordering position of one issue.
type Rank struct {
	IssueID   snowflake.ID
	Partition Partition
	Status    string
	Order     int
}

func (r Rank) Group() Group {
	return Group{Partition: r.Partition, Status: r.Status}
}

// Placement is one entry of a reorder batch.
type Placement struct {
	IssueID snowflake.ID `json:"issue_id"`
	Status  string       `json:"status"`
	Order   int          `json:"order"`
}

// Store is the persistence the engine needs. Every method runs on the
// handle it is given so the engine controls transaction boundaries.
type Store interface {
	// MaxOrder returns the highest order in the group, or ok=false when empty.
	MaxOrder(ctx context.Context, db *gorm.DB, group Group) (highest int, ok bool, err error)
	Ranks(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Rank, error)
	// GroupOrders returns the orders of the group ascending.
	GroupOrders(ctx context.Context, db *gorm.DB, group Group) ([]int, error)
	SetRank(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, order int, at time.Time) error
	// CloseGap decrements every order in the group greater than after.
	CloseGap(ctx context.Context, db *gorm.DB, group Group, after int) error
}
