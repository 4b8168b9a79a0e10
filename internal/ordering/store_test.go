package ordering

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/dbtest"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type rankRow struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	PartitionKey string       `gorm:"uniqueIndex:ux_rank_rows_slot,priority:1"`
	Status       string       `gorm:"uniqueIndex:ux_rank_rows_slot,priority:2"`
	SortOrder    int          `gorm:"uniqueIndex:ux_rank_rows_slot,priority:3"`
	UpdatedAt    time.Time
}

func (rankRow) TableName() string { return "rank_rows" }

// sqlStore is a minimal Store over rank_rows.
type sqlStore struct{}

func (sqlStore) MaxOrder(ctx context.Context, db *gorm.DB, group Group) (int, bool, error) {
	var highest sql.NullInt64
	err := db.WithContext(ctx).Raw(
		`SELECT MAX(sort_order) FROM rank_rows WHERE partition_key = ? AND status = ?`,
		string(group.Partition), group.Status,
	).Row().Scan(&highest)
	if err != nil || !highest.Valid {
		return 0, false, err
	}
	return int(highest.Int64), true, nil
}

func (sqlStore) Ranks(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Rank, error) {
	var rows []rankRow
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	ranks := make([]Rank, len(rows))
	for i, r := range rows {
		ranks[i] = Rank{IssueID: r.ID, Partition: Partition(r.PartitionKey), Status: r.Status, Order: r.SortOrder}
	}
	return ranks, nil
}

func (sqlStore) GroupOrders(ctx context.Context, db *gorm.DB, group Group) ([]int, error) {
	var orders []int
	err := db.WithContext(ctx).Model(&rankRow{}).
		Where("partition_key = ? AND status = ?", string(group.Partition), group.Status).
		Order("sort_order ASC").
		Pluck("sort_order", &orders).Error
	return orders, err
}

func (sqlStore) SetRank(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, order int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rank_rows SET status = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		status, order, at, id,
	).Error
}

func (sqlStore) CloseGap(ctx context.Context, db *gorm.DB, group Group, after int) error {
	if err := db.WithContext(ctx).Exec(
		`UPDATE rank_rows SET sort_order = -sort_order - 1 WHERE partition_key = ? AND status = ? AND sort_order > ?`,
		string(group.Partition), group.Status, after,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`UPDATE rank_rows SET sort_order = -sort_order - 2 WHERE partition_key = ? AND status = ? AND sort_order < 0`,
		string(group.Partition), group.Status,
	).Error
}

// staleStore under-reports the group maximum for the first stale calls,
// which makes the following insert collide on the order index.
type staleStore struct {
	sqlStore
	stale int32
	calls atomic.Int32
}

func (s *staleStore) MaxOrder(ctx context.Context, db *gorm.DB, group Group) (int, bool, error) {
	highest, ok, err := s.sqlStore.MaxOrder(ctx, db, group)
	if s.calls.Add(1) <= s.stale && ok {
		return highest - 1, true, err
	}
	return highest, ok, err
}

var errInjected = errors.New("injected failure")

// failingStore fails the nth SetRank call.
type failingStore struct {
	sqlStore
	failOn int32
	calls  atomic.Int32
}

func (s *failingStore) SetRank(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, order int, at time.Time) error {
	if s.calls.Add(1) == s.failOn {
		return errInjected
	}
	return s.sqlStore.SetRank(ctx, db, id, status, order, at)
}

type engineFixture struct {
	db     *gorm.DB
	engine *Engine
	node   *snowflake.Node
}

func newEngineFixture(t *testing.T, store Store, locker *PartitionLocker) *engineFixture {
	t.Helper()
	db := dbtest.Open(t, &rankRow{})
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	engine := NewEngine(Params{
		DB:     db,
		Log:    zaptest.NewLogger(t),
		Clock:  clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		Store:  store,
		Board:  config.NewStaticBoardConfig(config.DefaultBoardConfig()),
		Locker: locker,
	})
	return &engineFixture{db: db, engine: engine, node: node}
}

func (f *engineFixture) append(t *testing.T, partition Partition, status string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	err := f.engine.Append(context.Background(), Group{Partition: partition, Status: status}, func(tx *gorm.DB, order int) error {
		return tx.Create(&rankRow{ID: id, PartitionKey: string(partition), Status: status, SortOrder: order}).Error
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return id
}

func (f *engineFixture) column(t *testing.T, partition Partition, status string) []snowflake.ID {
	t.Helper()
	var ids []snowflake.ID
	err := f.db.Model(&rankRow{}).
		Where("partition_key = ? AND status = ?", string(partition), status).
		Order("sort_order ASC").
		Pluck("id", &ids).Error
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	return ids
}

func (f *engineFixture) orders(t *testing.T, partition Partition, status string) []int {
	t.Helper()
	orders, err := sqlStore{}.GroupOrders(context.Background(), f.db, Group{Partition: partition, Status: status})
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	return orders
}
