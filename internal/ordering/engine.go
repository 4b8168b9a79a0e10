package ordering

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/observability/metrics"
	"github.com/smallbiznis/sprintboard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Store   Store
	Board   *config.BoardConfigHolder
	Locker  *PartitionLocker `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// Engine owns every write to issue orders. Inserts are appended with a
// bounded retry; reorders are applied as one atomic batch.
type Engine struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	store   Store
	board   *config.BoardConfigHolder
	locker  *PartitionLocker
	metrics *metrics.Metrics
	txOpts  []*sql.TxOptions
}

func NewEngine(p Params) *Engine {
	e := &Engine{
		db:      p.DB,
		log:     p.Log.Named("ordering.engine"),
		clock:   p.Clock,
		store:   p.Store,
		board:   p.Board,
		locker:  p.Locker,
		metrics: p.Metrics,
	}
	if p.DB != nil && p.DB.Dialector != nil && p.DB.Dialector.Name() == db.TypePostgres {
		e.txOpts = []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
	return e
}

// ComputeInsertionOrder returns the order a new issue takes at the end of
// group: one past the current maximum, or zero for an empty group.
func (e *Engine) ComputeInsertionOrder(ctx context.Context, tx *gorm.DB, group Group) (int, error) {
	highest, ok, err := e.store.MaxOrder(ctx, tx, group)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return highest + 1, nil
}

// Append places a new issue at the end of group. write persists the row
// with the computed order inside the transaction. A collision on the
// order index retries the whole transaction with a fresh order.
func (e *Engine) Append(ctx context.Context, group Group, write func(tx *gorm.DB, order int) error) error {
	return e.mutate(ctx, "insert", []Partition{group.Partition}, func(tx *gorm.DB) error {
		order, err := e.ComputeInsertionOrder(ctx, tx, group)
		if err != nil {
			return err
		}
		return write(tx, order)
	})
}

// Relocate moves an issue to the end of another status group of its
// partition and closes the gap it leaves behind.
func (e *Engine) Relocate(ctx context.Context, from Rank, toStatus string, write func(tx *gorm.DB, order int) error) error {
	return e.mutate(ctx, "relocate", []Partition{from.Partition}, func(tx *gorm.DB) error {
		current, err := e.loadRank(ctx, tx, from.IssueID)
		if err != nil {
			return err
		}
		order, err := e.ComputeInsertionOrder(ctx, tx, Group{Partition: current.Partition, Status: toStatus})
		if err != nil {
			return err
		}
		if err := write(tx, order); err != nil {
			return err
		}
		return e.store.CloseGap(ctx, tx, current.Group(), current.Order)
	})
}

// Remove runs del and closes the gap left by the removed issue.
func (e *Engine) Remove(ctx context.Context, rank Rank, del func(tx *gorm.DB) error) error {
	return e.mutate(ctx, "remove", []Partition{rank.Partition}, func(tx *gorm.DB) error {
		current, err := e.loadRank(ctx, tx, rank.IssueID)
		if err != nil {
			return err
		}
		if err := del(tx); err != nil {
			return err
		}
		return e.store.CloseGap(ctx, tx, current.Group(), current.Order)
	})
}

// Guard inspects the current ranks of a batch inside the reorder
// transaction and rejects it by returning an error.
type Guard func(tx *gorm.DB, ranks []Rank) error

// Reorder applies batch atomically. Every issue keeps its partition; its
// status and order are replaced. After the batch every touched group must
// hold exactly the orders 0..n-1, otherwise nothing is written.
func (e *Engine) Reorder(ctx context.Context, batch []Placement, guard Guard) error {
	if err := e.validateBatch(batch); err != nil {
		e.metrics.RecordReorder(ctx, "rejected")
		return err
	}

	ids := make([]snowflake.ID, len(batch))
	for i, p := range batch {
		ids[i] = p.IssueID
	}
	before, err := e.store.Ranks(ctx, e.db.WithContext(ctx), ids)
	if err != nil {
		return err
	}
	partitions := make([]Partition, 0, len(before))
	for _, r := range before {
		partitions = append(partitions, r.Partition)
	}

	release, err := e.locker.lockAll(ctx, partitions)
	switch {
	case errors.Is(err, errPartitionBusy):
		e.metrics.RecordReorder(ctx, "failed")
		return ErrStaleBoard.Wrap(err)
	case err != nil:
		e.log.Warn("partition lock unavailable, relying on database constraints", zap.Error(err))
		release = func() {}
	}
	defer release()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return e.applyBatch(ctx, tx, ids, batch, guard)
	}, e.txOpts...)
	switch {
	case err == nil:
		e.metrics.RecordReorder(ctx, "applied")
		return nil
	case db.IsDuplicateKeyErr(err) || db.IsRetryableTxErr(err):
		e.metrics.RecordOrdinalConflict(ctx, "reorder")
		e.metrics.RecordReorder(ctx, "failed")
		return ErrStaleBoard.Wrap(err)
	default:
		e.metrics.RecordReorder(ctx, "rejected")
		return err
	}
}

func (e *Engine) applyBatch(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, batch []Placement, guard Guard) error {
	ranks, err := e.store.Ranks(ctx, tx, ids)
	if err != nil {
		return err
	}
	if len(ranks) != len(batch) {
		return ErrIssueNotFound
	}
	if guard != nil {
		if err := guard(tx, ranks); err != nil {
			return err
		}
	}

	byID := make(map[snowflake.ID]Rank, len(ranks))
	for _, r := range ranks {
		byID[r.IssueID] = r
	}
	now := e.clock.Now()

	// Park every row on a distinct negative order so the new ranks can be
	// written without tripping the unique index on intermediate states.
	for i, p := range batch {
		if err := e.store.SetRank(ctx, tx, p.IssueID, byID[p.IssueID].Status, -(i + 1), now); err != nil {
			return err
		}
	}

	touched := make(map[Group]struct{}, 2*len(batch))
	for _, p := range batch {
		r := byID[p.IssueID]
		if err := e.store.SetRank(ctx, tx, p.IssueID, p.Status, p.Order, now); err != nil {
			return err
		}
		touched[r.Group()] = struct{}{}
		touched[Group{Partition: r.Partition, Status: p.Status}] = struct{}{}
	}

	for g := range touched {
		orders, err := e.store.GroupOrders(ctx, tx, g)
		if err != nil {
			return err
		}
		if !IsDense(orders) {
			e.log.Info("reorder rejected, group not dense",
				zap.String("partition", string(g.Partition)),
				zap.String("status", g.Status),
				zap.Ints("orders", orders),
			)
			return ErrNotDense
		}
	}
	return nil
}

func (e *Engine) validateBatch(batch []Placement) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	board := e.board.Get()
	seen := make(map[snowflake.ID]struct{}, len(batch))
	for _, p := range batch {
		if _, ok := seen[p.IssueID]; ok {
			return ErrDuplicateIssue
		}
		seen[p.IssueID] = struct{}{}
		if p.Order < 0 {
			return ErrInvalidOrder
		}
		if !board.HasStatus(p.Status) {
			return ErrInvalidStatus
		}
	}
	return nil
}

// IsDense reports whether sorted orders are exactly 0..n-1.
func IsDense(orders []int) bool {
	for i, o := range orders {
		if o != i {
			return false
		}
	}
	return true
}

func (e *Engine) loadRank(ctx context.Context, tx *gorm.DB, id snowflake.ID) (Rank, error) {
	ranks, err := e.store.Ranks(ctx, tx, []snowflake.ID{id})
	if err != nil {
		return Rank{}, err
	}
	if len(ranks) == 0 {
		return Rank{}, ErrIssueNotFound
	}
	return ranks[0], nil
}

// mutate runs fn in a transaction under the partition locks, retrying on
// order collisions and serialization failures.
func (e *Engine) mutate(ctx context.Context, operation string, partitions []Partition, fn func(tx *gorm.DB) error) error {
	retries := e.board.Get().InsertRetries
	if retries < 1 {
		retries = 1
	}

	attempt := 0
	op := func() error {
		attempt++
		release, err := e.locker.lockAll(ctx, partitions)
		switch {
		case errors.Is(err, errPartitionBusy):
			return err
		case err != nil:
			e.log.Warn("partition lock unavailable, relying on database constraints", zap.Error(err))
			release = func() {}
		}
		defer release()

		err = e.db.WithContext(ctx).Transaction(fn, e.txOpts...)
		if err == nil {
			return nil
		}
		if isContended(err) {
			e.metrics.RecordOrdinalConflict(ctx, operation)
			e.log.Debug("ordering write contended",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries-1)), ctx))
	if err != nil && isContended(err) {
		e.log.Warn("ordering write gave up after retries",
			zap.String("operation", operation),
			zap.Int("attempts", attempt),
		)
		return ErrOrdinalConflict.Wrap(err)
	}
	return err
}

func isContended(err error) bool {
	return errors.Is(err, errPartitionBusy) || db.IsDuplicateKeyErr(err) || db.IsRetryableTxErr(err)
}
