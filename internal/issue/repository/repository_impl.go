package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/issue/domain"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	"gorm.io/gorm"
)

const issueColumns = `id, project_id, sprint_id, partition_key, title, description, status, priority,
	sort_order, reporter_id, assignee_id, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// ProvideStore exposes the repository to the ordering engine.
func ProvideStore(r domain.Repository) ordering.Store {
	return r
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, issue *domain.Issue) error {
	return db.WithContext(ctx).Create(issue).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Issue, error) {
	var issue domain.Issue
	err := db.WithContext(ctx).Raw(
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`,
		id,
	).Scan(&issue).Error
	if err != nil {
		return nil, err
	}
	if issue.ID == 0 {
		return nil, nil
	}
	return &issue, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var issues []domain.Issue
	err := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Where("id IN ?", ids).
		Find(&issues).Error
	return issues, err
}

func (r *repo) ListBySprint(ctx context.Context, db *gorm.DB, sprintID snowflake.ID, filter domain.Filter) ([]domain.Issue, error) {
	query := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Where("sprint_id = ?", sprintID)

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+search+"%")
	}
	if len(filter.AssigneeIDs) > 0 {
		query = query.Where("assignee_id IN ?", filter.AssigneeIDs)
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		query = query.Where("priority = ?", strings.ToUpper(priority))
	}

	var issues []domain.Issue
	err := query.Order("status ASC").Order("sort_order ASC").Find(&issues).Error
	return issues, err
}

func (r *repo) ListForUser(ctx context.Context, db *gorm.DB, orgID string, userID snowflake.ID) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.project_id, i.sprint_id, i.partition_key, i.title, i.description, i.status, i.priority,
		        i.sort_order, i.reporter_id, i.assignee_id, i.created_at, i.updated_at
		 FROM issues i
		 JOIN projects p ON p.id = i.project_id
		 WHERE p.organization_id = ?
		   AND (i.assignee_id = ? OR i.reporter_id = ?)
		 ORDER BY i.updated_at DESC, i.id DESC`,
		orgID, userID, userID,
	).Scan(&issues).Error
	return issues, err
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, status, priority string, order int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE issues SET status = ?, priority = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		status, priority, order, at, id,
	).Error
}

func (r *repo) UpdatePriority(ctx context.Context, db *gorm.DB, id snowflake.ID, priority string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE issues SET priority = ?, updated_at = ? WHERE id = ?`,
		priority, at, id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM issues WHERE id = ?`, id).Error
}

func (r *repo) MaxOrder(ctx context.Context, db *gorm.DB, group ordering.Group) (int, bool, error) {
	var highest sql.NullInt64
	err := db.WithContext(ctx).Raw(
		`SELECT MAX(sort_order) FROM issues WHERE partition_key = ? AND status = ?`,
		string(group.Partition), group.Status,
	).Row().Scan(&highest)
	if err != nil {
		return 0, false, err
	}
	if !highest.Valid {
		return 0, false, nil
	}
	return int(highest.Int64), true, nil
}

func (r *repo) Ranks(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]ordering.Rank, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []struct {
		ID           snowflake.ID
		PartitionKey string
		Status       string
		SortOrder    int
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, partition_key, status, sort_order FROM issues WHERE id IN ?`,
		ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ranks := make([]ordering.Rank, len(rows))
	for i, row := range rows {
		ranks[i] = ordering.Rank{
			IssueID:   row.ID,
			Partition: ordering.Partition(row.PartitionKey),
			Status:    row.Status,
			Order:     row.SortOrder,
		}
	}
	return ranks, nil
}

func (r *repo) GroupOrders(ctx context.Context, db *gorm.DB, group ordering.Group) ([]int, error) {
	var orders []int
	err := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Where("partition_key = ? AND status = ?", string(group.Partition), group.Status).
		Order("sort_order ASC").
		Pluck("sort_order", &orders).Error
	return orders, err
}

func (r *repo) SetRank(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, order int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE issues SET status = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		status, order, at, id,
	).Error
}

// CloseGap shifts the tail of the group down by one in two passes so no
// intermediate state collides on the order index.
func (r *repo) CloseGap(ctx context.Context, db *gorm.DB, group ordering.Group, after int) error {
	db = db.WithContext(ctx)
	if err := db.Exec(
		`UPDATE issues SET sort_order = -sort_order - 1
		 WHERE partition_key = ? AND status = ? AND sort_order > ?`,
		string(group.Partition), group.Status, after,
	).Error; err != nil {
		return err
	}
	return db.Exec(
		`UPDATE issues SET sort_order = -sort_order - 2
		 WHERE partition_key = ? AND status = ? AND sort_order < 0`,
		string(group.Partition), group.Status,
	).Error
}
