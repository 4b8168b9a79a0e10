package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/sprint/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sprint *domain.Sprint) error {
	return db.WithContext(ctx).Create(sprint).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sprint, error) {
	var sprint domain.Sprint
	err := db.WithContext(ctx).Raw(
		`SELECT id, project_id, name, start_date, end_date, status, created_at, updated_at
		 FROM sprints WHERE id = ?`,
		id,
	).Scan(&sprint).Error
	if err != nil {
		return nil, err
	}
	if sprint.ID == 0 {
		return nil, nil
	}
	return &sprint, nil
}

func (r *repo) ListByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]domain.Sprint, error) {
	var sprints []domain.Sprint
	err := db.WithContext(ctx).Raw(
		`SELECT id, project_id, name, start_date, end_date, status, created_at, updated_at
		 FROM sprints WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC`,
		projectID,
	).Scan(&sprints).Error
	return sprints, err
}

func (r *repo) CountByProject(ctx context.Context, db *gorm.DB, projectID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Sprint{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sprints SET status = ?, updated_at = ? WHERE id = ?`,
		status, at, id,
	).Error
}
