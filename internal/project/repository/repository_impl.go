package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/project/domain"
	"gorm.io/gorm"
)

const projectColumns = `id, organization_id, name, project_key, description, admin_ids, created_by, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Create(project).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`,
		id,
	).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var projects []domain.Project
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id IN ?", ids).
		Find(&projects).Error
	return projects, err
}

func (r *repo) ListByOrganization(ctx context.Context, db *gorm.DB, orgID string) ([]domain.Project, error) {
	var projects []domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT `+projectColumns+` FROM projects
		 WHERE organization_id = ?
		 ORDER BY created_at DESC, id DESC`,
		orgID,
	).Scan(&projects).Error
	return projects, err
}

func (r *repo) DeleteCascade(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	db = db.WithContext(ctx)
	if err := db.Exec(`DELETE FROM issues WHERE project_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.Exec(`DELETE FROM sprints WHERE project_id = ?`, id).Error; err != nil {
		return err
	}
	return db.Exec(`DELETE FROM projects WHERE id = ?`, id).Error
}
