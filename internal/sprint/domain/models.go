package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
)

const (
	StatusPlanned   = "PLANNED"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
)

type Sprint struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ProjectID snowflake.ID `json:"project_id" gorm:"column:project_id;not null;index:ix_sprints_project"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	StartDate time.Time    `json:"start_date" gorm:"column:start_date;not null"`
	EndDate   time.Time    `json:"end_date" gorm:"column:end_date;not null"`
	Status    string       `json:"status" gorm:"type:text;not null;default:'PLANNED'"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Sprint) TableName() string { return "sprints" }

// ProjectWithSprints is a project with its sprints, newest first.
type ProjectWithSprints struct {
	projectdomain.Project
	Sprints []Sprint `json:"sprints"`
}
