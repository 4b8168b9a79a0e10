package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
)

// Issue is ranked by SortOrder within its (PartitionKey, Status) group.
type Issue struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ProjectID    snowflake.ID  `json:"project_id" gorm:"column:project_id;not null;index:ix_issues_project"`
	SprintID     *snowflake.ID `json:"sprint_id" gorm:"column:sprint_id;index:ix_issues_sprint"`
	PartitionKey string        `json:"-" gorm:"column:partition_key;type:text;not null;uniqueIndex:ux_issues_partition_status_order,priority:1"`
	Title        string        `json:"title" gorm:"type:text;not null"`
	Description  string        `json:"description" gorm:"type:text;not null;default:''"`
	Status       string        `json:"status" gorm:"type:text;not null;uniqueIndex:ux_issues_partition_status_order,priority:2"`
	Priority     string        `json:"priority" gorm:"type:text;not null"`
	SortOrder    int           `json:"order" gorm:"column:sort_order;not null;uniqueIndex:ux_issues_partition_status_order,priority:3"`
	ReporterID   snowflake.ID  `json:"reporter_id" gorm:"column:reporter_id;not null;index:ix_issues_reporter"`
	AssigneeID   *snowflake.ID `json:"assignee_id" gorm:"column:assignee_id;index:ix_issues_assignee"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"not null;index:ix_issues_updated_at"`
}

func (Issue) TableName() string { return "issues" }

func (i Issue) Rank() ordering.Rank {
	return ordering.Rank{
		IssueID:   i.ID,
		Partition: ordering.Partition(i.PartitionKey),
		Status:    i.Status,
		Order:     i.SortOrder,
	}
}

// View is the response form of an issue with its people and project embedded.
type View struct {
	Issue
	Reporter *identitydomain.Summary `json:"reporter,omitempty"`
	Assignee *identitydomain.Summary `json:"assignee,omitempty"`
	Project  *projectdomain.Summary  `json:"project,omitempty"`
}
