package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	"gorm.io/datatypes"
)

// Project belongs to exactly one organization. Deleting it removes its
// sprints and issues in the same transaction.
type Project struct {
	ID             snowflake.ID                `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrganizationID string                      `json:"organization_id" gorm:"column:organization_id;type:text;not null;uniqueIndex:ux_projects_org_key,priority:1"`
	Name           string                      `json:"name" gorm:"type:text;not null"`
	Key            string                      `json:"key" gorm:"column:project_key;type:text;not null;uniqueIndex:ux_projects_org_key,priority:2"`
	Description    string                      `json:"description" gorm:"type:text;not null;default:''"`
	AdminIDs       datatypes.JSONSlice[string] `json:"admin_ids" gorm:"column:admin_ids"`
	CreatedBy      snowflake.ID                `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt      time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time                   `json:"updated_at" gorm:"not null"`
}

func (Project) TableName() string { return "projects" }

// Resource is the authorization view of the project. A nil project yields
// a nil resource, which the gate treats as not found.
func (p *Project) Resource() *authorization.Resource {
	if p == nil {
		return nil
	}
	return &authorization.Resource{
		OrganizationID:  p.OrganizationID,
		ProjectAdminIDs: []string(p.AdminIDs),
	}
}

// Summary is the embedded form of a project on issue listings.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (p Project) Summary() Summary {
	return Summary{ID: p.ID.String(), Name: p.Name, Key: p.Key}
}
