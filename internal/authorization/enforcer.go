package authorization

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/sprintboard/internal/config"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	roleAdmin  = "role:admin"
	roleMember = "role:member"
)

// NewEnforcer keeps role capabilities in the casbin_rule table so operators
// can extend them without a deploy.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer holds the seeded capabilities in memory only.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func provideEnforcer(cfg config.Config, db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	if cfg.AuthzPolicyStore == "memory" {
		return NewMemoryEnforcer()
	}
	return NewEnforcer(db)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Any org member
		{roleMember, ObjectProject, "read"},
		{roleMember, ObjectSprint, "create"},
		{roleMember, ObjectSprint, "read"},
		{roleMember, ObjectIssue, "create"},
		{roleMember, ObjectIssue, "read"},
		{roleMember, ObjectIssue, "update"},
		{roleMember, ObjectIssue, "reorder"},
		{roleMember, ObjectIssue, "delete_own"},
		{roleMember, ObjectOrganization, "read"},

		// Admin only
		{roleAdmin, ObjectProject, "create"},
		{roleAdmin, ObjectProject, "delete"},
		{roleAdmin, ObjectSprint, "transition"},
		{roleAdmin, ObjectIssue, "delete_any"},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	has, err := enforcer.HasGroupingPolicy(roleAdmin, roleMember)
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy(roleAdmin, roleMember); err != nil {
			return err
		}
	}
	return nil
}
