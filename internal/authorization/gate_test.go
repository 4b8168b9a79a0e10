package authorization

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestGate(t *testing.T, directory authprovider.Directory) *Gate {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewGate(Params{Log: zap.NewNop(), Enforcer: enforcer, Directory: directory})
}

var (
	admin    = orgcontext.Actor{UserID: 1, ExternalUserID: "user_admin", OrgID: "org_a", OrgRole: orgcontext.RoleAdmin}
	member   = orgcontext.Actor{UserID: 2, ExternalUserID: "user_member", OrgID: "org_a", OrgRole: orgcontext.RoleMember}
	reporter = orgcontext.Actor{UserID: 3, ExternalUserID: "user_reporter", OrgID: "org_a", OrgRole: orgcontext.RoleMember}
	outsider = orgcontext.Actor{UserID: 4, ExternalUserID: "user_outsider", OrgID: "org_b", OrgRole: orgcontext.RoleAdmin}
)

func TestCanPerform(t *testing.T) {
	gate := newTestGate(t, nil)
	inOrgA := &Resource{OrganizationID: "org_a"}
	issue := &Resource{OrganizationID: "org_a", ReporterID: reporter.UserID, ProjectAdminIDs: []string{"9"}}

	cases := []struct {
		name   string
		actor  orgcontext.Actor
		action Action
		res    *Resource
		want   Decision
	}{
		{"anonymous", orgcontext.Actor{}, ActionProjectRead, inOrgA, deny(ReasonUnauthenticated)},
		{"no active org", orgcontext.Actor{ExternalUserID: "u"}, ActionIssueCreate, nil, deny(ReasonWrongOrganization)},
		{"admin creates project", admin, ActionProjectCreate, nil, allow()},
		{"member creates project", member, ActionProjectCreate, nil, deny(ReasonInsufficientRole)},
		{"admin deletes project", admin, ActionProjectDelete, inOrgA, allow()},
		{"admin deletes foreign project", outsider, ActionProjectDelete, inOrgA, deny(ReasonWrongOrganization)},
		{"member deletes project", member, ActionProjectDelete, inOrgA, deny(ReasonInsufficientRole)},
		{"missing project", admin, ActionProjectDelete, nil, deny(ReasonNotFound)},
		{"member creates sprint", member, ActionSprintCreate, inOrgA, allow()},
		{"outsider creates sprint", outsider, ActionSprintCreate, inOrgA, deny(ReasonWrongOrganization)},
		{"member transitions sprint", member, ActionSprintTransition, inOrgA, deny(ReasonInsufficientRole)},
		{"admin transitions sprint", admin, ActionSprintTransition, inOrgA, allow()},
		{"member creates issue", member, ActionIssueCreate, nil, allow()},
		{"member updates issue", member, ActionIssueUpdate, issue, allow()},
		{"outsider updates issue", outsider, ActionIssueUpdate, issue, deny(ReasonWrongOrganization)},
		{"reporter deletes issue", reporter, ActionIssueDelete, issue, allow()},
		{"non-reporter member deletes issue", member, ActionIssueDelete, issue, deny(ReasonInsufficientRole)},
		{"admin deletes others issue", admin, ActionIssueDelete, issue, allow()},
		{"project admin deletes issue", orgcontext.Actor{UserID: 9, ExternalUserID: "user_9", OrgID: "org_a", OrgRole: orgcontext.RoleMember}, ActionIssueDelete, issue, allow()},
		{"outsider reads project", outsider, ActionProjectRead, inOrgA, deny(ReasonWrongOrganization)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gate.CanPerform(tc.actor, tc.action, tc.res))
		})
	}
}

func TestDecisionErrKinds(t *testing.T) {
	assert.ErrorIs(t, deny(ReasonUnauthenticated).Err(), apperr.ErrUnauthenticated)
	assert.ErrorIs(t, deny(ReasonInsufficientRole).Err(), apperr.ErrUnauthorized)
	assert.ErrorIs(t, deny(ReasonWrongOrganization).Err(), apperr.ErrNotFound)
	assert.ErrorIs(t, deny(ReasonNotFound).Err(), apperr.ErrNotFound)
	assert.NoError(t, allow().Err())
}

func TestCrossTenantReadIsNotFound(t *testing.T) {
	gate := newTestGate(t, nil)
	err := gate.Authorize(context.Background(), outsider, ActionProjectRead, &Resource{OrganizationID: "org_a"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotErrorIs(t, err, apperr.ErrUnauthorized)
}

type staticDirectory struct {
	authprovider.Directory
	members []authprovider.Member
	err     error
}

func (d staticDirectory) ListMembers(context.Context, string) ([]authprovider.Member, error) {
	return d.members, d.err
}

func TestVerifyMembership(t *testing.T) {
	gate := newTestGate(t, staticDirectory{members: []authprovider.Member{
		{ExternalUserID: "user_admin", Role: "member"},
	}})

	actor, err := gate.VerifyMembership(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, orgcontext.RoleMember, actor.OrgRole)
	assert.Equal(t, deny(ReasonInsufficientRole), gate.CanPerform(actor, ActionProjectCreate, nil))

	actor, err = gate.VerifyMembership(context.Background(), member)
	require.NoError(t, err)
	assert.False(t, actor.HasOrg())

	unconfigured := newTestGate(t, staticDirectory{err: authprovider.ErrNotConfigured})
	actor, err = unconfigured.VerifyMembership(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, admin, actor)

	failing := newTestGate(t, staticDirectory{err: authprovider.ErrUpstream})
	_, err = failing.VerifyMembership(context.Background(), admin)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestDatabaseEnforcerSeedsOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	first, err := NewEnforcer(db)
	require.NoError(t, err)
	second, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := second.GetPolicy()
	require.NoError(t, err)
	firstPolicies, err := first.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, len(firstPolicies))

	ok, err := second.Enforce(roleAdmin, ObjectIssue, "read")
	require.NoError(t, err)
	assert.True(t, ok)

}
