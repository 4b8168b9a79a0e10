package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/dbtest"
	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	identityrepository "github.com/smallbiznis/sprintboard/internal/identity/repository"
	identityservice "github.com/smallbiznis/sprintboard/internal/identity/service"
	"github.com/smallbiznis/sprintboard/internal/issue/domain"
	"github.com/smallbiznis/sprintboard/internal/issue/repository"
	"github.com/smallbiznis/sprintboard/internal/migration"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
	projectrepository "github.com/smallbiznis/sprintboard/internal/project/repository"
	sprintdomain "github.com/smallbiznis/sprintboard/internal/sprint/domain"
	sprintrepository "github.com/smallbiznis/sprintboard/internal/sprint/repository"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	admin    = orgcontext.Actor{UserID: 1, ExternalUserID: "user_admin", OrgID: "org_a", OrgRole: orgcontext.RoleAdmin}
	member   = orgcontext.Actor{UserID: 2, ExternalUserID: "user_member", OrgID: "org_a", OrgRole: orgcontext.RoleMember}
	reporter = orgcontext.Actor{UserID: 3, ExternalUserID: "user_reporter", OrgID: "org_a", OrgRole: orgcontext.RoleMember}
	outsider = orgcontext.Actor{UserID: 4, ExternalUserID: "user_outsider", OrgID: "org_b", OrgRole: orgcontext.RoleAdmin}
)

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	clock     *clock.FakeClock
	node      *snowflake.Node
	project   *projectdomain.Project
	active    *sprintdomain.Sprint
	planned   *sprintdomain.Sprint
	completed *sprintdomain.Sprint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, migration.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC))
	board := config.NewStaticBoardConfig(config.DefaultBoardConfig())
	now := clk.Now()

	for _, actor := range []orgcontext.Actor{admin, member, reporter, outsider} {
		require.NoError(t, db.Create(&identitydomain.User{
			ID:         actor.UserID,
			ExternalID: actor.ExternalUserID,
			Name:       actor.ExternalUserID,
			Email:      actor.ExternalUserID + "@example.com",
			CreatedAt:  now,
			UpdatedAt:  now,
		}).Error)
	}

	project := &projectdomain.Project{
		ID:             node.Generate(),
		OrganizationID: "org_a",
		Name:           "Board",
		Key:            "BRD",
		AdminIDs:       datatypes.JSONSlice[string]{"1"},
		CreatedBy:      1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, db.Create(project).Error)

	newSprint := func(status string) *sprintdomain.Sprint {
		s := &sprintdomain.Sprint{
			ID:        node.Generate(),
			ProjectID: project.ID,
			Name:      "BRD-" + status,
			StartDate: now.Add(-72 * time.Hour),
			EndDate:   now.Add(72 * time.Hour),
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, db.Create(s).Error)
		return s
	}

	repo := repository.Provide()
	users := identityservice.New(identityservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  identityrepository.Provide(),
	})
	engine := ordering.NewEngine(ordering.Params{
		DB:    db,
		Log:   log,
		Clock: clk,
		Store: repo,
		Board: board,
	})

	svc := New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Board:       board,
		Gate:        authorization.NewGate(authorization.Params{Log: log, Enforcer: enforcer}),
		Engine:      engine,
		Repo:        repo,
		ProjectRepo: projectrepository.Provide(),
		SprintRepo:  sprintrepository.Provide(),
		Users:       users,
	})

	return &fixture{
		db:        db,
		svc:       svc,
		clock:     clk,
		node:      node,
		project:   project,
		active:    newSprint(sprintdomain.StatusActive),
		planned:   newSprint(sprintdomain.StatusPlanned),
		completed: newSprint(sprintdomain.StatusCompleted),
	}
}

func as(actor orgcontext.Actor) context.Context {
	return orgcontext.WithActor(context.Background(), actor)
}

func (f *fixture) create(t *testing.T, actor orgcontext.Actor, sprint *sprintdomain.Sprint, title, status string) *domain.View {
	t.Helper()
	req := domain.CreateRequest{Title: title, Status: status}
	if sprint != nil {
		req.SprintID = &sprint.ID
	}
	issue, err := f.svc.Create(as(actor), f.project.ID, req)
	require.NoError(t, err)
	return issue
}

func titles(views []domain.View) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Title
	}
	return out
}

func (f *fixture) orders(t *testing.T, sprint *sprintdomain.Sprint, status string) []int {
	t.Helper()
	var orders []int
	require.NoError(t, f.db.Model(&domain.Issue{}).
		Where("sprint_id = ? AND status = ?", sprint.ID, status).
		Order("sort_order ASC").
		Pluck("sort_order", &orders).Error)
	return orders
}

func TestCreateAssignsSequentialOrders(t *testing.T) {
	f := newFixture(t)

	var got []int
	for _, title := range []string{"a", "b", "c", "d"} {
		got = append(got, f.create(t, member, f.active, title, "TODO").SortOrder)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, got)

	assert.Equal(t, 0, f.create(t, member, f.active, "e", "DONE").SortOrder)
	assert.Equal(t, 0, f.create(t, member, f.planned, "f", "TODO").SortOrder)
	assert.Equal(t, 0, f.create(t, member, nil, "backlog", "TODO").SortOrder)
	assert.Equal(t, 1, f.create(t, member, nil, "backlog 2", "TODO").SortOrder)
}

func TestCreateDefaultsAndEmbeds(t *testing.T) {
	f := newFixture(t)
	assignee := member.UserID

	issue, err := f.svc.Create(as(reporter), f.project.ID, domain.CreateRequest{
		Title:      "  Write docs ",
		SprintID:   &f.active.ID,
		AssigneeID: &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", issue.Title)
	assert.Equal(t, "TODO", issue.Status)
	assert.Equal(t, "MEDIUM", issue.Priority)
	assert.Equal(t, reporter.UserID, issue.ReporterID)
	assert.Equal(t, string(ordering.SprintPartition(f.active.ID)), issue.PartitionKey)
	require.NotNil(t, issue.Reporter)
	assert.Equal(t, "user_reporter", issue.Reporter.Name)
	require.NotNil(t, issue.Assignee)
	assert.Equal(t, "user_member@example.com", issue.Assignee.Email)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	unknown := snowflake.ID(999)
	otherProjectSprint := &sprintdomain.Sprint{
		ID: f.node.Generate(), ProjectID: snowflake.ID(5), Name: "x", Status: sprintdomain.StatusActive,
		StartDate: f.clock.Now(), EndDate: f.clock.Now(), CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(otherProjectSprint).Error)

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"blank title", domain.CreateRequest{Title: " "}, domain.ErrInvalidTitle},
		{"unknown status", domain.CreateRequest{Title: "t", Status: "BLOCKED"}, domain.ErrInvalidStatus},
		{"unknown priority", domain.CreateRequest{Title: "t", Priority: "URGENT"}, domain.ErrInvalidPriority},
		{"unknown assignee", domain.CreateRequest{Title: "t", AssigneeID: &unknown}, domain.ErrUnknownAssignee},
		{"unknown sprint", domain.CreateRequest{Title: "t", SprintID: &unknown}, sprintdomain.ErrNotFound},
		{"foreign sprint", domain.CreateRequest{Title: "t", SprintID: &otherProjectSprint.ID}, domain.ErrSprintMismatch},
		{"completed sprint", domain.CreateRequest{Title: "t", SprintID: &f.completed.ID}, domain.ErrSprintCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(as(member), f.project.ID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.Create(as(outsider), f.project.ID, domain.CreateRequest{Title: "t"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Create(context.Background(), f.project.ID, domain.CreateRequest{Title: "t"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestListForSprintOrdersByColumnThenRank(t *testing.T) {
	f := newFixture(t)
	f.create(t, member, f.active, "todo-0", "TODO")
	f.create(t, member, f.active, "done-0", "DONE")
	f.create(t, member, f.active, "todo-1", "TODO")
	f.create(t, member, f.active, "progress-0", "IN_PROGRESS")

	issues, err := f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"todo-0", "todo-1", "progress-0", "done-0"}, titles(issues))

	_, err = f.svc.ListForSprint(as(outsider), f.active.ID, domain.Filter{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListForSprintFilters(t *testing.T) {
	f := newFixture(t)
	assignee := member.UserID
	_, err := f.svc.Create(as(member), f.project.ID, domain.CreateRequest{
		Title: "Fix login bug", SprintID: &f.active.ID, Priority: "HIGH", AssigneeID: &assignee,
	})
	require.NoError(t, err)
	f.create(t, member, f.active, "Write release notes", "TODO")

	issues, err := f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{Search: "LOGIN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix login bug"}, titles(issues))

	issues, err = f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{AssigneeIDs: []snowflake.ID{assignee}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix login bug"}, titles(issues))

	issues, err = f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{Priority: "medium"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Write release notes"}, titles(issues))
}

func TestUpdateStatusKeepsColumnsDense(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, member, f.active, "a", "TODO")
	f.create(t, member, f.active, "b", "TODO")
	f.create(t, member, f.active, "c", "TODO")
	f.create(t, member, f.active, "d", "DONE")

	done := "done"
	high := "HIGH"
	updated, err := f.svc.Update(as(member), a.ID, domain.UpdateRequest{Status: &done, Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, "DONE", updated.Status)
	assert.Equal(t, "HIGH", updated.Priority)
	assert.Equal(t, 1, updated.SortOrder)
	assert.Equal(t, member.UserID, updated.ReporterID)

	assert.Equal(t, []int{0, 1}, f.orders(t, f.active, "TODO"))
	assert.Equal(t, []int{0, 1}, f.orders(t, f.active, "DONE"))
}

func TestUpdatePriorityOnlyKeepsRank(t *testing.T) {
	f := newFixture(t)
	f.create(t, member, f.active, "a", "TODO")
	b := f.create(t, member, f.active, "b", "TODO")

	low := "low"
	updated, err := f.svc.Update(as(member), b.ID, domain.UpdateRequest{Priority: &low})
	require.NoError(t, err)
	assert.Equal(t, "LOW", updated.Priority)
	assert.Equal(t, "TODO", updated.Status)
	assert.Equal(t, 1, updated.SortOrder)
}

func TestUpdatePriorityDoesNotOverwriteConcurrentReorder(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, member, f.active, "a", "TODO")
	b := f.create(t, member, f.active, "b", "TODO")

	// Swap a and b after b was loaded but before its priority is written.
	var reordered bool
	var reorderErr error
	require.NoError(t, f.db.Callback().Raw().Before("gorm:raw").Register("test:reorder_before_priority", func(tx *gorm.DB) {
		if reordered || !strings.HasPrefix(tx.Statement.SQL.String(), "UPDATE issues SET priority") {
			return
		}
		reordered = true
		reorderErr = f.svc.Reorder(as(admin), []ordering.Placement{
			{IssueID: b.ID, Status: "TODO", Order: 0},
			{IssueID: a.ID, Status: "TODO", Order: 1},
		})
	}))

	high := "HIGH"
	updated, err := f.svc.Update(as(member), b.ID, domain.UpdateRequest{Priority: &high})
	require.NoError(t, err)
	require.True(t, reordered)
	require.NoError(t, reorderErr)
	assert.Equal(t, "HIGH", updated.Priority)
	assert.Equal(t, 0, updated.SortOrder)

	issues, err := f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, titles(issues))
	assert.Equal(t, []int{0, 1}, f.orders(t, f.active, "TODO"))
}

func TestUpdateRejects(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, member, f.active, "a", "TODO")

	bad := "BLOCKED"
	_, err := f.svc.Update(as(member), a.ID, domain.UpdateRequest{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = f.svc.Update(as(member), a.ID, domain.UpdateRequest{Priority: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)

	done := "DONE"
	_, err = f.svc.Update(as(outsider), a.ID, domain.UpdateRequest{Status: &done})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Update(as(member), snowflake.ID(404), domain.UpdateRequest{Status: &done})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeletePermissions(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, reporter, f.active, "first", "TODO")
	second := f.create(t, reporter, f.active, "second", "TODO")
	third := f.create(t, reporter, f.active, "third", "TODO")

	err := f.svc.Delete(as(member), first.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	err = f.svc.Delete(as(outsider), first.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, f.svc.Delete(as(reporter), first.ID))
	require.NoError(t, f.svc.Delete(as(admin), third.ID))

	issues, err := f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, second.ID, issues[0].ID)
	assert.Equal(t, 0, issues[0].SortOrder)

	err = f.svc.Delete(as(admin), first.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteByProjectAdminWithMemberRole(t *testing.T) {
	f := newFixture(t)
	issue := f.create(t, reporter, f.active, "x", "TODO")
	require.NoError(t, f.db.Model(&projectdomain.Project{}).
		Where("id = ?", f.project.ID).
		Update("admin_ids", datatypes.JSONSlice[string]{"1", "2"}).Error)

	assert.NoError(t, f.svc.Delete(as(member), issue.ID))
}

func TestReorderAcrossColumns(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, member, f.active, "a", "TODO")
	b := f.create(t, member, f.active, "b", "TODO")
	c := f.create(t, member, f.active, "c", "IN_PROGRESS")

	err := f.svc.Reorder(as(member), []ordering.Placement{
		{IssueID: b.ID, Status: "TODO", Order: 0},
		{IssueID: c.ID, Status: "IN_PROGRESS", Order: 0},
		{IssueID: a.ID, Status: "IN_PROGRESS", Order: 1},
	})
	require.NoError(t, err)

	issues, err := f.svc.ListForSprint(as(member), f.active.ID, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, titles(issues))
	assert.Equal(t, "IN_PROGRESS", issues[2].Status)
}

func TestReorderRequiresActiveSprint(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, member, f.planned, "a", "TODO")
	b := f.create(t, member, f.planned, "b", "TODO")

	err := f.svc.Reorder(as(member), []ordering.Placement{
		{IssueID: b.ID, Status: "TODO", Order: 0},
		{IssueID: a.ID, Status: "TODO", Order: 1},
	})
	assert.ErrorIs(t, err, domain.ErrSprintNotActive)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	issues, err := f.svc.ListForSprint(as(member), f.planned.ID, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, titles(issues))
}

func TestReorderRejectsMixedAndForeignBatches(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, member, f.active, "a", "TODO")
	b := f.create(t, member, f.planned, "b", "TODO")
	backlog := f.create(t, member, nil, "backlog", "TODO")

	err := f.svc.Reorder(as(member), []ordering.Placement{
		{IssueID: a.ID, Status: "TODO", Order: 0},
		{IssueID: b.ID, Status: "TODO", Order: 0},
	})
	assert.ErrorIs(t, err, domain.ErrMixedBatch)

	err = f.svc.Reorder(as(member), []ordering.Placement{{IssueID: backlog.ID, Status: "TODO", Order: 0}})
	assert.ErrorIs(t, err, domain.ErrSprintNotActive)

	err = f.svc.Reorder(as(outsider), []ordering.Placement{{IssueID: a.ID, Status: "TODO", Order: 0}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.svc.Reorder(context.Background(), []ordering.Placement{{IssueID: a.ID, Status: "TODO", Order: 0}})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestMoveAppliesDrag(t *testing.T) {
	f := newFixture(t)
	f.create(t, member, f.active, "a", "TODO")
	f.create(t, member, f.active, "b", "TODO")
	f.create(t, member, f.active, "c", "IN_PROGRESS")

	board, err := f.svc.Move(as(member), f.active.ID, domain.MoveRequest{
		Source:      ordering.Location{Status: "TODO", Index: 0},
		Destination: ordering.Location{Status: "IN_PROGRESS", Index: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, titles(board))
	assert.Equal(t, []int{0}, f.orders(t, f.active, "TODO"))
	assert.Equal(t, []int{0, 1}, f.orders(t, f.active, "IN_PROGRESS"))

	_, err = f.svc.Move(as(member), f.active.ID, domain.MoveRequest{
		Source:      ordering.Location{Status: "TODO", Index: 5},
		Destination: ordering.Location{Status: "DONE", Index: 0},
	})
	assert.ErrorIs(t, err, ordering.ErrInvalidMove)

	_, err = f.svc.Move(as(member), f.planned.ID, domain.MoveRequest{
		Source:      ordering.Location{Status: "TODO", Index: 0},
		Destination: ordering.Location{Status: "DONE", Index: 0},
	})
	assert.ErrorIs(t, err, domain.ErrSprintNotActive)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	assignee := member.UserID

	reported := f.create(t, member, f.active, "reported by member", "TODO")
	f.clock.Advance(time.Minute)
	assigned, err := f.svc.Create(as(reporter), f.project.ID, domain.CreateRequest{
		Title: "assigned to member", SprintID: &f.active.ID, AssigneeID: &assignee,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	f.create(t, reporter, f.active, "unrelated", "TODO")

	issues, err := f.svc.ListForUser(as(admin), member.UserID)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, assigned.ID, issues[0].ID)
	assert.Equal(t, reported.ID, issues[1].ID)
	require.NotNil(t, issues[0].Project)
	assert.Equal(t, "BRD", issues[0].Project.Key)

	issues, err = f.svc.ListForUser(as(outsider), member.UserID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}
