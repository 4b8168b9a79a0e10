package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/config"
	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	"github.com/smallbiznis/sprintboard/internal/issue/domain"
	"github.com/smallbiznis/sprintboard/internal/observability/metrics"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
	sprintdomain "github.com/smallbiznis/sprintboard/internal/sprint/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Board       *config.BoardConfigHolder
	Gate        *authorization.Gate
	Engine      *ordering.Engine
	Repo        domain.Repository
	ProjectRepo projectdomain.Repository
	SprintRepo  sprintdomain.Repository
	Users       identitydomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	board       *config.BoardConfigHolder
	gate        *authorization.Gate
	engine      *ordering.Engine
	repo        domain.Repository
	projectRepo projectdomain.Repository
	sprintRepo  sprintdomain.Repository
	users       identitydomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("issue.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		board:       p.Board,
		gate:        p.Gate,
		engine:      p.Engine,
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		sprintRepo:  p.SprintRepo,
		users:       p.Users,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, projectID snowflake.ID, req domain.CreateRequest) (*domain.View, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueCreate, nil); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueCreate, project.Resource()); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	board := s.board.Get()
	status := normalize(req.Status, board.DefaultStatus())
	if !board.HasStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	priority := normalize(req.Priority, board.DefaultPriority)
	if !board.HasPriority(priority) {
		return nil, domain.ErrInvalidPriority
	}

	sprintID := nonZero(req.SprintID)
	if sprintID != nil {
		sprint, err := s.sprintRepo.FindByID(ctx, s.db, *sprintID)
		if err != nil {
			return nil, err
		}
		if sprint == nil {
			return nil, sprintdomain.ErrNotFound
		}
		if sprint.ProjectID != projectID {
			return nil, domain.ErrSprintMismatch
		}
		if sprint.Status == sprintdomain.StatusCompleted {
			return nil, domain.ErrSprintCompleted
		}
	}

	assigneeID := nonZero(req.AssigneeID)
	if assigneeID != nil {
		if _, err := s.users.Get(ctx, *assigneeID); err != nil {
			if errors.Is(err, identitydomain.ErrNotFound) {
				return nil, domain.ErrUnknownAssignee
			}
			return nil, err
		}
	}

	now := s.clock.Now()
	partition := ordering.PartitionFor(projectID, sprintID)
	issue := &domain.Issue{
		ID:           s.genID.Generate(),
		ProjectID:    projectID,
		SprintID:     sprintID,
		PartitionKey: string(partition),
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Status:       status,
		Priority:     priority,
		ReporterID:   actor.UserID,
		AssigneeID:   assigneeID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.engine.Append(ctx, ordering.Group{Partition: partition, Status: status}, func(tx *gorm.DB, order int) error {
		issue.SortOrder = order
		return s.repo.Insert(ctx, tx, issue)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIssueCreated(ctx, project.OrganizationID, status)
	s.log.Info("issue created",
		zap.String("issue_id", issue.ID.String()),
		zap.String("project_id", projectID.String()),
		zap.String("status", status),
		zap.Int("order", issue.SortOrder),
	)
	return s.view(ctx, issue)
}

func (s *Service) ListForSprint(ctx context.Context, sprintID snowflake.ID, filter domain.Filter) ([]domain.View, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	_, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueRead, project.Resource()); err != nil {
		return nil, err
	}

	issues, err := s.repo.ListBySprint(ctx, s.db, sprintID, filter)
	if err != nil {
		return nil, err
	}
	s.sortByColumn(issues)
	return s.views(ctx, issues, false)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.View, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	issue, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueUpdate, resourceOf(issue, project)); err != nil {
		return nil, err
	}

	board := s.board.Get()
	status := issue.Status
	if req.Status != nil {
		status = normalize(*req.Status, issue.Status)
		if !board.HasStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
	}
	priority := issue.Priority
	if req.Priority != nil {
		priority = normalize(*req.Priority, issue.Priority)
		if !board.HasPriority(priority) {
			return nil, domain.ErrInvalidPriority
		}
	}

	now := s.clock.Now()
	if status != issue.Status {
		err = s.engine.Relocate(ctx, issue.Rank(), status, func(tx *gorm.DB, order int) error {
			return s.repo.UpdateFields(ctx, tx, id, status, priority, order, now)
		})
	} else {
		// Rank is owned by the ordering engine; leave it untouched here.
		err = s.repo.UpdatePriority(ctx, s.db, id, priority, now)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	s.log.Info("issue updated",
		zap.String("issue_id", id.String()),
		zap.String("status", updated.Status),
		zap.String("priority", updated.Priority),
	)
	return s.view(ctx, updated)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	actor, _ := orgcontext.ActorFromContext(ctx)
	actor, err := s.gate.VerifyMembership(ctx, actor)
	if err != nil {
		return err
	}

	issue, project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueDelete, resourceOf(issue, project)); err != nil {
		return err
	}

	err = s.engine.Remove(ctx, issue.Rank(), func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("issue deleted",
		zap.String("issue_id", id.String()),
		zap.String("actor", actor.ExternalUserID),
	)
	return nil
}

func (s *Service) Reorder(ctx context.Context, batch []ordering.Placement) error {
	actor, _ := orgcontext.ActorFromContext(ctx)
	if !actor.Authenticated() {
		return authorization.ErrUnauthenticated
	}

	guard := func(tx *gorm.DB, ranks []ordering.Rank) error {
		ids := make([]snowflake.ID, len(ranks))
		for i, r := range ranks {
			ids[i] = r.IssueID
		}
		issues, err := s.repo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		return s.checkReorder(ctx, tx, actor, issues)
	}

	if err := s.engine.Reorder(ctx, batch, guard); err != nil {
		return err
	}
	s.log.Info("issues reordered", zap.Int("count", len(batch)))
	return nil
}

func (s *Service) Move(ctx context.Context, sprintID snowflake.ID, req domain.MoveRequest) ([]domain.View, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	sprint, project, err := s.loadSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueReorder, project.Resource()); err != nil {
		return nil, err
	}
	if !sprint.Reorderable() {
		return nil, domain.ErrSprintNotActive
	}

	issues, err := s.repo.ListBySprint(ctx, s.db, sprintID, domain.Filter{})
	if err != nil {
		return nil, err
	}
	ranks := make([]ordering.Rank, len(issues))
	for i, issue := range issues {
		ranks[i] = issue.Rank()
	}

	board := ordering.NewBoard(s.board.Get().Statuses, ranks)
	placements, err := board.Move(req.Source, req.Destination)
	if err != nil {
		return nil, err
	}
	if len(placements) > 0 {
		if err := s.Reorder(ctx, placements); err != nil {
			return nil, err
		}
	}
	return s.ListForSprint(ctx, sprintID, domain.Filter{})
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.View, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	scope := &authorization.Resource{OrganizationID: actor.OrgID}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueRead, scope); err != nil {
		return nil, err
	}

	issues, err := s.repo.ListForUser(ctx, s.db, actor.OrgID, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, issues, true)
}

// checkReorder requires every issue of a batch to be visible to actor and to
// belong to one active sprint.
func (s *Service) checkReorder(ctx context.Context, tx *gorm.DB, actor orgcontext.Actor, issues []domain.Issue) error {
	projects := make(map[snowflake.ID]*projectdomain.Project)
	for _, issue := range issues {
		if _, ok := projects[issue.ProjectID]; ok {
			continue
		}
		project, err := s.projectRepo.FindByID(ctx, tx, issue.ProjectID)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, authorization.ActionIssueReorder, project.Resource()); err != nil {
			return err
		}
		projects[issue.ProjectID] = project
	}

	var sprintID snowflake.ID
	for _, issue := range issues {
		if issue.SprintID == nil {
			return domain.ErrSprintNotActive
		}
		if sprintID != 0 && *issue.SprintID != sprintID {
			return domain.ErrMixedBatch
		}
		sprintID = *issue.SprintID
	}

	sprint, err := s.sprintRepo.FindByID(ctx, tx, sprintID)
	if err != nil {
		return err
	}
	if sprint == nil {
		return sprintdomain.ErrNotFound
	}
	if !sprint.Reorderable() {
		return domain.ErrSprintNotActive
	}
	return nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Issue, *projectdomain.Project, error) {
	issue, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil || issue == nil {
		return nil, nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, s.db, issue.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return issue, project, nil
}

func (s *Service) loadSprint(ctx context.Context, id snowflake.ID) (*sprintdomain.Sprint, *projectdomain.Project, error) {
	sprint, err := s.sprintRepo.FindByID(ctx, s.db, id)
	if err != nil || sprint == nil {
		return nil, nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, s.db, sprint.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return sprint, project, nil
}

// sortByColumn orders issues by board column, then rank. Statuses missing
// from the board sort after the configured columns.
func (s *Service) sortByColumn(issues []domain.Issue) {
	board := s.board.Get()
	column := func(status string) int {
		if rank := board.StatusRank(status); rank >= 0 {
			return rank
		}
		return len(board.Statuses)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		ci, cj := column(issues[i].Status), column(issues[j].Status)
		if ci != cj {
			return ci < cj
		}
		if issues[i].Status != issues[j].Status {
			return issues[i].Status < issues[j].Status
		}
		return issues[i].SortOrder < issues[j].SortOrder
	})
}

func (s *Service) view(ctx context.Context, issue *domain.Issue) (*domain.View, error) {
	views, err := s.views(ctx, []domain.Issue{*issue}, false)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) views(ctx context.Context, issues []domain.Issue, withProject bool) ([]domain.View, error) {
	userIDs := make([]snowflake.ID, 0, 2*len(issues))
	projectIDs := make([]snowflake.ID, 0, len(issues))
	for _, issue := range issues {
		userIDs = append(userIDs, issue.ReporterID)
		if issue.AssigneeID != nil {
			userIDs = append(userIDs, *issue.AssigneeID)
		}
		projectIDs = append(projectIDs, issue.ProjectID)
	}

	users, err := s.users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	projects := make(map[snowflake.ID]projectdomain.Summary)
	if withProject {
		found, err := s.projectRepo.FindByIDs(ctx, s.db, projectIDs)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			projects[p.ID] = p.Summary()
		}
	}

	views := make([]domain.View, len(issues))
	for i, issue := range issues {
		v := domain.View{Issue: issue}
		if u, ok := users[issue.ReporterID]; ok {
			summary := u.Summary()
			v.Reporter = &summary
		}
		if issue.AssigneeID != nil {
			if u, ok := users[*issue.AssigneeID]; ok {
				summary := u.Summary()
				v.Assignee = &summary
			}
		}
		if p, ok := projects[issue.ProjectID]; ok {
			v.Project = &p
		}
		views[i] = v
	}
	return views, nil
}

func resourceOf(issue *domain.Issue, project *projectdomain.Project) *authorization.Resource {
	if issue == nil || project == nil {
		return nil
	}
	res := project.Resource()
	res.ReporterID = issue.ReporterID
	return res
}

func normalize(value, fallback string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func nonZero(id *snowflake.ID) *snowflake.ID {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}
