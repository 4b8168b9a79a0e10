package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/observability/metrics"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
	"github.com/smallbiznis/sprintboard/internal/sprint/domain"
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
	Gate        *authorization.Gate
	Repo        domain.Repository
	ProjectRepo projectdomain.Repository
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	gate        *authorization.Gate
	repo        domain.Repository
	projectRepo projectdomain.Repository
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("sprint.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		gate:        p.Gate,
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, projectID snowflake.ID, req domain.CreateRequest) (*domain.Sprint, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)

	project, err := s.projectRepo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionSprintCreate, project.Resource()); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		count, err := s.repo.CountByProject(ctx, s.db, projectID)
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("%s-%d", project.Key, count+1)
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return nil, domain.ErrInvalidName
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
		return nil, domain.ErrInvalidDates
	}

	now := s.clock.Now()
	sprint := &domain.Sprint{
		ID:        s.genID.Generate(),
		ProjectID: projectID,
		Name:      name,
		StartDate: req.StartDate.UTC(),
		EndDate:   req.EndDate.UTC(),
		Status:    domain.StatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, sprint); err != nil {
		return nil, err
	}

	s.log.Info("sprint created",
		zap.String("sprint_id", sprint.ID.String()),
		zap.String("project_id", projectID.String()),
	)
	return sprint, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Sprint, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	sprint, project, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionSprintRead, project.Resource()); err != nil {
		return nil, err
	}
	return sprint, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, status string) (*domain.Sprint, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	actor, err := s.gate.VerifyMembership(ctx, actor)
	if err != nil {
		return nil, err
	}

	target := domain.NormalizeStatus(status)
	var updated *domain.Sprint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sprint, project, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, authorization.ActionSprintTransition, project.Resource()); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := sprint.Transition(target, now); err != nil {
			s.log.Info("sprint transition rejected",
				zap.String("sprint_id", id.String()),
				zap.String("from", sprint.Status),
				zap.String("to", target),
				zap.Error(err),
			)
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, id, target, now); err != nil {
			return err
		}

		sprint.Status = target
		sprint.UpdatedAt = now
		updated = sprint
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSprintTransition(ctx, target)
	s.log.Info("sprint status changed",
		zap.String("sprint_id", id.String()),
		zap.String("status", target),
	)
	return updated, nil
}

func (s *Service) GetProjectWithSprints(ctx context.Context, projectID snowflake.ID) (*domain.ProjectWithSprints, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)

	project, err := s.projectRepo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionProjectRead, project.Resource()); err != nil {
		return nil, err
	}

	sprints, err := s.repo.ListByProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if sprints == nil {
		sprints = []domain.Sprint{}
	}
	return &domain.ProjectWithSprints{Project: *project, Sprints: sprints}, nil
}

// load returns the sprint with its project. A missing sprint yields a nil
// project so the gate reports not found.
func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sprint, *projectdomain.Project, error) {
	sprint, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	if sprint == nil {
		return nil, nil, nil
	}
	project, err := s.projectRepo.FindByID(ctx, db, sprint.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return sprint, project, nil
}
