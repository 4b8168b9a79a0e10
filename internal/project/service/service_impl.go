package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	"github.com/smallbiznis/sprintboard/internal/project/domain"
	"github.com/smallbiznis/sprintboard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Board *config.BoardConfigHolder
	Gate  *authorization.Gate
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	board *config.BoardConfigHolder
	gate  *authorization.Gate
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("project.service"),
		genID: p.GenID,
		clock: p.Clock,
		board: p.Board,
		gate:  p.Gate,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Project, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	actor, err := s.gate.VerifyMembership(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionProjectCreate, nil); err != nil {
		return nil, err
	}

	name, key, description, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	project := &domain.Project{
		ID:             s.genID.Generate(),
		OrganizationID: actor.OrgID,
		Name:           name,
		Key:            key,
		Description:    description,
		AdminIDs:       datatypes.JSONSlice[string]{actor.UserID.String()},
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, project); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrKeyTaken
		}
		return nil, err
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("org_id", project.OrganizationID),
		zap.String("key", project.Key),
	)
	return project, nil
}

func (s *Service) List(ctx context.Context, orgID string) ([]domain.Project, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	orgID = strings.TrimSpace(orgID)
	res := &authorization.Resource{OrganizationID: orgID}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionProjectRead, res); err != nil {
		return nil, err
	}
	return s.repo.ListByOrganization(ctx, s.db, orgID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	project, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionProjectRead, project.Resource()); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	actor, _ := orgcontext.ActorFromContext(ctx)
	actor, err := s.gate.VerifyMembership(ctx, actor)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, authorization.ActionProjectDelete, project.Resource()); err != nil {
			return err
		}
		if err := s.repo.DeleteCascade(ctx, tx, id); err != nil {
			return err
		}
		s.log.Info("project deleted",
			zap.String("project_id", id.String()),
			zap.String("org_id", project.OrganizationID),
		)
		return nil
	})
}

func (s *Service) validate(req domain.CreateRequest) (string, string, string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > domain.MaxNameLength {
		return "", "", "", domain.ErrInvalidName
	}

	bounds := s.board.Get().ProjectKey
	key := strings.ToUpper(strings.TrimSpace(req.Key))
	if len(key) < bounds.MinLength || len(key) > bounds.MaxLength || !isAlphanumeric(key) {
		return "", "", "", domain.ErrInvalidKey
	}

	description := strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
		return "", "", "", domain.ErrDescriptionTooLong
	}
	return name, key, description, nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
