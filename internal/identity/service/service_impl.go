package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Directory authprovider.Directory
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	directory authprovider.Directory
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("identity.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		directory: p.Directory,
	}
}

func (s *Service) EnsureLocalUser(ctx context.Context, identity authprovider.Identity) (*domain.User, error) {
	externalID := strings.TrimSpace(identity.ExternalID)
	if externalID == "" {
		return nil, domain.ErrInvalidExternalID
	}

	existing, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Name:       identity.DisplayName(),
		Email:      identity.PrimaryEmail(),
		ImageURL:   identity.ImageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Info("local user created", zap.String("user_id", user.ID.String()), zap.String("external_id", externalID))
		return user, nil
	}

	// A concurrent request won the insert; its row is the mirror.
	winner, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, domain.ErrNotFound
	}
	return winner, nil
}

func (s *Service) Resolve(ctx context.Context, externalID string) (*domain.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.ErrInvalidExternalID
	}

	existing, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	identity, err := s.directory.GetUser(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if identity.ExternalID == "" {
		identity.ExternalID = externalID
	}
	return s.EnsureLocalUser(ctx, *identity)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) ListByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]domain.User, error) {
	unique := make([]snowflake.ID, 0, len(ids))
	seen := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	users, err := s.repo.FindByIDs(ctx, s.db, unique)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Service) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]domain.User, error) {
	return s.repo.FindByExternalIDs(ctx, s.db, externalIDs)
}
