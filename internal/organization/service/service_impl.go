package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	"github.com/smallbiznis/sprintboard/internal/organization/domain"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Gate      *authorization.Gate
	Directory authprovider.Directory
	Users     identitydomain.Service
}

type Service struct {
	log       *zap.Logger
	gate      *authorization.Gate
	directory authprovider.Directory
	users     identitydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("organization.service"),
		gate:      p.Gate,
		directory: p.Directory,
		users:     p.Users,
	}
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	actor, ok := orgcontext.ActorFromContext(ctx)
	if !ok {
		return nil, authorization.ErrUnauthenticated
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ErrNotFound
	}

	org, err := s.directory.ResolveOrganization(ctx, slug)
	if err != nil {
		return nil, s.directoryErr("resolve organization", err)
	}
	members, err := s.directory.ListMembers(ctx, org.ID)
	if err != nil {
		return nil, s.directoryErr("list members", err)
	}

	for _, m := range members {
		if m.ExternalUserID != actor.ExternalUserID {
			continue
		}
		return &domain.Organization{
			ID:       org.ID,
			Slug:     org.Slug,
			Name:     org.Name,
			ImageURL: org.ImageURL,
			AdminIDs: org.AdminIDs,
			Role:     orgcontext.NormalizeRole(m.Role),
		}, nil
	}
	return nil, domain.ErrNotFound
}

func (s *Service) ListUsers(ctx context.Context, orgID string) ([]identitydomain.User, error) {
	actor, _ := orgcontext.ActorFromContext(ctx)
	scope := &authorization.Resource{OrganizationID: strings.TrimSpace(orgID)}
	if err := s.gate.Authorize(ctx, actor, authorization.ActionOrganizationRead, scope); err != nil {
		return nil, err
	}

	members, err := s.directory.ListMembers(ctx, scope.OrganizationID)
	if err != nil {
		return nil, s.directoryErr("list members", err)
	}
	externalIDs := make([]string, 0, len(members))
	for _, m := range members {
		externalIDs = append(externalIDs, m.ExternalUserID)
	}
	return s.users.ListByExternalIDs(ctx, externalIDs)
}

// directoryErr reports a directory 404 as a missing organization and every
// other failure as upstream.
func (s *Service) directoryErr(op string, err error) error {
	if errors.Is(err, authprovider.ErrNotFound) {
		return domain.ErrNotFound
	}
	s.log.Warn("directory request failed", zap.String("op", op), zap.Error(err))
	if errors.Is(err, apperr.ErrUpstream) {
		return err
	}
	return authprovider.ErrUpstream.Wrap(err)
}
