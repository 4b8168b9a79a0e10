package authorization

import (
	"context"
	"errors"

	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	"go.uber.org/zap"
)

// VerifyMembership replaces the token's org role with the role the directory
// currently holds, so a demoted admin loses rights before the token expires.
// Without a configured directory the token role stands.
func (g *Gate) VerifyMembership(ctx context.Context, actor orgcontext.Actor) (orgcontext.Actor, error) {
	if g.directory == nil || !actor.Authenticated() || !actor.HasOrg() {
		return actor, nil
	}

	members, err := g.directory.ListMembers(ctx, actor.OrgID)
	if errors.Is(err, authprovider.ErrNotConfigured) {
		return actor, nil
	}
	if errors.Is(err, authprovider.ErrNotFound) {
		return actor, ErrNotFound
	}
	if err != nil {
		return actor, err
	}

	for _, m := range members {
		if m.ExternalUserID == actor.ExternalUserID {
			actor.OrgRole = orgcontext.NormalizeRole(m.Role)
			return actor, nil
		}
	}

	g.log.Warn("actor is not a member of the active organization",
		zap.String("actor", actor.ExternalUserID),
		zap.String("org_id", actor.OrgID),
	)
	actor.OrgRole = ""
	actor.OrgID = ""
	return actor, nil
}
