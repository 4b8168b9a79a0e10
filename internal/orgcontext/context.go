package orgcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin  = "org:admin"
	RoleMember = "org:member"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	// UserID is the local mirrored user; zero until the identity mirror ran.
	UserID         snowflake.ID
	ExternalUserID string
	OrgID          string
	OrgRole        string
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.ExternalUserID) != ""
}

func (a Actor) HasOrg() bool {
	return strings.TrimSpace(a.OrgID) != ""
}

func (a Actor) IsAdmin() bool {
	return NormalizeRole(a.OrgRole) == RoleAdmin
}

// NormalizeRole maps provider role spellings ("admin", "ORG:ADMIN") to the org:* form.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ""
	}
	if !strings.HasPrefix(role, "org:") {
		role = "org:" + role
	}
	return role
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	actor.OrgRole = NormalizeRole(actor.OrgRole)
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || !actor.Authenticated() {
		return Actor{}, false
	}
	return actor, true
}

// OrgIDFromContext returns the active organization of the actor, if any.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !actor.HasOrg() {
		return "", false
	}
	return actor.OrgID, true
}
