package authorization

import (
	"context"
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/internal/observability/metrics"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ObjectOrganization = "organization"
	ObjectProject      = "project"
	ObjectSprint       = "sprint"
	ObjectIssue        = "issue"
)

// Action is an operation the gate decides on.
type Action struct {
	Object string
	Verb   string
}

func (a Action) String() string { return a.Object + "." + a.Verb }

var (
	ActionOrganizationRead = Action{ObjectOrganization, "read"}
	ActionProjectCreate    = Action{ObjectProject, "create"}
	ActionProjectDelete    = Action{ObjectProject, "delete"}
	ActionProjectRead      = Action{ObjectProject, "read"}
	ActionSprintCreate     = Action{ObjectSprint, "create"}
	ActionSprintTransition = Action{ObjectSprint, "transition"}
	ActionSprintRead       = Action{ObjectSprint, "read"}
	ActionIssueCreate      = Action{ObjectIssue, "create"}
	ActionIssueRead        = Action{ObjectIssue, "read"}
	ActionIssueUpdate      = Action{ObjectIssue, "update"}
	ActionIssueReorder     = Action{ObjectIssue, "reorder"}
	ActionIssueDelete      = Action{ObjectIssue, "delete"}
)

// Resource is the authorization view of the entity acted on. A nil
// *Resource means the entity does not exist.
type Resource struct {
	OrganizationID string
	ReporterID     snowflake.ID
	// ProjectAdminIDs are local user ids with elevated rights on the owning project.
	ProjectAdminIDs []string
}

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonWrongOrganization Reason = "wrong_organization"
	ReasonInsufficientRole  Reason = "insufficient_role"
	ReasonNotFound          Reason = "not_found"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

var (
	ErrUnauthenticated  = apperr.Unauthenticated("unauthenticated", "authentication required")
	ErrInsufficientRole = apperr.Unauthorized("insufficient_role", "you are not allowed to perform this action")
	// Out-of-tenant resources are reported exactly like missing ones.
	ErrNotFound = apperr.NotFound("resource_not_found", "not found")
)

// Err converts a denial into the error taxonomy.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return ErrUnauthenticated
	case ReasonInsufficientRole:
		return ErrInsufficientRole
	default:
		return ErrNotFound
	}
}

func allow() Decision              { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

type Params struct {
	fx.In

	Log       *zap.Logger
	Enforcer  *casbin.SyncedEnforcer
	Directory authprovider.Directory `optional:"true"`
	Metrics   *metrics.Metrics       `optional:"true"`
}

type Gate struct {
	log       *zap.Logger
	enforcer  *casbin.SyncedEnforcer
	directory authprovider.Directory
	metrics   *metrics.Metrics
}

func NewGate(p Params) *Gate {
	return &Gate{
		log:       p.Log.Named("authorization.gate"),
		enforcer:  p.Enforcer,
		directory: p.Directory,
		metrics:   p.Metrics,
	}
}

// CanPerform decides whether actor may apply action to res. Tenant scope is
// checked before role so that a foreign resource never reveals more than a
// missing one.
func (g *Gate) CanPerform(actor orgcontext.Actor, action Action, res *Resource) Decision {
	if !actor.Authenticated() {
		return deny(ReasonUnauthenticated)
	}
	if !actor.HasOrg() {
		return deny(ReasonWrongOrganization)
	}

	if res != nil || requiresResource(action) {
		if res == nil {
			return deny(ReasonNotFound)
		}
		if res.OrganizationID != actor.OrgID {
			return deny(ReasonWrongOrganization)
		}
	}

	if action == ActionIssueDelete {
		return g.canDeleteIssue(actor, res)
	}

	if !g.hasCapability(actor, action.Object, action.Verb) {
		return deny(ReasonInsufficientRole)
	}
	return allow()
}

// Authorize is CanPerform plus logging and metrics, returning the denial as an error.
func (g *Gate) Authorize(ctx context.Context, actor orgcontext.Actor, action Action, res *Resource) error {
	decision := g.CanPerform(actor, action, res)
	if decision.Allowed {
		return nil
	}
	g.metrics.RecordAuthzDenial(ctx, action.String(), string(decision.Reason))
	g.log.Debug("authorization denied",
		zap.String("action", action.String()),
		zap.String("reason", string(decision.Reason)),
		zap.String("actor", actor.ExternalUserID),
		zap.String("org_id", actor.OrgID),
	)
	return decision.Err()
}

func (g *Gate) canDeleteIssue(actor orgcontext.Actor, res *Resource) Decision {
	if actor.UserID != 0 && actor.UserID == res.ReporterID && g.hasCapability(actor, ObjectIssue, "delete_own") {
		return allow()
	}
	if actor.UserID != 0 && slices.Contains(res.ProjectAdminIDs, actor.UserID.String()) {
		return allow()
	}
	if g.hasCapability(actor, ObjectIssue, "delete_any") {
		return allow()
	}
	return deny(ReasonInsufficientRole)
}

func (g *Gate) hasCapability(actor orgcontext.Actor, object, verb string) bool {
	if g.enforcer == nil {
		return false
	}
	ok, err := g.enforcer.Enforce(roleSubject(actor), object, verb)
	if err != nil {
		g.log.Error("policy evaluation failed", zap.Error(err))
		return false
	}
	return ok
}

func requiresResource(action Action) bool {
	return action != ActionProjectCreate && action != ActionIssueCreate
}

// roleSubject maps the org role to a policy subject. Unknown roles get member rights.
func roleSubject(actor orgcontext.Actor) string {
	if actor.IsAdmin() {
		return roleAdmin
	}
	return roleMember
}
