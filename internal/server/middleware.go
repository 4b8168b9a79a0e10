package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	obscontext "github.com/smallbiznis/sprintboard/internal/observability/context"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
)

const contextUserIDKey = "user_id"

// Authenticate verifies the session token, mirrors the caller into the local
// user table and puts the actor on the request context. Anonymous requests
// pass through without an actor.
func (s *Server) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok, err := s.verifier.Authenticate(c.Request)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		user, err := s.users.Resolve(ctx, session.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		actor := orgcontext.Actor{
			UserID:         user.ID,
			ExternalUserID: session.UserID,
			OrgID:          session.OrgID,
			OrgRole:        session.OrgRole,
		}
		ctx = orgcontext.WithActor(ctx, actor)
		ctx = obscontext.WithActorID(ctx, user.ID.String())
		if actor.HasOrg() {
			ctx = obscontext.WithOrgID(ctx, actor.OrgID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, user.ID.String())
		c.Next()
	}
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := orgcontext.ActorFromContext(c.Request.Context()); !ok {
			AbortWithError(c, authorization.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}
