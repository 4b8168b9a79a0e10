package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sprintboard/internal/orgcontext"
)

func (s *Server) Me(c *gin.Context) {
	actor, _ := orgcontext.ActorFromContext(c.Request.Context())
	user, err := s.users.Get(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user":     user,
		"org_id":   actor.OrgID,
		"org_role": actor.OrgRole,
	}})
}

func (s *Server) GetOrganization(c *gin.Context) {
	org, err := s.organizationSvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) ListOrganizationUsers(c *gin.Context) {
	users, err := s.organizationSvc.ListUsers(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}
