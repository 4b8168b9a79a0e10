package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	issuedomain "github.com/smallbiznis/sprintboard/internal/issue/domain"
	"github.com/smallbiznis/sprintboard/internal/ordering"
)

type createIssueRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	SprintID    *snowflake.ID `json:"sprint_id"`
	AssigneeID  *snowflake.ID `json:"assignee_id"`
}

type updateIssueRequest struct {
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

type reorderIssuesRequest struct {
	Issues []ordering.Placement `json:"issues"`
}

type moveIssueRequest struct {
	Source      ordering.Location `json:"source"`
	Destination ordering.Location `json:"destination"`
}

func (s *Server) CreateIssue(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issue, err := s.issueSvc.Create(c.Request.Context(), projectID, issuedomain.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		SprintID:    req.SprintID,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": issue})
}

func (s *Server) ListSprintIssues(c *gin.Context) {
	sprintID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var query struct {
		Search   string   `form:"search"`
		Assignee []string `form:"assignee"`
		Priority string   `form:"priority"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	assignees, err := parseIDList(query.Assignee)
	if err != nil {
		AbortWithError(c, newValidationError("assignee", "invalid_assignee", "invalid assignee id"))
		return
	}

	issues, err := s.issueSvc.ListForSprint(c.Request.Context(), sprintID, issuedomain.Filter{
		Search:      query.Search,
		AssigneeIDs: assignees,
		Priority:    query.Priority,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": issues})
}

func (s *Server) UpdateIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issue, err := s.issueSvc.Update(c.Request.Context(), id, issuedomain.UpdateRequest{
		Status:   req.Status,
		Priority: req.Priority,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": issue})
}

func (s *Server) DeleteIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.issueSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderIssues applies a client-computed batch. On failure the client must
// refetch the board before retrying.
func (s *Server) ReorderIssues(c *gin.Context) {
	var req reorderIssuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := s.issueSvc.Reorder(c.Request.Context(), req.Issues); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) MoveIssue(c *gin.Context) {
	sprintID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req moveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	board, err := s.issueSvc.Move(c.Request.Context(), sprintID, issuedomain.MoveRequest{
		Source:      req.Source,
		Destination: req.Destination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": board})
}

func (s *Server) ListUserIssues(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	issues, err := s.issueSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": issues})
}
