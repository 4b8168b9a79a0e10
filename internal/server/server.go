package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/sprintboard/internal/authorization"
	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/identity"
	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	"github.com/smallbiznis/sprintboard/internal/issue"
	issuedomain "github.com/smallbiznis/sprintboard/internal/issue/domain"
	"github.com/smallbiznis/sprintboard/internal/observability"
	obslogger "github.com/smallbiznis/sprintboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/sprintboard/internal/observability/metrics"
	obstracing "github.com/smallbiznis/sprintboard/internal/observability/tracing"
	"github.com/smallbiznis/sprintboard/internal/ordering"
	"github.com/smallbiznis/sprintboard/internal/organization"
	organizationdomain "github.com/smallbiznis/sprintboard/internal/organization/domain"
	"github.com/smallbiznis/sprintboard/internal/project"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
	"github.com/smallbiznis/sprintboard/internal/sprint"
	sprintdomain "github.com/smallbiznis/sprintboard/internal/sprint/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	authprovider.Module,
	authorization.Module,
	identity.Module,
	organization.Module,
	ordering.Module,
	project.Module,
	sprint.Module,
	issue.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	verifier        *authprovider.Verifier
	users           identitydomain.Service
	organizationSvc organizationdomain.Service
	projectSvc      projectdomain.Service
	sprintSvc       sprintdomain.Service
	issueSvc        issuedomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Verifier        *authprovider.Verifier
	Users           identitydomain.Service
	OrganizationSvc organizationdomain.Service
	ProjectSvc      projectdomain.Service
	SprintSvc       sprintdomain.Service
	IssueSvc        issuedomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		verifier:        p.Verifier,
		users:           p.Users,
		organizationSvc: p.OrganizationSvc,
		projectSvc:      p.ProjectSvc,
		sprintSvc:       p.SprintSvc,
		issueSvc:        p.IssueSvc,
	}
	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.Authenticate(), AuthRequired())

	api.GET("/me", s.Me)

	// -------- Organizations --------
	api.GET("/organizations/:slug", s.GetOrganization)
	api.GET("/orgs/:orgId/users", s.ListOrganizationUsers)
	api.GET("/orgs/:orgId/projects", s.ListProjects)

	// -------- Projects --------
	api.POST("/projects", s.CreateProject)
	api.GET("/projects/:id", s.GetProject)
	api.DELETE("/projects/:id", s.DeleteProject)
	api.POST("/projects/:id/sprints", s.CreateSprint)
	api.POST("/projects/:id/issues", s.CreateIssue)

	// -------- Sprints --------
	api.GET("/sprints/:id", s.GetSprint)
	api.PATCH("/sprints/:id/status", s.SetSprintStatus)
	api.GET("/sprints/:id/issues", s.ListSprintIssues)
	api.POST("/sprints/:id/board/moves", s.MoveIssue)

	// -------- Issues --------
	api.PATCH("/issues/:id", s.UpdateIssue)
	api.DELETE("/issues/:id", s.DeleteIssue)
	api.POST("/issues/reorder", s.ReorderIssues)
	api.GET("/users/:id/issues", s.ListUserIssues)
}
