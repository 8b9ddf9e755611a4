package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"crewdesk/internal/service"
)

// Services bundles the handlers' dependencies.
type Services struct {
	Members   *service.MemberService
	Schedules *service.ScheduleService
	Tasks     *service.TaskService
	Rewards   *service.RewardService
	Engine    *service.Engine
}

// Options configures middleware.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
}

// Server provides HTTP handlers for the crew dashboard and integrations.
type Server struct {
	engine *gin.Engine
	svc    Services
	auth   *Auth
	log    *zap.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc Services, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(log.Named("http")))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	srv := &Server{
		engine: router,
		svc:    svc,
		auth:   NewAuth(opts.JWTSecret),
		log:    log.Named("server"),
	}

	if !srv.auth.Enabled() {
		srv.log.Warn("jwt_secret is empty: HTTP authentication is disabled and every caller acts as admin")
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	authed := api.Group("", s.auth.Authenticate())
	admin := authed.Group("", requireAdmin())
	{
		admin.GET("/members", s.handleListMembers)
		admin.POST("/members", s.handleCreateMember)
		authed.GET("/members/:id/rewards", s.handleMemberRewards)

		admin.GET("/schedules", s.handleListSchedules)
		admin.POST("/schedules", s.handleCreateSchedule)
		admin.PUT("/schedules/:id", s.handleUpdateSchedule)
		admin.DELETE("/schedules/:id", s.handleDeleteSchedule)

		authed.GET("/tasks", s.handleListTasks)
		admin.POST("/tasks", s.handleCreateTask)
		admin.DELETE("/tasks/:id", s.handleDeleteTask)
		authed.POST("/tasks/:id/proof", s.handleSubmitProof)
		admin.POST("/tasks/:id/approve", s.handleApprove)
		admin.POST("/tasks/:id/reject", s.handleReject)
		admin.POST("/tasks/:id/extend", s.handleExtend)
		admin.POST("/tasks/:id/eliminate", s.handleEliminate)

		admin.POST("/generate", s.handleGenerate)
		admin.POST("/pipeline/run", s.handleRunPipeline)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to uint with error handling.
func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return uint(id), true
}

// respondSuccess writes the payload, or only the status when there is none.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("id", c.GetString("requestID")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestIDHeader)
	cfg.ExposeHeaders = []string{requestIDHeader}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
