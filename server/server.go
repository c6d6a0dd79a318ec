// Package server implements the development backend the opsdesk client
// targets in local mode: login and token issuance, user administration,
// ticket management, and the health endpoint the gateway probes.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/store"
)

// Server wires the HTTP surface to storage.
type Server struct {
	cfg         *AppConfig
	logger      *slog.Logger
	users       *store.UserStore
	tickets     *store.TicketStore
	revocations store.RevocationStore
}

// NewServer constructs a Server over an open database connection.
func NewServer(cfg *AppConfig, db *gorm.DB, revocations store.RevocationStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if revocations == nil {
		revocations = store.NewMemoryRevocationStore()
	}
	return &Server{
		cfg:         cfg,
		logger:      logger,
		users:       store.NewUserStore(db),
		tickets:     store.NewTicketStore(db),
		revocations: revocations,
	}
}

// Engine builds the gin engine with all routes registered.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.HandleHealth)
	r.POST("/auth/login", s.HandleLogin)

	authed := r.Group("/", s.TokenMiddleware())
	{
		authed.POST("/auth/logout", s.HandleLogout)

		authed.GET("/users", s.RequireCapability(capManageUsers), s.HandleListUsers)
		authed.POST("/users", s.RequireCapability(capManageUsers), s.HandleCreateUser)
		authed.GET("/users/:id", s.HandleGetUser)
		authed.PUT("/users/:id", s.HandleUpdateUser)
		authed.DELETE("/users/:id", s.HandleDeleteUser)
		authed.PUT("/users/:id/password", s.HandleChangePassword)
		authed.GET("/users/:id/settings", s.HandleGetSettings)
		authed.PUT("/users/:id/settings", s.HandlePutSettings)

		authed.GET("/tickets", s.HandleListTickets)
		authed.POST("/tickets", s.HandleCreateTicket)
		authed.GET("/tickets/:id", s.HandleGetTicket)
		authed.PUT("/tickets/:id", s.HandleUpdateTicket)
		authed.POST("/tickets/:id/assign", s.RequireRole(models.RoleModerator), s.HandleAssignTicket)

		authed.GET("/reports/summary", s.RequireCapability(capAccessReports), s.HandleReportSummary)
	}
	return r
}

// HandleHealth answers the liveness probe. Any 200 counts as live for the
// client, so the body is informational only.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("opsdeskd listening", slog.String("addr", s.cfg.Server.Addr))
	return s.Engine().Run(s.cfg.Server.Addr)
}
