// Package api wires together all HTTP routes for the Prism server.
//
// Route grouping philosophy:
//   - /auth routes are public (or carry their own state) and rate limited
//     more aggressively than the rest of the API.
//   - /api routes always require an authenticated caller. Project-scoped
//     routes additionally carry a RequireAction middleware naming the exact
//     permission the route consumes; routes whose authorization depends on
//     business state (role changes, member removal) defer to the service
//     layer so the guard ordering stays in one place.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/prism-hq/prism-server/internal/api/handlers"
	"github.com/prism-hq/prism-server/internal/auth"
	"github.com/prism-hq/prism-server/internal/auth/oidc"
	"github.com/prism-hq/prism-server/internal/config"
	"github.com/prism-hq/prism-server/internal/crypto"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/invitations"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/projects"
	"github.com/prism-hq/prism-server/internal/rbac"
	"github.com/prism-hq/prism-server/internal/session"
	"github.com/prism-hq/prism-server/internal/simulation"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible
// for calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the
// HTTP server has been shut down so that in-flight requests are drained
// first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, conn *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Session cipher. Without a configured secret (development only; Validate
	// rejects it in production) an ephemeral key is generated, so sessions do
	// not survive a restart.
	var cipher *crypto.SessionCipher
	var err error
	if cfg.Session.Secret != "" {
		cipher, err = crypto.DeriveSessionCipher(cfg.Session.Secret, []byte(cfg.Session.Salt), 0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive session cipher: %w", err)
		}
	} else {
		key, keyErr := crypto.GenerateKey()
		if keyErr != nil {
			return nil, nil, fmt.Errorf("failed to generate session key: %w", keyErr)
		}
		cipher, err = crypto.NewSessionCipher(key)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize session cipher: %w", err)
		}
		slog.Warn("no session secret configured, using ephemeral key; sessions will not survive restarts")
	}

	store := session.NewStore(cipher, cfg.Session.CookieName, cfg.Session.MaxAge, cfg.IsProduction())

	// OIDC provider for the browser login flow.
	var provider *oidc.Provider
	if cfg.Auth.OIDC.Enabled {
		provider, err = oidc.NewProvider(context.Background(), &cfg.Auth.OIDC)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize OIDC provider: %w", err)
		}
		slog.Info("OIDC provider initialized", "issuer", cfg.Auth.OIDC.IssuerURL)
	}

	// JWT issuer for non-browser clients.
	var issuer *auth.TokenIssuer
	if cfg.Auth.JWT.Secret != "" {
		issuer, err = auth.NewTokenIssuer(cfg.Auth.JWT.Secret, cfg.Auth.JWT.ExpiresIn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize token issuer: %w", err)
		}
	}

	// Repositories. The repositories predating sqlx take *sql.DB directly;
	// the rest share one sqlx wrapper over the same pool.
	userRepo := repositories.NewUserRepository(conn)
	projectRepo := repositories.NewProjectRepository(conn)
	auditRepo := repositories.NewAuditRepository(conn)

	sqlxDB := sqlx.NewDb(conn, "postgres")
	dashboardRepo := repositories.NewDashboardRepository(sqlxDB)
	reportRepo := repositories.NewReportRepository(sqlxDB)
	segmentRepo := repositories.NewSegmentRepository(sqlxDB)
	customerRepo := repositories.NewCustomerRepository(sqlxDB)
	invitationRepo := repositories.NewInvitationRepository(sqlxDB)

	// Services.
	projectSvc := projects.NewService(projectRepo)
	authz := rbac.NewAuthorizer(projectSvc)
	simulationSvc := simulation.NewService(userRepo, projectRepo, auditRepo, cfg.SuperAdmin.AllowedEmails)
	invitationSvc := invitations.NewService(invitationRepo, projectRepo, userRepo)

	// Handlers.
	authHandlers := handlers.NewAuthHandlers(cfg, store, provider, issuer, userRepo, projectRepo)
	projectHandlers := handlers.NewProjectHandlers(projectSvc, projectRepo, store)
	memberHandlers := handlers.NewMemberHandlers(projectSvc, auditRepo)
	invitationHandlers := handlers.NewInvitationHandlers(invitationSvc, store)
	contentHandlers := handlers.NewContentHandlers(dashboardRepo, reportRepo, segmentRepo)
	customerHandlers := handlers.NewCustomerHandlers(customerRepo)
	simulationHandlers := handlers.NewSimulationHandlers(simulationSvc, store)

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.SessionMiddleware(store))

	if cfg.Security.RateLimiting.Enabled {
		generalLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
			CleanupInterval:   5 * time.Minute,
		})
		bg.rateLimiters = append(bg.rateLimiters, generalLimiter)
		router.Use(middleware.RateLimitMiddleware(generalLimiter))
	}

	router.GET("/health", healthCheckHandler(conn))
	router.GET("/version", versionHandler())

	// Auth endpoints. Stricter rate limits than the rest of the API since
	// these are the brute-force surface.
	authGroup := router.Group("/auth")
	if cfg.Security.RateLimiting.Enabled {
		authLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
		bg.rateLimiters = append(bg.rateLimiters, authLimiter)
		authGroup.Use(middleware.RateLimitMiddleware(authLimiter))
	}
	{
		authGroup.GET("/login", authHandlers.LoginHandler())
		authGroup.GET("/callback", authHandlers.CallbackHandler())
		authGroup.POST("/logout", authHandlers.LogoutHandler())
		authGroup.POST("/token", middleware.AuthMiddleware(issuer, userRepo), authHandlers.TokenHandler())

		if !cfg.IsProduction() {
			authGroup.POST("/dev-login", authHandlers.DevLoginHandler())
		}
	}

	// Authenticated API.
	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.AuthMiddleware(issuer, userRepo))
	{
		apiGroup.GET("/me", authHandlers.MeHandler())

		apiGroup.POST("/projects", projectHandlers.CreateHandler())
		apiGroup.GET("/projects", projectHandlers.ListHandler())

		// Invitation acceptance is outside the project subtree: the caller
		// is not a member yet.
		apiGroup.POST("/invitations/:id/accept", invitationHandlers.AcceptHandler())

		apiGroup.POST("/super-admin/simulation", simulationHandlers.StartHandler())
		apiGroup.DELETE("/super-admin/simulation", simulationHandlers.ExitHandler())

		proj := apiGroup.Group("/projects/:projectID")
		{
			proj.GET("", middleware.RequireAction(authz, rbac.ActionProjectRead), projectHandlers.GetHandler())
			proj.PATCH("", middleware.RequireAction(authz, rbac.ActionProjectUpdate), projectHandlers.UpdateHandler())
			proj.DELETE("", middleware.RequireAction(authz, rbac.ActionProjectDelete), projectHandlers.DeleteHandler())

			// Switching only requires membership, which the service checks.
			proj.POST("/switch", projectHandlers.SwitchHandler())

			proj.GET("/members", middleware.RequireAction(authz, rbac.ActionMembersRead), memberHandlers.ListHandler())
			// Role changes and removals are guarded in the service so the
			// not-found / authorization / invariant ordering holds.
			proj.PATCH("/members/:membershipID", memberHandlers.UpdateRoleHandler())
			proj.DELETE("/members/:membershipID", memberHandlers.RemoveHandler())

			proj.GET("/audit", memberHandlers.AuditListHandler())

			proj.POST("/invitations", middleware.RequireAction(authz, rbac.ActionMembersInvite), invitationHandlers.InviteHandler())
			proj.GET("/invitations", middleware.RequireAction(authz, rbac.ActionMembersRead), invitationHandlers.ListPendingHandler())

			proj.POST("/dashboards", middleware.RequireAction(authz, rbac.ActionDashboardCreate), contentHandlers.CreateDashboardHandler())
			proj.GET("/dashboards", middleware.RequireAction(authz, rbac.ActionDashboardRead), contentHandlers.ListDashboardsHandler())
			proj.GET("/dashboards/:id", middleware.RequireAction(authz, rbac.ActionDashboardRead), contentHandlers.GetDashboardHandler())
			proj.PATCH("/dashboards/:id", middleware.RequireAction(authz, rbac.ActionDashboardUpdate), contentHandlers.UpdateDashboardHandler())
			proj.DELETE("/dashboards/:id", middleware.RequireAction(authz, rbac.ActionDashboardDelete), contentHandlers.DeleteDashboardHandler())

			proj.POST("/reports", middleware.RequireAction(authz, rbac.ActionReportCreate), contentHandlers.CreateReportHandler())
			proj.GET("/reports", middleware.RequireAction(authz, rbac.ActionReportRead), contentHandlers.ListReportsHandler())
			proj.GET("/reports/:id", middleware.RequireAction(authz, rbac.ActionReportRead), contentHandlers.GetReportHandler())
			proj.PATCH("/reports/:id", middleware.RequireAction(authz, rbac.ActionReportUpdate), contentHandlers.UpdateReportHandler())
			proj.DELETE("/reports/:id", middleware.RequireAction(authz, rbac.ActionReportDelete), contentHandlers.DeleteReportHandler())

			// Segments share the report permission tags: they exist to feed
			// report definitions and sit at the same sensitivity level.
			proj.POST("/segments", middleware.RequireAction(authz, rbac.ActionReportCreate), contentHandlers.CreateSegmentHandler())
			proj.GET("/segments", middleware.RequireAction(authz, rbac.ActionReportRead), contentHandlers.ListSegmentsHandler())
			proj.GET("/segments/:id", middleware.RequireAction(authz, rbac.ActionReportRead), contentHandlers.GetSegmentHandler())
			proj.PATCH("/segments/:id", middleware.RequireAction(authz, rbac.ActionReportUpdate), contentHandlers.UpdateSegmentHandler())
			proj.DELETE("/segments/:id", middleware.RequireAction(authz, rbac.ActionReportDelete), contentHandlers.DeleteSegmentHandler())

			proj.GET("/profiles", middleware.RequireAction(authz, rbac.ActionProfileRead), customerHandlers.ListProfilesHandler())
			proj.GET("/profiles/:id", middleware.RequireAction(authz, rbac.ActionProfileRead), customerHandlers.GetProfileHandler())
			proj.GET("/events", middleware.RequireAction(authz, rbac.ActionEventRead), customerHandlers.ListEventsHandler())
		}
	}

	return router, bg, nil
}

func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging. Output format (JSON
// or text) follows the global slog handler installed by telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
