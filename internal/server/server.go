package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/aseli4488/cyoa-stats/internal/config"
	"github.com/aseli4488/cyoa-stats/internal/handler"
	"github.com/aseli4488/cyoa-stats/internal/hashing"
	"github.com/aseli4488/cyoa-stats/internal/ingest"
	"github.com/aseli4488/cyoa-stats/internal/mailer"
	"github.com/aseli4488/cyoa-stats/internal/report"
	"github.com/aseli4488/cyoa-stats/internal/repository"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
}

// New builds the Echo server and registers routes.
// Caller must provide a non-nil pool.
func New(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*Server, error) {
	hasher, err := hashing.New(cfg.Security.Pepper)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())

	// Beacons come from arbitrary widget origins: echo the request Origin back
	// and allow credentials. The middleware answers OPTIONS preflights.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc:  func(origin string) (bool, error) { return true, nil },
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	logRepo := repository.NewLogRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	pipeline := ingest.NewPipeline(hasher, logRepo)
	reporter := report.New(logRepo, projectRepo)

	var blocked []string
	if cfg.Mail != nil {
		blocked = cfg.Mail.BlockedDomains
	}
	mail := mailer.New(cfg.Mail, logger, blocked)

	logH := &handler.LogHandler{
		Pipeline:       pipeline,
		Logs:           logRepo,
		Projects:       projectRepo,
		Hasher:         hasher,
		MaxBeaconBytes: cfg.Security.MaxBeaconBytes,
		MaxCSPBytes:    cfg.Security.MaxCSPBytes,
	}
	regH := &handler.RegistrationHandler{
		Projects: projectRepo,
		Hasher:   hasher,
		Mailer:   mail,
	}
	countH := &handler.CountHandler{Stats: reporter}
	adminH := &handler.AdminHandler{Logs: logRepo, Projects: projectRepo}

	e.POST("/api/log", logH.Submit)
	e.GET("/api/log", logH.List)
	e.GET("/api/log-csp", logH.SubmitCSP)

	e.GET("/api/count", countH.TotalTime)
	e.GET("/api/count/visitors", countH.Visitors)
	e.GET("/api/count/projects", countH.Projects)
	e.GET("/api/count/builds", countH.Builds)

	e.GET("/api/registration", regH.Register)

	e.GET("/admin/api/log", adminH.ListLogs)
	e.GET("/admin/api/projects", adminH.ListProjects)

	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	return &Server{Echo: e, Config: cfg}, nil
}

// Start starts the HTTP server. Blocks until the context is cancelled or the
// server fails. On context cancel, Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	addr := ":" + s.Config.Server.Port
	return s.Echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
