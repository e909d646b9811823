// Package api exposes the operational HTTP surface: manual cycle
// trigger, recent activity, and a health check.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/aka-Rakesh/Xbot/internal/bot"
	"github.com/aka-Rakesh/Xbot/internal/store"
	"github.com/aka-Rakesh/Xbot/pkg/models"
)

// Server wraps the echo instance and its dependencies.
type Server struct {
	echo  *echo.Echo
	bot   *bot.Bot
	store store.Store
}

// NewServer builds the HTTP server and registers routes.
func NewServer(b *bot.Bot, st store.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, bot: b, store: st}

	e.POST("/api/trigger", s.handleTrigger)
	e.GET("/api/activity", s.handleActivity)
	e.GET("/healthz", s.handleHealth)

	return s
}

// Start serves on the given listen address until Shutdown.
func (s *Server) Start(listen string) error {
	log.Info().Str("listen", listen).Msg("api server starting")
	err := s.echo.Start(listen)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type triggerResponse struct {
	Status string `json:"status"`
}

// handleTrigger starts a cycle immediately. A cycle already in flight
// is reported as a conflict, not queued behind it.
func (s *Server) handleTrigger(c echo.Context) error {
	if err := s.bot.StartCycleAsync(context.Background()); err != nil {
		if errors.Is(err, bot.ErrCycleRunning) {
			return c.JSON(http.StatusConflict, triggerResponse{Status: "cycle already running"})
		}
		return c.JSON(http.StatusInternalServerError, triggerResponse{Status: err.Error()})
	}

	return c.JSON(http.StatusAccepted, triggerResponse{Status: "cycle triggered"})
}

type activityResponse struct {
	Threads24h  int                 `json:"threads_24h"`
	PostedToday int                 `json:"posted_today"`
	Posts       []models.PostRecord `json:"posts"`
}

func (s *Server) handleActivity(c echo.Context) error {
	ctx := c.Request().Context()

	posts := s.store.RecentPosts(ctx, 24*time.Hour, "")
	return c.JSON(http.StatusOK, activityResponse{
		Threads24h:  len(posts),
		PostedToday: s.store.CountPostsToday(ctx),
		Posts:       posts,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "store unreachable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
