// Package api exposes sessions and the business directory over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/repository"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/UnknownOlympus/compass/internal/session"
	"github.com/gin-gonic/gin"
)

// Directory answers the stateless business queries.
type Directory interface {
	Nearby(ctx context.Context, query service.NearbyQuery) ([]models.Business, error)
	Search(ctx context.Context, text string) ([]models.Business, error)
}

// Server holds the handler dependencies.
type Server struct {
	sessions  *session.Manager
	directory Directory
	log       *slog.Logger
}

// NewServer creates a Server.
func NewServer(sessions *session.Manager, directory Directory, log *slog.Logger) *Server {
	return &Server{sessions: sessions, directory: directory, log: log}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(TraceID(), Recovery(s.log), Logger(s.log))

	api := r.Group("/api")

	sessions := api.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("/:id", s.getSession)
	sessions.DELETE("/:id", s.deleteSession)
	sessions.POST("/:id/resolve", s.resolve)
	sessions.POST("/:id/position", s.reportPosition)
	sessions.GET("/:id/map", s.getMap)
	sessions.PUT("/:id/filter", s.setFilter)
	sessions.GET("/:id/search", s.searchSession)
	sessions.GET("/:id/favorites", s.listFavorites)
	sessions.POST("/:id/favorites/:business_id", s.addFavorite)
	sessions.DELETE("/:id/favorites/:business_id", s.removeFavorite)

	businesses := api.Group("/businesses")
	businesses.POST("/nearby", s.nearby)
	businesses.GET("/search", s.search)

	return r
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	return sess, true
}

// fail writes err as {"error": ...} with a status derived from its kind.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, repository.ErrBusinessNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidCoordinates), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "Request failed",
			"path", c.Request.URL.Path,
			"trace_id", TraceIDFrom(c.Request.Context()),
			"error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
