package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type resolveRequest struct {
	PreferSilent bool `json:"prefer_silent"`
}

// positionRequest is either a device fix or a failure code reported by the client.
type positionRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp"`
	Error     string     `json:"error"`
}

type filterRequest struct {
	BusinessType string `json:"business_type"`
}

type nearbyRequest struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Radius       float64  `json:"radius"`
	BusinessType *string  `json:"business_type"`
}

// coordinatesOf returns nil when both fields are absent and an error when only one is set.
func coordinatesOf(lat, lon *float64) (*models.Coordinates, error) {
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, badRequest("latitude and longitude must be given together")
	}

	c := models.Coordinates{Latitude: *lat, Longitude: *lon}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Server) createSession(c *gin.Context) {
	sess := s.sessions.Create(c.Request.Context(), c.ClientIP())

	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) resolve(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req resolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, badRequest("invalid body: %v", err))
			return
		}
	}

	epoch := sess.Resolve(c.Request.Context(), req.PreferSilent)

	c.JSON(http.StatusAccepted, gin.H{"epoch": epoch})
}

func (s *Server) reportPosition(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("invalid body: %v", err))
		return
	}

	if req.Error != "" {
		if err := sess.ReportFailure(req.Error); err != nil {
			s.fail(c, badRequest("%v", err))
			return
		}
		c.Status(http.StatusAccepted)
		return
	}

	coords, err := coordinatesOf(req.Latitude, req.Longitude)
	if err != nil {
		s.fail(c, err)
		return
	}
	if coords == nil {
		s.fail(c, badRequest("either coordinates or an error code is required"))
		return
	}

	pos := geolocation.Position{Coordinates: *coords, Accuracy: req.Accuracy}
	if req.Timestamp != nil {
		pos.Timestamp = *req.Timestamp
	}
	if err = sess.ReportPosition(pos); err != nil {
		s.fail(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func (s *Server) getMap(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sess.Map())
}

func (s *Server) setFilter(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("invalid body: %v", err))
		return
	}

	businesses, err := sess.SetFilter(c.Request.Context(), req.BusinessType)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, businesses)
}

func (s *Server) searchSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	result, err := sess.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) nearby(c *gin.Context) {
	var req nearbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("invalid body: %v", err))
		return
	}

	coords, err := coordinatesOf(req.Latitude, req.Longitude)
	if err != nil {
		s.fail(c, err)
		return
	}

	query := service.NearbyQuery{Coordinates: coords, RadiusKm: req.Radius}
	if req.BusinessType != nil {
		query.BusinessType = *req.BusinessType
	}

	businesses, err := s.directory.Nearby(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, businesses)
}

func (s *Server) search(c *gin.Context) {
	businesses, err := s.directory.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, businesses)
}

func (s *Server) listFavorites(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	favorites, err := sess.Favorites(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, favorites)
}

func businessIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("business_id"))
	if err != nil || id <= 0 {
		return 0, badRequest("invalid business id %q", c.Param("business_id"))
	}

	return id, nil
}

func (s *Server) addFavorite(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	id, err := businessIDParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	added, err := sess.AddFavorite(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	message := "Added to favorites"
	if !added {
		message = "Already in favorites"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "added": added})
}

func (s *Server) removeFavorite(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	id, err := businessIDParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	if err = sess.RemoveFavorite(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from favorites"})
}
