// Package api serves ratings over HTTP for the web dashboard.
package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"cs2-elo/model"
	"cs2-elo/rating"
	"cs2-elo/service"
	"cs2-elo/store"
)

const shutdownTimeout = 15 * time.Second

type Options struct {
	// Match submissions allowed per second; 0 disables the limit
	SubmitRate  float64
	SubmitBurst int
}

type Server struct {
	rater  *service.Rater
	router *gin.Engine
	logger zerolog.Logger
}

func New(rater *service.Rater, opts Options) *Server {
	s := &Server{
		rater:  rater,
		router: gin.New(),
		logger: log.With().Str("service", "api").Logger(),
	}

	s.router.Use(requestLogger(s.logger), gin.Recovery())

	s.router.GET("/healthz", s.health)

	api := s.router.Group("/api")
	api.GET("/leaderboard", s.leaderboard)
	api.GET("/players/:id", s.player)
	api.GET("/rank", s.rank)

	submit := []gin.HandlerFunc{s.submitMatch}
	if opts.SubmitRate > 0 {
		burst := max(opts.SubmitBurst, 1)
		limiter := rate.NewLimiter(rate.Limit(opts.SubmitRate), burst)
		submit = append([]gin.HandlerFunc{throttle(limiter)}, submit...)
	}
	api.POST("/matches", submit...)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "forced shutdown")
	}
	return nil
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("request")
	}
}

func throttle(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"kind":  "rate_limited",
				"error": "too many match submissions",
			})
			return
		}
		c.Next()
	}
}

func badRequest(c *gin.Context, kind string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"kind": kind, "error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) leaderboard(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		badRequest(c, "bad_request", errors.Wrap(err, "page"))
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(service.DefaultPageSize)))
	if err != nil {
		badRequest(c, "bad_request", errors.Wrap(err, "size"))
		return
	}

	entries, err := s.rater.Leaderboard(c.Request.Context(), page, size)
	if err != nil {
		s.internal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":    max(page, 1),
		"players": entries,
	})
}

func (s *Server) player(c *gin.Context) {
	card, err := s.rater.PlayerCard(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"kind": "not_found", "error": err.Error()})
		return
	}
	if err != nil {
		s.internal(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

func (s *Server) rank(c *gin.Context) {
	value, err := strconv.ParseFloat(c.Query("rating"), 64)
	if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
		err = errors.New("rating must be finite")
	}
	if err != nil {
		badRequest(c, "bad_request", errors.Wrap(err, "rating"))
		return
	}

	c.JSON(http.StatusOK, rating.RankFor(value))
}

func (s *Server) submitMatch(c *gin.Context) {
	var match model.MatchResult
	if err := c.ShouldBindJSON(&match); err != nil {
		badRequest(c, "bad_request", err)
		return
	}

	res, err := s.rater.RateMatch(c.Request.Context(), &match)

	var invalidMatch *rating.InvalidMatchError
	var invalidStat *rating.InvalidStatError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.As(err, &invalidMatch):
		badRequest(c, "invalid_match", err)
	case errors.As(err, &invalidStat):
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":      "invalid_stat",
			"error":     err.Error(),
			"player_id": invalidStat.PlayerID,
			"field":     invalidStat.Field,
		})
	case errors.Is(err, store.ErrDuplicateMatch):
		c.JSON(http.StatusConflict, gin.H{"kind": "duplicate_match", "error": err.Error()})
	case errors.Is(err, store.ErrStaleRating):
		c.JSON(http.StatusConflict, gin.H{"kind": "stale_rating", "error": err.Error()})
	default:
		s.internal(c, err)
	}
}

func (s *Server) internal(c *gin.Context, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"kind": "internal", "error": "internal error"})
}
