// Package server publishes the configured item sources over the same
// GET /items protocol the api source consumes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/source/api"
	"github.com/cwarden/timegrid/internal/window"
)

// MaxRangeDays bounds a single /items request.
const MaxRangeDays = 400

type Options struct {
	// Secret enables HS256 bearer token checks when set.
	Secret string
	// Rate and Burst bound requests per client address; zero Rate
	// disables limiting.
	Rate   float64
	Burst  int
	Logger *zap.Logger
}

type Server struct {
	src    window.Source
	engine *gin.Engine
	log    *zap.Logger
}

type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func New(src window.Source, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		src: src,
		log: logging.OrNop(opts.Logger).Named("server"),
	}

	router := gin.New()
	router.Use(s.recovery(), s.requestLog())
	if opts.Rate > 0 {
		router.Use(newRateLimiter(opts.Rate, opts.Burst, s.log).middleware())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	items := router.Group("/")
	if opts.Secret != "" {
		items.Use(bearerAuth([]byte(opts.Secret)))
	}
	items.GET("/items", s.items)

	s.engine = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) items(c *gin.Context) {
	start, err := dates.ParseDay(c.Query("start"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "invalid start", err.Error())
		return
	}
	end, err := dates.ParseDay(c.Query("end"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "invalid end", err.Error())
		return
	}
	if end.Before(start) {
		s.fail(c, http.StatusBadRequest, "end before start", "")
		return
	}
	if end.Sub(start)+1 > MaxRangeDays {
		s.fail(c, http.StatusBadRequest, "range too long", "")
		return
	}

	batch, err := s.src.Fetch(c.Request.Context(), start, end)
	if err != nil {
		s.fail(c, http.StatusBadGateway, "fetch items", err.Error())
		return
	}
	resp, err := api.EncodeBatch(batch, start, end)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "encode items", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) fail(c *gin.Context, status int, message, details string) {
	s.log.Warn(message, zap.Int("status", status), zap.String("details", details))
	c.AbortWithStatusJSON(status, errorResponse{Message: message, Details: details})
}
