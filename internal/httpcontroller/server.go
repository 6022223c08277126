// Package httpcontroller serves the annotation and active-learning HTTP API.
package httpcontroller

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/tagwise/tagwise/internal/activelearning"
	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/conf"
	"github.com/tagwise/tagwise/internal/corpus"
	"github.com/tagwise/tagwise/internal/logger"
	"github.com/tagwise/tagwise/internal/observability"
)

// ActiveLearning is the part of the runner exposed over HTTP.
type ActiveLearning interface {
	Trigger(ctx context.Context) (*activelearning.Result, error)
	Status() activelearning.Status
	SelectionType(instanceID string) (string, bool)
}

// Server encapsulates Echo server and related configurations.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	Store    *annotation.Store
	Corpus   *corpus.Corpus
	Learner  ActiveLearning
	Metrics  *observability.Metrics

	triggerLimiter *rate.Limiter
	log            logger.Logger
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the httpcontroller package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("http")
	})
	return serviceLogger
}

// New initializes the HTTP server. metrics may be nil, in which case
// neither request metrics nor /metrics are served.
func New(settings *conf.Settings, store *annotation.Store, c *corpus.Corpus, learner ActiveLearning, metrics *observability.Metrics) *Server {
	triggerRate := rate.Limit(settings.WebServer.TriggerRate)
	if settings.WebServer.TriggerRate <= 0 {
		triggerRate = rate.Inf
	}
	burst := max(settings.WebServer.TriggerBurst, 1)

	s := &Server{
		Echo:           echo.New(),
		Settings:       settings,
		Store:          store,
		Corpus:         c,
		Learner:        learner,
		Metrics:        metrics,
		triggerLimiter: rate.NewLimiter(triggerRate, burst),
		log:            GetLogger(),
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = s.httpErrorHandler

	s.configureMiddleware()
	s.initRoutes()
	return s
}

// Start begins listening and serving HTTP requests. It returns once the
// server stops.
func (s *Server) Start() error {
	addr := ":" + s.Settings.WebServer.Port
	s.log.Info("HTTP server starting", logger.String("address", addr))
	if err := s.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		s.log.Error("HTTP server failed", logger.Error(err))
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Echo.Shutdown(ctx)
}
