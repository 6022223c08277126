package httpcontroller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tagwise/tagwise/internal/annotation"
	"github.com/tagwise/tagwise/internal/corpus"
	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// QueueResponse describes a user's queue.
type QueueResponse struct {
	User      string   `json:"user"`
	Ordering  []string `json:"ordering"`
	Next      string   `json:"next,omitempty"`
	Annotated int      `json:"annotated"`
	Total     int      `json:"total"`
}

// InstanceResponse is one corpus record and its last selection tag.
type InstanceResponse struct {
	ID            string        `json:"id"`
	Record        corpus.Record `json:"record"`
	SelectionType string        `json:"selection_type,omitempty"`
}

// SelectionResponse reports why an instance was placed where it is.
type SelectionResponse struct {
	ID            string `json:"id"`
	SelectionType string `json:"selection_type"`
}

// GetHealth reports liveness.
func (s *Server) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetQueue returns the user's queue, creating it on first access.
func (s *Server) GetQueue(c echo.Context) error {
	user := c.Param("user")
	st := s.Store.User(user)
	ordering := st.Ordering()
	next, _ := st.NextUnannotated()

	return c.JSON(http.StatusOK, QueueResponse{
		User:      user,
		Ordering:  ordering,
		Next:      next,
		Annotated: st.AnnotatedCount(),
		Total:     len(ordering),
	})
}

// SubmitAnnotation stores the user's annotation of an instance.
func (s *Server) SubmitAnnotation(c echo.Context) error {
	user := c.Param("user")
	id := c.Param("instance")
	if !s.Corpus.Has(id) {
		return notFound("instance %q not found", id)
	}

	var a annotation.Annotation
	if err := (&echo.DefaultBinder{}).BindBody(c, &a); err != nil {
		return badRequest("invalid annotation body: %v", err)
	}

	if err := s.Store.Submit(c.Request().Context(), user, id, a); err != nil {
		return err
	}

	s.log.Debug("annotation submitted",
		logger.String("user", user),
		logger.String("instance_id", id),
		logger.Strings("schemas", a.Schemas()))
	return c.NoContent(http.StatusNoContent)
}

// GetAnnotation returns the user's annotation of an instance.
func (s *Server) GetAnnotation(c echo.Context) error {
	user := c.Param("user")
	id := c.Param("instance")

	st, ok := s.Store.Lookup(user)
	if !ok {
		return notFound("user %q not found", user)
	}
	a, ok := st.Label(id)
	if !ok {
		return notFound("user %q has not annotated %q", user, id)
	}
	return c.JSON(http.StatusOK, a)
}

// GetInstance returns one corpus record.
func (s *Server) GetInstance(c echo.Context) error {
	id := c.Param("instance")
	record, ok := s.Corpus.Get(id)
	if !ok {
		return notFound("instance %q not found", id)
	}

	resp := InstanceResponse{ID: id, Record: record}
	if s.Learner != nil {
		resp.SelectionType, _ = s.Learner.SelectionType(id)
	}
	return c.JSON(http.StatusOK, resp)
}

// TriggerPass runs an active-learning pass now. Concurrent triggers are
// rejected with 409 and bursts beyond the configured rate with 429.
func (s *Server) TriggerPass(c echo.Context) error {
	if s.Learner == nil {
		return notFound("active learning is not available")
	}
	if !s.triggerLimiter.Allow() {
		return errors.Newf("too many active learning triggers").
			Component("httpcontroller").
			Category(errors.CategoryLimit).
			Build()
	}

	res, err := s.Learner.Trigger(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GetStatus returns the runner status.
func (s *Server) GetStatus(c echo.Context) error {
	if s.Learner == nil {
		return notFound("active learning is not available")
	}
	return c.JSON(http.StatusOK, s.Learner.Status())
}

// GetSelection returns the selection tag the last pass gave an instance.
func (s *Server) GetSelection(c echo.Context) error {
	id := c.Param("instance")
	if s.Learner == nil {
		return notFound("active learning is not available")
	}
	tag, ok := s.Learner.SelectionType(id)
	if !ok {
		return notFound("no selection recorded for %q", id)
	}
	return c.JSON(http.StatusOK, SelectionResponse{ID: id, SelectionType: tag})
}
