package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/models"
	"volunteerhub/internal/store"
)

// CreateEvent handles event submission by an NGO. New events wait for review.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input", err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// GetEvent returns a single event the caller may see
func (h *Handler) GetEvent(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ListEvents lists events visible to the caller. Supports status, creator_id
// and starts_after (RFC 3339) query parameters.
func (h *Handler) ListEvents(c *gin.Context) {
	filter, ok := eventFilter(c)
	if !ok {
		return
	}
	h.listEvents(c, actor(c), filter)
}

// ListPublicEvents lists approved events without authentication
func (h *Handler) ListPublicEvents(c *gin.Context) {
	filter, ok := eventFilter(c)
	if !ok {
		return
	}
	filter.Status = models.StatusApproved
	h.listEvents(c, models.Actor{}, filter)
}

func (h *Handler) listEvents(c *gin.Context, a models.Actor, filter store.EventFilter) {
	events, err := h.events.List(c.Request.Context(), a, filter)
	if err != nil {
		handleError(c, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func eventFilter(c *gin.Context) (store.EventFilter, bool) {
	filter := store.EventFilter{
		Status:    models.EventStatus(c.Query("status")),
		CreatorID: c.Query("creator_id"),
	}
	if after := c.Query("starts_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			badRequest(c, "starts_after must be an RFC 3339 timestamp", err)
			return filter, false
		}
		filter.StartsAfter = t
	}
	return filter, true
}

// DeleteEvent removes an event together with its registrations
func (h *Handler) DeleteEvent(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RenewEvent moves an approved event to new dates. An empty body shifts it
// forward by its own span.
func (h *Handler) RenewEvent(c *gin.Context) {
	var req models.RenewEventRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid input", err)
		return
	}

	event, err := h.events.Renew(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

type transitionFunc func(ctx context.Context, a models.Actor, id string) (*models.Event, error)

func (h *Handler) transition(c *gin.Context, fn transitionFunc) {
	event, err := fn(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handler) ApproveEvent(c *gin.Context)    { h.transition(c, h.events.Approve) }
func (h *Handler) RejectEvent(c *gin.Context)     { h.transition(c, h.events.Reject) }
func (h *Handler) DisapproveEvent(c *gin.Context) { h.transition(c, h.events.Disapprove) }
func (h *Handler) UnrejectEvent(c *gin.Context)   { h.transition(c, h.events.Unreject) }
