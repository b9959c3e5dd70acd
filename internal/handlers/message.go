package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/models"
)

// AddComment appends a comment to an event's thread
func (h *Handler) AddComment(c *gin.Context) {
	var req models.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid comment", err)
		return
	}

	comment, err := h.events.Comment(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// LikeEvent records that the volunteer likes the event
func (h *Handler) LikeEvent(c *gin.Context) {
	if err := h.events.Like(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnlikeEvent withdraws a like
func (h *Handler) UnlikeEvent(c *gin.Context) {
	if err := h.events.Unlike(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
