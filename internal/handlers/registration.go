package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/models"
	"volunteerhub/internal/services"
)

// Register enrolls the calling volunteer in an approved event
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input", err)
		return
	}

	reg, err := h.regs.Register(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// Unregister withdraws the calling volunteer from an event
func (h *Handler) Unregister(c *gin.Context) {
	if err := h.regs.Unregister(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMyRegistration reports whether the caller is registered for the event
func (h *Handler) GetMyRegistration(c *gin.Context) {
	registered, err := h.regs.IsRegistered(c.Request.Context(), actor(c).ID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": registered})
}

// UpdateMyRegistration toggles reminder opt-in for the caller's registration
func (h *Handler) UpdateMyRegistration(c *gin.Context) {
	var req models.UpdateNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input", err)
		return
	}

	if err := h.regs.SetNotify(c.Request.Context(), actor(c), c.Param("id"), *req.Notify); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notify": *req.Notify})
}

// ListRegistrations lists an event's registrations for its creator or an
// admin. Supports q (name or skill search) and sort_by (name, age, recency).
func (h *Handler) ListRegistrations(c *gin.Context) {
	regs, err := h.regs.ListForEvent(c.Request.Context(), actor(c), c.Param("id"), services.RegistrationFilter{
		Query:  c.Query("q"),
		SortBy: c.Query("sort_by"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	c.JSON(http.StatusOK, regs)
}
