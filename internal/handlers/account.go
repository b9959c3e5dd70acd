package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/models"
)

// UpsertAccount creates or updates the caller's profile. The role comes from the token.
func (h *Handler) UpsertAccount(c *gin.Context) {
	var req models.UpsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input", err)
		return
	}

	account, err := h.accounts.Upsert(c.Request.Context(), actor(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// GetMyAccount returns the caller's profile
func (h *Handler) GetMyAccount(c *gin.Context) {
	account, err := h.accounts.Me(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
