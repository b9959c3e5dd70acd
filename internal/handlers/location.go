package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/services"
)

// ValidateLocation resolves a Google Place ID to standardized location data
func (h *Handler) ValidateLocation(c *gin.Context) {
	placeID := c.Query("place_id")
	if placeID == "" {
		badRequest(c, "place_id parameter is required", errMissingParam)
		return
	}
	if h.resolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Location lookup is not configured"})
		return
	}

	location, err := h.resolver.Resolve(c.Request.Context(), placeID)
	if err != nil {
		handleError(c, &services.Error{Kind: services.KindValidation, Msg: "Failed to validate location", Err: err})
		return
	}
	c.JSON(http.StatusOK, location)
}
