package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/log"
	"volunteerhub/internal/models"
	"volunteerhub/internal/services"
)

// Handler serves the HTTP API on top of the services
type Handler struct {
	events   *services.EventService
	regs     *services.RegistrationService
	accounts *services.AccountService
	resolver services.LocationResolver
}

// New creates a Handler. resolver may be nil when no Maps key is configured.
func New(events *services.EventService, regs *services.RegistrationService, accounts *services.AccountService, resolver services.LocationResolver) *Handler {
	return &Handler{events: events, regs: regs, accounts: accounts, resolver: resolver}
}

// Routes mounts every endpoint on r. Everything except health and the public
// event feed requires a bearer token.
func (h *Handler) Routes(r gin.IRouter, verifier auth.Verifier) {
	r.GET("/health", HealthHandler)
	r.GET("/public/events", h.ListPublicEvents)

	api := r.Group("/", auth.RequireAuth(verifier))

	api.POST("/accounts", h.UpsertAccount)
	api.GET("/accounts/me", h.GetMyAccount)

	api.POST("/events", h.CreateEvent)
	api.GET("/events", h.ListEvents)
	api.GET("/events/:id", h.GetEvent)
	api.DELETE("/events/:id", h.DeleteEvent)
	api.POST("/events/:id/renew", h.RenewEvent)

	admin := api.Group("/events/:id", auth.RequireRole(models.RoleAdmin))
	admin.POST("/approve", h.ApproveEvent)
	admin.POST("/reject", h.RejectEvent)
	admin.POST("/disapprove", h.DisapproveEvent)
	admin.POST("/unreject", h.UnrejectEvent)

	api.POST("/events/:id/likes", h.LikeEvent)
	api.DELETE("/events/:id/likes", h.UnlikeEvent)
	api.POST("/events/:id/comments", h.AddComment)

	api.POST("/events/:id/registrations", h.Register)
	api.DELETE("/events/:id/registrations", h.Unregister)
	api.GET("/events/:id/registrations", h.ListRegistrations)
	api.GET("/events/:id/registrations/me", h.GetMyRegistration)
	api.PATCH("/events/:id/registrations/me", h.UpdateMyRegistration)

	api.GET("/locations/validate", h.ValidateLocation)
}

// handleError provides a consistent way to map service errors to responses and log them
func handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindAuthorization:
		status = http.StatusForbidden
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindConflict, services.KindInvalidTransition:
		status = http.StatusConflict
	}

	logger := log.WithComponent("http")
	evt := logger.Warn()
	msg := err.Error()
	if status == http.StatusInternalServerError {
		evt = logger.Error()
		msg = "Internal server error"
	}
	evt.Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Int("status", status).Msg("Request failed")

	c.JSON(status, gin.H{"error": msg})
}

// badRequest reports a body or query that could not be bound
func badRequest(c *gin.Context, message string, err error) {
	handleError(c, &services.Error{Kind: services.KindValidation, Msg: message, Err: err})
}

func actor(c *gin.Context) models.Actor {
	a, _ := auth.ActorFrom(c)
	return a
}

// HealthHandler is a simple health check endpoint
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var errMissingParam = errors.New("missing parameter")
