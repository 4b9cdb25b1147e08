package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/usersapi/pkg/domain"
	"github.com/aescanero/usersapi/pkg/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	bootstrapMessage = "Table created and sample data inserted"
	timestampLayout  = "2006-01-02T15:04:05.000Z07:00"
)

// ErrorResponse is the envelope of every failed API call
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ListUsersResponse is the envelope returned by GET /api/users
type ListUsersResponse struct {
	Success bool          `json:"success"`
	Data    []domain.User `json:"data"`
	Count   int           `json:"count"`
	Message string        `json:"message,omitempty"`
}

// CreateUserRequest is the body of POST /api/users, as JSON or a URL-encoded form
type CreateUserRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

// CreateUserResponse is the envelope returned by POST /api/users
type CreateUserResponse struct {
	Success bool         `json:"success"`
	Data    *domain.User `json:"data"`
}

func errorResponse(message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message}
}

func internalError() ErrorResponse {
	return errorResponse("Internal server error")
}

// handleRoot lists the service capabilities
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName,
		"version": s.version,
		"endpoints": gin.H{
			"health":  "/health",
			"metrics": "/metrics",
			"users":   "/api/users",
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := s.storageContext(c)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": now(),
			"error":     ports.PublicMessage(err, "database unavailable"),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": now(),
		"uptime":    time.Since(s.startedAt).Seconds(),
		"database":  "connected",
	})
}

// handleListUsers returns up to ten users, bootstrapping the table on first access
func (s *Server) handleListUsers(c *gin.Context) {
	ctx, cancel := s.storageContext(c)
	defer cancel()

	result, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ports.PublicMessage(err, "failed to list users")))
		return
	}

	resp := ListUsersResponse{
		Success: true,
		Data:    result.Users,
		Count:   len(result.Users),
	}
	if result.Bootstrapped {
		resp.Message = bootstrapMessage
	}

	c.JSON(http.StatusOK, resp)
}

// handleCreateUser stores a user from a JSON or form body
func (s *Server) handleCreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		s.logger.Debug("invalid create user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	ctx, cancel := s.storageContext(c)
	defer cancel()

	user, err := s.users.Create(ctx, req.Name, req.Email)
	if err != nil {
		if isClientError(err) {
			s.logger.Debug("user rejected", zap.Error(err))
			c.JSON(http.StatusBadRequest, errorResponse(ports.PublicMessage(err, "invalid user")))
			return
		}

		s.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(ports.PublicMessage(err, "failed to create user")))
		return
	}

	c.JSON(http.StatusCreated, CreateUserResponse{
		Success: true,
		Data:    user,
	})
}

// handleNotFound answers every unmatched route
func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse("Endpoint not found"))
}

func isClientError(err error) bool {
	return errors.Is(err, ports.ErrInvalidUser) ||
		errors.Is(err, ports.ErrDuplicateEmail) ||
		errors.Is(err, ports.ErrConstraintViolation)
}

func now() string {
	return time.Now().UTC().Format(timestampLayout)
}
