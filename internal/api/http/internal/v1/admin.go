package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alchile/backend/internal/domain"
	"github.com/alchile/backend/internal/queue/client"
	"github.com/alchile/backend/internal/queue/task"
	"github.com/alchile/backend/pkg/logger"
)

func (h *Handler) initAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin", h.userIdentityMiddleware, h.adminGuardMiddleware)
	{
		admin.GET("/rate-limits/:userId", h.getRateLimit)
		admin.DELETE("/rate-limits/:userId", h.liftRateLimit)
		admin.POST("/verification/cleanup", h.triggerCleanup)
	}
}

type rateLimitResponse struct {
	UserID      string `json:"user_id"`
	Attempts    int    `json:"attempts"`
	LastAttempt string `json:"last_attempt"`
	ResetAt     string `json:"reset_at"`
}

// @Summary Get Rate Limit State
// @Tags Admin
// @Description Inspect the issuance window recorded for a user
// @ModuleID getRateLimit
// @Accept  json
// @Produce  json
// @Param userId path string true "User ID (UUID)"
// @Success 200 {object} rateLimitResponse
// @Failure 400 {object} ErrorStruct
// @Failure 404 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /admin/rate-limits/{userId} [get]
func (h *Handler) getRateLimit(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be a uuid"})
		return
	}

	limit, err := h.services.RateLimits.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, RateLimitNotFoundCode)
			return
		}
		logger.Error("get rate limit failed", zap.String("userId", userID.String()), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, rateLimitResponse{
		UserID:      limit.UserID.String(),
		Attempts:    limit.Attempts,
		LastAttempt: limit.LastAttempt.Format(time.RFC3339),
		ResetAt:     limit.ResetAt.Format(time.RFC3339),
	})
}

// @Summary Lift Rate Limit
// @Tags Admin
// @Description Remove a user's issuance window so they can request codes immediately
// @ModuleID liftRateLimit
// @Accept  json
// @Produce  json
// @Param userId path string true "User ID (UUID)"
// @Success 204
// @Failure 400 {object} ErrorStruct
// @Failure 404 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /admin/rate-limits/{userId} [delete]
func (h *Handler) liftRateLimit(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be a uuid"})
		return
	}

	if err := h.services.RateLimits.Lift(c.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, RateLimitNotFoundCode)
			return
		}
		logger.Error("lift rate limit failed", zap.String("userId", userID.String()), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusNoContent)
}

type cleanupEnqueuedResponse struct {
	TaskID string `json:"task_id"`
}

// @Summary Trigger Code Cleanup
// @Tags Admin
// @Description Enqueue an immediate sweep of expired verification codes
// @ModuleID triggerCleanup
// @Accept  json
// @Produce  json
// @Success 202 {object} cleanupEnqueuedResponse
// @Failure 500
// @Security UserAuth
// @Router /admin/verification/cleanup [post]
func (h *Handler) triggerCleanup(c *gin.Context) {
	ctx := c.Request.Context()

	asynqClient := client.GetClient(ctx)
	if asynqClient == nil {
		logger.Error("asynq client is not configured")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	info, err := asynqClient.EnqueueContext(ctx, task.NewCleanupCodesTask())
	if err != nil {
		logger.Error("enqueue cleanup task failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusAccepted, cleanupEnqueuedResponse{TaskID: info.ID})
}
