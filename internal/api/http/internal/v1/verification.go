package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchile/backend/internal/domain"
	"github.com/alchile/backend/internal/service"
	"github.com/alchile/backend/pkg/logger"
)

func (h *Handler) initVerificationRoutes(api *gin.RouterGroup) {
	verification := api.Group("/verification", h.userIdentityMiddleware)
	{
		verification.POST("/request-code", h.requestCode)
		verification.POST("/verify-code", h.verifyCode)
		verification.GET("/status", h.codeStatus)
	}
}

type requestCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,e164"`
	Purpose     string `json:"purpose" binding:"omitempty,oneof=registration login resend"`
}

type requestCodeResponse struct {
	CodeID string `json:"code_id"`
}

// @Summary Request Verification Code
// @Tags Verification
// @Description Issue a one-time code and deliver it to the given phone number
// @ModuleID requestCode
// @Accept  json
// @Produce  json
// @Param input body requestCodeRequest true "Delivery destination"
// @Success 201 {object} requestCodeResponse
// @Failure 400 {object} ValidationErrorStruct
// @Failure 429 {object} ErrorStruct
// @Failure 502 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /verification/request-code [post]
func (h *Handler) requestCode(c *gin.Context) {
	userID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	ip := c.ClientIP()
	userAgent := c.Request.UserAgent()

	var ipPtr, uaPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	if userAgent != "" {
		uaPtr = &userAgent
	}

	codeID, err := h.services.Verification.RequestCode(
		c.Request.Context(), userID, req.PhoneNumber, domain.Purpose(req.Purpose), ipPtr, uaPtr,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			errorResponse(c, http.StatusTooManyRequests, RateLimitedCode)
		case errors.Is(err, service.ErrDeliveryFailed):
			logger.Error("code delivery failed", zap.String("userId", userID.String()), zap.Error(err))
			errorResponse(c, http.StatusBadGateway, DeliveryFailedCode)
		default:
			logger.Error("request code failed", zap.String("userId", userID.String()), zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, requestCodeResponse{CodeID: codeID.String()})
}

type verifyCodeRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type verifyCodeResponse struct {
	Verified          bool `json:"verified"`
	AttemptsRemaining *int `json:"attempts_remaining,omitempty"`
}

// @Summary Verify Code
// @Tags Verification
// @Description Check a submitted code against the user's active one
// @ModuleID verifyCode
// @Accept  json
// @Produce  json
// @Param input body verifyCodeRequest true "Submitted code"
// @Success 200 {object} verifyCodeResponse
// @Failure 400 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /verification/verify-code [post]
func (h *Handler) verifyCode(c *gin.Context) {
	userID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	verified, err := h.services.Verification.VerifyCode(c.Request.Context(), userID, req.Code)
	if err != nil {
		var invalidErr *service.InvalidCodeError
		switch {
		case errors.As(err, &invalidErr):
			remaining := invalidErr.AttemptsRemaining
			c.JSON(http.StatusBadRequest, verifyCodeResponse{Verified: false, AttemptsRemaining: &remaining})
		case errors.Is(err, service.ErrTooManyAttempts):
			errorResponse(c, http.StatusBadRequest, TooManyAttemptsCode)
		case errors.Is(err, service.ErrInvalidOrExpired):
			errorResponse(c, http.StatusBadRequest, InvalidOrExpiredCode)
		default:
			logger.Error("verify code failed", zap.String("userId", userID.String()), zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, verifyCodeResponse{Verified: verified})
}

type codeStatusResponse struct {
	Active            bool   `json:"active"`
	ExpiresAt         string `json:"expires_at,omitempty"`
	AttemptsRemaining int    `json:"attempts_remaining"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// @Summary Code Status
// @Tags Verification
// @Description Report whether the user has an active code and when a new one may be requested
// @ModuleID codeStatus
// @Accept  json
// @Produce  json
// @Success 200 {object} codeStatusResponse
// @Failure 500
// @Security UserAuth
// @Router /verification/status [get]
func (h *Handler) codeStatus(c *gin.Context) {
	userID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	status, err := h.services.Verification.Status(c.Request.Context(), userID)
	if err != nil {
		logger.Error("code status failed", zap.String("userId", userID.String()), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	response := codeStatusResponse{
		Active:            status.Active,
		AttemptsRemaining: status.AttemptsRemaining,
		RetryAfterSeconds: int(status.RetryAfter / time.Second),
	}
	if status.ExpiresAt != nil {
		response.ExpiresAt = status.ExpiresAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}
