package v1

import (
	"github.com/alchile/backend/internal/config"
	"github.com/alchile/backend/internal/service"
	"github.com/alchile/backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

// @title Phone Verification API
// @version 1.0
// @description Phone-number verification (OTP) service

// @BasePath /api/v1

// @securityDefinitions.apikey UserAuth
// @in header
// @name Authorization

type Handler struct {
	services     *service.Services
	tokenManager auth.TokenManager
	config       *config.Config
}

func NewHandler(
	services *service.Services,
	tokenManager auth.TokenManager,
	config *config.Config,
) *Handler {
	return &Handler{
		services:     services,
		tokenManager: tokenManager,
		config:       config,
	}
}

func (h *Handler) Init(api *gin.RouterGroup) {
	v1 := api.Group("v1")

	h.initVerificationRoutes(v1)
	h.initAdminRoutes(v1)
}
