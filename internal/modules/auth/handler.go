package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	auth := rg.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/refresh", h.refresh)
	auth.GET("/verify-email", h.verifyEmail)
	auth.POST("/password-reset/request", h.resetRequest)
	auth.POST("/password-reset/confirm", h.resetConfirm)

	auth.POST("/logout", authMW, h.logout)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, u)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, pair, err := h.svc.Login(&dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.UnauthorizedMsg(c, err.Error())
		case errors.Is(err, ErrAccountDisabled):
			response.ForbiddenMsg(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, gin.H{"user": u, "tokens": pair})
}

func (h *Handler) refresh(c *gin.Context) {
	var dto RefreshDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pair, err := h.svc.Refresh(&dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			response.UnauthorizedMsg(c, err.Error())
		case errors.Is(err, ErrAccountDisabled):
			response.ForbiddenMsg(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, pair)
}

func (h *Handler) logout(c *gin.Context) {
	err := h.svc.Logout(middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) verifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}
	if err := h.svc.VerifyEmail(token); err != nil {
		if errors.Is(err, ErrInvalidVerifyToken) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"verified": true})
}

func (h *Handler) resetRequest(c *gin.Context) {
	var dto ResetRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), dto.Email); err != nil {
		response.InternalError(c, err)
		return
	}
	// Same answer whether the address exists or not.
	response.OK(c, gin.H{"sent": true})
}

func (h *Handler) resetConfirm(c *gin.Context) {
	var dto ResetConfirmDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ConfirmPasswordReset(c.Request.Context(), &dto); err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"reset": true})
}
