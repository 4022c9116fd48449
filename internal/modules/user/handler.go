package user

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	svc     *Service
	adminMW gin.HandlerFunc
}

func NewHandler(svc *Service, adminMW gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, adminMW: adminMW}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	users := rg.Group("/users")
	users.GET("/:id/profile", h.publicProfile)

	authed := users.Group("", authMW)
	authed.GET("/me", h.me)
	authed.PATCH("/me", h.updateMe)
	authed.DELETE("/me", h.deactivateMe)

	admin := users.Group("", authMW, h.adminMW)
	admin.GET("", h.list)
	admin.GET("/:id", h.get)
	admin.PATCH("/:id", h.adminUpdate)
	admin.DELETE("/:id", h.deactivate)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}

func (h *Handler) updateMe(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrInvalidBikeType) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}

func (h *Handler) deactivateMe(c *gin.Context) {
	if err := h.svc.Deactivate(middleware.CurrentUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) publicProfile(c *gin.Context) {
	p, err := h.svc.PublicByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, p)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	users, meta, err := h.svc.List(q, c.Query("role"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, users, meta)
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}

func (h *Handler) adminUpdate(c *gin.Context) {
	var dto AdminUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.AdminUpdate(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}

func (h *Handler) deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
