package video

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

type Handler struct {
	svc     *Service
	db      *gorm.DB
	adminMW gin.HandlerFunc
}

func NewHandler(svc *Service, db *gorm.DB, adminMW gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, db: db, adminMW: adminMW}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	videos := rg.Group("/videos")
	videos.GET("", h.list)
	videos.GET("/popular", h.top(h.svc.Popular))
	videos.GET("/recent", h.top(h.svc.Recent))
	videos.GET("/featured", h.top(h.svc.Featured))
	videos.GET("/uploader/:userId", h.byUploader)
	videos.GET("/:id", h.get)
	videos.POST("/:id/view", h.view)

	authed := videos.Group("", authMW)
	authed.POST("", h.create)
	authed.PATCH("/:id", h.update)
	authed.DELETE("/:id", h.deactivate)
	authed.POST("/:id/like", h.like)
	authed.PATCH("/:id/feature", h.adminMW, h.feature)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	filter := ListFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Tag:      c.Query("tag"),
		SortBy:   c.DefaultQuery("sortBy", "recent"),
	}
	videos, meta, err := h.svc.List(c.Request.Context(), q, filter)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, videos, meta)
}

func (h *Handler) top(fetch func(context.Context, int) ([]models.VideoDocument, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 10
		if v := c.Query("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		videos, err := fetch(c.Request.Context(), limit)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, videos)
	}
}

func (h *Handler) byUploader(c *gin.Context) {
	q := pagination.FromContext(c)
	videos, meta, err := h.svc.ListByUploader(c.Request.Context(), c.Param("userId"), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, videos, meta)
}

func (h *Handler) get(c *gin.Context) {
	v, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if v == nil || !v.IsActive {
		response.NotFound(c)
		return
	}
	response.OK(c, v)
}

func (h *Handler) view(c *gin.Context) {
	v, err := h.svc.RecordView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if v == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"views": v.Views})
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateVideoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidLevel):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, v)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateVideoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.svc.Update(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotUploader):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidLevel):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if v == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, v)
}

func (h *Handler) deactivate(c *gin.Context) {
	err := h.svc.Deactivate(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			response.NotFound(c)
		case errors.Is(err, ErrNotUploader):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

func (h *Handler) like(c *gin.Context) {
	v, err := h.svc.ToggleLike(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if v == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, v)
}

func (h *Handler) feature(c *gin.Context) {
	var dto struct {
		Featured *bool `json:"featured" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v, err := h.svc.SetFeatured(c.Request.Context(), c.Param("id"), *dto.Featured)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if v == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, v)
}

func (h *Handler) isAdmin(c *gin.Context) bool {
	role, _ := c.Get(middleware.ContextKeyRole)
	r, _ := role.(models.UserRole)
	if r != "" {
		return r == models.RoleAdmin
	}
	var row struct {
		Role models.UserRole
	}
	if err := h.db.Model(&models.UserModel{}).Select("role").
		Where("id = ?", middleware.CurrentUserID(c)).Scan(&row).Error; err != nil {
		return false
	}
	c.Set(middleware.ContextKeyRole, row.Role)
	return row.Role == models.RoleAdmin
}
