package alert

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/geo"
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalMW gin.HandlerFunc) {
	alerts := rg.Group("/alerts")
	alerts.GET("", h.list)
	alerts.GET("/active", h.active)
	alerts.GET("/nearby", h.nearby)
	alerts.GET("/user/:userId", h.byUser)
	alerts.GET("/:id", optionalMW, h.get)

	authed := alerts.Group("", authMW)
	authed.POST("", h.create)
	authed.PATCH("/:id", h.update)
	authed.POST("/:id/upvote", h.vote(VoteUp))
	authed.POST("/:id/downvote", h.vote(VoteDown))
	authed.DELETE("/:id", h.deactivate)
	authed.PATCH("/:id/verify", h.adminMW, h.verify)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	f := ListFilter{
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
	}
	if c.Query("latitude") != "" && c.Query("longitude") != "" {
		lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
		if errLat != nil || errLng != nil {
			response.BadRequest(c, "invalid latitude or longitude")
			return
		}
		f.Center = &geo.Point{Lat: lat, Lng: lng}
		if raw := c.Query("radius"); raw != "" {
			r, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				response.BadRequest(c, "invalid radius")
				return
			}
			f.RadiusKm = r
		}
	}

	alerts, meta, err := h.svc.List(c.Request.Context(), q, f)
	if err != nil {
		if errors.Is(err, ErrInvalidLatLng) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Paged(c, alerts, meta)
}

func (h *Handler) nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
	if errLat != nil || errLng != nil {
		response.BadRequest(c, "latitude and longitude are required")
		return
	}

	radius := 25.0
	if v := c.Query("radius"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			response.BadRequest(c, "invalid radius")
			return
		}
		radius = r
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	alerts, err := h.svc.FindNearby(c.Request.Context(), geo.Point{Lat: lat, Lng: lng}, radius, limit)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidLatLng), errors.Is(err, ErrInvalidRadius):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, alerts)
}

func (h *Handler) active(c *gin.Context) {
	alerts, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, alerts)
}

func (h *Handler) byUser(c *gin.Context) {
	q := pagination.FromContext(c)
	alerts, meta, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, alerts, meta)
}

func (h *Handler) get(c *gin.Context) {
	a, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, ViewFor(a, middleware.CurrentUserID(c)))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateAlertDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	a, err := h.svc.Update(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotReporter):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidSeverity), errors.Is(err, ErrExpired), errors.Is(err, ErrExpiryInPast):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, a)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateAlertDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	a, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidSeverity),
			errors.Is(err, ErrInvalidLatLng), errors.Is(err, ErrExpiryInPast):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, a)
}

func (h *Handler) vote(kind VoteKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := h.svc.Vote(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), kind)
		if err != nil {
			if errors.Is(err, ErrVoteContention) {
				response.Conflict(c, err.Error())
				return
			}
			response.InternalError(c, err)
			return
		}
		if a == nil {
			response.NotFound(c)
			return
		}
		response.OK(c, ViewFor(a, middleware.CurrentUserID(c)))
	}
}

func (h *Handler) deactivate(c *gin.Context) {
	err := h.svc.Deactivate(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			response.NotFound(c)
		case errors.Is(err, ErrNotReporter):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

func (h *Handler) verify(c *gin.Context) {
	var dto struct {
		Verified *bool `json:"verified" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	a, err := h.svc.Verify(c.Request.Context(), c.Param("id"), *dto.Verified)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, a)
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
