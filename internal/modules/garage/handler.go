package garage

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/geo"
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
	garages := rg.Group("/garages")
	garages.GET("", h.list)
	garages.GET("/nearby", h.nearby)
	garages.GET("/services", h.services)
	garages.GET("/owner/:ownerId", h.byOwner)
	garages.GET("/:id", h.get)

	authed := garages.Group("", authMW)
	authed.POST("", h.create)
	authed.PUT("/:id", h.update)
	authed.PATCH("/:id", h.update)
	authed.DELETE("/:id", h.deactivate)
	authed.GET("/mine/list", h.mine)
	authed.PATCH("/:id/verify", h.adminMW, h.verify)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	filter := ListFilter{
		Search:  c.Query("search"),
		Service: c.Query("service"),
	}
	if v := c.Query("verified"); v != "" {
		verified := v == "true" || v == "1"
		filter.Verified = &verified
	}
	// Coordinate params narrow the listing to the surrounding area; ordering
	// stays rating first.
	if c.Query("latitude") != "" && c.Query("longitude") != "" {
		lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
		if errLat != nil || errLng != nil {
			response.BadRequest(c, "invalid coordinates")
			return
		}
		filter.Center = &geo.Point{Lat: lat, Lng: lng}
		if v := c.Query("radius"); v != "" {
			r, err := strconv.ParseFloat(v, 64)
			if err != nil || r <= 0 {
				response.BadRequest(c, "invalid radius")
				return
			}
			filter.RadiusKm = r
		}
	}

	garages, meta, err := h.svc.List(q, filter)
	if err != nil {
		if errors.Is(err, ErrInvalidLatLng) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Paged(c, garages, meta)
}

func (h *Handler) nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
	if errLat != nil || errLng != nil {
		response.BadRequest(c, "latitude and longitude are required")
		return
	}

	radius := 10.0
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

	garages, err := h.svc.FindNearby(geo.Point{Lat: lat, Lng: lng}, radius, limit)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidLatLng), errors.Is(err, ErrInvalidRadius):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, garages)
}

func (h *Handler) services(c *gin.Context) {
	services, err := h.svc.Services()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": services})
}

func (h *Handler) get(c *gin.Context) {
	g, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if g == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, g)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateGarageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	g, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrInvalidLatLng) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, g)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateGarageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	g, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidLatLng), errors.Is(err, ErrInvalidStatus):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if g == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, g)
}

func (h *Handler) deactivate(c *gin.Context) {
	err := h.svc.Deactivate(c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

func (h *Handler) byOwner(c *gin.Context) {
	q := pagination.FromContext(c)
	garages, meta, err := h.svc.List(q, ListFilter{OwnerID: c.Param("ownerId"), Status: string(models.GarageActive)})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, garages, meta)
}

func (h *Handler) mine(c *gin.Context) {
	q := pagination.FromContext(c)
	garages, meta, err := h.svc.List(q, ListFilter{OwnerID: middleware.CurrentUserID(c), Status: string(models.GarageActive)})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, garages, meta)
}

func (h *Handler) verify(c *gin.Context) {
	var dto struct {
		Verified *bool `json:"verified" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	g, err := h.svc.Verify(c.Param("id"), *dto.Verified)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if g == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, g)
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
	if err := h.svc.db.Model(&models.UserModel{}).Select("role").
		Where("id = ?", middleware.CurrentUserID(c)).Scan(&row).Error; err != nil {
		return false
	}
	c.Set(middleware.ContextKeyRole, row.Role)
	return row.Role == models.RoleAdmin
}
