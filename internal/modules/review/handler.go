package review

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	reviews := rg.Group("/reviews")
	reviews.GET("/garage/:garageId", h.listByGarage)
	reviews.GET("/user/:userId", h.listByUser)
	reviews.GET("/:id", h.get)

	authed := reviews.Group("", authMW)
	authed.POST("", h.create)
	authed.POST("/garage/:garageId", h.create)
	authed.PUT("/:id", h.update)
	authed.PATCH("/:id", h.update)
	authed.DELETE("/:id", h.deactivate)
	authed.GET("/mine/list", h.mine)
	authed.POST("/:id/respond", h.respond)
}

func (h *Handler) listByGarage(c *gin.Context) {
	q := pagination.FromContext(c)
	page, meta, err := h.svc.ListByGarage(c.Param("garageId"), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, gin.H{
		"reviews":       page.Reviews,
		"averageRating": page.AverageRating,
	}, meta)
}

func (h *Handler) get(c *gin.Context) {
	r, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if r == nil || !r.IsActive {
		response.NotFound(c)
		return
	}
	response.OK(c, r)
}

func (h *Handler) listByUser(c *gin.Context) {
	q := pagination.FromContext(c)
	reviews, meta, err := h.svc.ListByUser(c.Param("userId"), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, reviews, meta)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateReviewDTO
	if garageID := c.Param("garageId"); garageID != "" {
		// Path form: garage comes from the URL, rating/comment from the body.
		var body struct {
			Title   string   `json:"title"`
			Content string   `json:"content" binding:"required"`
			Rating  int      `json:"rating" binding:"required"`
			Images  []string `json:"images"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		dto = CreateReviewDTO{GarageID: garageID, Title: body.Title, Content: body.Content, Rating: body.Rating, Images: body.Images}
	} else if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrOwnGarage):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrAlreadyReviewed):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrGarageNotFound):
			response.NotFoundMsg(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, r)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateReviewDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthor):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidRating):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if r == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, r)
}

func (h *Handler) deactivate(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	isAdmin := h.userRole(c) == models.RoleAdmin
	err := h.svc.Deactivate(c.Param("id"), userID, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNotAuthor):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

func (h *Handler) mine(c *gin.Context) {
	q := pagination.FromContext(c)
	reviews, meta, err := h.svc.ListByUser(middleware.CurrentUserID(c), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, reviews, meta)
}

func (h *Handler) respond(c *gin.Context) {
	var dto RespondDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Respond(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrNotGarageOwner) {
			response.Forbidden(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if r == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, r)
}

func (h *Handler) userRole(c *gin.Context) models.UserRole {
	role, _ := c.Get(middleware.ContextKeyRole)
	r, _ := role.(models.UserRole)
	if r != "" {
		return r
	}
	var row struct {
		Role models.UserRole
	}
	if err := h.svc.db.Model(&models.UserModel{}).Select("role").
		Where("id = ?", middleware.CurrentUserID(c)).Scan(&row).Error; err != nil {
		return models.RoleUser
	}
	c.Set(middleware.ContextKeyRole, row.Role)
	return row.Role
}
