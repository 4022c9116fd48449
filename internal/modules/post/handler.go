package post

import (
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
	svc *Service
	db  *gorm.DB
}

func NewHandler(svc *Service, db *gorm.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalMW gin.HandlerFunc) {
	posts := rg.Group("/posts")
	posts.GET("", optionalMW, h.feed)
	posts.GET("/trending/hashtags", h.trending)
	posts.GET("/user/:userId", optionalMW, h.byUser)
	posts.GET("/:id", optionalMW, h.get)

	authed := posts.Group("", authMW)
	authed.POST("", h.create)
	authed.PATCH("/:id", h.update)
	authed.DELETE("/:id", h.deactivate)
	authed.POST("/:id/like", h.like)
	authed.POST("/:id/comments", h.comment)
	authed.DELETE("/:id/comments/:commentId", h.deleteComment)
}

func (h *Handler) feed(c *gin.Context) {
	q := pagination.FromContext(c)
	filter := FeedFilter{
		Hashtag: c.Query("hashtag"),
		Sort:    c.DefaultQuery("sort", "recent"),
	}
	posts, meta, err := h.svc.Feed(c.Request.Context(), q, filter, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, posts, meta)
}

func (h *Handler) byUser(c *gin.Context) {
	q := pagination.FromContext(c)
	filter := FeedFilter{UserID: c.Param("userId"), Sort: "recent"}
	posts, meta, err := h.svc.Feed(c.Request.Context(), q, filter, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, posts, meta)
}

func (h *Handler) trending(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	tags, err := h.svc.Trending(c.Request.Context(), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tags)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil || !p.IsActive {
		response.NotFound(c)
		return
	}
	viewer := middleware.CurrentUserID(c)
	response.OK(c, PostView{PostDocument: *p, IsLikedByUser: contains(p.Likes, viewer)})
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, p)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrNotAuthor) {
			response.Forbidden(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, p)
}

func (h *Handler) deactivate(c *gin.Context) {
	err := h.svc.Deactivate(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), h.isAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
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

func (h *Handler) like(c *gin.Context) {
	p, err := h.svc.ToggleLike(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	viewer := middleware.CurrentUserID(c)
	response.OK(c, PostView{PostDocument: *p, IsLikedByUser: contains(p.Likes, viewer)})
}

func (h *Handler) comment(c *gin.Context) {
	var dto CommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.Created(c, p)
}

func (h *Handler) deleteComment(c *gin.Context) {
	p, err := h.svc.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrCommentNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, ErrNotCommentAuthor):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, p)
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
