package booking

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/middleware"
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
	bookings := rg.Group("/bookings", authMW)
	bookings.POST("", h.create)
	bookings.GET("", h.mine)
	bookings.GET("/upcoming", h.upcoming)
	bookings.GET("/past", h.past)
	bookings.GET("/user/:userId", h.byUser)
	bookings.GET("/garage/:garageId", h.byGarage)
	bookings.GET("/:id", h.get)
	bookings.PATCH("/:id", h.update)
	bookings.PATCH("/:id/status", h.updateStatus)
	bookings.POST("/:id/cancel", h.cancel)
	bookings.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateBookingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrPastStartDate), errors.Is(err, ErrGarageInactive):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrSlotTaken):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrGarageNotFound):
			response.NotFoundMsg(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, b)
}

func (h *Handler) mine(c *gin.Context) {
	q := pagination.FromContext(c)
	bookings, meta, err := h.svc.ListByUser(middleware.CurrentUserID(c), q, listFilterFromQuery(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, bookings, meta)
}

func listFilterFromQuery(c *gin.Context) ListFilter {
	f := ListFilter{
		GarageID: c.Query("garageId"),
		Status:   c.Query("status"),
	}
	if raw := c.Query("startDate"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			f.From = &t
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			f.To = &end
		}
	}
	return f
}

func (h *Handler) upcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	bookings, err := h.svc.Upcoming(middleware.CurrentUserID(c), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, bookings)
}

func (h *Handler) past(c *gin.Context) {
	q := pagination.FromContext(c)
	bookings, meta, err := h.svc.Past(middleware.CurrentUserID(c), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, bookings, meta)
}

// byUser only serves the requester's own history, the path form exists for
// client symmetry with /garage/:garageId.
func (h *Handler) byUser(c *gin.Context) {
	if c.Param("userId") != middleware.CurrentUserID(c) {
		response.Forbidden(c)
		return
	}
	q := pagination.FromContext(c)
	bookings, meta, err := h.svc.ListByUser(c.Param("userId"), q, listFilterFromQuery(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, bookings, meta)
}

func (h *Handler) byGarage(c *gin.Context) {
	q := pagination.FromContext(c)
	bookings, meta, err := h.svc.ListByGarage(c.Param("garageId"), middleware.CurrentUserID(c), q, c.Query("status"))
	if err != nil {
		switch {
		case errors.Is(err, ErrGarageNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(c)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Paged(c, bookings, meta)
}

func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if b == nil {
		response.NotFound(c)
		return
	}
	userID := middleware.CurrentUserID(c)
	if b.UserID != userID && (b.Garage == nil || b.Garage.OwnerID != userID) {
		response.Forbidden(c)
		return
	}
	response.OK(c, b)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateBookingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.Update(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrPastStartDate):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrSlotTaken):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidTransition):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if b == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, b)
}

func (h *Handler) updateStatus(c *gin.Context) {
	var dto UpdateStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	b, err := h.svc.UpdateStatus(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidTransition):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if b == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, b)
}

func (h *Handler) cancel(c *gin.Context) {
	// Body is optional for cancel.
	var dto CancelDTO
	_ = c.ShouldBindJSON(&dto)
	b, err := h.svc.Cancel(c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidTransition):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	if b == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, b)
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(c)
		case errors.Is(err, ErrInvalidTransition):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}
