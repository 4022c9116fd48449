package tasks

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/motohub/core/internal/pkg/pagination"
	"github.com/motohub/core/internal/pkg/response"
	"github.com/motohub/core/internal/pkg/taskqueue"
)

// Handler exposes the background task queue to admins, mostly for
// inspecting and retrying failed mail deliveries.
type Handler struct {
	svc *taskqueue.Service
}

func NewHandler(svc *taskqueue.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/tasks", authMW, adminMW)
	g.GET("", h.list)
	g.GET("/:taskId", h.get)
	g.POST("/:taskId/cancel", h.cancel)
	g.POST("/:taskId/retry", h.retry)
	g.DELETE("/:taskId", h.delete)
	g.DELETE("", h.deleteCompleted)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)

	var typePtr *string
	if t := c.Query("type"); t != "" {
		typePtr = &t
	}
	var statusPtr *taskqueue.TaskStatus
	if s := c.Query("status"); s != "" {
		status := taskqueue.TaskStatus(s)
		statusPtr = &status
	}

	items, total, err := h.svc.List(c.Request.Context(), q.Page, q.Size, typePtr, statusPtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pagination.Meta(q, total))
}

func (h *Handler) get(c *gin.Context) {
	task, err := h.svc.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFoundMsg(c, "task not found")
		return
	}
	response.OK(c, task)
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("taskId")); err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// retry re-enqueues a copy of the task with a fresh ID. The dedup key is
// cleared so the retry is not swallowed by the original.
func (h *Handler) retry(c *gin.Context) {
	task, err := h.svc.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFoundMsg(c, "task not found")
		return
	}

	var payload interface{}
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		response.BadRequest(c, "invalid task payload")
		return
	}
	fresh, err := h.svc.Enqueue(c.Request.Context(), task.Type, payload, "", task.GroupKey)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, fresh)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeleteByID(c.Request.Context(), c.Param("taskId")); err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// deleteCompleted purges finished tasks, optionally only those created
// before ?before=<unix_ms>.
func (h *Handler) deleteCompleted(c *gin.Context) {
	var before int64
	if raw := c.Query("before"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "before must be a unix millisecond timestamp")
			return
		}
		before = v
	}
	if err := h.svc.DeleteCompleted(c.Request.Context(), before); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
