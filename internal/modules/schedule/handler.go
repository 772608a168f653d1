package schedule

import (
	"errors"
	"net/http"
	"strconv"

	"driveschool/internal/domain"
	"driveschool/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/lessons", h.CreateLesson)
	rg.GET("/lessons/:id", h.GetLesson)
	rg.POST("/lessons/:id/start", h.StartLesson)
	rg.POST("/lessons/:id/complete", h.CompleteLesson)
	rg.POST("/lessons/:id/cancel", h.CancelLesson)
	rg.POST("/lessons/:id/no-show", h.MarkNoShow)
	rg.POST("/lessons/:id/reschedule", h.RescheduleLesson)
	rg.POST("/lessons/bulk/complete", h.CompleteMany)
	rg.POST("/lessons/bulk/cancel", h.CancelMany)
	rg.GET("/schedule/:kind/:id", h.DaySchedule)
	rg.GET("/instructors/:id/free-slots", h.FreeSlots)
	rg.GET("/instructors/:id/stats", h.InstructorStats)
}

func (h *Handler) CreateLesson(c *gin.Context) {
	var req CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	l, err := h.service.CreateLesson(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"lesson": l})
}

func (h *Handler) GetLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	l, err := h.service.GetLesson(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": l})
}

func (h *Handler) StartLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	l, err := h.service.StartLesson(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": l})
}

func (h *Handler) CompleteLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CompleteLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	l, err := h.service.CompleteLesson(c.Request.Context(), id, req.Rating, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": l})
}

func (h *Handler) CancelLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CancelLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Cancellation reason is required")
		return
	}

	l, err := h.service.CancelLesson(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": l})
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	l, err := h.service.MarkNoShow(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"lesson": l})
}

func (h *Handler) RescheduleLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	l, err := h.service.RescheduleLesson(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"lesson": l})
}

func (h *Handler) CompleteMany(c *gin.Context) {
	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	results := h.service.CompleteMany(c.Request.Context(), req.LessonIDs)
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

func (h *Handler) CancelMany(c *gin.Context) {
	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	results := h.service.CancelMany(c.Request.Context(), req.LessonIDs, req.Reason)
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

func (h *Handler) DaySchedule(c *gin.Context) {
	kind := domain.ResourceKind(c.Param("kind"))
	if kind != domain.ResourceInstructor && kind != domain.ResourceVehicle {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown resource kind")
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	day, err := h.service.DaySchedule(c.Request.Context(), kind, id, c.Query("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, day)
}

func (h *Handler) FreeSlots(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	slots, err := h.service.FreeSlots(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"free_slots": slots})
}

func (h *Handler) InstructorStats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.service.InstructorStats(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithDetails(c, http.StatusConflict, "SCHEDULING_CONFLICT",
			"Requested window overlaps an existing booking", gin.H{
				"resource":  conflict.Kind,
				"conflicts": conflict.Conflicts,
			})
	case errors.Is(err, ErrSchedulingConflict):
		response.Error(c, http.StatusConflict, "SCHEDULING_CONFLICT", "Requested window overlaps an existing booking")
	case errors.Is(err, domain.ErrInvalidInterval), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRating):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrResourceNotFound), errors.Is(err, ErrLessonNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrInstructorInactive):
		response.Error(c, http.StatusUnprocessableEntity, "INSTRUCTOR_INACTIVE", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, ErrResourceBusy):
		response.Error(c, http.StatusLocked, "RESOURCE_BUSY", "Another booking for this resource is in progress")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}
