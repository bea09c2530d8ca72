package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-allocation-api/internal/middleware"
	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/service"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/response"
)

type teachingScheduleService interface {
	Create(ctx context.Context, req service.CreateTeachingScheduleRequest) (*models.TeachingSchedule, error)
	Reschedule(ctx context.Context, key models.ScheduleKey, req service.RescheduleRequest) (*models.TeachingSchedule, error)
	Delete(ctx context.Context, key models.ScheduleKey) error
	List(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error)
}

type termCopier interface {
	Copy(ctx context.Context, req service.CopyTermRequest) (*service.CopyTermResult, error)
}

// TeachingScheduleHandler exposes teaching schedule endpoints.
type TeachingScheduleHandler struct {
	schedules teachingScheduleService
	copier    termCopier
}

// NewTeachingScheduleHandler constructs the handler.
func NewTeachingScheduleHandler(schedules teachingScheduleService, copier termCopier) *TeachingScheduleHandler {
	return &TeachingScheduleHandler{schedules: schedules, copier: copier}
}

// List godoc
// @Summary List teaching schedules
// @Tags TeachingSchedules
// @Produce json
// @Security BearerAuth
// @Param professor_id query int false "Professor ID"
// @Param term_year query int false "Term year"
// @Param term_half query int false "Term half"
// @Param course query string false "Course"
// @Param shift query string false "Shift"
// @Param course_semester query int false "Course semester"
// @Success 200 {object} response.Envelope
// @Router /teaching-schedules [get]
func (h *TeachingScheduleHandler) List(c *gin.Context) {
	var filter models.TeachingScheduleFilter
	err := firstError(
		queryInt64(c, "professor_id", &filter.ProfessorID),
		queryInt(c, "term_year", &filter.TermYear),
		queryInt(c, "term_half", &filter.TermHalf),
		queryInt(c, "course_semester", &filter.CourseSemester),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Course = queryString(c, "course")
	filter.Shift = queryString(c, "shift")

	schedules, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(schedules))
	response.JSON(c, http.StatusOK, schedules, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Assign a professor to a discipline offering
// @Tags TeachingSchedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateTeachingScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teaching-schedules [post]
func (h *TeachingScheduleHandler) Create(c *gin.Context) {
	var req service.CreateTeachingScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teaching schedule payload"))
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Reschedule godoc
// @Summary Move a teaching schedule and its allocations to another slot
// @Tags TeachingSchedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param professorId path int true "Professor ID"
// @Param discipline path string true "Discipline name"
// @Param shift path string true "Shift"
// @Param year path int true "Term year"
// @Param half path int true "Term half"
// @Param payload body service.RescheduleRequest true "New slot"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teaching-schedules/{professorId}/{discipline}/{shift}/{year}/{half} [put]
func (h *TeachingScheduleHandler) Reschedule(c *gin.Context) {
	key, err := scheduleKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	schedule, err := h.schedules.Reschedule(c.Request.Context(), key, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Delete godoc
// @Summary Remove a teaching schedule with its allocations
// @Tags TeachingSchedules
// @Security BearerAuth
// @Param professorId path int true "Professor ID"
// @Param discipline path string true "Discipline name"
// @Param shift path string true "Shift"
// @Param year path int true "Term year"
// @Param half path int true "Term half"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /teaching-schedules/{professorId}/{discipline}/{shift}/{year}/{half} [delete]
func (h *TeachingScheduleHandler) Delete(c *gin.Context) {
	key, err := scheduleKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.schedules.Delete(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CopyTerm godoc
// @Summary Copy every teaching schedule of a term into another term
// @Tags TeachingSchedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CopyTermRequest true "Source and target terms"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teaching-schedules/copy [post]
func (h *TeachingScheduleHandler) CopyTerm(c *gin.Context) {
	var req service.CopyTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term copy payload"))
		return
	}
	result, err := h.copier.Copy(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
