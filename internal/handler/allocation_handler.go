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

type allocationService interface {
	Create(ctx context.Context, req service.CreateAllocationRequest, requester models.UserRole) (*models.Allocation, error)
	SetStatus(ctx context.Context, key models.AllocationKey, status models.AllocationStatus) error
	ChangeRoom(ctx context.Context, key models.AllocationKey, newRoom models.RoomKey) (*models.Allocation, error)
	Delete(ctx context.Context, key models.AllocationKey) error
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error)
}

// AllocationStatusRequest is the payload of a status change.
type AllocationStatusRequest struct {
	Status models.AllocationStatus `json:"status" binding:"required"`
}

// ChangeRoomRequest is the payload of a room change.
type ChangeRoomRequest struct {
	RoomNumber int    `json:"room_number" binding:"required,gt=0"`
	RoomType   string `json:"room_type" binding:"required"`
}

// AllocationHandler exposes room allocation endpoints.
type AllocationHandler struct {
	service allocationService
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(service allocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// List godoc
// @Summary List room allocations
// @Description Professors only see their own allocations.
// @Tags Allocations
// @Produce json
// @Security BearerAuth
// @Param room_number query int false "Room number"
// @Param room_type query string false "Room type"
// @Param professor_id query int false "Professor ID"
// @Param discipline query string false "Discipline name"
// @Param shift query string false "Shift"
// @Param term_year query int false "Term year"
// @Param term_half query int false "Term half"
// @Param kind query string false "recurring or one_off"
// @Param status query string false "pending, confirmed or cancelled"
// @Param course query string false "Course"
// @Param course_semester query int false "Course semester"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	filter, err := allocationFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleProfessor {
		professorID, err := professorIDFromClaims(claims)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.ProfessorID = &professorID
	}

	allocations, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(allocations))
	response.JSON(c, http.StatusOK, allocations, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Book a room for a teaching schedule
// @Description Admin bookings are confirmed and occupy the room; professor bookings stay pending.
// @Tags Allocations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateAllocationRequest true "Allocation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations [post]
func (h *AllocationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}
	if claims.Role == models.RoleProfessor {
		professorID, err := professorIDFromClaims(claims)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.ProfessorID = professorID
	}

	allocation, err := h.service.Create(c.Request.Context(), req, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, allocation)
}

// UpdateStatus godoc
// @Summary Change the status of an allocation
// @Tags Allocations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roomNumber path int true "Room number"
// @Param roomType path string true "Room type"
// @Param professorId path int true "Professor ID"
// @Param discipline path string true "Discipline name"
// @Param shift path string true "Shift"
// @Param year path int true "Term year"
// @Param half path int true "Term half"
// @Param payload body AllocationStatusRequest true "Status payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations/{roomNumber}/{roomType}/{professorId}/{discipline}/{shift}/{year}/{half}/status [put]
func (h *AllocationHandler) UpdateStatus(c *gin.Context) {
	key, err := allocationKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req AllocationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), key, req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangeRoom godoc
// @Summary Move an allocation to another room
// @Tags Allocations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roomNumber path int true "Room number"
// @Param roomType path string true "Room type"
// @Param professorId path int true "Professor ID"
// @Param discipline path string true "Discipline name"
// @Param shift path string true "Shift"
// @Param year path int true "Term year"
// @Param half path int true "Term half"
// @Param payload body ChangeRoomRequest true "Target room"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allocations/{roomNumber}/{roomType}/{professorId}/{discipline}/{shift}/{year}/{half}/room [put]
func (h *AllocationHandler) ChangeRoom(c *gin.Context) {
	key, err := allocationKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req ChangeRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}
	allocation, err := h.service.ChangeRoom(c.Request.Context(), key, models.RoomKey{Number: req.RoomNumber, Type: req.RoomType})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation)
}

// Delete godoc
// @Summary Remove an allocation
// @Tags Allocations
// @Security BearerAuth
// @Param roomNumber path int true "Room number"
// @Param roomType path string true "Room type"
// @Param professorId path int true "Professor ID"
// @Param discipline path string true "Discipline name"
// @Param shift path string true "Shift"
// @Param year path int true "Term year"
// @Param half path int true "Term half"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /allocations/{roomNumber}/{roomType}/{professorId}/{discipline}/{shift}/{year}/{half} [delete]
func (h *AllocationHandler) Delete(c *gin.Context) {
	key, err := allocationKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func allocationFilterFromQuery(c *gin.Context) (models.AllocationFilter, error) {
	var filter models.AllocationFilter
	err := firstError(
		queryInt(c, "room_number", &filter.RoomNumber),
		queryInt64(c, "professor_id", &filter.ProfessorID),
		queryInt(c, "term_year", &filter.TermYear),
		queryInt(c, "term_half", &filter.TermHalf),
		queryInt(c, "course_semester", &filter.CourseSemester),
	)
	if err != nil {
		return filter, err
	}
	filter.RoomType = queryString(c, "room_type")
	filter.DisciplineName = queryString(c, "discipline")
	filter.Shift = queryString(c, "shift")
	filter.Course = queryString(c, "course")
	if raw := queryString(c, "kind"); raw != nil {
		kind := models.AllocationKind(*raw)
		if !kind.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid kind")
		}
		filter.Kind = &kind
	}
	if raw := queryString(c, "status"); raw != nil {
		status := models.AllocationStatus(*raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		filter.Status = &status
	}
	return filter, nil
}
