package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-allocation-api/internal/models"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

func scheduleKeyFromPath(c *gin.Context) (models.ScheduleKey, error) {
	professorID, err := strconv.ParseInt(c.Param("professorId"), 10, 64)
	if err != nil || professorID <= 0 {
		return models.ScheduleKey{}, appErrors.Clone(appErrors.ErrValidation, "invalid professor id")
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return models.ScheduleKey{}, appErrors.Clone(appErrors.ErrValidation, "invalid term year")
	}
	half, err := strconv.Atoi(c.Param("half"))
	if err != nil || (half != 1 && half != 2) {
		return models.ScheduleKey{}, appErrors.Clone(appErrors.ErrValidation, "invalid term half")
	}
	name := strings.TrimSpace(c.Param("discipline"))
	shift := strings.TrimSpace(c.Param("shift"))
	if name == "" || shift == "" {
		return models.ScheduleKey{}, appErrors.Clone(appErrors.ErrValidation, "discipline and shift are required")
	}
	return models.ScheduleKey{
		ProfessorID: professorID,
		Offering:    models.Offering{Name: name, Shift: shift},
		Term:        models.Term{Year: year, Half: half},
	}, nil
}

func allocationKeyFromPath(c *gin.Context) (models.AllocationKey, error) {
	number, err := strconv.Atoi(c.Param("roomNumber"))
	if err != nil || number <= 0 {
		return models.AllocationKey{}, appErrors.Clone(appErrors.ErrValidation, "invalid room number")
	}
	roomType := strings.TrimSpace(c.Param("roomType"))
	if roomType == "" {
		return models.AllocationKey{}, appErrors.Clone(appErrors.ErrValidation, "room type is required")
	}
	schedule, err := scheduleKeyFromPath(c)
	if err != nil {
		return models.AllocationKey{}, err
	}
	return models.AllocationKey{RoomKey: models.RoomKey{Number: number, Type: roomType}, ScheduleKey: schedule}, nil
}

// queryInt parses an optional integer query parameter into dst.
func queryInt(c *gin.Context, name string, dst **int) error {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	*dst = &v
	return nil
}

func queryInt64(c *gin.Context, name string, dst **int64) error {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	*dst = &v
	return nil
}

func queryString(c *gin.Context, name string) *string {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
