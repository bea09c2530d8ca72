package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-allocation-api/internal/middleware"
	"github.com/noah-isme/room-allocation-api/internal/models"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// professorIDFromClaims resolves the professor a professor-role token speaks for.
func professorIDFromClaims(claims *models.JWTClaims) (int64, error) {
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "token does not identify a professor")
	}
	return id, nil
}
