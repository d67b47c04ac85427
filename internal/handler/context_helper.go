package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/middleware"
	"github.com/marovi-edu/tuition-api/internal/models"
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

// relatedID returns the student/teacher row ID behind the caller, empty
// for accounts without one.
func relatedID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.RelatedID == nil {
		return ""
	}
	return *claims.RelatedID
}
