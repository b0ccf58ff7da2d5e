package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"openpersona/internal/api/middleware"
	"openpersona/internal/database"
)

// currentUser loads the authenticated account row, writing the error
// response itself on failure.
func currentUser(c *gin.Context, db *gorm.DB) (*database.User, bool) {
	userID := c.GetUint("userID")

	var user database.User
	err := db.WithContext(c.Request.Context()).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Unauthorized(c)
		return nil, false
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("user lookup failed", "error", err)
		Internal(c, "lookup failed")
		return nil, false
	}
	return &user, true
}
