package handler

import (
	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/transport/http/middleware"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok && userID != 0
}

func getEmailFromContext(c *gin.Context) string {
	return c.GetString(middleware.ContextEmailKey)
}
