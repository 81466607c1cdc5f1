// Package root contains endpoints that don't belong to any resource
package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Validate only runs behind the JWT middleware, so reaching it means the
// session is valid
func Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userID":    c.GetString("userID"),
		"email":     c.GetString("email"),
		"firstName": c.GetString("firstName"),
	})
}
