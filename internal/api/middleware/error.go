package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martijn/accountd/internal/api/dto"
)

// ErrorHandlerMiddleware handles panics and errors so that one failing request
// never takes the server down.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
					Error: "An unexpected error occurred.",
				})
				c.Abort()
			}
		}()

		c.Next()

		// Check if there are any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error: err.Error(),
			})
		}
	}
}
