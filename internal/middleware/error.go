package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/discharge-api/pkg/httputil"
)

// ErrorHandler writes the last error attached with c.Error when the handler
// neither wrote a response nor chose a status itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() || c.Writer.Status() != http.StatusOK {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}
