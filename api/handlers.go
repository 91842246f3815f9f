package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pixloom/pixloom/internal/apierror"
)

// errorResponse renders a service error with the status its code maps to.
// Unknown errors come out as 500 without leaking internals.
func errorResponse(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(status, gin.H{"error": "Internal server error"})
}
