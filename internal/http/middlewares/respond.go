package middlewares

import "github.com/gin-gonic/gin"

// abortWithError writes the same envelope the handlers use and stops the chain.
func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":      code,
			"requestId": id,
		},
	})
}
