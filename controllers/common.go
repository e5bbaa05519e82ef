package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func nowTimestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "Route not found",
	})
}

// MethodNotAllowed answers a known path called with the wrong verb.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"success": false,
		"message": "Method not allowed",
	})
}

// Recovery turns a panic into the generic 500 body.
func Recovery(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Something went wrong!",
	})
}
