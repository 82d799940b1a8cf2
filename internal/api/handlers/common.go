package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stageiq/stageiq/internal/utils"
)

// writeError renders the shared error envelope for any error the services
// return. Status and body both come from utils so handlers and middleware
// stay consistent.
func writeError(c *gin.Context, err error) {
	status, body := utils.BodyFor(err)
	c.JSON(status, body)
}

// requireUserID reads the subject set by the auth middleware; a missing or
// empty value means the route was mounted without it.
func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}
