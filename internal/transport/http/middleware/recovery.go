package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "ons-backend/internal/transport/http/response"
)

// RecoveryResponse 交给 ginzap.CustomRecoveryWithZap，panic 记录由 ginzap 负责
func RecoveryResponse(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp.Error(resp.CodeInternal, ""))
}
