package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shift-swap/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制，导入接口的上传文件也受此约束
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() {
			return
		}
		// MaxBytesReader 触发的错误由 gin 收集在 c.Errors 中
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil && ginErr.Err.Error() == "http: request body too large" {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
