package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shift-swap/backend/pkg/redis"
	"shift-swap/backend/pkg/response"
)

// RateLimit 基于 Redis 固定窗口计数的速率限制，目前只挂在登录接口上。
// 限流键按 客户端IP+路由 组合，避免一个 IP 刷爆口令尝试。
// rdb 为 nil 或 Redis 出错时降级放行，与 JWTAuth 的黑名单策略一致。
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
