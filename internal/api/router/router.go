package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shift-swap/backend/config"
	"shift-swap/backend/internal/api/handler"
	"shift-swap/backend/internal/api/middleware"
	"shift-swap/backend/internal/model"
	"shift-swap/backend/pkg/jwt"
	"shift-swap/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(5 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，登录接口限速）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetMe)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.POST("", middleware.RoleAuth(model.RoleManager), h.User.Create)
				users.GET("", middleware.RoleAuth(model.RoleManager), h.User.List)
				users.GET("/:id", h.User.GetByID)
				users.PUT("/:id/role", middleware.RoleAuth(model.RoleManager), h.User.AssignRole)
			}

			// 班次模块
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("/my", h.Shift.ListMine)
				shifts.GET("/export/ics", h.Shift.ExportICS)
				shifts.GET("", middleware.RoleAuth(model.RoleManager), h.Shift.List)
				shifts.POST("", h.Shift.Create) // 员工只能为自己创建（Service 层鉴权）
				shifts.POST("/import", middleware.RoleAuth(model.RoleManager), h.Shift.Import)
				shifts.GET("/:id", h.Shift.GetByID)
				shifts.PUT("/:id", h.Shift.Update)    // 本人或经理（Service 层鉴权）
				shifts.DELETE("/:id", h.Shift.Delete) // 本人或经理（Service 层鉴权）
			}

			// 换班申请模块
			swaps := authorized.Group("/swaps")
			{
				swaps.POST("", h.Swap.Create)
				swaps.GET("/open", h.Swap.ListOpen)
				swaps.GET("/my", h.Swap.ListMine)
				swaps.GET("", middleware.RoleAuth(model.RoleManager), h.Swap.List)
				swaps.GET("/:id", h.Swap.GetByID)
				swaps.POST("/:id/volunteer", h.Swap.Volunteer)
				swaps.POST("/:id/approve", middleware.RoleAuth(model.RoleManager), h.Swap.Approve)
				swaps.POST("/:id/reject", middleware.RoleAuth(model.RoleManager), h.Swap.Reject)
			}

			// 操作日志模块（仅经理）
			logs := authorized.Group("/logs", middleware.RoleAuth(model.RoleManager))
			{
				logs.GET("", h.ActivityLog.List)
				logs.GET("/export", h.ActivityLog.Export)
				logs.GET("/entity/:type/:id", h.ActivityLog.ListByEntity)
			}
		}
	}

	return r
}
