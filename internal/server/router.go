package server

import (
	"net/http"

	"studhelp/internal/config"
	"studhelp/internal/handlers"
	"studhelp/internal/middleware"
	"studhelp/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handlers.SetProgressPolicy(cfg.ProgressPolicy)

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("studhelp_session", store))

	r.Use(middleware.InjectUser())

	api := r.Group("/api")

	// AUTH
	api.POST("/register", handlers.Register)
	api.POST("/login", handlers.Login)
	api.POST("/logout", handlers.Logout)

	auth := api.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.GET("/me", handlers.Me)

	// ЗАКАЗЫ: жизненный цикл
	auth.POST("/orders",
		middleware.RequireRole(models.RoleClient),
		handlers.CreateOrder,
	)
	auth.GET("/orders", handlers.ListOrders)
	auth.GET("/orders/:id", handlers.GetOrder)
	auth.GET("/orders/:id/history", handlers.OrderHistory)

	auth.POST("/orders/:id/quote",
		middleware.RequireRole(models.RoleAdmin),
		handlers.QuoteOrder,
	)
	auth.POST("/orders/:id/accept",
		middleware.RequireRole(models.RoleClient),
		handlers.AcceptQuote,
	)
	auth.POST("/orders/:id/reject",
		middleware.RequireRole(models.RoleAdmin),
		handlers.RejectOrder,
	)
	auth.POST("/orders/:id/assign",
		middleware.RequireRole(models.RoleAdmin),
		handlers.AssignWorkers,
	)
	auth.POST("/orders/:id/status",
		middleware.RequireRole(models.RoleAdmin),
		handlers.ChangeOrderStatus,
	)
	// исполнительский путь: только working → review
	auth.POST("/orders/:id/worker-status",
		middleware.RequireRole(models.RoleDeveloper),
		handlers.WorkerStatusUpdate,
	)
	auth.POST("/orders/:id/deliver",
		middleware.RequireRole(models.RoleAdmin),
		handlers.DeliverOrder,
	)

	// КОМАНДА
	auth.POST("/orders/:id/team",
		middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper),
		handlers.AddTeamMember,
	)
	auth.POST("/orders/:id/lead",
		middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper),
		handlers.ChangeLead,
	)
	auth.POST("/orders/:id/team/:worker_id/remove",
		middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper),
		handlers.RemoveTeamMember,
	)
	auth.PATCH("/orders/:id/team/:worker_id",
		middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper),
		handlers.UpdateTeamMember,
	)
	auth.POST("/orders/:id/team/:worker_id/modules",
		middleware.RequireRole(models.RoleDeveloper),
		handlers.AssignModule,
	)
	auth.POST("/orders/:id/my-progress",
		middleware.RequireRole(models.RoleDeveloper),
		handlers.RecordProgress,
	)

	// БАРЬЕР РЕЛИЗОВ
	auth.POST("/orders/:id/release",
		middleware.RequireRole(models.RoleDeveloper),
		handlers.ReleaseOrder,
	)
	auth.GET("/orders/:id/release-status", handlers.GetReleaseStatus)

	// ПРОГРЕСС
	auth.POST("/orders/:id/progress",
		middleware.RequireRole(models.RoleAdmin),
		handlers.SetProgress,
	)
	auth.POST("/orders/:id/board-sync", handlers.BoardSync)

	// ЗАПРОСЫ КОМАНДЫ
	auth.POST("/orders/:id/requests",
		middleware.RequireRole(models.RoleDeveloper),
		handlers.SubmitTeamRequest,
	)
	auth.GET("/orders/:id/requests", handlers.ListTeamRequests)
	auth.POST("/requests/:id/respond",
		middleware.RequireRole(models.RoleAdmin),
		handlers.RespondTeamRequest,
	)

	// ФАЙЛЫ
	auth.POST("/orders/:id/deliverables", handlers.UploadDeliverable)
	auth.GET("/orders/:id/deliverables", handlers.ListDeliverables)

	// УВЕДОМЛЕНИЯ
	auth.GET("/notifications", handlers.ListMyNotifications)
	auth.POST("/notifications/:id/read", handlers.MarkNotificationRead)

	// АУДИТ
	auth.GET("/audit",
		middleware.RequireRole(models.RoleAdmin),
		handlers.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
