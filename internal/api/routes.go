package api

import (
	"net/http"

	"alcyxob/plan-calendar/internal/metrics"
	"alcyxob/plan-calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the secrets and observability hooks for SetupRoutes.
type RouterConfig struct {
	JWTSecret     string
	WebhookSecret string
	Metrics       *metrics.Manager     // optional
	Gatherer      prometheus.Gatherer // optional; enables /metrics
}

type Services struct {
	Plans    service.PlanService
	Calendar service.CalendarService
	Logs     service.SessionLogService
	Progress service.ProgressService
	Export   service.ExportService
	Events   service.EventService
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig, svc Services) {
	planHandler := NewPlanHandler(svc.Plans)
	calendarHandler := NewCalendarHandler(svc.Calendar, svc.Export)
	logHandler := NewLogHandler(svc.Logs, svc.Progress)
	eventHandler := NewEventHandler(svc.Events)

	authMiddleware := AuthMiddleware(cfg.JWTSecret)

	router.Use(RequestLogger())
	if cfg.Metrics != nil {
		router.Use(RequestMetrics(cfg.Metrics))
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		// Machine-to-machine, shared secret instead of a user token
		webhooks := apiV1.Group("/webhooks")
		webhooks.Use(WebhookSecretMiddleware(cfg.WebhookSecret))
		{
			webhooks.POST("/plans", planHandler.IngestPlan)
			webhooks.POST("/events", eventHandler.SyncEvents)
		}

		protected := apiV1.Group("")
		protected.Use(authMiddleware)
		{
			plans := protected.Group("/plans")
			{
				plans.POST("/generate", planHandler.RequestGeneration)
				plans.GET("/current", planHandler.GetCurrent)
				plans.DELETE("/current", planHandler.DiscardPlans)
			}

			calendar := protected.Group("/calendar")
			{
				calendar.GET("", calendarHandler.GetWeek)
				calendar.GET("/days/:date", calendarHandler.GetDay)
				calendar.POST("/export", calendarHandler.ExportCalendar)

				sessions := calendar.Group("/sessions/:sessionId")
				{
					sessions.PUT("/override", calendarHandler.MoveSession)
					sessions.DELETE("/override", calendarHandler.ResetSession)
					sessions.PUT("/log", logHandler.SaveLog)
					sessions.GET("/log", logHandler.GetLog)
				}

				weeks := calendar.Group("/weeks")
				{
					weeks.GET("/reset", calendarHandler.PreviewWeekReset)
					weeks.POST("/reset", calendarHandler.ResetWeek)
				}
			}

			protected.GET("/logs", logHandler.ListLogs)
			protected.GET("/dashboard", logHandler.Dashboard)
			protected.GET("/events", eventHandler.ListUpcoming)
		}
	}
}
