package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
)

type Deps struct {
	Session  *handlers.SessionHandler
	Proctor  *handlers.ProctorHandler
	Progress *handlers.ProgressHandler
	WS       *handlers.WSHandler
	Log      *logrus.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(gin.Recovery())
	if d.Log != nil {
		r.Use(middleware.RequestLogger(d.Log))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	s := r.Group("/session")
	s.GET("", d.Session.Get)
	s.POST("/start", d.Session.Start)
	s.POST("/answer", d.Session.Answer)
	s.POST("/stop-listening", d.Session.StopListening)
	s.POST("/resume-listening", d.Session.ResumeListening)
	s.POST("/code", d.Session.SubmitCode)
	s.POST("/end", d.Session.End)

	r.GET("/proctor", d.Proctor.Status)
	r.POST("/proctor/events", d.Proctor.Event)

	r.GET("/progress", d.Progress.Get)
	r.GET("/progress/allow/:page", d.Progress.Allow)
	r.GET("/reports", d.Progress.Reports)
	r.GET("/reports/:session_id", d.Progress.Report)

	r.GET("/ws/events", d.WS.Events)
}

// Handler wraps the engine for tracing; spans are named after the route.
func Handler(r *gin.Engine) http.Handler {
	return otelhttp.NewHandler(r, "companion",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}
