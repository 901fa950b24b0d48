package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/structa/knowledge-backend/internal/http/handlers"
	httpMW "github.com/structa/knowledge-backend/internal/http/middleware"
	"github.com/structa/knowledge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ServiceName string

	KnowledgeHandler *httpH.KnowledgeHandler
	DurationHandler  *httpH.DurationHandler
	JobHandler       *httpH.JobHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/healthcheck/ready", cfg.HealthHandler.Readiness)
	}

	api := r.Group("/api")
	{
		// Knowledge
		if cfg.KnowledgeHandler != nil {
			api.POST("/knowledge/search", cfg.KnowledgeHandler.Search)
			api.POST("/knowledge/answer", cfg.KnowledgeHandler.Answer)
			api.POST("/knowledge/card", cfg.KnowledgeHandler.Card)
			api.POST("/knowledge/enrich", cfg.KnowledgeHandler.Enrich)
			api.POST("/knowledge/evidence-pack", cfg.KnowledgeHandler.EvidencePack)
		}

		// Agents
		if cfg.DurationHandler != nil {
			api.POST("/agents/duration", cfg.DurationHandler.Plan)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
