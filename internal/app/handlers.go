package app

import (
	"github.com/gin-gonic/gin"

	nethttp "github.com/structa/knowledge-backend/internal/http"
	httpH "github.com/structa/knowledge-backend/internal/http/handlers"
	"github.com/structa/knowledge-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Knowledge *httpH.KnowledgeHandler
	Duration  *httpH.DurationHandler
	Job       *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")

	deps := map[string]httpH.Pinger{}
	if clients.Neo4j != nil {
		deps["neo4j"] = clients.Neo4j
	} else {
		deps["neo4j"] = nil
	}
	if clients.VectorStore != nil {
		deps["qdrant"] = clients.VectorStore
	} else {
		deps["qdrant"] = nil
	}

	return Handlers{
		Health:    httpH.NewHealthHandler(deps),
		Knowledge: httpH.NewKnowledgeHandler(services.Knowledge, services.Enrichment),
		Duration:  httpH.NewDurationHandler(services.Duration),
		Job:       httpH.NewJobHandler(services.Enrichment),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers) *gin.Engine {
	return nethttp.NewRouter(nethttp.RouterConfig{
		Log:              log,
		ServiceName:      cfg.ServiceName,
		HealthHandler:    handlers.Health,
		KnowledgeHandler: handlers.Knowledge,
		DurationHandler:  handlers.Duration,
		JobHandler:       handlers.Job,
	})
}
