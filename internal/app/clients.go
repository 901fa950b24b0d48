package app

import (
	"context"
	"fmt"

	"github.com/structa/knowledge-backend/internal/platform/logger"
	"github.com/structa/knowledge-backend/internal/platform/neo4jdb"
	"github.com/structa/knowledge-backend/internal/platform/openai"
	"github.com/structa/knowledge-backend/internal/platform/qdrant"
)

type Clients struct {
	Neo4j       *neo4jdb.Client
	VectorStore qdrant.VectorStore
	Openai      openai.Client
}

// wireClients connects the external stores. Qdrant and OpenAI are
// optional: without them the service degrades to fulltext-only search
// with generation disabled.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	var store qdrant.VectorStore
	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		return Clients{}, fmt.Errorf("resolve qdrant config: %w", err)
	}
	if qcfg.URL != "" {
		store, err = qdrant.NewVectorStore(log, qcfg)
		if err != nil {
			log.Warn("qdrant unavailable; vector search disabled", "error", err)
			store = nil
		}
	} else {
		log.Info("QDRANT_URL not set; vector search disabled")
	}

	oc, err := openai.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	if oc == nil {
		log.Info("OPENAI_API_KEY not set; generation and embedding disabled")
	}

	return Clients{
		Neo4j:       neo,
		VectorStore: store,
		Openai:      oc,
	}, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
}
