// Package app wires configuration, storage, the model provider, tools
// and the orchestrator into one application container.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/generate"
	"github.com/coursechat/coursechat/internal/ingest"
	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/store"
	"github.com/coursechat/coursechat/internal/tools"
)

// App is the application container. Setup builds it, Close releases it.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store    *store.Store
	Ingester *ingest.Ingester
	Registry *tools.Registry
	Engine   *generate.Engine
	Sessions *session.Store
	RAG      *rag.System

	otelCleanup func()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
