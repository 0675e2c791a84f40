// Command qoverflow-indexes creates the MongoDB indexes the API relies on
// and exits. The API server runs the same step at startup; this is for
// deployments that manage schema changes separately.
package main

import (
	"context"
	"os"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/database"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required")
	}

	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	if err := database.EnsureIndexes(ctx, client.Database(cfg.MongoDB.Database)); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	for col, models := range database.Indexes() {
		logger.Infow("indexes ensured", "collection", col, "count", len(models))
	}
}
