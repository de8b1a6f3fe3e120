package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mikeboe/deep-research/pkg/clients"
	"github.com/mikeboe/deep-research/pkg/config"
	"github.com/mikeboe/deep-research/pkg/database"
	"github.com/mikeboe/deep-research/pkg/llm"
	"github.com/mikeboe/deep-research/pkg/research"
	"github.com/mikeboe/deep-research/pkg/search"
	"github.com/mikeboe/deep-research/pkg/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	cfg := config.Load()
	ctx := context.Background()

	searcher, cleanup, err := buildSearchEngine(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init search engine: %v", err)
	}
	defer cleanup()

	dr, err := buildResearch(ctx, cfg, searcher)
	if err != nil {
		log.Fatalf("Failed to init research engine: %v", err)
	}

	svc := server.NewService(dr)
	h := server.NewHandler(svc)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all for dev
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	h.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildSearchEngine selects the provider and, when DATABASE_URL is set,
// wraps it with the Postgres-backed query cache.
func buildSearchEngine(ctx context.Context, cfg *config.Config) (search.Engine, func(), error) {
	var engine search.Engine
	switch cfg.SearchProvider {
	case "arxiv":
		engine = search.NewArxiv(5)
	default:
		tavily, err := search.NewTavily(cfg.TavilyAPIKey, "basic")
		if err != nil {
			return nil, nil, err
		}
		engine = tavily
	}

	cleanup := func() {}
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		engine = search.NewCachedEngine(db.Pool, engine, cfg.SearchProvider, 24*time.Hour)
		cleanup = db.Close
	}
	return engine, cleanup, nil
}

func buildResearch(ctx context.Context, cfg *config.Config, searcher search.Engine) (*research.DeepResearch, error) {
	plannerModel, err := clients.ForModel(ctx, cfg.PlanningModel)
	if err != nil {
		return nil, err
	}
	summaryModel, err := clients.ForModel(ctx, cfg.SummaryModel)
	if err != nil {
		return nil, err
	}

	researchCfg := research.DefaultConfig()
	researchCfg.MaxPlanningRounds = cfg.MaxPlanningRounds
	researchCfg.MaxSearchWords = cfg.MaxSearchWords

	opts := []research.Option{research.WithConfig(researchCfg)}
	if cfg.UseIntention {
		intentModel, err := clients.ForModel(ctx, cfg.IntentionModel)
		if err != nil {
			return nil, err
		}
		researchCfg.UsingIntention = true
		researchCfg.IntentionTemplate = research.DefaultIntentionTemplate
		opts = []research.Option{
			research.WithConfig(researchCfg),
			research.WithIntentionModel(llm.NewClient(intentModel, "intention")),
		}
	}

	return research.New(
		searcher,
		llm.NewClient(plannerModel, "planning"),
		llm.NewClient(summaryModel, "summary"),
		opts...,
	)
}
