package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mikeboe/deep-research/pkg/clients"
	"github.com/mikeboe/deep-research/pkg/config"
	"github.com/mikeboe/deep-research/pkg/llm"
	"github.com/mikeboe/deep-research/pkg/research"
	"github.com/mikeboe/deep-research/pkg/search"
	"github.com/spf13/cobra"
)

var question string

func main() {
	// Setup structured logging on stderr so the streamed answer stays
	// readable on stdout.
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	rootCmd := &cobra.Command{
		Use:   "deep-research",
		Short: "A terminal-based deep research agent",
		Long:  `deep-research answers a question by looping between planning and web search, then streams a final answer grounded in everything it found.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("question") {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter research question: ")
				input, _ := reader.ReadString('\n')
				question = strings.TrimSpace(input)
			}
			if question == "" {
				slog.Error("Question cannot be empty")
				os.Exit(1)
			}

			cfg := config.Load()

			dr, err := buildResearch(cmd.Context(), cfg)
			if err != nil {
				slog.Error("Error initializing engine", "error", err)
				os.Exit(1)
			}

			req := &research.Request{
				Messages: []research.Message{{Role: research.RoleUser, Content: question}},
			}

			thinking := false
			for chunk, err := range dr.StreamDeepResearch(cmd.Context(), req, question) {
				if err != nil {
					slog.Error("Error running research", "error", err)
					os.Exit(1)
				}
				if chunk.ReasoningContent != "" {
					if !thinking {
						fmt.Print("\n----思考过程----\n\n")
						thinking = true
					}
					fmt.Print(chunk.ReasoningContent)
				} else if chunk.Content != "" {
					if thinking {
						fmt.Print("\n----输出回答----\n\n")
						thinking = false
					}
					fmt.Print(chunk.Content)
				}
			}
			fmt.Println()
		},
	}

	rootCmd.Flags().StringVarP(&question, "question", "q", "", "The research question")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildResearch(ctx context.Context, cfg *config.Config) (*research.DeepResearch, error) {
	var searcher search.Engine
	switch cfg.SearchProvider {
	case "arxiv":
		searcher = search.NewArxiv(5)
	default:
		tavily, err := search.NewTavily(cfg.TavilyAPIKey, "basic")
		if err != nil {
			return nil, err
		}
		searcher = tavily
	}

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

	return research.New(
		searcher,
		llm.NewClient(plannerModel, "planning"),
		llm.NewClient(summaryModel, "summary"),
		research.WithConfig(researchCfg),
	)
}
