package config

import (
	"os"
	"strconv"
)

// Config carries the environment-driven settings shared by the CLI and
// the server.
type Config struct {
	PlanningModel     string
	SummaryModel      string
	IntentionModel    string
	UseIntention      bool
	MaxPlanningRounds int
	MaxSearchWords    int
	SearchProvider    string
	TavilyAPIKey      string
	DatabaseURL       string
	Port              string
}

func Load() *Config {
	return &Config{
		PlanningModel:     getEnv("PLANNING_MODEL", "deepseek-r1"),
		SummaryModel:      getEnv("SUMMARY_MODEL", "deepseek-r1"),
		IntentionModel:    getEnv("INTENTION_MODEL", ""),
		UseIntention:      getEnvAsBool("USE_INTENTION", false),
		MaxPlanningRounds: getEnvAsInt("MAX_PLANNING_ROUNDS", 5),
		MaxSearchWords:    getEnvAsInt("MAX_SEARCH_WORDS", 5),
		SearchProvider:    getEnv("SEARCH_PROVIDER", "tavily"),
		TavilyAPIKey:      getEnv("TAVILY_API_KEY", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Port:              getEnv("PORT", "8888"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
