// Package config loads the engine's enumerated configuration (spec §6)
// from environment variables, following the teacher's nested-struct
// convention (store.StrategyConfig) rather than a flat bag of scalars.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kpizzy812/futures-scenario-engine/logger"
)

type PipelineConfig struct {
	MaxScenariosDefault int
	PrimaryOHLCVBars    int
	LookbackIntraday    int
	LookbackDaily       int
	SwingMinSeparation  int
	LiqBinPct           float64
	SentimentBaseWeight float64
	LLMTemperature      float64
	RequestDeadline     time.Duration
	CacheTTL            time.Duration
	LLMSemaphoreSize    int
	LLMAcquireTimeout   time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type ProviderConfig struct {
	BinanceAPIKey    string
	BinanceAPISecret string
	BybitAPIKey      string
	BybitAPISecret   string
	FearGreedURL     string
}

// AIConfig picks which mcp.AIClient the Scenario Generator talks to.
type AIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

type ServerConfig struct {
	Addr        string
	JWTSecret   string
	SQLitePath  string
	MetricsAddr string
}

type Config struct {
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Provider  ProviderConfig
	AI        AIConfig
	Server    ServerConfig
	JSONLogs  bool
}

// Load reads a .env file if present (development convenience, mirrors
// the teacher's use of godotenv) and then environment variables, never
// failing outright — every field has a spec-mandated default.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file loaded: %v", err)
	}

	return &Config{
		Pipeline: PipelineConfig{
			MaxScenariosDefault: envInt("MAX_SCENARIOS_DEFAULT", 3),
			PrimaryOHLCVBars:    envInt("PRIMARY_OHLCV_BARS", 200),
			LookbackIntraday:    envInt("LOOKBACK_INTRADAY", 50),
			LookbackDaily:       envInt("LOOKBACK_DAILY", 30),
			SwingMinSeparation:  envInt("SWING_MIN_SEPARATION", 5),
			LiqBinPct:           envFloat("LIQ_BIN_PCT", 0.005),
			SentimentBaseWeight: envFloat("SENTIMENT_BASE_WEIGHT", 1.0),
			LLMTemperature:      envFloat("LLM_TEMPERATURE", 0.2),
			RequestDeadline:     envSeconds("REQUEST_DEADLINE_S", 30),
			CacheTTL:            envSeconds("CACHE_TTL_S", 60),
			LLMSemaphoreSize:    envInt("LLM_SEMAPHORE_SIZE", 8),
			LLMAcquireTimeout:   envSeconds("LLM_ACQUIRE_TIMEOUT_S", 5),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloat("RATE_LIMIT_RPS", 5),
			Burst:             envInt("RATE_LIMIT_BURST", 10),
		},
		Provider: ProviderConfig{
			BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
			BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
			BybitAPIKey:      os.Getenv("BYBIT_API_KEY"),
			BybitAPISecret:   os.Getenv("BYBIT_API_SECRET"),
			FearGreedURL:     envString("FEAR_GREED_URL", "https://api.alternative.me/fng/?limit=1"),
		},
		AI: AIConfig{
			Provider: envString("AI_PROVIDER", "openai"),
			APIKey:   os.Getenv("AI_API_KEY"),
			BaseURL:  os.Getenv("AI_BASE_URL"),
			Model:    os.Getenv("AI_MODEL"),
		},
		Server: ServerConfig{
			Addr:        envString("SERVER_ADDR", ":8080"),
			JWTSecret:   envString("JWT_SECRET", "dev-secret-change-me"),
			SQLitePath:  envString("SQLITE_PATH", "./engine.db"),
			MetricsAddr: envString("METRICS_ADDR", ":9090"),
		},
		JSONLogs: envBool("JSON_LOGS", false),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("invalid int for %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warnf("invalid float for %s=%q, using default %v", key, v, def)
		return def
	}
	return f
}

func envSeconds(key string, defSeconds int) time.Duration {
	return time.Duration(envInt(key, defSeconds)) * time.Second
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
