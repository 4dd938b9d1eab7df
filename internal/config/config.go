// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir    string // base directory for the rules sqlite database
	LogLevel   string
	Port       int
	DevMode    bool
	RuleEngine RuleEngineConfig
}

// RuleEngineConfig carries the declarative options recognized by the core
// (spec §6.4): epsilon for DIV_SAFE, label thresholds, action constants and
// aggregation/evaluation modes. Every field is data, never code.
type RuleEngineConfig struct {
	DivSafeEpsilon float64

	ThresholdsDecision    []float64 // cut points, ascending, between -1 and 1
	ThresholdsRisk        []float64 // cut points, ascending, between 0 and 1
	ThresholdsOpportunity []float64 // cut points, ascending, between 0 and 1

	ActionBaseSize map[string]float64 // decision label -> base position size
	ActionBaseTP   map[string]float64 // horizon -> base take-profit pct
	ActionBaseSL   map[string]float64 // horizon -> base stop-loss pct
	ActionK        float64            // opportunity elasticity for tp
	ActionKPrime   float64            // risk elasticity for sl

	AggregationDecisionMode    string // mean|median|max|weighted_mean
	AggregationRiskMode        string // max|mean
	AggregationOpportunityMode string // max|mean

	EvaluationDeadlineMS  int
	EvaluationParallelism int
}

// DefaultRuleEngineConfig returns the defaults named in spec.md §4.6/§4.7/§6.4.
func DefaultRuleEngineConfig() RuleEngineConfig {
	return RuleEngineConfig{
		DivSafeEpsilon:        1e-9,
		ThresholdsDecision:    []float64{-0.6, -0.2, 0.2, 0.6},
		ThresholdsRisk:        []float64{0.33, 0.66},
		ThresholdsOpportunity: []float64{0.33, 0.66},
		ActionBaseSize: map[string]float64{
			"STRONG_SELL": 1.0,
			"SELL":        0.5,
			"HOLD":        0.0,
			"BUY":         0.5,
			"STRONG_BUY":  1.0,
		},
		ActionBaseTP: map[string]float64{
			"short":  0.05,
			"medium": 0.10,
			"long":   0.20,
		},
		ActionBaseSL: map[string]float64{
			"short":  0.03,
			"medium": 0.06,
			"long":   0.12,
		},
		ActionK:                    0.5,
		ActionKPrime:               0.5,
		AggregationDecisionMode:    "mean",
		AggregationRiskMode:        "max",
		AggregationOpportunityMode: "max",
		EvaluationDeadlineMS:       2000,
		EvaluationParallelism:      8,
	}
}

// Load reads configuration from environment variables, applying the
// defaults above where unset. A .env file in the working directory is
// loaded first, best-effort, so local development doesn't need the
// variables exported in the shell. TRADER_DATA_DIR takes precedence over
// the legacy DATA_DIR; unset falls back to "/home/arduino/data" (the
// production deployment layout), resolved and created as needed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = getEnv("DATA_DIR", "")
	}
	if dataDir == "" {
		dataDir = "/home/arduino/data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	rc := DefaultRuleEngineConfig()
	if v := getEnv("RULE_DIV_SAFE_EPSILON", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rc.DivSafeEpsilon = f
		}
	}
	if v := getEnv("RULE_DEADLINE_MS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rc.EvaluationDeadlineMS = n
		}
	}
	if v := getEnv("RULE_PARALLELISM", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rc.EvaluationParallelism = n
		}
	}
	if v := getEnv("RULE_AGGREGATION_DECISION_MODE", ""); v != "" {
		rc.AggregationDecisionMode = strings.ToLower(v)
	}

	cfg := &Config{
		DataDir:    absDataDir,
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Port:       getEnvAsInt("PORT", 8080),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		RuleEngine: rc,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required invariants on the loaded configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.RuleEngine.EvaluationParallelism <= 0 {
		return fmt.Errorf("evaluation.parallelism must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
