package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDataDirEnv(t *testing.T) {
	t.Helper()
	originalTrader := os.Getenv("TRADER_DATA_DIR")
	originalData := os.Getenv("DATA_DIR")
	t.Cleanup(func() {
		if originalTrader != "" {
			os.Setenv("TRADER_DATA_DIR", originalTrader)
		} else {
			os.Unsetenv("TRADER_DATA_DIR")
		}
		if originalData != "" {
			os.Setenv("DATA_DIR", originalData)
		} else {
			os.Unsetenv("DATA_DIR")
		}
	})
	os.Unsetenv("TRADER_DATA_DIR")
	os.Unsetenv("DATA_DIR")
}

func TestLoad_DataDir_FromTRADER_DATA_DIR(t *testing.T) {
	clearDataDirEnv(t)

	tmpDir := t.TempDir()
	os.Setenv("TRADER_DATA_DIR", tmpDir)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoad_DataDir_TRADER_DATA_DIRTakesPrecedence(t *testing.T) {
	clearDataDirEnv(t)

	traderDataDir := filepath.Join(t.TempDir(), "trader")
	oldDataDir := filepath.Join(t.TempDir(), "old")
	os.Setenv("TRADER_DATA_DIR", traderDataDir)
	os.Setenv("DATA_DIR", oldDataDir)

	cfg, err := Load()
	require.NoError(t, err)

	absPath, err := filepath.Abs(traderDataDir)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
	assert.NotEqual(t, oldDataDir, cfg.DataDir)
}

func TestLoad_DataDir_CreatesDirectoryIfNeeded(t *testing.T) {
	clearDataDirEnv(t)

	tmpDir := filepath.Join(t.TempDir(), "new-data-dir")
	os.Setenv("TRADER_DATA_DIR", tmpDir)

	cfg, err := Load()
	require.NoError(t, err)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err, "directory should be created")
	assert.True(t, info.IsDir())
}

func TestLoad_RuleEngineDefaults(t *testing.T) {
	clearDataDirEnv(t)
	os.Setenv("TRADER_DATA_DIR", t.TempDir())
	os.Unsetenv("RULE_DIV_SAFE_EPSILON")
	os.Unsetenv("RULE_DEADLINE_MS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1e-9, cfg.RuleEngine.DivSafeEpsilon)
	assert.Equal(t, 2000, cfg.RuleEngine.EvaluationDeadlineMS)
	assert.Equal(t, "mean", cfg.RuleEngine.AggregationDecisionMode)
	assert.Equal(t, "max", cfg.RuleEngine.AggregationRiskMode)
}

func TestLoad_RuleEngineEnvOverride(t *testing.T) {
	clearDataDirEnv(t)
	os.Setenv("TRADER_DATA_DIR", t.TempDir())
	os.Setenv("RULE_DIV_SAFE_EPSILON", "0.01")
	os.Setenv("RULE_DEADLINE_MS", "500")
	t.Cleanup(func() {
		os.Unsetenv("RULE_DIV_SAFE_EPSILON")
		os.Unsetenv("RULE_DEADLINE_MS")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.RuleEngine.DivSafeEpsilon)
	assert.Equal(t, 500, cfg.RuleEngine.EvaluationDeadlineMS)
}

func TestValidate_RejectsEmptyDataDir(t *testing.T) {
	cfg := &Config{RuleEngine: DefaultRuleEngineConfig()}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsNonPositiveParallelism(t *testing.T) {
	cfg := &Config{DataDir: "/tmp", RuleEngine: DefaultRuleEngineConfig()}
	cfg.RuleEngine.EvaluationParallelism = 0
	err := cfg.Validate()
	require.Error(t, err)
}
