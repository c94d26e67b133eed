package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/barsim/pkg/config"
	"github.com/peter-kozarec/barsim/pkg/datasource/historical"
	"github.com/peter-kozarec/barsim/pkg/middleware"
	"github.com/peter-kozarec/barsim/pkg/sweep"
)

const runToml = `
[market]
align = "timestamp"

[[market.sources]]
symbol = "SYN"
kind = "synthetic"

[market.sources.synthetic]
start = "2024-01-01"
start_price = 100.0
mu = 0.05
sigma = 0.3
bars = 60

[[strategies.SYN]]
type = "momentum"
params = { period = 5, threshold = 0.01 }

[[strategies.SYN]]
type = "rsi_reversion"
weight = 0.5

[execution]
base_weight_per_symbol = 0.05

[simulation]
seed = 5
fee = 1.0
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(runToml), 0o600))
	return path
}

func TestRunBacktest(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t), config.Env{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runBacktest(context.Background(), zaptest.NewLogger(t), cfg, middleware.MonitorTrades, "", &out))

	var printed struct {
		Steps  int64 `json:"steps"`
		Report struct {
			EquitySamples int `json:"equity_samples"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, int64(60), printed.Steps)
	assert.Equal(t, 60, printed.Report.EquitySamples)
}

func TestLoadConfig_AppliesEnv(t *testing.T) {
	seed := int64(99)
	cfg, err := loadConfig(writeConfig(t), config.Env{Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Simulation.Seed)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"), config.Env{})
	assert.Error(t, err)
}

func TestWriteTables(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t), config.Env{})
	require.NoError(t, err)

	grids := []sweep.Grid{sweep.WeightGrid(cfg, "SYN", "momentum", []any{0.5, 1.0})}
	var out bytes.Buffer
	require.NoError(t, writeTables(&out, grids, nil))
	assert.Contains(t, out.String(), "SYN momentum weight")
	assert.Contains(t, out.String(), "momentum_weight")
}

func TestDumpBars(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "2023.csv")
	second := filepath.Join(dir, "2024.csv")
	require.NoError(t, os.WriteFile(first, []byte("Datetime,Open,High,Low,Close,Volume\n"+
		"2023-12-28 00:00:00,10,11,9,10,100\n"+
		"2023-12-29 00:00:00,10,12,10,11,\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("Datetime,Open,High,Low,Close,Volume\n"+
		"2024-01-02 00:00:00,11,11,10,10.5,50\n"), 0o600))

	output := filepath.Join(dir, "bars.bin")
	logger := zaptest.NewLogger(t)

	n, err := dumpBars(context.Background(), logger, []string{first, second}, "Datetime", output)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	source := historical.NewSource[historical.BinaryBar](output)
	require.NoError(t, source.Open())
	defer func() { assert.NoError(t, source.Close()) }()

	count, err := source.EntryCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	bars := historical.NewBarReader(source, "ABC", time.Time{}, time.Time{})
	bar, err := bars.Next()
	require.NoError(t, err)
	assert.Equal(t, "ABC", bar.Symbol)
	bar, err = bars.Next()
	require.NoError(t, err)
	assert.True(t, bar.MissingVolume)

	overlapping := filepath.Join(dir, "overlap.bin")
	_, err = dumpBars(context.Background(), logger, []string{second, first}, "Datetime", overlapping)
	assert.Error(t, err)
	assert.NoFileExists(t, overlapping)
}
