package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BARSIM"

// Env holds the process level overrides read from BARSIM_* variables.
type Env struct {
	Seed      *int64 `envconfig:"SEED"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	Workers   int    `envconfig:"WORKERS"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
}

// LoadEnv reads the given dotenv files, or .env when none are given, before
// processing the environment. Missing dotenv files are ignored.
func LoadEnv(files ...string) (Env, error) {
	_ = godotenv.Load(files...)

	var env Env
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("error processing env config: %w", err)
	}
	return env, nil
}

// Apply copies the run scoped overrides into cfg.
func (e Env) Apply(cfg *Run) {
	if e.Seed != nil {
		cfg.Simulation.Seed = *e.Seed
	}
}
