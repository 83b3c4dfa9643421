package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "CBVS"

// EnvConfig holds the environment overrides. Unset variables leave the
// file or default value in place.
type EnvConfig struct {
	// Env: CBVS_LOG_LEVEL
	LogLevel *string `envconfig:"LOG_LEVEL"`

	// Env: CBVS_LOG_FORMAT
	LogFormat *string `envconfig:"LOG_FORMAT"`

	// NoRegularWrite disables sorting and de-duplication of written blocks.
	// Env: CBVS_NO_SEISWRITE_REGULARISATION
	NoRegularWrite *bool `envconfig:"NO_SEISWRITE_REGULARISATION"`

	// FillSurvey fills the declared survey range with filler traces.
	// Env: CBVS_ENFORCE_SURVINFO_SEISWRITE
	FillSurvey *bool `envconfig:"ENFORCE_SURVINFO_SEISWRITE"`

	// Env: CBVS_STACK_DUPLICATES
	StackDuplicates *bool `envconfig:"STACK_DUPLICATES"`

	// Env: CBVS_MAX_FILE_SIZE
	MaxFileSize *int64 `envconfig:"MAX_FILE_SIZE"`

	// Env: CBVS_BRICKS
	Bricks *string `envconfig:"BRICKS"`

	// Env: CBVS_CATALOG
	Catalog *string `envconfig:"CATALOG"`
}

// LoadFromEnv reads the CBVS_ variables.
func LoadFromEnv() (EnvConfig, error) {
	var env EnvConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return EnvConfig{}, err
	}
	return env, nil
}

// Apply overrides cfg with every variable that was set.
func (env EnvConfig) Apply(cfg *Config) {
	if env.LogLevel != nil {
		cfg.Log.Level = *env.LogLevel
	}
	if env.LogFormat != nil {
		cfg.Log.Format = *env.LogFormat
	}
	if env.NoRegularWrite != nil {
		cfg.Write.EnforceRegular = !*env.NoRegularWrite
	}
	if env.FillSurvey != nil {
		cfg.Write.Regularize = *env.FillSurvey
	}
	if env.StackDuplicates != nil {
		cfg.Write.StackDuplicates = *env.StackDuplicates
	}
	if env.MaxFileSize != nil {
		cfg.Storage.MaxFileSize = *env.MaxFileSize
	}
	if env.Bricks != nil {
		cfg.Storage.Bricks = *env.Bricks
	}
	if env.Catalog != nil {
		cfg.Catalog = *env.Catalog
	}
}

// LoadDotEnv loads variables from a .env file, ".env" when path is empty.
// A missing file is not an error. Variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
