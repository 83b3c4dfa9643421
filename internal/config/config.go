// Package config loads the trace store settings from a YAML file, a .env
// file and CBVS_ environment variables, in increasing precedence.
package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-cbvs/cbvs"
	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/seis"
)

// Config is the trace store configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Write   WriteConfig   `yaml:"write"`
	Storage StorageConfig `yaml:"storage"`

	// Catalog is the dataset catalog file.
	Catalog string `yaml:"catalog,omitempty"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WriteConfig controls how written traces are buffered and regularized.
type WriteConfig struct {
	EnforceRegular  bool   `yaml:"enforceRegular"`
	Regularize      bool   `yaml:"regularize"`
	StackDuplicates bool   `yaml:"stackDuplicates"`
	Window2D        int    `yaml:"window2D"`
	SampleType      string `yaml:"sampleType"`
}

// StorageConfig controls the CBVS file layout.
type StorageConfig struct {
	MaxFileSize int64  `yaml:"maxFileSize"`
	Bricks      string `yaml:"bricks,omitempty"`
	Directory   bool   `yaml:"directory"`
	ByteOrder   string `yaml:"byteOrder"`
}

// Defaults.
const (
	DefaultLogLevel   = "INFO"
	DefaultLogFormat  = "pretty"
	DefaultSampleType = "float32"
	DefaultByteOrder  = "little"
)

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Write: WriteConfig{
			EnforceRegular: true,
			Window2D:       seis.Default2DWindow,
			SampleType:     DefaultSampleType,
		},
		Storage: StorageConfig{ByteOrder: DefaultByteOrder},
	}
}

// ReadFile overlays the YAML file at path onto cfg. A missing file is not
// an error.
func (cfg *Config) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// LoadConfig returns the defaults overlaid by the YAML file at path, the
// .env file at envPath and the environment. Either path may be empty.
func LoadConfig(path, envPath string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.ReadFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	env, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the values that are parsed later.
func (cfg *Config) Validate() error {
	if _, err := seis.ParseSampleType(cfg.Write.SampleType); err != nil {
		return err
	}
	if _, err := cbvs.ParseBrickSpec(cfg.Storage.Bricks); err != nil {
		return fmt.Errorf("%w: %v", seis.ErrConfiguration, err)
	}
	if _, err := cfg.byteOrder(); err != nil {
		return err
	}
	if cfg.Storage.MaxFileSize < 0 {
		return fmt.Errorf("%w: negative max file size", seis.ErrConfiguration)
	}
	return nil
}

func (cfg *Config) byteOrder() (binary.ByteOrder, error) {
	switch strings.ToLower(cfg.Storage.ByteOrder) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: byte order %q", seis.ErrConfiguration, cfg.Storage.ByteOrder)
}

// Logger returns the logger the configuration asks for.
func (cfg *Config) Logger() *log.Logger {
	return log.New(log.Format(strings.ToLower(cfg.Log.Format)), cfg.Log.Level)
}

// SeisOptions returns the translator options for cfg.
func (cfg *Config) SeisOptions(l *log.Logger) ([]seis.Option, error) {
	st, err := seis.ParseSampleType(cfg.Write.SampleType)
	if err != nil {
		return nil, err
	}
	return []seis.Option{
		seis.WithLogger(l.Zerolog()),
		seis.WithEnforceRegularWrite(cfg.Write.EnforceRegular),
		seis.WithRegularize(cfg.Write.Regularize),
		seis.WithStackDuplicates(cfg.Write.StackDuplicates),
		seis.With2DWindow(cfg.Write.Window2D),
		seis.WithDataChar(seis.DataChar{Type: st}),
	}, nil
}

// CodecOptions returns the CBVS options for cfg.
func (cfg *Config) CodecOptions(l *log.Logger) ([]cbvs.Option, error) {
	bricks, err := cbvs.ParseBrickSpec(cfg.Storage.Bricks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", seis.ErrConfiguration, err)
	}
	order, err := cfg.byteOrder()
	if err != nil {
		return nil, err
	}
	return []cbvs.Option{
		cbvs.WithLogger(l.Zerolog()),
		cbvs.WithBricks(bricks),
		cbvs.WithMaxFileSize(cfg.Storage.MaxFileSize),
		cbvs.WithDirectory(cfg.Storage.Directory),
		cbvs.WithByteOrder(order),
	}, nil
}
