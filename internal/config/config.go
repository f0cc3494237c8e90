// Package config loads the application configuration from config.yaml and
// PMT_-prefixed environment variables, and owns the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Contiguity ContiguityConfig `yaml:"contiguity" mapstructure:"contiguity"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the results backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database path.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ContiguityConfig configures the contiguity index engine.
type ContiguityConfig struct {
	ParcelsPath   string `yaml:"parcels_path" mapstructure:"parcels_path"`
	BuildingsPath string `yaml:"buildings_path" mapstructure:"buildings_path"`
	ParcelIDField string `yaml:"parcel_id_field" mapstructure:"parcel_id_field"`
	// CellSize is the raster cell edge length in the input CRS linear unit.
	CellSize float64 `yaml:"cell_size" mapstructure:"cell_size"`
	// Chunks is the target processing chunk count.
	Chunks int `yaml:"chunks" mapstructure:"chunks"`
	// Weights is a preset name (rook, queen, nn).
	Weights string `yaml:"weights" mapstructure:"weights"`
	// WeightsFile points at a YAML kernel file and overrides Weights.
	WeightsFile string `yaml:"weights_file" mapstructure:"weights_file"`
	// Stats are the parcel summary statistics; empty means all four.
	Stats []string `yaml:"stats" mapstructure:"stats"`
	// AreaScaling adds contiguity-scaled area columns.
	AreaScaling bool `yaml:"area_scaling" mapstructure:"area_scaling"`
	// AreaUnitDivisor converts cell_size² units to reporting units
	// (43560 reports ft² inputs as acres).
	AreaUnitDivisor float64 `yaml:"area_unit_divisor" mapstructure:"area_unit_divisor"`
	// Workers bounds concurrent chunk rasterization; 1 is sequential.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// SRID tags audit geometries; 0 disables geometry storage.
	SRID int `yaml:"srid" mapstructure:"srid"`
}

// ServerConfig configures the results HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory, layered under PMT_*
// environment variables and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "pmt.db")
	v.SetDefault("contiguity.parcel_id_field", "PARCELNO")
	v.SetDefault("contiguity.cell_size", 40)
	v.SetDefault("contiguity.chunks", 20)
	v.SetDefault("contiguity.weights", "nn")
	v.SetDefault("contiguity.stats", []string{"min", "max", "mean", "median"})
	v.SetDefault("contiguity.area_scaling", true)
	v.SetDefault("contiguity.area_unit_divisor", 43560)
	v.SetDefault("contiguity.workers", 4)
	v.SetDefault("contiguity.srid", 2881)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
