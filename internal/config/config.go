package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/jurisdiction-cli/internal/metrics"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Geometry GeometryConfig `yaml:"geometry" mapstructure:"geometry"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Tax      TaxConfig      `yaml:"tax" mapstructure:"tax"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Tiger    TigerConfig    `yaml:"tiger" mapstructure:"tiger"`
}

// StoreConfig configures the PostGIS database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Source kinds.
const (
	SourceShapefile = "shapefile"
	SourcePostGIS   = "postgis"
)

// SourceConfig selects where jurisdictions are read from.
type SourceConfig struct {
	Kind string `yaml:"kind" mapstructure:"kind"`
	Path string `yaml:"path" mapstructure:"path"`
}

// Geometry providers.
const (
	ProviderGEOS    = "geos"
	ProviderPostGIS = "postgis"
)

// GeometryConfig selects the geometry provider. geos works with either
// source kind; postgis needs source.kind postgis.
type GeometryConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// MetricsConfig holds border tier thresholds and ranking size.
type MetricsConfig struct {
	metrics.Thresholds `yaml:",inline" mapstructure:",squash"`
	TopNComplexity     int `yaml:"top_n_complexity" mapstructure:"top_n_complexity"`
}

// AnalysisConfig tunes the pipeline.
type AnalysisConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// TaxConfig configures the tax attribute join. DefaultRate applies a single
// sales and use rate to jurisdictions missing from the rates file.
type TaxConfig struct {
	DefaultRate *float64 `yaml:"default_rate" mapstructure:"default_rate"`
	RatesFile   string   `yaml:"rates_file" mapstructure:"rates_file"`
}

// ExportConfig controls report outputs.
type ExportConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	SQLite   string `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres bool   `yaml:"postgres" mapstructure:"postgres"`
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// TigerConfig configures the Census TIGER/Line download.
type TigerConfig struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// Validate checks the settings a command mode depends on. Modes are
// "analyze", "load", "fetch" and "lookup".
func (c *Config) Validate(mode string) error {
	var errs []string

	requireDB := func() {
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}
	checkSource := func() {
		switch c.Source.Kind {
		case SourceShapefile:
			if c.Source.Path == "" {
				errs = append(errs, "source.path is required for source.kind shapefile")
			}
		case SourcePostGIS:
			requireDB()
		default:
			errs = append(errs, fmt.Sprintf("source.kind %q must be shapefile or postgis", c.Source.Kind))
		}
	}

	switch mode {
	case "analyze":
		checkSource()
		switch c.Geometry.Provider {
		case ProviderGEOS:
		case ProviderPostGIS:
			if c.Source.Kind == SourceShapefile {
				errs = append(errs, "geometry.provider postgis requires source.kind postgis")
			}
		default:
			errs = append(errs, fmt.Sprintf("geometry.provider %q must be geos or postgis", c.Geometry.Provider))
		}
		if err := c.Metrics.Thresholds.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if c.Metrics.TopNComplexity < 0 {
			errs = append(errs, "metrics.top_n_complexity must be >= 0")
		}
		if c.Analysis.Concurrency < 1 || c.Analysis.Concurrency > 64 {
			errs = append(errs, "analysis.concurrency must be between 1 and 64")
		}
		if c.Export.Postgres {
			requireDB()
		}
	case "load":
		requireDB()
	case "fetch":
		if c.Tiger.TempDir == "" {
			errs = append(errs, "tiger.temp_dir is required")
		}
	case "lookup":
		checkSource()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Tiger.Year < 2008 {
		errs = append(errs, "tiger.year must be 2008 or later")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("JURIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 8)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("source.kind", SourceShapefile)
	v.SetDefault("source.path", "")
	v.SetDefault("geometry.provider", ProviderGEOS)
	v.SetDefault("metrics.border_tier_high_km", metrics.DefaultHighKM)
	v.SetDefault("metrics.border_tier_medium_km", metrics.DefaultMediumKM)
	v.SetDefault("metrics.top_n_complexity", 10)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("tax.rates_file", "")
	v.SetDefault("export.dir", "output")
	v.SetDefault("export.sqlite", "")
	v.SetDefault("export.postgres", false)
	v.SetDefault("export.textfile", "")
	v.SetDefault("tiger.year", 2023)
	v.SetDefault("tiger.temp_dir", "/tmp/tiger")

	// tax.default_rate has no default; bind it so the env var is seen.
	if err := v.BindEnv("tax.default_rate"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
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
