package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures cmd/api. Values come from an optional config file
// and are overridden by environment variables.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Env            string        `mapstructure:"env"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	BatteryDir     string        `mapstructure:"battery_dir"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SolveTimeout   time.Duration `mapstructure:"solve_timeout"`
	Parallelism    int           `mapstructure:"parallelism"`
	// MaxInFlightSolves bounds dense solves running at once, including those
	// whose request already timed out. Zero uses GOMAXPROCS.
	MaxInFlightSolves int `mapstructure:"max_inflight_solves"`
	// MaxModelCells caps the dense tableau (rows × columns) of models that
	// lack network structure. Zero uses the solver default.
	MaxModelCells   int           `mapstructure:"max_model_cells"`
	RunTTL          time.Duration `mapstructure:"run_ttl"`
	MaxStoredRuns   int           `mapstructure:"max_stored_runs"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsProduction reports whether API_ENV is "production".
func (c ServerConfig) IsProduction() bool { return c.Env == "production" }

// Environment variables bound to each key.
var serverEnv = map[string]string{
	"port":                "API_PORT",
	"env":                 "API_ENV",
	"log_level":           "LOG_LEVEL",
	"log_format":          "LOG_FORMAT",
	"battery_dir":         "BATTERY_DIR",
	"allowed_origins":     "CORS_ALLOWED_ORIGINS",
	"solve_timeout":       "SOLVE_TIMEOUT",
	"parallelism":         "SOLVE_PARALLELISM",
	"max_inflight_solves": "SOLVE_MAX_INFLIGHT",
	"max_model_cells":     "SOLVE_MAX_MODEL_CELLS",
	"run_ttl":             "RUN_TTL",
	"max_stored_runs":     "MAX_STORED_RUNS",
	"max_body_bytes":      "MAX_BODY_BYTES",
	"read_timeout":        "HTTP_READ_TIMEOUT",
	"write_timeout":       "HTTP_WRITE_TIMEOUT",
	"shutdown_timeout":    "SHUTDOWN_TIMEOUT",
}

// LoadServerConfig loads the server configuration. path may be empty, in
// which case only defaults and the environment are used.
func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()
	setServerDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, env := range serverEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.SolveTimeout <= 0 {
		return nil, fmt.Errorf("solve_timeout must be > 0, got %s", cfg.SolveTimeout)
	}
	if cfg.MaxInFlightSolves < 0 || cfg.MaxModelCells < 0 {
		return nil, fmt.Errorf("max_inflight_solves and max_model_cells must be >= 0")
	}
	return &cfg, nil
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("battery_dir", "./examples/batteries")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetDefault("solve_timeout", "60s")
	v.SetDefault("parallelism", 4)
	v.SetDefault("max_inflight_solves", 0)
	v.SetDefault("max_model_cells", 0)
	v.SetDefault("run_ttl", "1h")
	v.SetDefault("max_stored_runs", 256)
	v.SetDefault("max_body_bytes", 32<<20)

	v.SetDefault("read_timeout", "30s")
	v.SetDefault("write_timeout", "120s")
	v.SetDefault("shutdown_timeout", "10s")
}
