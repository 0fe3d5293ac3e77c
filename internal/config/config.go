package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultPath is where Load looks for the YAML overlay
const DefaultPath = "config.yaml"

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// EngineConfig selects how the engines use the machine
type EngineConfig struct {
	ExecutionMode    string `yaml:"execution_mode"`    // auto, parallel, sequential
	Workers          int    `yaml:"workers"`           // 0 = one per CPU
	EnableBenchmarks bool   `yaml:"enable_benchmarks"` // log timing summaries on Close
}

// PDEConfig holds finite-difference defaults
type PDEConfig struct {
	SpaceSteps    int     `yaml:"space_steps"`     // J
	TimeSteps     int     `yaml:"time_steps"`      // N, 0 = smallest stable
	DomainStdDevs float64 `yaml:"domain_std_devs"` // Smax coverage
	SmaxMultiple  float64 `yaml:"smax_multiple"`   // Smax = multiple·K when the request omits it, 0 = derive
	Stability     string  `yaml:"stability"`       // reject, warn
	CellBudget    int64   `yaml:"cell_budget"`
}

// MonteCarloConfig holds path simulation defaults
type MonteCarloConfig struct {
	Steps         int    `yaml:"steps"`
	Paths         int    `yaml:"paths"`
	Seed          uint64 `yaml:"seed"`
	Generator     string `yaml:"generator"` // pcg, mt19937, xoshiro, halton
	Scheme        string `yaml:"scheme"`    // euler, milstein
	ProgressEvery int    `yaml:"progress_every"`
	StepBudget    int64  `yaml:"step_budget"`
}

// AuditConfig represents audit trail configuration
type AuditConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Dir            string `yaml:"dir"`
	FilenameFormat string `yaml:"filename_format"`
}

// OutputConfig controls display rounding
type OutputConfig struct {
	Decimals int32 `yaml:"decimals"`
}

type Config struct {
	// Server settings
	Port string `yaml:"port"`

	Logging    LoggingConfig    `yaml:"logging"`
	Engine     EngineConfig     `yaml:"engine"`
	PDE        PDEConfig        `yaml:"pde"`
	MonteCarlo MonteCarloConfig `yaml:"monte_carlo"`
	Audit      AuditConfig      `yaml:"audit"`
	Output     OutputConfig     `yaml:"output"`
}

// Load reads environment defaults and overlays config.yaml when present
func Load() *Config {
	cfg, _ := LoadFrom(DefaultPath)
	return cfg
}

// LoadFrom reads environment defaults and overlays the YAML file at path.
// A missing file is not an error; an unreadable or malformed one is reported
// alongside the environment-only configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Logging: LoggingConfig{
			LogLevel: getEnv("LOG_LEVEL", "info"),
			LogFile:  getEnv("LOG_FILE", "fdmc.log"),
		},

		// Default engine configuration
		Engine: EngineConfig{
			ExecutionMode:    getEnv("ENGINE_EXECUTION_MODE", "auto"),
			Workers:          getEnvInt("ENGINE_WORKERS", 0),
			EnableBenchmarks: getEnvBool("ENGINE_ENABLE_BENCHMARKS", false),
		},

		PDE: PDEConfig{
			SpaceSteps:    getEnvInt("PDE_SPACE_STEPS", 200),
			TimeSteps:     getEnvInt("PDE_TIME_STEPS", 0),
			DomainStdDevs: getEnvFloat("PDE_DOMAIN_STD_DEVS", 3),
			SmaxMultiple:  getEnvFloat("PDE_SMAX_MULTIPLE", 0),
			Stability:     getEnv("PDE_STABILITY", "reject"),
			CellBudget:    getEnvInt64("PDE_CELL_BUDGET", 50_000_000),
		},

		MonteCarlo: MonteCarloConfig{
			Steps:         getEnvInt("MC_STEPS", 100),
			Paths:         getEnvInt("MC_PATHS", 100000),
			Seed:          uint64(getEnvInt64("MC_SEED", 42)),
			Generator:     getEnv("MC_GENERATOR", "pcg"),
			Scheme:        getEnv("MC_SCHEME", "euler"),
			ProgressEvery: getEnvInt("MC_PROGRESS_EVERY", 10000),
			StepBudget:    getEnvInt64("MC_STEP_BUDGET", 2_000_000_000),
		},

		Audit: AuditConfig{
			Enabled:        getEnvBool("AUDIT_ENABLED", false),
			Dir:            getEnv("AUDIT_DIR", "audits"),
			FilenameFormat: getEnv("AUDIT_FILENAME_FORMAT", "{engine}-{type}-{timestamp}"),
		},

		Output: OutputConfig{
			Decimals: int32(getEnvInt("OUTPUT_DECIMALS", 6)),
		},
	}

	yamlCfg, err := loadYAMLConfig(path)
	if err != nil {
		return cfg, err
	}
	if yamlCfg != nil {
		cfg.overlay(yamlCfg)
	}
	return cfg, nil
}

// overlay copies every non-zero YAML value over the environment defaults
func (c *Config) overlay(y *Config) {
	if y.Port != "" {
		c.Port = y.Port
	}

	// Logging configuration from YAML
	if y.Logging.LogLevel != "" {
		c.Logging.LogLevel = y.Logging.LogLevel
	}
	if y.Logging.LogFile != "" {
		c.Logging.LogFile = y.Logging.LogFile
	}

	// Engine configuration from YAML
	if y.Engine.ExecutionMode != "" {
		c.Engine.ExecutionMode = y.Engine.ExecutionMode
	}
	if y.Engine.Workers > 0 {
		c.Engine.Workers = y.Engine.Workers
	}
	if y.Engine.EnableBenchmarks {
		c.Engine.EnableBenchmarks = true
	}

	if y.PDE.SpaceSteps > 0 {
		c.PDE.SpaceSteps = y.PDE.SpaceSteps
	}
	if y.PDE.TimeSteps > 0 {
		c.PDE.TimeSteps = y.PDE.TimeSteps
	}
	if y.PDE.DomainStdDevs > 0 {
		c.PDE.DomainStdDevs = y.PDE.DomainStdDevs
	}
	if y.PDE.SmaxMultiple > 0 {
		c.PDE.SmaxMultiple = y.PDE.SmaxMultiple
	}
	if y.PDE.Stability != "" {
		c.PDE.Stability = y.PDE.Stability
	}
	if y.PDE.CellBudget > 0 {
		c.PDE.CellBudget = y.PDE.CellBudget
	}

	if y.MonteCarlo.Steps > 0 {
		c.MonteCarlo.Steps = y.MonteCarlo.Steps
	}
	if y.MonteCarlo.Paths > 0 {
		c.MonteCarlo.Paths = y.MonteCarlo.Paths
	}
	if y.MonteCarlo.Seed != 0 {
		c.MonteCarlo.Seed = y.MonteCarlo.Seed
	}
	if y.MonteCarlo.Generator != "" {
		c.MonteCarlo.Generator = y.MonteCarlo.Generator
	}
	if y.MonteCarlo.Scheme != "" {
		c.MonteCarlo.Scheme = y.MonteCarlo.Scheme
	}
	if y.MonteCarlo.ProgressEvery > 0 {
		c.MonteCarlo.ProgressEvery = y.MonteCarlo.ProgressEvery
	}
	if y.MonteCarlo.StepBudget > 0 {
		c.MonteCarlo.StepBudget = y.MonteCarlo.StepBudget
	}

	// Audit configuration from YAML
	if y.Audit.Enabled {
		c.Audit.Enabled = true
	}
	if y.Audit.Dir != "" {
		c.Audit.Dir = y.Audit.Dir
	}
	if y.Audit.FilenameFormat != "" {
		c.Audit.FilenameFormat = y.Audit.FilenameFormat
	}

	if y.Output.Decimals > 0 {
		c.Output.Decimals = y.Output.Decimals
	}
}

// Validate checks values the engines cannot recover from
func (c *Config) Validate() error {
	switch c.Engine.ExecutionMode {
	case "auto", "parallel", "sequential":
	default:
		return fmt.Errorf("engine.execution_mode must be auto, parallel or sequential, got %q", c.Engine.ExecutionMode)
	}
	switch c.PDE.Stability {
	case "reject", "warn":
	default:
		return fmt.Errorf("pde.stability must be reject or warn, got %q", c.PDE.Stability)
	}
	if c.PDE.SpaceSteps < 1 {
		return fmt.Errorf("pde.space_steps must be >= 1, got %d", c.PDE.SpaceSteps)
	}
	if c.MonteCarlo.Steps < 1 || c.MonteCarlo.Paths < 1 {
		return fmt.Errorf("monte_carlo.steps and monte_carlo.paths must be >= 1")
	}
	if c.Output.Decimals < 0 || c.Output.Decimals > 12 {
		return fmt.Errorf("output.decimals must be in [0, 12], got %d", c.Output.Decimals)
	}
	return nil
}

func loadYAMLConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var yamlCfg Config
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &yamlCfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// FormatAuditFilename formats audit filenames using the configured template
func FormatAuditFilename(format, engine, optionType, timestamp string) string {
	result := format
	result = strings.ReplaceAll(result, "{engine}", engine)
	result = strings.ReplaceAll(result, "{type}", optionType)
	result = strings.ReplaceAll(result, "{timestamp}", timestamp)
	return result
}
