package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/pdfcompare/internal/engine"
	"github.com/dusk-indust/pdfcompare/internal/input"
	"github.com/dusk-indust/pdfcompare/internal/orchestrator"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PDFCOMPARE"

// Config holds the settings loaded from pdfcompare.yml, the environment and
// command-line flags.
type Config struct {
	Engine                string        `mapstructure:"engine"`
	Extension             string        `mapstructure:"extension"`
	ProbeTimeout          time.Duration `mapstructure:"probe_timeout"`
	AttemptTimeout        time.Duration `mapstructure:"attempt_timeout"`
	ManualWait            time.Duration `mapstructure:"manual_wait"`
	PositionTolerance     float64       `mapstructure:"position_tolerance"`
	ShortCircuitIdentical bool          `mapstructure:"short_circuit_identical"`
	RequireEngine         bool          `mapstructure:"require_engine"`
	Strategies            []string      `mapstructure:"strategies"`
	Acrobat               AcrobatConfig `mapstructure:"acrobat"`
	Log                   LogConfig     `mapstructure:"log"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// AcrobatConfig configures the Acrobat engine.
type AcrobatConfig struct {
	ScriptHost string `mapstructure:"script_host"`
}

// LogConfig configures logging.
type LogConfig struct {
	JSON    bool `mapstructure:"json"`
	Verbose bool `mapstructure:"verbose"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"engine":          "engine",
	"require-engine":  "require_engine",
	"manual-wait":     "manual_wait",
	"probe-timeout":   "probe_timeout",
	"attempt-timeout": "attempt_timeout",
	"strategy":        "strategies",
	"verbose":         "log.verbose",
	"log-json":        "log.json",
}

func setDefaults(v *viper.Viper) {
	d := orchestrator.DefaultConfig()
	v.SetDefault("engine", engine.NameAuto)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("probe_timeout", d.ProbeTimeout)
	v.SetDefault("attempt_timeout", d.AttemptTimeout)
	v.SetDefault("manual_wait", d.ManualWait)
	v.SetDefault("position_tolerance", d.PositionTolerance)
	v.SetDefault("short_circuit_identical", d.ShortCircuitIdentical)
	v.SetDefault("require_engine", d.RequireEngine)
	v.SetDefault("strategies", []string{})
	v.SetDefault("acrobat.script_host", engine.DefaultScriptHost)
	v.SetDefault("log.json", false)
	v.SetDefault("log.verbose", false)
}

// Defaults returns the built-in configuration, ignoring files, environment
// and flags.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Decoding the defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads pdfcompare.yml or pdfcompare.yaml from dir, or file when set,
// then applies PDFCOMPARE_* environment variables (after loading an optional
// .env from dir) and finally any flags that were changed. A missing config
// file in dir is not an error; a missing explicit file is.
func Load(dir, file string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pdfcompare")
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	return &cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	switch c.Engine {
	case engine.NameAuto, engine.NameAcrobat, engine.NameBuiltin:
	default:
		return fmt.Errorf("config: unknown engine %q (want %s, %s or %s)",
			c.Engine, engine.NameAuto, engine.NameAcrobat, engine.NameBuiltin)
	}
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("config: extension %q must start with a dot", c.Extension)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("config: probe_timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("config: attempt_timeout must be positive, got %s", c.AttemptTimeout)
	}
	if c.ManualWait < 0 {
		return fmt.Errorf("config: manual_wait must not be negative, got %s", c.ManualWait)
	}
	if c.PositionTolerance < 0 {
		return fmt.Errorf("config: position_tolerance must not be negative, got %g", c.PositionTolerance)
	}
	if _, err := orchestrator.ParseStrategies(c.Strategies); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Orchestrator converts c into pipeline settings.
func (c *Config) Orchestrator() (orchestrator.Config, error) {
	strategies, err := orchestrator.ParseStrategies(c.Strategies)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("config: %w", err)
	}
	ext := c.Extension
	if ext == "" {
		ext = input.DefaultExtension
	}

	oc := orchestrator.DefaultConfig()
	oc.Extension = ext
	oc.ProbeTimeout = c.ProbeTimeout
	oc.AttemptTimeout = c.AttemptTimeout
	oc.ManualWait = c.ManualWait
	oc.PositionTolerance = c.PositionTolerance
	oc.ShortCircuitIdentical = c.ShortCircuitIdentical
	oc.RequireEngine = c.RequireEngine
	oc.Strategies = strategies
	return oc, nil
}

// EngineOptions returns the options for engine.New.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{ScriptHost: c.Acrobat.ScriptHost}
}

// yamlView is the YAML shape of Config, with durations as strings.
type yamlView struct {
	Engine                string   `yaml:"engine"`
	Extension             string   `yaml:"extension"`
	ProbeTimeout          string   `yaml:"probe_timeout"`
	AttemptTimeout        string   `yaml:"attempt_timeout"`
	ManualWait            string   `yaml:"manual_wait"`
	PositionTolerance     float64  `yaml:"position_tolerance"`
	ShortCircuitIdentical bool     `yaml:"short_circuit_identical"`
	RequireEngine         bool     `yaml:"require_engine"`
	Strategies            []string `yaml:"strategies"`
	Acrobat               struct {
		ScriptHost string `yaml:"script_host"`
	} `yaml:"acrobat"`
	Log struct {
		JSON    bool `yaml:"json"`
		Verbose bool `yaml:"verbose"`
	} `yaml:"log"`
}

// YAML renders the effective configuration in the config file format. An
// empty strategy list is shown as the default order.
func (c *Config) YAML() ([]byte, error) {
	view := yamlView{
		Engine:                c.Engine,
		Extension:             c.Extension,
		ProbeTimeout:          c.ProbeTimeout.String(),
		AttemptTimeout:        c.AttemptTimeout.String(),
		ManualWait:            c.ManualWait.String(),
		PositionTolerance:     c.PositionTolerance,
		ShortCircuitIdentical: c.ShortCircuitIdentical,
		RequireEngine:         c.RequireEngine,
		Strategies:            c.Strategies,
	}
	if len(view.Strategies) == 0 {
		for _, s := range orchestrator.DefaultStrategyOrder {
			view.Strategies = append(view.Strategies, string(s))
		}
	}
	view.Acrobat.ScriptHost = c.Acrobat.ScriptHost
	view.Log.JSON = c.Log.JSON
	view.Log.Verbose = c.Log.Verbose

	data, err := yaml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("config: encode yaml: %w", err)
	}
	return data, nil
}
