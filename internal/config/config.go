// Package config loads linkview settings from defaults, an optional YAML
// file and LINKVIEW_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// BrushRate limits brush requests per second and client. Zero disables
	// the limit.
	BrushRate float64 `mapstructure:"brush_rate" yaml:"brush_rate"`
	Metrics   bool    `mapstructure:"metrics" yaml:"metrics"`
}

type Data struct {
	Path string `mapstructure:"path" yaml:"path"`
	// Delimiter overrides the one derived from the file extension.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

type Engine struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type Histogram struct {
	Bins int `mapstructure:"bins" yaml:"bins"`
}

type View struct {
	Width  float64 `mapstructure:"width" yaml:"width"`
	Height float64 `mapstructure:"height" yaml:"height"`
}

// Defaults are the attributes shown before the user picks any.
type Defaults struct {
	ScatterX  string `mapstructure:"scatter_x" yaml:"scatter_x"`
	ScatterY  string `mapstructure:"scatter_y" yaml:"scatter_y"`
	Histogram string `mapstructure:"histogram" yaml:"histogram"`
}

type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the full configuration.
type Config struct {
	Server    Server    `mapstructure:"server" yaml:"server"`
	Data      Data      `mapstructure:"data" yaml:"data"`
	Engine    Engine    `mapstructure:"engine" yaml:"engine"`
	Histogram Histogram `mapstructure:"histogram" yaml:"histogram"`
	View      View      `mapstructure:"view" yaml:"view"`
	Defaults  Defaults  `mapstructure:"defaults" yaml:"defaults"`
	Log       Log       `mapstructure:"log" yaml:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.brush_rate", 30.0)
	v.SetDefault("server.metrics", true)
	v.SetDefault("data.path", "SeoulBikeData.csv")
	v.SetDefault("data.delimiter", "")
	v.SetDefault("engine.debounce", 100*time.Millisecond)
	v.SetDefault("engine.cache_ttl", time.Minute)
	v.SetDefault("histogram.bins", 20)
	v.SetDefault("view.width", 600.0)
	v.SetDefault("view.height", 500.0)
	v.SetDefault("defaults.scatter_x", "Temperature")
	v.SetDefault("defaults.scatter_y", "Humidity")
	v.SetDefault("defaults.histogram", "RentedBikeCount")
	v.SetDefault("log.level", "info")
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults always decode.
	_ = v.Unmarshal(&c)
	return &c
}

// Load reads configuration with precedence env > config file > defaults.
// An empty cfgFile looks for config.yaml in the working directory and in
// ~/.linkview; a missing file there is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".linkview"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server.addr is empty")
	case c.Engine.Debounce < 0:
		return errors.Errorf("engine.debounce %v is negative", c.Engine.Debounce)
	case c.Histogram.Bins < 1:
		return errors.Errorf("histogram.bins %d must be positive", c.Histogram.Bins)
	case c.View.Width <= 0 || c.View.Height <= 0:
		return errors.Errorf("view size %vx%v must be positive", c.View.Width, c.View.Height)
	case len([]rune(c.Data.Delimiter)) > 1:
		return errors.Errorf("data.delimiter %q must be a single character", c.Data.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 to derive it from
// the file extension.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Data.Delimiter {
		return r
	}
	return 0
}

// Save writes c as YAML to path, creating the parent directory.
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir config dir")
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}
