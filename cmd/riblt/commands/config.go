package commands

import (
	"time"

	"github.com/yangl1996/rateless-reconcile/session"
)

// CLIConfig contains the configuration of all commands. Flags, the config
// file and defaults are merged into it by viper.
type CLIConfig struct {
	LogLevel  string `mapstructure:"log"`
	ConfigDir string `mapstructure:"config"`

	// serve and sync
	Listen          string        `mapstructure:"listen"`
	Peer            string        `mapstructure:"peer"`
	Set             string        `mapstructure:"set"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BatchSize       int           `mapstructure:"batch-size"`
	MaxBatchSize    int           `mapstructure:"max-batch-size"`
	MaxCodedSymbols int           `mapstructure:"max-coded-symbols"`

	// bench and sim
	Trials   int   `mapstructure:"trials"`
	Diff     int   `mapstructure:"diff"`
	Common   int   `mapstructure:"common"`
	Parallel int   `mapstructure:"parallel"`
	Seed     int64 `mapstructure:"seed"`

	// sim
	Delay time.Duration `mapstructure:"delay"`
	Rate  float64       `mapstructure:"rate"`

	// sketch
	Local      string `mapstructure:"local"`
	Remote     string `mapstructure:"remote"`
	SketchSize int    `mapstructure:"sketch-size"`
}

// NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	s := session.DefaultConfig()
	return &CLIConfig{
		LogLevel:        "info",
		ConfigDir:       ".",
		Listen:          "127.0.0.1:7400",
		Peer:            "127.0.0.1:7400",
		Timeout:         30 * time.Second,
		BatchSize:       s.BatchSize,
		MaxBatchSize:    s.MaxBatchSize,
		MaxCodedSymbols: s.MaxCodedSymbols,
		Trials:          100,
		Diff:            100,
		Common:          10000,
		Parallel:        4,
		Seed:            1,
		Delay:           50 * time.Millisecond,
		Rate:            10000,
		SketchSize:      100,
	}
}

func (c *CLIConfig) sessionConfig() session.Config {
	return session.Config{
		BatchSize:       c.BatchSize,
		MaxBatchSize:    c.MaxBatchSize,
		MaxCodedSymbols: c.MaxCodedSymbols,
		Logger:          logger.WithField("peer", c.Peer),
	}
}
