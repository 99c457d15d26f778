package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	_config = NewDefaultCLIConfig()
	logger  = logrus.New()
)

// RootCmd is the root command of riblt
var RootCmd = &cobra.Command{
	Use:               "riblt",
	Short:             "rateless set reconciliation",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().String("log", _config.LogLevel, "debug, info, warn, error")
	RootCmd.PersistentFlags().String("config", _config.ConfigDir, "Directory containing riblt.toml (.yaml and .json also work)")
	RootCmd.AddCommand(
		NewBenchCmd(),
		NewSketchCmd(),
		NewSimCmd(),
		NewServeCmd(),
		NewSyncCmd(),
	)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}
	level, err := logrus.ParseLevel(_config.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.WithFields(logrus.Fields{
		"command": cmd.Name(),
		"config":  viper.ConfigFileUsed(),
	}).Debug("loaded configuration")
	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// flags of this command include the persistent flags of the root
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [config]/riblt.toml (.json, .yaml also work)
	viper.SetConfigName("riblt")
	viper.AddConfigPath(_config.ConfigDir)

	if err := viper.ReadInConfig(); err == nil {
		logger.Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		logger.Debugf("No config file found in: %s", _config.ConfigDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
