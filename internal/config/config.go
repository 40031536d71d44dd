package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mirrorwell/pagestore/internal/logger"
	"github.com/mirrorwell/pagestore/wiki"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configFilename = "config.yaml"

// SetupConfig loads file-based configuration needed for bootstrap and
// initializes the global logger.
func SetupConfig() *wiki.Config {
	viper.SetDefault("dbfile", "pagestore.db")
	viper.SetDefault("log_format", "pretty") // pretty, json, or text
	viper.SetDefault("log_level", "info")    // debug, info, warn, error
	viper.SetDefault("prepopulate_cache", false)

	viper.SetConfigFile(configFilename)
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()

	createDefaultConfigFile := false

	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			createDefaultConfigFile = true
		} else {
			slog.Error("failed to read config", "error", err)
			os.Exit(1)
		}
	}

	logger.InitLogger(
		logger.ParseLogFormat(viper.GetString("log_format")),
		logger.ParseLogLevel(viper.GetString("log_level")),
	)

	config := &wiki.Config{
		DatabaseFile:     viper.GetString("dbfile"),
		LogFormat:        viper.GetString("log_format"),
		LogLevel:         viper.GetString("log_level"),
		PrepopulateCache: viper.GetBool("prepopulate_cache"),
	}

	if createDefaultConfigFile {
		slog.Info("config not found, writing defaults", "file", configFilename)
		conf, err := os.Create(configFilename)
		if err != nil {
			slog.Error("failed to create config file", "error", err)
			os.Exit(1)
		}

		if err := yaml.NewEncoder(conf).Encode(config); err != nil {
			slog.Error("failed to write config file", "error", err)
			os.Exit(1)
		}
	}

	return config
}
