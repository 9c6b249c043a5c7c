package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gameon-rooms/carroom/pkg/log"
)

// loadConfig layers configuration sources: defaults from the flag set,
// overridden by the config file, overridden by CARROOM_* environment
// variables, overridden by explicit flags. The config file is watched so the
// log level can be changed on a running room.
func loadConfig(configFile, name string, flags *pflag.FlagSet, opts any) error {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/." + name)
		v.AddConfigPath("/etc/" + name)
	}

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		// Running without a config file is fine.
	} else {
		log.Debug("Loaded configuration", "file", v.ConfigFileUsed())
		v.OnConfigChange(func(_ fsnotify.Event) {
			level := v.GetString("log.level")
			if level == "" {
				return
			}
			if err := log.SetLevel(level); err != nil {
				log.Warn("Ignoring bad log level from config reload", "level", level, "error", err)
				return
			}
			log.Info("Log level updated", "level", level)
		})
		v.WatchConfig()
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
