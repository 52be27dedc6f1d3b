package config

import (
	"github.com/spf13/viper"
)

// Settings are tool-level knobs, distinct from the target declarations.
// They come from an optional galoshes.yaml in the working directory and
// can be overridden with GALOSHES_* environment variables.
type Settings struct {
	ConfigFile string
	LockFile   string
	Shell      string
}

const envPrefix = "GALOSHES"

// LoadSettings initializes viper and returns the effective settings.
// A missing settings file is not an error; defaults apply.
func LoadSettings() *Settings {
	v := viper.New()
	v.SetConfigName("galoshes")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("config_file", "galoshes.star")
	v.SetDefault("lock_file", "galoshes.lock")
	v.SetDefault("shell", "sh")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Ignore error if the settings file doesn't exist.
	_ = v.ReadInConfig()

	return &Settings{
		ConfigFile: v.GetString("config_file"),
		LockFile:   v.GetString("lock_file"),
		Shell:      v.GetString("shell"),
	}
}
