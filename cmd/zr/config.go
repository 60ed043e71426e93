package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the zr binary's configuration. Library configuration
// (engine limits and the like) stays in plain structs; this covers only
// what the binary itself decides.
type Config struct {
	Theme  string // theme YAML path; empty means the built-in theme
	Log    string // log file path; empty discards logs
	Size   SizeConfig
	Replay ReplayConfig
}

// SizeConfig is the viewport size used when stdout is not a terminal.
type SizeConfig struct {
	Cols int
	Rows int
}

// ReplayConfig holds session recording settings.
type ReplayConfig struct {
	Record bool
	DB     string
}

// loadConfig reads configuration from file and env. Env var overrides
// use the prefix ZR_; the config file is zr.yaml in the user config
// directory, or the file named by ZR_CONFIG.
func loadConfig() (Config, error) {
	v := viper.New()

	v.SetDefault("theme", "")
	v.SetDefault("log", "")
	v.SetDefault("size.cols", 80)
	v.SetDefault("size.rows", 24)
	v.SetDefault("replay.record", false)
	v.SetDefault("replay.db", defaultDBPath())

	v.SetConfigType("yaml")
	if path := os.Getenv("ZR_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "zr"))
		v.SetConfigName("zr")
	}

	v.SetEnvPrefix("ZR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The config file is optional.
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "zr-replay.db"
	}
	return filepath.Join(dir, "zr", "replay.db")
}
