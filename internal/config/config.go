// Package config loads settings from the XDG config file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
)

var (
	cfgFile = "uttt/config.json"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.err)
}

type Config struct {
	Addr         string `json:"addr"`
	DBPath       string `json:"db_path"`
	BotDepth     int    `json:"bot_depth"`
	BotTimeoutMS int    `json:"bot_timeout_ms"`
	LogLevel     string `json:"log_level"`
	LogPretty    bool   `json:"log_pretty"`
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		DBPath:       filepath.Join(xdg.DataHome, "uttt", "games.db"),
		BotDepth:     4,
		BotTimeoutMS: 5000,
		LogLevel:     "info",
		LogPretty:    true,
	}
}

// Load reads the config file if one exists, then applies UTTT_* environment
// overrides and validates the result.
func Load() (*Config, error) {
	path, err := xdg.SearchConfigFile(cfgFile)
	if err != nil {
		path = ""
	}
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	c := DefaultConfig()
	if path != "" {
		if err := readCfgFile(path, &c); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("UTTT_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("UTTT_DB"); v != "" {
		c.DBPath = v
	}
	if v := getenv("UTTT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	for _, iv := range []struct {
		key string
		dst *int
	}{
		{"UTTT_BOT_DEPTH", &c.BotDepth},
		{"UTTT_BOT_TIMEOUT_MS", &c.BotTimeoutMS},
	} {
		v := getenv(iv.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &InvalidConfig{fmt.Sprintf("%s=%q is not a number", iv.key, v)}
		}
		*iv.dst = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return &InvalidConfig{"addr must not be empty"}
	case c.DBPath == "":
		return &InvalidConfig{"db_path must not be empty"}
	case c.BotDepth < 1 || c.BotDepth > 9:
		return &InvalidConfig{fmt.Sprintf("bot_depth %d is outside [1, 9]", c.BotDepth)}
	case c.BotTimeoutMS <= 0:
		return &InvalidConfig{"bot_timeout_ms must be positive"}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return &InvalidConfig{fmt.Sprintf("log_level: %v", err)}
	}
	return nil
}

func (c Config) BotTimeout() time.Duration {
	return time.Duration(c.BotTimeoutMS) * time.Millisecond
}

// Logger builds the root logger. Pretty output goes through a console writer.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.LogPretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Save writes c to the user's XDG config directory.
func (c *Config) Save() error {
	absPath, err := xdg.ConfigFile(cfgFile)
	if err != nil {
		return err
	}
	return saveCfgFile(absPath, c, 0o664)
}

func saveCfgFile(filePath string, a any, perm fs.FileMode) error {
	jsonData, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, perm)
}

func readCfgFile(filePath string, a any) error {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return &InvalidConfig{fmt.Sprintf("%s: %v", filePath, err)}
	}
	return nil
}
