package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/kazz187/rosterguard/internal/denylist"
	"github.com/kazz187/rosterguard/pkg/clog"
	"github.com/kazz187/rosterguard/pkg/termcolor"
)

type Env struct {
	DenylistPath string        `envconfig:"DENYLIST_PATH" default:"blacklist.txt"`
	RosterPath   string        `envconfig:"ROSTER_PATH" default:"roster.yaml"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	FSWatch      bool          `envconfig:"FS_WATCH" default:"true"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	Color        string        `envconfig:"COLOR" default:"auto"`
}

const namespace = "ROSTERGUARD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid env: %w", err)
	}
	return &env, nil
}

func (e *Env) Validate() error {
	if e.DenylistPath == "" {
		e.DenylistPath = denylist.DefaultPath
	}
	if e.PollInterval <= 0 {
		return fmt.Errorf("%s_POLL_INTERVAL must be positive, got %s", namespace, e.PollInterval)
	}
	if _, err := termcolor.ParseMode(e.Color); err != nil {
		return fmt.Errorf("%s_COLOR: %w", namespace, err)
	}
	return nil
}

func (e *Env) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	return clog.ParseLevel(e.LogLevel)
}
