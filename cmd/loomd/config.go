package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/loomwm/loom"
)

type fileConfig struct {
	Socket       string   `toml:"socket"`
	FrameRate    int      `toml:"frame_rate"`
	MaxClients   int      `toml:"max_clients"`
	RecvBuffer   int      `toml:"recv_buffer"`
	PoolBudgetMB int64    `toml:"pool_budget_mb"`
	OutputWidth  int      `toml:"output_width"`
	OutputHeight int      `toml:"output_height"`
	MetricsAddr  string   `toml:"metrics_addr"`
	LogLevel     string   `toml:"log_level"`
	Shell        string   `toml:"shell"`
	ShellArgs    []string `toml:"shell_args"`
}

type settings struct {
	loom.Config

	OutputWidth  int
	OutputHeight int
	MetricsAddr  string
	LogLevel     string
	Shell        string
	ShellArgs    []string
}

func defaultSettings() settings {
	return settings{
		Config:       loom.DefaultConfig(),
		OutputWidth:  1920,
		OutputHeight: 1080,
		LogLevel:     "info",
	}
}

func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("socket") {
		cfg.Socket = strings.TrimSpace(raw.Socket)
	}
	if meta.IsDefined("frame_rate") {
		cfg.FrameRate = raw.FrameRate
	}
	if meta.IsDefined("max_clients") {
		cfg.MaxClients = raw.MaxClients
	}
	if meta.IsDefined("recv_buffer") {
		cfg.RecvBuffer = raw.RecvBuffer
	}
	if meta.IsDefined("pool_budget_mb") {
		cfg.PoolBudget = raw.PoolBudgetMB << 20
	}
	if meta.IsDefined("output_width") {
		cfg.OutputWidth = raw.OutputWidth
	}
	if meta.IsDefined("output_height") {
		cfg.OutputHeight = raw.OutputHeight
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("shell") {
		cfg.Shell = strings.TrimSpace(raw.Shell)
	}
	if meta.IsDefined("shell_args") {
		cfg.ShellArgs = raw.ShellArgs
	}

	if cfg.OutputWidth <= 0 || cfg.OutputHeight <= 0 {
		return settings{}, fmt.Errorf("output dimensions must be positive, got %vx%v", cfg.OutputWidth, cfg.OutputHeight)
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}

	return cfg, nil
}
