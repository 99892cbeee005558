package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"stepper/internal/host"
	"stepper/internal/instrument"
	"stepper/internal/step"
)

const configFileName = "stepper.toml"

type fileConfig struct {
	Trace traceSection `toml:"trace"`
	Host  hostSection  `toml:"host"`
}

type traceSection struct {
	Detail    *bool  `toml:"detail"`
	Namespace string `toml:"namespace"`
}

type hostSection struct {
	PollInterval  string `toml:"poll_interval"`
	Ceiling       string `toml:"ceiling"`
	Heartbeat     string `toml:"heartbeat"`
	Watchdog      string `toml:"watchdog"`
	WaitThreshold string `toml:"wait_threshold"`
	Isolation     string `toml:"isolation"`
	MaxSteps      int    `toml:"max_steps"`
}

// settings is the effective configuration: defaults, then stepper.toml,
// then flags.
type settings struct {
	Path string // config file in use, if any

	Detail    bool
	Namespace string

	PollInterval  time.Duration
	Ceiling       time.Duration
	Heartbeat     time.Duration
	Watchdog      time.Duration
	WaitThreshold time.Duration
	Isolation     isolation
	MaxSteps      int
}

type isolation string

const (
	isolationInProcess isolation = "inproc"
	isolationProcess   isolation = "process"
)

func readIsolation(value string) (isolation, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "inproc":
		return isolationInProcess, nil
	case "process":
		return isolationProcess, nil
	default:
		return "", fmt.Errorf("invalid isolation %q (expected inproc|process)", value)
	}
}

func defaultSettings() settings {
	return settings{
		Detail:        true,
		Namespace:     instrument.DefaultNamespace,
		PollInterval:  host.DefaultPollInterval,
		Ceiling:       host.DefaultCeiling,
		Heartbeat:     host.DefaultHeartbeatInterval,
		Watchdog:      host.DefaultWatchdog,
		WaitThreshold: step.DefaultWaitThreshold,
		Isolation:     isolationInProcess,
		MaxSteps:      host.DefaultMaxSteps,
	}
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadSettings applies the config file at path, or the nearest
// stepper.toml above the working directory when path is empty.
func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil || !ok {
			return s, err
		}
		path = found
	}

	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return s, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return s, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	s.Path = path

	if cfg.Trace.Detail != nil {
		s.Detail = *cfg.Trace.Detail
	}
	if ns := strings.TrimSpace(cfg.Trace.Namespace); ns != "" {
		s.Namespace = ns
	}

	durations := []struct {
		key   string
		value string
		into  *time.Duration
	}{
		{"poll_interval", cfg.Host.PollInterval, &s.PollInterval},
		{"ceiling", cfg.Host.Ceiling, &s.Ceiling},
		{"heartbeat", cfg.Host.Heartbeat, &s.Heartbeat},
		{"watchdog", cfg.Host.Watchdog, &s.Watchdog},
		{"wait_threshold", cfg.Host.WaitThreshold, &s.WaitThreshold},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil || v <= 0 {
			return s, fmt.Errorf("%s: [host].%s must be a positive duration, got %q", path, d.key, d.value)
		}
		*d.into = v
	}
	if cfg.Host.Isolation != "" {
		iso, err := readIsolation(cfg.Host.Isolation)
		if err != nil {
			return s, fmt.Errorf("%s: [host].isolation: %w", path, err)
		}
		s.Isolation = iso
	}
	if meta.IsDefined("host", "max_steps") {
		s.MaxSteps = cfg.Host.MaxSteps
	}
	if s.Heartbeat >= s.Watchdog {
		return s, fmt.Errorf("%s: [host].heartbeat (%v) must be shorter than watchdog (%v)", path, s.Heartbeat, s.Watchdog)
	}
	return s, nil
}

func (s settings) workerOptions() host.WorkerOptions {
	maxSteps := s.MaxSteps
	if maxSteps == 0 {
		maxSteps = -1
	}
	return host.WorkerOptions{
		PollInterval:      s.PollInterval,
		Ceiling:           s.Ceiling,
		HeartbeatInterval: s.Heartbeat,
		MaxSteps:          maxSteps,
	}
}

func (s settings) hostConfig() host.Config {
	return host.Config{Detail: s.Detail, NS: s.Namespace}
}
