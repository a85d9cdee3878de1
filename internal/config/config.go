// Package config loads ralph's configuration from .ralph/config.yaml and
// RALPH_* environment variables, with defaults for everything.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DataDir is the directory holding the task document, config, logs, and the
// dispatcher status file.
const DataDir = ".ralph"

// SMTP holds delivery settings for the daily digest. Credentials left empty
// disable email entirely.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
}

// Config parameterizes the dispatcher, the control surfaces, and the digest.
type Config struct {
	Workspace       string        `yaml:"workspace"`
	TasksFile       string        `yaml:"tasks_file"`
	ProgressFile    string        `yaml:"progress_file"`
	DailyLimit      int           `yaml:"daily_limit"`
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	IdleSleep       time.Duration `yaml:"idle_sleep"`
	CapBackoff      time.Duration `yaml:"cap_backoff"`
	PushReview      bool          `yaml:"push_review"`
	WebAddr         string        `yaml:"web_addr"`
	SMTP            SMTP          `yaml:"smtp"`
}

// fileConfig mirrors Config with human-readable duration strings for the
// generated config file.
type fileConfig struct {
	Workspace       string `yaml:"workspace"`
	TasksFile       string `yaml:"tasks_file"`
	ProgressFile    string `yaml:"progress_file"`
	DailyLimit      int    `yaml:"daily_limit"`
	ApprovalTimeout string `yaml:"approval_timeout"`
	PollInterval    string `yaml:"poll_interval"`
	RunTimeout      string `yaml:"run_timeout"`
	IdleSleep       string `yaml:"idle_sleep"`
	CapBackoff      string `yaml:"cap_backoff"`
	PushReview      bool   `yaml:"push_review"`
	WebAddr         string `yaml:"web_addr"`
	SMTP            SMTP   `yaml:"smtp"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		Workspace:       ".",
		TasksFile:       filepath.Join(DataDir, "tasks.json"),
		ProgressFile:    "PROGRESS.md",
		DailyLimit:      20,
		ApprovalTimeout: 24 * time.Hour,
		PollInterval:    10 * time.Second,
		RunTimeout:      time.Hour,
		IdleSleep:       time.Minute,
		CapBackoff:      time.Hour,
		PushReview:      false,
		WebAddr:         ":5001",
		SMTP:            SMTP{Host: "smtp.gmail.com", Port: 587},
	}
}

// Load reads config.yaml from dir/.ralph if present and applies RALPH_*
// environment overrides. A missing config file yields defaults.
func Load(dir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(dir, DataDir))
	v.SetEnvPrefix("RALPH")
	// Nested keys like smtp.password map to RALPH_SMTP_PASSWORD.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace", cfg.Workspace)
	v.SetDefault("tasks_file", cfg.TasksFile)
	v.SetDefault("progress_file", cfg.ProgressFile)
	v.SetDefault("daily_limit", cfg.DailyLimit)
	v.SetDefault("approval_timeout", cfg.ApprovalTimeout)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("run_timeout", cfg.RunTimeout)
	v.SetDefault("idle_sleep", cfg.IdleSleep)
	v.SetDefault("cap_backoff", cfg.CapBackoff)
	v.SetDefault("push_review", cfg.PushReview)
	v.SetDefault("web_addr", cfg.WebAddr)
	v.SetDefault("smtp.host", cfg.SMTP.Host)
	v.SetDefault("smtp.port", cfg.SMTP.Port)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.to", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.Workspace = v.GetString("workspace")
	cfg.TasksFile = v.GetString("tasks_file")
	cfg.ProgressFile = v.GetString("progress_file")
	cfg.DailyLimit = v.GetInt("daily_limit")
	cfg.ApprovalTimeout = v.GetDuration("approval_timeout")
	cfg.PollInterval = v.GetDuration("poll_interval")
	cfg.RunTimeout = v.GetDuration("run_timeout")
	cfg.IdleSleep = v.GetDuration("idle_sleep")
	cfg.CapBackoff = v.GetDuration("cap_backoff")
	cfg.PushReview = v.GetBool("push_review")
	cfg.WebAddr = v.GetString("web_addr")
	cfg.SMTP.Host = v.GetString("smtp.host")
	cfg.SMTP.Port = v.GetInt("smtp.port")
	cfg.SMTP.Username = v.GetString("smtp.username")
	cfg.SMTP.Password = v.GetString("smtp.password")
	cfg.SMTP.To = v.GetString("smtp.to")

	if cfg.SMTP.To == "" {
		cfg.SMTP.To = cfg.SMTP.Username
	}

	return cfg, nil
}

// WriteDefault creates dir/.ralph/config.yaml with the default settings.
// Returns an error if the file already exists.
func WriteDefault(dir string) (string, error) {
	ralphDir := filepath.Join(dir, DataDir)
	if err := os.MkdirAll(ralphDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", ralphDir, err)
	}

	path := filepath.Join(ralphDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s already exists", path)
	}

	def := Default()
	// Durations are written in Go syntax, which viper parses back.
	data, err := yaml.Marshal(fileConfig{
		Workspace:       def.Workspace,
		TasksFile:       def.TasksFile,
		ProgressFile:    def.ProgressFile,
		DailyLimit:      def.DailyLimit,
		ApprovalTimeout: def.ApprovalTimeout.String(),
		PollInterval:    def.PollInterval.String(),
		RunTimeout:      def.RunTimeout.String(),
		IdleSleep:       def.IdleSleep.String(),
		CapBackoff:      def.CapBackoff.String(),
		PushReview:      def.PushReview,
		WebAddr:         def.WebAddr,
		SMTP:            def.SMTP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal default config: %w", err)
	}

	header := []byte("# ralph configuration. Durations use Go syntax (10s, 1h).\n# Every key can be overridden with a RALPH_* environment variable.\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
