// Package config loads linearpulse settings from a YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LinearConfig holds upstream API settings.
type LinearConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	IssueLimit int    `yaml:"issue_limit"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	User       string   `yaml:"user"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

// ReportConfig controls report generation.
type ReportConfig struct {
	Timezone      string        `yaml:"timezone"`
	MultiTeamMode string        `yaml:"multi_team_mode"` // all, primary, exclude
	SendDelay     time.Duration `yaml:"send_delay"`
	SaveHTMLDir   string        `yaml:"save_html_dir"`
}

// ScheduleConfig holds cron expressions for each report kind.
// An empty expression disables that report.
type ScheduleConfig struct {
	Daily     string `yaml:"daily"`
	Weekly    string `yaml:"weekly"`
	Monthly   string `yaml:"monthly"`
	Quarterly string `yaml:"quarterly"`
	Yearly    string `yaml:"yearly"`
}

// ExportConfig holds bulk export settings.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// RedisConfig enables send deduplication when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"` // used by the terminal dashboard
}

// Config is the full application configuration.
type Config struct {
	Linear   LinearConfig   `yaml:"linear"`
	Server   ServerConfig   `yaml:"server"`
	Mail     MailConfig     `yaml:"mail"`
	Report   ReportConfig   `yaml:"report"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Export   ExportConfig   `yaml:"export"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Linear: LinearConfig{
			Endpoint:   "https://api.linear.app/graphql",
			IssueLimit: 250,
		},
		Server: ServerConfig{Port: ":5000"},
		Mail:   MailConfig{Port: 587},
		Report: ReportConfig{
			Timezone:      "Africa/Nairobi",
			MultiTeamMode: "all",
			SendDelay:     2 * time.Second,
		},
		Schedule: ScheduleConfig{
			Daily:     "0 17 * * *",
			Weekly:    "0 17 * * 5",
			Monthly:   "0 17 28-31 * *",
			Quarterly: "0 17 30,31 3,6,9,12 *",
			Yearly:    "0 17 31 12 *",
		},
		Export: ExportConfig{Dir: "./powerbi-export"},
		Redis:  RedisConfig{TTL: 36 * time.Hour},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path (if it exists) over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open %s: %w", path, err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}

	OverrideLinearFromEnv(&cfg.Linear)
	OverrideServerFromEnv(&cfg.Server)
	OverrideMailFromEnv(&cfg.Mail)
	OverrideReportFromEnv(&cfg.Report)
	OverrideRedisFromEnv(&cfg.Redis)
	OverrideLogFromEnv(&cfg.Log)
	if dir := os.Getenv("EXPORT_DIR"); dir != "" {
		cfg.Export.Dir = dir
	}

	return cfg, nil
}

// OverrideLinearFromEnv applies LINEAR_* variables.
func OverrideLinearFromEnv(cfg *LinearConfig) {
	if key := os.Getenv("LINEAR_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if url := os.Getenv("LINEAR_API_URL"); url != "" {
		cfg.Endpoint = url
	}
}

// OverrideServerFromEnv applies SERVER_PORT.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Port = port
	}
}

// OverrideMailFromEnv applies SMTP_* and MAIL_* variables.
func OverrideMailFromEnv(cfg *MailConfig) {
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		cfg.User = user
	}
	if pass := os.Getenv("SMTP_PASS"); pass != "" {
		cfg.Password = pass
	}
	if from := os.Getenv("MAIL_FROM"); from != "" {
		cfg.From = from
	}
	if to := os.Getenv("MAIL_TO"); to != "" {
		cfg.Recipients = SplitList(to)
	}
}

// OverrideReportFromEnv applies REPORT_TZ.
func OverrideReportFromEnv(cfg *ReportConfig) {
	if tz := os.Getenv("REPORT_TZ"); tz != "" {
		cfg.Timezone = tz
	}
}

// OverrideRedisFromEnv applies REDIS_* variables.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideLogFromEnv applies LOG_LEVEL.
func OverrideLogFromEnv(cfg *LogConfig) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location resolves the report timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

// ValidateMail reports the first missing setting required to send email.
func (c *Config) ValidateMail() error {
	switch {
	case c.Mail.Host == "":
		return errors.New("mail.host (SMTP_HOST) is required")
	case c.Mail.From == "":
		return errors.New("mail.from (MAIL_FROM) is required")
	case len(c.Mail.Recipients) == 0:
		return errors.New("mail.recipients (MAIL_TO) is required")
	}
	return nil
}
