// Package core contains the task engine of PriorityOS: capture parsing,
// the in-memory task store, priority ranking, auto-scheduling, and the
// task manager that coordinates them with the snapshot and remote sync.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// ConfigFileName is the name (without extension) of the configuration file.
const ConfigFileName = ".posconfig"

// clockPattern matches HH:MM clock times between 00:00 and 24:00.
var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$|^24:00$`)

// ConfigurationManager defines the interface for loading and validating
// configuration from the .posconfig file.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// .posconfig relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		Remote: models.RemoteConfig{
			URL: "",
		},
		Schedule: models.ScheduleConfig{
			GranularityMinutes: 15,
			DayStart:           "00:00",
			DayEnd:             "24:00",
		},
		Server: models.ServerConfig{
			Addr:     ":8000",
			DataFile: "tasks_store.yaml",
		},
		Log: models.LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the .posconfig file from the base path using Viper.
// If the file does not exist, defaults are returned. POS_* environment
// variables override file values (e.g. POS_REMOTE_URL).
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote.url", cfg.Remote.URL)
	v.SetDefault("schedule.granularity_minutes", cfg.Schedule.GranularityMinutes)
	v.SetDefault("schedule.day_start", cfg.Schedule.DayStart)
	v.SetDefault("schedule.day_end", cfg.Schedule.DayEnd)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.data_file", cfg.Server.DataFile)
	v.SetDefault("log.level", cfg.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg.Remote.URL = strings.TrimRight(v.GetString("remote.url"), "/")
	cfg.Schedule.GranularityMinutes = v.GetInt("schedule.granularity_minutes")
	cfg.Schedule.DayStart = v.GetString("schedule.day_start")
	cfg.Schedule.DayEnd = v.GetString("schedule.day_end")
	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Server.DataFile = v.GetString("server.data_file")
	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))

	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and returns an
// error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	g := cfg.Schedule.GranularityMinutes
	if g <= 0 || g > 60 || 60%g != 0 {
		errs = append(errs, fmt.Sprintf("schedule.granularity_minutes %d is invalid, must divide 60", g))
	}
	if !clockPattern.MatchString(cfg.Schedule.DayStart) {
		errs = append(errs, fmt.Sprintf("schedule.day_start %q is invalid, must be HH:MM", cfg.Schedule.DayStart))
	}
	if !clockPattern.MatchString(cfg.Schedule.DayEnd) {
		errs = append(errs, fmt.Sprintf("schedule.day_end %q is invalid, must be HH:MM", cfg.Schedule.DayEnd))
	}
	if len(errs) == 0 {
		start, _ := parseClock(cfg.Schedule.DayStart)
		end, _ := parseClock(cfg.Schedule.DayEnd)
		if start >= end {
			errs = append(errs, "schedule.day_start must be before schedule.day_end")
		}
	}
	if cfg.Remote.URL != "" && !strings.HasPrefix(cfg.Remote.URL, "http://") && !strings.HasPrefix(cfg.Remote.URL, "https://") {
		errs = append(errs, fmt.Sprintf("remote.url %q must start with http:// or https://", cfg.Remote.URL))
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
