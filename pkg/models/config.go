package models

// RemoteConfig describes the remote task authority.
type RemoteConfig struct {
	// URL is the API base, e.g. http://localhost:8000/api. Empty disables sync.
	URL string `yaml:"url" mapstructure:"url"`
}

// ScheduleConfig holds the auto-scheduler policy.
type ScheduleConfig struct {
	GranularityMinutes int `yaml:"granularity_minutes" mapstructure:"granularity_minutes"`
	// DayStart and DayEnd are HH:MM clock times bounding the schedulable
	// window of a day. DayEnd "24:00" means midnight.
	DayStart string `yaml:"day_start" mapstructure:"day_start"`
	DayEnd   string `yaml:"day_end" mapstructure:"day_end"`
}

// ServerConfig holds settings for `pos serve`.
type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	DataFile string `yaml:"data_file" mapstructure:"data_file"`
}

// LogConfig holds logging settings for long-running commands.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Config holds settings read from .posconfig via Viper.
type Config struct {
	Remote   RemoteConfig   `yaml:"remote" mapstructure:"remote"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}
