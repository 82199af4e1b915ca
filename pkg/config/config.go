package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// App holds application configuration.
type App struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Version  string `mapstructure:"version"`
	TimeZone string `mapstructure:"time_zone"`
}

// Logger holds logger configuration.
type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// Database holds database configuration.
type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// Redis holds Redis configuration.
type Redis struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	StreamMaxLen int64  `mapstructure:"stream_max_len"`
}

// CommonDefaults are shared by every service.
var CommonDefaults = map[string]interface{}{
	"app.env":                    "development",
	"app.time_zone":              "Asia/Kolkata",
	"logger.level":               "info",
	"logger.encoding":            "json",
	"database.host":              "localhost",
	"database.port":              5432,
	"database.ssl_mode":          "disable",
	"database.time_zone":         "Asia/Kolkata",
	"database.max_idle_conns":    5,
	"database.max_open_conns":    20,
	"database.conn_max_lifetime": "1h",
	"redis.host":                 "localhost",
	"redis.port":                 6379,
	"redis.pool_size":            10,
	"redis.stream_max_len":       1000,
}

// Load loads configuration from a file into the given config struct.
// Defaults are registered first so that every key can be overridden from the
// environment (e.g. DATABASE_HOST), even when the file does not mention it.
func Load(path string, config interface{}, defaults ...map[string]interface{}) error {
	v := viper.New()
	for _, d := range append([]map[string]interface{}{CommonDefaults}, defaults...) {
		for key, value := range d {
			v.SetDefault(key, value)
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Failed to read config file, falling back to defaults and environment variables")
	}

	return v.Unmarshal(config)
}
