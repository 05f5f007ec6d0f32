package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Config represents application configuration, loaded from an optional
// questboard.yaml plus environment variable overrides.
type Config struct {
	AppEnv string `mapstructure:"APP_ENV"`

	Database struct {
		Type     string `mapstructure:"TYPE"`
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		Name     string `mapstructure:"NAME"`
		User     string `mapstructure:"USER"`
		Password string `mapstructure:"PASSWORD"`
		SSLMode  string `mapstructure:"SSLMODE"`
		Timezone string `mapstructure:"TIMEZONE"`

		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConn     int           `mapstructure:"MAX_OPEN_CONN"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
		} `mapstructure:"POOL"`
	} `mapstructure:"DATABASE"`

	Redis struct {
		Addr string `mapstructure:"ADDR"`
		DB   int    `mapstructure:"DB"`
	} `mapstructure:"REDIS"`

	Gamification struct {
		PointsPerOpenTask      int64 `mapstructure:"POINTS_PER_OPEN_TASK"`
		PointsPerCompletedTask int64 `mapstructure:"POINTS_PER_COMPLETED_TASK"`
	} `mapstructure:"GAMIFICATION"`

	Sweeper struct {
		Schedule  string `mapstructure:"SCHEDULE"`
		ChunkSize int    `mapstructure:"CHUNK_SIZE"`
	} `mapstructure:"SWEEPER"`
}

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Provide),
)

// Provide loads configuration with sensible defaults.
func Provide() (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "127.0.0.1")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.NAME", "questboard")
	v.SetDefault("DATABASE.USER", "questboard")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.POOL.MAX_OPEN_CONN", 25)
	v.SetDefault("DATABASE.POOL.CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("GAMIFICATION.POINTS_PER_OPEN_TASK", 50)
	v.SetDefault("GAMIFICATION.POINTS_PER_COMPLETED_TASK", 100)
	v.SetDefault("SWEEPER.SCHEDULE", "0 1 * * *")
	v.SetDefault("SWEEPER.CHUNK_SIZE", 100)

	v.SetConfigName("questboard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/questboard")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
