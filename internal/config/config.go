package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	API      APIConfig
	Redis    RedisConfig
	Charging ChargingConfig
	DeepLink DeepLinkConfig
	Admin    AdminConfig
}

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RetryMax       int
	RateLimitRPS   float64
	RateLimitBurst int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type ChargingConfig struct {
	PollInterval time.Duration
}

type DeepLinkConfig struct {
	Scheme string
	Hosts  []string
}

// AdminConfig configures the daemon's local health/metrics listener.
type AdminConfig struct {
	Addr string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("API_BASE_URL", "https://api.bps.energy/mobile")
	viper.SetDefault("API_REQUEST_TIMEOUT", 15)
	viper.SetDefault("API_RETRY_MAX", 3)
	viper.SetDefault("API_RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("API_RATE_LIMIT_BURST", 10)
	viper.SetDefault("CHARGING_POLL_INTERVAL", 30)
	viper.SetDefault("DEEPLINK_SCHEME", "bpsenergy")
	viper.SetDefault("DEEPLINK_HOSTS", "app.bps.energy")
	viper.SetDefault("ADMIN_ADDR", "127.0.0.1:9180")

	cfg := &Config{
		API: APIConfig{
			BaseURL:        viper.GetString("API_BASE_URL"),
			RequestTimeout: time.Duration(viper.GetInt("API_REQUEST_TIMEOUT")) * time.Second,
			RetryMax:       viper.GetInt("API_RETRY_MAX"),
			RateLimitRPS:   viper.GetFloat64("API_RATE_LIMIT_RPS"),
			RateLimitBurst: viper.GetInt("API_RATE_LIMIT_BURST"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Charging: ChargingConfig{
			PollInterval: time.Duration(viper.GetInt("CHARGING_POLL_INTERVAL")) * time.Second,
		},
		DeepLink: DeepLinkConfig{
			Scheme: viper.GetString("DEEPLINK_SCHEME"),
			Hosts:  viper.GetStringSlice("DEEPLINK_HOSTS"),
		},
		Admin: AdminConfig{
			Addr: viper.GetString("ADMIN_ADDR"),
		},
	}

	return cfg, nil
}
