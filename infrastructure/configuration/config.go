package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/navneeth/viralvibes/infrastructure/logger"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	YouTube     YouTube     `json:"youtube"`
	Worker      Worker      `json:"worker"`
	Backend     Backend     `json:"backend"`
	Dislikes    Dislikes    `json:"dislikes"`
}

type App struct {
	Port int `json:"port"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type YouTube struct {
	APIKey string `json:"apiKey"`
}

// Worker controls the job loop.
type Worker struct {
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
	BatchSize           int `json:"batchSize"`
	MaxRuntimeSeconds   int `json:"maxRuntimeSeconds"`
}

// Backend selects the fetch implementation and its retry/throttle policy.
type Backend struct {
	Name              string  `json:"name"` // api | scraper
	MaxRetries        int     `json:"maxRetries"`
	RetryDelaySeconds float64 `json:"retryDelaySeconds"`
	BatchSize         int     `json:"batchSize"`
	MinVideoDelay     float64 `json:"minVideoDelay"`
	MaxVideoDelay     float64 `json:"maxVideoDelay"`
	MinBatchDelay     float64 `json:"minBatchDelay"`
	MaxBatchDelay     float64 `json:"maxBatchDelay"`
	CookiesFile       string  `json:"cookiesFile"`
}

type Dislikes struct {
	BaseURL string `json:"baseURL"`
}

var C Config

func init() {
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	applyEnvOverrides(&C)
	applyDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func applyEnvOverrides(c *Config) {
	setStr := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					*dst = n
					return
				}
			}
		}
	}
	setFloat := func(dst *float64, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					*dst = f
					return
				}
			}
		}
	}

	setStr(&c.Database.Psql.Name, "DB_NAME")
	setStr(&c.Database.Psql.Host, "DB_HOST")
	setStr(&c.Database.Psql.Port, "DB_PORT")
	setStr(&c.Database.Psql.User, "DB_USER")
	setStr(&c.Database.Psql.Password, "DB_PASSWORD")

	setStr(&c.RedisClient.Host, "REDIS_HOST")
	setStr(&c.RedisClient.Port, "REDIS_PORT")
	setStr(&c.RedisClient.Username, "REDIS_USERNAME")
	setStr(&c.RedisClient.Password, "REDIS_PASSWORD")

	setStr(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	setStr(&c.Backend.Name, "VV_BACKEND")
	setStr(&c.Backend.CookiesFile, "COOKIES_FILE")
	setStr(&c.Dislikes.BaseURL, "DISLIKES_BASE_URL")

	setInt(&c.Worker.PollIntervalSeconds, "WORKER_POLL_INTERVAL")
	setInt(&c.Worker.BatchSize, "WORKER_BATCH_SIZE")
	setInt(&c.Worker.MaxRuntimeSeconds, "WORKER_MAX_RUNTIME")

	setInt(&c.Backend.MaxRetries, "MAX_RETRIES")
	setFloat(&c.Backend.RetryDelaySeconds, "RETRY_DELAY")
	setInt(&c.Backend.BatchSize, "BATCH_SIZE")
	setFloat(&c.Backend.MinVideoDelay, "MIN_VIDEO_DELAY")
	setFloat(&c.Backend.MaxVideoDelay, "MAX_VIDEO_DELAY")
	setFloat(&c.Backend.MinBatchDelay, "MIN_BATCH_DELAY")
	setFloat(&c.Backend.MaxBatchDelay, "MAX_BATCH_DELAY")

	// Port resolution order (env overrides config): APP_PORT -> PORT -> config.
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.App.Port = p
		}
	}
}

func applyDefaults(c *Config) {
	if c.App.Port == 0 {
		c.App.Port = 10001
	}
	if c.Database.Psql.Port == "" {
		c.Database.Psql.Port = "5432"
	}
	if c.RedisClient.Port == "" {
		c.RedisClient.Port = "6379"
	}
	if c.Backend.Name == "" {
		c.Backend.Name = "api"
	}
	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 10
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 3
	}
	if c.Worker.MaxRuntimeSeconds == 0 {
		c.Worker.MaxRuntimeSeconds = 300
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = 3
	}
	if c.Backend.RetryDelaySeconds == 0 {
		c.Backend.RetryDelaySeconds = 5.0
	}
	if c.Backend.BatchSize == 0 {
		c.Backend.BatchSize = 5
	}
	if c.Backend.MinVideoDelay == 0 {
		c.Backend.MinVideoDelay = 0.5
	}
	if c.Backend.MaxVideoDelay == 0 {
		c.Backend.MaxVideoDelay = 2.0
	}
	if c.Backend.MinBatchDelay == 0 {
		c.Backend.MinBatchDelay = 1.0
	}
	if c.Backend.MaxBatchDelay == 0 {
		c.Backend.MaxBatchDelay = 3.0
	}
	if c.Dislikes.BaseURL == "" {
		c.Dislikes.BaseURL = "https://returnyoutubedislikeapi.com"
	}
}

// PollInterval returns the worker poll interval as a duration.
func (w Worker) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

// MaxRuntime returns the worker wall-clock budget as a duration.
func (w Worker) MaxRuntime() time.Duration {
	return time.Duration(w.MaxRuntimeSeconds) * time.Second
}

// RetryDelay returns the base backend retry delay as a duration.
func (b Backend) RetryDelay() time.Duration {
	return time.Duration(b.RetryDelaySeconds * float64(time.Second))
}
