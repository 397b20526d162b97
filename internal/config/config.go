package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds service-level configuration. Values come from an optional
// config file with environment variables taking precedence.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string
	JWTSecret     string
	AuthUsername  string
	AuthPassword  string
	LogMode       string

	AI *AIConfig
}

// Load reads configuration from the given file path (may be empty) and the
// environment. Missing values fall back to defaults suitable for local runs.
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "microlearn")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("http.port", "8080")
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "password123")
	v.SetDefault("log.mode", "dev")
	setAIDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	redisAddr := v.GetString("redis.addr")
	// Accept redis://host:port URIs from container environments.
	redisAddr = strings.TrimPrefix(redisAddr, "redis://")

	return &Config{
		MongoURI:      v.GetString("mongo.uri"),
		MongoDatabase: v.GetString("mongo.database"),
		RedisAddr:     redisAddr,
		HTTPPort:      v.GetString("http.port"),
		JWTSecret:     v.GetString("jwt.secret"),
		AuthUsername:  v.GetString("auth.username"),
		AuthPassword:  v.GetString("auth.password"),
		LogMode:       v.GetString("log.mode"),
		AI:            loadAIConfig(v),
	}, nil
}
