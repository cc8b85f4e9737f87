package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server Server
	Mongo  Mongo
	Redis  Redis
	JWT    JWT
}

type Server struct {
	Addr string
	Env  string
}

type Mongo struct {
	URI      string
	Database string
}

type Redis struct {
	Addr string
}

type JWT struct {
	Secret string
	Issuer string
}

func (s Server) Development() bool {
	return s.Env == "development"
}

// Load reads config.yaml (optional) and lets environment variables
// override every key: SERVER_ADDR, MONGO_URI, REDIS_ADDR, JWT_SECRET, ...
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only walks keys viper already knows about, so every
	// env-backed key is bound explicitly.
	for _, key := range []string{
		"server.addr", "server.env",
		"mongo.uri", "mongo.database",
		"redis.addr",
		"jwt.secret", "jwt.issuer",
	} {
		v.BindEnv(key)
	}

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.env", "production")
	v.SetDefault("mongo.database", "chatwire")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("jwt.issuer", "chatwire")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Mongo.URI == "" {
		return nil, errors.New("mongo.uri (MONGO_URI) is not set")
	}
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt.secret (JWT_SECRET) is not set")
	}
	return &c, nil
}
