package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Secrets read from the environment override the file values
var envOverrides = map[string]func(*Config, string){
	"BATCHFLOW_DATABASE_PASSWORD": func(c *Config, v string) { c.Database.Password = v },
	"BATCHFLOW_RABBITMQ_PASSWORD": func(c *Config, v string) { c.RabbitMQ.Password = v },
	"BATCHFLOW_REDIS_PASSWORD":    func(c *Config, v string) { c.Redis.Password = v },
	"BATCHFLOW_ALERT_EMAIL":       func(c *Config, v string) { c.Flow.AlertEmail = v },
}

func applyEnv(c *Config) {
	for key, set := range envOverrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			set(c, v)
		}
	}
}

// FromCommandLine loads .env, resolves the config path from the -config
// flag, then envVar, then defaultPath, and validates the result.
func FromCommandLine(envVar, defaultPath string, validate func(*Config) error) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	path := os.Getenv(envVar)
	if path == "" {
		path = defaultPath
	}
	configPath := flag.String("config", path, "Path to configuration file")
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
