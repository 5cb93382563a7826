package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	cron_config "github.com/customeros/mailtriage/internal/cron/config"
	"github.com/customeros/mailtriage/internal/database"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/tracing"
)

type Config struct {
	AppConfig           *AppConfig
	Logger              *logger.Config
	Tracing             *tracing.JaegerConfig
	DatabaseConfig      *database.DatabaseConfig
	IMAPConfig          *IMAPConfig
	TriageConfig        *TriageConfig
	OpenAIConfig        *OpenAIConfig
	ReportArchiveConfig *ReportArchiveConfig
	CronConfig          *cron_config.Config
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:           &AppConfig{},
		Logger:              &logger.Config{},
		Tracing:             &tracing.JaegerConfig{},
		DatabaseConfig:      &database.DatabaseConfig{},
		IMAPConfig:          &IMAPConfig{},
		TriageConfig:        &TriageConfig{},
		OpenAIConfig:        &OpenAIConfig{},
		ReportArchiveConfig: &ReportArchiveConfig{},
		CronConfig:          &cron_config.Config{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, errors.Wrap(err, "error loading mailtriage config")
	}

	return config, nil
}
