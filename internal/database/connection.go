package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver          string `env:"DB_DRIVER" envDefault:"sqlite"`
	File            string `env:"DB_FILE" envDefault:"email_triage.db"`
	Host            string `env:"POSTGRES_HOST"`
	Port            string `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"POSTGRES_USER"`
	DBName          string `env:"POSTGRES_DB_NAME"`
	Password        string `env:"POSTGRES_PASSWORD"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	LogLevel        string `env:"DB_LOG_LEVEL" envDefault:"WARN"`
}

func NewConnection(dbConfig *DatabaseConfig) (*gorm.DB, error) {
	if err := validateConfig(dbConfig); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(dbConfig.LogLevel)),
	}

	switch dbConfig.Driver {
	case DriverPostgres:
		return openPostgres(dbConfig, gormConfig)
	default:
		return openSQLite(dbConfig, gormConfig)
	}
}

func openSQLite(dbConfig *DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	if dir := filepath.Dir(dbConfig.File); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := gorm.Open(sqlite.Open(dbConfig.File), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; a single connection keeps writers queued
	// in database/sql instead of failing with "database is locked"
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func openPostgres(dbConfig *DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	portInt, err := strconv.Atoi(dbConfig.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port number: %w", err)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, portInt, dbConfig.User, dbConfig.Password, dbConfig.DBName, dbConfig.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return db, nil
}

func validateConfig(config *DatabaseConfig) error {
	if config == nil {
		return errors.New("database config is nil")
	}
	switch config.Driver {
	case DriverSQLite, "":
		if config.File == "" {
			return errors.New("database file config is empty")
		}
	case DriverPostgres:
		switch {
		case config.Host == "":
			return errors.New("database host config is empty")
		case config.Port == "":
			return errors.New("database port config is empty")
		case config.User == "":
			return errors.New("database user config is empty")
		case config.DBName == "":
			return errors.New("database name config is empty")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Driver)
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToUpper(level) {
	case "SILENT":
		return logger.Silent
	case "ERROR":
		return logger.Error
	case "INFO":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
