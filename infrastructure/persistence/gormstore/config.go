// Package gormstore is the gorm-backed change-tracking store and unit of work.
// It runs against MySQL, PostgreSQL and SQLite.
package gormstore

import (
	"context"
	"fmt"
	"net"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dddkit/config"
	"dddkit/pkg/logger"
)

const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 10
	DefaultConnMaxLifetime = 10 * time.Minute
	DefaultConnMaxIdleTime = 5 * time.Minute
)

// MySQLDSN builds the DSN through the driver's own config so escaping is right.
// ClientFoundRows makes UPDATE report matched rather than changed rows, which the
// version check relies on; it is forced on an explicit DSN as well.
func MySQLDSN(c config.DatabaseConfig) (string, error) {
	if c.DSN != "" {
		cfg, err := mysqlDriver.ParseDSN(c.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ClientFoundRows = true
		return cfg.FormatDSN(), nil
	}
	cfg := mysqlDriver.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.ReadTimeout = 10 * time.Second
	cfg.WriteTimeout = 10 * time.Second
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	cfg.Collation = "utf8mb4_unicode_ci"
	return cfg.FormatDSN(), nil
}

func PostgresDSN(c config.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

func SQLiteDSN(c config.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.SQLitePath
}

// Dialector picks the gorm driver for c.Driver
func Dialector(c config.DatabaseConfig) (gorm.Dialector, error) {
	switch c.Driver {
	case "mysql":
		dsn, err := MySQLDSN(c)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(PostgresDSN(c)), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(c)), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug", "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	case "silent":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}

func applyDefaults(c *config.DatabaseConfig) {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = DefaultConnMaxLifetime
	}
}

// Connect opens the database with the zap gorm logger and pool settings applied
func Connect(c config.DatabaseConfig) (*gorm.DB, error) {
	applyDefaults(&c)

	dialector, err := Dialector(c)
	if err != nil {
		return nil, err
	}

	gormLoggerConfig := logger.DefaultGormLoggerConfig()
	if c.SlowThreshold > 0 {
		gormLoggerConfig.SlowThreshold = c.SlowThreshold
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.NewGormLogger(parseLogLevel(c.LogLevel), gormLoggerConfig),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	logger.Info("Database connected",
		zap.String("driver", c.Driver),
		zap.String("host", c.Host),
		zap.String("database", c.Database),
		zap.Int("max_open_conns", c.MaxOpenConns),
		zap.Int("max_idle_conns", c.MaxIdleConns),
		zap.Duration("conn_max_lifetime", c.ConnMaxLifetime),
	)

	return db, nil
}

// Ping checks the connection of an open database
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
