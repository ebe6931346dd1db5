package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trn-tools/trn-cli/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

type PostgresConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:       dbCfg.Host,
		Port:       dbCfg.Port,
		Username:   dbCfg.User,
		Password:   dbCfg.Password,
		DbName:     dbCfg.DbName,
		SchemaName: dbCfg.SchemaName,
		SSLMode:    dbCfg.SSLMode,
	}
}

// DSN renders the lib/pq keyword/value connection string. Sessions always run in UTC.
func (c *PostgresConfig) DSN() (string, error) {
	sslMode := defaultSSLMode
	if c.SSLMode != "" {
		if !slices.Contains(validSSLModes, c.SSLMode) {
			return "", errors.Errorf("invalid ssl mode: %s. Must be one of: %s", c.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = c.SSLMode
	}

	parts := []string{"host=" + c.Host}
	if c.Username != "" {
		parts = append(parts, "user="+c.Username)
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	parts = append(parts,
		"dbname="+c.DbName,
		fmt.Sprintf("port=%d", c.Port),
		"sslmode="+sslMode,
		"TimeZone=UTC",
	)
	if c.SchemaName != "" {
		parts = append(parts, "search_path="+c.SchemaName)
	}
	return strings.Join(parts, " "), nil
}

// Connection is a verified database handle together with the gorm session on top of it.
type Connection struct {
	Sql  *sql.DB
	Gorm *gorm.DB
}

// Connect opens the database, pings it and wraps it in a silent gorm session.
func Connect(ctx context.Context, cfg *PostgresConfig) (*Connection, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open PostgreSQL")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to PostgreSQL at %s:%d", cfg.Host, cfg.Port)
	}

	grm, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create gorm session")
	}

	return &Connection{Sql: db, Gorm: grm.WithContext(ctx)}, nil
}

func (c *Connection) Close() error {
	return c.Sql.Close()
}
