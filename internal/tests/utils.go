package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/trn-tools/trn-cli/internal/config"
)

func envKey(flagName string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return fmt.Sprintf("%s_%s", config.ENV_PREFIX, strings.ToUpper(r.Replace(flagName)))
}

// GetDbConfigFromEnv returns nil when no test database is configured.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	host := os.Getenv(envKey(config.DatabaseHost))
	if host == "" {
		return nil
	}
	port, err := strconv.Atoi(os.Getenv(envKey(config.DatabasePort)))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv(envKey(config.DatabaseUser)),
		Password: os.Getenv(envKey(config.DatabasePassword)),
		DbName:   os.Getenv(envKey(config.DatabaseDbName)),
		SSLMode:  os.Getenv(envKey(config.DatabaseSSLMode)),
	}
}

// GetMongoConfigFromEnv returns nil when no test cluster is configured. The
// database name is randomised so runs do not collide.
func GetMongoConfigFromEnv() *config.MongoDbConfig {
	connStr := os.Getenv(envKey(config.MongoDbConnectionString))
	if connStr == "" {
		connStr = os.Getenv(config.LegacyMongoDbConnectionStringEnv)
	}
	if connStr == "" {
		return nil
	}
	return &config.MongoDbConfig{
		ConnectionString: connStr,
		Database:         GenerateTestDbName(),
		Collection:       "transactions",
	}
}

func GenerateTestDbName() string {
	return fmt.Sprintf("trn_test_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
