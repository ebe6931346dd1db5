package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "TRN"

// Legacy environment variable read by earlier versions of the tool.
const LegacyMongoDbConnectionStringEnv = "MONGODB_CONNECTION_STRING"

type Chain string

const (
	Chain_Root    Chain = "root"
	Chain_Porcini Chain = "porcini"
	Chain_Local   Chain = "local"
)

type StoreBackend string

const (
	StoreBackend_MongoDb  StoreBackend = "mongodb"
	StoreBackend_Postgres StoreBackend = "postgres"
)

// Flag names. Viper keys are derived with KebabToSnakeCase.
const (
	Debug     = "debug"
	LogFormat = "log.format"
	ChainName = "chain"

	SubstrateRpcUrl            = "substrate.rpc-url"
	SubstrateRpcRequestTimeout = "substrate.request-timeout"

	StoreBackendName = "store.backend"

	MongoDbConnectionString = "mongodb.connection-string"
	MongoDbDatabase         = "mongodb.database"
	MongoDbCollection       = "mongodb.collection"

	DatabaseHost       = "database.host"
	DatabasePort       = "database.port"
	DatabaseUser       = "database.user"
	DatabasePassword   = "database.password"
	DatabaseDbName     = "database.db_name"
	DatabaseSchemaName = "database.schema_name"
	DatabaseSSLMode    = "database.ssl_mode"
)

var chainRpcUrls = map[Chain]string{
	Chain_Root:    "https://root.rootnet.live/archive",
	Chain_Porcini: "https://porcini.rootnet.app/archive",
	Chain_Local:   "http://localhost:9933",
}

type Config struct {
	Debug          bool
	LogFormat      string
	Chain          Chain
	SubstrateRpc   SubstrateRpcConfig
	StoreBackend   StoreBackend
	MongoDbConfig  MongoDbConfig
	DatabaseConfig DatabaseConfig
}

type SubstrateRpcConfig struct {
	Url            string
	RequestTimeout time.Duration
}

type MongoDbConfig struct {
	ConnectionString string
	Database         string
	Collection       string
}

type DatabaseConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

func ParseChain(c string) (Chain, error) {
	switch Chain(strings.ToLower(c)) {
	case Chain_Root, "":
		return Chain_Root, nil
	case Chain_Porcini:
		return Chain_Porcini, nil
	case Chain_Local:
		return Chain_Local, nil
	}
	return "", fmt.Errorf("unknown chain '%s' (expected root, porcini or local)", c)
}

func ParseStoreBackend(b string) (StoreBackend, error) {
	switch StoreBackend(strings.ToLower(b)) {
	case StoreBackend_MongoDb, "":
		return StoreBackend_MongoDb, nil
	case StoreBackend_Postgres:
		return StoreBackend_Postgres, nil
	}
	return "", fmt.Errorf("unknown store backend '%s' (expected mongodb or postgres)", b)
}

// NewConfig reads the current viper state into a Config. Flags and
// environment variables must already be bound.
func NewConfig() (*Config, error) {
	chain, err := ParseChain(viper.GetString(normalizeFlagName(ChainName)))
	if err != nil {
		return nil, err
	}
	backend, err := ParseStoreBackend(viper.GetString(normalizeFlagName(StoreBackendName)))
	if err != nil {
		return nil, err
	}

	return &Config{
		Debug:     viper.GetBool(normalizeFlagName(Debug)),
		LogFormat: viper.GetString(normalizeFlagName(LogFormat)),
		Chain:     chain,

		SubstrateRpc: SubstrateRpcConfig{
			Url:            viper.GetString(normalizeFlagName(SubstrateRpcUrl)),
			RequestTimeout: viper.GetDuration(normalizeFlagName(SubstrateRpcRequestTimeout)),
		},

		StoreBackend: backend,

		MongoDbConfig: MongoDbConfig{
			ConnectionString: viper.GetString(normalizeFlagName(MongoDbConnectionString)),
			Database:         viper.GetString(normalizeFlagName(MongoDbDatabase)),
			Collection:       viper.GetString(normalizeFlagName(MongoDbCollection)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:       viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:       viper.GetInt(normalizeFlagName(DatabasePort)),
			User:       viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:   viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:     viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName: viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:    viper.GetString(normalizeFlagName(DatabaseSSLMode)),
		},
	}, nil
}

// GetSubstrateRpcUrl returns the explicitly configured url, falling back to
// the public archive endpoint of the selected chain.
func (c *Config) GetSubstrateRpcUrl() string {
	if c.SubstrateRpc.Url != "" {
		return c.SubstrateRpc.Url
	}
	return chainRpcUrls[c.Chain]
}

func (c *Config) GetStoreName() string {
	switch c.StoreBackend {
	case StoreBackend_Postgres:
		return "PostgreSQL"
	default:
		return "MongoDB"
	}
}
