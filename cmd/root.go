package cmd

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trn-tools/trn-cli/internal/config"
	"github.com/trn-tools/trn-cli/internal/logger"
	"github.com/trn-tools/trn-cli/pkg/prompt"
	"github.com/trn-tools/trn-cli/pkg/storage"
	"go.uber.org/zap"
)

// commandDeps holds the collaborators commands reach for at run time.
type commandDeps struct {
	newLogger     func(cfg *config.Config) (*zap.Logger, error)
	rpcTransport  http.RoundTripper
	newEventStore func(cfg *config.Config, l *zap.Logger) (storage.EventStore, error)
	newConfirmer  func(cmd *cobra.Command) prompt.Confirmer
	now           func() time.Time
}

func defaultDeps() *commandDeps {
	return &commandDeps{
		newLogger: func(cfg *config.Config) (*zap.Logger, error) {
			return logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug, Format: cfg.LogFormat})
		},
		newEventStore: newEventStore,
		newConfirmer: func(cmd *cobra.Command) prompt.Confirmer {
			return prompt.NewReaderConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
		},
		now: time.Now,
	}
}

var rootCmd = NewRootCmd(defaultDeps())

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func NewRootCmd(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trn",
		Short: "Utilities for The Root Network: address derivations and staking ledger reconciliation",
	}
	initConfig(cmd)

	cmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	cmd.PersistentFlags().String(config.LogFormat, "console", `Log encoding, "console" or "json"`)
	cmd.PersistentFlags().StringP(config.ChainName, "c", string(config.Chain_Root), "The chain to use (root, porcini, local)")

	cmd.PersistentFlags().String(config.SubstrateRpcUrl, "", `Archive node url, e.g. "https://root.rootnet.live/archive" (defaults to the chain's public archive node)`)
	cmd.PersistentFlags().Duration(config.SubstrateRpcRequestTimeout, 30*time.Second, `Timeout for a single RPC request`)

	cmd.PersistentFlags().String(config.StoreBackendName, string(config.StoreBackend_MongoDb), `Where to upload records, "mongodb" or "postgres"`)

	cmd.PersistentFlags().String(config.MongoDbConnectionString, "", `MongoDB connection string`)
	cmd.PersistentFlags().String(config.MongoDbDatabase, "trn-staking-mainnet", `MongoDB database name`)
	cmd.PersistentFlags().String(config.MongoDbCollection, "transactions", `MongoDB collection name`)

	cmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	cmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	cmd.PersistentFlags().String(config.DatabaseUser, "trn", `PostgreSQL username`)
	cmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	cmd.PersistentFlags().String(config.DatabaseDbName, "trn", `PostgreSQL database name`)
	cmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	cmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode`)

	// setup sub commands
	cmd.AddCommand(newPidConvertCmd())
	cmd.AddCommand(newAssetToEvmCmd())
	cmd.AddCommand(newNftToEvmCmd())
	cmd.AddCommand(newSftToEvmCmd())
	cmd.AddCommand(newDexPoolAddressCmd())
	cmd.AddCommand(newNftUuidCmd())
	cmd.AddCommand(newRemarkCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newStakingEventCmd(deps))

	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
	// earlier releases read the connection string without a prefix
	viper.BindEnv( //nolint:errcheck
		config.KebabToSnakeCase(config.MongoDbConnectionString),
		config.LegacyMongoDbConnectionStringEnv,
	)

	return cmd
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}
