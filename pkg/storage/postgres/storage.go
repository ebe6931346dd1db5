package postgres

import (
	"context"
	"fmt"

	pg "github.com/trn-tools/trn-cli/pkg/postgres"
	"github.com/trn-tools/trn-cli/pkg/postgres/helpers"
	"github.com/trn-tools/trn-cli/pkg/postgres/migrations"
	"github.com/trn-tools/trn-cli/pkg/staking"
	"github.com/trn-tools/trn-cli/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresEventStore opens a fresh connection for every insert.
type PostgresEventStore struct {
	config *pg.PostgresConfig
	Logger *zap.Logger
}

func NewPostgresEventStore(cfg *pg.PostgresConfig, l *zap.Logger) *PostgresEventStore {
	return &PostgresEventStore{
		config: cfg,
		Logger: l,
	}
}

func (s *PostgresEventStore) InsertStakeEvent(ctx context.Context, event *staking.StakeEvent) (string, error) {
	conn, err := pg.Connect(ctx, s.config)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.Logger.Sugar().Warnw("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()
	s.Logger.Sugar().Infow("Connected to PostgreSQL",
		zap.String("host", s.config.Host),
		zap.String("database", s.config.DbName),
	)

	migrator := migrations.NewMigrator(conn.Sql, conn.Gorm, s.Logger)
	if err := migrator.MigrateAll(); err != nil {
		return "", fmt.Errorf("failed to migrate database: %w", err)
	}

	row, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (*storage.StakingTransaction, error) {
		row := storage.StakingTransactionFromEvent(event)
		res := tx.Model(&storage.StakingTransaction{}).Clauses(clause.Returning{}).Create(row)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to insert staking transaction at block '%d': %w", event.BlockNumber, res.Error)
		}
		return row, nil
	}, conn.Gorm, nil)
	if err != nil {
		return "", err
	}
	return row.Id.String(), nil
}
