package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/trn-tools/trn-cli/internal/tests"
	pg "github.com/trn-tools/trn-cli/pkg/postgres"
	"github.com/trn-tools/trn-cli/pkg/staking"
	"github.com/trn-tools/trn-cli/pkg/storage"
	"go.uber.org/zap"
)

func Test_PostgresEventStore(t *testing.T) {
	dbCfg := tests.GetDbConfigFromEnv()
	if dbCfg == nil {
		t.Skip("no test database configured")
	}
	pgConfig := pg.PostgresConfigFromDbConfig(dbCfg)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := &staking.StakeEvent{
		Type:        staking.TransactionType_Withdrawn,
		Account:     "0xFFfFFFFF0000000000000000000000000016Cd23",
		BlockNumber: 21700000,
		Amount:      "-20",
		ManualEntry: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	t.Run("Test insert stake event", func(t *testing.T) {
		store := NewPostgresEventStore(pgConfig, zap.NewNop())

		id, err := store.InsertStakeEvent(context.Background(), event)
		assert.Nil(t, err)
		_, err = uuid.Parse(id)
		assert.Nil(t, err)

		conn, err := pg.Connect(context.Background(), pgConfig)
		assert.Nil(t, err)
		defer conn.Close()

		var row storage.StakingTransaction
		res := conn.Gorm.Where("id = ?", id).First(&row)
		assert.Nil(t, res.Error)
		assert.Equal(t, "withdrawn", row.Type)
		assert.Equal(t, "-20", row.Amount)
		assert.Equal(t, uint64(21700000), row.BlockNumber)
		assert.True(t, row.ManualEntry)
	})
}
