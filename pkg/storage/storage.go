package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trn-tools/trn-cli/pkg/staking"
)

// EventStore persists detected stake events. InsertStakeEvent returns the
// identifier assigned to the new record.
type EventStore interface {
	InsertStakeEvent(ctx context.Context, event *staking.StakeEvent) (string, error)
}

// Tables.
type StakingTransaction struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type        string
	Account     string
	BlockNumber uint64
	Amount      string
	ManualEntry bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StakingTransaction) TableName() string {
	return "staking_transactions"
}

func StakingTransactionFromEvent(event *staking.StakeEvent) *StakingTransaction {
	return &StakingTransaction{
		Id:          uuid.New(),
		Type:        string(event.Type),
		Account:     event.Account,
		BlockNumber: event.BlockNumber,
		Amount:      event.Amount,
		ManualEntry: event.ManualEntry,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}
