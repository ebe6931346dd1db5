package staking

import (
	"math/big"
	"time"
)

type TransactionType string

const (
	TransactionType_Bonded    TransactionType = "bonded"
	TransactionType_Unbonded  TransactionType = "unbonded"
	TransactionType_Rebonded  TransactionType = "rebonded"
	TransactionType_Withdrawn TransactionType = "withdrawn"
)

// StakeEvent is a ledger change reconstructed after the fact. It is built
// once by the Detector and never mutated.
type StakeEvent struct {
	Type        TransactionType `json:"type" bson:"type"`
	Account     string          `json:"account" bson:"account"`
	BlockNumber uint64          `json:"blockNumber" bson:"blockNumber"`
	Amount      string          `json:"amount" bson:"amount"`
	ManualEntry bool            `json:"manualEntry" bson:"manualEntry"`
	CreatedAt   time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Classify infers the transaction type from the ledgers at both ends of a
// range. A total increase dominates the active comparison, any total decrease
// is a withdrawal and equal totals are an unbond.
func Classify(start, end *LedgerSnapshot) TransactionType {
	switch end.Total.Cmp(start.Total) {
	case 1:
		if end.Active.Cmp(start.Active) > 0 {
			return TransactionType_Bonded
		}
		return TransactionType_Rebonded
	case -1:
		return TransactionType_Withdrawn
	default:
		return TransactionType_Unbonded
	}
}

// TotalDelta returns end.total - start.total, sign preserved.
func TotalDelta(start, end *LedgerSnapshot) *big.Int {
	return new(big.Int).Sub(end.Total, start.Total)
}

func ActiveDelta(start, end *LedgerSnapshot) *big.Int {
	return new(big.Int).Sub(end.Active, start.Active)
}
