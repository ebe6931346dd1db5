package staking

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LedgerQuerier returns the ledger of an account as of a block height, or
// nil when the account has no ledger at that height.
type LedgerQuerier interface {
	GetLedgerAt(ctx context.Context, account common.Address, blockNumber uint64) (*LedgerSnapshot, error)
}

// StateClient is the subset of the substrate rpc client used for point in
// time storage reads.
type StateClient interface {
	GetBlockHash(ctx context.Context, blockNumber uint64) (string, error)
	GetStorage(ctx context.Context, key string, blockHash string) ([]byte, error)
}

type RpcLedgerQuerier struct {
	client StateClient
	logger *zap.Logger
}

func NewRpcLedgerQuerier(client StateClient, l *zap.Logger) *RpcLedgerQuerier {
	return &RpcLedgerQuerier{
		client: client,
		logger: l,
	}
}

func (q *RpcLedgerQuerier) GetLedgerAt(ctx context.Context, account common.Address, blockNumber uint64) (*LedgerSnapshot, error) {
	blockHash, err := q.client.GetBlockHash(ctx, blockNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get hash of block %d", blockNumber)
	}

	key, err := LedgerStorageKey(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build ledger storage key")
	}

	raw, err := q.client.GetStorage(ctx, key, blockHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read staking.ledger at block %d", blockNumber)
	}

	q.logger.Sugar().Debugw("Fetched staking.ledger",
		zap.Uint64("block", blockNumber),
		zap.String("blockHash", blockHash),
		zap.String("account", account.Hex()),
		zap.Bool("found", raw != nil),
	)
	if raw == nil {
		return nil, nil
	}

	ledger, err := DecodeLedger(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode staking.ledger at block %d", blockNumber)
	}
	return ledger, nil
}
