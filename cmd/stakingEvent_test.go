package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jarcoal/httpmock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/trn-tools/trn-cli/internal/config"
	"github.com/trn-tools/trn-cli/pkg/clients/substrate"
	"github.com/trn-tools/trn-cli/pkg/prompt"
	"github.com/trn-tools/trn-cli/pkg/staking"
	"github.com/trn-tools/trn-cli/pkg/storage"
	"go.uber.org/zap"
)

const (
	archiveUrl     = "https://archive.trn.test/archive"
	eventAccount   = "0xffffffff0000000000000000000000000016cd23"
	startBlock     = uint64(21694991)
	endBlock       = uint64(21733987)
	changeBlock    = uint64(21712345)
	finalizedBlock = uint64(21800000)
	insertedId     = "665f1c2e9b1d4a0012345678"
)

var eventNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu     sync.Mutex
	events []*staking.StakeEvent
	err    error
}

func (s *fakeStore) InsertStakeEvent(_ context.Context, event *staking.StakeEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, event)
	return insertedId, nil
}

// archiveNode serves ledger `before` below changeAt and `after` from changeAt
// onwards. A nil ledger is served as an empty storage entry.
type archiveNode struct {
	mu          sync.Mutex
	t           *testing.T
	changeAt    uint64
	before      *staking.LedgerSnapshot
	after       *staking.LedgerSnapshot
	storageKeys map[string]int
}

func blockHashFor(n uint64) string {
	return fmt.Sprintf("0x%064x", n)
}

func (a *archiveNode) respond(r *http.Request) (*http.Response, error) {
	req := &substrate.RPCRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, err
	}

	params, _ := req.Params.([]any)

	var result string
	switch req.Method {
	case "chain_getFinalizedHead":
		result = `"` + blockHashFor(finalizedBlock) + `"`
	case "chain_getHeader":
		result = fmt.Sprintf(`{"parentHash":"0x00","number":"0x%x","stateRoot":"0x00","extrinsicsRoot":"0x00"}`, finalizedBlock)
	case "chain_getBlockHash":
		result = `"` + blockHashFor(uint64(params[0].(float64))) + `"`
	case "state_getStorage":
		key := params[0].(string)
		n, err := strconv.ParseUint(params[1].(string)[2:], 16, 64)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.storageKeys[key]++
		a.mu.Unlock()

		ledger := a.before
		if n >= a.changeAt {
			ledger = a.after
		}
		if ledger == nil {
			result = "null"
		} else {
			result = `"` + hexutil.Encode(staking.EncodeLedger(ledger)) + `"`
		}
	default:
		a.t.Errorf("unexpected method %s", req.Method)
		result = "null"
	}
	return httpmock.NewStringResponse(200, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, result)), nil
}

func (a *archiveNode) storageReads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, n := range a.storageKeys {
		total += n
	}
	return total
}

func testLedger(total, active string) *staking.LedgerSnapshot {
	t, _ := new(big.Int).SetString(total, 10)
	a, _ := new(big.Int).SetString(active, 10)
	return &staking.LedgerSnapshot{Stash: common.HexToAddress(eventAccount), Total: t, Active: a}
}

type stakingEventFixture struct {
	node      *archiveNode
	transport *httpmock.MockTransport
	store     *fakeStore
	deps      *commandDeps
}

func newStakingEventFixture(t *testing.T, before, after *staking.LedgerSnapshot) *stakingEventFixture {
	f := &stakingEventFixture{
		node: &archiveNode{
			t:           t,
			changeAt:    changeBlock,
			before:      before,
			after:       after,
			storageKeys: map[string]int{},
		},
		transport: httpmock.NewMockTransport(),
		store:     &fakeStore{},
	}
	f.transport.RegisterResponder("POST", archiveUrl, f.node.respond)

	f.deps = quietDeps()
	f.deps.rpcTransport = f.transport
	f.deps.now = func() time.Time { return eventNow }
	f.deps.newEventStore = func(*config.Config, *zap.Logger) (storage.EventStore, error) {
		return f.store, nil
	}
	return f
}

func (f *stakingEventFixture) run(stdin string, extra ...string) *commandResult {
	args := []string{
		"--substrate.rpc-url", archiveUrl,
		"staking-event", eventAccount,
		strconv.FormatUint(startBlock, 10), strconv.FormatUint(endBlock, 10),
		"--no-progress",
	}
	return runCommand(f.deps, stdin, append(args, extra...)...)
}

func Test_StakingEvent(t *testing.T) {
	bonded := func(t *testing.T) *stakingEventFixture {
		return newStakingEventFixture(t, testLedger("1000000000", "1000000000"), testLedger("1500000000", "1500000000"))
	}

	t.Run("Test dry run prints the bonded record without uploading", func(t *testing.T) {
		f := bonded(t)
		res := f.run("", "--dry-run")
		assert.Nil(t, res.err)

		checksummed := common.HexToAddress(eventAccount).Hex()
		assert.Contains(t, res.stdout, "staking.ledger missing record:")
		assert.Contains(t, res.stdout, `"type": "bonded"`)
		assert.Contains(t, res.stdout, fmt.Sprintf(`"account": "%s"`, checksummed))
		assert.Contains(t, res.stdout, fmt.Sprintf(`"blockNumber": %d`, changeBlock))
		assert.Contains(t, res.stdout, `"amount": "500000000"`)
		assert.Contains(t, res.stdout, `"manualEntry": true`)
		assert.Contains(t, res.stdout, `"createdAt": "2025-06-01T12:00:00Z"`)
		assert.Contains(t, res.stdout, "Amount: 500 ROOT")
		assert.Contains(t, res.stdout, "Dry run complete - no data uploaded")
		assert.Empty(t, f.store.events)

		// two boundary reads plus at most one read per search step
		assert.LessOrEqual(t, f.node.storageReads(), 2+staking.MaxSearchSteps(startBlock, endBlock))
		key, err := staking.LedgerStorageKey(common.HexToAddress(eventAccount))
		assert.Nil(t, err)
		assert.Equal(t, f.node.storageReads(), f.node.storageKeys[key])
	})
	t.Run("Test auto upload stores the record once", func(t *testing.T) {
		f := bonded(t)
		res := f.run("", "--auto-upload")
		assert.Nil(t, res.err)

		assert.Len(t, f.store.events, 1)
		ev := f.store.events[0]
		assert.Equal(t, staking.TransactionType_Bonded, ev.Type)
		assert.Equal(t, changeBlock, ev.BlockNumber)
		assert.Equal(t, "500000000", ev.Amount)
		assert.Equal(t, eventNow, ev.CreatedAt)
		assert.Contains(t, res.stdout, "Record successfully uploaded to MongoDB: "+insertedId)
		assert.NotContains(t, res.stdout, "(y/n)")
	})
	t.Run("Test confirmation accepted", func(t *testing.T) {
		f := bonded(t)
		res := f.run("YES\n")
		assert.Nil(t, res.err)
		assert.Contains(t, res.stdout, "Do you want to upload this record to MongoDB? (y/n): ")
		assert.Len(t, f.store.events, 1)
	})
	t.Run("Test confirmation declined", func(t *testing.T) {
		f := bonded(t)
		res := f.run("n\n")
		assert.Nil(t, res.err)
		assert.Contains(t, res.stdout, "Upload cancelled.")
		assert.Empty(t, f.store.events)
	})
	t.Run("Test confirmer is injectable", func(t *testing.T) {
		f := bonded(t)
		var asked []string
		f.deps.newConfirmer = func(*cobra.Command) prompt.Confirmer {
			return prompt.ConfirmFunc(func(q string) (bool, error) {
				asked = append(asked, q)
				return true, nil
			})
		}
		res := f.run("")
		assert.Nil(t, res.err)
		assert.Len(t, asked, 1)
		assert.Len(t, f.store.events, 1)
	})
	t.Run("Test postgres backend name in prompt", func(t *testing.T) {
		f := bonded(t)
		res := runCommand(f.deps, "n\n",
			"--substrate.rpc-url", archiveUrl, "--store.backend", "postgres",
			"staking-event", eventAccount, "21694991", "21733987", "--no-progress")
		assert.Nil(t, res.err)
		assert.Contains(t, res.stdout, "Do you want to upload this record to PostgreSQL?")
	})
	t.Run("Test record is printed before a failed upload", func(t *testing.T) {
		f := bonded(t)
		f.store.err = errors.New("connection refused")
		res := f.run("", "--auto-upload")
		assert.NotNil(t, res.err)
		assert.Contains(t, res.err.Error(), "failed to upload record to MongoDB")
		assert.Contains(t, res.stdout, `"type": "bonded"`)
		assert.Contains(t, res.stderr, "connection refused")
	})
	t.Run("Test withdrawal amount is negative", func(t *testing.T) {
		f := newStakingEventFixture(t, testLedger("1500000000", "1000000000"), testLedger("1000000000", "1000000000"))
		res := f.run("", "--dry-run")
		assert.Nil(t, res.err)
		assert.Contains(t, res.stdout, `"type": "withdrawn"`)
		assert.Contains(t, res.stdout, `"amount": "-500000000"`)
		assert.Contains(t, res.stdout, "Amount: -500 ROOT")
	})
	t.Run("Test no change in range", func(t *testing.T) {
		ledger := testLedger("1000000000", "1000000000")
		f := newStakingEventFixture(t, ledger, ledger)
		res := f.run("", "--auto-upload")
		assert.Nil(t, res.err)
		assert.Equal(t, "No change detected in the specified range.\n", res.stdout)
		assert.Equal(t, 2, f.node.storageReads())
		assert.Empty(t, f.store.events)
	})
	t.Run("Test ledger missing at start block", func(t *testing.T) {
		f := newStakingEventFixture(t, nil, testLedger("1000000000", "1000000000"))
		res := f.run("", "--auto-upload")
		assert.Nil(t, res.err)
		assert.Equal(t, "Ledger data not found for the specified blocks.\n", res.stdout)
		assert.Empty(t, f.store.events)
	})
	t.Run("Test progress bar", func(t *testing.T) {
		f := bonded(t)
		res := runCommand(f.deps, "",
			"--substrate.rpc-url", archiveUrl,
			"staking-event", eventAccount, "21694991", "21733987", "--dry-run")
		assert.Nil(t, res.err)
		assert.Contains(t, res.stdout, "Dry run complete")
		assert.NotEmpty(t, res.stderr)
	})
}

func Test_StakingEventValidation(t *testing.T) {
	ledger := testLedger("1000000000", "1000000000")

	tests := []struct {
		name   string
		args   []string
		errIs  error
		errMsg string
	}{
		{"conflicting upload flags", []string{eventAccount, "1", "2", "--auto-upload", "--dry-run"}, nil, "dry-run"},
		{"invalid address", []string{"0x1234", "1", "2"}, nil, "invalid account address"},
		{"non numeric start block", []string{eventAccount, "abc", "2"}, nil, "start block"},
		{"non numeric end block", []string{eventAccount, "1", "2.5"}, nil, "end block"},
		{"equal blocks", []string{eventAccount, "5", "5"}, staking.ErrInvalidRange, ""},
		{"reversed blocks", []string{eventAccount, "10", "5"}, staking.ErrInvalidRange, ""},
		{"missing arguments", []string{eventAccount, "1"}, nil, "accepts 3 arg(s)"},
		{"unknown chain", []string{eventAccount, "1", "2", "--chain", "mainnet"}, nil, "unknown chain"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("Test %s is rejected before any query", tt.name), func(t *testing.T) {
			f := newStakingEventFixture(t, ledger, ledger)
			args := append([]string{"--substrate.rpc-url", archiveUrl, "staking-event"}, tt.args...)
			res := runCommand(f.deps, "", args...)

			assert.NotNil(t, res.err)
			if tt.errIs != nil {
				assert.ErrorIs(t, res.err, tt.errIs)
			}
			if tt.errMsg != "" {
				assert.Contains(t, res.err.Error(), tt.errMsg)
			}
			assert.Equal(t, 0, f.transport.GetTotalCallCount())
			assert.Contains(t, res.stdout, "Usage:")
		})
	}

	t.Run("Test missing connection string is rejected before any query", func(t *testing.T) {
		t.Setenv("TRN_MONGODB_CONNECTION_STRING", "")
		t.Setenv(config.LegacyMongoDbConnectionStringEnv, "")

		f := newStakingEventFixture(t, ledger, ledger)
		f.deps.newEventStore = newEventStore
		res := f.run("", "--auto-upload")
		assert.NotNil(t, res.err)
		assert.Contains(t, res.err.Error(), "connection string")
		assert.Equal(t, 0, f.transport.GetTotalCallCount())
	})
	t.Run("Test dry run does not need a store", func(t *testing.T) {
		t.Setenv("TRN_MONGODB_CONNECTION_STRING", "")
		t.Setenv(config.LegacyMongoDbConnectionStringEnv, "")

		f := newStakingEventFixture(t, ledger, ledger)
		f.deps.newEventStore = newEventStore
		res := f.run("", "--dry-run")
		assert.Nil(t, res.err)
	})
	t.Run("Test end block beyond finalized head", func(t *testing.T) {
		f := newStakingEventFixture(t, ledger, ledger)
		res := runCommand(f.deps, "",
			"--substrate.rpc-url", archiveUrl,
			"staking-event", eventAccount, "1", strconv.FormatUint(finalizedBlock+1, 10), "--dry-run")
		assert.ErrorIs(t, res.err, ErrEndBlockNotFinalized)
		assert.Equal(t, 0, f.node.storageReads())
		assert.NotContains(t, res.stdout, "Usage:")
	})
	t.Run("Test rpc failure surfaces as an error", func(t *testing.T) {
		f := newStakingEventFixture(t, ledger, ledger)
		f.transport.RegisterResponder("POST", archiveUrl, httpmock.NewStringResponder(502, "bad gateway"))
		res := f.run("", "--dry-run")
		assert.NotNil(t, res.err)
		assert.Contains(t, res.stderr, "Error:")
		assert.Equal(t, 1, f.transport.GetTotalCallCount())
	})
}
