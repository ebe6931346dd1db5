package staking

import (
	"bytes"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/trn-tools/trn-cli/pkg/scale"
)

type UnlockChunk struct {
	Value *big.Int
	Era   uint32
}

// LedgerSnapshot is the Staking.Ledger entry of one account as of one block.
// Trailing holds the encoded fields after `unlocking` (claimed reward eras)
// so that snapshots compare on the full stored value.
type LedgerSnapshot struct {
	Stash     common.Address
	Total     *big.Int
	Active    *big.Int
	Unlocking []UnlockChunk
	Trailing  []byte
}

func (s *LedgerSnapshot) IsComplete() bool {
	return s != nil && s.Total != nil && s.Active != nil
}

// Equal reports structural identity: every decoded field and the trailing
// bytes must match.
func (s *LedgerSnapshot) Equal(o *LedgerSnapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Stash != o.Stash || !bigEqual(s.Total, o.Total) || !bigEqual(s.Active, o.Active) {
		return false
	}
	if len(s.Unlocking) != len(o.Unlocking) {
		return false
	}
	for i := range s.Unlocking {
		if s.Unlocking[i].Era != o.Unlocking[i].Era || !bigEqual(s.Unlocking[i].Value, o.Unlocking[i].Value) {
			return false
		}
	}
	return bytes.Equal(s.Trailing, o.Trailing)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// DecodeLedger decodes a SCALE encoded StakingLedger:
//
//	stash: AccountId20, total: Compact<u128>, active: Compact<u128>,
//	unlocking: Vec<{ value: Compact<u128>, era: Compact<u32> }>, ...
func DecodeLedger(raw []byte) (*LedgerSnapshot, error) {
	d := scale.NewDecoder(raw)

	stash, err := d.ReadBytes(common.AddressLength)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ledger stash")
	}
	total, err := d.DecodeCompact()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ledger total")
	}
	active, err := d.DecodeCompact()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ledger active")
	}
	count, err := d.DecodeCompactUint64()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode unlocking length")
	}
	// every chunk is at least two bytes
	if count > uint64(d.Len()/2) {
		return nil, errors.Errorf("unlocking length %d exceeds remaining input", count)
	}

	unlocking := make([]UnlockChunk, 0, count)
	for i := uint64(0); i < count; i++ {
		value, err := d.DecodeCompact()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode unlocking chunk %d value", i)
		}
		era, err := d.DecodeCompactUint64()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode unlocking chunk %d era", i)
		}
		if era > math.MaxUint32 {
			return nil, errors.Errorf("unlocking chunk %d era %d overflows u32", i, era)
		}
		unlocking = append(unlocking, UnlockChunk{Value: value, Era: uint32(era)})
	}

	return &LedgerSnapshot{
		Stash:     common.BytesToAddress(stash),
		Total:     total,
		Active:    active,
		Unlocking: unlocking,
		Trailing:  d.Remaining(),
	}, nil
}

// EncodeLedger is the inverse of DecodeLedger.
func EncodeLedger(s *LedgerSnapshot) []byte {
	var buf bytes.Buffer
	buf.Write(s.Stash.Bytes())
	buf.Write(scale.EncodeCompact(s.Total))
	buf.Write(scale.EncodeCompact(s.Active))
	buf.Write(scale.EncodeCompactUint64(uint64(len(s.Unlocking))))
	for _, c := range s.Unlocking {
		buf.Write(scale.EncodeCompact(c.Value))
		buf.Write(scale.EncodeCompactUint64(uint64(c.Era)))
	}
	buf.Write(s.Trailing)
	return buf.Bytes()
}
