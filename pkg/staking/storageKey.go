package staking

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trn-tools/trn-cli/pkg/utils"
	"golang.org/x/crypto/blake2b"
)

const (
	palletName     = "Staking"
	ledgerItemName = "Ledger"
)

// Twox128 is the 128 bit xxHash used for storage prefixes: xxh64 with seed 0
// followed by xxh64 with seed 1, both little endian.
func Twox128(data []byte) []byte {
	out := make([]byte, 16)
	for seed := uint64(0); seed < 2; seed++ {
		h := xxhash.NewWithSeed(seed)
		_, _ = h.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], h.Sum64())
	}
	return out
}

// Blake2_128Concat hashes data to 16 bytes and appends the data itself.
func Blake2_128Concat(data []byte) ([]byte, error) {
	h, err := blake2b.New(16, nil)
	if err != nil {
		return nil, err
	}
	_, _ = h.Write(data)
	return append(h.Sum(nil), data...), nil
}

func StoragePrefix(pallet, item string) []byte {
	return append(Twox128([]byte(pallet)), Twox128([]byte(item))...)
}

// LedgerStorageKey returns the hex key of Staking.Ledger(account).
func LedgerStorageKey(account common.Address) (string, error) {
	hashed, err := Blake2_128Concat(account.Bytes())
	if err != nil {
		return "", err
	}
	return utils.ConvertBytesToString(append(StoragePrefix(palletName, ledgerItemName), hashed...)), nil
}
