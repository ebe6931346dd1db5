// Package address derives the deterministic EVM addresses TRN assigns to
// runtime pallets, precompiled token contracts and DEX pools.
package address

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const PalletIdLength = 8

// ParachainId is folded into NFT collection UUIDs.
const ParachainId = 100

// Collection UUIDs are u32 with the low 10 bits holding the parachain id.
const MaxNftNextId = 1<<22 - 1

var palletIdPrefix = []byte("modl")

// Precompile prefixes occupy the first four bytes of the address.
var (
	AssetPrecompilePrefix = [4]byte{0xcc, 0xcc, 0xcc, 0xcc}
	NftPrecompilePrefix   = [4]byte{0xaa, 0xaa, 0xaa, 0xaa}
	SftPrecompilePrefix   = [4]byte{0xbb, 0xbb, 0xbb, 0xbb}
	DexPoolPrefix         = [4]byte{0xdd, 0xdd, 0xdd, 0xdd}
)

var (
	ErrInvalidPalletId   = errors.New("PalletId must be 8 characters long")
	ErrInvalidIdentifier = errors.New("identifier must be a valid non-negative number")
	ErrInvalidAddress    = errors.New("invalid account address")
	ErrNftIdOutOfRange   = fmt.Errorf("NFT next ID must not exceed %d", MaxNftNextId)
)

// PalletIdToAccount converts a PalletId into its AccountId20: "modl" followed
// by the pallet id bytes, right-padded with zeros.
func PalletIdToAccount(palletId string) (common.Address, error) {
	if len(palletId) != PalletIdLength {
		return common.Address{}, ErrInvalidPalletId
	}
	var addr common.Address
	n := copy(addr[:], palletIdPrefix)
	copy(addr[n:], palletId)
	return addr, nil
}

func AssetIdToAddress(assetId uint32) common.Address {
	return prefixedAddress(AssetPrecompilePrefix, assetId)
}

func NftCollectionToAddress(collectionId uint32) common.Address {
	return prefixedAddress(NftPrecompilePrefix, collectionId)
}

func SftCollectionToAddress(collectionId uint32) common.Address {
	return prefixedAddress(SftPrecompilePrefix, collectionId)
}

// DexPoolAddress places the lower asset id first, so the result does not
// depend on argument order.
func DexPoolAddress(assetA, assetB uint32) common.Address {
	if assetB < assetA {
		assetA, assetB = assetB, assetA
	}
	addr := prefixedAddress(DexPoolPrefix, assetA)
	binary.BigEndian.PutUint32(addr[8:12], assetB)
	return addr
}

// NftCollectionUuid returns the collection UUID that will be assigned to the
// collection created with the given NextCollectionId.
func NftCollectionUuid(nextId uint32) (uint32, error) {
	if nextId > MaxNftNextId {
		return 0, ErrNftIdOutOfRange
	}
	return nextId<<10 | ParachainId, nil
}

func prefixedAddress(prefix [4]byte, id uint32) common.Address {
	var addr common.Address
	copy(addr[:4], prefix[:])
	binary.BigEndian.PutUint32(addr[4:8], id)
	return addr
}

// ParseIdentifier parses a base-10 u32 identifier.
func ParseIdentifier(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidIdentifier, "'%s'", s)
	}
	return uint32(v), nil
}

// ParseAccount accepts a 20-byte hex address in any casing.
func ParseAccount(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(ErrInvalidAddress, "'%s'", s)
	}
	return common.HexToAddress(s), nil
}

// IsChecksumAddress reports whether s is 0x-prefixed and cased per EIP-55.
func IsChecksumAddress(s string) bool {
	if len(s) != 2+2*common.AddressLength || !strings.HasPrefix(s, "0x") {
		return false
	}
	if !common.IsHexAddress(s) {
		return false
	}
	return common.HexToAddress(s).Hex() == s
}
