package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trn-tools/trn-cli/pkg/address"
)

func newPidConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pid-convert <palletId>",
		Short:   "Convert a PalletId into an AccountId20",
		Example: "  trn pid-convert txfeepot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := address.PalletIdToAccount(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AccountId for %s: %s\n", args[0], addr.Hex())
			return nil
		},
	}
}

// newPrecompileCmd builds a command mapping a single u32 identifier to a
// precompile address.
func newPrecompileCmd(use, short, example, label string, derive func(uint32) common.Address) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := address.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %s\n", label, id, derive(id).Hex())
			return nil
		},
	}
}

func newAssetToEvmCmd() *cobra.Command {
	return newPrecompileCmd(
		"asset-to-evm <assetId>",
		"Print the ERC20 precompile address of an asset",
		"  trn asset-to-evm 1",
		"ERC20 contract address for asset",
		address.AssetIdToAddress,
	)
}

func newNftToEvmCmd() *cobra.Command {
	return newPrecompileCmd(
		"nft-to-evm <collectionId>",
		"Print the ERC721 precompile address of an NFT collection",
		"  trn nft-to-evm 1124",
		"ERC721 contract address for collection",
		address.NftCollectionToAddress,
	)
}

func newSftToEvmCmd() *cobra.Command {
	return newPrecompileCmd(
		"sft-to-evm <collectionId>",
		"Print the ERC1155 precompile address of an SFT collection",
		"  trn sft-to-evm 1124",
		"ERC1155 contract address for collection",
		address.SftCollectionToAddress,
	)
}

func newDexPoolAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dex-pool-address <assetA> <assetB>",
		Short:   "Print the address of the DEX pool for a pair of assets",
		Example: "  trn dex-pool-address 1 2",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetA, err := address.ParseIdentifier(args[0])
			if err != nil {
				return fmt.Errorf("asset A: %w", err)
			}
			assetB, err := address.ParseIdentifier(args[1])
			if err != nil {
				return fmt.Errorf("asset B: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DEX pool address for assets %d and %d: %s\n", assetA, assetB, address.DexPoolAddress(assetA, assetB).Hex())
			return nil
		},
	}
}

func newNftUuidCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "nft-uuid <nextId>",
		Short:   "Print the collection UUID assigned to the given NFT next ID",
		Example: "  trn nft-uuid 1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nextId, err := address.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			uuid, err := address.NftCollectionUuid(nextId)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collection UUID for NFT next ID %d: %d\n", nextId, uuid)
			return nil
		},
	}
}
