package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/trn-tools/trn-cli/internal/config"
	"github.com/trn-tools/trn-cli/internal/version"
	"github.com/trn-tools/trn-cli/pkg/address"
	"github.com/trn-tools/trn-cli/pkg/clients/substrate"
	pg "github.com/trn-tools/trn-cli/pkg/postgres"
	"github.com/trn-tools/trn-cli/pkg/staking"
	"github.com/trn-tools/trn-cli/pkg/storage"
	"github.com/trn-tools/trn-cli/pkg/storage/mongodb"
	pgStorage "github.com/trn-tools/trn-cli/pkg/storage/postgres"
	"github.com/trn-tools/trn-cli/pkg/types/numbers"
	"github.com/trn-tools/trn-cli/pkg/utils"
	"go.uber.org/zap"
)

const (
	flagAutoUpload = "auto-upload"
	flagDryRun     = "dry-run"
	flagNoProgress = "no-progress"
)

var ErrEndBlockNotFinalized = errors.New("end block is not finalized yet")

type stakingEventArgs struct {
	account    common.Address
	startBlock uint64
	endBlock   uint64
}

func newStakingEventCmd(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staking-event <account> <startBlock> <endBlock>",
		Short: "Find the block at which an account's staking ledger changed and record it",
		Long: `Compares Staking.Ledger for <account> at <startBlock> and <endBlock>. When the
ledger differs, a binary search locates the first block showing the new state
and a bonded/unbonded/rebonded/withdrawn record is built from the difference.
The record is printed and, after confirmation, uploaded to the configured store.`,
		Example: "  trn staking-event 0xffffffff0000000000000000000000000016cd23 21694991 21733987 --dry-run",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStakingEvent(cmd, args, deps)
		},
	}
	cmd.Flags().Bool(flagAutoUpload, false, "Upload the record without asking for confirmation")
	cmd.Flags().Bool(flagDryRun, false, "Print the record and exit without uploading")
	cmd.Flags().Bool(flagNoProgress, false, "Do not display search progress")
	cmd.MarkFlagsMutuallyExclusive(flagAutoUpload, flagDryRun)

	return cmd
}

func parseStakingEventArgs(args []string) (*stakingEventArgs, error) {
	account, err := address.ParseAccount(args[0])
	if err != nil {
		return nil, err
	}
	startBlock, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("start block must be a valid non-negative integer, got '%s'", args[1])
	}
	endBlock, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("end block must be a valid non-negative integer, got '%s'", args[2])
	}
	if startBlock >= endBlock {
		return nil, staking.ErrInvalidRange
	}
	return &stakingEventArgs{account: account, startBlock: startBlock, endBlock: endBlock}, nil
}

func runStakingEvent(cmd *cobra.Command, args []string, deps *commandDeps) error {
	parsed, err := parseStakingEventArgs(args)
	if err != nil {
		return err
	}
	autoUpload, _ := cmd.Flags().GetBool(flagAutoUpload)
	dryRun, _ := cmd.Flags().GetBool(flagDryRun)
	noProgress, _ := cmd.Flags().GetBool(flagNoProgress)

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	l, err := deps.newLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer l.Sync() //nolint:errcheck

	var store storage.EventStore
	if !dryRun {
		if store, err = deps.newEventStore(cfg, l); err != nil {
			return err
		}
	}

	// arguments are valid; failures from here on are not usage errors
	cmd.SilenceUsage = true
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	l.Sugar().Infow("Checking staking.ledger",
		zap.String("version", version.GetVersion()),
		zap.String("chain", string(cfg.Chain)),
		zap.String("account", parsed.account.Hex()),
		zap.Uint64("startBlock", parsed.startBlock),
		zap.Uint64("endBlock", parsed.endBlock),
	)

	client := substrate.NewClient(&substrate.SubstrateClientConfig{
		BaseUrl:        cfg.GetSubstrateRpcUrl(),
		RequestTimeout: cfg.SubstrateRpc.RequestTimeout,
	}, l)
	if deps.rpcTransport != nil {
		client.SetHttpClient(&http.Client{Transport: deps.rpcTransport, Timeout: cfg.SubstrateRpc.RequestTimeout})
	}

	finalized, err := client.GetFinalizedBlockNumber(ctx)
	if err != nil {
		return err
	}
	if parsed.endBlock > finalized {
		return errors.Wrapf(ErrEndBlockNotFinalized, "end block %d, finalized head %d", parsed.endBlock, finalized)
	}

	opts := []staking.Option{staking.WithClock(deps.now)}
	var bar *progressbar.ProgressBar
	if !noProgress && !cfg.Debug {
		bar = newSearchProgressBar(cmd.ErrOrStderr(), staking.MaxSearchSteps(parsed.startBlock, parsed.endBlock))
		opts = append(opts, staking.WithStepHook(func(staking.SearchStep) {
			_ = bar.Add(1)
		}))
	}

	detector := staking.NewDetector(staking.NewRpcLedgerQuerier(client, l), l, opts...)
	res, err := detector.Detect(ctx, parsed.account, parsed.startBlock, parsed.endBlock)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return errors.Wrap(err, "failed to process staking event")
	}

	switch res.Outcome {
	case staking.OutcomeLedgerNotFound:
		fmt.Fprintln(out, "Ledger data not found for the specified blocks.")
		return nil
	case staking.OutcomeNoChange:
		fmt.Fprintln(out, "No change detected in the specified range.")
		return nil
	}

	if !utils.AreAddressesEqual(res.End.Stash.Hex(), parsed.account.Hex()) {
		l.Sugar().Infow("Ledger is held by a controller account",
			zap.String("controller", parsed.account.Hex()),
			zap.String("stash", res.End.Stash.Hex()),
		)
	}

	if err := printStakeEvent(out, res.Event); err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(out, "\nDry run complete - no data uploaded")
		return nil
	}

	if !autoUpload {
		ok, err := deps.newConfirmer(cmd).Confirm(fmt.Sprintf("\nDo you want to upload this record to %s?", cfg.GetStoreName()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Upload cancelled.")
			return nil
		}
	}

	id, err := store.InsertStakeEvent(ctx, res.Event)
	if err != nil {
		return errors.Wrapf(err, "failed to upload record to %s", cfg.GetStoreName())
	}
	fmt.Fprintf(out, "Record successfully uploaded to %s: %s\n", cfg.GetStoreName(), id)
	return nil
}

// printStakeEvent writes the record ahead of any upload attempt.
func printStakeEvent(out io.Writer, ev *staking.StakeEvent) error {
	body, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode stake event")
	}
	amount, err := numbers.FormatUnits(ev.Amount, numbers.RootDecimals)
	if err != nil {
		return errors.Wrapf(err, "invalid amount '%s'", ev.Amount)
	}

	fmt.Fprintln(out, "staking.ledger missing record:")
	fmt.Fprintln(out, string(body))
	fmt.Fprintf(out, "Amount: %s ROOT\n", amount)
	return nil
}

func newSearchProgressBar(w io.Writer, maxSteps int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxSteps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Searching for ledger change"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func newEventStore(cfg *config.Config, l *zap.Logger) (storage.EventStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackend_Postgres:
		return pgStorage.NewPostgresEventStore(pg.PostgresConfigFromDbConfig(&cfg.DatabaseConfig), l), nil
	default:
		store, err := mongodb.NewMongoEventStore(&cfg.MongoDbConfig, l)
		if err != nil {
			return nil, errors.Wrapf(err, "uploading requires --%s or %s", config.MongoDbConnectionString, config.LegacyMongoDbConnectionStringEnv)
		}
		return store, nil
	}
}
