package staking

import (
	"context"
	"math/bits"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidRange = errors.New("start block must be less than end block")

type Outcome int

const (
	OutcomeChanged Outcome = iota
	OutcomeNoChange
	OutcomeLedgerNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeChanged:
		return "changed"
	case OutcomeNoChange:
		return "no change"
	case OutcomeLedgerNotFound:
		return "ledger not found"
	}
	return "unknown"
}

// DetectionResult carries the boundary snapshots alongside the event so
// callers can report what was observed. Event is only set for
// OutcomeChanged.
type DetectionResult struct {
	Outcome Outcome
	Event   *StakeEvent
	Start   *LedgerSnapshot
	End     *LedgerSnapshot
	Queries int
}

// SearchStep describes one iteration of the binary search.
type SearchStep struct {
	Step     int
	MaxSteps int
	Left     uint64
	Right    uint64
	Mid      uint64
	Changed  bool
}

type Option func(*Detector)

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithStepHook registers a callback invoked after every search step.
func WithStepHook(hook func(SearchStep)) Option {
	return func(d *Detector) { d.onStep = hook }
}

type Detector struct {
	querier LedgerQuerier
	logger  *zap.Logger
	now     func() time.Time
	onStep  func(SearchStep)
}

func NewDetector(querier LedgerQuerier, l *zap.Logger, opts ...Option) *Detector {
	d := &Detector{
		querier: querier,
		logger:  l,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxSearchSteps is the upper bound on binary search iterations over
// [startBlock, endBlock].
func MaxSearchSteps(startBlock, endBlock uint64) int {
	if endBlock <= startBlock {
		return 0
	}
	return bits.Len64(endBlock - startBlock)
}

// Detect determines whether the staking ledger of account changed between
// startBlock and endBlock and, if so, locates the first block showing the
// new state.
//
// The search assumes the ledger changes at most once in the range. When it
// changes more than once, the reported block is one at which the ledger
// differs from the start state and the classification reflects the net
// change between the two ends.
func (d *Detector) Detect(ctx context.Context, account common.Address, startBlock, endBlock uint64) (*DetectionResult, error) {
	if startBlock >= endBlock {
		return nil, ErrInvalidRange
	}

	start, end, err := d.fetchBoundaries(ctx, account, startBlock, endBlock)
	if err != nil {
		return nil, err
	}
	result := &DetectionResult{Start: start, End: end, Queries: 2}

	if !start.IsComplete() || !end.IsComplete() {
		d.logger.Sugar().Infow("Ledger data not found for the specified blocks",
			zap.Uint64("startBlock", startBlock),
			zap.Uint64("endBlock", endBlock),
			zap.Bool("startFound", start.IsComplete()),
			zap.Bool("endFound", end.IsComplete()),
		)
		result.Outcome = OutcomeLedgerNotFound
		return result, nil
	}

	d.logger.Sugar().Infow("Checking staking.ledger at start block",
		zap.Uint64("block", startBlock),
		zap.String("total", start.Total.String()),
		zap.String("active", start.Active.String()),
	)
	d.logger.Sugar().Infow("Checking staking.ledger at end block",
		zap.Uint64("block", endBlock),
		zap.String("total", end.Total.String()),
		zap.String("active", end.Active.String()),
	)

	if start.Equal(end) {
		result.Outcome = OutcomeNoChange
		return result, nil
	}

	totalDelta := TotalDelta(start, end)
	d.logger.Sugar().Infow("Staking ledger differences",
		zap.String("totalDifference", totalDelta.String()),
		zap.String("activeDifference", ActiveDelta(start, end).String()),
	)
	txType := Classify(start, end)

	changeBlock, queries, err := d.findChangeBlock(ctx, account, start, startBlock, endBlock)
	result.Queries += queries
	if err != nil {
		return nil, err
	}
	d.logger.Sugar().Infow("Located staking.ledger change",
		zap.Uint64("block", changeBlock),
		zap.String("type", string(txType)),
		zap.Int("queries", result.Queries),
	)

	now := d.now().UTC()
	result.Outcome = OutcomeChanged
	result.Event = &StakeEvent{
		Type:        txType,
		Account:     account.Hex(),
		BlockNumber: changeBlock,
		Amount:      totalDelta.String(),
		ManualEntry: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return result, nil
}

// fetchBoundaries fetches both range ends concurrently.
func (d *Detector) fetchBoundaries(ctx context.Context, account common.Address, startBlock, endBlock uint64) (*LedgerSnapshot, *LedgerSnapshot, error) {
	var start, end *LedgerSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := d.querier.GetLedgerAt(gctx, account, startBlock)
		if err != nil {
			return errors.Wrap(err, "failed to fetch ledger at start block")
		}
		start = s
		return nil
	})
	g.Go(func() error {
		e, err := d.querier.GetLedgerAt(gctx, account, endBlock)
		if err != nil {
			return errors.Wrap(err, "failed to fetch ledger at end block")
		}
		end = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// findChangeBlock returns the first block in [startBlock, endBlock] whose
// ledger differs from start, and the number of queries issued. Steps are
// sequential since each one narrows the range for the next.
func (d *Detector) findChangeBlock(ctx context.Context, account common.Address, start *LedgerSnapshot, startBlock, endBlock uint64) (uint64, int, error) {
	left, right := startBlock, endBlock
	maxSteps := MaxSearchSteps(startBlock, endBlock)
	step := 0

	for left < right {
		mid := left + (right-left)/2
		ledger, err := d.querier.GetLedgerAt(ctx, account, mid)
		step++
		if err != nil {
			return 0, step, errors.Wrapf(err, "failed to fetch ledger at block %d", mid)
		}

		changed := !start.Equal(ledger)
		d.logger.Sugar().Debugw("Binary search step",
			zap.Int("step", step),
			zap.Uint64("left", left),
			zap.Uint64("right", right),
			zap.Uint64("mid", mid),
			zap.Bool("changed", changed),
		)
		if d.onStep != nil {
			d.onStep(SearchStep{Step: step, MaxSteps: maxSteps, Left: left, Right: right, Mid: mid, Changed: changed})
		}

		if changed {
			right = mid
		} else {
			left = mid + 1
		}
	}
	return left, step, nil
}
