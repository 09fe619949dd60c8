package engine

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type ExecutorConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// Executor submits a batch of operations, one goroutine per wallet,
// retrying each with a fixed delay up to the attempt budget. Successful
// submissions are handed to the Tracker; confirmed receipts feed the
// fee ledger. One wallet exhausting its retries never aborts the rest
// of the batch.
type Executor struct {
	caller  Caller
	tracker *Tracker
	ledger  *FeeLedger
	cfg     ExecutorConfig
	logger  *zap.Logger
	metrics *Metrics
}

func NewExecutor(caller Caller, tracker *Tracker, ledger *FeeLedger, cfg ExecutorConfig, logger *zap.Logger, metrics *Metrics) *Executor {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Executor{
		caller:  caller,
		tracker: tracker,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger.Named("executor"),
		metrics: metrics,
	}
}

// Execute runs the whole batch to completion. It returns every
// confirmed transaction alongside the per-wallet submission errors
// joined together; a non-nil error does not invalidate the confirmed
// results of the wallets that did succeed.
func (ex *Executor) Execute(ctx context.Context, batch []Submission) ([]Confirmed, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	start := time.Now()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		tracked []Tracked
		errs    []error
	)

	for _, s := range batch {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := ex.submitWithRetry(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			tracked = append(tracked, Tracked{Hash: hash, WalletIndex: s.WalletIndex, Op: s.Op})
		}()
	}
	wg.Wait()

	confirmed, err := ex.tracker.WaitForAll(ctx, tracked)
	if err != nil {
		errs = append(errs, err)
	}
	if ex.metrics != nil {
		ex.metrics.TrackConfirmation(start)
	}

	for _, c := range confirmed {
		ex.accountFee(c)
	}

	return confirmed, errors.Join(errs...)
}

// submitWithRetry attempts one wallet's operation up to MaxRetries
// times with a fixed delay between attempts. Attempts are strictly
// sequential.
func (ex *Executor) submitWithRetry(ctx context.Context, s Submission) (common.Hash, error) {
	var hash common.Hash
	if err := s.Op.Validate(); err != nil {
		return hash, &SubmitError{WalletIndex: s.WalletIndex, Attempts: 0, Err: err}
	}

	attempts := 0
	operation := func() error {
		attempts++
		h, submitErr := ex.caller.Submit(ctx, s.WalletIndex, s.Op)
		if submitErr != nil {
			if ex.metrics != nil {
				ex.metrics.submitFailure.Inc()
			}
			ex.logger.Warn("Submission attempt failed",
				zap.Int("wallet", s.WalletIndex),
				zap.Stringer("op", s.Op),
				zap.Int("attempt", attempts),
				zap.Error(submitErr))
			return submitErr
		}
		hash = h
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(ex.cfg.RetryDelay), uint64(ex.cfg.MaxRetries-1))
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return hash, &SubmitError{WalletIndex: s.WalletIndex, Attempts: attempts, Err: err}
	}

	if ex.metrics != nil {
		ex.metrics.submitSuccess.Inc()
	}
	ex.logger.Info("Transaction submitted",
		zap.Int("wallet", s.WalletIndex),
		zap.Stringer("op", s.Op),
		zap.String("tx", hash.Hex()))
	return hash, nil
}

// accountFee adds gasUsed x effectiveGasPrice to the wallet's ledger
// entry, skipping receipts that are missing, reverted, or lack fee
// fields. A skip is logged, never fatal for the batch.
func (ex *Executor) accountFee(c Confirmed) {
	rec := c.Receipt
	switch {
	case rec == nil:
		ex.logger.Warn("Missing receipt, skipping fee accounting", zap.Int("wallet", c.WalletIndex))
	case rec.Status != types.ReceiptStatusSuccessful:
		ex.logger.Warn("Transaction reverted, skipping fee accounting",
			zap.Int("wallet", c.WalletIndex),
			zap.String("tx", rec.TxHash.Hex()))
	case rec.EffectiveGasPrice == nil:
		ex.logger.Warn("Receipt lacks effective gas price, skipping fee accounting",
			zap.Int("wallet", c.WalletIndex),
			zap.String("tx", rec.TxHash.Hex()))
	default:
		fee := new(big.Int).Mul(new(big.Int).SetUint64(rec.GasUsed), rec.EffectiveGasPrice)
		ex.ledger.Add(c.WalletIndex, fee)
		ex.logger.Info("Fee recorded",
			zap.Int("wallet", c.WalletIndex),
			zap.String("tx", rec.TxHash.Hex()),
			zap.String("fee_wei", fee.String()))
		return
	}
	if ex.metrics != nil {
		ex.metrics.feeSkippedTotal.Inc()
	}
}
