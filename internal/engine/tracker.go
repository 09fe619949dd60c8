package engine

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nbekov/farmbot/internal/blockchain"
)

// Tracked is one submitted transaction awaiting confirmation depth.
type Tracked struct {
	Hash          common.Hash
	WalletIndex   int
	Op            Operation
	Confirmations uint64
}

// Confirmed is a transaction validated against the authoritative
// endpoint. The receipt is final truth for fee accounting.
type Confirmed struct {
	Receipt     *types.Receipt
	WalletIndex int
	Op          Operation
}

type TrackerConfig struct {
	RequiredConfirmations uint64
	PollInterval          time.Duration
	ReceiptAttempts       int
	ReceiptDelay          time.Duration
}

const (
	defaultPollInterval    = 5 * time.Second
	defaultReceiptAttempts = 5
	defaultReceiptDelay    = 3 * time.Second
)

// Tracker polls a rotating set of read endpoints until every tracked
// transaction reaches the required confirmation depth, then revalidates
// each against the authoritative endpoint before declaring it done.
// Depth read from a rotating endpoint is advisory only.
type Tracker struct {
	pool      *blockchain.Pool
	authority blockchain.ChainReader
	cfg       TrackerConfig
	logger    *zap.Logger
	metrics   *Metrics
}

func NewTracker(pool *blockchain.Pool, authority blockchain.ChainReader, cfg TrackerConfig, logger *zap.Logger, metrics *Metrics) *Tracker {
	if cfg.RequiredConfirmations == 0 {
		cfg.RequiredConfirmations = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReceiptAttempts <= 0 {
		cfg.ReceiptAttempts = defaultReceiptAttempts
	}
	if cfg.ReceiptDelay <= 0 {
		cfg.ReceiptDelay = defaultReceiptDelay
	}
	return &Tracker{
		pool:      pool,
		authority: authority,
		cfg:       cfg,
		logger:    logger.Named("tracker"),
		metrics:   metrics,
	}
}

// WaitForAll blocks until every transaction is confirmed to the
// required depth and validated against the authoritative endpoint.
// Individual endpoint failures never abort the loop; it terminates
// only when the pending set is empty or ctx is cancelled. An empty
// input returns immediately without any network calls.
func (t *Tracker) WaitForAll(ctx context.Context, txs []Tracked) ([]Confirmed, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	pending := make(map[common.Hash]*Tracked, len(txs))
	for i := range txs {
		tx := txs[i]
		pending[tx.Hash] = &tx
	}

	confirmed := make([]Confirmed, 0, len(txs))

	for len(pending) > 0 {
		done := t.runRound(ctx, pending)
		if err := ctx.Err(); err != nil {
			return confirmed, err
		}

		for _, c := range done {
			txHash := c.Receipt.TxHash
			delete(pending, txHash)
			confirmed = append(confirmed, c)
			if t.metrics != nil {
				t.metrics.confirmedTotal.Inc()
			}
			t.logger.Info("Transaction confirmed",
				zap.String("tx", txHash.Hex()),
				zap.Int("wallet", c.WalletIndex),
				zap.Uint64("block", c.Receipt.BlockNumber.Uint64()))
		}

		if len(pending) == 0 {
			break
		}
		t.logger.Info("Waiting for confirmations", zap.Int("pending", len(pending)))
		select {
		case <-ctx.Done():
			return confirmed, ctx.Err()
		case <-time.After(t.cfg.PollInterval):
		}
	}

	return confirmed, nil
}

// runRound issues one concurrent check per pending transaction and
// waits for all of them; the round is a synchronization barrier.
func (t *Tracker) runRound(ctx context.Context, pending map[common.Hash]*Tracked) []Confirmed {
	var (
		g, gctx = errgroup.WithContext(ctx)
		results = make(chan Confirmed, len(pending))
	)

	for _, tx := range pending {
		tx := tx
		g.Go(func() error {
			if c, ok := t.checkOne(gctx, tx); ok {
				results <- c
			}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	done := make([]Confirmed, 0, len(pending))
	for c := range results {
		done = append(done, c)
	}
	return done
}

// checkOne recomputes one transaction's depth from scratch on a
// rotating endpoint and, once at threshold, revalidates against the
// authoritative endpoint. Any failure leaves the transaction pending
// for the next round.
func (t *Tracker) checkOne(ctx context.Context, tx *Tracked) (Confirmed, bool) {
	reader := t.pool.Next()

	rec, err := FetchReceipt(ctx, reader, tx.Hash, t.cfg.ReceiptAttempts, t.cfg.ReceiptDelay, t.logger)
	if err != nil || rec == nil {
		t.logger.Info("Transaction still pending",
			zap.String("tx", tx.Hash.Hex()),
			zap.Int("wallet", tx.WalletIndex))
		return Confirmed{}, false
	}

	head, err := reader.BlockNumber(ctx)
	if err != nil {
		t.logger.Warn("Chain head lookup failed",
			zap.String("tx", tx.Hash.Hex()),
			zap.Error(err))
		return Confirmed{}, false
	}

	inclusion := rec.BlockNumber.Uint64()
	var confs uint64
	if head >= inclusion {
		confs = head - inclusion + 1
	}
	tx.Confirmations = confs

	if confs < t.cfg.RequiredConfirmations {
		t.logger.Info("Confirmation depth below threshold",
			zap.String("tx", tx.Hash.Hex()),
			zap.Uint64("confirmations", confs),
			zap.Uint64("required", t.cfg.RequiredConfirmations))
		return Confirmed{}, false
	}

	// Candidate depth is advisory; only the authoritative endpoint's
	// receipt may finalize the transaction.
	auth, err := FetchReceipt(ctx, t.authority, tx.Hash, t.cfg.ReceiptAttempts, t.cfg.ReceiptDelay, t.logger)
	if err != nil || auth == nil {
		t.logger.Warn("Authoritative receipt unavailable, keeping transaction pending",
			zap.String("tx", tx.Hash.Hex()))
		return Confirmed{}, false
	}
	if auth.BlockNumber == nil || auth.EffectiveGasPrice == nil {
		t.logger.Warn("Authoritative receipt malformed, keeping transaction pending",
			zap.String("tx", tx.Hash.Hex()))
		return Confirmed{}, false
	}

	return Confirmed{Receipt: auth, WalletIndex: tx.WalletIndex, Op: tx.Op}, true
}
