package farm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nbekov/farmbot/internal/blockchain"
	"github.com/nbekov/farmbot/internal/config"
	"github.com/nbekov/farmbot/internal/contract"
	"github.com/nbekov/farmbot/internal/engine"
	"github.com/nbekov/farmbot/internal/events"
	"github.com/nbekov/farmbot/internal/export"
	"github.com/nbekov/farmbot/internal/score"
	"github.com/nbekov/farmbot/internal/storage"
	"github.com/nbekov/farmbot/internal/storage/models"
	"github.com/nbekov/farmbot/internal/wallet"
)

// recentTransactionLimit bounds the stored transactions echoed per
// wallet in the final report.
const recentTransactionLimit = 5

// Runner drives the wallet flows: one iteration reads wallet standing,
// builds the batch, executes it through the engine, and reconciles
// score deltas and fee totals.
type Runner struct {
	cfg        *config.Config
	logger     *zap.Logger
	wallets    []*wallet.Wallet
	primary    *blockchain.Client
	clients    []*blockchain.Client
	executor   *engine.Executor
	ledger     *engine.FeeLedger
	scores     *score.Client
	history    *score.History
	store      storage.Storage
	bus        *events.Bus
	shutdownCh chan os.Signal
}

func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}
	logger.Info("Loaded wallets", zap.Int("count", len(wallets)))

	primary, err := blockchain.Dial(cfg.PrimaryRPC, logger)
	if err != nil {
		return nil, err
	}

	clients := []*blockchain.Client{primary}
	readers := make([]blockchain.ChainReader, 0, len(cfg.RPCList))
	for _, url := range cfg.RPCList {
		c, err := blockchain.Dial(url, logger)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
		readers = append(readers, c)
	}
	pool, err := blockchain.NewPool(
		readers,
		blockchain.RotationPolicy(cfg.Rotation),
		time.Duration(cfg.RotationWindowSec)*time.Second,
		logger,
	)
	if err != nil {
		return nil, err
	}

	binding, err := contract.NewBinding(
		primary.Client,
		common.HexToAddress(cfg.ContractAddress),
		big.NewInt(cfg.ChainID),
		wallets,
		contract.GasConfig{
			LimitUnits: cfg.GasLimitUnits,
			MaxFeeGwei: cfg.MaxFeeGwei,
			TipGwei:    cfg.TipGwei,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	metrics := engine.NewMetrics(prometheus.DefaultRegisterer)
	ledger := engine.NewFeeLedger()
	tracker := engine.NewTracker(pool, primary, engine.TrackerConfig{
		RequiredConfirmations: cfg.Confirmations,
		PollInterval:          time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		ReceiptAttempts:       cfg.ReceiptAttempts,
		ReceiptDelay:          time.Duration(cfg.ReceiptDelayMs) * time.Millisecond,
	}, logger, metrics)
	executor := engine.NewExecutor(binding, tracker, ledger, engine.ExecutorConfig{
		MaxRetries: cfg.Retries,
		RetryDelay: time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	}, logger, metrics)

	r := &Runner{
		cfg:        cfg,
		logger:     logger,
		wallets:    wallets,
		primary:    primary,
		clients:    clients,
		executor:   executor,
		ledger:     ledger,
		history:    score.NewHistory(),
		bus:        events.NewBus(logger, 256),
		shutdownCh: make(chan os.Signal, 1),
	}
	if cfg.ScoreboardURL != "" {
		r.scores = score.NewClient(cfg.ScoreboardURL, logger)
	}
	r.subscribeLogging()
	return r, nil
}

// AttachStorage wires a result store (migrations already run).
func (r *Runner) AttachStorage(store storage.Storage) {
	r.store = store
}

func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer r.teardown()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("Signal received: " + sig.String())
		cancel()
	}()

	for iter := 1; iter <= r.cfg.Iterations; iter++ {
		if runCtx.Err() != nil {
			break
		}
		r.logger.Info("Starting iteration",
			zap.Int("iteration", iter),
			zap.Int("of", r.cfg.Iterations))
		if err := r.runIteration(runCtx, iter); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			r.logger.Error("Iteration finished with failures", zap.Int("iteration", iter), zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	r.report(shutdownCtx)
	if r.cfg.ExportDir != "" {
		r.exportResults()
	}
	return r.bus.Shutdown(shutdownCtx)
}

// runIteration executes one full wallet-flow round.
func (r *Runner) runIteration(ctx context.Context, iter int) error {
	before := r.fetchScores(ctx)

	batch := r.buildBatch(iter)
	for _, s := range batch {
		_ = r.bus.Publish(&events.SubmissionStartedEvent{
			BaseEvent:   events.BaseEvent{EventType: events.SubmissionStarted, EventTime: time.Now()},
			Iteration:   iter,
			WalletIndex: s.WalletIndex,
			Operation:   s.Op.String(),
		})
	}

	confirmed, execErr := r.executor.Execute(ctx, batch)

	for _, failure := range splitErrors(execErr) {
		var se *engine.SubmitError
		if errors.As(failure, &se) {
			_ = r.bus.Publish(&events.SubmissionFailedEvent{
				BaseEvent:   events.BaseEvent{EventType: events.SubmissionFailed, EventTime: time.Now()},
				Iteration:   iter,
				WalletIndex: se.WalletIndex,
				Err:         se,
			})
		}
	}

	for _, c := range confirmed {
		fee := new(big.Int).Mul(new(big.Int).SetUint64(c.Receipt.GasUsed), c.Receipt.EffectiveGasPrice)
		_ = r.bus.Publish(&events.SubmissionConfirmedEvent{
			BaseEvent:   events.BaseEvent{EventType: events.SubmissionConfirmed, EventTime: time.Now()},
			Iteration:   iter,
			WalletIndex: c.WalletIndex,
			TxHash:      c.Receipt.TxHash,
			FeeWei:      fee,
		})
		r.persistTransaction(ctx, iter, c, fee)
	}

	after := r.fetchScores(ctx)
	r.reconcileScores(ctx, iter, before, after)

	_ = r.bus.Publish(&events.IterationCompletedEvent{
		BaseEvent: events.BaseEvent{EventType: events.IterationCompleted, EventTime: time.Now()},
		Iteration: iter,
		Confirmed: len(confirmed),
		Failed:    len(batch) - len(confirmed),
	})
	return execErr
}

// buildBatch produces this iteration's operations: every wallet votes,
// and alternates a deposit or a withdrawal when amounts are configured.
func (r *Runner) buildBatch(iter int) []engine.Submission {
	deposit := parseWei(r.cfg.DepositWei)
	withdraw := parseWei(r.cfg.WithdrawWei)

	var batch []engine.Submission
	for w := range r.wallets {
		batch = append(batch, engine.Submission{WalletIndex: w, Op: engine.Vote()})
		switch {
		case iter%2 == 1 && deposit != nil:
			batch = append(batch, engine.Submission{WalletIndex: w, Op: engine.Deposit(deposit)})
		case iter%2 == 0 && withdraw != nil:
			batch = append(batch, engine.Submission{WalletIndex: w, Op: engine.Withdraw(withdraw)})
		}
	}
	return batch
}

func (r *Runner) fetchScores(ctx context.Context) map[int]*score.Score {
	out := make(map[int]*score.Score)
	if r.scores == nil {
		return out
	}
	for w, wal := range r.wallets {
		s, err := r.scores.Fetch(ctx, wal.Address)
		if err != nil {
			r.logger.Warn("Score lookup failed",
				zap.Int("wallet", w),
				zap.String("address", wal.Address.Hex()),
				zap.Error(err))
			continue
		}
		if s != nil {
			out[w] = s
		}
	}
	return out
}

func (r *Runner) reconcileScores(ctx context.Context, iter int, before, after map[int]*score.Score) {
	for w, cur := range after {
		sample := score.Sample{
			Iteration:   iter,
			TotalPoints: cur.TotalPoints,
			Rank:        cur.Rank,
		}
		if prev, ok := before[w]; ok {
			sample.PointsEarned = cur.TotalPoints - prev.TotalPoints
			sample.RankChange = prev.Rank - cur.Rank
		}
		r.history.Append(w, sample)
		r.logger.Info("Score updated",
			zap.Int("wallet", w),
			zap.Float64("earned", sample.PointsEarned),
			zap.Float64("total", sample.TotalPoints),
			zap.Int("rank", sample.Rank),
			zap.Int("rank_change", sample.RankChange))

		if r.store != nil {
			err := r.store.SaveScoreSample(ctx, &models.ScoreSample{
				WalletIndex:   w,
				WalletAddress: r.wallets[w].Address.Hex(),
				Iteration:     iter,
				PointsEarned:  sample.PointsEarned,
				TotalPoints:   sample.TotalPoints,
				Rank:          sample.Rank,
				RankChange:    sample.RankChange,
			})
			if err != nil {
				r.logger.Warn("Failed to persist score sample", zap.Int("wallet", w), zap.Error(err))
			}
		}
	}
}

func (r *Runner) persistTransaction(ctx context.Context, iter int, c engine.Confirmed, fee *big.Int) {
	if r.store == nil {
		return
	}
	rec := c.Receipt
	err := r.store.SaveTransaction(ctx, &models.Transaction{
		Hash:              rec.TxHash.Hex(),
		WalletIndex:       c.WalletIndex,
		WalletAddress:     r.wallets[c.WalletIndex].Address.Hex(),
		Operation:         c.Op.Kind.String(),
		Iteration:         iter,
		BlockNumber:       rec.BlockNumber.Uint64(),
		GasUsed:           rec.GasUsed,
		EffectiveGasPrice: rec.EffectiveGasPrice.String(),
		FeeWei:            fee.String(),
		Status:            rec.Status,
	})
	if err != nil {
		r.logger.Warn("Failed to persist transaction",
			zap.String("tx", rec.TxHash.Hex()),
			zap.Error(err))
	}
}

func (r *Runner) report(ctx context.Context) {
	for w := range r.wallets {
		fee := r.ledger.Get(w)
		if fee.Sign() == 0 {
			continue
		}
		r.logger.Info("Wallet fee total",
			zap.Int("wallet", w),
			zap.String("address", r.wallets[w].Address.Hex()),
			zap.String("fee_wei", fee.String()))
	}
	r.logger.Info("Run fee total", zap.String("fee_wei", r.ledger.Total().String()))

	if r.store == nil {
		return
	}
	for w := range r.wallets {
		txs, err := r.store.ListTransactions(ctx, w, recentTransactionLimit, 0)
		if err != nil {
			r.logger.Warn("Failed to list stored transactions", zap.Int("wallet", w), zap.Error(err))
			continue
		}
		for _, tx := range txs {
			r.logger.Info("Recent confirmed transaction",
				zap.Int("wallet", w),
				zap.String("tx", tx.Hash),
				zap.String("op", tx.Operation),
				zap.Uint64("block", tx.BlockNumber),
				zap.String("fee_wei", tx.FeeWei))
		}
	}
}

func (r *Runner) exportResults() {
	exporter := export.NewExporter(r.cfg.ExportDir, r.logger)
	addresses := make(map[int]string, len(r.wallets))
	for w, wal := range r.wallets {
		addresses[w] = wal.Address.Hex()
	}
	if _, err := exporter.ExportFees(r.ledger.Snapshot(), addresses, export.FormatCSV); err != nil {
		r.logger.Warn("Fee export failed", zap.Error(err))
	}
	if _, err := exporter.ExportScores(r.history.All(), export.FormatCSV); err != nil {
		r.logger.Warn("Score export failed", zap.Error(err))
	}
}

// teardown releases the signal registration and every dialed RPC
// connection once the run is over.
func (r *Runner) teardown() {
	signal.Stop(r.shutdownCh)
	for _, c := range r.clients {
		c.Close()
	}
}

// subscribeLogging attaches observability handlers to the bus.
func (r *Runner) subscribeLogging() {
	log := r.logger.Named("events")
	r.bus.SubscribeFunc(events.SubmissionFailed, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.SubmissionFailedEvent); ok {
			log.Warn("Submission failed",
				zap.Int("iteration", ev.Iteration),
				zap.Int("wallet", ev.WalletIndex),
				zap.Error(ev.Err))
		}
		return nil
	})
	r.bus.SubscribeFunc(events.IterationCompleted, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.IterationCompletedEvent); ok {
			log.Info("Iteration completed",
				zap.Int("iteration", ev.Iteration),
				zap.Int("confirmed", ev.Confirmed),
				zap.Int("failed", ev.Failed))
		}
		return nil
	})
}

// splitErrors unwraps an errors.Join result into its parts.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func parseWei(s string) *big.Int {
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil
	}
	return v
}
