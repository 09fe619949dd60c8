package engine

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/nbekov/farmbot/internal/blockchain"
)

// FetchReceipt polls one endpoint for the receipt of txHash, up to
// attempts tries with a fixed delay between them. A (nil, nil) return
// means the receipt is not yet available, which is the expected outcome
// for freshly submitted transactions, not an error. Transport errors
// are logged and counted as failed attempts; a receipt without an
// inclusion block number counts as absent. The only error returned is
// context cancellation.
func FetchReceipt(ctx context.Context, reader blockchain.ChainReader, txHash common.Hash, attempts int, delay time.Duration, logger *zap.Logger) (*types.Receipt, error) {
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		rec, err := reader.TransactionReceipt(ctx, txHash)
		switch {
		case err != nil:
			logger.Debug("Receipt lookup failed",
				zap.String("tx", txHash.Hex()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		case rec != nil && rec.BlockNumber != nil:
			return rec, nil
		default:
			// Mined receipt without a block number is still pending.
			logger.Debug("Receipt not yet mined",
				zap.String("tx", txHash.Hex()),
				zap.Int("attempt", attempt))
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, nil
}
