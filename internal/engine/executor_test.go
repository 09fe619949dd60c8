package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// instantTracker builds a tracker whose candidate endpoint confirms
// anything immediately and whose authority returns well-formed receipts.
func instantTracker(t *testing.T) *Tracker {
	t.Helper()
	reader := &fakeReader{
		receiptFn: func(_ int, h common.Hash) (*types.Receipt, error) {
			return makeReceipt(h, 100, 21000, 2, types.ReceiptStatusSuccessful), nil
		},
		headFn: func(int) (uint64, error) {
			return 200, nil
		},
	}
	return newTestTracker(t, reader, reader, 1)
}

func newTestExecutor(t *testing.T, caller Caller, tracker *Tracker, ledger *FeeLedger, maxRetries int, delay time.Duration) *Executor {
	t.Helper()
	return NewExecutor(caller, tracker, ledger, ExecutorConfig{
		MaxRetries: maxRetries,
		RetryDelay: delay,
	}, zaptest.NewLogger(t), nil)
}

func TestExecuteEmptyBatch(t *testing.T) {
	caller := newFakeCaller(func(w, _ int, _ Operation) (common.Hash, error) {
		return walletHash(w), nil
	})
	ex := newTestExecutor(t, caller, instantTracker(t), NewFeeLedger(), 3, time.Millisecond)

	confirmed, err := ex.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, confirmed)
}

func TestExecuteIndependentWalletRetries(t *testing.T) {
	// Wallet 0 succeeds on the first try; wallet 1 fails twice and
	// succeeds on the third. Both must end up confirmed.
	caller := newFakeCaller(func(w, attempt int, _ Operation) (common.Hash, error) {
		if w == 1 && attempt < 3 {
			return common.Hash{}, errors.New("nonce too low")
		}
		return walletHash(w), nil
	})
	ledger := NewFeeLedger()
	ex := newTestExecutor(t, caller, instantTracker(t), ledger, 3, time.Millisecond)

	confirmed, err := ex.Execute(context.Background(), []Submission{
		{WalletIndex: 0, Op: Vote()},
		{WalletIndex: 1, Op: Vote()},
	})
	require.NoError(t, err)
	require.Len(t, confirmed, 2)
	assert.Equal(t, 1, caller.attemptCount(0))
	assert.Equal(t, 3, caller.attemptCount(1))

	expectedFee := big.NewInt(21000 * 2)
	assert.Equal(t, expectedFee, ledger.Get(0))
	assert.Equal(t, expectedFee, ledger.Get(1))
}

func TestExecuteExhaustedRetriesFailOneWalletOnly(t *testing.T) {
	caller := newFakeCaller(func(w, _ int, _ Operation) (common.Hash, error) {
		if w == 1 {
			return common.Hash{}, errors.New("insufficient funds")
		}
		return walletHash(w), nil
	})
	ex := newTestExecutor(t, caller, instantTracker(t), NewFeeLedger(), 3, time.Millisecond)

	confirmed, err := ex.Execute(context.Background(), []Submission{
		{WalletIndex: 0, Op: Vote()},
		{WalletIndex: 1, Op: Vote()},
	})
	require.Error(t, err)

	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.WalletIndex)
	assert.Equal(t, 3, se.Attempts, "should try exactly maxRetries times")

	// Wallet 0 is unaffected by its sibling's failure.
	require.Len(t, confirmed, 1)
	assert.Equal(t, 0, confirmed[0].WalletIndex)
}

func TestExecuteRetryDelayElapses(t *testing.T) {
	const delay = 30 * time.Millisecond
	caller := newFakeCaller(func(int, int, Operation) (common.Hash, error) {
		return common.Hash{}, errors.New("boom")
	})
	ex := newTestExecutor(t, caller, instantTracker(t), NewFeeLedger(), 3, delay)

	start := time.Now()
	_, err := ex.Execute(context.Background(), []Submission{{WalletIndex: 0, Op: Vote()}})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 3, caller.attemptCount(0))
	assert.GreaterOrEqual(t, elapsed, 2*delay, "two retry delays must elapse between three attempts")
}

func TestExecuteSkipsFeeAccountingForRevertedReceipt(t *testing.T) {
	reader := &fakeReader{
		receiptFn: func(_ int, h common.Hash) (*types.Receipt, error) {
			return makeReceipt(h, 100, 21000, 2, types.ReceiptStatusFailed), nil
		},
		headFn: func(int) (uint64, error) {
			return 200, nil
		},
	}
	tracker := newTestTracker(t, reader, reader, 1)

	caller := newFakeCaller(func(w, _ int, _ Operation) (common.Hash, error) {
		return walletHash(w), nil
	})
	ledger := NewFeeLedger()
	ex := newTestExecutor(t, caller, tracker, ledger, 3, time.Millisecond)

	confirmed, err := ex.Execute(context.Background(), []Submission{{WalletIndex: 0, Op: Vote()}})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Zero(t, ledger.Get(0).Sign(), "reverted transaction must not be fee-accounted")
}

func TestExecuteRejectsInvalidOperation(t *testing.T) {
	caller := newFakeCaller(func(w, _ int, _ Operation) (common.Hash, error) {
		return walletHash(w), nil
	})
	ex := newTestExecutor(t, caller, instantTracker(t), NewFeeLedger(), 3, time.Millisecond)

	_, err := ex.Execute(context.Background(), []Submission{{WalletIndex: 0, Op: Deposit(nil)}})
	require.Error(t, err)
	assert.Zero(t, caller.attemptCount(0), "invalid operations are rejected before submission")
}

func TestExecuteConcurrentBatchSharesLedger(t *testing.T) {
	caller := newFakeCaller(func(w, _ int, _ Operation) (common.Hash, error) {
		return walletHash(w), nil
	})
	ledger := NewFeeLedger()
	ex := newTestExecutor(t, caller, instantTracker(t), ledger, 1, time.Millisecond)

	var batch []Submission
	for w := 0; w < 8; w++ {
		batch = append(batch, Submission{WalletIndex: w, Op: Vote()})
	}
	confirmed, err := ex.Execute(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, confirmed, 8)
	assert.Equal(t, big.NewInt(8*21000*2), ledger.Total())
}
