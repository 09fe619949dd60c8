package engine

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeReader scripts receipt and head responses per call number.
type fakeReader struct {
	mu           sync.Mutex
	receiptFn    func(call int, txHash common.Hash) (*types.Receipt, error)
	headFn       func(call int) (uint64, error)
	receiptCalls int
	headCalls    int
}

func (f *fakeReader) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	f.receiptCalls++
	n := f.receiptCalls
	f.mu.Unlock()
	return f.receiptFn(n, txHash)
}

func (f *fakeReader) BlockNumber(_ context.Context) (uint64, error) {
	f.mu.Lock()
	f.headCalls++
	n := f.headCalls
	f.mu.Unlock()
	if f.headFn == nil {
		return 0, nil
	}
	return f.headFn(n)
}

func (f *fakeReader) counts() (receipts, heads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiptCalls, f.headCalls
}

// fakeCaller scripts submission outcomes per wallet attempt.
type fakeCaller struct {
	mu       sync.Mutex
	attempts map[int]int
	fn       func(walletIndex, attempt int, op Operation) (common.Hash, error)
}

func newFakeCaller(fn func(walletIndex, attempt int, op Operation) (common.Hash, error)) *fakeCaller {
	return &fakeCaller{attempts: make(map[int]int), fn: fn}
}

func (f *fakeCaller) Submit(_ context.Context, walletIndex int, op Operation) (common.Hash, error) {
	f.mu.Lock()
	f.attempts[walletIndex]++
	attempt := f.attempts[walletIndex]
	f.mu.Unlock()
	return f.fn(walletIndex, attempt, op)
}

func (f *fakeCaller) attemptCount(walletIndex int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[walletIndex]
}

func makeReceipt(txHash common.Hash, block uint64, gasUsed uint64, price int64, status uint64) *types.Receipt {
	return &types.Receipt{
		TxHash:            txHash,
		BlockNumber:       new(big.Int).SetUint64(block),
		GasUsed:           gasUsed,
		EffectiveGasPrice: big.NewInt(price),
		Status:            status,
	}
}

func walletHash(walletIndex int) common.Hash {
	return common.BigToHash(big.NewInt(int64(walletIndex + 1)))
}
