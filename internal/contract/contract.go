package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/nbekov/farmbot/internal/engine"
	"github.com/nbekov/farmbot/internal/wallet"
)

// contractABI covers the three entry points the farm invokes: the
// zero-argument state change and the value-bearing deposit/withdraw.
const contractABI = `[
	{"type":"function","name":"vote","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"deposit","inputs":[],"outputs":[],"stateMutability":"payable"},
	{"type":"function","name":"withdraw","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}
]`

// TxSender is the write surface of the authoritative endpoint.
// *ethclient.Client satisfies it.
type TxSender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// GasConfig carries the externally supplied gas settings applied to
// every transaction.
type GasConfig struct {
	LimitUnits uint64
	MaxFeeGwei int64
	TipGwei    int64
}

// Binding resolves engine operations into signed EIP-1559 transactions
// against one fixed contract, using the wallet identified by its index
// within the batch.
type Binding struct {
	sender  TxSender
	abi     abi.ABI
	address common.Address
	chainID *big.Int
	wallets []*wallet.Wallet
	locks   []sync.Mutex
	gas     GasConfig
	logger  *zap.Logger
}

func NewBinding(sender TxSender, address common.Address, chainID *big.Int, wallets []*wallet.Wallet, gas GasConfig, logger *zap.Logger) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no wallets configured")
	}
	return &Binding{
		sender:  sender,
		abi:     parsed,
		address: address,
		chainID: chainID,
		wallets: wallets,
		locks:   make([]sync.Mutex, len(wallets)),
		gas:     gas,
		logger:  logger.Named("contract"),
	}, nil
}

// Submit implements engine.Caller.
func (b *Binding) Submit(ctx context.Context, walletIndex int, op engine.Operation) (common.Hash, error) {
	if walletIndex < 0 || walletIndex >= len(b.wallets) {
		return common.Hash{}, fmt.Errorf("wallet index %d out of range", walletIndex)
	}
	w := b.wallets[walletIndex]

	// A batch may carry several operations for the same wallet; the
	// nonce fetch and send must not interleave between them, or both
	// read the same pending nonce and one send is rejected.
	b.locks[walletIndex].Lock()
	defer b.locks[walletIndex].Unlock()

	data, value, err := b.calldata(op)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := b.sender.PendingNonceAt(ctx, w.Address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce for %s: %w", w.Address.Hex(), err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: gweiToWei(b.gas.TipGwei),
		GasFeeCap: gweiToWei(b.gas.MaxFeeGwei),
		Gas:       b.gas.LimitUnits,
		To:        &b.address,
		Value:     value,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(b.chainID), w.Key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := b.sender.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send %s from wallet %d: %w", op.Kind, walletIndex, err)
	}

	b.logger.Debug("Transaction sent",
		zap.Int("wallet", walletIndex),
		zap.Stringer("op", op),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce))
	return signed.Hash(), nil
}

// calldata packs the operation into contract calldata and its attached
// value. Deposits carry the amount as transaction value, withdrawals
// as a calldata argument.
func (b *Binding) calldata(op engine.Operation) ([]byte, *big.Int, error) {
	switch op.Kind {
	case engine.OpVote:
		data, err := b.abi.Pack("vote")
		return data, nil, err
	case engine.OpDeposit:
		data, err := b.abi.Pack("deposit")
		return data, op.Amount, err
	case engine.OpWithdraw:
		data, err := b.abi.Pack("withdraw", op.Amount)
		return data, nil, err
	default:
		return nil, nil, fmt.Errorf("unsupported operation: %s", op.Kind)
	}
}

func gweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
}
