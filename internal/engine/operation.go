package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OpKind enumerates the contract entry points a wallet can invoke.
type OpKind int

const (
	OpVote OpKind = iota
	OpDeposit
	OpWithdraw
)

func (k OpKind) String() string {
	switch k {
	case OpVote:
		return "vote"
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	default:
		return fmt.Sprintf("opkind(%d)", int(k))
	}
}

// Operation is one contract action with its parameters. Value-bearing
// kinds carry the amount in wei.
type Operation struct {
	Kind   OpKind
	Amount *big.Int
}

// Vote returns the zero-argument state-changing operation.
func Vote() Operation {
	return Operation{Kind: OpVote}
}

// Deposit returns a deposit of the given amount of wei.
func Deposit(amount *big.Int) Operation {
	return Operation{Kind: OpDeposit, Amount: amount}
}

// Withdraw returns a withdrawal of the given amount of wei.
func Withdraw(amount *big.Int) Operation {
	return Operation{Kind: OpWithdraw, Amount: amount}
}

// Validate checks the operation parameters before submission.
func (op Operation) Validate() error {
	switch op.Kind {
	case OpVote:
		return nil
	case OpDeposit, OpWithdraw:
		if op.Amount == nil || op.Amount.Sign() <= 0 {
			return fmt.Errorf("%s requires a positive amount", op.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unsupported operation: %s", op.Kind)
	}
}

func (op Operation) String() string {
	if op.Amount != nil {
		return fmt.Sprintf("%s(%s wei)", op.Kind, op.Amount)
	}
	return op.Kind.String()
}

// Submission pairs an operation with the wallet that should send it.
// The wallet index is a bookkeeping key within one run, not a
// cryptographic identity.
type Submission struct {
	WalletIndex int
	Op          Operation
}

// Caller resolves an operation into an on-chain transaction for the
// given wallet and returns its hash.
type Caller interface {
	Submit(ctx context.Context, walletIndex int, op Operation) (common.Hash, error)
}
