package events

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of event.
type EventType string

const (
	SubmissionStarted   EventType = "submission.started"
	SubmissionConfirmed EventType = "submission.confirmed"
	SubmissionFailed    EventType = "submission.failed"
	IterationCompleted  EventType = "iteration.completed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SubmissionStartedEvent is emitted when a wallet's batch entry is
// handed to the executor.
type SubmissionStartedEvent struct {
	BaseEvent
	Iteration   int
	WalletIndex int
	Operation   string
}

// SubmissionConfirmedEvent is emitted once a transaction reaches the
// required depth and passes authoritative validation.
type SubmissionConfirmedEvent struct {
	BaseEvent
	Iteration   int
	WalletIndex int
	TxHash      common.Hash
	FeeWei      *big.Int
}

// SubmissionFailedEvent is emitted when one wallet exhausts its retry
// budget.
type SubmissionFailedEvent struct {
	BaseEvent
	Iteration   int
	WalletIndex int
	Err         error
}

// IterationCompletedEvent is emitted after one full orchestration
// iteration.
type IterationCompletedEvent struct {
	BaseEvent
	Iteration int
	Confirmed int
	Failed    int
}
