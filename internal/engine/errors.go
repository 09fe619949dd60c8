package engine

import "fmt"

// SubmitError reports that one wallet's operation exhausted its retry
// budget. Sibling wallets in the same batch are unaffected.
type SubmitError struct {
	WalletIndex int
	Attempts    int
	Err         error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("wallet %d: submission failed after %d attempts: %v", e.WalletIndex, e.Attempts, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
