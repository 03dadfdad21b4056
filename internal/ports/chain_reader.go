package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// ChainReader reads CTF resolution state from Polygon. Stateless, read-only,
// no gas needed.
type ChainReader interface {
	// PayoutDenominator returns the payout denominator for a condition.
	// Nonzero means the market has resolved.
	PayoutDenominator(ctx context.Context, conditionID string) (uint64, error)

	// PayoutNumerator returns the payout numerator for one outcome index.
	PayoutNumerator(ctx context.Context, conditionID string, index int) (uint64, error)
}

// RelaySubmitter submits batched transactions through the gasless relayer
// and polls for their terminal state.
type RelaySubmitter interface {
	// SubmitBatch submits all calls as a single relayer transaction.
	SubmitBatch(ctx context.Context, calls []domain.RelayCall, note string) (domain.RelaySubmission, error)

	// TransactionState returns the current state of a submitted transaction
	// and the confirming hash once known.
	TransactionState(ctx context.Context, transactionID string) (domain.RelayState, string, error)
}
