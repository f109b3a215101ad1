package capshield

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
)

// NewRewardLedger creates a fee-free reward ledger with the default
// 100,000,000 token cap.
func NewRewardLedger(ctx context.Context, owner common.Address, verifier ownership.Verifier, opts ...Option) (*Ledger, error) {
	return New(ctx, RewardPolicy(), Genesis{Owner: owner}, verifier, opts...)
}

// NewAllocationLedger creates a fee-bearing allocation ledger with the
// default 1,000,000,000 token cap. treasury and dao start fee exempt.
func NewAllocationLedger(ctx context.Context, owner, treasury, dao common.Address, verifier ownership.Verifier, opts ...Option) (*Ledger, error) {
	return New(ctx, AllocationPolicy(), Genesis{Owner: owner, Treasury: treasury, Dao: dao}, verifier, opts...)
}
