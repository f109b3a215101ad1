// Package ownership guards the single super-admin identity of a ledger.
//
// The owner must always be backed by multi-party control. Whether an
// identity qualifies is decided by an injected Verifier; the guard re-checks
// it on construction, on direct transfer, and when a handover completes.
// There is no way to leave a ledger without an owner.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// DefaultHandoverValidity is how long a handover request stays valid.
const DefaultHandoverValidity = 48 * time.Hour

var (
	// ErrAdminMustBeContract is returned when an admin identity is not
	// backed by multi-party control.
	ErrAdminMustBeContract = errors.New("capshield: admin must be a multi-party identity")

	// ErrRenounceDisabled is returned by every RenounceOwnership call.
	ErrRenounceDisabled = errors.New("capshield: renouncing ownership is disabled")

	// ErrNoHandoverRequest is returned when completing a handover that was
	// never requested, was cancelled, or has expired.
	ErrNoHandoverRequest = errors.New("capshield: no valid ownership handover request")
)

// Verifier decides whether an identity is controlled by more than one
// independent approver. Ownership changes call it while the ledger holds
// its lock, so an implementation must not call back into the ledger.
type Verifier interface {
	IsMultiParty(ctx context.Context, who common.Address) bool
}

// VerifierFunc adapts a function to a Verifier.
type VerifierFunc func(ctx context.Context, who common.Address) bool

// IsMultiParty implements Verifier.
func (f VerifierFunc) IsMultiParty(ctx context.Context, who common.Address) bool { return f(ctx, who) }

// Guard holds the owner and pending handover requests.
type Guard struct {
	owner     common.Address
	handovers map[common.Address]time.Time
	verifier  Verifier
	validity  time.Duration
	now       func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock sets the time source used for handover expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithHandoverValidity sets how long handover requests stay valid.
func WithHandoverValidity(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.validity = d
		}
	}
}

// NewGuard creates a guard owned by owner. It fails with
// ErrAdminMustBeContract if owner is not multi-party controlled.
func NewGuard(ctx context.Context, owner common.Address, verifier Verifier, opts ...Option) (*Guard, error) {
	if verifier == nil {
		return nil, errors.New("capshield: ownership verifier is required")
	}
	g := &Guard{
		handovers: make(map[common.Address]time.Time),
		verifier:  verifier,
		validity:  DefaultHandoverValidity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := g.checkAdmin(ctx, owner); err != nil {
		return nil, err
	}
	g.owner = owner
	return g, nil
}

func (g *Guard) checkAdmin(ctx context.Context, who common.Address) error {
	if who == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if !g.verifier.IsMultiParty(ctx, who) {
		return fmt.Errorf("%w: %s", ErrAdminMustBeContract, who.Hex())
	}
	return nil
}

// Owner returns the current owner.
func (g *Guard) Owner() common.Address { return g.owner }

// IsOwner reports whether who is the owner.
func (g *Guard) IsOwner(who common.Address) bool { return who == g.owner }

// RequireOwner fails with an error wrapping role.ErrUnauthorized when
// caller is not the owner.
func (g *Guard) RequireOwner(caller common.Address) error {
	if !g.IsOwner(caller) {
		return fmt.Errorf("%w: owner required", role.ErrUnauthorized)
	}
	return nil
}

// IsOwnerMultiParty re-runs the verifier against the current owner.
func (g *Guard) IsOwnerMultiParty(ctx context.Context) bool {
	return g.verifier.IsMultiParty(ctx, g.owner)
}

// Verifier returns the verifier the guard checks candidates with.
func (g *Guard) Verifier() Verifier { return g.verifier }

// TransferOwnership moves ownership directly to next.
func (g *Guard) TransferOwnership(ctx context.Context, j *journal.Journal, caller, next common.Address) error {
	if err := g.RequireOwner(caller); err != nil {
		return err
	}
	if err := g.checkAdmin(ctx, next); err != nil {
		return err
	}
	g.setOwner(j, next)
	return nil
}

// RequestHandover opens a handover request for candidate. Anyone may
// request; only the owner can complete. The returned time is the expiry.
func (g *Guard) RequestHandover(j *journal.Journal, candidate common.Address) (time.Time, error) {
	if candidate == (common.Address{}) {
		return time.Time{}, types.ErrZeroAddress
	}
	expires := g.now().Add(g.validity)
	g.setHandover(j, candidate, expires)
	return expires, nil
}

// CancelHandover drops candidate's request. It returns false if there was
// none.
func (g *Guard) CancelHandover(j *journal.Journal, candidate common.Address) bool {
	if _, ok := g.handovers[candidate]; !ok {
		return false
	}
	g.setHandover(j, candidate, time.Time{})
	return true
}

// CompleteHandover hands ownership to candidate. The request must exist and
// be unexpired, and candidate must pass the multi-party check now.
func (g *Guard) CompleteHandover(ctx context.Context, j *journal.Journal, caller, candidate common.Address) error {
	if err := g.RequireOwner(caller); err != nil {
		return err
	}
	expires, ok := g.handovers[candidate]
	if !ok || g.now().After(expires) {
		return ErrNoHandoverRequest
	}
	if err := g.checkAdmin(ctx, candidate); err != nil {
		return err
	}
	g.setHandover(j, candidate, time.Time{})
	g.setOwner(j, candidate)
	return nil
}

// HandoverExpiresAt returns the expiry of candidate's request, or the zero
// time if there is none.
func (g *Guard) HandoverExpiresAt(candidate common.Address) time.Time {
	return g.handovers[candidate]
}

// RenounceOwnership always fails.
func (g *Guard) RenounceOwnership(common.Address) error {
	return ErrRenounceDisabled
}

func (g *Guard) setOwner(j *journal.Journal, next common.Address) {
	prev := g.owner
	g.owner = next
	j.Record(func() { g.owner = prev })
}

// setHandover stores expires for candidate, or deletes the request when
// expires is zero.
func (g *Guard) setHandover(j *journal.Journal, candidate common.Address, expires time.Time) {
	prev, had := g.handovers[candidate]
	if expires.IsZero() {
		delete(g.handovers, candidate)
	} else {
		g.handovers[candidate] = expires
	}
	j.Record(func() {
		if had {
			g.handovers[candidate] = prev
		} else {
			delete(g.handovers, candidate)
		}
	})
}

// Handovers returns a copy of the pending requests.
func (g *Guard) Handovers() map[common.Address]time.Time {
	out := make(map[common.Address]time.Time, len(g.handovers))
	for a, t := range g.handovers {
		out[a] = t
	}
	return out
}

// Load restores owner and requests from a checkpoint. The owner is not
// re-verified; the checkpoint was valid when written.
func (g *Guard) Load(owner common.Address, handovers map[common.Address]time.Time) error {
	if owner == (common.Address{}) {
		return types.ErrZeroAddress
	}
	g.owner = owner
	g.handovers = make(map[common.Address]time.Time, len(handovers))
	for a, t := range handovers {
		g.handovers[a] = t
	}
	return nil
}
