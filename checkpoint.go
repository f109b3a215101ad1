package capshield

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/fee"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
)

// Snapshot captures the ledger state as of the last committed event.
func (l *Ledger) Snapshot() *snapshot.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() *snapshot.Snapshot {
	rate := l.policy.rate()
	st := snapshot.State{
		Name:        l.policy.Name,
		Symbol:      l.policy.Symbol,
		Variant:     string(l.policy.Variant),
		MaxSupply:   l.policy.MaxSupply.Dec(),
		BurnBps:     rate.BurnBps,
		TreasuryBps: rate.TreasuryBps,
		TotalMinted: l.supply.TotalMinted().Dec(),
		TotalSupply: l.supply.TotalSupply().Dec(),
		Paused:      l.gate.Paused(),
		Owner:       l.owner.Owner(),
		Treasury:    l.treasury,
		Dao:         l.dao,
		Balances:    make(map[common.Address]string),
		Exemptions:  l.fees.Exemptions().List(),
		Handovers:   l.owner.Handovers(),
	}
	for a, v := range l.accounts.Balances() {
		st.Balances[a] = v.Dec()
	}
	if allowances := l.accounts.Allowances(); len(allowances) > 0 {
		st.Allowances = make(map[common.Address]map[common.Address]string, len(allowances))
		for owner, spenders := range allowances {
			m := make(map[common.Address]string, len(spenders))
			for s, v := range spenders {
				m[s] = v.Dec()
			}
			st.Allowances[owner] = m
		}
	}
	if holders := l.roles.Holders(); len(holders) > 0 {
		st.Roles = make(map[common.Address]uint8, len(holders))
		for a, s := range holders {
			st.Roles[a] = uint8(s)
		}
	}
	if len(l.allocations) > 0 {
		st.Allocations = make(map[string]string, len(l.allocations))
		for r, v := range l.allocations {
			st.Allocations[r.String()] = v.Dec()
		}
	}
	return &snapshot.Snapshot{
		ID:        id.NewSnapshotID(),
		TokenID:   l.tokenID,
		Seq:       l.seq,
		State:     st,
		CreatedAt: l.now().UTC(),
	}
}

// Checkpoint saves a snapshot to the store and returns it. When no event
// has been committed since the last checkpoint, that checkpoint is returned
// and nothing is written.
func (l *Ledger) Checkpoint(ctx context.Context) (*snapshot.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.checkpoint != nil && l.checkpoint.Seq == l.seq {
		return l.checkpoint, nil
	}

	snap := l.snapshotLocked()
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("%w: checkpoint: %w", ErrTransactionFailed, err)
	}
	l.checkpoint = snap

	l.logger.Debug("checkpoint saved",
		"token", l.tokenID.String(),
		"seq", snap.Seq,
		"holders", len(snap.State.Balances),
	)
	return snap, nil
}

// Restore rebuilds a ledger from the latest checkpoint of tokenID in s. The
// owner is re-verified. It fails with ErrSnapshotStale if events were
// committed after the checkpoint, since those cannot be replayed.
//
// Fee policies other than a basis-point Rate are not captured by a
// checkpoint and come back as a Rate with the stored split.
func Restore(ctx context.Context, s store.Store, tokenID TokenID, verifier ownership.Verifier, opts ...Option) (*Ledger, error) {
	snap, err := s.LatestSnapshot(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no checkpoint for %s", ErrNotFound, tokenID)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreNotReady, err)
	}
	last, err := s.LastEventSeq(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreNotReady, err)
	}
	if last > snap.Seq {
		return nil, fmt.Errorf("%w: checkpoint at %d, log at %d", ErrSnapshotStale, snap.Seq, last)
	}

	st := snap.State
	policy, err := policyFromState(st)
	if err != nil {
		return nil, err
	}

	opts = append(opts, WithStore(s), WithTokenID(tokenID))
	l, err := newLedger(policy, opts)
	if err != nil {
		return nil, err
	}
	if err := l.load(ctx, st, verifier); err != nil {
		return nil, fmt.Errorf("restore %s: %w", tokenID, err)
	}
	l.seq = snap.Seq
	l.checkpoint = snap

	l.logger.Info("ledger restored",
		"token", tokenID.String(),
		"seq", snap.Seq,
		"variant", st.Variant,
		"holders", len(st.Balances),
	)
	return l, nil
}

func policyFromState(st snapshot.State) (Policy, error) {
	variant, err := ParseVariant(st.Variant)
	if err != nil {
		return Policy{}, err
	}
	maxSupply, err := parseAmount("max_supply", st.MaxSupply)
	if err != nil {
		return Policy{}, err
	}
	p := Policy{
		Name:      st.Name,
		Symbol:    st.Symbol,
		Variant:   variant,
		MaxSupply: maxSupply,
	}
	if st.BurnBps > 0 || st.TreasuryBps > 0 {
		p.Fee = fee.Rate{BurnBps: st.BurnBps, TreasuryBps: st.TreasuryBps}
	} else {
		p.Fee = fee.None{}
	}
	return p, nil
}

// load applies st to a freshly built ledger.
func (l *Ledger) load(ctx context.Context, st snapshot.State, verifier ownership.Verifier) error {
	var err error
	l.owner, err = ownership.NewGuard(ctx, st.Owner, verifier,
		ownership.WithClock(l.now),
		ownership.WithHandoverValidity(l.handoverValidity),
	)
	if err != nil {
		return err
	}
	if err := l.owner.Load(st.Owner, st.Handovers); err != nil {
		return err
	}

	balances := make(map[common.Address]*uint256.Int, len(st.Balances))
	for a, v := range st.Balances {
		if balances[a], err = parseAmount("balance", v); err != nil {
			return err
		}
	}
	allowances := make(map[common.Address]map[common.Address]*uint256.Int, len(st.Allowances))
	for owner, spenders := range st.Allowances {
		m := make(map[common.Address]*uint256.Int, len(spenders))
		for s, v := range spenders {
			if m[s], err = parseAmount("allowance", v); err != nil {
				return err
			}
		}
		allowances[owner] = m
	}
	l.accounts.Load(balances, allowances)

	minted, err := parseAmount("total_minted", st.TotalMinted)
	if err != nil {
		return err
	}
	supplied, err := parseAmount("total_supply", st.TotalSupply)
	if err != nil {
		return err
	}
	if err := l.supply.Load(minted, supplied); err != nil {
		return err
	}

	holders := make(map[common.Address]role.Set, len(st.Roles))
	for a, bits := range st.Roles {
		holders[a] = role.Set(bits)
	}
	if err := l.roles.Load(holders); err != nil {
		return err
	}

	for name, v := range st.Allocations {
		r, err := role.ParseRole(name)
		if err != nil {
			return err
		}
		if l.allocations[r], err = parseAmount("allocation", v); err != nil {
			return err
		}
	}

	l.fees.Exemptions().Load(st.Exemptions)
	l.gate.Load(st.Paused)
	l.treasury, l.dao = st.Treasury, st.Dao
	if l.policy.Variant == VariantAllocation && (l.treasury == (common.Address{}) || l.dao == (common.Address{})) {
		return fmt.Errorf("%w: allocation checkpoint without treasury or dao", ErrZeroAddress)
	}
	return nil
}

func parseAmount(field, s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, ValidationError{Field: field, Message: fmt.Sprintf("invalid amount %q", s)}
	}
	return v, nil
}
