package capshield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/account"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/fee"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/pause"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/plugin"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store/memory"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/supply"
)

// Ledger is one capped token ledger. All mutating calls are serialised and
// all-or-nothing: a failed call leaves no state change and emits no event.
type Ledger struct {
	mu sync.Mutex

	tokenID id.TokenID
	policy  Policy

	accounts    *account.Store
	supply      *supply.Policy
	roles       *role.Registry
	fees        *fee.Engine
	gate        *pause.Gate
	owner       *ownership.Guard
	treasury    common.Address
	dao         common.Address
	allocations map[role.Role]*uint256.Int
	seq         uint64

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// Configuration
	handoverValidity   time.Duration
	checkpointInterval uint64

	// Last snapshot saved to or loaded from the store.
	checkpoint *snapshot.Snapshot
}

// Genesis holds the identities a ledger is constructed with. Treasury and
// Dao are required by the allocation variant and ignored otherwise.
type Genesis struct {
	Owner    common.Address
	Treasury common.Address
	Dao      common.Address
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithStore sets the persistence backend. The default is an in-memory store.
func WithStore(s store.Store) Option {
	return func(l *Ledger) {
		l.store = s
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithClock sets the time source for event timestamps and handover expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithTokenID fixes the ledger's identifier instead of generating one.
func WithTokenID(tokenID id.TokenID) Option {
	return func(l *Ledger) {
		l.tokenID = tokenID
	}
}

// WithHandoverValidity sets how long ownership handover requests stay valid.
func WithHandoverValidity(d time.Duration) Option {
	return func(l *Ledger) {
		l.handoverValidity = d
	}
}

// WithCheckpointInterval writes a snapshot after every n events. Zero
// disables automatic checkpoints.
func WithCheckpointInterval(n uint64) Option {
	return func(l *Ledger) {
		l.checkpointInterval = n
	}
}

func newLedger(policy Policy, opts []Option) (*Ledger, error) {
	p, err := policy.withDefaults()
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		policy:           p,
		accounts:         account.NewStore(),
		roles:            role.NewRegistry(p.Schema),
		gate:             &pause.Gate{},
		allocations:      make(map[role.Role]*uint256.Int),
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		now:              time.Now,
		handoverValidity: ownership.DefaultHandoverValidity,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tokenID.IsNil() {
		l.tokenID = id.NewTokenID()
	}
	if l.store == nil {
		l.store = memory.New()
	}
	l.supply, err = supply.NewPolicy(p.MaxSupply, l.accounts)
	if err != nil {
		return nil, err
	}
	l.fees = fee.NewEngine(p.Fee, fee.NewExemptions())
	return l, nil
}

// New creates a ledger. The owner must pass verifier's multi-party check
// and, for the allocation variant, treasury and DAO must be set. No ledger
// is returned if any precondition fails.
func New(ctx context.Context, policy Policy, genesis Genesis, verifier ownership.Verifier, opts ...Option) (*Ledger, error) {
	l, err := newLedger(policy, opts)
	if err != nil {
		return nil, err
	}

	l.owner, err = ownership.NewGuard(ctx, genesis.Owner, verifier,
		ownership.WithClock(l.now),
		ownership.WithHandoverValidity(l.handoverValidity),
	)
	if err != nil {
		return nil, err
	}

	if l.policy.Variant == VariantAllocation {
		if genesis.Treasury == (common.Address{}) {
			return nil, fmt.Errorf("%w: treasury", ErrZeroAddress)
		}
		if genesis.Dao == (common.Address{}) {
			return nil, fmt.Errorf("%w: dao", ErrZeroAddress)
		}
		l.treasury, l.dao = genesis.Treasury, genesis.Dao
		ex := l.fees.Exemptions()
		_, _ = ex.Set(nil, l.treasury, true) //nolint:errcheck // non-zero checked above
		_, _ = ex.Set(nil, l.dao, true)      //nolint:errcheck // non-zero checked above
	}

	l.logger.Info("ledger created",
		"token", l.tokenID.String(),
		"name", l.policy.Name,
		"variant", string(l.policy.Variant),
		"max_supply", l.policy.MaxSupply.Dec(),
		"owner", genesis.Owner.Hex(),
	)
	return l, nil
}

// Start migrates the store, writes an initial checkpoint if the token has
// none, and initialises plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	snap, err := l.store.LatestSnapshot(ctx, l.tokenID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if _, err := l.Checkpoint(ctx); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("%w: %w", ErrStoreNotReady, err)
	default:
		l.mu.Lock()
		if l.checkpoint == nil && snap.Seq == l.seq {
			l.checkpoint = snap
		}
		l.mu.Unlock()
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("ledger started",
		"token", l.tokenID.String(),
		"seq", l.Seq(),
		"plugins", l.plugins.Count(),
		"checkpoint_interval", l.checkpointInterval,
	)
	return nil
}

// Stop writes a final checkpoint, shuts plugins down and closes the store.
func (l *Ledger) Stop() error {
	ctx := context.Background()

	if _, err := l.Checkpoint(ctx); err != nil {
		l.logger.Error("final checkpoint failed",
			"token", l.tokenID.String(),
			"error", err,
		)
	}

	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Call execution
// ──────────────────────────────────────────────────

// call is the state of one mutating call in progress.
type call struct {
	l         *Ledger
	caller    common.Address
	j         *journal.Journal
	events    []*event.Event
	exhausted bool
}

// emit appends an event to the call. The sequence number is journalled so
// a reverted call does not consume it.
func (c *call) emit(kind event.Kind, from, to common.Address, amount *uint256.Int, fields map[string]string) {
	l := c.l
	prev := l.seq
	l.seq++
	c.j.Record(func() { l.seq = prev })

	var amt *uint256.Int
	if amount != nil {
		amt = new(uint256.Int).Set(amount)
	}
	c.events = append(c.events, &event.Event{
		ID:        id.NewEventID(),
		TokenID:   l.tokenID,
		Seq:       l.seq,
		Kind:      kind,
		Caller:    c.caller,
		From:      from,
		To:        to,
		Amount:    amt,
		Fields:    fields,
		Timestamp: l.now().UTC(),
	})
}

// exec runs fn under the ledger lock. On success the events are persisted
// before the journal is committed; any failure reverts every mutation fn
// made. Plugins see the events only after the lock is released.
func (l *Ledger) exec(ctx context.Context, op string, caller common.Address, fn func(c *call) error) error {
	l.mu.Lock()
	c := &call{l: l, caller: caller, j: journal.New()}

	err := fn(c)
	if err == nil && len(c.events) > 0 {
		if serr := l.store.AppendEvents(ctx, c.events); serr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrTransactionFailed, op, serr)
		}
	}
	if err != nil {
		c.j.Revert()
		l.mu.Unlock()
		l.logger.Debug("ledger call rejected",
			"token", l.tokenID.String(),
			"op", op,
			"caller", caller.Hex(),
			"error", err,
		)
		return err
	}
	c.j.Commit()
	checkpoint := l.checkpointDue()
	l.mu.Unlock()

	l.logger.Debug("ledger call committed",
		"token", l.tokenID.String(),
		"op", op,
		"caller", caller.Hex(),
		"events", len(c.events),
	)

	for _, e := range c.events {
		l.plugins.Dispatch(ctx, e)
	}
	if c.exhausted {
		l.plugins.EmitSupplyExhausted(ctx, l.tokenID, l.TotalMinted())
	}
	if checkpoint {
		if _, err := l.Checkpoint(ctx); err != nil {
			l.logger.Warn("automatic checkpoint failed",
				"token", l.tokenID.String(),
				"error", err,
			)
		}
	}
	return nil
}

func (l *Ledger) checkpointDue() bool {
	var last uint64
	if l.checkpoint != nil {
		last = l.checkpoint.Seq
	}
	return l.checkpointInterval > 0 && l.seq-last >= l.checkpointInterval
}

// requireVariant fails with ErrUnsupported when the ledger is not v.
func (l *Ledger) requireVariant(v Variant, op string) error {
	if l.policy.Variant != v {
		return fmt.Errorf("%w: %s on %s ledger", ErrUnsupported, op, l.policy.Variant)
	}
	return nil
}
