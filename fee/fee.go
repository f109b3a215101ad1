// Package fee computes how a transfer is split between its recipient, a
// burned portion and a treasury portion.
//
// The split is expressed in basis points. The recipient always receives the
// remainder, so the three parts sum exactly to the transferred amount no
// matter how the percentages round.
package fee

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// BasisPoints is the denominator of every rate.
const BasisPoints = 10_000

// ErrInvalidRate is returned for rates that together exceed 100%.
var ErrInvalidRate = errors.New("capshield: invalid fee rate")

var bpsDenominator = uint256.NewInt(BasisPoints)

// Breakdown is the outcome of settling one transfer.
type Breakdown struct {
	Recipient *uint256.Int
	Burn      *uint256.Int
	Treasury  *uint256.Int
	Exempt    bool
}

// Total returns Recipient + Burn + Treasury.
func (b Breakdown) Total() *uint256.Int {
	t, _ := types.Sum(b.Recipient, b.Burn, b.Treasury)
	return t
}

// Charged reports whether any fee component is non-zero.
func (b Breakdown) Charged() bool {
	return !types.IsZero(b.Burn) || !types.IsZero(b.Treasury)
}

func passThrough(amount *uint256.Int, exempt bool) Breakdown {
	return Breakdown{
		Recipient: types.Clone(amount),
		Burn:      new(uint256.Int),
		Treasury:  new(uint256.Int),
		Exempt:    exempt,
	}
}

// Policy splits a non-exempt transfer.
type Policy interface {
	// Split returns the breakdown of amount.
	Split(amount *uint256.Int) (Breakdown, error)

	// Charges reports whether the policy ever takes a fee.
	Charges() bool
}

// None is the fee-free policy.
type None struct{}

// Split implements Policy.
func (None) Split(amount *uint256.Int) (Breakdown, error) { return passThrough(amount, false), nil }

// Charges implements Policy.
func (None) Charges() bool { return false }

// Rate is a percentage split in basis points.
type Rate struct {
	BurnBps     uint64 `json:"burn_bps" yaml:"burn_bps"`
	TreasuryBps uint64 `json:"treasury_bps" yaml:"treasury_bps"`
}

// DefaultRate is 1% burned and 1% to the treasury.
var DefaultRate = Rate{BurnBps: 100, TreasuryBps: 100}

// NewRate validates r.
func NewRate(burnBps, treasuryBps uint64) (Rate, error) {
	r := Rate{BurnBps: burnBps, TreasuryBps: treasuryBps}
	if burnBps+treasuryBps > BasisPoints {
		return Rate{}, fmt.Errorf("%w: %d+%d bps exceeds %d", ErrInvalidRate, burnBps, treasuryBps, BasisPoints)
	}
	return r, nil
}

// Split implements Policy.
func (r Rate) Split(amount *uint256.Int) (Breakdown, error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	burn, overflow := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(r.BurnBps), bpsDenominator)
	if overflow {
		return Breakdown{}, fmt.Errorf("%w: burn fee overflow", types.ErrInvalidAmount)
	}
	treasury, overflow := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(r.TreasuryBps), bpsDenominator)
	if overflow {
		return Breakdown{}, fmt.Errorf("%w: treasury fee overflow", types.ErrInvalidAmount)
	}
	recipient := new(uint256.Int).Sub(amount, burn)
	recipient.Sub(recipient, treasury)
	return Breakdown{Recipient: recipient, Burn: burn, Treasury: treasury}, nil
}

// Charges implements Policy.
func (r Rate) Charges() bool { return r.BurnBps > 0 || r.TreasuryBps > 0 }

// Exemptions is the set of identities that bypass the fee.
type Exemptions struct {
	set map[common.Address]bool
}

// NewExemptions creates an empty exemption set.
func NewExemptions() *Exemptions {
	return &Exemptions{set: make(map[common.Address]bool)}
}

// IsExempt reports whether who bypasses the fee.
func (e *Exemptions) IsExempt(who common.Address) bool { return e.set[who] }

// Set marks or unmarks who. It returns whether the flag changed.
func (e *Exemptions) Set(j *journal.Journal, who common.Address, exempt bool) (bool, error) {
	if who == (common.Address{}) {
		return false, types.ErrZeroAddress
	}
	prev := e.set[who]
	if prev == exempt {
		return false, nil
	}
	e.apply(who, exempt)
	j.Record(func() { e.apply(who, prev) })
	return true, nil
}

func (e *Exemptions) apply(who common.Address, exempt bool) {
	if exempt {
		e.set[who] = true
	} else {
		delete(e.set, who)
	}
}

// List returns every exempt identity, sorted.
func (e *Exemptions) List() []common.Address {
	out := make([]common.Address, 0, len(e.set))
	for a := range e.set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Cmp(out[k]) < 0 })
	return out
}

// Load replaces the set.
func (e *Exemptions) Load(addrs []common.Address) {
	e.set = make(map[common.Address]bool, len(addrs))
	for _, a := range addrs {
		e.set[a] = true
	}
}

// Engine combines a policy with an exemption set.
type Engine struct {
	policy     Policy
	exemptions *Exemptions
}

// NewEngine creates a fee engine. A nil policy means None.
func NewEngine(policy Policy, exemptions *Exemptions) *Engine {
	if policy == nil {
		policy = None{}
	}
	if exemptions == nil {
		exemptions = NewExemptions()
	}
	return &Engine{policy: policy, exemptions: exemptions}
}

// Policy returns the configured policy.
func (e *Engine) Policy() Policy { return e.policy }

// Exemptions returns the exemption set.
func (e *Engine) Exemptions() *Exemptions { return e.exemptions }

// Settle splits a transfer of amount from from to to. If either side is
// exempt the full amount goes to the recipient.
func (e *Engine) Settle(from, to common.Address, amount *uint256.Int) (Breakdown, error) {
	if e.exemptions.IsExempt(from) || e.exemptions.IsExempt(to) {
		return passThrough(amount, true), nil
	}
	return e.policy.Split(amount)
}
