// Package account implements the ownership table of a ledger: balances and
// spending allowances keyed by identity.
//
// Store mutations are internal primitives. They are driven by the supply
// policy (mint, burn) and by the ledger's transfer path, never directly by
// an external caller.
package account

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("capshield: insufficient balance")

	// ErrInsufficientAllowance is returned when a spend exceeds the allowance.
	ErrInsufficientAllowance = errors.New("capshield: insufficient allowance")
)

// Store maps identities to balances and owner/spender pairs to allowances.
// Absent entries read as zero.
type Store struct {
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

// NewStore creates an empty account store.
func NewStore() *Store {
	return &Store{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// BalanceOf returns a copy of the balance of who. It never fails.
func (s *Store) BalanceOf(who common.Address) *uint256.Int {
	return types.Clone(s.balances[who])
}

// CanDebit reports whether who holds at least amount.
func (s *Store) CanDebit(who common.Address, amount *uint256.Int) bool {
	return !s.BalanceOf(who).Lt(amount)
}

// Credit adds amount to the balance of who.
func (s *Store) Credit(j *journal.Journal, who common.Address, amount *uint256.Int) error {
	if who == (common.Address{}) {
		return types.ErrZeroAddress
	}
	prev := s.balances[who]
	next, overflow := new(uint256.Int).AddOverflow(types.Clone(prev), amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", types.ErrInvalidAmount)
	}
	s.setBalance(j, who, prev, next)
	return nil
}

// Debit subtracts amount from the balance of who.
func (s *Store) Debit(j *journal.Journal, who common.Address, amount *uint256.Int) error {
	if who == (common.Address{}) {
		return types.ErrZeroAddress
	}
	prev := s.balances[who]
	if types.Clone(prev).Lt(amount) {
		return ErrInsufficientBalance
	}
	next := new(uint256.Int).Sub(types.Clone(prev), amount)
	s.setBalance(j, who, prev, next)
	return nil
}

func (s *Store) setBalance(j *journal.Journal, who common.Address, prev, next *uint256.Int) {
	if next.IsZero() {
		delete(s.balances, who)
	} else {
		s.balances[who] = next
	}
	j.Record(func() {
		if prev == nil {
			delete(s.balances, who)
		} else {
			s.balances[who] = prev
		}
	})
}

// Allowance returns how much spender may move on behalf of owner.
func (s *Store) Allowance(owner, spender common.Address) *uint256.Int {
	return types.Clone(s.allowances[owner][spender])
}

// Approve sets the allowance of spender over owner's balance.
func (s *Store) Approve(j *journal.Journal, owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return types.ErrZeroAddress
	}
	s.setAllowance(j, owner, spender, types.Clone(amount))
	return nil
}

// SpendAllowance decrements the allowance of spender over owner's balance.
// An unlimited allowance is left untouched.
func (s *Store) SpendAllowance(j *journal.Journal, owner, spender common.Address, amount *uint256.Int) error {
	current := s.Allowance(owner, spender)
	if types.IsUnlimited(current) {
		return nil
	}
	if current.Lt(amount) {
		return ErrInsufficientAllowance
	}
	s.setAllowance(j, owner, spender, new(uint256.Int).Sub(current, amount))
	return nil
}

func (s *Store) setAllowance(j *journal.Journal, owner, spender common.Address, next *uint256.Int) {
	byOwner, ok := s.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]*uint256.Int)
		s.allowances[owner] = byOwner
	}
	prev := byOwner[spender]
	if next.IsZero() {
		delete(byOwner, spender)
	} else {
		byOwner[spender] = next
	}
	j.Record(func() {
		if prev == nil {
			delete(byOwner, spender)
		} else {
			byOwner[spender] = prev
		}
	})
}

// Sum returns the sum of all balances.
func (s *Store) Sum() *uint256.Int {
	total := new(uint256.Int)
	for _, b := range s.balances {
		total.Add(total, b)
	}
	return total
}

// Holders returns every identity with a non-zero balance, in address order.
func (s *Store) Holders() []common.Address {
	out := make([]common.Address, 0, len(s.balances))
	for a := range s.balances {
		out = append(out, a)
	}
	sort.Slice(out, func(i, k int) bool { return bytes.Compare(out[i][:], out[k][:]) < 0 })
	return out
}

// Balances returns a copy of every non-zero balance.
func (s *Store) Balances() map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int, len(s.balances))
	for a, b := range s.balances {
		out[a] = types.Clone(b)
	}
	return out
}

// Allowances returns a copy of every non-zero allowance.
func (s *Store) Allowances() map[common.Address]map[common.Address]*uint256.Int {
	out := make(map[common.Address]map[common.Address]*uint256.Int, len(s.allowances))
	for owner, bySpender := range s.allowances {
		if len(bySpender) == 0 {
			continue
		}
		m := make(map[common.Address]*uint256.Int, len(bySpender))
		for spender, a := range bySpender {
			m[spender] = types.Clone(a)
		}
		out[owner] = m
	}
	return out
}

// Load replaces the store contents. It is used when restoring a checkpoint.
func (s *Store) Load(balances map[common.Address]*uint256.Int, allowances map[common.Address]map[common.Address]*uint256.Int) {
	s.balances = make(map[common.Address]*uint256.Int, len(balances))
	for a, b := range balances {
		if !types.IsZero(b) {
			s.balances[a] = types.Clone(b)
		}
	}
	s.allowances = make(map[common.Address]map[common.Address]*uint256.Int, len(allowances))
	for owner, bySpender := range allowances {
		m := make(map[common.Address]*uint256.Int, len(bySpender))
		for spender, a := range bySpender {
			if !types.IsZero(a) {
				m[spender] = types.Clone(a)
			}
		}
		s.allowances[owner] = m
	}
}
