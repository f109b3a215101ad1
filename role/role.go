// Package role implements the capability registry that gates privileged
// ledger operations.
//
// Roles form a closed enumeration per ledger variant and are stored as a
// bitmap per identity. The owner is not recorded here; ownership checks live
// in the ownership package.
package role

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

var (
	// ErrUnauthorized is returned when a caller lacks a required capability.
	ErrUnauthorized = errors.New("capshield: unauthorized")

	// ErrUnknownRole is returned when a role set contains bits outside the
	// ledger's schema.
	ErrUnknownRole = errors.New("capshield: unknown role")
)

// Role is a single capability bit.
type Role uint8

// Set is a bitmap of roles.
type Set uint8

// Capability bits. Their meaning is fixed; which of them a ledger accepts
// is decided by its Schema.
const (
	RewardMinter   Role = 1 << 0
	TeamMinter     Role = 1 << 1
	TreasuryMinter Role = 1 << 2
	DaoMinter      Role = 1 << 3
)

var names = map[Role]string{
	RewardMinter:   "reward_minter",
	TeamMinter:     "team_minter",
	TreasuryMinter: "treasury_minter",
	DaoMinter:      "dao_minter",
}

// String returns the role name.
func (r Role) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Of builds a set from roles.
func Of(roles ...Role) Set {
	var s Set
	for _, r := range roles {
		s |= Set(r)
	}
	return s
}

// Has reports whether r is in s.
func (s Set) Has(r Role) bool { return s&Set(r) != 0 }

// Intersects reports whether s and o share any role.
func (s Set) Intersects(o Set) bool { return s&o != 0 }

// Union returns s | o.
func (s Set) Union(o Set) Set { return s | o }

// Without returns s with every role of o cleared.
func (s Set) Without(o Set) Set { return s &^ o }

// IsEmpty reports whether no role is set.
func (s Set) IsEmpty() bool { return s == 0 }

// Len returns the number of roles in s.
func (s Set) Len() int { return bits.OnesCount8(uint8(s)) }

// Roles lists the roles of s in bit order.
func (s Set) Roles() []Role {
	out := make([]Role, 0, s.Len())
	for b := Role(1); b != 0; b <<= 1 {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

// String renders s as a comma separated list of names.
func (s Set) String() string {
	roles := s.Roles()
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// ParseRole resolves a role by name.
func ParseRole(name string) (Role, error) {
	for r, n := range names {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Schema is the closed set of roles a ledger variant accepts.
type Schema struct {
	allowed Set
}

// NewSchema creates a schema accepting exactly roles.
func NewSchema(roles ...Role) Schema { return Schema{allowed: Of(roles...)} }

// RewardSchema is the role universe of the reward ledger.
func RewardSchema() Schema { return NewSchema(RewardMinter) }

// AllocationSchema is the role universe of the allocation ledger.
func AllocationSchema() Schema { return NewSchema(TeamMinter, TreasuryMinter, DaoMinter) }

// Allowed returns every role in the schema.
func (sc Schema) Allowed() Set { return sc.allowed }

// Validate fails if s has bits outside the schema.
func (sc Schema) Validate(s Set) error {
	if extra := s.Without(sc.allowed); !extra.IsEmpty() {
		return fmt.Errorf("%w: %08b", ErrUnknownRole, uint8(extra))
	}
	return nil
}

// Registry maps identities to role sets.
type Registry struct {
	schema  Schema
	holders map[common.Address]Set
}

// NewRegistry creates an empty registry bound to schema.
func NewRegistry(schema Schema) *Registry {
	return &Registry{schema: schema, holders: make(map[common.Address]Set)}
}

// Schema returns the registry's schema.
func (r *Registry) Schema() Schema { return r.schema }

// RolesOf returns the roles held by who.
func (r *Registry) RolesOf(who common.Address) Set { return r.holders[who] }

// HasRole reports whether who holds role.
func (r *Registry) HasRole(who common.Address, role Role) bool {
	return r.holders[who].Has(role)
}

// HasAnyRole reports whether who holds any role of s.
func (r *Registry) HasAnyRole(who common.Address, s Set) bool {
	return r.holders[who].Intersects(s)
}

// RequireRole fails with ErrUnauthorized when who lacks role.
func (r *Registry) RequireRole(who common.Address, role Role) error {
	if !r.HasRole(who, role) {
		return fmt.Errorf("%w: %s required", ErrUnauthorized, role)
	}
	return nil
}

// Grant adds roles to who and returns the bits that were actually added.
// Granting held roles is a no-op.
func (r *Registry) Grant(j *journal.Journal, who common.Address, roles Set) (Set, error) {
	if err := r.check(who, roles); err != nil {
		return 0, err
	}
	prev := r.holders[who]
	r.set(j, who, prev, prev.Union(roles))
	return roles.Without(prev), nil
}

// Revoke removes roles from who and returns the bits that were actually
// removed. Revoking roles not held is a no-op.
func (r *Registry) Revoke(j *journal.Journal, who common.Address, roles Set) (Set, error) {
	if err := r.check(who, roles); err != nil {
		return 0, err
	}
	prev := r.holders[who]
	r.set(j, who, prev, prev.Without(roles))
	return prev & roles, nil
}

func (r *Registry) check(who common.Address, roles Set) error {
	if who == (common.Address{}) {
		return types.ErrZeroAddress
	}
	return r.schema.Validate(roles)
}

func (r *Registry) set(j *journal.Journal, who common.Address, prev, next Set) {
	if prev == next {
		return
	}
	if next.IsEmpty() {
		delete(r.holders, who)
	} else {
		r.holders[who] = next
	}
	j.Record(func() {
		if prev.IsEmpty() {
			delete(r.holders, who)
		} else {
			r.holders[who] = prev
		}
	})
}

// Holders returns a copy of every identity's role set.
func (r *Registry) Holders() map[common.Address]Set {
	out := make(map[common.Address]Set, len(r.holders))
	for a, s := range r.holders {
		out[a] = s
	}
	return out
}

// HoldersOf lists identities holding role, sorted by address.
func (r *Registry) HoldersOf(role Role) []common.Address {
	var out []common.Address
	for a, s := range r.holders {
		if s.Has(role) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Cmp(out[k]) < 0 })
	return out
}

// Load replaces the registry contents. It fails if any set is outside the
// schema.
func (r *Registry) Load(holders map[common.Address]Set) error {
	next := make(map[common.Address]Set, len(holders))
	for a, s := range holders {
		if err := r.schema.Validate(s); err != nil {
			return fmt.Errorf("%s: %w", a.Hex(), err)
		}
		if !s.IsEmpty() {
			next[a] = s
		}
	}
	r.holders = next
	return nil
}
