// Package multisig is a registry of quorum wallets. It serves as the
// ownership Verifier: an identity counts as multi-party controlled when it
// is the address of a registered wallet whose threshold needs at least two
// independent signers.
//
// Wallet addresses are derived from the signer set and threshold, so the
// same quorum always maps to the same identity.
package multisig

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MinThreshold is the smallest quorum that counts as multi-party control.
const MinThreshold = 2

var (
	ErrInvalidWallet   = errors.New("capshield: invalid multisig wallet")
	ErrWalletNotFound  = errors.New("capshield: multisig wallet not found")
	ErrQuorumNotMet    = errors.New("capshield: multisig quorum not met")
	ErrInvalidApproval = errors.New("capshield: invalid multisig approval")
)

// Wallet is a quorum of signers acting as one identity.
type Wallet struct {
	Address   common.Address   `json:"address"`
	Name      string           `json:"name,omitempty"`
	Signers   []common.Address `json:"signers"`
	Threshold int              `json:"threshold"`
}

// WalletAddress derives the identity of a quorum. The signer order does not
// matter.
func WalletAddress(signers []common.Address, threshold int) common.Address {
	sorted := sortedSigners(signers)
	buf := make([]byte, 0, 8+len(sorted)*common.AddressLength)
	buf = binary.BigEndian.AppendUint64(buf, uint64(threshold))
	for _, s := range sorted {
		buf = append(buf, s.Bytes()...)
	}
	return common.BytesToAddress(crypto.Keccak256([]byte("capshield.multisig"), buf)[12:])
}

func sortedSigners(signers []common.Address) []common.Address {
	out := append([]common.Address(nil), signers...)
	sort.Slice(out, func(i, k int) bool { return out[i].Cmp(out[k]) < 0 })
	return out
}

// NewWallet validates the quorum and returns the wallet with its derived
// address.
func NewWallet(name string, signers []common.Address, threshold int) (*Wallet, error) {
	if threshold < MinThreshold {
		return nil, fmt.Errorf("%w: threshold %d below %d", ErrInvalidWallet, threshold, MinThreshold)
	}
	if len(signers) < threshold {
		return nil, fmt.Errorf("%w: %d signers cannot meet threshold %d", ErrInvalidWallet, len(signers), threshold)
	}
	seen := make(map[common.Address]struct{}, len(signers))
	for _, s := range signers {
		if s == (common.Address{}) {
			return nil, fmt.Errorf("%w: zero signer", ErrInvalidWallet)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: duplicate signer %s", ErrInvalidWallet, s.Hex())
		}
		seen[s] = struct{}{}
	}
	sorted := sortedSigners(signers)
	return &Wallet{
		Address:   WalletAddress(sorted, threshold),
		Name:      name,
		Signers:   sorted,
		Threshold: threshold,
	}, nil
}

// IsSigner reports whether who is one of the wallet's signers.
func (w *Wallet) IsSigner(who common.Address) bool {
	for _, s := range w.Signers {
		if s == who {
			return true
		}
	}
	return false
}

// Registry holds known wallets. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	wallets map[common.Address]*Wallet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{wallets: make(map[common.Address]*Wallet)}
}

// Register adds w after checking it as NewWallet does. The registry keeps
// its own copy. Registering the same quorum twice is a no-op.
func (r *Registry) Register(w *Wallet) error {
	if w == nil {
		return ErrInvalidWallet
	}
	valid, err := NewWallet(w.Name, w.Signers, w.Threshold)
	if err != nil {
		return err
	}
	if w.Address != valid.Address {
		return fmt.Errorf("%w: address does not match quorum", ErrInvalidWallet)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[valid.Address] = valid
	return nil
}

// Create builds a wallet from signers and threshold and registers it.
func (r *Registry) Create(name string, signers []common.Address, threshold int) (*Wallet, error) {
	w, err := NewWallet(name, signers, threshold)
	if err != nil {
		return nil, err
	}
	if err := r.Register(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns the wallet at addr.
func (r *Registry) Get(addr common.Address) (*Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, addr.Hex())
	}
	return w, nil
}

// IsMultiParty implements ownership.Verifier.
func (r *Registry) IsMultiParty(_ context.Context, who common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[who]
	return ok && w.Threshold >= MinThreshold
}

// Authorize checks that sigs carry at least threshold distinct signer
// approvals of digest for the wallet at addr. Each signature is a 65 byte
// [R || S || V] secp256k1 signature over the 32 byte digest.
func (r *Registry) Authorize(addr common.Address, digest []byte, sigs [][]byte) error {
	w, err := r.Get(addr)
	if err != nil {
		return err
	}
	if len(digest) != common.HashLength {
		return fmt.Errorf("%w: digest must be %d bytes", ErrInvalidApproval, common.HashLength)
	}
	approved := make(map[common.Address]struct{}, len(sigs))
	for _, sig := range sigs {
		pub, err := crypto.SigToPub(digest, sig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidApproval, err)
		}
		signer := crypto.PubkeyToAddress(*pub)
		if !w.IsSigner(signer) {
			return fmt.Errorf("%w: %s is not a signer", ErrInvalidApproval, signer.Hex())
		}
		approved[signer] = struct{}{}
	}
	if len(approved) < w.Threshold {
		return fmt.Errorf("%w: %d of %d approvals", ErrQuorumNotMet, len(approved), w.Threshold)
	}
	return nil
}

// CallDigest is the digest signers approve for a ledger call made by a
// wallet: the keccak256 of the wallet address, a nonce and the call payload.
func CallDigest(wallet common.Address, nonce uint64, payload []byte) []byte {
	return crypto.Keccak256(wallet.Bytes(), binary.BigEndian.AppendUint64(nil, nonce), payload)
}
