package multisig

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeys(t *testing.T, n int) ([]*ecdsa.PrivateKey, []common.Address) {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, n)
	addrs := make([]common.Address, n)
	for i := range keys {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = k
		addrs[i] = crypto.PubkeyToAddress(k.PublicKey)
	}
	return keys, addrs
}

func TestWalletAddressIsOrderIndependent(t *testing.T) {
	_, signers := newKeys(t, 3)
	reversed := []common.Address{signers[2], signers[1], signers[0]}

	assert.Equal(t, WalletAddress(signers, 2), WalletAddress(reversed, 2))
	assert.NotEqual(t, WalletAddress(signers, 2), WalletAddress(signers, 3))
}

func TestNewWalletValidation(t *testing.T) {
	_, signers := newKeys(t, 2)

	tests := []struct {
		name      string
		signers   []common.Address
		threshold int
	}{
		{"threshold one", signers, 1},
		{"not enough signers", signers[:1], 2},
		{"duplicate signer", []common.Address{signers[0], signers[0]}, 2},
		{"zero signer", []common.Address{signers[0], {}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWallet("w", tt.signers, tt.threshold)
			require.ErrorIs(t, err, ErrInvalidWallet)
		})
	}
}

func TestIsMultiParty(t *testing.T) {
	_, signers := newKeys(t, 3)
	r := NewRegistry()
	w, err := r.Create("treasury-safe", signers, 2)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, r.IsMultiParty(ctx, w.Address))
	assert.False(t, r.IsMultiParty(ctx, signers[0]), "a single key is not multi-party")
}

func TestRegisterRejectsForgedAddress(t *testing.T) {
	_, signers := newKeys(t, 2)
	w, err := NewWallet("w", signers, 2)
	require.NoError(t, err)

	w.Address = signers[0]
	require.ErrorIs(t, NewRegistry().Register(w), ErrInvalidWallet)
}

func TestRegisterRevalidatesQuorum(t *testing.T) {
	_, signers := newKeys(t, 2)
	tests := []struct {
		name      string
		signers   []common.Address
		threshold int
	}{
		{"duplicate signer", []common.Address{signers[0], signers[0]}, 2},
		{"zero signer", []common.Address{signers[0], {}}, 2},
		{"threshold one", signers, 1},
		{"not enough signers", signers[:1], 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The address matches the quorum, so only the quorum rules can reject it.
			w := &Wallet{
				Address:   WalletAddress(tt.signers, tt.threshold),
				Signers:   tt.signers,
				Threshold: tt.threshold,
			}
			r := NewRegistry()
			require.ErrorIs(t, r.Register(w), ErrInvalidWallet)
			assert.False(t, r.IsMultiParty(context.Background(), w.Address))
		})
	}
}

func TestRegisterKeepsOwnCopy(t *testing.T) {
	_, signers := newKeys(t, 3)
	w, err := NewWallet("w", signers, 2)
	require.NoError(t, err)

	r := NewRegistry()
	require.NoError(t, r.Register(w))
	w.Threshold = 1

	got, err := r.Get(w.Address)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Threshold)
	assert.True(t, r.IsMultiParty(context.Background(), w.Address))
}

func TestAuthorize(t *testing.T) {
	keys, signers := newKeys(t, 3)
	outsider, _ := newKeys(t, 1)

	r := NewRegistry()
	w, err := r.Create("ops", signers, 2)
	require.NoError(t, err)

	digest := CallDigest(w.Address, 7, []byte("pause"))
	sign := func(k *ecdsa.PrivateKey) []byte {
		sig, err := crypto.Sign(digest, k)
		require.NoError(t, err)
		return sig
	}

	require.NoError(t, r.Authorize(w.Address, digest, [][]byte{sign(keys[0]), sign(keys[2])}))
	require.ErrorIs(t, r.Authorize(w.Address, digest, [][]byte{sign(keys[0])}), ErrQuorumNotMet)
	require.ErrorIs(t, r.Authorize(w.Address, digest, [][]byte{sign(keys[0]), sign(keys[0])}), ErrQuorumNotMet)
	require.ErrorIs(t, r.Authorize(w.Address, digest, [][]byte{sign(keys[0]), sign(outsider[0])}), ErrInvalidApproval)
	require.ErrorIs(t, r.Authorize(signers[0], digest, nil), ErrWalletNotFound)
}
