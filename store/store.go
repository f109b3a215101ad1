package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("capshield: not found")

	// ErrConflict is returned when an event sequence number is already
	// stored for the token.
	ErrConflict = errors.New("capshield: sequence conflict")

	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("capshield: store is closed")
)

// Store is the unified storage interface for ledger persistence: the audit
// log and state checkpoints of any number of tokens.
type Store interface {
	event.Store
	snapshot.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// CheckSequence verifies that events carry strictly increasing sequence
// numbers per token, each above the last stored one reported by last.
// SQL and document backends call it before writing a batch.
func CheckSequence(ctx context.Context, events []*event.Event, last func(context.Context, id.TokenID) (uint64, error)) error {
	seen := make(map[string]uint64)
	for _, e := range events {
		key := e.TokenID.String()
		prev, ok := seen[key]
		if !ok {
			stored, err := last(ctx, e.TokenID)
			if err != nil {
				return err
			}
			prev = stored
		}
		if e.Seq <= prev {
			return fmt.Errorf("%w: token %s seq %d", ErrConflict, key, e.Seq)
		}
		seen[key] = e.Seq
	}
	return nil
}
