// Package memory implements store.Store in process memory. It is the
// default backend of a ledger and the one used by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Audit log per token, ordered by sequence.
	events map[string][]*event.Event

	// Snapshots per token, ordered by sequence.
	snapshots map[string][]*snapshot.Snapshot

	closed bool
}

func New() *Store {
	return &Store{
		events:    make(map[string][]*event.Event),
		snapshots: make(map[string][]*snapshot.Snapshot),
	}
}

// Event store implementation
func (s *Store) AppendEvents(_ context.Context, events []*event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	// Validate the whole batch before writing anything.
	last := make(map[string]uint64)
	for _, e := range events {
		key := e.TokenID.String()
		prev, ok := last[key]
		if !ok {
			if log := s.events[key]; len(log) > 0 {
				prev = log[len(log)-1].Seq
			}
		}
		if e.Seq <= prev {
			return fmt.Errorf("%w: token %s seq %d", store.ErrConflict, key, e.Seq)
		}
		last[key] = e.Seq
	}

	for _, e := range events {
		key := e.TokenID.String()
		s.events[key] = append(s.events[key], cloneEvent(e))
	}
	return nil
}

func (s *Store) ListEvents(_ context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0)
	for _, e := range s.events[tokenID.String()] {
		if opts.Matches(e) {
			result = append(result, cloneEvent(e))
		}
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) LastEventSeq(_ context.Context, tokenID id.TokenID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.events[tokenID.String()]
	if len(log) == 0 {
		return 0, nil
	}
	return log[len(log)-1].Seq, nil
}

// Snapshot store implementation
func (s *Store) SaveSnapshot(_ context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	key := snap.TokenID.String()
	for _, existing := range s.snapshots[key] {
		if existing.Seq == snap.Seq {
			return fmt.Errorf("%w: token %s snapshot seq %d", store.ErrConflict, key, snap.Seq)
		}
	}
	cp, err := cloneSnapshot(snap)
	if err != nil {
		return err
	}
	list := append(s.snapshots[key], cp)
	sort.SliceStable(list, func(i, k int) bool { return list[i].Seq < list[k].Seq })
	s.snapshots[key] = list
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, tokenID id.TokenID) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.snapshots[tokenID.String()]
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return cloneSnapshot(list[len(list)-1])
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stored records never share amounts, maps or slices with callers.
func cloneEvent(e *event.Event) *event.Event {
	cp := *e
	if e.Amount != nil {
		cp.Amount = new(uint256.Int).Set(e.Amount)
	}
	if e.Fields != nil {
		cp.Fields = make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			cp.Fields[k] = v
		}
	}
	return &cp
}

func cloneSnapshot(snap *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	data, err := snap.State.Encode()
	if err != nil {
		return nil, fmt.Errorf("memory: encode snapshot: %w", err)
	}
	st, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("memory: decode snapshot: %w", err)
	}
	cp := *snap
	cp.State = st
	return &cp, nil
}
