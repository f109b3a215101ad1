package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
	capstore "github.com/lovekush-pitchmatter/capshield-smart-contract/store"
)

// Collection name constants.
const (
	colEvents    = "capshield_events"
	colSnapshots = "capshield_snapshots"
)

// compile-time interface check
var _ capstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all CapShield collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("capshield/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Event Store ====================

// AppendEvents inserts the batch with one ordered InsertMany. The unique
// (token_id, seq) index turns a racing writer into ErrConflict.
func (s *Store) AppendEvents(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := capstore.CheckSequence(ctx, events, s.LastEventSeq); err != nil {
		return err
	}
	docs := make([]any, len(events))
	for i, e := range events {
		docs[i] = toEventModel(e)
	}
	if _, err := s.mdb.Collection(colEvents).InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("capshield/mongo: append events: %w", capstore.ErrConflict)
		}
		return fmt.Errorf("capshield/mongo: append events: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, tokenID id.TokenID, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel

	filter := bson.M{"token_id": tokenID.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Account != (common.Address{}) {
		who := opts.Account.Hex()
		filter["$or"] = bson.A{
			bson.M{"caller": who},
			bson.M{"from_addr": who},
			bson.M{"to_addr": who},
		}
	}
	if opts.AfterSeq > 0 {
		filter["seq"] = bson.M{"$gt": int64(opts.AfterSeq)} //nolint:gosec // sequence numbers stay far below 2^63
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("capshield/mongo: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("capshield/mongo: list events: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) LastEventSeq(ctx context.Context, tokenID id.TokenID) (uint64, error) {
	var m eventModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("capshield/mongo: last event seq: %w", err)
	}
	return uint64(m.Seq), nil //nolint:gosec // stored from a uint64
}

// ==================== Snapshot Store ====================

func (s *Store) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	m, err := toSnapshotModel(snap)
	if err != nil {
		return fmt.Errorf("capshield/mongo: save snapshot: %w", err)
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("capshield/mongo: save snapshot: %w", capstore.ErrConflict)
		}
		return fmt.Errorf("capshield/mongo: save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context, tokenID id.TokenID) (*snapshot.Snapshot, error) {
	var m snapshotModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, capstore.ErrNotFound
		}
		return nil, fmt.Errorf("capshield/mongo: latest snapshot: %w", err)
	}
	return fromSnapshotModel(&m)
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all CapShield collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEvents: {
			{
				Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "from_addr", Value: 1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "to_addr", Value: 1}}},
		},
		colSnapshots: {
			{
				Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "seq", Value: -1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
