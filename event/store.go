package event

import (
	"context"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
)

// Store persists the audit log.
type Store interface {
	// AppendEvents writes events atomically: either all are stored or none.
	// A sequence number already stored for the token must be rejected.
	AppendEvents(ctx context.Context, events []*Event) error
	ListEvents(ctx context.Context, tokenID id.TokenID, opts ListOpts) ([]*Event, error)
	// LastEventSeq returns 0 when the token has no events.
	LastEventSeq(ctx context.Context, tokenID id.TokenID) (uint64, error)
}
