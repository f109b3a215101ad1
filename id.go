package capshield

import "github.com/lovekush-pitchmatter/capshield-smart-contract/id"

// ID is the primary identifier type for all ledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// TokenID identifies one ledger instance.
type TokenID = id.TokenID
