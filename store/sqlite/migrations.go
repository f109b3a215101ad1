package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the CapShield store (SQLite).
var Migrations = migrate.NewGroup("capshield")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_capshield_events",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS capshield_events (
    id        TEXT PRIMARY KEY,
    token_id  TEXT NOT NULL,
    seq       INTEGER NOT NULL,
    kind      TEXT NOT NULL,
    caller    TEXT NOT NULL DEFAULT '',
    from_addr TEXT NOT NULL DEFAULT '',
    to_addr   TEXT NOT NULL DEFAULT '',
    amount    TEXT NOT NULL DEFAULT '',
    fields    TEXT NOT NULL DEFAULT '{}',
    timestamp INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_capshield_events_token_seq ON capshield_events (token_id, seq);
CREATE INDEX IF NOT EXISTS idx_capshield_events_kind ON capshield_events (token_id, kind);
CREATE INDEX IF NOT EXISTS idx_capshield_events_from ON capshield_events (token_id, from_addr);
CREATE INDEX IF NOT EXISTS idx_capshield_events_to ON capshield_events (token_id, to_addr);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS capshield_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_capshield_snapshots",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS capshield_snapshots (
    id         TEXT PRIMARY KEY,
    token_id   TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    state      TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_capshield_snapshots_token_seq ON capshield_snapshots (token_id, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS capshield_snapshots`)
				return err
			},
		},
	)
}
