// Package pause implements the global halt switch of a ledger.
package pause

import (
	"errors"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
)

// ErrPaused is returned by mutating calls while the ledger is halted.
var ErrPaused = errors.New("capshield: paused")

// Gate holds the pause flag.
type Gate struct {
	paused bool
}

// Paused reports whether the gate is closed.
func (g *Gate) Paused() bool { return g.paused }

// Require fails with ErrPaused while the gate is closed.
func (g *Gate) Require() error {
	if g.paused {
		return ErrPaused
	}
	return nil
}

// Pause closes the gate. Pausing a paused gate is a no-op and returns false.
func (g *Gate) Pause(j *journal.Journal) bool { return g.set(j, true) }

// Unpause opens the gate. Unpausing an open gate is a no-op and returns
// false.
func (g *Gate) Unpause(j *journal.Journal) bool { return g.set(j, false) }

func (g *Gate) set(j *journal.Journal, paused bool) bool {
	if g.paused == paused {
		return false
	}
	g.paused = paused
	j.Record(func() { g.paused = !paused })
	return true
}

// Load restores the flag from a checkpoint.
func (g *Gate) Load(paused bool) { g.paused = paused }
