// Package journal records revertible state modifications made during a single
// ledger call so that a failed call can be rolled back to the exact state it
// started from.
package journal

// Entry is a modification that can be undone.
type Entry interface {
	Revert()
}

// EntryFunc adapts a plain function to an Entry.
type EntryFunc func()

// Revert implements Entry.
func (f EntryFunc) Revert() { f() }

// Journal contains the list of modifications applied since the last commit.
// A nil *Journal is valid and records nothing.
type Journal struct {
	entries []Entry
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{}
}

// Append inserts a new modification entry at the end of the journal.
func (j *Journal) Append(e Entry) {
	if j == nil {
		return
	}
	j.entries = append(j.entries, e)
}

// Record is shorthand for Append(EntryFunc(undo)).
func (j *Journal) Record(undo func()) {
	j.Append(EntryFunc(undo))
}

// Revert undoes every recorded modification, newest first, and empties the
// journal.
func (j *Journal) Revert() {
	if j == nil {
		return
	}
	for i := len(j.entries) - 1; i >= 0; i-- {
		j.entries[i].Revert()
	}
	j.entries = j.entries[:0]
}

// Commit discards the recorded entries, making the modifications permanent.
func (j *Journal) Commit() {
	if j == nil {
		return
	}
	j.entries = j.entries[:0]
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.entries)
}
