package journal

import "testing"

func TestRevertNewestFirst(t *testing.T) {
	var order []int
	j := New()
	j.Record(func() { order = append(order, 1) })
	j.Record(func() { order = append(order, 2) })
	j.Record(func() { order = append(order, 3) })

	j.Revert()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Fatalf("unexpected revert order: %v", order)
	}
	if j.Len() != 0 {
		t.Errorf("journal not emptied after revert: %d entries", j.Len())
	}
}

func TestCommitDropsEntries(t *testing.T) {
	reverted := false
	j := New()
	j.Record(func() { reverted = true })
	j.Commit()
	j.Revert()

	if reverted {
		t.Error("committed entry was reverted")
	}
}

func TestNilJournal(t *testing.T) {
	var j *Journal
	j.Record(func() { t.Error("nil journal must not record") })
	j.Revert()
	j.Commit()
	if j.Len() != 0 {
		t.Error("nil journal reports entries")
	}
}
