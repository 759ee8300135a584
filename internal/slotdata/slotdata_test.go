package slotdata

import "testing"

type counters struct {
	kills int
}

func TestGetLazilyZeroInitializes(t *testing.T) {
	key := Allocate[counters]("kill-counters")
	var tbl Table

	c := Get(&tbl, key)
	if c.kills != 0 {
		t.Fatalf("kills = %d; want 0", c.kills)
	}
	c.kills = 5

	again := Get(&tbl, key)
	if again.kills != 5 {
		t.Fatalf("second Get lost mutation: kills = %d; want 5", again.kills)
	}
}

func TestDistinctKeysAreIndependent(t *testing.T) {
	keyA := Allocate[counters]("a")
	keyB := Allocate[counters]("b")
	var tbl Table

	Get(&tbl, keyA).kills = 1
	if Get(&tbl, keyB).kills != 0 {
		t.Fatal("unrelated slot key should not observe the other's mutation")
	}
}

func TestClearResetsTable(t *testing.T) {
	key := Allocate[counters]("c")
	var tbl Table
	Get(&tbl, key).kills = 9

	tbl.Clear()

	if Get(&tbl, key).kills != 0 {
		t.Fatal("Clear should drop all prior slot data")
	}
}
