package jackpot

import "testing"

func TestAddAndReset(t *testing.T) {
	j := New()
	j.Add(100)
	j.Add(50)
	if got := j.Get(); got != 150 {
		t.Fatalf("Get() = %d; want 150", got)
	}
	j.Reset()
	if got := j.Get(); got != 0 {
		t.Fatalf("Get() after Reset = %d; want 0", got)
	}
}

func TestOnKillFeedsPoolByPercentage(t *testing.T) {
	j := New()
	j.OnKill(1000, 50) // 5%
	if got := j.Get(); got != 50 {
		t.Fatalf("Get() = %d; want 50", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	j := New()
	j.Set(123456)
	blob := j.Serialize()
	if len(blob) != 4 {
		t.Fatalf("len(blob) = %d; want 4", len(blob))
	}

	j2 := New()
	j2.Deserialize(blob)
	if j2.Get() != 123456 {
		t.Fatalf("round-trip = %d; want 123456", j2.Get())
	}
}
