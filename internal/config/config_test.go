package config

import "testing"

func TestDefaultsFillUnsetKeys(t *testing.T) {
	a := NewArenaFromValues(nil)
	if got := a.GetInt("Misc:ShipChangeInterval", -1); got != 500 {
		t.Fatalf("Misc:ShipChangeInterval = %d; want 500", got)
	}
	if got := a.GetInt("LegalShip:ArenaMask", -1); got != 255 {
		t.Fatalf("LegalShip:ArenaMask = %d; want 255", got)
	}
}

func TestOverrideWinsOverDefault(t *testing.T) {
	a := NewArenaFromValues(map[string]string{"Soccer:Mode": "2"})
	if got := a.GetInt("Soccer:Mode", -1); got != 2 {
		t.Fatalf("Soccer:Mode = %d; want 2", got)
	}
}

func TestMissingIntFallsBackToDefaultNotError(t *testing.T) {
	a := NewArenaFromValues(nil)
	if got := a.GetInt("Nonexistent:Key", 42); got != 42 {
		t.Fatalf("GetInt on missing key = %d; want 42", got)
	}
}

func TestMalformedIntFallsBackToDefault(t *testing.T) {
	a := NewArenaFromValues(map[string]string{"Bad:Int": "not-a-number"})
	if got := a.GetInt("Bad:Int", 7); got != 7 {
		t.Fatalf("GetInt on malformed value = %d; want 7 (default)", got)
	}
}

func TestGlobalAdditionalIntervalNames(t *testing.T) {
	g := DefaultGlobal()
	g.values["Stats:AdditionalIntervals"] = "Weekly, Monthly"
	names := g.AdditionalIntervalNames()
	if len(names) != 2 || names[0] != "Weekly" || names[1] != "Monthly" {
		t.Fatalf("AdditionalIntervalNames() = %v", names)
	}
}

func TestFreqMaskKeyFormatting(t *testing.T) {
	if got := FreqMaskKey(7); got != "LegalShip:Freq7Mask" {
		t.Fatalf("FreqMaskKey(7) = %q", got)
	}
}
