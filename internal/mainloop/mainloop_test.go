package mainloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

func runFor(t *testing.T, l *Loop, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	_ = l.Run(ctx)
}

func TestPeriodicTimerFiresMultipleTimes(t *testing.T) {
	l := New()

	var mu sync.Mutex
	count := 0
	l.SetTimer(func() bool {
		mu.Lock()
		count++
		mu.Unlock()
		return true
	}, 0, 5*Tick, "periodic")

	runFor(t, l, 60*Tick)

	mu.Lock()
	defer mu.Unlock()
	if count < 5 {
		t.Fatalf("count = %d; want at least 5", count)
	}
}

func TestOneShotTimerFiresOnce(t *testing.T) {
	l := New()

	var mu sync.Mutex
	count := 0
	l.SetTimer(func() bool {
		mu.Lock()
		count++
		mu.Unlock()
		return true // ignored for one-shot (period == 0)
	}, 0, 0, "oneshot")

	runFor(t, l, 40*Tick)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("count = %d; want 1", count)
	}
}

func TestSelfCancelingTimerStops(t *testing.T) {
	l := New()

	var mu sync.Mutex
	count := 0
	l.SetTimer(func() bool {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		return n < 3
	}, 0, Tick, "self-cancel")

	runFor(t, l, 60*Tick)

	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Fatalf("count = %d; want exactly 3", count)
	}
}

func TestClearByKeyRemovesAllMatches(t *testing.T) {
	l := New()

	var mu sync.Mutex
	count := 0
	groupCount := 0
	incr := func() bool {
		mu.Lock()
		count++
		mu.Unlock()
		return true
	}
	incrGroup := func() bool {
		mu.Lock()
		groupCount++
		mu.Unlock()
		return true
	}
	l.SetTimer(incrGroup, 0, Tick, "group")
	l.SetTimer(incrGroup, 0, Tick, "group")
	l.SetTimer(incr, 0, Tick, "other")

	l.ClearByKey("group")

	runFor(t, l, 30*Tick)

	mu.Lock()
	defer mu.Unlock()
	// Only the "other"-keyed timer should have kept firing.
	if groupCount != 0 {
		t.Fatalf("groupCount = %d; want 0 after ClearByKey(\"group\")", groupCount)
	}
	if count == 0 {
		t.Fatal("expected the non-cleared timer to still fire")
	}
}

func TestOnTickFiresOncePerTick(t *testing.T) {
	l := New()

	var mu sync.Mutex
	ticks := 0
	l.OnTick(func() {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	runFor(t, l, 20*Tick)

	mu.Lock()
	defer mu.Unlock()
	if ticks < 10 {
		t.Fatalf("ticks = %d; want at least 10", ticks)
	}
}

func TestPostRunsAsFreshTaskNotNested(t *testing.T) {
	l := New()

	var mu sync.Mutex
	var order []string

	l.SetTimer(func() bool {
		mu.Lock()
		order = append(order, "timer")
		mu.Unlock()
		l.Post(func() {
			mu.Lock()
			order = append(order, "posted")
			mu.Unlock()
		})
		return false
	}, 0, 0, "k")

	runFor(t, l, 30*Tick)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "timer" || order[1] != "posted" {
		t.Fatalf("order = %v; want [timer posted]", order)
	}
}
