package stats

import "time"

// Kind identifies which variant an Entry currently holds.
type Kind int

const (
	KindInt32 Kind = iota
	KindUint32
	KindInt64
	KindUint64
	KindTimestamp
	KindDuration
)

// Entry is one stat value: a signed/unsigned 32/64-bit counter, a
// wall-clock timestamp, or an accumulating timer.
type Entry struct {
	kind Kind

	i32 int32
	u32 uint32
	i64 int64
	u64 uint64
	ts  time.Time

	elapsed    time.Duration
	running    bool
	startedAt  time.Time
}

func newNumericEntry(kind Kind) *Entry { return &Entry{kind: kind} }

// Kind reports the entry's current variant.
func (e *Entry) Kind() Kind { return e.kind }

// Int64Value returns the entry's value widened to int64, for any numeric
// or timestamp variant. Duration entries return the elapsed nanoseconds
// (not including time accrued by a currently-running timer — callers
// needing a live read should use Elapsed()).
func (e *Entry) Int64Value() int64 {
	switch e.kind {
	case KindInt32:
		return int64(e.i32)
	case KindUint32:
		return int64(e.u32)
	case KindInt64:
		return e.i64
	case KindUint64:
		return int64(e.u64)
	case KindTimestamp:
		return e.ts.UnixNano()
	case KindDuration:
		return int64(e.elapsed)
	}
	return 0
}

// Elapsed returns the accumulated duration for a KindDuration entry,
// including time since the timer was last started if it is running.
func (e *Entry) Elapsed(now time.Time) time.Duration {
	if e.kind != KindDuration {
		return 0
	}
	if !e.running {
		return e.elapsed
	}
	return e.elapsed + now.Sub(e.startedAt)
}

// increment adds amount to a numeric entry. For KindDuration, amount is
// interpreted as nanoseconds added directly to the accumulated elapsed
// time (Increment on a timer stat, independent of Start/Stop).
func (e *Entry) increment(amount int64) {
	switch e.kind {
	case KindInt32:
		e.i32 += int32(amount)
	case KindUint32:
		e.u32 += uint32(amount)
	case KindInt64:
		e.i64 += amount
	case KindUint64:
		e.u64 += uint64(amount)
	case KindDuration:
		e.elapsed += time.Duration(amount)
	}
}

func (e *Entry) setInt64(value int64) {
	switch e.kind {
	case KindInt32:
		e.i32 = int32(value)
	case KindUint32:
		e.u32 = uint32(value)
	case KindInt64:
		e.i64 = value
	case KindUint64:
		e.u64 = uint64(value)
	case KindTimestamp:
		e.ts = time.Unix(0, value)
	case KindDuration:
		e.elapsed = time.Duration(value)
		e.running = false
	}
}

func (e *Entry) startTimer(now time.Time) {
	if e.kind != KindDuration || e.running {
		return
	}
	e.running = true
	e.startedAt = now
}

func (e *Entry) stopTimer(now time.Time) {
	if e.kind != KindDuration || !e.running {
		return
	}
	e.elapsed += now.Sub(e.startedAt)
	e.running = false
}

func (e *Entry) resetTimer() {
	if e.kind != KindDuration {
		return
	}
	e.elapsed = 0
	e.running = false
}

// promote reinterprets a stored numeric entry under a different
// requested Kind by truncating or extending its value: a stat whose
// stored variant differs from what a reader asks for is promoted rather
// than rejected, so legacy records stay readable across kind changes.
func (e *Entry) promote(to Kind) *Entry {
	if e.kind == to {
		return e
	}
	v := e.Int64Value()
	out := newNumericEntry(to)
	out.setInt64(v)
	return out
}

func (e *Entry) clone() *Entry {
	c := *e
	return &c
}
