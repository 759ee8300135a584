package stats

// IntervalEndFunc is the broker callback signature a rules module fires
// when it ends a scoring interval early (a KOTH or flag-game win ending
// the Game interval ahead of the Persist bridge's own interval-end
// notification). Anything interested in reacting to arena-scoped
// interval ends — chiefly the persist bridge, once wired — registers a
// handler for this signature on the relevant broker.
type IntervalEndFunc func(arenaName string, interval Interval)
