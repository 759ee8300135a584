package player

// KillFunc is the broker callback signature fired once per confirmed
// kill. Subscribers read whatever they need (bounty, flags carried,
// crown state) directly off killer/victim rather than through a
// separate event payload, keeping this a single shared signature for
// every rules module that reacts to kills (KOTH, speed ranking, jackpot
// feed, kill-points reward).
type KillFunc func(killer, victim *Player)
