// Package config loads the zone server's configuration surface: a
// global file plus, per arena, a base file overridden by arena-specific
// settings. Keys follow a "Section:Key" convention (Misc:ShipChangeInterval,
// Soccer:Mode, King:AutoStart, …).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// raw is the on-disk shape: a two-level mapping, section -> key -> value,
// flattened at load time into "Section:Key" lookup keys.
type raw map[string]map[string]string

// Global holds zone-wide keys: Stats:AdditionalIntervals and the
// VIEnames:<playerName> display-name overrides.
type Global struct {
	values map[string]string
}

// DefaultGlobal returns the zone-wide defaults.
func DefaultGlobal() *Global {
	return &Global{values: map[string]string{
		"Stats:AdditionalIntervals": "",
	}}
}

// LoadGlobal loads the global config file. A missing file yields
// defaults rather than an error.
func LoadGlobal(path string) (*Global, error) {
	g := DefaultGlobal()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return g, fmt.Errorf("reading global config %s: %w", path, err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return g, fmt.Errorf("parsing global config %s: %w", path, err)
	}
	for k, v := range flatten(r) {
		g.values[k] = v
	}
	return g, nil
}

// AdditionalIntervalNames splits the configured Stats:AdditionalIntervals
// key (comma-separated) into interval names beyond Forever/Reset/Game.
func (g *Global) AdditionalIntervalNames() []string {
	v := strings.TrimSpace(g.values["Stats:AdditionalIntervals"])
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// VIEName returns the client-visible override name configured for
// playerName via VIEnames:<playerName>, or ("", false) if none is set.
func (g *Global) VIEName(playerName string) (string, bool) {
	v, ok := g.values["VIEnames:"+playerName]
	return v, ok
}

// Arena holds one arena's resolved configuration: the global base file
// merged with an arena-specific overrides file, re-readable on
// ConfChanged.
type Arena struct {
	values map[string]string
}

// LoadArena loads basePath then overlays overridesPath (if it exists) on
// top — matching asss-style "base config + per-arena conf.d override".
func LoadArena(basePath, overridesPath string) (*Arena, error) {
	a := &Arena{values: defaultArenaValues()}

	if err := a.mergeFile(basePath); err != nil {
		return nil, err
	}
	if overridesPath != "" {
		if err := a.mergeFile(overridesPath); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// NewArenaFromValues builds an Arena directly from a flat key map,
// primarily for tests.
func NewArenaFromValues(values map[string]string) *Arena {
	merged := defaultArenaValues()
	for k, v := range values {
		merged[k] = v
	}
	return &Arena{values: merged}
}

func (a *Arena) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading arena config %s: %w", path, err)
	}
	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parsing arena config %s: %w", path, err)
	}
	for k, v := range flatten(r) {
		a.values[k] = v
	}
	return nil
}

func flatten(r raw) map[string]string {
	out := make(map[string]string)
	for section, kv := range r {
		for k, v := range kv {
			out[section+":"+k] = v
		}
	}
	return out
}

func defaultArenaValues() map[string]string {
	return map[string]string{
		"Misc:ShipChangeInterval":     "500",
		"Misc:AntiwarpShipChange":     "1",
		"Misc:AntiwarpFlagShipChange": "0",
		"Misc:TeamKillPoints":         "0",
		"Misc:FrequencyShipTypes":     "0",
		"Misc:VictoryMusic":           "1",
		"LegalShip:ArenaMask":         "255",

		"Soccer:Mode":         "0",
		"Soccer:CapturePoints": "-1",
		"Soccer:Reward":       "1000",
		"Soccer:WinBy":        "1",
		"Soccer:MinPlayers":   "0",
		"Soccer:MinTeams":     "2",
		"Soccer:CustomGame":   "",

		"Flag:FlagMode":    "0",
		"Flag:FlagCount":   "3",
		"Flag:FlagReward":  "1000",
		"Flag:SplitPoints": "0",

		"King:AutoStart":           "0",
		"King:MinPlayers":          "2",
		"King:StartDelay":          "3000",
		"King:ExpireTime":          "18000",
		"King:DeathCount":          "3",
		"King:NonCrownAdjustTime":  "600",
		"King:NonCrownMinimumBounty": "0",
		"King:CrownRecoverKills":   "3",
		"King:RewardFactor":        "1000",
		"King:SplitPoints":         "0",

		"Speed:AutoStart":     "0",
		"Speed:GameDuration":  "6000",

		"Kill:FixedKillReward":     "-1",
		"Kill:PointsPerKilledFlag": "0",
		"Kill:PointsPerCarriedFlag": "0",
		"Kill:PointsPerTeamFlag":   "0",
		"Kill:FlagMinimumBounty":   "0",
		"Kill:JackpotBountyPercent": "0",

		"Periodic:RewardDelay":     "6000",
		"Periodic:RewardPoints":    "0",
		"Periodic:SplitPoints":     "0",
		"Periodic:IncludeSpectators": "0",
		"Periodic:IncludeSafeZones": "0",
	}
}

// GetStr returns key's raw string value, or def if unset.
func (a *Arena) GetStr(key, def string) string {
	if v, ok := a.values[key]; ok {
		return v
	}
	return def
}

// GetInt parses key as an int, logging nothing itself (callers decide
// whether a parse failure is worth a warning) and returning def on any
// parse error or absence: a missing or malformed configuration value
// falls back to the default rather than failing the load.
func (a *Arena) GetInt(key string, def int) int {
	v, ok := a.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func (a *Arena) GetInt16(key string, def int16) int16 {
	return int16(a.GetInt(key, int(def)))
}

func (a *Arena) GetInt32(key string, def int32) int32 {
	return int32(a.GetInt(key, int(def)))
}

func (a *Arena) GetBool(key string, def bool) bool {
	v, ok := a.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n != 0
}

func (a *Arena) GetFloat(key string, def float64) float64 {
	v, ok := a.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// FreqMaskKey returns the LegalShip:Freq<N>Mask key name for freq.
func FreqMaskKey(freq int) string {
	return fmt.Sprintf("LegalShip:Freq%dMask", freq)
}

// Set overrides a single key, used by ConfChanged application and by
// tests.
func (a *Arena) Set(key, value string) {
	a.values[key] = value
}
