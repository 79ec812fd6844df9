// Package progression holds the pure lookup models for rank-gated restaurant
// capacity and upgrade costs.
package progression

import (
	"fmt"
	"sort"
)

// MinSlots is returned when a rank falls outside every tier.
const MinSlots = 1

// RankTier grants Slots restaurant slots to any rank at or below Threshold.
type RankTier struct {
	Threshold int `json:"threshold" yaml:"threshold"`
	Slots     int `json:"slots" yaml:"slots"`
}

// RankTable is an immutable list of tiers ordered by descending threshold.
// Lower rank values are better standing.
type RankTable struct {
	tiers []RankTier
}

// DefaultRankTiers is the stock progression used when no balance file
// overrides it.
func DefaultRankTiers() []RankTier {
	return []RankTier{
		{Threshold: 200, Slots: 1},
		{Threshold: 180, Slots: 2},
		{Threshold: 150, Slots: 3},
		{Threshold: 100, Slots: 4},
		{Threshold: 50, Slots: 5},
	}
}

// NewRankTable validates tiers and returns a table sorted by descending
// threshold. Better tiers must never grant fewer slots than worse ones.
func NewRankTable(tiers []RankTier) (RankTable, error) {
	if len(tiers) == 0 {
		return RankTable{}, fmt.Errorf("rank table requires at least one tier")
	}
	sorted := make([]RankTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })
	for i, t := range sorted {
		if t.Slots < MinSlots {
			return RankTable{}, fmt.Errorf("tier %d grants %d slots; minimum is %d", t.Threshold, t.Slots, MinSlots)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.Threshold == t.Threshold {
			return RankTable{}, fmt.Errorf("duplicate rank threshold %d", t.Threshold)
		}
		if t.Slots < prev.Slots {
			return RankTable{}, fmt.Errorf("tier %d grants fewer slots than worse tier %d", t.Threshold, prev.Threshold)
		}
	}
	return RankTable{tiers: sorted}, nil
}

// MustRankTable is NewRankTable for static tables known to be valid.
func MustRankTable(tiers []RankTier) RankTable {
	t, err := NewRankTable(tiers)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultRankTable returns the stock table.
func DefaultRankTable() RankTable {
	return MustRankTable(DefaultRankTiers())
}

// Tiers returns a copy of the table in descending threshold order.
func (t RankTable) Tiers() []RankTier {
	out := make([]RankTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// MaxSlots is the slot count of the best tier.
func (t RankTable) MaxSlots() int {
	if len(t.tiers) == 0 {
		return MinSlots
	}
	return t.tiers[len(t.tiers)-1].Slots
}

// SlotsForRank scans from the best tier downward and returns the slot count of
// the first tier whose threshold is >= rank. Boundaries are inclusive.
func (t RankTable) SlotsForRank(rank int) int {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if rank <= t.tiers[i].Threshold {
			return t.tiers[i].Slots
		}
	}
	return MinSlots
}

// NextUnlockRank returns the closest threshold strictly better than rank whose
// tier grants more slots than rank currently enjoys. ok is false at the best
// tier.
func (t RankTable) NextUnlockRank(rank int) (threshold int, ok bool) {
	current := t.SlotsForRank(rank)
	for _, tier := range t.tiers {
		if tier.Threshold < rank && tier.Slots > current {
			return tier.Threshold, true
		}
	}
	return 0, false
}
