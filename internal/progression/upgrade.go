package progression

import "fmt"

// LevelsPerBand is the width of each upgrade cost band.
const LevelsPerBand = 5

// UpgradeCurve prices upgrades as a step function over five-level bands.
// BandCosts[i] covers levels i*5+1 .. (i+1)*5; FinalCost applies past the last
// band.
type UpgradeCurve struct {
	BandCosts        []int `json:"band_costs" yaml:"band_costs"`
	FinalCost        int   `json:"final_cost" yaml:"final_cost"`
	CapStep          int   `json:"cap_increase" yaml:"cap_increase"`
	SalesVolumeBonus int   `json:"sales_volume_bonus" yaml:"sales_volume_bonus"`
}

// DefaultUpgradeCurve returns the stock cost curve: levels 1-5 cost 500,
// 6-10 cost 1000, 11-15 cost 2000, 16-20 cost 4000 and anything above 8000.
func DefaultUpgradeCurve() UpgradeCurve {
	return UpgradeCurve{
		BandCosts:        []int{500, 1000, 2000, 4000},
		FinalCost:        8000,
		CapStep:          5,
		SalesVolumeBonus: 100,
	}
}

// Validate checks that costs are positive and non-decreasing.
func (c UpgradeCurve) Validate() error {
	prev := 0
	for i, cost := range c.BandCosts {
		if cost <= 0 {
			return fmt.Errorf("band %d cost must be positive", i+1)
		}
		if cost < prev {
			return fmt.Errorf("band %d cost %d is lower than previous band", i+1, cost)
		}
		prev = cost
	}
	if c.FinalCost < prev {
		return fmt.Errorf("final cost %d is lower than last band", c.FinalCost)
	}
	if c.CapStep <= 0 {
		return fmt.Errorf("cap increase must be positive")
	}
	if c.SalesVolumeBonus < 0 {
		return fmt.Errorf("sales volume bonus must not be negative")
	}
	return nil
}

// CostForLevel returns the price of upgrading away from level. Levels below 1
// are priced as level 1.
func (c UpgradeCurve) CostForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	band := (level - 1) / LevelsPerBand
	if band < len(c.BandCosts) {
		return c.BandCosts[band]
	}
	return c.FinalCost
}

// CapIncrease is the amount added to a category cap per upgrade. It is the
// same for every category.
func (c UpgradeCurve) CapIncrease() int { return c.CapStep }

// IsMaxLevel reports whether level has reached the restaurant-specific max.
func IsMaxLevel(level, max int) bool { return level >= max }
