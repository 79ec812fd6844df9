package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tycooncore/internal/progression"
	"tycooncore/pkg/domain"
)

// RestaurantTemplate describes the restaurant that occupies a slot once the
// slot is bought.
type RestaurantTemplate struct {
	Name            string           `yaml:"name" json:"name"`
	Concept         string           `yaml:"concept" json:"concept"`
	Price           int              `yaml:"price" json:"price"`
	SalesVolume     int              `yaml:"sales_volume" json:"sales_volume"`
	Caps            domain.StatBlock `yaml:"caps" json:"caps"`
	MaxLevel        int              `yaml:"max_level" json:"max_level"`
	MaintenanceCost int              `yaml:"maintenance_cost" json:"maintenance_cost"`
	StaffSlots      int              `yaml:"staff_slots" json:"staff_slots"`
}

// EmployeeTemplate describes a starter employee or a hiring candidate.
type EmployeeTemplate struct {
	ID     string           `yaml:"id" json:"id"`
	Name   string           `yaml:"name" json:"name"`
	Rarity domain.Rarity    `yaml:"rarity" json:"rarity"`
	Level  int              `yaml:"level" json:"level"`
	Stats  domain.StatBlock `yaml:"stats" json:"stats"`
	Salary int              `yaml:"salary" json:"salary"`
}

// Ranking controls rank movement at the end of each period. Lower rank is
// better.
type Ranking struct {
	BestRank    int `yaml:"best_rank" json:"best_rank"`
	WorstRank   int `yaml:"worst_rank" json:"worst_rank"`
	ProfitStep  int `yaml:"profit_step" json:"profit_step"`
	GainPerStep int `yaml:"gain_per_step" json:"gain_per_step"`
	MaxGain     int `yaml:"max_gain" json:"max_gain"`
	LossPenalty int `yaml:"loss_penalty" json:"loss_penalty"`
}

// Review controls the periodic shareholder review.
type Review struct {
	Interval       int `yaml:"interval" json:"interval"`
	ProfitTarget   int `yaml:"profit_target" json:"profit_target"`
	FailurePenalty int `yaml:"failure_rank_penalty" json:"failure_rank_penalty"`
}

// Balance holds every tunable gameplay number.
type Balance struct {
	StartingFunds     int                      `yaml:"starting_funds" json:"starting_funds"`
	StartingRank      int                      `yaml:"starting_rank" json:"starting_rank"`
	RankTiers         []progression.RankTier   `yaml:"rank_tiers" json:"rank_tiers"`
	Upgrade           progression.UpgradeCurve `yaml:"upgrade" json:"upgrade"`
	Catalog           []RestaurantTemplate     `yaml:"restaurant_catalog" json:"restaurant_catalog"`
	StarterStaff      []EmployeeTemplate       `yaml:"starter_staff" json:"starter_staff"`
	Candidates        []EmployeeTemplate       `yaml:"candidates" json:"candidates"`
	HireFee           int                      `yaml:"hire_fee" json:"hire_fee"`
	SellRefundPercent int                      `yaml:"sell_refund_percent" json:"sell_refund_percent"`
	BurnoutPerPeriod  int                      `yaml:"burnout_per_period" json:"burnout_per_period"`
	BurnoutPerBar     int                      `yaml:"burnout_per_extra_restaurant" json:"burnout_per_extra_restaurant"`
	Ranking           Ranking                  `yaml:"ranking" json:"ranking"`
	Review            Review                   `yaml:"review" json:"review"`
}

// DefaultBalance returns the stock tuning.
func DefaultBalance() Balance {
	b := Balance{
		StartingFunds: 5000,
		StartingRank:  domain.DefaultRank,
		RankTiers:     progression.DefaultRankTiers(),
		Upgrade:       progression.DefaultUpgradeCurve(),
		Catalog: []RestaurantTemplate{
			{Name: "Corner Bistro", Concept: "bistro", Price: 0, SalesVolume: 1200, Caps: domain.StatBlock{Cuisine: 15, Service: 15, Ambiance: 10}, MaintenanceCost: 150},
			{Name: "Harbor Grill", Concept: "grill", Price: 3000, SalesVolume: 1800, Caps: domain.StatBlock{Cuisine: 25, Service: 20, Ambiance: 20}, MaintenanceCost: 250},
			{Name: "Garden Terrace", Concept: "terrace", Price: 6000, SalesVolume: 2600, Caps: domain.StatBlock{Cuisine: 30, Service: 30, Ambiance: 35}, MaintenanceCost: 400},
			{Name: "Skyline Lounge", Concept: "lounge", Price: 12000, SalesVolume: 4000, Caps: domain.StatBlock{Cuisine: 40, Service: 45, Ambiance: 50}, MaintenanceCost: 700},
			{Name: "Grand Brasserie", Concept: "brasserie", Price: 24000, SalesVolume: 6000, Caps: domain.StatBlock{Cuisine: 55, Service: 55, Ambiance: 55}, MaintenanceCost: 1100, MaxLevel: 25},
		},
		StarterStaff: []EmployeeTemplate{
			{ID: "starter-marta", Name: "Marta", Rarity: domain.RarityCommon, Level: 1, Stats: domain.StatBlock{Cuisine: 12, Service: 6, Ambiance: 4}, Salary: 120},
			{ID: "starter-leo", Name: "Leo", Rarity: domain.RarityCommon, Level: 1, Stats: domain.StatBlock{Cuisine: 4, Service: 10, Ambiance: 8}, Salary: 110},
		},
		Candidates: []EmployeeTemplate{
			{ID: "cand-ines", Name: "Ines", Rarity: domain.RarityCommon, Level: 1, Stats: domain.StatBlock{Cuisine: 8, Service: 8, Ambiance: 8}, Salary: 130},
			{ID: "cand-tomas", Name: "Tomas", Rarity: domain.RarityRare, Level: 2, Stats: domain.StatBlock{Cuisine: 16, Service: 8, Ambiance: 6}, Salary: 220},
			{ID: "cand-yuki", Name: "Yuki", Rarity: domain.RarityRare, Level: 2, Stats: domain.StatBlock{Cuisine: 6, Service: 16, Ambiance: 10}, Salary: 230},
			{ID: "cand-amara", Name: "Amara", Rarity: domain.RarityEpic, Level: 3, Stats: domain.StatBlock{Cuisine: 12, Service: 14, Ambiance: 20}, Salary: 380},
			{ID: "cand-rafael", Name: "Rafael", Rarity: domain.RarityLegendary, Level: 4, Stats: domain.StatBlock{Cuisine: 28, Service: 20, Ambiance: 18}, Salary: 650},
		},
		HireFee:           200,
		SellRefundPercent: 50,
		BurnoutPerPeriod:  4,
		BurnoutPerBar:     2,
		Ranking: Ranking{
			BestRank:    1,
			WorstRank:   250,
			ProfitStep:  250,
			GainPerStep: 1,
			MaxGain:     15,
			LossPenalty: 5,
		},
		Review: Review{
			Interval:       4,
			ProfitTarget:   2000,
			FailurePenalty: 10,
		},
	}
	b.fillTemplates()
	return b
}

// ApplyDefaults fills fields a partial balance file left empty. Plain
// numbers are not touched, so an explicit zero such as a 0% sell refund
// survives.
func (b *Balance) ApplyDefaults() {
	def := DefaultBalance()
	if b.StartingRank == 0 {
		b.StartingRank = def.StartingRank
	}
	if len(b.RankTiers) == 0 {
		b.RankTiers = def.RankTiers
	}
	if len(b.Upgrade.BandCosts) == 0 {
		b.Upgrade = def.Upgrade
	}
	if len(b.Catalog) == 0 {
		b.Catalog = def.Catalog
	}
	if len(b.StarterStaff) == 0 {
		b.StarterStaff = def.StarterStaff
	}
	b.fillTemplates()
	if b.Ranking == (Ranking{}) {
		b.Ranking = def.Ranking
	}
	if b.Review == (Review{}) {
		b.Review = def.Review
	}
}

func (b *Balance) fillTemplates() {
	for i := range b.Catalog {
		if b.Catalog[i].MaxLevel == 0 {
			b.Catalog[i].MaxLevel = domain.DefaultMaxLevel
		}
		if b.Catalog[i].StaffSlots == 0 {
			b.Catalog[i].StaffSlots = domain.DefaultStaffSlots
		}
	}
	for _, staff := range [][]EmployeeTemplate{b.StarterStaff, b.Candidates} {
		for i := range staff {
			if staff[i].Level == 0 {
				staff[i].Level = domain.DefaultLevel
			}
			if staff[i].Rarity == "" {
				staff[i].Rarity = domain.RarityCommon
			}
		}
	}
}

// Validate reports the first inconsistency in b.
func (b Balance) Validate() error {
	table, err := progression.NewRankTable(b.RankTiers)
	if err != nil {
		return fmt.Errorf("rank tiers: %w", err)
	}
	if err := b.Upgrade.Validate(); err != nil {
		return fmt.Errorf("upgrade curve: %w", err)
	}
	if len(b.Catalog) < table.MaxSlots() {
		return fmt.Errorf("restaurant catalog has %d entries but the rank table grants up to %d slots", len(b.Catalog), table.MaxSlots())
	}
	if len(b.StarterStaff) == 0 {
		return fmt.Errorf("at least one starter employee is required")
	}
	if len(b.StarterStaff) > b.Catalog[0].StaffSlots {
		return fmt.Errorf("%d starter employees exceed starter restaurant capacity %d", len(b.StarterStaff), b.Catalog[0].StaffSlots)
	}
	seen := map[string]bool{}
	for _, c := range b.Candidates {
		if c.ID == "" {
			return fmt.Errorf("candidate %q has no id", c.Name)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate candidate id %s", c.ID)
		}
		seen[c.ID] = true
	}
	if b.SellRefundPercent < 0 || b.SellRefundPercent > 100 {
		return fmt.Errorf("sell refund percent %d out of range", b.SellRefundPercent)
	}
	if b.Ranking.BestRank < 1 || b.Ranking.WorstRank < b.Ranking.BestRank {
		return fmt.Errorf("invalid rank bounds %d..%d", b.Ranking.BestRank, b.Ranking.WorstRank)
	}
	if b.Ranking.ProfitStep <= 0 {
		return fmt.Errorf("ranking profit step must be positive")
	}
	if b.Review.Interval < 0 {
		return fmt.Errorf("review interval must not be negative")
	}
	return nil
}

// RankTable builds the validated rank table.
func (b Balance) RankTable() (progression.RankTable, error) {
	return progression.NewRankTable(b.RankTiers)
}

// Candidate looks up a hiring candidate by id.
func (b Balance) Candidate(id string) (EmployeeTemplate, bool) {
	for _, c := range b.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return EmployeeTemplate{}, false
}

// LoadBalance reads a YAML balance file over the stock defaults.
func LoadBalance(path string) (Balance, error) {
	b := DefaultBalance()
	if path == "" {
		return b, nil
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return Balance{}, fmt.Errorf("read balance: %w", err)
	}
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return Balance{}, fmt.Errorf("decode balance %s: %w", path, err)
	}
	b.ApplyDefaults()
	if err := b.Validate(); err != nil {
		return Balance{}, fmt.Errorf("balance %s: %w", path, err)
	}
	return b, nil
}
