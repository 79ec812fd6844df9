package engine

import (
	"tycooncore/internal/economy"
	"tycooncore/internal/progression"
	"tycooncore/pkg/domain"
)

// SlotsForRank returns how many restaurants rank may own.
func (s *Service) SlotsForRank(rank int) int { return s.ranks.SlotsForRank(rank) }

// NextUnlockRank returns the next better rank that grants another slot.
func (s *Service) NextUnlockRank(rank int) (int, bool) { return s.ranks.NextUnlockRank(rank) }

// RankTiers returns the rank table.
func (s *Service) RankTiers() []progression.RankTier { return s.ranks.Tiers() }

// CostForLevel returns the price of upgrading away from level.
func (s *Service) CostForLevel(level int) int { return s.balance.Upgrade.CostForLevel(level) }

// CapIncrease returns the cap added per upgrade.
func (s *Service) CapIncrease() int { return s.balance.Upgrade.CapIncrease() }

// IsMaxLevel reports whether level has reached maxLevel.
func (s *Service) IsMaxLevel(level, maxLevel int) bool { return progression.IsMaxLevel(level, maxLevel) }

// Breakdown returns the profit statement of one restaurant.
func (s *Service) Breakdown(barID string) (economy.Breakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	save, err := s.active()
	if err != nil {
		return economy.Breakdown{}, err
	}
	bar, ok := save.FindBar(barID)
	if !ok {
		return economy.Breakdown{}, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: barID}
	}
	return economy.Analyze(*bar, save.StaffOf(barID)), nil
}

// NetProfit returns a restaurant's net profit for one period. It may be
// negative.
func (s *Service) NetProfit(barID string) (int, error) {
	b, err := s.Breakdown(barID)
	if err != nil {
		return 0, err
	}
	return b.NetProfit, nil
}

// DeficiencyCount returns how many categories of a restaurant fall short of
// their cap.
func (s *Service) DeficiencyCount(barID string) (int, error) {
	b, err := s.Breakdown(barID)
	if err != nil {
		return 0, err
	}
	return len(b.Deficient), nil
}

// Report returns the profit statement of every restaurant.
func (s *Service) Report() (economy.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	save, err := s.active()
	if err != nil {
		return economy.Statement{}, err
	}
	return economy.Summarize(save), nil
}
