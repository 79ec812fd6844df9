package engine

import (
	"context"

	"tycooncore/internal/notify"
	"tycooncore/internal/progression"
	"tycooncore/pkg/domain"
)

// PendingUpgrade is a priced upgrade awaiting confirmation.
type PendingUpgrade struct {
	BarID            string          `json:"bar_id"`
	Category         domain.Category `json:"category"`
	FromLevel        int             `json:"from_level"`
	ToLevel          int             `json:"to_level"`
	Cost             int             `json:"cost"`
	NewCap           int             `json:"new_cap"`
	SalesVolumeDelta int             `json:"sales_volume_delta"`
}

// quoteUpgrade prices one level of category at bar against funds.
func (s *Service) quoteUpgrade(save *domain.GameSave, barID string, category domain.Category) (PendingUpgrade, error) {
	if !category.Valid() {
		return PendingUpgrade{}, domain.Validationf(domain.ReasonInvalidInput, "unknown category %q", category)
	}
	bar, ok := save.FindBar(barID)
	if !ok {
		return PendingUpgrade{}, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: barID}
	}
	level := bar.Levels.Get(category)
	if progression.IsMaxLevel(level, bar.MaxLevel) {
		return PendingUpgrade{}, domain.Validationf(domain.ReasonMaxLevelReached, "%s %s is at level %d of %d", bar.Name, category, level, bar.MaxLevel)
	}
	curve := s.balance.Upgrade
	quote := PendingUpgrade{
		BarID:            barID,
		Category:         category,
		FromLevel:        level,
		ToLevel:          level + 1,
		Cost:             curve.CostForLevel(level),
		NewCap:           bar.Caps.Get(category) + curve.CapIncrease(),
		SalesVolumeDelta: curve.SalesVolumeBonus,
	}
	if save.Finance.Funds < quote.Cost {
		return PendingUpgrade{}, domain.Validationf(domain.ReasonInsufficientFunds, "upgrade costs %d, funds are %d", quote.Cost, save.Finance.Funds)
	}
	return quote, nil
}

// RequestUpgrade prices the next level of category at a restaurant and stages
// it for confirmation, replacing any earlier request.
func (s *Service) RequestUpgrade(ctx context.Context, barID string, category domain.Category) (PendingUpgrade, error) {
	var quote PendingUpgrade
	err := s.run(ctx, "request_upgrade", barID, func(context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		q, err := s.quoteUpgrade(save, barID, category)
		if err != nil {
			return nil, err
		}
		s.pendingUpgrade = &q
		quote = q
		return nil, nil
	})
	return quote, err
}

// PendingUpgradeRequest returns the staged upgrade, if any.
func (s *Service) PendingUpgradeRequest() (PendingUpgrade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingUpgrade == nil {
		return PendingUpgrade{}, false
	}
	return *s.pendingUpgrade, true
}

// ConfirmUpgrade charges and applies the staged upgrade: the level rises by
// one, the category cap by CapIncrease and sales volume by the curve's bonus.
// The quote is re-checked against the current save first.
func (s *Service) ConfirmUpgrade(ctx context.Context) (PendingUpgrade, error) {
	var applied PendingUpgrade
	err := s.run(ctx, "confirm_upgrade", "", func(ctx context.Context) ([]notify.Event, error) {
		if s.pendingUpgrade == nil {
			return nil, domain.Validationf(domain.ReasonNothingPending, "no upgrade awaiting confirmation")
		}
		pending := *s.pendingUpgrade
		s.pendingUpgrade = nil

		events, err := s.commit(ctx, func(tx *txn) error {
			quote, err := s.quoteUpgrade(tx.save, pending.BarID, pending.Category)
			if err != nil {
				return err
			}
			if quote != pending {
				return domain.Validationf(domain.ReasonInvalidInput, "restaurant changed since the upgrade was requested")
			}
			bar, err := tx.bar(pending.BarID)
			if err != nil {
				return err
			}
			tx.adjustFunds(-quote.Cost, actionUpgrade)
			bar.Levels.Set(quote.Category, quote.ToLevel)
			bar.Caps.Set(quote.Category, quote.NewCap)
			bar.SalesVolume += quote.SalesVolumeDelta
			tx.record(domain.EntityRestaurant, bar.ID, actionUpgrade)
			tx.emit(notify.UpgradeApplied{
				BarID:            bar.ID,
				Category:         quote.Category,
				NewLevel:         quote.ToLevel,
				NewCap:           quote.NewCap,
				SalesVolumeDelta: quote.SalesVolumeDelta,
			})
			return nil
		})
		if committed(err) {
			applied = pending
		}
		return events, err
	})
	return applied, err
}

// CancelUpgrade discards the staged upgrade.
func (s *Service) CancelUpgrade() (PendingUpgrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingUpgrade == nil {
		return PendingUpgrade{}, domain.Validationf(domain.ReasonNothingPending, "no upgrade awaiting confirmation")
	}
	p := *s.pendingUpgrade
	s.pendingUpgrade = nil
	return p, nil
}
