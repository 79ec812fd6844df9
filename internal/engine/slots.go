package engine

import (
	"context"
	"strconv"

	"tycooncore/internal/economy"
	"tycooncore/internal/notify"
	"tycooncore/internal/savestore"
	"tycooncore/pkg/domain"
)

// SlotView is a slot with what it would cost and whether the current rank
// allows buying it.
type SlotView struct {
	domain.RestaurantSlot
	Name   string `json:"name"`
	Price  int    `json:"price"`
	Locked bool   `json:"locked"`
}

// Slots lists every slot with its catalog entry.
func (s *Service) Slots() ([]SlotView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	save, err := s.active()
	if err != nil {
		return nil, err
	}
	allowed := s.ranks.SlotsForRank(save.Progression.Rank)
	out := make([]SlotView, 0, len(save.Restaurants.Slots))
	for _, slot := range save.Restaurants.Slots {
		v := SlotView{RestaurantSlot: slot, Locked: !slot.Purchased && slot.Index > allowed}
		if slot.Index >= 1 && slot.Index <= len(s.balance.Catalog) {
			tpl := s.balance.Catalog[slot.Index-1]
			v.Name, v.Price = tpl.Name, tpl.Price
		}
		out = append(out, v)
	}
	return out, nil
}

// BuySlot purchases the slot at index and opens its catalog restaurant. The
// rank gate is checked before funds: owning as many slots as the rank allows
// fails with slot_locked however much money is available.
func (s *Service) BuySlot(ctx context.Context, index int) (domain.RestaurantBar, error) {
	var opened domain.RestaurantBar
	err := s.run(ctx, "buy_slot", strconv.Itoa(index), func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		slot, ok := save.FindSlot(index)
		if !ok || index > len(s.balance.Catalog) {
			return nil, &domain.IntegrityError{Entity: domain.EntitySlot, ID: strconv.Itoa(index)}
		}
		if slot.Purchased {
			return nil, domain.Validationf(domain.ReasonSlotUnavailable, "slot %d is already owned", index)
		}
		allowed := s.ranks.SlotsForRank(save.Progression.Rank)
		if save.PurchasedSlots() >= allowed || index > allowed {
			return nil, domain.Validationf(domain.ReasonSlotLocked, "rank %d allows %d restaurants", save.Progression.Rank, allowed)
		}
		tpl := s.balance.Catalog[index-1]
		if save.Finance.Funds < tpl.Price {
			return nil, domain.Validationf(domain.ReasonInsufficientFunds, "%s costs %d, funds are %d", tpl.Name, tpl.Price, save.Finance.Funds)
		}
		events, err := s.commit(ctx, func(tx *txn) error {
			bar := savestore.BarFromTemplate(s.store.NewID(), tpl)
			tx.save.Restaurants.Bars = append(tx.save.Restaurants.Bars, bar)
			sl, _ := tx.save.FindSlot(index)
			sl.Purchased = true
			sl.BarID = bar.ID
			tx.adjustFunds(-tpl.Price, actionBuy)
			tx.record(domain.EntitySlot, strconv.Itoa(index), actionBuy)
			tx.record(domain.EntityRestaurant, bar.ID, actionBuy)
			tx.emit(notify.SlotChanged{SlotIndex: index, BarID: bar.ID, Purchased: true})
			opened = bar
			return nil
		})
		if !committed(err) {
			opened = domain.RestaurantBar{}
		}
		return events, err
	})
	return opened, err
}

// SellSlot closes the restaurant in the slot at index and refunds a share of
// its catalog price. Its staff become unassigned. The last restaurant cannot
// be sold.
func (s *Service) SellSlot(ctx context.Context, index int) (int, error) {
	var refund int
	err := s.run(ctx, "sell_slot", strconv.Itoa(index), func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		slot, ok := save.FindSlot(index)
		if !ok {
			return nil, &domain.IntegrityError{Entity: domain.EntitySlot, ID: strconv.Itoa(index)}
		}
		if !slot.Purchased {
			return nil, domain.Validationf(domain.ReasonSlotUnavailable, "slot %d is not owned", index)
		}
		if save.PurchasedSlots() <= 1 {
			return nil, domain.Validationf(domain.ReasonLastRestaurant, "the last restaurant cannot be sold")
		}
		barID := slot.BarID
		price := 0
		if index <= len(s.balance.Catalog) {
			price = s.balance.Catalog[index-1].Price
		}
		amount := economy.Percent(price, s.balance.SellRefundPercent)

		events, err := s.commit(ctx, func(tx *txn) error {
			bar, err := tx.bar(barID)
			if err != nil {
				return err
			}
			for _, id := range append([]string(nil), bar.StaffIDs...) {
				if emp, ok := tx.save.FindEmployee(id); ok {
					emp.AssignedTo = ""
					tx.record(domain.EntityEmployee, id, actionUnassign)
					tx.emit(notify.AssignmentChanged{BarID: barID, EmployeeID: id, Action: notify.ActionUnassigned})
				}
			}
			bars := tx.save.Restaurants.Bars[:0]
			for _, b := range tx.save.Restaurants.Bars {
				if b.ID != barID {
					bars = append(bars, b)
				}
			}
			tx.save.Restaurants.Bars = bars
			sl, _ := tx.save.FindSlot(index)
			sl.Purchased = false
			sl.BarID = ""
			tx.adjustFunds(amount, actionSell)
			tx.record(domain.EntitySlot, strconv.Itoa(index), actionSell)
			tx.emit(notify.SlotChanged{SlotIndex: index, Purchased: false})
			return nil
		})
		if committed(err) {
			refund = amount
			if s.pendingMove != nil && (s.pendingMove.FromBarID == barID || s.pendingMove.ToBarID == barID) {
				s.pendingMove = nil
			}
			if s.pendingUpgrade != nil && s.pendingUpgrade.BarID == barID {
				s.pendingUpgrade = nil
			}
		}
		return events, err
	})
	return refund, err
}
