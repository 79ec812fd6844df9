package domain

import (
	"errors"
	"fmt"
)

// ErrInconsistentSave marks a document whose slots, restaurants and staff
// lists contradict each other.
var ErrInconsistentSave = errors.New("inconsistent save")

// Validate checks the structural invariants of a hydrated save: slot indexes
// are unique, purchased slots and restaurants pair up one to one, and every
// employee appears on at most one staff list that agrees with its
// assignment and fits the restaurant's staff slots. Every problem found is
// reported, joined under ErrInconsistentSave.
func Validate(save GameSave) error {
	var problems []error
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(save.Restaurants.Slots) == 0 {
		bad("no restaurant slots")
	}
	if len(save.Restaurants.Bars) == 0 {
		bad("no restaurants")
	}

	bars := make(map[string]bool, len(save.Restaurants.Bars))
	for _, b := range save.Restaurants.Bars {
		switch {
		case b.ID == "":
			bad("restaurant without id")
		case bars[b.ID]:
			bad("duplicate restaurant %s", b.ID)
		}
		bars[b.ID] = true
	}

	indexes := make(map[int]bool, len(save.Restaurants.Slots))
	occupied := make(map[string]int, len(save.Restaurants.Slots))
	for _, s := range save.Restaurants.Slots {
		if s.Index < 1 || indexes[s.Index] {
			bad("invalid or duplicate slot index %d", s.Index)
		}
		indexes[s.Index] = true
		switch {
		case s.Purchased && s.BarID == "":
			bad("slot %d is purchased but holds no restaurant", s.Index)
		case !s.Purchased && s.BarID != "":
			bad("slot %d is not purchased but holds %s", s.Index, s.BarID)
		case s.Purchased && !bars[s.BarID]:
			bad("slot %d holds unknown restaurant %s", s.Index, s.BarID)
		case s.Purchased:
			if prev, dup := occupied[s.BarID]; dup {
				bad("restaurant %s occupies slots %d and %d", s.BarID, prev, s.Index)
			}
			occupied[s.BarID] = s.Index
		}
	}
	for id := range bars {
		if _, ok := occupied[id]; !ok && id != "" {
			bad("restaurant %s occupies no slot", id)
		}
	}

	employees := make(map[string]string, len(save.Employees))
	for _, e := range save.Employees {
		if e.ID == "" {
			bad("employee without id")
			continue
		}
		if _, dup := employees[e.ID]; dup {
			bad("duplicate employee %s", e.ID)
		}
		employees[e.ID] = e.AssignedTo
	}

	listedAt := make(map[string]string, len(save.Employees))
	for _, b := range save.Restaurants.Bars {
		if len(b.StaffIDs) > b.StaffSlots {
			bad("restaurant %s has %d staff for %d slots", b.ID, len(b.StaffIDs), b.StaffSlots)
		}
		for _, id := range b.StaffIDs {
			if prev, dup := listedAt[id]; dup {
				bad("employee %s is listed at %s and %s", id, prev, b.ID)
				continue
			}
			listedAt[id] = b.ID
			assigned, ok := employees[id]
			switch {
			case !ok:
				bad("restaurant %s lists unknown employee %s", b.ID, id)
			case assigned != b.ID:
				bad("employee %s is listed at %s but assigned to %q", id, b.ID, assigned)
			}
		}
	}
	for _, e := range save.Employees {
		if e.Assigned() && listedAt[e.ID] != e.AssignedTo {
			bad("employee %s is assigned to %s but not on its staff list", e.ID, e.AssignedTo)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInconsistentSave, errors.Join(problems...))
}
