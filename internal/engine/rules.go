package engine

import (
	"context"
	"fmt"

	"tycooncore/internal/economy"
	"tycooncore/pkg/domain"
)

// Change actions recorded by transactions.
const (
	actionAssign    = "assign"
	actionUnassign  = "unassign"
	actionHire      = "hire"
	actionFire      = "fire"
	actionUpgrade   = "upgrade"
	actionBuy       = "buy"
	actionSell      = "sell"
	actionAdvance   = "advance"
	actionSettings  = "settings"
	actionRestored  = "restored"
	actionStaffLeft = "staff_removed"
)

// DefaultRules returns the invariant checks every transaction must pass.
func DefaultRules() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(staffCapacityRule{})
	engine.Register(assignmentAgreementRule{})
	engine.Register(minimumStaffRule{})
	engine.Register(staffCostRule{})
	return engine
}

type staffCapacityRule struct{}

func (staffCapacityRule) Name() string { return "staff_capacity" }

func (r staffCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	save := view.Save()
	for _, bar := range save.Restaurants.Bars {
		if len(bar.StaffIDs) > bar.StaffSlots {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Reason:   domain.ReasonCapacityExceeded,
				Message:  fmt.Sprintf("restaurant %s has %d staff for %d slots", bar.ID, len(bar.StaffIDs), bar.StaffSlots),
				Entity:   domain.EntityRestaurant,
				EntityID: bar.ID,
			})
		}
	}
	return res, nil
}

// assignmentAgreementRule keeps each employee's AssignedTo and the staff
// lists consistent: one list per employee, and only when AssignedTo names it.
type assignmentAgreementRule struct{}

func (assignmentAgreementRule) Name() string { return "assignment_agreement" }

func (r assignmentAgreementRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	save := view.Save()
	block := func(entity domain.EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Reason:   domain.ReasonInvalidInput,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}

	listedAt := make(map[string]string, len(save.Employees))
	for _, bar := range save.Restaurants.Bars {
		for _, id := range bar.StaffIDs {
			if prev, dup := listedAt[id]; dup {
				block(domain.EntityEmployee, id, "employee %s is listed at %s and %s", id, prev, bar.ID)
				continue
			}
			listedAt[id] = bar.ID
			emp, ok := save.FindEmployee(id)
			if !ok {
				block(domain.EntityEmployee, id, "restaurant %s lists unknown employee %s", bar.ID, id)
				continue
			}
			if emp.AssignedTo != bar.ID {
				block(domain.EntityEmployee, id, "employee %s is listed at %s but assigned to %q", id, bar.ID, emp.AssignedTo)
			}
		}
	}
	for _, emp := range save.Employees {
		if emp.Assigned() && listedAt[emp.ID] != emp.AssignedTo {
			block(domain.EntityEmployee, emp.ID, "employee %s is assigned to %s but not on its staff list", emp.ID, emp.AssignedTo)
		}
	}
	return res, nil
}

// minimumStaffRule rejects any change that empties a restaurant's staff list.
type minimumStaffRule struct{}

func (minimumStaffRule) Name() string { return "minimum_staff" }

func (r minimumStaffRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	save := view.Save()
	for _, ch := range changes {
		if ch.Entity != domain.EntityRestaurant || ch.Action != actionStaffLeft {
			continue
		}
		bar, ok := save.FindBar(ch.EntityID)
		if !ok {
			continue
		}
		if len(bar.StaffIDs) == 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Reason:   domain.ReasonMinimumStaffViolation,
				Message:  fmt.Sprintf("restaurant %s would be left without staff", bar.ID),
				Entity:   domain.EntityRestaurant,
				EntityID: bar.ID,
			})
		}
	}
	return res, nil
}

// staffCostRule warns when a bar's cached staff cost drifts from its roster.
type staffCostRule struct{}

func (staffCostRule) Name() string { return "staff_cost" }

func (r staffCostRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	var res domain.Result
	save := view.Save()
	for _, bar := range save.Restaurants.Bars {
		want := economy.StaffCost(save.StaffOf(bar.ID))
		if bar.StaffCost != want {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("restaurant %s staff cost %d, roster salaries %d", bar.ID, bar.StaffCost, want),
				Entity:   domain.EntityRestaurant,
				EntityID: bar.ID,
			})
		}
	}
	return res, nil
}
