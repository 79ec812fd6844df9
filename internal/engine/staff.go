package engine

import (
	"context"

	"tycooncore/internal/economy"
	"tycooncore/internal/notify"
	"tycooncore/pkg/domain"
)

// PendingReassignment is a staged cross-restaurant move awaiting
// confirmation.
type PendingReassignment struct {
	EmployeeID string `json:"employee_id"`
	FromBarID  string `json:"from_bar_id"`
	ToBarID    string `json:"to_bar_id"`
}

// AssignStatus describes what Assign did.
type AssignStatus string

const (
	AssignApplied   AssignStatus = "applied"
	AssignPending   AssignStatus = "pending_confirmation"
	AssignUnchanged AssignStatus = "unchanged"
)

// AssignOutcome is the result of Assign. Pending is set when the move was
// staged.
type AssignOutcome struct {
	Status  AssignStatus         `json:"status"`
	Pending *PendingReassignment `json:"pending,omitempty"`
}

// Assign puts an employee on a restaurant's staff. An unassigned employee is
// assigned immediately. An employee working elsewhere is staged as a pending
// reassignment and nothing changes until ConfirmReassignment. Every
// successful call replaces the pending move: a staged call stages its own,
// an applied or unchanged one leaves none.
func (s *Service) Assign(ctx context.Context, employeeID, barID string) (AssignOutcome, error) {
	var out AssignOutcome
	err := s.run(ctx, "assign", employeeID, func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		emp, ok := save.FindEmployee(employeeID)
		if !ok {
			return nil, &domain.IntegrityError{Entity: domain.EntityEmployee, ID: employeeID}
		}
		bar, ok := save.FindBar(barID)
		if !ok {
			return nil, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: barID}
		}
		if emp.AssignedTo == barID {
			s.pendingMove = nil
			out = AssignOutcome{Status: AssignUnchanged}
			return nil, nil
		}
		if bar.Full() {
			return nil, domain.Validationf(domain.ReasonCapacityExceeded, "%s already has %d of %d staff", bar.Name, len(bar.StaffIDs), bar.StaffSlots)
		}
		if emp.Assigned() {
			pending := PendingReassignment{EmployeeID: emp.ID, FromBarID: emp.AssignedTo, ToBarID: barID}
			s.pendingMove = &pending
			out = AssignOutcome{Status: AssignPending, Pending: &pending}
			return nil, nil
		}
		events, err := s.commit(ctx, func(tx *txn) error {
			e, err := tx.employee(employeeID)
			if err != nil {
				return err
			}
			b, err := tx.bar(barID)
			if err != nil {
				return err
			}
			tx.attach(e, b)
			tx.emit(notify.AssignmentChanged{BarID: barID, EmployeeID: employeeID, Action: notify.ActionAssigned})
			return nil
		})
		if committed(err) {
			s.pendingMove = nil
			out = AssignOutcome{Status: AssignApplied}
		}
		return events, err
	})
	return out, err
}

// PendingMove returns the staged reassignment, if any.
func (s *Service) PendingMove() (PendingReassignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingMove == nil {
		return PendingReassignment{}, false
	}
	return *s.pendingMove, true
}

// ConfirmReassignment applies the staged move. The state machine returns to
// idle whether or not the move succeeds.
func (s *Service) ConfirmReassignment(ctx context.Context) (PendingReassignment, error) {
	var applied PendingReassignment
	err := s.run(ctx, "confirm_reassignment", "", func(ctx context.Context) ([]notify.Event, error) {
		if s.pendingMove == nil {
			return nil, domain.Validationf(domain.ReasonNothingPending, "no reassignment awaiting confirmation")
		}
		move := *s.pendingMove
		s.pendingMove = nil
		events, err := s.commit(ctx, func(tx *txn) error {
			emp, err := tx.employee(move.EmployeeID)
			if err != nil {
				return err
			}
			to, err := tx.bar(move.ToBarID)
			if err != nil {
				return err
			}
			if emp.AssignedTo != move.FromBarID {
				return domain.Validationf(domain.ReasonInvalidInput, "employee %s moved since the reassignment was requested", emp.ID)
			}
			if to.Full() {
				return domain.Validationf(domain.ReasonCapacityExceeded, "%s already has %d of %d staff", to.Name, len(to.StaffIDs), to.StaffSlots)
			}
			if from, ok := tx.save.FindBar(move.FromBarID); ok && len(from.StaffIDs) <= 1 {
				return domain.Validationf(domain.ReasonMinimumStaffViolation, "%s would be left without staff", from.Name)
			}
			if _, err := tx.detach(emp); err != nil {
				return err
			}
			tx.attach(emp, to)
			tx.emit(notify.AssignmentChanged{BarID: move.FromBarID, EmployeeID: emp.ID, Action: notify.ActionUnassigned})
			tx.emit(notify.AssignmentChanged{BarID: move.ToBarID, EmployeeID: emp.ID, Action: notify.ActionAssigned})
			return nil
		})
		if committed(err) {
			applied = move
		}
		return events, err
	})
	return applied, err
}

// CancelReassignment discards the staged move without touching the save.
func (s *Service) CancelReassignment() (PendingReassignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingMove == nil {
		return PendingReassignment{}, domain.Validationf(domain.ReasonNothingPending, "no reassignment awaiting confirmation")
	}
	move := *s.pendingMove
	s.pendingMove = nil
	return move, nil
}

// Unassign removes an employee from its restaurant. The last employee of a
// restaurant cannot be removed.
func (s *Service) Unassign(ctx context.Context, employeeID string) error {
	return s.run(ctx, "unassign", employeeID, func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		emp, ok := save.FindEmployee(employeeID)
		if !ok {
			return nil, &domain.IntegrityError{Entity: domain.EntityEmployee, ID: employeeID}
		}
		if !emp.Assigned() {
			return nil, domain.Validationf(domain.ReasonInvalidInput, "employee %s is not assigned", employeeID)
		}
		if bar, ok := save.FindBar(emp.AssignedTo); ok && len(bar.StaffIDs) <= 1 {
			return nil, domain.Validationf(domain.ReasonMinimumStaffViolation, "%s would be left without staff", bar.Name)
		}
		events, err := s.commit(ctx, func(tx *txn) error {
			e, err := tx.employee(employeeID)
			if err != nil {
				return err
			}
			from, err := tx.detach(e)
			if err != nil {
				return err
			}
			tx.emit(notify.AssignmentChanged{BarID: from, EmployeeID: employeeID, Action: notify.ActionUnassigned})
			return nil
		})
		if committed(err) {
			s.dropMovesOf(employeeID)
		}
		return events, err
	})
}

// dropMovesOf clears a staged move of employeeID. Callers hold s.mu.
func (s *Service) dropMovesOf(employeeID string) {
	if s.pendingMove != nil && s.pendingMove.EmployeeID == employeeID {
		s.pendingMove = nil
	}
}

// AggregateStat sums category across the restaurant's staff; an empty staff
// aggregates to zero.
func (s *Service) AggregateStat(barID string, category domain.Category) (int, error) {
	if !category.Valid() {
		return 0, domain.Validationf(domain.ReasonInvalidInput, "unknown category %q", category)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	save, err := s.active()
	if err != nil {
		return 0, err
	}
	if _, ok := save.FindBar(barID); !ok {
		return 0, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: barID}
	}
	return economy.AggregateStats(save.StaffOf(barID)).Get(category), nil
}

// ReassignmentPreview compares the profit statements of the affected
// restaurants before and after a move. From is empty for an unassigned
// employee.
type ReassignmentPreview struct {
	EmployeeID string                  `json:"employee_id"`
	FromBefore *economy.Breakdown      `json:"from_before,omitempty"`
	FromAfter  *economy.Breakdown      `json:"from_after,omitempty"`
	ToBefore   economy.Breakdown       `json:"to_before"`
	ToAfter    economy.Breakdown       `json:"to_after"`
	NetDelta   int                     `json:"net_delta"`
	Blocked    *domain.ValidationError `json:"blocked,omitempty"`
}

// PreviewReassignment recomputes both restaurants' statements from staff
// aggregates as if employeeID moved to barID. The save is not changed.
func (s *Service) PreviewReassignment(employeeID, barID string) (ReassignmentPreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	save, err := s.active()
	if err != nil {
		return ReassignmentPreview{}, err
	}
	emp, ok := save.FindEmployee(employeeID)
	if !ok {
		return ReassignmentPreview{}, &domain.IntegrityError{Entity: domain.EntityEmployee, ID: employeeID}
	}
	target, ok := save.FindBar(barID)
	if !ok {
		return ReassignmentPreview{}, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: barID}
	}

	preview := ReassignmentPreview{EmployeeID: employeeID}
	preview.ToBefore = economy.Analyze(*target, save.StaffOf(barID))
	if emp.AssignedTo == barID {
		preview.ToAfter = preview.ToBefore
		return preview, nil
	}
	if target.Full() {
		preview.Blocked = domain.Validationf(domain.ReasonCapacityExceeded, "%s is full", target.Name)
	}

	moved := *emp
	toStaff := append(save.StaffOf(barID), moved)
	toBar := *target
	toBar.StaffCost = economy.StaffCost(toStaff)
	preview.ToAfter = economy.Analyze(toBar, toStaff)
	preview.NetDelta = preview.ToAfter.NetProfit - preview.ToBefore.NetProfit

	if from, ok := save.FindBar(emp.AssignedTo); ok {
		before := economy.Analyze(*from, save.StaffOf(from.ID))
		var rest []domain.Employee
		for _, e := range save.StaffOf(from.ID) {
			if e.ID != employeeID {
				rest = append(rest, e)
			}
		}
		fromBar := *from
		fromBar.StaffCost = economy.StaffCost(rest)
		after := economy.Analyze(fromBar, rest)
		preview.FromBefore, preview.FromAfter = &before, &after
		preview.NetDelta += after.NetProfit - before.NetProfit
		if len(rest) == 0 && preview.Blocked == nil {
			preview.Blocked = domain.Validationf(domain.ReasonMinimumStaffViolation, "%s would be left without staff", from.Name)
		}
	}
	return preview, nil
}
