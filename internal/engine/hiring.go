package engine

import (
	"context"

	"tycooncore/internal/config"
	"tycooncore/internal/notify"
	"tycooncore/internal/savestore"
	"tycooncore/pkg/domain"
)

// Candidates returns the hiring pool minus anyone already on the payroll.
// Hired candidates keep their candidate id as employee id.
func (s *Service) Candidates() ([]config.EmployeeTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	save, err := s.active()
	if err != nil {
		return nil, err
	}
	out := make([]config.EmployeeTemplate, 0, len(s.balance.Candidates))
	for _, c := range s.balance.Candidates {
		if _, hired := save.FindEmployee(c.ID); !hired {
			out = append(out, c)
		}
	}
	return out, nil
}

// Hire pays the hiring fee and adds a candidate to the payroll. When barID is
// set the new employee is assigned there straight away.
func (s *Service) Hire(ctx context.Context, candidateID, barID string) (domain.Employee, error) {
	var hired domain.Employee
	err := s.run(ctx, "hire", candidateID, func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		tpl, ok := s.balance.Candidate(candidateID)
		if !ok {
			return nil, &domain.IntegrityError{Entity: domain.EntityCandidate, ID: candidateID}
		}
		if _, dup := save.FindEmployee(candidateID); dup {
			return nil, domain.Validationf(domain.ReasonInvalidInput, "%s is already employed", tpl.Name)
		}
		if barID != "" {
			bar, ok := save.FindBar(barID)
			if !ok {
				return nil, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: barID}
			}
			if bar.Full() {
				return nil, domain.Validationf(domain.ReasonCapacityExceeded, "%s already has %d of %d staff", bar.Name, len(bar.StaffIDs), bar.StaffSlots)
			}
		}
		if save.Finance.Funds < s.balance.HireFee {
			return nil, domain.Validationf(domain.ReasonInsufficientFunds, "hiring costs %d, funds are %d", s.balance.HireFee, save.Finance.Funds)
		}
		events, err := s.commit(ctx, func(tx *txn) error {
			tx.save.Employees = append(tx.save.Employees, savestore.EmployeeFromTemplate(tpl.ID, tpl))
			emp, err := tx.employee(tpl.ID)
			if err != nil {
				return err
			}
			tx.adjustFunds(-s.balance.HireFee, actionHire)
			tx.record(domain.EntityEmployee, emp.ID, actionHire)
			if barID != "" {
				bar, err := tx.bar(barID)
				if err != nil {
					return err
				}
				tx.attach(emp, bar)
			}
			tx.emit(notify.AssignmentChanged{BarID: barID, EmployeeID: emp.ID, Action: notify.ActionHired})
			hired = *emp
			return nil
		})
		if !committed(err) {
			hired = domain.Employee{}
		}
		return events, err
	})
	return hired, err
}

// Fire removes an employee from the payroll. Firing the last employee of a
// restaurant is rejected.
func (s *Service) Fire(ctx context.Context, employeeID string) error {
	return s.run(ctx, "fire", employeeID, func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		emp, ok := save.FindEmployee(employeeID)
		if !ok {
			return nil, &domain.IntegrityError{Entity: domain.EntityEmployee, ID: employeeID}
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
			kept := tx.save.Employees[:0]
			for _, other := range tx.save.Employees {
				if other.ID != employeeID {
					kept = append(kept, other)
				}
			}
			tx.save.Employees = kept
			tx.record(domain.EntityEmployee, employeeID, actionFire)
			tx.emit(notify.AssignmentChanged{BarID: from, EmployeeID: employeeID, Action: notify.ActionFired})
			return nil
		})
		if committed(err) {
			s.dropMovesOf(employeeID)
		}
		return events, err
	})
}
