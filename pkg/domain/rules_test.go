package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn, Message: "soft"}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "hard"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	msg := RuleViolationError{Result: result}.Error()
	if !strings.Contains(msg, "hard") || strings.Contains(msg, "soft") {
		t.Fatalf("error should list blocking messages only: %q", msg)
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"first"})
	engine.Register(staticRule{"second"})
	if got := engine.Rules(); len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected rule order %v", got)
	}
	res, err := engine.Evaluate(context.Background(), saveView{}, []Change{{Entity: EntityRestaurant, EntityID: "b1", Action: "assign"}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected two violations, got %d", len(res.Violations))
	}
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	engine.Register(staticRule{"never"})
	res, err := engine.Evaluate(context.Background(), saveView{}, nil)
	if err == nil {
		t.Fatalf("expected evaluation error")
	}
	if len(res.Violations) != 0 {
		t.Fatalf("failed evaluation must not return partial results")
	}
}

func TestErrorTypes(t *testing.T) {
	wrapped := fmt.Errorf("assign: %w", Validationf(ReasonCapacityExceeded, "%d of %d", 3, 3))
	if !IsValidation(wrapped, ReasonCapacityExceeded) || !IsValidation(wrapped, "") {
		t.Fatalf("expected capacity validation")
	}
	if IsValidation(wrapped, ReasonSlotLocked) {
		t.Fatalf("reason must match")
	}
	if got := (&ValidationError{Reason: ReasonNothingPending}).Error(); got != "nothing_pending" {
		t.Fatalf("unexpected message %q", got)
	}

	perr := &PersistenceError{Op: "write", Quota: true, Err: fmt.Errorf("too big: %w", ErrQuotaExceeded)}
	if !errors.Is(perr, ErrQuotaExceeded) || !strings.Contains(perr.Error(), "quota") {
		t.Fatalf("unexpected persistence error %v", perr)
	}

	var ie *IntegrityError
	if !errors.As(fmt.Errorf("x: %w", &IntegrityError{Entity: EntityEmployee, ID: "e9"}), &ie) || ie.ID != "e9" {
		t.Fatalf("expected integrity error")
	}
}

func TestCheckQuota(t *testing.T) {
	if err := CheckQuota("k", 10, 0); err != nil {
		t.Fatalf("zero quota disables the check: %v", err)
	}
	if err := CheckQuota("k", 10, 10); err != nil {
		t.Fatalf("exact fit allowed: %v", err)
	}
	if err := CheckQuota("k", 11, 10); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type saveView struct{}

func (saveView) Save() GameSave { return GameSave{} }

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, fmt.Errorf("boom")
}
