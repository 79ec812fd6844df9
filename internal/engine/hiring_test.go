package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tycooncore/internal/notify"
	"tycooncore/pkg/domain"
)

func TestHireAndFire(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var changes []notify.AssignmentChanged
	defer notify.On(h.svc.Notifier(), func(e notify.AssignmentChanged) { changes = append(changes, e) })()

	emp, err := h.svc.Hire(ctx, "cand-tomas", starterBar)
	require.NoError(t, err)
	assert.Equal(t, "cand-tomas", emp.ID)
	assert.Equal(t, domain.RarityRare, emp.Rarity)
	assert.Equal(t, starterBar, emp.AssignedTo)

	save := h.save(t)
	assert.Equal(t, 4800, save.Finance.Funds)
	bar, _ := save.FindBar(starterBar)
	assert.Equal(t, 120+110+220, bar.StaffCost)
	assertStaffInvariants(t, save)

	pool, err := h.svc.Candidates()
	require.NoError(t, err)
	for _, c := range pool {
		assert.NotEqual(t, "cand-tomas", c.ID)
	}
	_, err = h.svc.Hire(ctx, "cand-tomas", "")
	requireReason(t, err, domain.ReasonInvalidInput)

	require.NoError(t, h.svc.Fire(ctx, "cand-tomas"))
	save = h.save(t)
	_, still := save.FindEmployee("cand-tomas")
	assert.False(t, still)
	bar, _ = save.FindBar(starterBar)
	assert.Equal(t, 230, bar.StaffCost)

	require.Len(t, changes, 2)
	assert.Equal(t, notify.ActionHired, changes[0].Action)
	assert.Equal(t, notify.ActionFired, changes[1].Action)
}

func TestHireValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Hire(ctx, "cand-nobody", "")
	var ie *domain.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, domain.EntityCandidate, ie.Entity)

	h.seed(t, func(g *domain.GameSave) { g.Restaurants.Bars[0].StaffSlots = 2 })
	_, err = h.svc.Hire(ctx, "cand-ines", starterBar)
	requireReason(t, err, domain.ReasonCapacityExceeded)

	h.seed(t, func(g *domain.GameSave) { g.Finance.Funds = 199 })
	_, err = h.svc.Hire(ctx, "cand-ines", "")
	requireReason(t, err, domain.ReasonInsufficientFunds)
	assert.Len(t, h.save(t).Employees, 2)
}

func TestFireKeepsOneEmployee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	second := h.openSecondBar(t)

	_, err := h.svc.Assign(ctx, marta, second)
	require.NoError(t, err)
	require.NoError(t, h.svc.Fire(ctx, marta))
	_, pending := h.svc.PendingMove()
	assert.False(t, pending, "firing drops a staged move of the employee")

	err = h.svc.Fire(ctx, leo)
	requireReason(t, err, domain.ReasonMinimumStaffViolation)

	var ie *domain.IntegrityError
	require.True(t, errors.As(h.svc.Fire(ctx, marta), &ie))
}
