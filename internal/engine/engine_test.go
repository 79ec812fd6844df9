package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tycooncore/internal/infra/kv/memory"
	"tycooncore/internal/notify"
	"tycooncore/internal/savestore"
	"tycooncore/pkg/domain"
)

// Ids handed out by the sequential generator to a fresh game.
const (
	starterBar = "id-1"
	marta      = "id-2"
	leo        = "id-3"
)

// flakyKV fails writes on demand.
type flakyKV struct {
	*memory.Store
	mu      sync.Mutex
	failPut error
}

func (f *flakyKV) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.failPut
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Put(ctx, key, value)
}

func (f *flakyKV) failWrites(err error) {
	f.mu.Lock()
	f.failPut = err
	f.mu.Unlock()
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d:" + msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i:" + msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w:" + msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e:" + msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

type harness struct {
	svc   *Service
	store *savestore.Store
	kv    *flakyKV
	log   *captureLogger
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	kv := &flakyKV{Store: memory.NewStore(0)}
	clock := savestore.ClockFunc(func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) })
	store := savestore.New(kv, savestore.WithIDGenerator(sequentialIDs()), savestore.WithClock(clock))
	log := &captureLogger{}
	svc, err := New(store, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	_, err = svc.NewGame(context.Background(), "Ana")
	require.NoError(t, err)
	return &harness{svc: svc, store: store, kv: kv, log: log}
}

// seed rewrites the persisted save and reloads it into the service.
func (h *harness) seed(t *testing.T, mutate func(*domain.GameSave)) {
	t.Helper()
	ctx := context.Background()
	save, ok := h.svc.Save()
	require.True(t, ok)
	mutate(&save)
	require.NoError(t, h.store.Persist(ctx, save))
	_, ok = h.svc.Load(ctx)
	require.True(t, ok)
}

func (h *harness) save(t *testing.T) domain.GameSave {
	t.Helper()
	save, ok := h.svc.Save()
	require.True(t, ok)
	return save
}

// openSecondBar lifts the rank to allow two restaurants and buys slot 2.
func (h *harness) openSecondBar(t *testing.T) string {
	t.Helper()
	h.seed(t, func(g *domain.GameSave) {
		g.Progression.Rank = 175
		g.Finance.Funds = 10000
	})
	bar, err := h.svc.BuySlot(context.Background(), 2)
	require.NoError(t, err)
	return bar.ID
}

func requireReason(t *testing.T, err error, reason domain.ValidationReason) {
	t.Helper()
	require.Error(t, err)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %T: %v", err, err)
	assert.Equal(t, reason, ve.Reason)
}

// assertStaffInvariants checks exclusivity, agreement and capacity.
func assertStaffInvariants(t *testing.T, save domain.GameSave) {
	t.Helper()
	seen := map[string]string{}
	for _, bar := range save.Restaurants.Bars {
		assert.LessOrEqual(t, len(bar.StaffIDs), bar.StaffSlots, "bar %s over capacity", bar.ID)
		for _, id := range bar.StaffIDs {
			prev, dup := seen[id]
			assert.False(t, dup, "employee %s listed at %s and %s", id, prev, bar.ID)
			seen[id] = bar.ID
		}
	}
	for _, e := range save.Employees {
		assert.Equal(t, e.AssignedTo, seen[e.ID], "employee %s assignment disagrees with staff lists", e.ID)
	}
}

func TestNewGamePersistsStarterSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	save := h.save(t)
	assert.Equal(t, "Ana", save.Player)
	require.Len(t, save.Restaurants.Bars, 1)
	assert.Equal(t, starterBar, save.Restaurants.Bars[0].ID)
	assert.ElementsMatch(t, []string{marta, leo}, save.Restaurants.Bars[0].StaffIDs)
	assert.True(t, h.svc.Exists(ctx))

	persisted, ok := h.store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, save, persisted)

	_, err := h.svc.NewGame(ctx, "   ")
	requireReason(t, err, domain.ReasonInvalidInput)
}

func TestOperationsRequireActiveSave(t *testing.T) {
	store := savestore.New(memory.NewStore(0))
	svc, err := New(store)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Assign(ctx, marta, starterBar)
	assert.ErrorIs(t, err, domain.ErrNoActiveSave)
	_, err = svc.AdvancePeriod(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActiveSave)
	_, err = svc.Report()
	assert.ErrorIs(t, err, domain.ErrNoActiveSave)
	_, ok := svc.Load(ctx)
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx))
}

func TestLoadDiscardsCorruptSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.kv.Store.Put(ctx, h.store.Key(), []byte(`{"restaurants":`)))

	_, ok := h.svc.Load(ctx)
	assert.False(t, ok)
	assert.True(t, h.log.has("w:discarding unreadable save"))
	// The previously active save is kept.
	_, active := h.svc.Save()
	assert.True(t, active)
}

func TestLoadRejectsNullAndInconsistentSaves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.kv.Store.Put(ctx, h.store.Key(), []byte("null")))
	_, ok := h.svc.Load(ctx)
	assert.False(t, ok, "a null document is not a save")

	broken := h.save(t)
	emp, _ := broken.FindEmployee(leo)
	emp.AssignedTo = "ghost"
	require.NoError(t, h.store.Persist(ctx, broken))
	_, ok = h.svc.Load(ctx)
	assert.False(t, ok, "staff lists disagreeing with assignments must not load")
	_, ok = h.store.Load(ctx)
	assert.False(t, ok)

	// The active save is untouched and still accepts mutations.
	save := h.save(t)
	e, _ := save.FindEmployee(leo)
	assert.Equal(t, starterBar, e.AssignedTo)
	_, err := h.svc.AdvancePeriod(ctx)
	require.NoError(t, err)
}

func TestResetDropsActiveSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.svc.Reset(ctx))
	assert.False(t, h.svc.Exists(ctx))
	_, ok := h.svc.Save()
	assert.False(t, ok)
}

func TestPersistenceFailureKeepsMutation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.kv.failWrites(fmt.Errorf("disk full: %w", domain.ErrQuotaExceeded))

	err := h.svc.Unassign(ctx, marta)
	var pe *domain.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Quota)

	save := h.save(t)
	emp, _ := save.FindEmployee(marta)
	assert.False(t, emp.Assigned(), "in-memory mutation must stand")
	assert.True(t, h.log.has("e:save not persisted"))

	h.kv.failWrites(nil)
	require.NoError(t, h.svc.Persist(ctx))
	persisted, ok := h.store.Load(ctx)
	require.True(t, ok)
	e, _ := persisted.FindEmployee(marta)
	assert.False(t, e.Assigned())
}

func TestBackupAndRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	key, err := h.svc.Backup(ctx)
	require.NoError(t, err)
	_, err = h.svc.AdvancePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.save(t).Progression.Period)

	keys, err := h.svc.Backups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	var funds []notify.FundsChanged
	unsub := notify.On(h.svc.Notifier(), func(e notify.FundsChanged) { funds = append(funds, e) })
	defer unsub()

	restored, err := h.svc.RestoreBackup(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Progression.Period)
	assert.Equal(t, 1, h.save(t).Progression.Period)
	require.Len(t, funds, 1)
	assert.Equal(t, "restored", funds[0].Reason)
}

func TestUpdateSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vol, speed, auto := 0.25, "fast", false

	st, err := h.svc.UpdateSettings(ctx, SettingsPatch{MusicVolume: &vol, TextSpeed: &speed, AutoSave: &auto})
	require.NoError(t, err)
	assert.Equal(t, 0.25, st.MusicVolume)
	assert.Equal(t, domain.DefaultSFXVolume, st.SFXVolume)
	assert.Equal(t, "fast", st.TextSpeed)
	assert.False(t, st.AutoSave)

	loud := 1.5
	_, err = h.svc.UpdateSettings(ctx, SettingsPatch{SFXVolume: &loud})
	requireReason(t, err, domain.ReasonInvalidInput)
	bogus := "ludicrous"
	_, err = h.svc.UpdateSettings(ctx, SettingsPatch{TextSpeed: &bogus})
	requireReason(t, err, domain.ReasonInvalidInput)
	assert.Equal(t, "fast", h.save(t).Settings.TextSpeed)
}

func TestQueriesDelegateToModels(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 1, h.svc.SlotsForRank(200))
	assert.Equal(t, 2, h.svc.SlotsForRank(175))
	assert.Equal(t, 5, h.svc.SlotsForRank(50))
	next, ok := h.svc.NextUnlockRank(200)
	assert.True(t, ok)
	assert.Equal(t, 180, next)
	_, ok = h.svc.NextUnlockRank(50)
	assert.False(t, ok)
	assert.Equal(t, 500, h.svc.CostForLevel(5))
	assert.Equal(t, 1000, h.svc.CostForLevel(6))
	assert.Equal(t, 5, h.svc.CapIncrease())
	assert.True(t, h.svc.IsMaxLevel(20, 20))
	assert.Len(t, h.svc.RankTiers(), 5)
	assert.Equal(t, []string{"staff_capacity", "assignment_agreement", "minimum_staff", "staff_cost"}, h.svc.Rules())
}
