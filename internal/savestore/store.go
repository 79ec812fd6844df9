// Package savestore owns the lifecycle of the persisted game save: creating
// fresh saves, reading and writing the primary document, backups and
// off-site archive snapshots.
package savestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tycooncore/internal/archive"
	"tycooncore/internal/config"
	"tycooncore/pkg/domain"
)

// BackupPrefix prefixes every backup key.
const BackupPrefix = "backup_"

var (
	// ErrArchiveDisabled is returned by Archive when no archive store is
	// configured.
	ErrArchiveDisabled = errors.New("archive disabled")
	// ErrNotBackup is returned when a restore names a key outside the backup
	// namespace.
	ErrNotBackup = errors.New("not a backup key")
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Store reads and writes saves through a KV backend.
type Store struct {
	kv      domain.KVStore
	key     string
	balance config.Balance
	archive archive.Store
	clock   Clock
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the primary save key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithBalance sets the tuning used by CreateNew.
func WithBalance(b config.Balance) Option {
	return func(s *Store) { s.balance = b }
}

// WithArchive enables Archive.
func WithArchive(a archive.Store) Option {
	return func(s *Store) { s.archive = a }
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDGenerator overrides the id source used for new restaurants and
// employees.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New returns a Store writing through backend.
func New(backend domain.KVStore, opts ...Option) *Store {
	s := &Store{
		kv:      backend,
		key:     config.DefaultSaveKey,
		balance: config.DefaultBalance(),
		clock:   ClockFunc(time.Now),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the primary save key.
func (s *Store) Key() string { return s.key }

// Balance returns the tuning in use.
func (s *Store) Balance() config.Balance { return s.balance }

// NewID returns a fresh entity id.
func (s *Store) NewID() string { return s.newID() }

// Now returns the store's current time in UTC.
func (s *Store) Now() time.Time { return s.clock.Now().UTC() }

// CreateNew builds a fresh save for playerName: the first catalog restaurant
// in slot 1, every starter employee assigned to it, starting funds and rank,
// and default settings. It does not persist.
func (s *Store) CreateNew(playerName string) domain.GameSave {
	now := s.Now()
	b := s.balance
	save := domain.GameSave{
		CreatedAt:   now,
		LastSavedAt: now,
		Player:      strings.TrimSpace(playerName),
		Progression: domain.Progression{
			Period:      domain.DefaultPeriod,
			Rank:        b.StartingRank,
			RankHistory: []domain.RankEntry{},
		},
		Finance:   domain.Finance{Funds: b.StartingFunds},
		Employees: []domain.Employee{},
		Settings:  domain.DefaultSettings(),
	}

	bar := BarFromTemplate(s.newID(), b.Catalog[0])
	for _, tpl := range b.StarterStaff {
		e := EmployeeFromTemplate(s.newID(), tpl)
		e.AssignedTo = bar.ID
		bar.StaffIDs = append(bar.StaffIDs, e.ID)
		bar.StaffCost += e.Salary
		save.Employees = append(save.Employees, e)
	}
	save.Restaurants.Bars = []domain.RestaurantBar{bar}
	save.Restaurants.Slots = make([]domain.RestaurantSlot, len(b.Catalog))
	for i := range save.Restaurants.Slots {
		save.Restaurants.Slots[i] = domain.RestaurantSlot{Index: i + 1}
	}
	save.Restaurants.Slots[0].Purchased = true
	save.Restaurants.Slots[0].BarID = bar.ID
	return save
}

// BarFromTemplate instantiates a catalog restaurant with no staff.
func BarFromTemplate(id string, tpl config.RestaurantTemplate) domain.RestaurantBar {
	return domain.RestaurantBar{
		ID:              id,
		Name:            tpl.Name,
		Concept:         tpl.Concept,
		SalesVolume:     tpl.SalesVolume,
		Caps:            tpl.Caps,
		Levels:          domain.StatBlock{Cuisine: domain.DefaultLevel, Service: domain.DefaultLevel, Ambiance: domain.DefaultLevel},
		MaxLevel:        tpl.MaxLevel,
		MaintenanceCost: tpl.MaintenanceCost,
		StaffIDs:        []string{},
		StaffSlots:      tpl.StaffSlots,
	}
}

// EmployeeFromTemplate instantiates an unassigned employee.
func EmployeeFromTemplate(id string, tpl config.EmployeeTemplate) domain.Employee {
	return domain.Employee{
		ID:     id,
		Name:   tpl.Name,
		Rarity: tpl.Rarity,
		Level:  tpl.Level,
		Stats:  tpl.Stats,
		Salary: tpl.Salary,
	}
}

func persistErr(op string, err error) error {
	return &domain.PersistenceError{Op: op, Quota: errors.Is(err, domain.ErrQuotaExceeded), Err: err}
}

// Persist writes the whole save under the primary key. The save is not
// modified; callers stamp LastSavedAt beforehand.
func (s *Store) Persist(ctx context.Context, save domain.GameSave) error {
	data, err := domain.EncodeSave(save)
	if err != nil {
		return persistErr("encode", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return persistErr("write", err)
	}
	return nil
}

// LoadErr reads the primary document and reports why it could not be used.
// A missing key yields domain.ErrNoActiveSave.
func (s *Store) LoadErr(ctx context.Context) (domain.GameSave, error) {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return domain.GameSave{}, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok {
		return domain.GameSave{}, domain.ErrNoActiveSave
	}
	save, err := domain.DecodeSave(data)
	if err != nil {
		return domain.GameSave{}, err
	}
	return save, nil
}

// Load returns the hydrated save, or false when it is missing or unreadable.
// A partially populated save is never returned.
func (s *Store) Load(ctx context.Context) (domain.GameSave, bool) {
	save, err := s.LoadErr(ctx)
	if err != nil {
		return domain.GameSave{}, false
	}
	return save, true
}

// Exists reports whether a primary document is present.
func (s *Store) Exists(ctx context.Context) bool {
	_, ok, err := s.kv.Get(ctx, s.key)
	return err == nil && ok
}

// Reset deletes the primary document. Backups are kept.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return persistErr("reset", err)
	}
	return nil
}

// Backup copies the primary document to backup_<unix-nanos> and returns the
// new key.
func (s *Store) Backup(ctx context.Context) (string, error) {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok {
		return "", domain.ErrNoActiveSave
	}
	key := fmt.Sprintf("%s%d", BackupPrefix, s.clock.Now().UnixNano())
	if err := s.kv.Put(ctx, key, data); err != nil {
		return "", persistErr("backup", err)
	}
	return key, nil
}

// ListBackups returns backup keys, oldest first.
func (s *Store) ListBackups(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, BackupPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys, nil
}

// RestoreBackup overwrites the primary document with the named backup and
// returns the restored save. Corrupt backups are rejected without touching
// the primary document.
func (s *Store) RestoreBackup(ctx context.Context, key string) (domain.GameSave, error) {
	if !strings.HasPrefix(key, BackupPrefix) {
		return domain.GameSave{}, fmt.Errorf("%s: %w", key, ErrNotBackup)
	}
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return domain.GameSave{}, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return domain.GameSave{}, fmt.Errorf("backup %s not found", key)
	}
	save, err := domain.DecodeSave(data)
	if err != nil {
		return domain.GameSave{}, fmt.Errorf("backup %s: %w", key, err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return domain.GameSave{}, persistErr("restore", err)
	}
	return save, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ArchivePrefix returns the archive key prefix for player.
func ArchivePrefix(player string) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(player), "-"), "-")
	if slug == "" {
		slug = "anonymous"
	}
	return "saves/" + slug + "/"
}

// Archive exports save to the configured archive store under
// saves/<player>/<unix-nanos>.json.
func (s *Store) Archive(ctx context.Context, save domain.GameSave) (archive.Info, error) {
	if s.archive == nil {
		return archive.Info{}, ErrArchiveDisabled
	}
	data, err := domain.EncodeSave(save)
	if err != nil {
		return archive.Info{}, err
	}
	key := fmt.Sprintf("%s%d.json", ArchivePrefix(save.Player), s.clock.Now().UnixNano())
	info, err := s.archive.Put(ctx, key, bytes.NewReader(data), archive.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"player": save.Player,
			"period": fmt.Sprintf("%d", save.Progression.Period),
		},
	})
	if err != nil {
		return archive.Info{}, fmt.Errorf("archive %s: %w", key, err)
	}
	return info, nil
}

// Archived lists the archive snapshots for player.
func (s *Store) Archived(ctx context.Context, player string) ([]archive.Info, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.List(ctx, ArchivePrefix(player))
}
