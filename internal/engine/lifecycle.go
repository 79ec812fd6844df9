package engine

import (
	"context"
	"errors"
	"strings"

	"tycooncore/internal/archive"
	"tycooncore/internal/notify"
	"tycooncore/pkg/domain"
)

// Text speeds accepted by UpdateSettings.
var textSpeeds = map[string]bool{"slow": true, "normal": true, "fast": true}

// NewGame replaces the active save with a fresh one for player and persists
// it. Pending confirmations are discarded.
func (s *Service) NewGame(ctx context.Context, player string) (domain.GameSave, error) {
	var created domain.GameSave
	err := s.run(ctx, "new_game", player, func(ctx context.Context) ([]notify.Event, error) {
		if strings.TrimSpace(player) == "" {
			return nil, domain.Validationf(domain.ReasonInvalidInput, "player name is required")
		}
		save := s.store.CreateNew(player)
		s.save = &save
		s.clearPending()
		created = save.Clone()
		events := []notify.Event{notify.FundsChanged{Funds: save.Finance.Funds, Delta: save.Finance.Funds, Reason: "new_game"}}
		if err := s.store.Persist(ctx, save); err != nil {
			return events, err
		}
		return events, nil
	})
	return created, err
}

// Load makes the persisted save active. It reports false when no save exists
// or the document is unreadable; the active save is then left unchanged.
func (s *Service) Load(ctx context.Context) (domain.GameSave, bool) {
	var (
		loaded domain.GameSave
		ok     bool
	)
	_ = s.run(ctx, "load", s.store.Key(), func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.store.LoadErr(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNoActiveSave) {
				s.logger.Warn("discarding unreadable save", "key", s.store.Key(), "error", err)
			}
			return nil, nil
		}
		s.save = &save
		s.clearPending()
		loaded, ok = save.Clone(), true
		return nil, nil
	})
	return loaded, ok
}

// Persist writes the active save.
func (s *Service) Persist(ctx context.Context) error {
	return s.run(ctx, "persist", s.store.Key(), func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		save.LastSavedAt = s.now()
		return nil, s.store.Persist(ctx, *save)
	})
}

// Reset deletes the persisted save and drops the active one.
func (s *Service) Reset(ctx context.Context) error {
	return s.run(ctx, "reset", s.store.Key(), func(ctx context.Context) ([]notify.Event, error) {
		if err := s.store.Reset(ctx); err != nil {
			return nil, err
		}
		s.save = nil
		s.clearPending()
		return nil, nil
	})
}

// Exists reports whether a persisted save is available to continue.
func (s *Service) Exists(ctx context.Context) bool { return s.store.Exists(ctx) }

// Backup copies the persisted save to a new backup key.
func (s *Service) Backup(ctx context.Context) (string, error) {
	var key string
	err := s.run(ctx, "backup", s.store.Key(), func(ctx context.Context) ([]notify.Event, error) {
		var err error
		key, err = s.store.Backup(ctx)
		return nil, err
	})
	return key, err
}

// Backups lists backup keys, oldest first.
func (s *Service) Backups(ctx context.Context) ([]string, error) {
	return s.store.ListBackups(ctx)
}

// RestoreBackup overwrites the persisted save with a backup and makes it
// active.
func (s *Service) RestoreBackup(ctx context.Context, key string) (domain.GameSave, error) {
	var restored domain.GameSave
	err := s.run(ctx, "restore_backup", key, func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.store.RestoreBackup(ctx, key)
		if err != nil {
			return nil, err
		}
		s.save = &save
		s.clearPending()
		restored = save.Clone()
		return []notify.Event{notify.FundsChanged{Funds: save.Finance.Funds, Reason: actionRestored}}, nil
	})
	return restored, err
}

// Archive exports the active save to the snapshot archive.
func (s *Service) Archive(ctx context.Context) (archive.Info, error) {
	var info archive.Info
	err := s.run(ctx, "archive", s.store.Key(), func(ctx context.Context) ([]notify.Event, error) {
		save, err := s.active()
		if err != nil {
			return nil, err
		}
		info, err = s.store.Archive(ctx, *save)
		return nil, err
	})
	return info, err
}

// Archived lists the archive snapshots of the active player.
func (s *Service) Archived(ctx context.Context) ([]archive.Info, error) {
	s.mu.Lock()
	save, err := s.active()
	var player string
	if err == nil {
		player = save.Player
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.store.Archived(ctx, player)
}

// SettingsPatch changes the fields that are set.
type SettingsPatch struct {
	MusicVolume *float64 `json:"music_volume,omitempty"`
	SFXVolume   *float64 `json:"sfx_volume,omitempty"`
	TextSpeed   *string  `json:"text_speed,omitempty"`
	AutoSave    *bool    `json:"auto_save,omitempty"`
}

// UpdateSettings applies patch to the player's settings.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (domain.Settings, error) {
	var updated domain.Settings
	err := s.run(ctx, "update_settings", "", func(ctx context.Context) ([]notify.Event, error) {
		for _, v := range []*float64{patch.MusicVolume, patch.SFXVolume} {
			if v != nil && (*v < 0 || *v > 1) {
				return nil, domain.Validationf(domain.ReasonInvalidInput, "volume %.2f outside 0..1", *v)
			}
		}
		if patch.TextSpeed != nil && !textSpeeds[*patch.TextSpeed] {
			return nil, domain.Validationf(domain.ReasonInvalidInput, "unknown text speed %q", *patch.TextSpeed)
		}
		events, err := s.commit(ctx, func(tx *txn) error {
			st := &tx.save.Settings
			if patch.MusicVolume != nil {
				st.MusicVolume = *patch.MusicVolume
			}
			if patch.SFXVolume != nil {
				st.SFXVolume = *patch.SFXVolume
			}
			if patch.TextSpeed != nil {
				st.TextSpeed = *patch.TextSpeed
			}
			if patch.AutoSave != nil {
				st.AutoSave = *patch.AutoSave
			}
			tx.record("settings", "", actionSettings)
			return nil
		})
		if s.save != nil {
			updated = s.save.Settings
		}
		return events, err
	})
	return updated, err
}

func (s *Service) clearPending() {
	s.pendingMove = nil
	s.pendingUpgrade = nil
}
