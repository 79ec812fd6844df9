package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Schema defaults applied when a persisted document omits a field.
const (
	DefaultStaffSlots  = 3
	DefaultMaxLevel    = 20
	DefaultLevel       = 1
	DefaultRank        = 200
	DefaultPeriod      = 1
	DefaultMusicVolume = 0.7
	DefaultSFXVolume   = 0.8
	DefaultTextSpeed   = "normal"
)

// DefaultSettings returns the settings block of a fresh save.
func DefaultSettings() Settings {
	return Settings{
		MusicVolume: DefaultMusicVolume,
		SFXVolume:   DefaultSFXVolume,
		TextSpeed:   DefaultTextSpeed,
		AutoSave:    true,
	}
}

// The document types mirror GameSave with pointers wherever the default is
// not the zero value, so absence can be told apart from an explicit zero.

type barDocument struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Concept         string     `json:"concept"`
	SalesVolume     int        `json:"sales_volume"`
	Caps            StatBlock  `json:"caps"`
	Levels          *StatBlock `json:"levels"`
	MaxLevel        *int       `json:"max_level"`
	StaffCost       int        `json:"staff_cost"`
	MaintenanceCost int        `json:"maintenance_cost"`
	StaffIDs        []string   `json:"staff_ids"`
	StaffSlots      *int       `json:"staff_slots"`
}

type employeeDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rarity     Rarity    `json:"rarity"`
	Level      *int      `json:"level"`
	Stats      StatBlock `json:"stats"`
	Salary     int       `json:"salary"`
	AssignedTo string    `json:"assigned_to"`
}

type progressionDocument struct {
	Period        *int        `json:"period"`
	Rank          *int        `json:"rank"`
	RankHistory   []RankEntry `json:"rank_history"`
	ReviewsPassed int         `json:"reviews_passed"`
	ReviewsFailed int         `json:"reviews_failed"`
}

type settingsDocument struct {
	MusicVolume *float64 `json:"music_volume"`
	SFXVolume   *float64 `json:"sfx_volume"`
	TextSpeed   *string  `json:"text_speed"`
	AutoSave    *bool    `json:"auto_save"`
}

type saveDocument struct {
	CreatedAt   time.Time           `json:"created_at"`
	LastSavedAt time.Time           `json:"last_saved_at"`
	Player      string              `json:"player"`
	Progression progressionDocument `json:"progression"`
	Finance     Finance             `json:"finance"`
	Condition   Condition           `json:"condition"`
	Restaurants struct {
		Slots []RestaurantSlot `json:"slots"`
		Bars  []barDocument    `json:"bars"`
	} `json:"restaurants"`
	Employees []employeeDocument `json:"employees"`
	Settings  settingsDocument   `json:"settings"`
}

var (
	// ErrEmptyDocument is returned when decoding zero bytes.
	ErrEmptyDocument = errors.New("empty save document")
	// ErrNotObject is returned for well-formed JSON that is not an object,
	// such as null.
	ErrNotObject = errors.New("save document is not a JSON object")
)

// DecodeSave parses a persisted document and hydrates every default in one
// step. The returned save is fully populated; consumers never need their own
// fallbacks. A document that decodes but fails Validate is rejected. Any
// error yields a zero GameSave.
func DecodeSave(data []byte) (GameSave, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return GameSave{}, ErrEmptyDocument
	}
	if trimmed[0] != '{' {
		return GameSave{}, ErrNotObject
	}
	var doc saveDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return GameSave{}, fmt.Errorf("decode save: %w", err)
	}
	save := doc.hydrate()
	if err := Validate(save); err != nil {
		return GameSave{}, fmt.Errorf("decode save: %w", err)
	}
	return save, nil
}

// EncodeSave serializes the save as the canonical JSON document.
func EncodeSave(save GameSave) ([]byte, error) {
	data, err := json.Marshal(save)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

func (d saveDocument) hydrate() GameSave {
	out := GameSave{
		CreatedAt:   d.CreatedAt,
		LastSavedAt: d.LastSavedAt,
		Player:      d.Player,
		Progression: Progression{
			Period:        intOr(d.Progression.Period, DefaultPeriod),
			Rank:          intOr(d.Progression.Rank, DefaultRank),
			RankHistory:   nonNil(d.Progression.RankHistory),
			ReviewsPassed: d.Progression.ReviewsPassed,
			ReviewsFailed: d.Progression.ReviewsFailed,
		},
		Finance:   d.Finance,
		Condition: d.Condition,
		Settings:  d.Settings.hydrate(),
	}
	out.Restaurants.Slots = nonNil(d.Restaurants.Slots)
	out.Restaurants.Bars = make([]RestaurantBar, 0, len(d.Restaurants.Bars))
	for _, b := range d.Restaurants.Bars {
		out.Restaurants.Bars = append(out.Restaurants.Bars, b.hydrate())
	}
	out.Employees = make([]Employee, 0, len(d.Employees))
	for _, e := range d.Employees {
		out.Employees = append(out.Employees, Employee{
			ID:         e.ID,
			Name:       e.Name,
			Rarity:     rarityOr(e.Rarity),
			Level:      intOr(e.Level, DefaultLevel),
			Stats:      e.Stats,
			Salary:     e.Salary,
			AssignedTo: e.AssignedTo,
		})
	}
	return out
}

func (b barDocument) hydrate() RestaurantBar {
	levels := StatBlock{Cuisine: DefaultLevel, Service: DefaultLevel, Ambiance: DefaultLevel}
	if b.Levels != nil {
		levels = *b.Levels
		for _, c := range Categories {
			if levels.Get(c) < DefaultLevel {
				levels.Set(c, DefaultLevel)
			}
		}
	}
	return RestaurantBar{
		ID:              b.ID,
		Name:            b.Name,
		Concept:         b.Concept,
		SalesVolume:     b.SalesVolume,
		Caps:            b.Caps,
		Levels:          levels,
		MaxLevel:        intOr(b.MaxLevel, DefaultMaxLevel),
		StaffCost:       b.StaffCost,
		MaintenanceCost: b.MaintenanceCost,
		StaffIDs:        nonNil(b.StaffIDs),
		StaffSlots:      intOr(b.StaffSlots, DefaultStaffSlots),
	}
}

func (s settingsDocument) hydrate() Settings {
	def := DefaultSettings()
	if s.MusicVolume != nil {
		def.MusicVolume = *s.MusicVolume
	}
	if s.SFXVolume != nil {
		def.SFXVolume = *s.SFXVolume
	}
	if s.TextSpeed != nil && *s.TextSpeed != "" {
		def.TextSpeed = *s.TextSpeed
	}
	if s.AutoSave != nil {
		def.AutoSave = *s.AutoSave
	}
	return def
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func rarityOr(r Rarity) Rarity {
	if r == "" {
		return RarityCommon
	}
	return r
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
