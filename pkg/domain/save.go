// Package domain defines the canonical game save schema and the rule, result
// and error types shared by the engine and its persistence layers.
package domain

import "time"

// Category identifies one of the three upgradeable restaurant capabilities.
type Category string

const (
	CategoryCuisine  Category = "cuisine"
	CategoryService  Category = "service"
	CategoryAmbiance Category = "ambiance"
)

// Categories lists every capability category in display order.
var Categories = []Category{CategoryCuisine, CategoryService, CategoryAmbiance}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCuisine, CategoryService, CategoryAmbiance:
		return true
	}
	return false
}

// Rarity is an employee's rarity tier.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// StatBlock holds one integer per capability category. It is used for
// employee stats, restaurant caps and per-category upgrade levels.
type StatBlock struct {
	Cuisine  int `json:"cuisine"`
	Service  int `json:"service"`
	Ambiance int `json:"ambiance"`
}

// Get returns the value for category c.
func (s StatBlock) Get(c Category) int {
	switch c {
	case CategoryCuisine:
		return s.Cuisine
	case CategoryService:
		return s.Service
	case CategoryAmbiance:
		return s.Ambiance
	}
	return 0
}

// Set assigns v to category c. Unknown categories are ignored.
func (s *StatBlock) Set(c Category, v int) {
	switch c {
	case CategoryCuisine:
		s.Cuisine = v
	case CategoryService:
		s.Service = v
	case CategoryAmbiance:
		s.Ambiance = v
	}
}

// Add returns the element-wise sum of s and other.
func (s StatBlock) Add(other StatBlock) StatBlock {
	return StatBlock{
		Cuisine:  s.Cuisine + other.Cuisine,
		Service:  s.Service + other.Service,
		Ambiance: s.Ambiance + other.Ambiance,
	}
}

// RankEntry records the rank held at the end of a period.
type RankEntry struct {
	Period int `json:"period"`
	Rank   int `json:"rank"`
}

// Progression tracks the current period and business rank.
type Progression struct {
	Period        int         `json:"period"`
	Rank          int         `json:"rank"`
	RankHistory   []RankEntry `json:"rank_history"`
	ReviewsPassed int         `json:"reviews_passed"`
	ReviewsFailed int         `json:"reviews_failed"`
}

// Finance holds the player's money.
type Finance struct {
	Funds             int `json:"funds"`
	CumulativeBalance int `json:"cumulative_balance"`
	Debt              int `json:"debt"`
}

// Condition holds the player's personal condition.
type Condition struct {
	Burnout int `json:"burnout"`
}

// RestaurantSlot is a purchasable ownership position. Index is 1-based.
type RestaurantSlot struct {
	Index     int    `json:"index"`
	Purchased bool   `json:"purchased"`
	BarID     string `json:"bar_id,omitempty"`
}

// RestaurantBar is an owned restaurant business.
type RestaurantBar struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Concept         string    `json:"concept,omitempty"`
	SalesVolume     int       `json:"sales_volume"`
	Caps            StatBlock `json:"caps"`
	Levels          StatBlock `json:"levels"`
	MaxLevel        int       `json:"max_level"`
	StaffCost       int       `json:"staff_cost"`
	MaintenanceCost int       `json:"maintenance_cost"`
	StaffIDs        []string  `json:"staff_ids"`
	StaffSlots      int       `json:"staff_slots"`
}

// HasStaff reports whether employeeID is on the bar's staff list.
func (b RestaurantBar) HasStaff(employeeID string) bool {
	for _, id := range b.StaffIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// Full reports whether the staff list has reached StaffSlots.
func (b RestaurantBar) Full() bool {
	return len(b.StaffIDs) >= b.StaffSlots
}

// Employee is a hireable staff member.
type Employee struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rarity     Rarity    `json:"rarity"`
	Level      int       `json:"level"`
	Stats      StatBlock `json:"stats"`
	Salary     int       `json:"salary"`
	AssignedTo string    `json:"assigned_to,omitempty"`
}

// Assigned reports whether the employee currently works at a restaurant.
func (e Employee) Assigned() bool { return e.AssignedTo != "" }

// Restaurants groups slots and the bars occupying them.
type Restaurants struct {
	Slots []RestaurantSlot `json:"slots"`
	Bars  []RestaurantBar  `json:"bars"`
}

// Settings holds player preferences persisted with the save.
type Settings struct {
	MusicVolume float64 `json:"music_volume"`
	SFXVolume   float64 `json:"sfx_volume"`
	TextSpeed   string  `json:"text_speed"`
	AutoSave    bool    `json:"auto_save"`
}

// GameSave is the root aggregate persisted as a single document.
type GameSave struct {
	CreatedAt   time.Time   `json:"created_at"`
	LastSavedAt time.Time   `json:"last_saved_at"`
	Player      string      `json:"player"`
	Progression Progression `json:"progression"`
	Finance     Finance     `json:"finance"`
	Condition   Condition   `json:"condition"`
	Restaurants Restaurants `json:"restaurants"`
	Employees   []Employee  `json:"employees"`
	Settings    Settings    `json:"settings"`
}

// FindBar returns the bar with the given id.
func (g *GameSave) FindBar(id string) (*RestaurantBar, bool) {
	for i := range g.Restaurants.Bars {
		if g.Restaurants.Bars[i].ID == id {
			return &g.Restaurants.Bars[i], true
		}
	}
	return nil, false
}

// FindEmployee returns the employee with the given id.
func (g *GameSave) FindEmployee(id string) (*Employee, bool) {
	for i := range g.Employees {
		if g.Employees[i].ID == id {
			return &g.Employees[i], true
		}
	}
	return nil, false
}

// FindSlot returns the slot at the given 1-based index.
func (g *GameSave) FindSlot(index int) (*RestaurantSlot, bool) {
	for i := range g.Restaurants.Slots {
		if g.Restaurants.Slots[i].Index == index {
			return &g.Restaurants.Slots[i], true
		}
	}
	return nil, false
}

// PurchasedSlots counts slots the player owns.
func (g *GameSave) PurchasedSlots() int {
	n := 0
	for _, s := range g.Restaurants.Slots {
		if s.Purchased {
			n++
		}
	}
	return n
}

// StaffOf returns the employees assigned to barID in staff-list order.
func (g *GameSave) StaffOf(barID string) []Employee {
	bar, ok := g.FindBar(barID)
	if !ok {
		return nil
	}
	out := make([]Employee, 0, len(bar.StaffIDs))
	for _, id := range bar.StaffIDs {
		if e, ok := g.FindEmployee(id); ok {
			out = append(out, *e)
		}
	}
	return out
}

// Clone returns a deep copy of the save.
func (g GameSave) Clone() GameSave {
	cp := g
	cp.Progression.RankHistory = cloneSlice(g.Progression.RankHistory)
	cp.Restaurants.Slots = cloneSlice(g.Restaurants.Slots)
	cp.Restaurants.Bars = cloneSlice(g.Restaurants.Bars)
	for i := range cp.Restaurants.Bars {
		cp.Restaurants.Bars[i].StaffIDs = cloneSlice(cp.Restaurants.Bars[i].StaffIDs)
	}
	cp.Employees = cloneSlice(g.Employees)
	return cp
}

// cloneSlice copies in, keeping nil and empty distinct.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
