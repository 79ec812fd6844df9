package domain

import (
	"errors"
	"reflect"
	"testing"
)

func sampleSave() GameSave {
	return GameSave{
		Player:      "Ana",
		Progression: Progression{Period: 3, Rank: 180, RankHistory: []RankEntry{{Period: 1, Rank: 190}}},
		Finance:     Finance{Funds: 1200},
		Restaurants: Restaurants{
			Slots: []RestaurantSlot{{Index: 1, Purchased: true, BarID: "b1"}, {Index: 2}},
			Bars: []RestaurantBar{{
				ID: "b1", Name: "Corner Bistro", SalesVolume: 1200,
				Caps: StatBlock{Cuisine: 15, Service: 15, Ambiance: 10}, Levels: StatBlock{Cuisine: 1, Service: 1, Ambiance: 1},
				MaxLevel: 20, StaffCost: 230, MaintenanceCost: 150, StaffIDs: []string{"e1", "e2"}, StaffSlots: 3,
			}},
		},
		Employees: []Employee{
			{ID: "e1", Name: "Marta", Rarity: RarityCommon, Level: 1, Stats: StatBlock{Cuisine: 12, Service: 6, Ambiance: 4}, Salary: 120, AssignedTo: "b1"},
			{ID: "e2", Name: "Leo", Rarity: RarityCommon, Level: 1, Stats: StatBlock{Cuisine: 4, Service: 10, Ambiance: 8}, Salary: 110, AssignedTo: "b1"},
			{ID: "e3", Name: "Ines", Rarity: RarityRare, Level: 2, Salary: 130},
		},
		Settings: DefaultSettings(),
	}
}

func TestStatBlockAccessors(t *testing.T) {
	var s StatBlock
	for i, c := range Categories {
		s.Set(c, i+1)
	}
	s.Set("charm", 99)
	if s != (StatBlock{Cuisine: 1, Service: 2, Ambiance: 3}) {
		t.Fatalf("unexpected block %+v", s)
	}
	if s.Get("charm") != 0 || Category("charm").Valid() {
		t.Fatalf("unknown categories are ignored")
	}
	if got := s.Add(StatBlock{Cuisine: 1, Service: 1, Ambiance: 1}); got != (StatBlock{Cuisine: 2, Service: 3, Ambiance: 4}) {
		t.Fatalf("unexpected sum %+v", got)
	}
}

func TestSaveLookups(t *testing.T) {
	save := sampleSave()
	bar, ok := save.FindBar("b1")
	if !ok || !bar.HasStaff("e2") || bar.HasStaff("e3") || bar.Full() {
		t.Fatalf("unexpected bar lookup %+v", bar)
	}
	if _, ok := save.FindBar("nope"); ok {
		t.Fatalf("unknown bar found")
	}
	if e, ok := save.FindEmployee("e3"); !ok || e.Assigned() {
		t.Fatalf("unexpected employee lookup")
	}
	if s, ok := save.FindSlot(2); !ok || s.Purchased {
		t.Fatalf("unexpected slot lookup")
	}
	if save.PurchasedSlots() != 1 {
		t.Fatalf("expected one purchased slot")
	}
	staff := save.StaffOf("b1")
	if len(staff) != 2 || staff[0].ID != "e1" || staff[1].ID != "e2" {
		t.Fatalf("staff must follow the staff list order: %+v", staff)
	}
	if save.StaffOf("nope") != nil {
		t.Fatalf("unknown bar has no staff")
	}
}

func TestCloneIsDeep(t *testing.T) {
	save := sampleSave()
	cp := save.Clone()
	cp.Restaurants.Bars[0].StaffIDs[0] = "zz"
	cp.Employees[0].AssignedTo = ""
	cp.Progression.RankHistory[0].Rank = 1
	cp.Restaurants.Slots[1].Purchased = true
	if !reflect.DeepEqual(save, sampleSave()) {
		t.Fatalf("mutating the clone changed the original")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	save := sampleSave()
	data, err := EncodeSave(save)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSave(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(save, got) {
		t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", save, got)
	}
}

func TestDecodeHydratesDefaults(t *testing.T) {
	doc := `{
		"player": "Old",
		"progression": {},
		"restaurants": {
			"slots": [{"index": 1, "purchased": true, "bar_id": "b1"}, {"index": 2, "purchased": true, "bar_id": "b2"}],
			"bars": [{"id": "b1", "levels": {"cuisine": 4, "service": 0, "ambiance": 2}}, {"id": "b2"}]
		},
		"employees": [{"id": "e1"}],
		"settings": {"music_volume": 0, "text_speed": ""}
	}`
	save, err := DecodeSave([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if save.Progression.Period != DefaultPeriod || save.Progression.Rank != DefaultRank {
		t.Fatalf("progression defaults missing: %+v", save.Progression)
	}
	if save.Progression.RankHistory == nil {
		t.Fatalf("slices must be non-nil")
	}
	b1, b2 := save.Restaurants.Bars[0], save.Restaurants.Bars[1]
	if b1.Levels != (StatBlock{Cuisine: 4, Service: 1, Ambiance: 2}) {
		t.Fatalf("levels below one are raised: %+v", b1.Levels)
	}
	if b2.Levels != (StatBlock{Cuisine: 1, Service: 1, Ambiance: 1}) || b2.MaxLevel != DefaultMaxLevel || b2.StaffSlots != DefaultStaffSlots {
		t.Fatalf("bar defaults missing: %+v", b2)
	}
	if b2.StaffIDs == nil {
		t.Fatalf("staff list must be non-nil")
	}
	e := save.Employees[0]
	if e.Rarity != RarityCommon || e.Level != DefaultLevel {
		t.Fatalf("employee defaults missing: %+v", e)
	}
	if save.Settings.MusicVolume != 0 {
		t.Fatalf("explicit zero volume must survive")
	}
	if save.Settings.SFXVolume != DefaultSFXVolume || save.Settings.TextSpeed != DefaultTextSpeed || !save.Settings.AutoSave {
		t.Fatalf("settings defaults missing: %+v", save.Settings)
	}
}

func TestDecodeRejectsCorruptDocuments(t *testing.T) {
	if _, err := DecodeSave(nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected empty document error, got %v", err)
	}
	if _, err := DecodeSave([]byte(" \n\t")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected empty document error for whitespace, got %v", err)
	}
	for _, doc := range []string{"null", " null ", "[]", `"save"`, "42"} {
		if _, err := DecodeSave([]byte(doc)); !errors.Is(err, ErrNotObject) {
			t.Fatalf("expected not-object error for %q, got %v", doc, err)
		}
	}
	for _, doc := range []string{"{not json", `{"finance": {"funds": "lots"}}`, "{}"} {
		got, err := DecodeSave([]byte(doc))
		if err == nil {
			t.Fatalf("expected error for %q", doc)
		}
		if !reflect.DeepEqual(got, GameSave{}) {
			t.Fatalf("failed decode must return the zero save")
		}
	}
}

func TestValidateAcceptsConsistentSave(t *testing.T) {
	if err := Validate(sampleSave()); err != nil {
		t.Fatalf("sample save should be valid: %v", err)
	}
}

func TestValidateRejectsInconsistentSaves(t *testing.T) {
	cases := map[string]func(*GameSave){
		"no slots":            func(g *GameSave) { g.Restaurants.Slots = nil },
		"no restaurants":      func(g *GameSave) { g.Restaurants = Restaurants{Slots: []RestaurantSlot{{Index: 1}}} },
		"duplicate index":     func(g *GameSave) { g.Restaurants.Slots[1].Index = 1 },
		"slot without bar":    func(g *GameSave) { g.Restaurants.Slots[1].Purchased = true },
		"unpurchased bar":     func(g *GameSave) { g.Restaurants.Slots[1].BarID = "b1" },
		"unknown slot bar":    func(g *GameSave) { g.Restaurants.Slots[0].BarID = "b9" },
		"bar in two slots":    func(g *GameSave) { g.Restaurants.Slots[1] = RestaurantSlot{Index: 2, Purchased: true, BarID: "b1"} },
		"duplicate employee":  func(g *GameSave) { g.Employees[2].ID = "e1" },
		"assigned elsewhere":  func(g *GameSave) { g.Employees[1].AssignedTo = "ghost" },
		"assigned not listed": func(g *GameSave) { g.Employees[2].AssignedTo = "b1" },
		"listed twice":        func(g *GameSave) { g.Restaurants.Bars[0].StaffIDs = []string{"e1", "e1", "e2"} },
		"unknown staff":       func(g *GameSave) { g.Restaurants.Bars[0].StaffIDs = append(g.Restaurants.Bars[0].StaffIDs, "e9") },
		"over capacity":       func(g *GameSave) { g.Restaurants.Bars[0].StaffSlots = 1 },
	}
	for name, mutate := range cases {
		save := sampleSave()
		mutate(&save)
		if err := Validate(save); !errors.Is(err, ErrInconsistentSave) {
			t.Fatalf("%s: expected ErrInconsistentSave, got %v", name, err)
		}
		data, err := EncodeSave(save)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		got, err := DecodeSave(data)
		if !errors.Is(err, ErrInconsistentSave) {
			t.Fatalf("%s: decode should reject the document, got %v", name, err)
		}
		if !reflect.DeepEqual(got, GameSave{}) {
			t.Fatalf("%s: rejected decode must return the zero save", name)
		}
	}
}
