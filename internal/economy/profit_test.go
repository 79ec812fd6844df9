package economy

import (
	"testing"

	"tycooncore/pkg/domain"
)

func TestMalusPercentTable(t *testing.T) {
	want := map[int]int{0: 0, 1: 30, 2: 60, 3: 100}
	for count, pct := range want {
		got, err := MalusPercent(count)
		if err != nil {
			t.Fatalf("MalusPercent(%d): %v", count, err)
		}
		if got != pct {
			t.Fatalf("MalusPercent(%d) = %d, want %d", count, got, pct)
		}
	}
	for _, bad := range []int{-1, 4, 10} {
		if _, err := MalusPercent(bad); err == nil {
			t.Fatalf("expected error for count %d", bad)
		}
	}
}

func TestMalusAmountRounding(t *testing.T) {
	cases := []struct {
		volume, pct, want int
	}{
		{1000, 30, 300},
		{5, 30, 2},
		{3, 30, 1},
		{1001, 60, 601},
		{0, 100, 0},
		{999, 100, 999},
	}
	for _, tc := range cases {
		if got := MalusAmount(tc.volume, tc.pct); got != tc.want {
			t.Fatalf("MalusAmount(%d, %d) = %d, want %d", tc.volume, tc.pct, got, tc.want)
		}
	}
}

func TestAggregateStatsEmpty(t *testing.T) {
	if got := AggregateStats(nil); got != (domain.StatBlock{}) {
		t.Fatalf("expected zero aggregate, got %+v", got)
	}
}

func TestOneDeficiencySubtractsThirtyPercent(t *testing.T) {
	bar := domain.RestaurantBar{
		ID:              "bar-a",
		SalesVolume:     1000,
		Caps:            domain.StatBlock{Cuisine: 40, Service: 10, Ambiance: 10},
		StaffCost:       200,
		MaintenanceCost: 100,
	}
	staff := []domain.Employee{
		{ID: "e1", Stats: domain.StatBlock{Cuisine: 20, Service: 10, Ambiance: 5}},
		{ID: "e2", Stats: domain.StatBlock{Cuisine: 15, Service: 5, Ambiance: 5}},
	}
	b := Analyze(bar, staff)
	if b.Aggregate.Cuisine != 35 {
		t.Fatalf("expected cuisine aggregate 35, got %d", b.Aggregate.Cuisine)
	}
	if len(b.Deficient) != 1 || b.Deficient[0] != domain.CategoryCuisine {
		t.Fatalf("expected single cuisine deficiency, got %v", b.Deficient)
	}
	if b.MalusAmount != 300 {
		t.Fatalf("expected malus 300, got %d", b.MalusAmount)
	}
	if b.NetProfit != 1000-300-200-100 {
		t.Fatalf("unexpected net profit %d", b.NetProfit)
	}
}

func TestNetProfitMayBeNegative(t *testing.T) {
	bar := domain.RestaurantBar{
		SalesVolume:     500,
		Caps:            domain.StatBlock{Cuisine: 10, Service: 10, Ambiance: 10},
		StaffCost:       300,
		MaintenanceCost: 400,
	}
	got := NetProfit(bar, nil)
	if got != 500-500-300-400 {
		t.Fatalf("expected unclamped negative profit, got %d", got)
	}
}

func TestDeficiencyCountAtCapIsNotDeficient(t *testing.T) {
	caps := domain.StatBlock{Cuisine: 10, Service: 20, Ambiance: 30}
	if n := DeficiencyCount(caps, caps); n != 0 {
		t.Fatalf("expected no deficiencies at cap, got %d", n)
	}
	if n := DeficiencyCount(caps, domain.StatBlock{}); n != 3 {
		t.Fatalf("expected three deficiencies, got %d", n)
	}
}

func TestSummarizeTotalsBars(t *testing.T) {
	save := &domain.GameSave{
		Restaurants: domain.Restaurants{Bars: []domain.RestaurantBar{
			{ID: "a", SalesVolume: 1000, StaffIDs: []string{"e1"}},
			{ID: "b", SalesVolume: 400, MaintenanceCost: 50},
		}},
		Employees: []domain.Employee{{ID: "e1", AssignedTo: "a", Salary: 100}},
	}
	save.Restaurants.Bars[0].StaffCost = StaffCost(save.StaffOf("a"))
	st := Summarize(save)
	if len(st.Bars) != 2 {
		t.Fatalf("expected 2 breakdowns, got %d", len(st.Bars))
	}
	if st.Total != (1000-100)+(400-50) {
		t.Fatalf("unexpected total %d", st.Total)
	}
}

func TestPercentRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct{ amount, pct, want int }{
		{3000, 50, 1500},
		{5, 50, 3},
		{-5, 50, -3},
		{999, 30, 300},
		{0, 100, 0},
	}
	for _, c := range cases {
		if got := Percent(c.amount, c.pct); got != c.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", c.amount, c.pct, got, c.want)
		}
	}
}
