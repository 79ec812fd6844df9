// Package economy computes restaurant performance penalties and net profit.
package economy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tycooncore/pkg/domain"
)

// malusTable maps a deficiency count to the sales-volume penalty percent.
// The mapping is explicit; values between the points are never interpolated.
var malusTable = [...]int{0, 30, 60, 100}

// MalusPercent returns the penalty percent for count deficiencies. Only
// counts 0 through 3 are valid.
func MalusPercent(count int) (int, error) {
	if count < 0 || count >= len(malusTable) {
		return 0, fmt.Errorf("deficiency count %d out of range 0..%d", count, len(malusTable)-1)
	}
	return malusTable[count], nil
}

// AggregateStats sums each category across the given staff. An empty staff
// list aggregates to zero.
func AggregateStats(staff []domain.Employee) domain.StatBlock {
	var total domain.StatBlock
	for _, e := range staff {
		total = total.Add(e.Stats)
	}
	return total
}

// Deficiencies lists the categories whose aggregate falls below the cap.
func Deficiencies(caps, aggregate domain.StatBlock) []domain.Category {
	var out []domain.Category
	for _, c := range domain.Categories {
		if aggregate.Get(c) < caps.Get(c) {
			out = append(out, c)
		}
	}
	return out
}

// DeficiencyCount counts categories whose aggregate falls below the cap.
func DeficiencyCount(caps, aggregate domain.StatBlock) int {
	return len(Deficiencies(caps, aggregate))
}

// MalusAmount is round(salesVolume * percent / 100), rounding half away from
// zero.
func MalusAmount(salesVolume, percent int) int {
	return Percent(salesVolume, percent)
}

// Percent returns round(amount * percent / 100) on exact decimal arithmetic,
// rounding half away from zero.
func Percent(amount, percent int) int {
	v := decimal.NewFromInt(int64(amount)).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return int(v.IntPart())
}

// Breakdown is the per-restaurant profit statement.
type Breakdown struct {
	BarID           string            `json:"bar_id"`
	SalesVolume     int               `json:"sales_volume"`
	Aggregate       domain.StatBlock  `json:"aggregate"`
	Caps            domain.StatBlock  `json:"caps"`
	Deficient       []domain.Category `json:"deficient"`
	MalusPercent    int               `json:"malus_percent"`
	MalusAmount     int               `json:"malus_amount"`
	StaffCost       int               `json:"staff_cost"`
	MaintenanceCost int               `json:"maintenance_cost"`
	NetProfit       int               `json:"net_profit"`
}

// Analyze builds the profit statement for bar staffed by staff. The staff
// cost is taken from the bar's aggregate field. A negative net profit is a
// valid result and is never clamped.
func Analyze(bar domain.RestaurantBar, staff []domain.Employee) Breakdown {
	agg := AggregateStats(staff)
	deficient := Deficiencies(bar.Caps, agg)
	pct, _ := MalusPercent(len(deficient))
	malus := MalusAmount(bar.SalesVolume, pct)
	if deficient == nil {
		deficient = []domain.Category{}
	}
	return Breakdown{
		BarID:           bar.ID,
		SalesVolume:     bar.SalesVolume,
		Aggregate:       agg,
		Caps:            bar.Caps,
		Deficient:       deficient,
		MalusPercent:    pct,
		MalusAmount:     malus,
		StaffCost:       bar.StaffCost,
		MaintenanceCost: bar.MaintenanceCost,
		NetProfit:       bar.SalesVolume - malus - bar.StaffCost - bar.MaintenanceCost,
	}
}

// NetProfit is salesVolume - malus - staffCost - maintenanceCost.
func NetProfit(bar domain.RestaurantBar, staff []domain.Employee) int {
	return Analyze(bar, staff).NetProfit
}

// StaffCost sums the salaries of staff.
func StaffCost(staff []domain.Employee) int {
	total := 0
	for _, e := range staff {
		total += e.Salary
	}
	return total
}

// Statement aggregates the breakdowns of every restaurant in a save.
type Statement struct {
	Bars  []Breakdown `json:"bars"`
	Total int         `json:"total"`
}

// Summarize analyzes every bar in save in slot order.
func Summarize(save *domain.GameSave) Statement {
	st := Statement{Bars: make([]Breakdown, 0, len(save.Restaurants.Bars))}
	for _, bar := range save.Restaurants.Bars {
		b := Analyze(bar, save.StaffOf(bar.ID))
		st.Bars = append(st.Bars, b)
		st.Total += b.NetProfit
	}
	return st
}
