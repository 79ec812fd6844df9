package engine

import (
	"context"

	"tycooncore/internal/economy"
	"tycooncore/internal/notify"
	"tycooncore/pkg/domain"
)

// MaxBurnout caps the owner's burnout.
const MaxBurnout = 100

// ReviewOutcome is the verdict of a shareholder review.
type ReviewOutcome struct {
	Target     int  `json:"target"`
	Cumulative int  `json:"cumulative"`
	Passed     bool `json:"passed"`
}

// PeriodReport summarizes a closed period.
type PeriodReport struct {
	Period     int               `json:"period"`
	Statement  economy.Statement `json:"statement"`
	FundsAfter int               `json:"funds_after"`
	Debt       int               `json:"debt"`
	RankBefore int               `json:"rank_before"`
	RankAfter  int               `json:"rank_after"`
	Burnout    int               `json:"burnout"`
	Review     *ReviewOutcome    `json:"review,omitempty"`
}

// AdvancePeriod closes the current period. Every restaurant's net profit is
// booked into funds; a negative balance becomes debt. Rank improves with
// profit (unless the owner is burnt out) and slips after a loss. Every
// Review.Interval periods shareholders compare the cumulative balance with
// the target accumulated so far and penalize the rank on a miss.
func (s *Service) AdvancePeriod(ctx context.Context) (PeriodReport, error) {
	var report PeriodReport
	err := s.run(ctx, "advance_period", "", func(ctx context.Context) ([]notify.Event, error) {
		var draft PeriodReport
		events, err := s.commit(ctx, func(tx *txn) error {
			draft = closePeriod(tx)
			return nil
		})
		if committed(err) {
			report = draft
			s.logger.Info("period closed", "period", draft.Period, "net_profit", draft.Statement.Total, "rank", draft.RankAfter, "funds", draft.FundsAfter)
		}
		return events, err
	})
	return report, err
}

func closePeriod(tx *txn) PeriodReport {
	save := tx.save
	b := tx.balance
	prog := &save.Progression
	fin := &save.Finance

	st := economy.Summarize(save)
	report := PeriodReport{Period: prog.Period, Statement: st, RankBefore: prog.Rank}

	tx.adjustFunds(st.Total, actionAdvance)
	fin.CumulativeBalance += st.Total
	fin.Debt = 0
	if fin.Funds < 0 {
		fin.Debt = -fin.Funds
	}

	burnout := save.Condition.Burnout + b.BurnoutPerPeriod + b.BurnoutPerBar*max(len(save.Restaurants.Bars)-1, 0)
	save.Condition.Burnout = min(burnout, MaxBurnout)

	rank := prog.Rank
	switch {
	case st.Total > 0 && save.Condition.Burnout < MaxBurnout:
		rank -= min(st.Total/b.Ranking.ProfitStep*b.Ranking.GainPerStep, b.Ranking.MaxGain)
	case st.Total < 0:
		rank += b.Ranking.LossPenalty
	}

	if b.Review.Interval > 0 && prog.Period%b.Review.Interval == 0 {
		held := prog.Period / b.Review.Interval
		review := ReviewOutcome{Target: b.Review.ProfitTarget * held, Cumulative: fin.CumulativeBalance}
		review.Passed = review.Cumulative >= review.Target
		if review.Passed {
			prog.ReviewsPassed++
		} else {
			prog.ReviewsFailed++
			rank += b.Review.FailurePenalty
		}
		report.Review = &review
	}

	prog.Rank = clamp(rank, b.Ranking.BestRank, b.Ranking.WorstRank)
	prog.RankHistory = append(prog.RankHistory, domain.RankEntry{Period: prog.Period, Rank: prog.Rank})

	report.FundsAfter = fin.Funds
	report.Debt = fin.Debt
	report.RankAfter = prog.Rank
	report.Burnout = save.Condition.Burnout

	ev := notify.PeriodAdvanced{Period: prog.Period, Rank: prog.Rank, NetProfit: st.Total}
	if report.Review != nil {
		ev.Review, ev.Passed = true, report.Review.Passed
	}
	tx.emit(ev)
	tx.record("progression", "", actionAdvance)
	prog.Period++
	return report
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
