package insights

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/projection"
)

// goalSearchMonths bounds the search for when a goal is reached.
const goalSearchMonths = 600

// SavingsRequest asks for a projection narrative, optionally against one
// of the user's goals.
type SavingsRequest struct {
	projection.Input
	GoalID string `json:"goal_id,omitempty"`
}

// Validate checks the simulation parameters.
func (r SavingsRequest) Validate() error {
	v := &model.ValidationError{}
	if r.DailyContribution < 0 {
		v.Add("dailyContribution", "must not be negative")
	}
	if _, err := projection.ParseRiskLevel(string(r.Risk)); err != nil {
		v.Add("riskLevel", "must be conservative, moderate or aggressive")
	}
	if !projection.ValidHorizon(r.Horizon) {
		v.Add("horizon", fmt.Sprintf("must be one of %v", projection.Horizons))
	}
	for i, e := range r.Extras {
		if e.Month < 1 || e.Amount < 0 {
			v.Add(fmt.Sprintf("extraContributions[%d]", i), "needs a month >= 1 and a non-negative amount")
		}
	}
	for i, e := range r.Withdrawals {
		if e.Month < 1 || e.Amount < 0 {
			v.Add(fmt.Sprintf("withdrawalEvents[%d]", i), "needs a month >= 1 and a non-negative amount")
		}
	}
	return v.OrNil()
}

// GoalOutlook relates a projection to a goal.
type GoalOutlook struct {
	GoalID       string `json:"goal_id"`
	Name         string `json:"name"`
	Target       string `json:"target"`
	Reachable    bool   `json:"reachable"`
	MonthsToGoal int    `json:"months_to_goal,omitempty"`
}

// SavingsReport is a projection plus its narrative.
type SavingsReport struct {
	Projection projection.Result `json:"projection"`
	Goal       *GoalOutlook      `json:"goal,omitempty"`
	Narrative  string            `json:"narrative"`
	Fallback   bool              `json:"fallback"`
	Reason     string            `json:"reason,omitempty"`
}

const savingsSystem = `You are an encouraging savings coach. Given a savings projection,
write a short narrative of two or three sentences without markdown. Mention the final invested
value and the total returns.`

// SavingsNarrative runs the projection engine and describes the outcome.
func (s *Service) SavingsNarrative(ctx context.Context, userID string, req SavingsRequest) (SavingsReport, error) {
	risk, _ := projection.ParseRiskLevel(string(req.Risk))
	req.Risk = risk
	if err := req.Validate(); err != nil {
		return SavingsReport{}, err
	}

	report := SavingsReport{Projection: s.engine.Project(req.Input)}

	if req.GoalID != "" {
		outlook, err := s.goalOutlook(ctx, userID, req)
		if err != nil {
			return SavingsReport{}, err
		}
		report.Goal = outlook
	}

	prompt, _ := json.Marshal(struct {
		Input  projection.Input  `json:"input"`
		Result projection.Result `json:"result"`
		Goal   *GoalOutlook      `json:"goal,omitempty"`
	}{req.Input, report.Projection, report.Goal})

	reply, err := s.ask(ctx, "savings-projection", savingsSystem, string(prompt))
	if err == nil {
		if text := gateway.Clean(reply); text != "" {
			report.Narrative = text
			return report, nil
		}
		err = fmt.Errorf("insights: blank narrative: %w", model.ErrParse)
	}

	report.Fallback = true
	report.Reason = fallback("savings-projection", err)
	report.Narrative = RuleNarrative(req.Input, report.Projection, report.Goal)
	return report, nil
}

func (s *Service) goalOutlook(ctx context.Context, userID string, req SavingsRequest) (*GoalOutlook, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("insights: loading goals: %w", err)
	}
	for _, g := range goals {
		if g.ID != req.GoalID {
			continue
		}
		remaining, _ := g.Target.Sub(g.Saved).Float64()
		months, ok := s.engine.MonthsToTarget(req.Input, remaining, goalSearchMonths)
		return &GoalOutlook{
			GoalID:       g.ID,
			Name:         g.Name,
			Target:       g.Target.StringFixed(2),
			Reachable:    ok,
			MonthsToGoal: months,
		}, nil
	}
	return nil, fmt.Errorf("goal %s: %w", req.GoalID, model.ErrNotFound)
}

// RuleNarrative is the template narrative built from projection totals.
func RuleNarrative(in projection.Input, res projection.Result, goal *GoalOutlook) string {
	if len(res.Points) == 0 {
		return "Choose a horizon to see how your savings could grow."
	}
	text := fmt.Sprintf("Saving %.2f a day for %d months at a %s risk level puts %d aside. Invested, it could grow to %d, earning %d in returns (about %d a month).",
		in.DailyContribution, in.Horizon, in.Risk, res.FinalPrincipal, res.FinalInvested, res.TotalReturns, res.AvgMonthlyGrowth)
	if goal != nil {
		if goal.Reachable {
			text += fmt.Sprintf(" At this pace you reach %q in %d months.", goal.Name, goal.MonthsToGoal)
		} else {
			text += fmt.Sprintf(" At this pace %q stays out of reach; try a higher daily amount.", goal.Name)
		}
	}
	return text
}
