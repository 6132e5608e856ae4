package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/theirongolddev/fintrack/internal/gateway"
	"github.com/theirongolddev/fintrack/internal/model"
)

// MaxScore is the top of the financial score scale.
const MaxScore = 1000

// Factor is one input to the financial score, before and after.
type Factor struct {
	Name     string  `json:"name"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

// Delta is the factor's change.
func (f Factor) Delta() float64 { return f.Current - f.Previous }

// ScoreInput is a score change to explain.
type ScoreInput struct {
	Previous int      `json:"previous_score"`
	Current  int      `json:"current_score"`
	Factors  []Factor `json:"factors"`
}

// Validate checks scores are on the scale and factors are named.
func (in ScoreInput) Validate() error {
	v := &model.ValidationError{}
	if in.Previous < 0 || in.Previous > MaxScore {
		v.Add("previous_score", fmt.Sprintf("must be between 0 and %d", MaxScore))
	}
	if in.Current < 0 || in.Current > MaxScore {
		v.Add("current_score", fmt.Sprintf("must be between 0 and %d", MaxScore))
	}
	for i, f := range in.Factors {
		if f.Name == "" {
			v.Add(fmt.Sprintf("factors[%d].name", i), "is required")
		}
	}
	return v.OrNil()
}

// Explanation is a narrative for a score change.
type Explanation struct {
	Change      int    `json:"change"`
	TopFactor   string `json:"top_factor,omitempty"`
	Explanation string `json:"explanation"`
	Fallback    bool   `json:"fallback"`
	Reason      string `json:"reason,omitempty"`
}

const scoreSystem = `You explain changes in a personal financial health score (0-1000) in
two or three plain sentences. Mention the factor that moved the most. Do not use markdown.`

// ExplainScore narrates why the score moved.
func (s *Service) ExplainScore(ctx context.Context, in ScoreInput) (Explanation, error) {
	if err := in.Validate(); err != nil {
		return Explanation{}, err
	}
	out := Explanation{Change: in.Current - in.Previous}
	if top, ok := topFactor(in.Factors); ok {
		out.TopFactor = top.Name
	}

	prompt, _ := json.Marshal(in)
	reply, err := s.ask(ctx, "score-explanation", scoreSystem, string(prompt))
	if err == nil {
		if text := gateway.Clean(reply); text != "" {
			out.Explanation = text
			return out, nil
		}
		err = fmt.Errorf("insights: blank narrative: %w", model.ErrParse)
	}

	out.Fallback = true
	out.Reason = fallback("score-explanation", err)
	out.Explanation = RuleExplanation(in)
	return out, nil
}

// RuleExplanation is the template narrative naming the factor with the
// largest absolute change.
func RuleExplanation(in ScoreInput) string {
	change := in.Current - in.Previous
	var head string
	switch {
	case change > 0:
		head = fmt.Sprintf("Your score rose by %d points to %d.", change, in.Current)
	case change < 0:
		head = fmt.Sprintf("Your score fell by %d points to %d.", -change, in.Current)
	default:
		head = fmt.Sprintf("Your score held steady at %d.", in.Current)
	}
	top, ok := topFactor(in.Factors)
	if !ok || top.Delta() == 0 {
		return head
	}
	dir := "improved"
	if top.Delta() < 0 {
		dir = "declined"
	}
	return fmt.Sprintf("%s The biggest driver was %s, which %s from %s to %s.",
		head, top.Name, dir, trimFloat(top.Previous), trimFloat(top.Current))
}

func topFactor(fs []Factor) (Factor, bool) {
	if len(fs) == 0 {
		return Factor{}, false
	}
	sorted := append([]Factor(nil), fs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Delta()) > math.Abs(sorted[j].Delta())
	})
	return sorted[0], true
}

func trimFloat(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.2f", f)
}
