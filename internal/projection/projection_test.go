package projection

import (
	"reflect"
	"testing"
	"time"
)

func TestProject_ZeroHorizon(t *testing.T) {
	for _, h := range []int{0, -3} {
		res := Project(Input{DailyContribution: 100, Risk: Moderate, Horizon: h})
		if len(res.Points) != 0 {
			t.Fatalf("horizon %d: len(Points) = %d, want 0", h, len(res.Points))
		}
		if res.FinalPrincipal != 0 || res.FinalInvested != 0 || res.TotalReturns != 0 ||
			res.AvgMonthlyGrowth != 0 || res.BestMonth != 0 {
			t.Fatalf("horizon %d: totals = %+v, want all zero", h, res)
		}
	}
}

func TestProject_ZeroContribution(t *testing.T) {
	res := Project(Input{DailyContribution: 0, Risk: Aggressive, Horizon: 12})
	if len(res.Points) != 12 {
		t.Fatalf("len(Points) = %d, want 12", len(res.Points))
	}
	for _, p := range res.Points {
		if p.InvestedValue != 0 {
			t.Fatalf("month %d InvestedValue = %d, want 0", p.Month, p.InvestedValue)
		}
	}
}

func TestProject_ConservativeYear(t *testing.T) {
	res := Project(Input{DailyContribution: 100, Risk: Conservative, Horizon: 12})

	if res.FinalPrincipal != 36000 {
		t.Fatalf("FinalPrincipal = %d, want 36000", res.FinalPrincipal)
	}
	if res.FinalInvested <= res.FinalPrincipal {
		t.Fatalf("FinalInvested = %d, want > %d", res.FinalInvested, res.FinalPrincipal)
	}
	// 3000/month at 5%/12 compounding lands close to 36,990.
	if res.FinalInvested < 36900 || res.FinalInvested > 37100 {
		t.Fatalf("FinalInvested = %d, want about 36990", res.FinalInvested)
	}
	if res.TotalReturns != res.FinalInvested-res.FinalPrincipal {
		t.Fatalf("TotalReturns = %d, want %d", res.TotalReturns, res.FinalInvested-res.FinalPrincipal)
	}
}

func TestProject_Monotonic(t *testing.T) {
	for _, risk := range RiskLevels {
		res := Project(Input{
			DailyContribution: 100,
			Risk:              risk,
			Horizon:           60,
			Extras:            []Event{{Month: 7, Amount: 5000}},
		})
		for i := 1; i < len(res.Points); i++ {
			prev, cur := res.Points[i-1], res.Points[i]
			if cur.Principal < prev.Principal {
				t.Fatalf("%s month %d: principal %d < %d", risk, cur.Month, cur.Principal, prev.Principal)
			}
			if cur.Growth() < prev.Growth() {
				t.Fatalf("%s month %d: growth %d < %d", risk, cur.Month, cur.Growth(), prev.Growth())
			}
		}
	}
}

func TestProject_Idempotent(t *testing.T) {
	in := Input{
		DailyContribution: 42.5,
		Risk:              Moderate,
		Horizon:           60,
		Extras:            []Event{{Month: 3, Amount: 250}},
		Withdrawals:       []Event{{Month: 10, Amount: 900}},
	}
	a := Project(in)
	b := Project(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Project is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestProject_AggressiveBeatsConservative(t *testing.T) {
	for _, h := range Horizons {
		cons := Project(Input{DailyContribution: 25, Risk: Conservative, Horizon: h})
		aggr := Project(Input{DailyContribution: 25, Risk: Aggressive, Horizon: h})
		if aggr.TotalReturns < cons.TotalReturns {
			t.Fatalf("horizon %d: aggressive returns %d < conservative %d", h, aggr.TotalReturns, cons.TotalReturns)
		}
	}
}

func TestProject_ModerateSixMonths(t *testing.T) {
	res := Project(Input{DailyContribution: 50, Risk: Moderate, Horizon: 6})

	if res.FinalPrincipal != 9000 {
		t.Fatalf("FinalPrincipal = %d, want 9000", res.FinalPrincipal)
	}
	if res.FinalInvested <= 9000 || res.FinalInvested > 9400 {
		t.Fatalf("FinalInvested = %d, want modestly above 9000", res.FinalInvested)
	}
	if res.BestMonth != 6 {
		t.Fatalf("BestMonth = %d, want 6", res.BestMonth)
	}
	if diff := res.AvgMonthlyGrowth*6 - res.TotalReturns; diff < -6 || diff > 6 {
		t.Fatalf("AvgMonthlyGrowth = %d, inconsistent with returns %d", res.AvgMonthlyGrowth, res.TotalReturns)
	}
}

func TestProject_EventsSameMonthAreSummed(t *testing.T) {
	res := Project(Input{
		Risk:    Conservative,
		Horizon: 1,
		Extras:  []Event{{Month: 1, Amount: 100}, {Month: 1, Amount: 50}},
	})
	if res.FinalPrincipal != 150 {
		t.Fatalf("FinalPrincipal = %d, want 150", res.FinalPrincipal)
	}
}

func TestProject_WithdrawalNotClamped(t *testing.T) {
	res := Project(Input{
		DailyContribution: 10,
		Risk:              Moderate,
		Horizon:           3,
		Withdrawals:       []Event{{Month: 2, Amount: 5000}},
	})
	if res.Points[1].InvestedValue >= 0 {
		t.Fatalf("month 2 InvestedValue = %d, want negative", res.Points[1].InvestedValue)
	}
	if res.Points[1].Principal != 300+300-5000 {
		t.Fatalf("month 2 Principal = %d, want %d", res.Points[1].Principal, 300+300-5000)
	}
}

func TestProject_Labels(t *testing.T) {
	res := Project(Input{DailyContribution: 1, Risk: Moderate, Horizon: 3})
	if res.Points[0].Label != "Month 1" || res.Points[2].Label != "Month 3" {
		t.Fatalf("labels = %q, %q", res.Points[0].Label, res.Points[2].Label)
	}

	start := time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC)
	res = Project(Input{DailyContribution: 1, Risk: Moderate, Horizon: 3, Start: start})
	want := []string{"Jan 2026", "Feb 2026", "Mar 2026"}
	for i, p := range res.Points {
		if p.Label != want[i] {
			t.Fatalf("Points[%d].Label = %q, want %q", i, p.Label, want[i])
		}
	}
}

func TestEngine_RateOverride(t *testing.T) {
	e := NewEngine(Rates{Moderate: 0.12})
	if got := e.Rates().Annual(Moderate); got != 0.12 {
		t.Fatalf("Annual(moderate) = %v, want 0.12", got)
	}
	if got := e.Rates().Annual(Aggressive); got != DefaultRates.Aggressive {
		t.Fatalf("Annual(aggressive) = %v, want default %v", got, DefaultRates.Aggressive)
	}

	def := Project(Input{DailyContribution: 50, Risk: Moderate, Horizon: 12})
	over := e.Project(Input{DailyContribution: 50, Risk: Moderate, Horizon: 12})
	if over.FinalInvested <= def.FinalInvested {
		t.Fatalf("override FinalInvested = %d, want > %d", over.FinalInvested, def.FinalInvested)
	}
}

func TestMonthsToTarget(t *testing.T) {
	e := NewEngine(DefaultRates)
	in := Input{DailyContribution: 100, Risk: Conservative}

	month, ok := e.MonthsToTarget(in, 9000, 60)
	if !ok || month != 3 {
		t.Fatalf("MonthsToTarget(9000) = %d, %v, want 3, true", month, ok)
	}
	if _, ok := e.MonthsToTarget(in, 1e9, 60); ok {
		t.Fatal("MonthsToTarget(1e9) reported reachable")
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    RiskLevel
		wantErr bool
	}{
		{"conservative", Conservative, false},
		{" Moderate ", Moderate, false},
		{"AGGRESSIVE", Aggressive, false},
		{"yolo", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRiskLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRiskLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseRiskLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHorizonCycle(t *testing.T) {
	if !ValidHorizon(60) || ValidHorizon(24) {
		t.Fatal("ValidHorizon disagrees with Horizons")
	}
	if got := NextHorizon(60); got != 1 {
		t.Fatalf("NextHorizon(60) = %d, want 1", got)
	}
	if got := Aggressive.Next(); got != Conservative {
		t.Fatalf("Aggressive.Next() = %q, want conservative", got)
	}
}
