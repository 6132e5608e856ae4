package theme

import "testing"

func TestByNameFallsBack(t *testing.T) {
	if got := ByName("tokyo-night"); got.Name != "tokyo-night" {
		t.Fatalf("ByName(tokyo-night) = %q", got.Name)
	}
	if got := ByName("nope"); got.Name != FlexokiDark.Name {
		t.Fatalf("ByName(nope) = %q, want default", got.Name)
	}
}

func TestMoneyRolesFollowPalette(t *testing.T) {
	seen := map[string]bool{}
	for _, th := range All {
		if seen[th.Name] {
			t.Fatalf("duplicate theme name %q", th.Name)
		}
		seen[th.Name] = true
		if th.Income != th.Green || th.Expense != th.Red {
			t.Fatalf("%s: income/expense not mapped to green/red", th.Name)
		}
	}
	if len(Names()) != len(All) {
		t.Fatalf("Names() = %v", Names())
	}
}
