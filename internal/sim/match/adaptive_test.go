package match

import "testing"

func TestAdaptivePolicy_FullBuyWhenRich(t *testing.T) {
	p := &Player{Credits: 5000}
	d, err := AdaptivePolicy{}.Decide(p, RoundContext{RoundType: RoundFullBuy})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Primary != "VANDAL" || d.Armor != ArmorHeavy {
		t.Fatalf("rich buy %s/%s", d.Primary, d.Armor)
	}
	if d.TotalCost > p.Credits {
		t.Fatalf("cost %d exceeds credits %d", d.TotalCost, p.Credits)
	}
	if d.AbilitiesBudget != 300 {
		t.Fatalf("ability budget %d", d.AbilitiesBudget)
	}
}

func TestAdaptivePolicy_ForceOnLossStreak(t *testing.T) {
	p := &Player{Credits: 2400}
	d, err := AdaptivePolicy{}.Decide(p, RoundContext{RoundType: RoundForceBuy, LossStreak: 2})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Primary != "SPECTRE" || d.Armor != ArmorLight {
		t.Fatalf("force buy %s/%s", d.Primary, d.Armor)
	}
	if d.TotalCost > p.Credits {
		t.Fatalf("cost %d exceeds credits %d", d.TotalCost, p.Credits)
	}
}

func TestAdaptivePolicy_ForceOnPoorEnemy(t *testing.T) {
	p := &Player{Credits: 2400}
	d, err := AdaptivePolicy{}.Decide(p, RoundContext{RoundType: RoundForceBuy, EnemyEconomy: EconomyPoor})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Primary != "SPECTRE" {
		t.Fatalf("poor enemy buy %s", d.Primary)
	}
}

func TestAdaptivePolicy_SavesMidRange(t *testing.T) {
	// Same credit balance without streak or enemy pressure stays a save.
	p := &Player{Credits: 2400}
	d, err := AdaptivePolicy{}.Decide(p, RoundContext{RoundType: RoundEco})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Primary != "" || d.Armor != ArmorNone {
		t.Fatalf("save round bought %s/%s", d.Primary, d.Armor)
	}
	if d.TotalCost != 0 {
		t.Fatalf("save round spent %d", d.TotalCost)
	}
}

func TestAdaptivePolicy_PistolRound(t *testing.T) {
	p := &Player{Credits: 800}
	d, err := AdaptivePolicy{}.Decide(p, RoundContext{RoundType: RoundPistol})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Secondary != "GHOST" || d.Armor != ArmorLight {
		t.Fatalf("pistol buy %s/%s", d.Secondary, d.Armor)
	}

	p.Credits = 600
	d, _ = AdaptivePolicy{}.Decide(p, RoundContext{RoundType: RoundPistol})
	if d.Secondary != "CLASSIC" || d.TotalCost != 0 {
		t.Fatalf("broke pistol buy %s cost %d", d.Secondary, d.TotalCost)
	}
}

func TestAdaptivePolicy_RaisedFloors(t *testing.T) {
	pol := AdaptivePolicy{FullBuyFloor: 5000, ForceFloor: 3000}
	p := &Player{Credits: 4500}

	d, err := pol.Decide(p, RoundContext{RoundType: RoundForceBuy, LossStreak: 2})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Primary != "SPECTRE" {
		t.Fatalf("under raised full floor bought %s", d.Primary)
	}

	p.Credits = 2400
	d, _ = pol.Decide(p, RoundContext{RoundType: RoundForceBuy, LossStreak: 2})
	if d.Primary != "" {
		t.Fatalf("under raised force floor bought %s", d.Primary)
	}
}

func TestAdaptivePolicy_PlugsIntoSimulation(t *testing.T) {
	s := newTestSim(t, 11)
	s.SetBuyPolicy(1, AdaptivePolicy{})

	p, _ := s.Player(1)
	p.Credits = 5000
	d := s.MakeBuyDecision(p, RoundContext{RoundType: RoundFullBuy})
	if d.Primary != "VANDAL" {
		t.Fatalf("policy not honored, bought %q", d.Primary)
	}
}
