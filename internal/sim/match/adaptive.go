package match

// AdaptivePolicy is a credit-threshold buy policy that reacts to the
// round context: a loss streak or a poor enemy economy turns a
// mid-range save into a force. It stands in wherever a learned policy
// would plug into the BuyPolicy interface.
type AdaptivePolicy struct {
	// FullBuyFloor is the minimum credit balance for a rifle buy.
	// Zero means the default of rifle plus heavy armor.
	FullBuyFloor int
	// ForceFloor is the minimum credit balance for a force buy.
	ForceFloor int
}

const (
	defaultFullBuyFloor = 3900 // VANDAL + heavy armor
	defaultForceFloor   = 2000 // SPECTRE + light armor
)

func (a AdaptivePolicy) Decide(p *Player, ctx RoundContext) (BuyDecision, error) {
	full := a.FullBuyFloor
	if full <= 0 {
		full = defaultFullBuyFloor
	}
	force := a.ForceFloor
	if force <= 0 {
		force = defaultForceFloor
	}

	switch {
	case ctx.RoundType == RoundPistol:
		d := BuyDecision{
			Secondary:            "GHOST",
			Armor:                ArmorLight,
			TotalCost:            500 + armorLightCost,
			Confidence:           0.7,
			CoordinationPriority: 0.5,
		}
		if p.Credits < d.TotalCost {
			d = BuyDecision{Secondary: "CLASSIC", Confidence: 0.7, CoordinationPriority: 0.5}
		}
		return d, nil

	case p.Credits >= full && p.Credits >= defaultFullBuyFloor:
		abilities := p.Credits - defaultFullBuyFloor
		if abilities > 300 {
			abilities = 300
		}
		return BuyDecision{
			Primary:              "VANDAL",
			Secondary:            "CLASSIC",
			Armor:                ArmorHeavy,
			AbilitiesBudget:      abilities,
			TotalCost:            defaultFullBuyFloor + abilities,
			Confidence:           0.9,
			CoordinationPriority: 0.8,
		}, nil

	case p.Credits >= force && p.Credits >= defaultForceFloor &&
		(ctx.LossStreak >= 2 || ctx.EnemyEconomy == EconomyPoor):
		return BuyDecision{
			Primary:              "SPECTRE",
			Secondary:            "CLASSIC",
			Armor:                ArmorLight,
			TotalCost:            defaultForceFloor,
			Confidence:           0.6,
			CoordinationPriority: 0.7,
		}, nil

	default:
		return BuyDecision{
			Secondary:            "CLASSIC",
			Armor:                ArmorNone,
			Confidence:           0.8,
			CoordinationPriority: 0.3,
		}, nil
	}
}
