package match

import "sort"

// BuyDecision is what one player intends to purchase this buy phase.
// TotalCost always includes AbilitiesBudget and never exceeds the
// player's credits once coordinated.
type BuyDecision struct {
	Primary         string // weapon id, empty means no primary
	Secondary       string
	Armor           ArmorTier
	AbilitiesBudget int
	TotalCost       int
	Confidence      float64
	// How important this player's buy is for the team plan.
	CoordinationPriority float64
}

// BuyPolicy produces a buy decision for one player. Implementations that
// fail fall back to the built-in rule engine.
type BuyPolicy interface {
	Decide(p *Player, ctx RoundContext) (BuyDecision, error)
}

type PolicyFunc func(p *Player, ctx RoundContext) (BuyDecision, error)

func (f PolicyFunc) Decide(p *Player, ctx RoundContext) (BuyDecision, error) { return f(p, ctx) }

type TeamBuyStrategy struct {
	Strategy      TeamStrategy
	PriorityRoles []Role
	UtilityBudget int
	MinimumRifles int
	AllowEcoFrags bool
}

type UtilityBudget struct {
	Smokes  int
	Flashes int
	Info    int
	Healing int
	Total   int
}

type TeamComposition struct {
	HasSmoker       bool
	HasIGL          bool
	HasEntryFragger bool
	HasSupport      bool
	RiflePlayers    int
	OperatorPlayers int
}

// MakeBuyDecision runs the player's policy, or the rule engine when no
// override is set or the override errors.
func (s *Simulation) MakeBuyDecision(p *Player, ctx RoundContext) BuyDecision {
	if policy, ok := s.policies[p.ID]; ok {
		if d, err := policy.Decide(p, ctx); err == nil {
			return d
		}
	}
	d, _ := s.rulePolicy.Decide(p, ctx)
	return d
}

// rulePolicy is the weighted-preference buy engine.
type rulePolicy struct {
	sim *Simulation
}

func (r *rulePolicy) Decide(p *Player, ctx RoundContext) (BuyDecision, error) {
	s := r.sim
	remaining := p.Credits

	shouldEco := remaining < p.Preferences.EcoThreshold &&
		ctx.RoundType != RoundForceBuy &&
		s.rng.Float64() > p.Preferences.ForceBuyTendency

	if shouldEco && ctx.RoundType != RoundPistol {
		// Save round: occasionally pick up a Sheriff, otherwise full save.
		if remaining >= 800 && s.rng.Float64() < 0.3 {
			return BuyDecision{
				Secondary:            "SHERIFF",
				Armor:                ArmorNone,
				TotalCost:            800,
				Confidence:           0.8,
				CoordinationPriority: 0.3,
			}, nil
		}
		return BuyDecision{
			Secondary:            "CLASSIC",
			Armor:                ArmorNone,
			Confidence:           0.9,
			CoordinationPriority: 0.2,
		}, nil
	}

	coordination := coordinationBase(p.Role)
	if ctx.RoundType == RoundForceBuy {
		coordination *= 1.2
	}
	if ctx.LossStreak >= 3 {
		coordination *= 1.1
	}

	ranked := append([]WeaponPreference(nil), p.Preferences.PreferredWeapons...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return effectivePriority(ranked[i], ctx.RoundType) > effectivePriority(ranked[j], ctx.RoundType)
	})

	abilities := abilityBudget(p.Role, remaining, p.Preferences.UtilityPriority)
	if abilities > remaining {
		abilities = remaining
	}
	remaining -= abilities

	// Greedy primary scan. Sidearms are handled after armor.
	primary := ""
	confidence := 0.5
	for _, pref := range ranked {
		def, ok := s.cats.Weapons.Defs[pref.Weapon]
		if !ok {
			continue
		}
		// Leave room for the armor the player would want with this gun.
		armorCost := 0
		if p.Preferences.ArmorPriority > 0.7 && remaining >= def.Price+armorHeavyCost {
			armorCost = armorHeavyCost
		} else if p.Preferences.ArmorPriority > 0.4 && remaining >= def.Price+armorLightCost {
			armorCost = armorLightCost
		}
		if remaining < def.Price+armorCost || remaining < pref.MinCredits {
			continue
		}
		if def.IsSidearm() {
			continue
		}
		primary = pref.Weapon
		remaining -= def.Price
		confidence = pref.Priority
		break
	}

	armor := ArmorNone
	if p.Preferences.ArmorPriority > 0.7 && remaining >= armorHeavyCost {
		armor = ArmorHeavy
		remaining -= armorHeavyCost
	} else if p.Preferences.ArmorPriority > 0.4 && remaining >= armorLightCost {
		armor = ArmorLight
		remaining -= armorLightCost
	}

	secondary := "CLASSIC"
	if remaining >= 800 && prefersSheriff(ranked) {
		secondary = "SHERIFF"
		remaining -= 800
	} else if remaining >= 500 {
		secondary = "GHOST"
		remaining -= 500
	}

	return BuyDecision{
		Primary:              primary,
		Secondary:            secondary,
		Armor:                armor,
		AbilitiesBudget:      abilities,
		TotalCost:            p.Credits - remaining,
		Confidence:           clamp01Floor(confidence),
		CoordinationPriority: clamp01Floor(coordination),
	}, nil
}

func coordinationBase(role Role) float64 {
	switch role {
	case RoleController:
		return 0.9
	case RoleInitiator:
		return 0.8
	case RoleSentinel:
		return 0.7
	default:
		return 0.6
	}
}

func effectivePriority(pref WeaponPreference, rt RoundType) float64 {
	return pref.Priority + pref.SituationalModifiers[rt]
}

// abilityBudget reserves utility spend per role, floored for the roles
// whose kit the team depends on.
func abilityBudget(role Role, credits int, utilityPriority float64) int {
	base := int(float64(credits) * utilityPriority * 0.3)
	switch role {
	case RoleController:
		return clampInt(base, 800, 1500)
	case RoleInitiator:
		return clampInt(base, 600, 1200)
	case RoleSentinel:
		return clampInt(base, 400, 800)
	default:
		if base > 400 {
			return 400
		}
		return base
	}
}

func prefersSheriff(ranked []WeaponPreference) bool {
	for _, pref := range ranked {
		if pref.Weapon == "SHERIFF" && pref.Priority > 0.6 {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01Floor(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// CreateTeamBuyStrategy maps the round classification to a shared plan.
func (s *Simulation) CreateTeamBuyStrategy(team Team, ctx RoundContext) TeamBuyStrategy {
	teamCredits := s.teamCredits(team)

	var strategy TeamStrategy
	switch ctx.RoundType {
	case RoundPistol:
		strategy = StrategyHalfBuy
	case RoundEco:
		if ctx.LossStreak >= 3 {
			strategy = StrategyEcoFrag
		} else {
			strategy = StrategyFullSave
		}
	case RoundForceBuy:
		strategy = StrategyForceBuy
	case RoundFullBuy, RoundAntiEco:
		strategy = StrategyFullBuy
	}

	var (
		priorityRoles []Role
		utilityShare  float64
		minRifles     int
	)
	switch strategy {
	case StrategyFullSave:
		priorityRoles, utilityShare, minRifles = nil, 0, 0
	case StrategyEcoFrag:
		priorityRoles, utilityShare, minRifles = []Role{RoleDuelist}, 0.1, 0
	case StrategyHalfBuy:
		priorityRoles, utilityShare, minRifles = []Role{RoleController, RoleInitiator}, 0.15, 1
	case StrategyFullBuy:
		priorityRoles = []Role{RoleController, RoleInitiator, RoleDuelist, RoleSentinel}
		utilityShare, minRifles = 0.25, 4
	case StrategyForceBuy:
		priorityRoles, utilityShare, minRifles = []Role{RoleController, RoleDuelist}, 0.2, 2
	}

	return TeamBuyStrategy{
		Strategy:      strategy,
		PriorityRoles: priorityRoles,
		UtilityBudget: int(float64(teamCredits) * utilityShare),
		MinimumRifles: minRifles,
		AllowEcoFrags: strategy == StrategyEcoFrag || strategy == StrategyForceBuy,
	}
}

// CreateUtilityBudget splits the team utility budget across ability
// categories; a category is funded only when a role can spend it.
func (s *Simulation) CreateUtilityBudget(strat TeamBuyStrategy, team Team) UtilityBudget {
	var controllers, initiators, sentinels int
	for _, p := range s.teamPlayers(team) {
		switch p.Role {
		case RoleController:
			controllers++
		case RoleInitiator:
			initiators++
		case RoleSentinel:
			sentinels++
		}
	}

	total := strat.UtilityBudget
	var b UtilityBudget
	if controllers > 0 {
		b.Smokes = int(float64(total) * 0.4)
	}
	if initiators > 0 {
		b.Flashes = int(float64(total) * 0.3)
		b.Info = int(float64(total) * 0.2)
	}
	if sentinels > 0 {
		b.Healing = int(float64(total) * 0.1)
	}
	b.Total = b.Smokes + b.Flashes + b.Info + b.Healing
	return b
}

func (s *Simulation) TeamComposition(team Team) TeamComposition {
	var comp TeamComposition
	for _, p := range s.teamPlayers(team) {
		switch p.Role {
		case RoleController:
			comp.HasSmoker = true
			comp.HasIGL = true
		case RoleSentinel:
			comp.HasIGL = true
			comp.HasSupport = true
		case RoleDuelist:
			comp.HasEntryFragger = true
		case RoleInitiator:
			comp.HasSupport = true
		}
		if p.Loadout.Primary == "" {
			continue
		}
		switch s.cats.Weapons.Defs[p.Loadout.Primary].Class {
		case "RIFLE":
			comp.RiflePlayers++
		case "SNIPER":
			comp.OperatorPlayers++
		}
	}
	return comp
}

// MakeCoordinatedBuyDecision post-processes the individual decision with
// the team plan: eco-frag saves, utility reallocation, minimum rifles,
// and an affordability clamp.
func (s *Simulation) MakeCoordinatedBuyDecision(p *Player, ctx RoundContext, strat TeamBuyStrategy, util UtilityBudget) BuyDecision {
	d := s.MakeBuyDecision(p, ctx)

	isPriority := false
	for _, r := range strat.PriorityRoles {
		if r == p.Role {
			isPriority = true
			break
		}
	}

	if !isPriority && strat.Strategy == StrategyEcoFrag && d.TotalCost > 1000 {
		return BuyDecision{
			Secondary:            "CLASSIC",
			Armor:                ArmorNone,
			Confidence:           0.8,
			CoordinationPriority: 0.2,
		}
	}

	gear := d.TotalCost - d.AbilitiesBudget

	switch p.Role {
	case RoleController:
		d.AbilitiesBudget = int(float64(util.Smokes) * 0.8)
	case RoleInitiator:
		d.AbilitiesBudget = int(float64(util.Flashes+util.Info) * 0.6)
	case RoleSentinel:
		d.AbilitiesBudget = int(float64(util.Healing) * 0.5)
	case RoleDuelist:
		if d.AbilitiesBudget > 200 {
			d.AbilitiesBudget = 200
		}
	}

	if strat.MinimumRifles > 0 && d.Primary == "" && isPriority && p.Credits >= 2900 {
		d.Primary = "VANDAL"
		if gear < 2900 {
			gear = 2900
		}
	}

	d.TotalCost = gear + d.AbilitiesBudget
	if d.TotalCost > p.Credits {
		overspend := d.TotalCost - p.Credits
		if d.AbilitiesBudget >= overspend {
			d.AbilitiesBudget -= overspend
		} else {
			d.AbilitiesBudget = 0
		}
		d.TotalCost = p.Credits
	}
	return d
}

// simulatePurchases runs the full coordinated buy for both teams and
// applies the results.
func (s *Simulation) simulatePurchases() {
	ctxs := map[Team]RoundContext{
		TeamAttackers: s.CreateRoundContext(TeamAttackers),
		TeamDefenders: s.CreateRoundContext(TeamDefenders),
	}
	strats := map[Team]TeamBuyStrategy{
		TeamAttackers: s.CreateTeamBuyStrategy(TeamAttackers, ctxs[TeamAttackers]),
		TeamDefenders: s.CreateTeamBuyStrategy(TeamDefenders, ctxs[TeamDefenders]),
	}
	utils := map[Team]UtilityBudget{
		TeamAttackers: s.CreateUtilityBudget(strats[TeamAttackers], TeamAttackers),
		TeamDefenders: s.CreateUtilityBudget(strats[TeamDefenders], TeamDefenders),
	}

	decisions := make(map[int]BuyDecision, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		decisions[id] = s.MakeCoordinatedBuyDecision(p, ctxs[p.Team], strats[p.Team], utils[p.Team])
	}

	for _, id := range s.order {
		p := s.players[id]
		d := decisions[id]

		p.Loadout.Primary = d.Primary
		p.Loadout.Secondary = d.Secondary
		p.Loadout.Armor = d.Armor
		p.Loadout.Abilities = abilitiesFor(p.Role, d.AbilitiesBudget)
		p.Armor = d.Armor.Points()

		p.addCredits(-d.TotalCost, s.tune.CreditCap)
	}
}

func abilitiesFor(role Role, budget int) []string {
	if budget <= 0 {
		return nil
	}
	switch role {
	case RoleController:
		out := []string{"Smoke"}
		if budget >= 600 {
			out = append(out, "Extra Smoke")
		}
		return out
	case RoleInitiator:
		out := []string{"Flash"}
		if budget >= 500 {
			out = append(out, "Info Dart")
		}
		return out
	case RoleSentinel:
		return []string{"Utility"}
	default:
		if budget >= 200 {
			return []string{"Mobility"}
		}
		return nil
	}
}
