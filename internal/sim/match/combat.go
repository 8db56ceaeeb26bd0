package match

import "fragsim.gg/internal/sim/catalogs"

// simulateDuel resolves one engagement per tick between a random living
// attacker and defender.
func (s *Simulation) simulateDuel(aliveAttackers, aliveDefenders []*Player) {
	if len(aliveAttackers) == 0 || len(aliveDefenders) == 0 {
		return
	}

	attacker := aliveAttackers[s.rng.Intn(len(aliveAttackers))]
	defender := aliveDefenders[s.rng.Intn(len(aliveDefenders))]
	if !attacker.Alive || !defender.Alive {
		return
	}

	attackerWeapon := attacker.Loadout.EquippedWeapon()
	defenderWeapon := defender.Loadout.EquippedWeapon()
	attackerDef := s.cats.Weapons.Defs[attackerWeapon]
	defenderDef := s.cats.Weapons.Defs[defenderWeapon]

	attackerSkill := (attacker.Skills.Aim*0.7 + attacker.Skills.Headshot*0.3) * attackerDef.Effectiveness
	defenderSkill := (defender.Skills.Aim*0.7 + defender.Skills.Headshot*0.3) * defenderDef.Effectiveness

	fireRateAdvantage := clampF(attackerDef.FireRate/defenderDef.FireRate, 0.5, 2.0)

	winChance := 0.5 + (attackerSkill-defenderSkill)*0.3
	winChance *= fireRateAdvantage
	winChance = clampF(winChance, 0.1, 0.9)

	attackerHeadshot := s.rng.Float64() < attacker.Skills.Headshot
	defenderHeadshot := s.rng.Float64() < defender.Skills.Headshot

	var part BodyPart
	switch {
	case attackerHeadshot || defenderHeadshot:
		part = PartHead
	case s.rng.Float64() < 0.7:
		part = PartBody
	default:
		part = PartLegs
	}

	rangeM := s.tune.EngagementMinM + s.rng.Float64()*(s.tune.EngagementMaxM-s.tune.EngagementMinM)

	if s.rng.Float64() < winChance {
		s.applyHit(attacker, defender, attackerDef, part, rangeM, attackerHeadshot)
	} else {
		s.applyHit(defender, attacker, defenderDef, part, rangeM, defenderHeadshot)
	}
}

func (s *Simulation) applyHit(shooter, victim *Player, weapon catalogs.WeaponDef, part BodyPart, rangeM float64, headshot bool) {
	damage := weaponDamage(weapon, victim.Loadout.Armor, part, rangeM)
	victim.takeDamage(damage)

	s.record(DamageEvent{
		eventMeta:  s.meta(),
		AttackerID: shooter.ID,
		VictimID:   victim.ID,
		Amount:     damage,
		Weapon:     weapon.ID,
		Headshot:   headshot,
	})

	// A kill counts only when the shooter survived and the victim died.
	if shooter.Alive && !victim.Alive {
		s.record(KillEvent{
			eventMeta: s.meta(),
			KillerID:  shooter.ID,
			VictimID:  victim.ID,
			Weapon:    weapon.ID,
			Headshot:  headshot,
		})
		s.awardKillBonus(shooter)
	}
}

func weaponDamage(weapon catalogs.WeaponDef, armor ArmorTier, part BodyPart, rangeM float64) int {
	col := armor.DamageColumn()
	var base int
	switch part {
	case PartHead:
		base = weapon.DamageHead[col]
	case PartBody:
		base = weapon.DamageBody[col]
	case PartLegs:
		base = weapon.DamageLegs[col]
	}
	return int(float64(base) * weapon.DamageMultiplier(rangeM))
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
