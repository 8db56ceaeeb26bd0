package match

// RoundContext is the economic picture a team sees entering a buy phase.
type RoundContext struct {
	RoundType       RoundType
	TeamEconomy     int
	EnemyEconomy    EconomyState
	PreviousRound   RoundEndReason // empty before the first round resolves
	LossStreak      int
}

func (s *Simulation) teamCredits(team Team) int {
	total := 0
	for _, p := range s.teamPlayers(team) {
		total += p.Credits
	}
	return total
}

// DetermineRoundType classifies the upcoming round for a team by average
// credits. Pistol rounds override everything on rounds 1 and 13.
func (s *Simulation) DetermineRoundType(team Team) RoundType {
	avg := s.teamCredits(team) / 5

	switch {
	case s.state.CurrentRound == 1 || s.state.CurrentRound == s.tune.SideSwapRound:
		return RoundPistol
	case avg < 2000:
		return RoundEco
	case avg > 4500:
		return RoundFullBuy
	case avg < 3000:
		if s.lossStreaks[team] >= 2 {
			return RoundForceBuy
		}
		return RoundEco
	default:
		return RoundAntiEco
	}
}

// PredictEnemyEconomy buckets the opposing team's average credits.
func (s *Simulation) PredictEnemyEconomy(team Team) EconomyState {
	avg := s.teamCredits(team.Opponent()) / 5
	switch {
	case avg < 2000:
		return EconomyPoor
	case avg > 4000:
		return EconomyStrong
	default:
		return EconomyModerate
	}
}

func (s *Simulation) CreateRoundContext(team Team) RoundContext {
	var prev RoundEndReason
	for i := len(s.events) - 1; i >= 0; i-- {
		if e, ok := s.events[i].(RoundEndEvent); ok {
			prev = e.Reason
			break
		}
	}
	return RoundContext{
		RoundType:     s.DetermineRoundType(team),
		TeamEconomy:   s.teamCredits(team),
		EnemyEconomy:  s.PredictEnemyEconomy(team),
		PreviousRound: prev,
		LossStreak:    s.lossStreaks[team],
	}
}

// awardRoundRewards pays both teams at round end. The loss streak changes
// once per team per round, and losing survivors have their payout capped.
func (s *Simulation) awardRoundRewards(winner Team) {
	loser := winner.Opponent()
	loserStreak := s.lossStreaks[loser]

	for _, id := range s.order {
		p := s.players[id]
		earned := 0
		if p.Team == winner {
			earned = s.tune.WinReward
		} else {
			earned = s.tune.LossReward(loserStreak)
			if p.Alive {
				if earned > s.tune.SurvivorLossCap {
					earned = s.tune.SurvivorLossCap
				}
			}
		}
		if s.spikePlanted && p.Team == TeamAttackers {
			earned += s.tune.PlantTeamBonus
		}
		p.addCredits(earned, s.tune.CreditCap)
	}

	s.lossStreaks[winner] = 0
	s.lossStreaks[loser] = loserStreak + 1
}

func (s *Simulation) awardKillBonus(killer *Player) {
	killer.addCredits(s.tune.KillReward, s.tune.CreditCap)
	killer.UltimatePoints++
}
