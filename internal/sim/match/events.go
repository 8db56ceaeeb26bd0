package match

// Event kinds as they appear in filters and on the wire.
const (
	KindMatchStart    = "MatchStart"
	KindMatchEnd      = "MatchEnd"
	KindBuyPhaseStart = "BuyPhaseStart"
	KindBuyPhaseEnd   = "BuyPhaseEnd"
	KindRoundStart    = "RoundStart"
	KindRoundEnd      = "RoundEnd"
	KindKill          = "Kill"
	KindDamage        = "Damage"
	KindSpikePlant    = "SpikePlant"
	KindSpikeDefuse   = "SpikeDefuse"
	KindAbilityUsed   = "AbilityUsed"
	KindSideSwap      = "SideSwap"
)

// Event is the closed union of everything the engine records. Only types
// in this package implement it.
type Event interface {
	isEvent()
	Kind() string
	When() uint64
	RoundNumber() int
	// players lists the player ids an event references, for filtering.
	players() []int
}

type eventMeta struct {
	Timestamp uint64 `json:"timestamp"`
	Round     int    `json:"round"`
}

func (eventMeta) isEvent()           {}
func (m eventMeta) When() uint64     { return m.Timestamp }
func (m eventMeta) RoundNumber() int { return m.Round }
func (eventMeta) players() []int     { return nil }

type MatchStartEvent struct {
	eventMeta
}

type MatchEndEvent struct {
	eventMeta
	Winner        Team `json:"winner"`
	AttackerScore int  `json:"attacker_score"`
	DefenderScore int  `json:"defender_score"`
}

type BuyPhaseStartEvent struct {
	eventMeta
}

type BuyPhaseEndEvent struct {
	eventMeta
}

type RoundStartEvent struct {
	eventMeta
	AttackerCredits int `json:"attacker_credits"`
	DefenderCredits int `json:"defender_credits"`
}

type RoundEndEvent struct {
	eventMeta
	Winner Team           `json:"winner"`
	Reason RoundEndReason `json:"reason"`
}

type KillEvent struct {
	eventMeta
	KillerID int    `json:"killer_id"`
	VictimID int    `json:"victim_id"`
	Weapon   string `json:"weapon"`
	Headshot bool   `json:"headshot"`
}

type DamageEvent struct {
	eventMeta
	AttackerID int    `json:"attacker_id"`
	VictimID   int    `json:"victim_id"`
	Amount     int    `json:"amount"`
	Weapon     string `json:"weapon"`
	Headshot   bool   `json:"headshot"`
}

type SpikePlantEvent struct {
	eventMeta
	PlanterID int `json:"planter_id"`
}

type SpikeDefuseEvent struct {
	eventMeta
	DefuserID  int  `json:"defuser_id"`
	Successful bool `json:"successful"`
}

type AbilityUsedEvent struct {
	eventMeta
	PlayerID int    `json:"player_id"`
	Ability  string `json:"ability"`
}

type SideSwapEvent struct {
	eventMeta
}

func (MatchStartEvent) Kind() string    { return KindMatchStart }
func (MatchEndEvent) Kind() string      { return KindMatchEnd }
func (BuyPhaseStartEvent) Kind() string { return KindBuyPhaseStart }
func (BuyPhaseEndEvent) Kind() string   { return KindBuyPhaseEnd }
func (RoundStartEvent) Kind() string    { return KindRoundStart }
func (RoundEndEvent) Kind() string      { return KindRoundEnd }
func (KillEvent) Kind() string          { return KindKill }
func (DamageEvent) Kind() string        { return KindDamage }
func (SpikePlantEvent) Kind() string    { return KindSpikePlant }
func (SpikeDefuseEvent) Kind() string   { return KindSpikeDefuse }
func (AbilityUsedEvent) Kind() string   { return KindAbilityUsed }
func (SideSwapEvent) Kind() string      { return KindSideSwap }

func (e KillEvent) players() []int        { return []int{e.KillerID, e.VictimID} }
func (e DamageEvent) players() []int      { return []int{e.AttackerID, e.VictimID} }
func (e SpikePlantEvent) players() []int  { return []int{e.PlanterID} }
func (e SpikeDefuseEvent) players() []int { return []int{e.DefuserID} }
func (e AbilityUsedEvent) players() []int { return []int{e.PlayerID} }

// EventFilter selects events. Nil or empty slices mean "no constraint";
// timestamp bounds are inclusive.
type EventFilter struct {
	Kinds     []string
	PlayerIDs []int
	Rounds    []int
	Since     *uint64
	Until     *uint64
}

func (f EventFilter) matches(e Event) bool {
	if len(f.Kinds) > 0 && !containsString(f.Kinds, e.Kind()) {
		return false
	}
	if len(f.Rounds) > 0 && !containsInt(f.Rounds, e.RoundNumber()) {
		return false
	}
	if len(f.PlayerIDs) > 0 {
		hit := false
		for _, id := range e.players() {
			if containsInt(f.PlayerIDs, id) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.Since != nil && e.When() < *f.Since {
		return false
	}
	if f.Until != nil && e.When() > *f.Until {
		return false
	}
	return true
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func containsInt(xs []int, n int) bool {
	for _, x := range xs {
		if x == n {
			return true
		}
	}
	return false
}

// PlayerStats are derived entirely from the event log plus current credit
// and ultimate totals.
type PlayerStats struct {
	PlayerID           int     `json:"player_id"`
	Kills              int     `json:"kills"`
	Deaths             int     `json:"deaths"`
	DamageDealt        int     `json:"damage_dealt"`
	HeadshotPercentage float64 `json:"headshot_percentage"`
	Credits            int     `json:"credits"`
	UltimatePoints     int     `json:"ultimate_points"`
}

func statsFromEvents(events []Event, p *Player) PlayerStats {
	var kills, deaths, headshots, damage int
	for _, e := range events {
		switch ev := e.(type) {
		case KillEvent:
			if ev.KillerID == p.ID {
				kills++
				if ev.Headshot {
					headshots++
				}
			}
			if ev.VictimID == p.ID {
				deaths++
			}
		case DamageEvent:
			if ev.AttackerID == p.ID {
				damage += ev.Amount
			}
		}
	}
	hsPct := 0.0
	if kills > 0 {
		hsPct = float64(headshots) / float64(kills) * 100
	}
	return PlayerStats{
		PlayerID:           p.ID,
		Kills:              kills,
		Deaths:             deaths,
		DamageDealt:        damage,
		HeadshotPercentage: hsPct,
		Credits:            p.Credits,
		UltimatePoints:     p.UltimatePoints,
	}
}

// RoundSummary condenses one round's slice of the event log.
type RoundSummary struct {
	Round       int             `json:"round"`
	Winner      Team            `json:"winner,omitempty"`
	Reason      RoundEndReason  `json:"reason,omitempty"`
	Kills       int             `json:"kills"`
	EventsCount int             `json:"events_count"`
}

func summarizeRound(events []Event, round int) RoundSummary {
	out := RoundSummary{Round: round}
	for _, e := range events {
		if e.RoundNumber() != round {
			continue
		}
		out.EventsCount++
		switch ev := e.(type) {
		case RoundEndEvent:
			out.Winner = ev.Winner
			out.Reason = ev.Reason
		case KillEvent:
			out.Kills++
		}
	}
	return out
}
