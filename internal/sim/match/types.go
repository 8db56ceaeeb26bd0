package match

import "github.com/google/uuid"

type Team string

const (
	TeamAttackers Team = "ATTACKERS"
	TeamDefenders Team = "DEFENDERS"
)

func (t Team) Opponent() Team {
	if t == TeamAttackers {
		return TeamDefenders
	}
	return TeamAttackers
}

func (t Team) Valid() bool {
	return t == TeamAttackers || t == TeamDefenders
}

type Role string

const (
	RoleDuelist    Role = "DUELIST"
	RoleInitiator  Role = "INITIATOR"
	RoleController Role = "CONTROLLER"
	RoleSentinel   Role = "SENTINEL"
)

type ArmorTier string

const (
	ArmorNone  ArmorTier = "NONE"
	ArmorLight ArmorTier = "LIGHT"
	ArmorHeavy ArmorTier = "HEAVY"
)

const (
	armorLightCost = 400
	armorHeavyCost = 1000
)

// Points returns the shield points granted at round start.
func (a ArmorTier) Points() int {
	switch a {
	case ArmorLight:
		return 25
	case ArmorHeavy:
		return 50
	default:
		return 0
	}
}

// DamageColumn indexes the per-armor damage triple in the weapon catalog.
func (a ArmorTier) DamageColumn() int {
	switch a {
	case ArmorLight:
		return 1
	case ArmorHeavy:
		return 2
	default:
		return 0
	}
}

type BodyPart string

const (
	PartHead BodyPart = "HEAD"
	PartBody BodyPart = "BODY"
	PartLegs BodyPart = "LEGS"
)

type RoundType string

const (
	RoundPistol   RoundType = "PISTOL"
	RoundEco      RoundType = "ECO"
	RoundAntiEco  RoundType = "ANTI_ECO"
	RoundFullBuy  RoundType = "FULL_BUY"
	RoundForceBuy RoundType = "FORCE_BUY"
)

type EconomyState string

const (
	EconomyPoor     EconomyState = "POOR"
	EconomyModerate EconomyState = "MODERATE"
	EconomyStrong   EconomyState = "STRONG"
)

type TeamStrategy string

const (
	StrategyFullSave TeamStrategy = "FULL_SAVE"
	StrategyEcoFrag  TeamStrategy = "ECO_FRAG"
	StrategyHalfBuy  TeamStrategy = "HALF_BUY"
	StrategyFullBuy  TeamStrategy = "FULL_BUY"
	StrategyForceBuy TeamStrategy = "FORCE_BUY"
)

type RoundEndReason string

const (
	ReasonAttackersEliminated RoundEndReason = "ALL_ATTACKERS_ELIMINATED"
	ReasonDefendersEliminated RoundEndReason = "ALL_DEFENDERS_ELIMINATED"
	ReasonSpikeDetonated      RoundEndReason = "SPIKE_DETONATED"
	ReasonSpikeDefused        RoundEndReason = "SPIKE_DEFUSED"
	ReasonTimeExpired         RoundEndReason = "TIME_EXPIRED"
)

type Mode string

const (
	ModePaused      Mode = "PAUSED"
	ModePlaying     Mode = "PLAYING"
	ModeFastForward Mode = "FAST_FORWARD"
)

// Phase is the match phase union. Implementations are the only valid
// phases; switch over them exhaustively.
type Phase interface {
	isPhase()
	Kind() string
}

type PhaseNotStarted struct{}

type PhaseBuy struct {
	Round int
}

type PhaseRoundActive struct {
	Round        int
	SpikePlanted bool
}

type PhaseRoundEnd struct {
	Round  int
	Winner Team
}

type PhaseMatchEnd struct {
	Winner        Team
	AttackerScore int
	DefenderScore int
}

func (PhaseNotStarted) isPhase()  {}
func (PhaseBuy) isPhase()         {}
func (PhaseRoundActive) isPhase() {}
func (PhaseRoundEnd) isPhase()    {}
func (PhaseMatchEnd) isPhase()    {}

func (PhaseNotStarted) Kind() string  { return "NOT_STARTED" }
func (PhaseBuy) Kind() string         { return "BUY_PHASE" }
func (PhaseRoundActive) Kind() string { return "ROUND_ACTIVE" }
func (PhaseRoundEnd) Kind() string    { return "ROUND_END" }
func (PhaseMatchEnd) Kind() string    { return "MATCH_END" }

// State is the externally visible simulation state.
type State struct {
	ID            uuid.UUID
	Mode          Mode
	Phase         Phase
	PlaybackSpeed float64

	CurrentTimestamp uint64 // virtual ms since match creation
	CurrentRound     int
	AttackerScore    int
	DefenderScore    int
	OvertimeActive   bool
	TickCount        uint64
}
