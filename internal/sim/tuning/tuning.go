package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickQuantumMs int `yaml:"tick_quantum_ms"`

	BuyPhaseMs         int `yaml:"buy_phase_ms"`
	BuyDecisionDelayMs int `yaml:"buy_decision_delay_ms"`

	RoundTimerMs    int     `yaml:"round_timer_ms"`
	SpikeFuseMs     int     `yaml:"spike_fuse_ms"`
	PlantAfterMs    int     `yaml:"plant_after_ms"`
	PlantChance     float64 `yaml:"plant_chance"`
	DefuseChance    float64 `yaml:"defuse_chance"`
	RoundEndPauseMs int     `yaml:"round_end_pause_ms"`

	StartingCredits int   `yaml:"starting_credits"`
	CreditCap       int   `yaml:"credit_cap"`
	WinReward       int   `yaml:"win_reward"`
	LossRewards     []int `yaml:"loss_rewards"` // indexed by loss streak, last repeats
	SurvivorLossCap int   `yaml:"survivor_loss_cap"`
	PlantTeamBonus  int   `yaml:"plant_team_bonus"`
	KillReward      int   `yaml:"kill_reward"`

	SideSwapRound int `yaml:"side_swap_round"`
	WinScore      int `yaml:"win_score"`
	WinMargin     int `yaml:"win_margin"`

	MinSpeed float64 `yaml:"min_speed"`
	MaxSpeed float64 `yaml:"max_speed"`

	MaxTicksPerRound int `yaml:"max_ticks_per_round"`
	MaxTicksPerMatch int `yaml:"max_ticks_per_match"`

	EngagementMinM float64 `yaml:"engagement_min_m"`
	EngagementMaxM float64 `yaml:"engagement_max_m"`
}

func Defaults() Tuning {
	return Tuning{
		TickQuantumMs: 500,

		BuyPhaseMs:         30_000,
		BuyDecisionDelayMs: 1000,

		RoundTimerMs:    100_000,
		SpikeFuseMs:     45_000,
		PlantAfterMs:    30_000,
		PlantChance:     0.15,
		DefuseChance:    0.05,
		RoundEndPauseMs: 2000,

		StartingCredits: 800,
		CreditCap:       9000,
		WinReward:       3000,
		LossRewards:     []int{1900, 2400, 2900},
		SurvivorLossCap: 1000,
		PlantTeamBonus:  300,
		KillReward:      200,

		SideSwapRound: 13,
		WinScore:      13,
		WinMargin:     2,

		MinSpeed: 0.1,
		MaxSpeed: 5.0,

		MaxTicksPerRound: 2000,
		MaxTicksPerMatch: 50_000,

		EngagementMinM: 10,
		EngagementMaxM: 50,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickQuantumMs <= 0 {
		return fmt.Errorf("tick_quantum_ms must be positive")
	}
	if len(t.LossRewards) == 0 {
		return fmt.Errorf("loss_rewards must not be empty")
	}
	if t.MinSpeed <= 0 || t.MaxSpeed < t.MinSpeed {
		return fmt.Errorf("bad speed clamp [%v, %v]", t.MinSpeed, t.MaxSpeed)
	}
	if t.MaxTicksPerRound <= 0 || t.MaxTicksPerMatch <= 0 {
		return fmt.Errorf("tick ceilings must be positive")
	}
	return nil
}

// LossReward returns the loss payout for the given streak before the loss.
func (t Tuning) LossReward(streak int) int {
	if streak < 0 {
		streak = 0
	}
	if streak >= len(t.LossRewards) {
		streak = len(t.LossRewards) - 1
	}
	return t.LossRewards[streak]
}
