package protocol

import (
	"encoding/json"
	"fmt"

	"fragsim.gg/internal/sim/match"
)

// HTTP façade requests.

type PlayerSpec struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Agent    string  `json:"agent"`
	Team     string  `json:"team"`
	Aim      float64 `json:"aim"`
	Headshot float64 `json:"headshot"`
	Movement float64 `json:"movement"`
	Utility  float64 `json:"utility"`
}

type CreateRequest struct {
	Seed    int64        `json:"seed"`
	Players []PlayerSpec `json:"players"`
}

type AdvanceRequest struct {
	Mode  string `json:"mode"` // "tick" | "ticks" | "round" | "match"
	Ticks int    `json:"ticks,omitempty"`
}

type ControlRequest struct {
	Action string  `json:"action"` // "pause" | "resume" | "set_speed"
	Speed  float64 `json:"speed,omitempty"`
}

type RestoreRequest struct {
	Tick uint64 `json:"tick"`
}

// EventsQuery mirrors the event filter axes; zero values mean no
// constraint.
type EventsQuery struct {
	Kinds     []string `json:"kinds,omitempty"`
	PlayerIDs []int    `json:"player_ids,omitempty"`
	Rounds    []int    `json:"rounds,omitempty"`
	Since     *uint64  `json:"since,omitempty"`
	Until     *uint64  `json:"until,omitempty"`
}

func (q EventsQuery) Filter() match.EventFilter {
	return match.EventFilter{
		Kinds:     q.Kinds,
		PlayerIDs: q.PlayerIDs,
		Rounds:    q.Rounds,
		Since:     q.Since,
		Until:     q.Until,
	}
}

// Responses.

type PhaseMsg struct {
	Kind          string `json:"kind"`
	Round         int    `json:"round,omitempty"`
	SpikePlanted  bool   `json:"spike_planted,omitempty"`
	Winner        string `json:"winner,omitempty"`
	AttackerScore int    `json:"attacker_score,omitempty"`
	DefenderScore int    `json:"defender_score,omitempty"`
}

type StateMsg struct {
	ID            string   `json:"id"`
	Mode          string   `json:"mode"`
	Phase         PhaseMsg `json:"phase"`
	PlaybackSpeed float64  `json:"playback_speed"`
	Timestamp     uint64   `json:"timestamp"`
	CurrentRound  int      `json:"current_round"`
	AttackerScore int      `json:"attacker_score"`
	DefenderScore int      `json:"defender_score"`
	Overtime      bool     `json:"overtime"`
	TickCount     uint64   `json:"tick_count"`
}

func StateFromMatch(st match.State) StateMsg {
	msg := StateMsg{
		ID:            st.ID.String(),
		Mode:          string(st.Mode),
		PlaybackSpeed: st.PlaybackSpeed,
		Timestamp:     st.CurrentTimestamp,
		CurrentRound:  st.CurrentRound,
		AttackerScore: st.AttackerScore,
		DefenderScore: st.DefenderScore,
		Overtime:      st.OvertimeActive,
		TickCount:     st.TickCount,
	}
	msg.Phase = PhaseMsg{Kind: st.Phase.Kind()}
	switch ph := st.Phase.(type) {
	case match.PhaseBuy:
		msg.Phase.Round = ph.Round
	case match.PhaseRoundActive:
		msg.Phase.Round = ph.Round
		msg.Phase.SpikePlanted = ph.SpikePlanted
	case match.PhaseRoundEnd:
		msg.Phase.Round = ph.Round
		msg.Phase.Winner = string(ph.Winner)
	case match.PhaseMatchEnd:
		msg.Phase.Winner = string(ph.Winner)
		msg.Phase.AttackerScore = ph.AttackerScore
		msg.Phase.DefenderScore = ph.DefenderScore
	}
	return msg
}

// EventMsg wraps one engine event with its kind for the wire.
type EventMsg struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func EncodeEvent(e match.Event) (EventMsg, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return EventMsg{}, fmt.Errorf("encode %s event: %w", e.Kind(), err)
	}
	return EventMsg{Kind: e.Kind(), Data: raw}, nil
}

func EncodeEvents(events []match.Event) ([]EventMsg, error) {
	out := make([]EventMsg, 0, len(events))
	for _, e := range events {
		msg, err := EncodeEvent(e)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CheckpointMsg struct {
	Tick uint64 `json:"tick"`
}

type CheckpointListMsg struct {
	Ticks []uint64 `json:"ticks"`
}

type SimListMsg struct {
	IDs []string `json:"ids"`
}
