// Package snapshot stores a match as a compressed, versioned file: one
// JSON header line followed by a gob body, zstd-compressed. The format
// is opaque; live rewind uses the engine's in-memory checkpoints.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"fragsim.gg/internal/protocol"
	"fragsim.gg/internal/sim/match"
)

type Header struct {
	Version int    `json:"version"`
	MatchID string `json:"match_id"`
	Tick    uint64 `json:"tick"`
}

type MatchSnapshotV1 struct {
	Header Header `json:"header"`

	Seed int64 `json:"seed"`

	State   StateV1    `json:"state"`
	Players []PlayerV1 `json:"players"`
	Events  []EventV1  `json:"events"`
}

type StateV1 struct {
	ID            string  `json:"id"`
	Mode          string  `json:"mode"`
	PlaybackSpeed float64 `json:"playback_speed"`

	PhaseKind         string `json:"phase_kind"`
	PhaseRound        int    `json:"phase_round,omitempty"`
	PhaseSpikePlanted bool   `json:"phase_spike_planted,omitempty"`
	PhaseWinner       string `json:"phase_winner,omitempty"`

	Timestamp     uint64 `json:"timestamp"`
	CurrentRound  int    `json:"current_round"`
	AttackerScore int    `json:"attacker_score"`
	DefenderScore int    `json:"defender_score"`
	Overtime      bool   `json:"overtime"`
	TickCount     uint64 `json:"tick_count"`
}

type PlayerV1 struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Agent string `json:"agent"`
	Role  string `json:"role"`
	Team  string `json:"team"`

	Health         int  `json:"health"`
	Armor          int  `json:"armor"`
	Alive          bool `json:"alive"`
	Credits        int  `json:"credits"`
	UltimatePoints int  `json:"ultimate_points"`

	Primary   string   `json:"primary,omitempty"`
	Secondary string   `json:"secondary"`
	ArmorTier string   `json:"armor_tier"`
	Abilities []string `json:"abilities,omitempty"`

	Aim      float64 `json:"aim"`
	Headshot float64 `json:"headshot"`
	Movement float64 `json:"movement"`
	Utility  float64 `json:"utility"`
}

// EventV1 keeps the event payload as JSON so the gob body never needs
// per-event-type registration.
type EventV1 struct {
	Kind string `json:"kind"`
	Data []byte `json:"data"`
}

// Capture flattens a simulation into its snapshot form.
func Capture(sim *match.Simulation, seed int64) (MatchSnapshotV1, error) {
	st := sim.State()

	snap := MatchSnapshotV1{
		Header: Header{Version: 1, MatchID: st.ID.String(), Tick: st.TickCount},
		Seed:   seed,
		State: StateV1{
			ID:            st.ID.String(),
			Mode:          string(st.Mode),
			PlaybackSpeed: st.PlaybackSpeed,
			PhaseKind:     st.Phase.Kind(),
			Timestamp:     st.CurrentTimestamp,
			CurrentRound:  st.CurrentRound,
			AttackerScore: st.AttackerScore,
			DefenderScore: st.DefenderScore,
			Overtime:      st.OvertimeActive,
			TickCount:     st.TickCount,
		},
	}
	switch ph := st.Phase.(type) {
	case match.PhaseBuy:
		snap.State.PhaseRound = ph.Round
	case match.PhaseRoundActive:
		snap.State.PhaseRound = ph.Round
		snap.State.PhaseSpikePlanted = ph.SpikePlanted
	case match.PhaseRoundEnd:
		snap.State.PhaseRound = ph.Round
		snap.State.PhaseWinner = string(ph.Winner)
	case match.PhaseMatchEnd:
		snap.State.PhaseWinner = string(ph.Winner)
	}

	for _, p := range sim.Players() {
		snap.Players = append(snap.Players, PlayerV1{
			ID:             p.ID,
			Name:           p.Name,
			Agent:          p.Agent,
			Role:           string(p.Role),
			Team:           string(p.Team),
			Health:         p.Health,
			Armor:          p.Armor,
			Alive:          p.Alive,
			Credits:        p.Credits,
			UltimatePoints: p.UltimatePoints,
			Primary:        p.Loadout.Primary,
			Secondary:      p.Loadout.Secondary,
			ArmorTier:      string(p.Loadout.Armor),
			Abilities:      append([]string(nil), p.Loadout.Abilities...),
			Aim:            p.Skills.Aim,
			Headshot:       p.Skills.Headshot,
			Movement:       p.Skills.Movement,
			Utility:        p.Skills.Utility,
		})
	}

	for _, e := range sim.Events() {
		msg, err := protocol.EncodeEvent(e)
		if err != nil {
			return MatchSnapshotV1{}, err
		}
		snap.Events = append(snap.Events, EventV1{Kind: msg.Kind, Data: msg.Data})
	}

	return snap, nil
}

func WriteSnapshot(path string, snap MatchSnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (MatchSnapshotV1, error) {
	var snap MatchSnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; the gob body repeats it.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
