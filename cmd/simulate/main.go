// Command simulate runs one match offline and prints the result. It can
// also inspect a snapshot written by the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"fragsim.gg/internal/persistence/snapshot"
	"fragsim.gg/internal/protocol"
	"fragsim.gg/internal/sim/catalogs"
	"fragsim.gg/internal/sim/match"
	"fragsim.gg/internal/sim/tuning"
)

func main() {
	var (
		seed        = flag.Int64("seed", 1337, "match seed")
		configDir   = flag.String("configs", "./configs", "config directory")
		rosterPath  = flag.String("roster", "", "roster JSON file (default: built-in ten)")
		outPath     = flag.String("out", "", "write final snapshot to this path (optional)")
		printEvents = flag.Bool("events", false, "print the full event stream")
		inspectPath = flag.String("inspect", "", "print a snapshot file and exit")
	)
	flag.Parse()

	if *inspectPath != "" {
		inspect(*inspectPath)
		return
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tune, err := tuning.Load(*configDir + "/tuning.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	roster, err := loadRoster(*rosterPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load roster:", err)
		os.Exit(1)
	}

	sim := match.New(match.Config{Seed: *seed, Catalogs: cats, Tuning: tune})
	for _, p := range roster {
		skills := match.NewSkills(p.Aim, p.Headshot, p.Movement, p.Utility)
		if _, err := sim.AddPlayer(p.ID, p.Name, p.Agent, match.Team(p.Team), skills); err != nil {
			fmt.Fprintf(os.Stderr, "add player %d: %v\n", p.ID, err)
			os.Exit(1)
		}
	}

	if err := sim.RunToCompletion(); err != nil {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}

	printResult(sim, *printEvents)

	if *outPath != "" {
		snap, err := snapshot.Capture(sim, *seed)
		if err != nil {
			fmt.Fprintln(os.Stderr, "capture snapshot:", err)
			os.Exit(1)
		}
		if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
			fmt.Fprintln(os.Stderr, "write snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot written to %s\n", *outPath)
	}
}

func loadRoster(path string) ([]protocol.PlayerSpec, error) {
	if path == "" {
		return defaultRoster(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var roster []protocol.PlayerSpec
	if err := json.Unmarshal(b, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

func defaultRoster() []protocol.PlayerSpec {
	attackers := []string{"JETT", "SOVA", "OMEN", "SAGE", "RAZE"}
	defenders := []string{"PHOENIX", "BREACH", "VIPER", "CYPHER", "NEON"}

	var out []protocol.PlayerSpec
	for i, agent := range attackers {
		out = append(out, protocol.PlayerSpec{
			ID: i + 1, Name: agent, Agent: agent, Team: string(match.TeamAttackers),
			Aim: 0.7, Headshot: 0.4, Movement: 0.6, Utility: 0.5,
		})
	}
	for i, agent := range defenders {
		out = append(out, protocol.PlayerSpec{
			ID: i + 6, Name: agent, Agent: agent, Team: string(match.TeamDefenders),
			Aim: 0.65, Headshot: 0.35, Movement: 0.6, Utility: 0.5,
		})
	}
	return out
}

func printResult(sim *match.Simulation, printEvents bool) {
	st := sim.State()

	if printEvents {
		for _, e := range sim.Events() {
			msg, err := protocol.EncodeEvent(e)
			if err != nil {
				continue
			}
			fmt.Printf("%-14s %s\n", msg.Kind, msg.Data)
		}
	} else {
		var atk, def int
		for _, e := range sim.FilteredEvents(match.EventFilter{Kinds: []string{"RoundEnd"}}) {
			re, ok := e.(match.RoundEndEvent)
			if !ok {
				continue
			}
			switch re.Winner {
			case match.TeamAttackers:
				atk++
			case match.TeamDefenders:
				def++
			}
			fmt.Printf("round %2d: %s (%s) %d-%d\n", re.Round, re.Winner, re.Reason, atk, def)
		}
	}

	winner := "?"
	if end, ok := st.Phase.(match.PhaseMatchEnd); ok {
		winner = string(end.Winner)
	}
	fmt.Printf("\nfinal: %s wins %d-%d (overtime=%v, ticks=%d)\n",
		winner, st.AttackerScore, st.DefenderScore, st.OvertimeActive, st.TickCount)

	fmt.Println("\nplayer          team       K  D   dmg   hs%  credits")
	for _, ps := range sim.PlayerStats() {
		p, ok := sim.Player(ps.PlayerID)
		if !ok {
			continue
		}
		fmt.Printf("%-15s %-9s %2d %2d %5d %5.1f %8d\n",
			p.Name, p.Team, ps.Kills, ps.Deaths, ps.DamageDealt, ps.HeadshotPercentage, ps.Credits)
	}
}

func inspect(path string) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d match=%s tick=%d seed=%d players=%d events=%d\n",
		snap.Header.Version, snap.Header.MatchID, snap.Header.Tick, snap.Seed,
		len(snap.Players), len(snap.Events))
	fmt.Printf("state: phase=%s round=%d score=%d-%d overtime=%v\n",
		snap.State.PhaseKind, snap.State.CurrentRound,
		snap.State.AttackerScore, snap.State.DefenderScore, snap.State.Overtime)
}
