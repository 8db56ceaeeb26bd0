package match

import "testing"

func setTeamCredits(s *Simulation, team Team, credits int) {
	for _, p := range s.teamPlayers(team) {
		p.Credits = credits
	}
}

func TestDetermineRoundType_PistolRounds(t *testing.T) {
	s := newTestSim(t, 1)
	setTeamCredits(s, TeamAttackers, 9000)

	s.state.CurrentRound = 1
	if got := s.DetermineRoundType(TeamAttackers); got != RoundPistol {
		t.Fatalf("round 1: %s", got)
	}
	s.state.CurrentRound = 13
	if got := s.DetermineRoundType(TeamAttackers); got != RoundPistol {
		t.Fatalf("round 13: %s", got)
	}
	s.state.CurrentRound = 2
	if got := s.DetermineRoundType(TeamAttackers); got == RoundPistol {
		t.Fatal("round 2 classified pistol")
	}
}

func TestDetermineRoundType_CreditBands(t *testing.T) {
	s := newTestSim(t, 2)
	s.state.CurrentRound = 5

	cases := []struct {
		avg    int
		streak int
		want   RoundType
	}{
		{1500, 0, RoundEco},
		{4600, 0, RoundFullBuy},
		{2500, 2, RoundForceBuy},
		{2500, 0, RoundEco},
		{3500, 0, RoundAntiEco},
	}
	for _, tc := range cases {
		setTeamCredits(s, TeamAttackers, tc.avg)
		s.lossStreaks[TeamAttackers] = tc.streak
		if got := s.DetermineRoundType(TeamAttackers); got != tc.want {
			t.Fatalf("avg=%d streak=%d: %s, want %s", tc.avg, tc.streak, got, tc.want)
		}
	}
}

func TestPredictEnemyEconomy(t *testing.T) {
	s := newTestSim(t, 3)

	setTeamCredits(s, TeamDefenders, 1200)
	if got := s.PredictEnemyEconomy(TeamAttackers); got != EconomyPoor {
		t.Fatalf("poor: %s", got)
	}
	setTeamCredits(s, TeamDefenders, 3000)
	if got := s.PredictEnemyEconomy(TeamAttackers); got != EconomyModerate {
		t.Fatalf("moderate: %s", got)
	}
	setTeamCredits(s, TeamDefenders, 5000)
	if got := s.PredictEnemyEconomy(TeamAttackers); got != EconomyStrong {
		t.Fatalf("strong: %s", got)
	}
}

func TestCreateRoundContext_ReadsLastRoundEnd(t *testing.T) {
	s := newTestSim(t, 4)
	s.events = append(s.events,
		RoundEndEvent{eventMeta: eventMeta{Timestamp: 100, Round: 1}, Winner: TeamAttackers, Reason: ReasonSpikeDetonated},
		RoundEndEvent{eventMeta: eventMeta{Timestamp: 200, Round: 2}, Winner: TeamDefenders, Reason: ReasonTimeExpired},
	)
	ctx := s.CreateRoundContext(TeamAttackers)
	if ctx.PreviousRound != ReasonTimeExpired {
		t.Fatalf("previous round reason %s", ctx.PreviousRound)
	}
}

func TestAwardRoundRewards_LossStreakProgression(t *testing.T) {
	s := newTestSim(t, 5)
	for _, p := range s.teamPlayers(TeamDefenders) {
		p.Alive = false
	}

	want := []int{1900, 2400, 2900, 2900}
	for i, w := range want {
		setTeamCredits(s, TeamAttackers, 0)
		setTeamCredits(s, TeamDefenders, 0)
		s.awardRoundRewards(TeamAttackers)

		for _, p := range s.teamPlayers(TeamAttackers) {
			if p.Credits != 3000 {
				t.Fatalf("loss %d: winner earned %d", i+1, p.Credits)
			}
		}
		for _, p := range s.teamPlayers(TeamDefenders) {
			if p.Credits != w {
				t.Fatalf("loss %d: loser earned %d, want %d", i+1, p.Credits, w)
			}
		}
	}
	if s.lossStreaks[TeamDefenders] != 4 {
		t.Fatalf("loser streak %d", s.lossStreaks[TeamDefenders])
	}
	if s.lossStreaks[TeamAttackers] != 0 {
		t.Fatalf("winner streak %d", s.lossStreaks[TeamAttackers])
	}
}

func TestAwardRoundRewards_WinResetsStreak(t *testing.T) {
	s := newTestSim(t, 6)
	s.lossStreaks[TeamAttackers] = 3
	s.awardRoundRewards(TeamAttackers)
	if s.lossStreaks[TeamAttackers] != 0 {
		t.Fatalf("winner streak not reset: %d", s.lossStreaks[TeamAttackers])
	}
}

func TestAwardRoundRewards_SurvivorCap(t *testing.T) {
	s := newTestSim(t, 7)
	setTeamCredits(s, TeamDefenders, 0)
	survivor := s.teamPlayers(TeamDefenders)[0]
	for _, p := range s.teamPlayers(TeamDefenders) {
		p.Alive = p == survivor
	}

	s.awardRoundRewards(TeamAttackers)

	for _, p := range s.teamPlayers(TeamDefenders) {
		want := 1900
		if p == survivor {
			want = 1000
		}
		if p.Credits != want {
			t.Fatalf("player %d earned %d, want %d", p.ID, p.Credits, want)
		}
	}
}

func TestAwardRoundRewards_PlantBonus(t *testing.T) {
	s := newTestSim(t, 8)
	setTeamCredits(s, TeamAttackers, 0)
	for _, p := range s.teamPlayers(TeamAttackers) {
		p.Alive = false
	}
	s.spikePlanted = true

	// Attackers lose the round but still collect the plant bonus.
	s.awardRoundRewards(TeamDefenders)

	for _, p := range s.teamPlayers(TeamAttackers) {
		if p.Credits != 1900+300 {
			t.Fatalf("attacker earned %d, want 2200", p.Credits)
		}
	}
}

func TestAwardRoundRewards_CreditCap(t *testing.T) {
	s := newTestSim(t, 9)
	setTeamCredits(s, TeamAttackers, 8500)
	s.awardRoundRewards(TeamAttackers)
	for _, p := range s.teamPlayers(TeamAttackers) {
		if p.Credits != 9000 {
			t.Fatalf("winner credits %d, want cap 9000", p.Credits)
		}
	}
}

func TestAwardKillBonus(t *testing.T) {
	s := newTestSim(t, 10)
	p, _ := s.Player(1)
	p.Credits = 8950
	p.UltimatePoints = 2

	s.awardKillBonus(p)
	if p.Credits != 9000 {
		t.Fatalf("credits %d, want clamp at 9000", p.Credits)
	}
	if p.UltimatePoints != 3 {
		t.Fatalf("ultimate points %d", p.UltimatePoints)
	}
}
