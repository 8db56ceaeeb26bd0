// Package indexdb archives completed matches into sqlite. All writes go
// through a single writer goroutine fed by a bounded channel, so the
// serving path never blocks on disk.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"fragsim.gg/internal/sim/match"
)

type MatchArchive struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	drops  atomic.Uint64
}

type reqKind int

const (
	reqMatch reqKind = iota + 1
)

type req struct {
	kind reqKind

	match   matchRow
	players []playerRow
}

type matchRow struct {
	ID            string
	Seed          int64
	Winner        string
	AttackerScore int
	DefenderScore int
	Rounds        int
	Overtime      bool
	DurationMs    uint64
	Ticks         uint64
	SnapshotPath  string
	RecordedAt    string
}

type playerRow struct {
	MatchID        string
	PlayerID       int
	Name           string
	Agent          string
	Role           string
	Team           string
	Kills          int
	Deaths         int
	DamageDealt    int
	HeadshotPct    float64
	Credits        int
	UltimatePoints int
}

func Open(path string) (*MatchArchive, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &MatchArchive{
		db: db,
		ch: make(chan req, 1024),
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.loop()
	}()
	return a, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			winner TEXT NOT NULL,
			attacker_score INTEGER NOT NULL,
			defender_score INTEGER NOT NULL,
			rounds INTEGER NOT NULL,
			overtime INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			snapshot_path TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_recorded_at ON matches(recorded_at);`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			agent TEXT NOT NULL,
			role TEXT NOT NULL,
			team TEXT NOT NULL,
			kills INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			damage_dealt INTEGER NOT NULL,
			headshot_pct REAL NOT NULL,
			credits INTEGER NOT NULL,
			ultimate_points INTEGER NOT NULL,
			PRIMARY KEY (match_id, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_agent ON match_players(agent);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (a *MatchArchive) Close() error {
	var err error
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
		a.wg.Wait()
		err = a.db.Close()
	})
	return err
}

// RecordMatch enqueues a finished simulation for archiving. The write is
// dropped when the queue is full; drops are counted.
func (a *MatchArchive) RecordMatch(sim *match.Simulation, seed int64, snapshotPath string) {
	if a == nil || a.closed.Load() {
		return
	}

	st := sim.State()
	winner := ""
	if end, ok := st.Phase.(match.PhaseMatchEnd); ok {
		winner = string(end.Winner)
	}

	r := req{
		kind: reqMatch,
		match: matchRow{
			ID:            st.ID.String(),
			Seed:          seed,
			Winner:        winner,
			AttackerScore: st.AttackerScore,
			DefenderScore: st.DefenderScore,
			Rounds:        st.AttackerScore + st.DefenderScore,
			Overtime:      st.OvertimeActive,
			DurationMs:    st.CurrentTimestamp,
			Ticks:         st.TickCount,
			SnapshotPath:  snapshotPath,
			RecordedAt:    time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	players := sim.Players()
	byID := make(map[int]*match.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, ps := range sim.PlayerStats() {
		p := byID[ps.PlayerID]
		if p == nil {
			continue
		}
		r.players = append(r.players, playerRow{
			MatchID:        st.ID.String(),
			PlayerID:       ps.PlayerID,
			Name:           p.Name,
			Agent:          p.Agent,
			Role:           string(p.Role),
			Team:           string(p.Team),
			Kills:          ps.Kills,
			Deaths:         ps.Deaths,
			DamageDealt:    ps.DamageDealt,
			HeadshotPct:    ps.HeadshotPercentage,
			Credits:        ps.Credits,
			UltimatePoints: ps.UltimatePoints,
		})
	}

	select {
	case a.ch <- r:
	default:
		a.drops.Add(1)
	}
}

// QueueStats reports writer backlog and drop totals.
type QueueStats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
}

func (a *MatchArchive) Stats() QueueStats {
	if a == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:    len(a.ch),
		QueueCapacity: cap(a.ch),
		DropTotal:     a.drops.Load(),
	}
}

// Flush waits for the queue to drain and the open tx to commit. Test and
// shutdown helper.
func (a *MatchArchive) Flush(ctx context.Context) error {
	for {
		if len(a.ch) == 0 {
			// One extra beat for the in-flight request and commit.
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			if len(a.ch) == 0 {
				return nil
			}
			continue
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// MatchRecord is a row from the matches table.
type MatchRecord struct {
	ID            string `json:"id"`
	Seed          int64  `json:"seed"`
	Winner        string `json:"winner"`
	AttackerScore int    `json:"attacker_score"`
	DefenderScore int    `json:"defender_score"`
	Rounds        int    `json:"rounds"`
	Overtime      bool   `json:"overtime"`
	DurationMs    uint64 `json:"duration_ms"`
	Ticks         uint64 `json:"ticks"`
	SnapshotPath  string `json:"snapshot_path,omitempty"`
	RecordedAt    string `json:"recorded_at"`
}

// PlayerRecord is a row from the match_players table.
type PlayerRecord struct {
	MatchID        string  `json:"match_id"`
	PlayerID       int     `json:"player_id"`
	Name           string  `json:"name"`
	Agent          string  `json:"agent"`
	Role           string  `json:"role"`
	Team           string  `json:"team"`
	Kills          int     `json:"kills"`
	Deaths         int     `json:"deaths"`
	DamageDealt    int     `json:"damage_dealt"`
	HeadshotPct    float64 `json:"headshot_pct"`
	Credits        int     `json:"credits"`
	UltimatePoints int     `json:"ultimate_points"`
}

// Matches returns archived matches, newest first.
func (a *MatchArchive) Matches(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT id,seed,winner,attacker_score,defender_score,rounds,overtime,duration_ms,ticks,COALESCE(snapshot_path,''),recorded_at
		 FROM matches ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var m MatchRecord
		var overtime int
		var duration, ticks int64
		if err := rows.Scan(&m.ID, &m.Seed, &m.Winner, &m.AttackerScore, &m.DefenderScore,
			&m.Rounds, &overtime, &duration, &ticks, &m.SnapshotPath, &m.RecordedAt); err != nil {
			return nil, err
		}
		m.Overtime = overtime != 0
		m.DurationMs = uint64(duration)
		m.Ticks = uint64(ticks)
		out = append(out, m)
	}
	return out, rows.Err()
}

// PlayersFor returns the per-player stat lines for one archived match.
func (a *MatchArchive) PlayersFor(ctx context.Context, matchID string) ([]PlayerRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT match_id,player_id,name,agent,role,team,kills,deaths,damage_dealt,headshot_pct,credits,ultimate_points
		 FROM match_players WHERE match_id = ? ORDER BY player_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.MatchID, &p.PlayerID, &p.Name, &p.Agent, &p.Role, &p.Team,
			&p.Kills, &p.Deaths, &p.DamageDealt, &p.HeadshotPct, &p.Credits, &p.UltimatePoints); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (a *MatchArchive) loop() {
	ctx := context.Background()

	insertMatch, _ := a.db.Prepare(`INSERT OR REPLACE INTO matches(id,seed,winner,attacker_score,defender_score,rounds,overtime,duration_ms,ticks,snapshot_path,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertPlayer, _ := a.db.Prepare(`INSERT OR REPLACE INTO match_players(match_id,player_id,name,agent,role,team,kills,deaths,damage_dealt,headshot_pct,credits,ultimate_points) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertMatch != nil {
			_ = insertMatch.Close()
		}
		if insertPlayer != nil {
			_ = insertPlayer.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 64
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	// The pool is pinned to one connection, so an open tx blocks
	// readers. Commit as soon as the queue drains.
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if len(a.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range a.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMatch:
			m := r.match
			if insertMatch != nil {
				if _, err := tx.Stmt(insertMatch).Exec(
					m.ID,
					m.Seed,
					m.Winner,
					m.AttackerScore,
					m.DefenderScore,
					m.Rounds,
					boolToInt(m.Overtime),
					int64(m.DurationMs),
					int64(m.Ticks),
					m.SnapshotPath,
					m.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			ok := true
			for _, p := range r.players {
				if insertPlayer == nil {
					break
				}
				if _, err := tx.Stmt(insertPlayer).Exec(
					p.MatchID,
					p.PlayerID,
					p.Name,
					p.Agent,
					p.Role,
					p.Team,
					p.Kills,
					p.Deaths,
					p.DamageDealt,
					p.HeadshotPct,
					p.Credits,
					p.UltimatePoints,
				); err != nil {
					rollback()
					ok = false
					break
				}
				opCount++
			}
			if !ok {
				continue
			}
		}
		flushIfNeeded()
	}

	commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
