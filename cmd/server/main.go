package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fragsim.gg/internal/persistence/indexdb"
	persistlog "fragsim.gg/internal/persistence/log"
	"fragsim.gg/internal/persistence/snapshot"
	"fragsim.gg/internal/sim/catalogs"
	"fragsim.gg/internal/sim/manager"
	"fragsim.gg/internal/sim/match"
	"fragsim.gg/internal/sim/tuning"
	"fragsim.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the match archive db")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var archive *indexdb.MatchArchive
	if !*disableDB {
		archive, err = indexdb.Open(filepath.Join(*dataDir, "matches.db"))
		if err != nil {
			logger.Fatalf("open archive: %v", err)
		}
		defer archive.Close()
	} else {
		logger.Printf("match archive disabled (-disable_db)")
	}

	mgr := manager.New(cats, tune, logger)
	stream := ws.NewServer(mgr, logger)

	journal := persistlog.NewEventJournal(filepath.Join(*dataDir, "events"))
	defer journal.Close()

	snapDir := filepath.Join(*dataDir, "snapshots")
	mgr.OnMatchEnd(func(sim *match.Simulation) {
		st := sim.State()
		snap, err := snapshot.Capture(sim, sim.Seed())
		if err != nil {
			logger.Printf("snapshot capture %s: %v", st.ID, err)
			return
		}
		path := filepath.Join(snapDir, fmt.Sprintf("%s.snap.zst", st.ID))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write %s: %v", st.ID, err)
			path = ""
		}
		if archive != nil {
			archive.RecordMatch(sim, sim.Seed(), path)
		}
		logger.Printf("archived match %s (%d-%d)", st.ID, st.AttackerScore, st.DefenderScore)
	})

	a := &api{mgr: mgr, stream: stream, archive: archive, journal: journal, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP fragsim_simulations Registered simulations.\n")
		fmt.Fprintf(rw, "# TYPE fragsim_simulations gauge\n")
		fmt.Fprintf(rw, "fragsim_simulations %d\n", mgr.Count())

		if archive != nil {
			s := archive.Stats()
			fmt.Fprintf(rw, "# HELP fragsim_archive_queue_depth Archive writer queue depth.\n")
			fmt.Fprintf(rw, "# TYPE fragsim_archive_queue_depth gauge\n")
			fmt.Fprintf(rw, "fragsim_archive_queue_depth %d\n", s.QueueDepth)

			fmt.Fprintf(rw, "# HELP fragsim_archive_queue_capacity Archive writer queue capacity.\n")
			fmt.Fprintf(rw, "# TYPE fragsim_archive_queue_capacity gauge\n")
			fmt.Fprintf(rw, "fragsim_archive_queue_capacity %d\n", s.QueueCapacity)

			fmt.Fprintf(rw, "# HELP fragsim_archive_dropped_total Total records dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE fragsim_archive_dropped_total counter\n")
			fmt.Fprintf(rw, "fragsim_archive_dropped_total %d\n", s.DropTotal)
		}
	})
	a.routes(mux)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
