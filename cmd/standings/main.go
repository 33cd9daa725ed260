package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/cache"
	"github.com/fortuna/predictor/internal/config"
	"github.com/fortuna/predictor/internal/ingest"
	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/logging"
	"github.com/fortuna/predictor/internal/saves"
	"github.com/fortuna/predictor/internal/store"
	"github.com/fortuna/predictor/internal/store/repository"
)

const (
	appName    = "predictor-standings"
	appVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	var (
		backendKind = flag.String("backend", cfg.SavesBackend, "Save slot backend (postgres or redis)")
		dsn         = flag.String("dsn", cfg.DatabaseDSN, "Postgres DSN")
		redisURL    = flag.String("redis", cfg.RedisURL, "Redis URL")
		session     = flag.String("session", "", "Session id that owns the save slots")
		saveName    = flag.String("save", "", "Save slot to print (default: newest)")
		list        = flag.Bool("list", false, "List the session's save slots and exit")
		withRoster  = flag.Bool("roster", true, "Fetch the league roster so teams without results are shown")
		timeout     = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	if *session == "" {
		log.Fatalf("Specify --session")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backend, closeBackend, err := openBackend(ctx, *backendKind, *dsn, *redisURL, logger)
	if err != nil {
		log.Fatalf("open %s backend: %v", *backendKind, err)
	}
	defer closeBackend()

	st, err := saves.Open(ctx, backend, *session)
	if err != nil {
		log.Fatalf("read save slots: %v", err)
	}

	if *list {
		printSlots(st.List())
		return
	}

	slot, err := pickSlot(st, *saveName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	lg, err := league.DefaultCatalog().Get(slot.LeagueID)
	if err != nil {
		log.Fatalf("save %s: %v", slot.Name, err)
	}

	var teams []string
	if *withRoster {
		teams, err = loadTeams(ctx, cfg, lg, logger)
		if err != nil {
			logger.Warn("roster unavailable, showing teams with results only", zap.Error(err))
		}
	}

	label := fmt.Sprintf("%s | %s | round %d | saved %s",
		lg.Name, slot.Name, slot.SelectedRound, slot.Timestamp.UTC().Format(time.RFC3339))
	league.PrintTable(os.Stdout, label, lg.ApplyZones(league.CalculateTable(teams, slot.Matches)))
}

// openBackend connects to the configured slot backend. The memory backend
// is rejected since it cannot outlive the service process.
func openBackend(ctx context.Context, kind, dsn, redisURL string, logger *zap.Logger) (saves.Backend, func(), error) {
	switch kind {
	case config.BackendPostgres:
		db, err := store.NewDatabase(ctx, dsn, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSaveSlotRepository(db), func() { db.Close() }, nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, redisURL)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("backend %q holds no persistent slots", kind)
	}
}

func pickSlot(st *saves.Store, name string) (saves.Slot, error) {
	if name != "" {
		slot, ok := st.Get(name)
		if !ok {
			return saves.Slot{}, fmt.Errorf("save %q not found in session %s", name, st.Namespace())
		}
		return slot, nil
	}
	all := st.List()
	if len(all) == 0 {
		return saves.Slot{}, errors.New("session has no save slots")
	}
	return all[0], nil
}

func loadTeams(ctx context.Context, cfg config.Config, lg league.League, logger *zap.Logger) ([]string, error) {
	var source ingest.Source
	if cfg.DataBaseURL != "" {
		source = ingest.NewHTTPSource(cfg.DataBaseURL, cfg.FetchTimeout)
	} else {
		source = ingest.NewDirSource(cfg.DataDir)
	}
	return ingest.NewLoader(source, logger).LoadTeams(ctx, lg)
}

func printSlots(slots []saves.Slot) {
	if len(slots) == 0 {
		fmt.Println("no save slots")
		return
	}
	for _, s := range slots {
		fmt.Printf("%-48s %-16s round %-3d %s\n",
			s.Name, s.LeagueID, s.SelectedRound, s.Timestamp.UTC().Format(time.RFC3339))
	}
}
