// Command simulator plays a bots-only match in-process and prints the final
// scoreboard.
//
// USAGE:
//
//	go run ./cmd/simulator -bots 6 -difficulty hard -duration 3m
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"arena-brawl/internal/config"
	"arena-brawl/internal/game"
	"arena-brawl/internal/sim"
)

func main() {
	mapID := flag.String("map", game.MapCity, "map id (map1 or map2)")
	bots := flag.Int("bots", 6, "number of bots")
	difficulty := flag.String("difficulty", "normal", "easy, normal or hard")
	personality := flag.String("personality", "", "aggressive, balanced or defensive (empty = random)")
	duration := flag.Duration("duration", 3*time.Minute, "simulated match length")
	seed := flag.Int64("seed", 0, "random seed (0 = clock)")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Parse()

	_ = godotenv.Load(".env")
	appConfig := config.Load()

	log, err := appConfig.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	catalog := game.DefaultCatalog()
	if path := appConfig.Data.WeaponDataPath; path != "" {
		if catalog, err = game.LoadCatalogFile(path); err != nil {
			log.Fatal("load weapons", zap.Error(err))
		}
	}

	var journal *game.EventLog
	if path := appConfig.Data.EventLogPath; path != "" {
		journal = game.NewEventLog()
		if err := journal.Start(path); err != nil {
			log.Warn("event log disabled", zap.Error(err))
			journal = nil
		} else {
			defer journal.Stop()
		}
	}

	res, err := sim.Run(sim.Options{
		Map:         *mapID,
		Bots:        *bots,
		Difficulty:  *difficulty,
		Personality: *personality,
		Duration:    *duration,
		Seed:        *seed,
		Catalog:     catalog,
		Match: game.MatchConfig{
			Tick:                appConfig.Match.TickInterval,
			BotRespawnDelay:     appConfig.Match.BotRespawnDelay,
			AttackLockDuration:  appConfig.Match.AttackLockDuration,
			InitialWeaponSpawns: appConfig.Match.InitialWeaponSpawns,
			MaxWeaponSpawns:     appConfig.Limits.MaxWeaponSpawns,
		},
		Journal: journal,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}

	fmt.Printf("map %s, %d ticks (%s), %d hits, %d kills, %d pickups\n\n",
		res.Map, res.Ticks, res.Duration, res.Hits, res.Kills, res.Pickups)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBOT\tKILLS\tDEATHS")
	for i, s := range res.Scores {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", i+1, s.Nickname, s.Kills, s.Deaths)
	}
	_ = w.Flush()
}
