// Package sim runs bots-only matches on a virtual clock, for tuning the
// difficulty and personality tables without a network or wall-clock time.
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"arena-brawl/internal/game"
)

var (
	ErrTooFewBots        = errors.New("at least two bots are needed")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrUnknownPersona    = errors.New("unknown personality")
)

// Options configures a simulated match.
type Options struct {
	Map         string
	Bots        int
	Difficulty  string // empty = normal
	Personality string // empty = random per bot
	Duration    time.Duration
	Seed        int64
	Catalog     *game.Catalog
	Match       game.MatchConfig
	Journal     *game.EventLog
	Logger      *zap.Logger
}

// Result is the outcome of a simulated match.
type Result struct {
	Map      string        `json:"map"`
	Ticks    uint64        `json:"ticks"`
	Duration time.Duration `json:"duration"`
	Hits     int           `json:"hits"`
	Kills    int           `json:"kills"`
	Pickups  int           `json:"pickups"`
	Scores   []game.Score  `json:"scores"`
}

// Run plays one match to completion and returns the final scoreboard,
// sorted by kills then by fewest deaths.
func Run(opts Options) (Result, error) {
	if opts.Bots < 2 {
		return Result{}, ErrTooFewBots
	}
	if opts.Difficulty == "" {
		opts.Difficulty = "normal"
	}
	difficulty, ok := game.LookupDifficulty(opts.Difficulty)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, opts.Difficulty)
	}
	var persona *game.Personality
	if opts.Personality != "" {
		p, ok := game.LookupPersonality(opts.Personality)
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownPersona, opts.Personality)
		}
		persona = &p
	}
	if !game.ValidMap(opts.Map) {
		opts.Map = game.MapCity
	}
	if opts.Match.Tick <= 0 {
		opts.Match = game.DefaultMatchConfig()
	}
	if opts.Duration <= 0 {
		opts.Duration = 3 * time.Minute
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	clock := &virtualClock{}
	res := Result{Map: opts.Map}

	m := game.NewMatch(game.MatchOptions{
		RoomID:    "sim",
		MapID:     opts.Map,
		Catalog:   opts.Catalog,
		Config:    opts.Match,
		Scheduler: clock,
		Journal:   opts.Journal,
		Rand:      rng,
		Hooks: game.Hooks{
			Health:   func(game.HealthUpdate) { res.Hits++ },
			KillFeed: func(game.KillFeed) { res.Kills++ },
			PickedUp: func(string, string) { res.Pickups++ },
		},
	})

	for i := 0; i < opts.Bots; i++ {
		p := game.RandomPersonality(rng)
		if persona != nil {
			p = *persona
		}
		m.AddPlayer(m.NewBot(difficulty, p))
	}

	m.Begin()
	opts.Logger.Info("simulation started",
		zap.String("map", opts.Map),
		zap.Int("bots", opts.Bots),
		zap.String("difficulty", difficulty.Name),
		zap.Duration("duration", opts.Duration),
		zap.Int64("seed", opts.Seed),
	)

	for clock.now < opts.Duration {
		clock.advance(opts.Match.Tick)
		m.Tick()
	}

	res.Scores = m.End()
	m.Close()
	res.Ticks = m.TickCount()
	res.Duration = clock.now

	sort.SliceStable(res.Scores, func(i, j int) bool {
		a, b := res.Scores[i], res.Scores[j]
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		return a.Deaths < b.Deaths
	})

	opts.Logger.Info("simulation finished",
		zap.Uint64("ticks", res.Ticks),
		zap.Int("hits", res.Hits),
		zap.Int("kills", res.Kills),
	)
	return res, nil
}

// virtualClock is a game.Scheduler driven by the simulation loop.
type virtualClock struct {
	now   time.Duration
	seq   uint64
	tasks []*task
}

type task struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

func (c *virtualClock) After(d time.Duration, fn func()) func() {
	c.seq++
	t := &task{at: c.now + d, seq: c.seq, fn: fn}
	c.tasks = append(c.tasks, t)
	return func() { t.cancelled = true }
}

// advance moves time forward and runs every callback that came due, in
// due order. Callbacks may schedule more callbacks.
func (c *virtualClock) advance(d time.Duration) {
	c.now += d
	for {
		sort.Slice(c.tasks, func(i, j int) bool {
			if c.tasks[i].at != c.tasks[j].at {
				return c.tasks[i].at < c.tasks[j].at
			}
			return c.tasks[i].seq < c.tasks[j].seq
		})
		if len(c.tasks) == 0 || c.tasks[0].at > c.now {
			return
		}
		t := c.tasks[0]
		c.tasks = c.tasks[1:]
		if !t.cancelled {
			t.fn()
		}
	}
}
