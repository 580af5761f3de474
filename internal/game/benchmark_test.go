package game

import (
	"fmt"
	"math/rand"
	"testing"

	"arena-brawl/internal/game/spatial"
)

// -----------------------------------------------------------------------------
// MATCH TICK BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkMatchTick_4Bots(b *testing.B)  { benchmarkMatchTick(b, 4) }
func BenchmarkMatchTick_8Bots(b *testing.B)  { benchmarkMatchTick(b, 8) }
func BenchmarkMatchTick_16Bots(b *testing.B) { benchmarkMatchTick(b, 16) }
func BenchmarkMatchTick_32Bots(b *testing.B) { benchmarkMatchTick(b, 32) }

func benchmarkMatchTick(b *testing.B, bots int) {
	sched := &manualScheduler{}
	m := NewMatch(MatchOptions{
		RoomID:    "BENCH1",
		MapID:     MapCity,
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(7)),
	})

	d, _ := LookupDifficulty("hard")
	pers, _ := LookupPersonality("aggressive")
	for i := 0; i < bots; i++ {
		m.AddPlayer(m.NewBot(d, pers))
	}
	m.Begin()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sched.Advance(m.cfg.Tick)
		m.Tick()
	}
}

// -----------------------------------------------------------------------------
// SPATIAL GRID BENCHMARKS
// -----------------------------------------------------------------------------

var benchBounds = spatial.Bounds{MinX: -40, MaxX: 40, MinZ: -40, MaxZ: 40}

func BenchmarkSpatialGrid_Insert(b *testing.B) {
	grid := spatial.NewGrid(benchBounds, 10, 64)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		grid.Clear()
		for j := 0; j < 32; j++ {
			x := rand.Float64()*80 - 40
			z := rand.Float64()*80 - 40
			grid.Insert(uint32(j), x, z)
		}
	}
}

func BenchmarkSpatialGrid_QueryRadius(b *testing.B) {
	grid := spatial.NewGrid(benchBounds, 10, 64)

	for j := 0; j < 32; j++ {
		grid.Insert(uint32(j), rand.Float64()*80-40, rand.Float64()*80-40)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = grid.QueryRadius(rand.Float64()*80-40, rand.Float64()*80-40, 12)
	}
}

// -----------------------------------------------------------------------------
// LEADERBOARD BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkLeaderboard_RecordRound(b *testing.B) {
	lb := NewLeaderboard(0)
	players := make([]*Player, 8)
	for i := range players {
		nick := fmt.Sprintf("Player%d", i)
		players[i] = NewPlayer(nick, nick, "")
		players[i].Kills = i
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		lb.RecordRound(players)
	}
}

func BenchmarkLeaderboard_GetTop(b *testing.B) {
	lb := NewLeaderboard(0)
	for i := 0; i < 500; i++ {
		nick := fmt.Sprintf("Player%d", i)
		p := NewPlayer(nick, nick, "")
		p.Kills = i % 37
		lb.RecordRound([]*Player{p})
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = lb.GetTop(10)
	}
}
