package sim

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"arena-brawl/internal/game"
)

func TestRunProducesScoreboard(t *testing.T) {
	res, err := Run(Options{
		Map:         game.MapCity,
		Bots:        6,
		Difficulty:  "hard",
		Personality: "aggressive",
		Duration:    2 * time.Minute,
		Seed:        42,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Ticks != 1200 {
		t.Errorf("ticks = %d, want 1200", res.Ticks)
	}
	if len(res.Scores) != 6 {
		t.Fatalf("scores = %d, want 6", len(res.Scores))
	}
	if res.Hits == 0 {
		t.Error("six hard bots should land at least one hit in two minutes")
	}
	for i := 1; i < len(res.Scores); i++ {
		if res.Scores[i].Kills > res.Scores[i-1].Kills {
			t.Fatalf("scoreboard not sorted: %+v", res.Scores)
		}
	}

	kills, deaths := 0, 0
	for _, s := range res.Scores {
		kills += s.Kills
		deaths += s.Deaths
	}
	if kills > deaths {
		t.Errorf("kills %d exceed deaths %d", kills, deaths)
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"one bot", Options{Bots: 1}, ErrTooFewBots},
		{"difficulty", Options{Bots: 2, Difficulty: "nightmare"}, ErrUnknownDifficulty},
		{"personality", Options{Bots: 2, Personality: "sneaky"}, ErrUnknownPersona},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(tt.opts); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVirtualClockOrdersAndCancels(t *testing.T) {
	c := &virtualClock{}
	var got []int

	c.After(2*time.Second, func() { got = append(got, 2) })
	cancel := c.After(time.Second, func() { got = append(got, -1) })
	c.After(time.Second, func() {
		got = append(got, 1)
		c.After(0, func() { got = append(got, 10) })
	})
	cancel()

	c.advance(time.Second)
	if len(got) != 2 || got[0] != 1 || got[1] != 10 {
		t.Fatalf("after 1s: %v", got)
	}
	c.advance(time.Second)
	if len(got) != 3 || got[2] != 2 {
		t.Fatalf("after 2s: %v", got)
	}
}
