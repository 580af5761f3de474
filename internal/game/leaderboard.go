package game

import (
	"sort"
	"strings"
	"sync"
)

// DefaultLeaderboardSize bounds how many nicknames the leaderboard keeps.
const DefaultLeaderboardSize = 1000

// Leaderboard accumulates finished-round results across every room, keyed
// by nickname. Only humans are recorded.
//
// Safe for concurrent use.
type Leaderboard struct {
	mu      sync.RWMutex
	entries map[string]*LeaderboardEntry
	limit   int
}

// LeaderboardEntry is one nickname's lifetime record.
type LeaderboardEntry struct {
	Nickname string  `json:"nickname"`
	Kills    int     `json:"kills"`
	Deaths   int     `json:"deaths"`
	Rounds   int     `json:"rounds"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// NewLeaderboard creates an empty leaderboard holding at most limit
// nicknames; non-positive limits use DefaultLeaderboardSize.
func NewLeaderboard(limit int) *Leaderboard {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	return &Leaderboard{
		entries: make(map[string]*LeaderboardEntry),
		limit:   limit,
	}
}

// leaderboardScore ranks kills first and penalizes deaths.
func leaderboardScore(kills, deaths int) float64 {
	return float64(kills)*100 - float64(deaths)*10
}

func leaderboardKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

// RecordRound adds one round's result for every human in players.
func (lb *Leaderboard) RecordRound(players []*Player) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	for _, p := range players {
		if p.IsBot() {
			continue
		}
		key := leaderboardKey(p.Nickname)
		if key == "" {
			continue
		}
		e, ok := lb.entries[key]
		if !ok {
			e = &LeaderboardEntry{Nickname: strings.TrimSpace(p.Nickname)}
			lb.entries[key] = e
		}
		e.Kills += p.Kills
		e.Deaths += p.Deaths
		e.Rounds++
		e.Score = leaderboardScore(e.Kills, e.Deaths)
	}

	if len(lb.entries) > lb.limit {
		lb.evictLocked()
	}
}

// evictLocked drops the lowest-ranked entries until the limit holds.
func (lb *Leaderboard) evictLocked() {
	ranked := lb.rankedLocked()
	for _, e := range ranked[lb.limit:] {
		delete(lb.entries, leaderboardKey(e.Nickname))
	}
}

// rankedLocked returns copies of every entry in rank order. Ties go to the
// fewer deaths, then alphabetically.
func (lb *Leaderboard) rankedLocked() []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(lb.entries))
	for _, e := range lb.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		return a.Nickname < b.Nickname
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// GetTop returns the top n entries.
func (lb *Leaderboard) GetTop(n int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	ranked := lb.rankedLocked()
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// GetRank returns a nickname's 1-based rank, or 0 if it has no record.
func (lb *Leaderboard) GetRank(nickname string) int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	key := leaderboardKey(nickname)
	if _, ok := lb.entries[key]; !ok {
		return 0
	}
	for _, e := range lb.rankedLocked() {
		if leaderboardKey(e.Nickname) == key {
			return e.Rank
		}
	}
	return 0
}

// Length returns the number of recorded nicknames.
func (lb *Leaderboard) Length() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return len(lb.entries)
}
