package room

import (
	"time"

	"go.uber.org/zap"

	"arena-brawl/internal/metrics"
	"arena-brawl/internal/protocol"
)

// start begins a round. Only the owner may start, and only when every
// member is ready.
func (r *Room) start(playerID string) error {
	switch {
	case playerID != r.ownerID:
		return ErrNotOwner
	case r.status == StatusPlaying:
		return ErrInProgress
	case !r.allReady():
		return ErrNotAllReady
	}

	r.status = StatusPlaying
	r.remaining = r.settings.RoundTime
	spawns := r.match.Begin()
	metrics.MatchStarted()
	r.log.Info("match started",
		zap.String("map", r.settings.Map),
		zap.Int("players", r.match.Len()),
		zap.Int("roundTime", r.settings.RoundTime),
	)

	r.broadcast(protocol.TypeStartGame, protocol.StartGame{
		Players:        r.match.Summaries(),
		Map:            r.settings.Map,
		SpawnedWeapons: spawns,
		RoundTime:      r.settings.RoundTime,
	})

	r.clock = time.NewTicker(r.cfg.ClockInterval)
	// Bots wait for the client-side countdown.
	r.cancelBotStart = loopScheduler{r}.After(r.cfg.BotStartDelay, r.startBots)
	return nil
}

func (r *Room) startBots() {
	r.cancelBotStart = nil
	if r.status != StatusPlaying || r.botTicker != nil {
		return
	}
	r.botTicker = time.NewTicker(r.cfg.TickInterval)
}

func (r *Room) tickBots() {
	if r.status != StatusPlaying {
		return
	}
	start := time.Now()
	r.match.Tick()
	metrics.ObserveBotTick(time.Since(start))
}

// tickClock counts the round down once per second.
func (r *Room) tickClock() {
	if r.status != StatusPlaying {
		return
	}
	if r.remaining > 0 {
		r.remaining--
		r.broadcast(protocol.TypeUpdateTimer, protocol.UpdateTimer{Seconds: r.remaining})
	}
	if r.remaining <= 0 {
		r.end()
	}
}

// end closes the round, publishes the final scores and returns the room
// to the lobby so the owner can start again.
func (r *Room) end() {
	if r.status != StatusPlaying {
		return
	}
	r.stopLoops()
	scores := r.match.End()
	if r.board != nil {
		r.board.RecordRound(r.match.Players())
	}
	r.status = StatusWaiting
	r.remaining = r.settings.RoundTime
	metrics.MatchEnded()
	r.log.Info("match ended", zap.Uint64("ticks", r.match.TickCount()))

	r.broadcast(protocol.TypeGameEnd, protocol.GameEnd{Scores: scores})

	for _, p := range r.match.Players() {
		if !p.IsBot() {
			p.Ready = false
		}
	}
	r.broadcastRoster()
}

// stopLoops cancels the bot loop, the round clock and a pending bot start.
func (r *Room) stopLoops() {
	if r.cancelBotStart != nil {
		r.cancelBotStart()
		r.cancelBotStart = nil
	}
	if r.botTicker != nil {
		r.botTicker.Stop()
		r.botTicker = nil
	}
	if r.clock != nil {
		r.clock.Stop()
		r.clock = nil
	}
}
