// Package room runs matches. Each Room is an actor: one goroutine owns the
// roster, the match state and every timer, and all mutations reach it
// through its inbox. The Registry maps room codes to running rooms.
package room

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"arena-brawl/internal/config"
	"arena-brawl/internal/game"
	"arena-brawl/internal/metrics"
	"arena-brawl/internal/protocol"
)

// Status is the lobby-visible phase of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

// Visibility values
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Settings are the owner-chosen parameters of a room.
type Settings struct {
	Name       string
	Map        string
	MaxPlayers int
	Visibility string
	RoundTime  int // seconds
}

// Identity is what a human brings into a room.
type Identity struct {
	Nickname  string
	Character string
}

// Info is a point-in-time view of a room, safe to read from any goroutine.
type Info struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Map        string `json:"map"`
	Visibility string `json:"visibility"`
	Status     Status `json:"status"`
	OwnerID    string `json:"ownerId"`
	Players    int    `json:"players"`
	Humans     int    `json:"humans"`
	MaxPlayers int    `json:"maxPlayers"`
	RoundTime  int    `json:"roundTime"`
	Remaining  int    `json:"remaining"`
}

// Options configures a Room.
type Options struct {
	ID       string
	Settings Settings
	Match    config.MatchConfig
	// MaxWeaponSpawns bounds the floor weapon list; zero means unlimited.
	MaxWeaponSpawns int
	Catalog         *game.Catalog
	Journal         *game.EventLog
	Leaderboard     *game.Leaderboard
	Logger          *zap.Logger
	Rand            *rand.Rand
	// OnEmpty runs on the room goroutine once no human is left.
	OnEmpty func(id string)
}

// Room is a single lobby plus its match.
type Room struct {
	id      string
	log     *zap.Logger
	cfg     config.MatchConfig
	rng     *rand.Rand
	onEmpty func(id string)
	board   *game.Leaderboard

	inbox    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// info is replaced, never mutated, so readers need no lock.
	info atomic.Pointer[Info]

	// Everything below is owned by the Run goroutine.
	settings       Settings
	status         Status
	ownerID        string
	match          *game.Match
	conns          map[string]Conn
	remaining      int
	botTicker      *time.Ticker
	clock          *time.Ticker
	cancelBotStart func()
	closed         bool
}

// New creates a room. Call Run to start its loop.
func New(opts Options) *Room {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Match.TickInterval <= 0 {
		opts.Match = config.DefaultMatch()
	}
	if opts.Match.ClockInterval <= 0 {
		opts.Match.ClockInterval = time.Second
	}

	r := &Room{
		id:       opts.ID,
		log:      opts.Logger.With(zap.String("room", opts.ID)),
		cfg:      opts.Match,
		rng:      opts.Rand,
		onEmpty:  opts.OnEmpty,
		board:    opts.Leaderboard,
		inbox:    make(chan func(), 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		settings: opts.Settings,
		status:   StatusWaiting,
		conns:    make(map[string]Conn),
	}
	r.remaining = r.settings.RoundTime
	r.match = game.NewMatch(game.MatchOptions{
		RoomID:  opts.ID,
		MapID:   opts.Settings.Map,
		Catalog: opts.Catalog,
		Config: game.MatchConfig{
			Tick:                opts.Match.TickInterval,
			BotRespawnDelay:     opts.Match.BotRespawnDelay,
			AttackLockDuration:  opts.Match.AttackLockDuration,
			InitialWeaponSpawns: opts.Match.InitialWeaponSpawns,
			MaxWeaponSpawns:     opts.MaxWeaponSpawns,
		},
		Scheduler: loopScheduler{r},
		Journal:   opts.Journal,
		Rand:      opts.Rand,
	})
	r.match.SetHooks(r.hooks())
	r.publishInfo()
	return r
}

// ID returns the room code.
func (r *Room) ID() string { return r.id }

// Info returns the latest published snapshot.
func (r *Room) Info() Info {
	return *r.info.Load()
}

// Run processes the inbox and timers until Stop is called.
func (r *Room) Run() {
	defer close(r.done)
	defer r.teardown()

	for {
		var botC, clockC <-chan time.Time
		if r.botTicker != nil {
			botC = r.botTicker.C
		}
		if r.clock != nil {
			clockC = r.clock.C
		}

		select {
		case <-r.quit:
			return
		case fn := <-r.inbox:
			fn()
		case <-botC:
			r.tickBots()
		case <-clockC:
			r.tickClock()
		}
		r.publishInfo()
	}
}

// Stop ends the loop. It is safe to call more than once and from the loop itself.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once the loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// post queues fn for the loop. It reports false once the room is stopped.
func (r *Room) post(fn func()) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	case <-r.quit:
		return false
	}
}

// call runs fn on the loop and waits for its result. The snapshot is
// republished before call returns.
func (r *Room) call(fn func() error) error {
	res := make(chan error, 1)
	if !r.post(func() {
		err := fn()
		r.publishInfo()
		res <- err
	}) {
		return ErrRoomClosed
	}
	select {
	case err := <-res:
		return err
	case <-r.quit:
		return ErrRoomClosed
	}
}

// Handle queues a validated client message from playerID.
func (r *Room) Handle(playerID string, msg protocol.Inbound) {
	r.post(func() { r.handle(playerID, msg) })
}

// Leave queues the removal of playerID (disconnect or leaveRoom).
func (r *Room) Leave(playerID string) {
	r.post(func() { r.removeMember(playerID) })
}

func (r *Room) publishInfo() {
	humans := 0
	for _, p := range r.match.Players() {
		if !p.IsBot() {
			humans++
		}
	}
	info := Info{
		ID:         r.id,
		Name:       r.settings.Name,
		Map:        r.settings.Map,
		Visibility: r.settings.Visibility,
		Status:     r.status,
		OwnerID:    r.ownerID,
		Players:    r.match.Len(),
		Humans:     humans,
		MaxPlayers: r.settings.MaxPlayers,
		RoundTime:  r.settings.RoundTime,
		Remaining:  r.remaining,
	}
	r.info.Store(&info)
}

// teardown releases timers and detaches remaining members when the loop exits.
func (r *Room) teardown() {
	r.stopLoops()
	if r.status == StatusPlaying {
		metrics.MatchEnded()
	}
	r.match.Close()
	for id, c := range r.conns {
		c.Detach(r.id)
		delete(r.conns, id)
		metrics.PlayerLeft()
	}
	r.closed = true
	r.publishInfo()
}

// =============================================================================
// SCHEDULING
// =============================================================================

// loopScheduler runs delayed callbacks on the room goroutine.
type loopScheduler struct{ r *Room }

func (s loopScheduler) After(d time.Duration, fn func()) func() {
	// Only touched on the room goroutine.
	cancelled := false
	t := time.AfterFunc(d, func() {
		s.r.post(func() {
			if !cancelled {
				fn()
			}
		})
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}

// =============================================================================
// OUTBOUND
// =============================================================================

func (r *Room) sendTo(playerID, msgType string, payload any) {
	c, ok := r.conns[playerID]
	if !ok {
		return
	}
	if err := c.Send(msgType, payload); err != nil {
		r.log.Debug("send failed", zap.String("player", playerID), zap.String("type", msgType), zap.Error(err))
	}
}

func (r *Room) broadcast(msgType string, payload any) {
	r.broadcastExcept("", msgType, payload)
}

func (r *Room) broadcastExcept(skip, msgType string, payload any) {
	for id, c := range r.conns {
		if id == skip {
			continue
		}
		if err := c.Send(msgType, payload); err != nil {
			r.log.Debug("send failed", zap.String("player", id), zap.String("type", msgType), zap.Error(err))
		}
	}
}

func (r *Room) reject(playerID string, err error) {
	metrics.RecordRoomError(ErrorKind(err))
	r.sendTo(playerID, protocol.TypeRoomError, protocol.RoomError{Message: err.Error()})
}

func (r *Room) roomInfo() protocol.RoomInfo {
	return protocol.RoomInfo{
		ID:         r.id,
		Name:       r.settings.Name,
		Map:        r.settings.Map,
		OwnerID:    r.ownerID,
		MaxPlayers: r.settings.MaxPlayers,
		RoundTime:  r.settings.RoundTime,
		Visibility: r.settings.Visibility,
	}
}

func (r *Room) broadcastRoster() {
	r.broadcast(protocol.TypeUpdatePlayers, protocol.UpdatePlayers{
		Players:    r.match.Summaries(),
		MaxPlayers: r.settings.MaxPlayers,
		OwnerID:    r.ownerID,
	})
}

// hooks routes match events to the members.
func (r *Room) hooks() game.Hooks {
	return game.Hooks{
		Health: func(u game.HealthUpdate) {
			r.broadcast(protocol.TypeHPUpdate, u)
		},
		Scores: func(s []game.Score) {
			metrics.RecordKill()
			r.broadcast(protocol.TypeUpdateScores, protocol.UpdateScores{Scores: s})
		},
		KillFeed: func(k game.KillFeed) {
			r.log.Debug("kill", zap.String("attacker", k.AttackerName), zap.String("victim", k.VictimName))
			r.broadcast(protocol.TypeKillFeed, k)
		},
		Respawned: func(p *game.Player) {
			r.broadcast(protocol.TypeGameUpdate, p.State())
		},
		BotUpdated: func(s game.State) {
			r.broadcast(protocol.TypeGameUpdate, s)
		},
		BotAttacked: func(botID, animation string) {
			if bot := r.match.Player(botID); bot != nil && bot.Bot != nil {
				metrics.RecordDamage(true, bot.Bot.Difficulty.Damage)
			}
			r.broadcast(protocol.TypePlayerAttack, protocol.PlayerAttackEvent{PlayerID: botID, AnimationName: animation})
		},
		PickedUp: func(spawnID, playerID string) {
			r.broadcast(protocol.TypeWeaponPickedUp, protocol.WeaponPickedUpEvent{UUID: spawnID, PlayerID: playerID})
		},
		Spawned: func(s game.WeaponSpawn) {
			r.broadcast(protocol.TypeWeaponSpawned, s)
		},
		Equipped: func(playerID, weapon string) {
			r.broadcastExcept(playerID, protocol.TypePlayerEquippedWeapon, protocol.PlayerEquippedWeapon{PlayerID: playerID, WeaponName: weapon})
		},
	}
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

// Join seats conn in the room and answers with replyType
// (roomCreated or roomJoined) before the roster broadcast.
func (r *Room) Join(conn Conn, id Identity, replyType string) error {
	return r.call(func() error { return r.join(conn, id, replyType) })
}

func (r *Room) join(conn Conn, id Identity, replyType string) error {
	switch {
	case r.closed:
		return ErrRoomClosed
	case r.match.Player(conn.ID()) != nil:
		return ErrAlreadyJoined
	case r.match.Len() >= r.settings.MaxPlayers:
		return ErrRoomFull
	case r.status == StatusPlaying:
		return ErrInProgress
	}

	p := game.NewPlayer(conn.ID(), id.Nickname, id.Character)
	r.match.AddPlayer(p)
	r.conns[p.ID] = conn
	if r.ownerID == "" {
		r.ownerID = p.ID
	}
	metrics.PlayerSeated()
	r.log.Info("player joined", zap.String("player", p.ID), zap.String("nickname", p.Nickname))

	r.sendTo(p.ID, replyType, r.roomInfo())
	r.broadcastRoster()
	return nil
}

// removeMember drops a human or bot. It is a no-op for unknown ids.
func (r *Room) removeMember(playerID string) {
	p, ok := r.match.RemovePlayer(playerID)
	if !ok {
		return
	}
	if _, human := r.conns[playerID]; human {
		delete(r.conns, playerID)
		metrics.PlayerLeft()
	}
	r.log.Info("player left", zap.String("player", p.ID), zap.Bool("bot", p.IsBot()))

	if r.ownerID == playerID {
		r.ownerID = ""
		if humans := r.match.Humans(); len(humans) > 0 {
			r.ownerID = humans[0].ID
			r.log.Info("owner reassigned", zap.String("owner", r.ownerID))
		}
	}

	if len(r.conns) == 0 {
		r.closeEmpty()
		return
	}
	r.broadcastRoster()
}

// closeEmpty shuts the room down once only bots (or nobody) remain.
func (r *Room) closeEmpty() {
	if r.closed {
		return
	}
	r.closed = true
	r.stopLoops()
	r.match.Close()
	r.log.Info("room empty")
	if r.onEmpty != nil {
		r.onEmpty(r.id)
	}
}

func (r *Room) allReady() bool {
	players := r.match.Players()
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.Ready {
			return false
		}
	}
	return true
}
