package game

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"arena-brawl/internal/game/spatial"
)

var (
	// ErrSpawnLimit is returned when the room already holds the maximum number of floor weapons.
	ErrSpawnLimit = errors.New("too many weapons on the map")
	// ErrDuplicateSpawn is returned for a spawn id that already exists.
	ErrDuplicateSpawn = errors.New("weapon spawn already exists")
	// ErrUnknownWeapon is returned for names missing from the catalog.
	ErrUnknownWeapon = errors.New("unknown weapon")
)

// Scheduler runs one-shot callbacks on the owner's event loop.
// A cancelled callback must never run.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// MatchConfig holds the timing and sizing knobs of a match.
type MatchConfig struct {
	Tick                time.Duration
	BotRespawnDelay     time.Duration
	AttackLockDuration  time.Duration
	InitialWeaponSpawns int
	MaxWeaponSpawns     int
}

// DefaultMatchConfig mirrors config.DefaultMatch.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Tick:                100 * time.Millisecond,
		BotRespawnDelay:     3 * time.Second,
		AttackLockDuration:  400 * time.Millisecond,
		InitialWeaponSpawns: 10,
		MaxWeaponSpawns:     64,
	}
}

// WeaponSpawn is a weapon lying on the map.
type WeaponSpawn struct {
	ID         string  `json:"uuid"`
	WeaponName string  `json:"weaponName"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
}

// Position returns the spawn location.
func (s WeaponSpawn) Position() Vec3 { return Vec3{X: s.X, Y: s.Y, Z: s.Z} }

// Effects are the on-hit status parameters carried by a damage event.
type Effects struct {
	KnockbackStrength float64 `json:"knockbackStrength"`
	KnockbackDuration float64 `json:"knockbackDuration"` // seconds
	StunDuration      float64 `json:"stunDuration"`      // seconds
}

// BotHitEffects are the fixed parameters of every bot swing.
var BotHitEffects = Effects{KnockbackStrength: 3, KnockbackDuration: 0.2, StunDuration: 0.2}

// HealthUpdate is emitted after every damage application.
type HealthUpdate struct {
	PlayerID         string   `json:"playerId"`
	Health           int      `json:"health"`
	AttackerID       string   `json:"attackerId,omitempty"`
	Effects          *Effects `json:"weaponEffects,omitempty"`
	AttackerPosition *Vec3    `json:"attackerPosition,omitempty"`
}

// KillFeed names both parties of a death.
type KillFeed struct {
	AttackerID        string `json:"attackerId,omitempty"`
	AttackerName      string `json:"attackerName"`
	AttackerCharacter string `json:"attackerCharacter"`
	VictimID          string `json:"victimId"`
	VictimName        string `json:"victimName"`
	VictimCharacter   string `json:"victimCharacter"`
}

// Hooks receive everything the match wants broadcast. Nil hooks are skipped.
type Hooks struct {
	Health      func(HealthUpdate)
	Scores      func([]Score)
	KillFeed    func(KillFeed)
	Respawned   func(*Player)
	BotUpdated  func(State)
	BotAttacked func(botID, animation string)
	PickedUp    func(spawnID, playerID string)
	Spawned     func(WeaponSpawn)
	Equipped    func(playerID, weapon string)
}

// MatchOptions configures NewMatch.
type MatchOptions struct {
	RoomID    string
	MapID     string
	Catalog   *Catalog
	Config    MatchConfig
	Scheduler Scheduler
	Hooks     Hooks
	Journal   *EventLog
	Rand      *rand.Rand
}

type pendingTimer struct {
	id     uint64
	cancel func()
}

// Match is the world state of one room: roster, weapons on the floor and
// the combat/AI rules that mutate them.
//
// Match is not safe for concurrent use. Its owner serializes every call,
// including the callbacks it hands to the Scheduler.
type Match struct {
	roomID  string
	arena   Arena
	catalog *Catalog
	cfg     MatchConfig
	sched   Scheduler
	hooks   Hooks
	journal *EventLog
	rng     *rand.Rand

	players []*Player
	byID    map[string]*Player
	spawns  []WeaponSpawn

	grid   *spatial.Grid
	tick   uint64
	active bool

	timers   map[string]pendingTimer
	timerSeq uint64
}

// NewMatch creates an idle match on the given map.
func NewMatch(opts MatchOptions) *Match {
	arena, ok := LookupArena(opts.MapID)
	if !ok {
		arena = arenas[MapCity]
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Config.Tick <= 0 {
		opts.Config = DefaultMatchConfig()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m := &Match{
		roomID:  opts.RoomID,
		catalog: opts.Catalog,
		cfg:     opts.Config,
		sched:   opts.Scheduler,
		hooks:   opts.Hooks,
		journal: opts.Journal,
		rng:     opts.Rand,
		byID:    make(map[string]*Player),
		timers:  make(map[string]pendingTimer),
	}
	m.setArena(arena)
	return m
}

func (m *Match) setArena(a Arena) {
	m.arena = a
	m.grid = spatial.NewGrid(a.Bounds, 10, 16)
}

// SetHooks replaces the broadcast hooks.
func (m *Match) SetHooks(h Hooks) { m.hooks = h }

// Arena returns the current map geometry.
func (m *Match) Arena() Arena { return m.arena }

// Catalog returns the weapon table.
func (m *Match) Catalog() *Catalog { return m.catalog }

// SetMap switches the map. Only meaningful between matches.
func (m *Match) SetMap(id string) bool {
	a, ok := LookupArena(id)
	if !ok {
		return false
	}
	m.setArena(a)
	return true
}

// Active reports whether a match is running.
func (m *Match) Active() bool { return m.active }

// TickCount returns the number of simulation ticks run this match.
func (m *Match) TickCount() uint64 { return m.tick }

// =============================================================================
// ROSTER
// =============================================================================

// AddPlayer appends an entity to the roster. Join order is preserved.
func (m *Match) AddPlayer(p *Player) {
	if _, exists := m.byID[p.ID]; exists {
		return
	}
	m.players = append(m.players, p)
	m.byID[p.ID] = p
	if p.IsBot() && m.active {
		p.Transform.Position = m.arena.RandomSpawn(m.rng)
	}
	m.journal.EmitSimple(EventTypePlayerJoin, m.roomID, m.tick, "", Summary{ID: p.ID, Nickname: p.Nickname, IsBot: p.IsBot()})
}

// NewBot creates a bot entity with a fresh id and identity.
func (m *Match) NewBot(d Difficulty, pers Personality) *Player {
	nickname, character := RandomBotIdentity(m.rng)
	p := NewPlayer("bot-"+uuid.NewString()[:8], nickname, character)
	p.Ready = true
	p.Bot = NewBotBrain(d, pers)
	p.Transform.Position = m.arena.RandomSpawn(m.rng)
	return p
}

// RemovePlayer drops an entity and cancels its pending callbacks.
func (m *Match) RemovePlayer(id string) (*Player, bool) {
	p, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	delete(m.byID, id)
	for i, q := range m.players {
		if q == p {
			m.players = append(m.players[:i], m.players[i+1:]...)
			break
		}
	}
	m.cancel(respawnKey(id))
	m.cancel(unlockKey(id))
	m.journal.EmitSimple(EventTypePlayerLeave, m.roomID, m.tick, "", Summary{ID: p.ID, Nickname: p.Nickname, IsBot: p.IsBot()})
	return p, true
}

// Player looks up an entity by id.
func (m *Match) Player(id string) *Player { return m.byID[id] }

// Players returns the roster in join order. The slice is shared; do not modify.
func (m *Match) Players() []*Player { return m.players }

// Len returns the roster size.
func (m *Match) Len() int { return len(m.players) }

// Humans returns the human entities in join order.
func (m *Match) Humans() []*Player {
	var out []*Player
	for _, p := range m.players {
		if !p.IsBot() {
			out = append(out, p)
		}
	}
	return out
}

// Summaries returns the roster view.
func (m *Match) Summaries() []Summary {
	out := make([]Summary, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Summary())
	}
	return out
}

// Scores returns the scoreboard in join order.
func (m *Match) Scores() []Score {
	out := make([]Score, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, Score{ID: p.ID, Nickname: p.Nickname, Kills: p.Kills, Deaths: p.Deaths})
	}
	return out
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Begin resets every entity for a new round and places the initial weapons.
func (m *Match) Begin() []WeaponSpawn {
	m.cancelAll()
	m.active = true
	m.tick = 0
	m.spawns = m.spawns[:0]

	for _, p := range m.players {
		p.resetScore()
		p.resetLife()
		p.EquippedWeapon = ""
		p.granted = ""
		p.Animation = ""
		if p.Bot != nil {
			p.Bot.reset()
			p.Bot.AttackCooldown = 0
			p.Bot.RollCooldown = 0
			p.Transform.Position = m.arena.RandomSpawn(m.rng)
		}
	}

	for i := 0; i < m.cfg.InitialWeaponSpawns; i++ {
		m.spawns = append(m.spawns, m.newServerSpawn())
	}

	m.journal.EmitSimple(EventTypeMatchStart, m.roomID, 0, "", MatchPayload{Map: m.arena.ID, Players: len(m.players)})
	return m.Spawns()
}

// End stops the round, cancels pending callbacks and returns final scores.
func (m *Match) End() []Score {
	m.cancelAll()
	m.active = false
	for _, p := range m.players {
		p.IsAttacking = false
		if p.Bot != nil {
			p.Bot.reset()
		}
	}
	scores := m.Scores()
	m.journal.EmitSimple(EventTypeMatchEnd, m.roomID, m.tick, "", MatchPayload{Map: m.arena.ID, Players: len(m.players), Scores: scores})
	return scores
}

// Close cancels every pending callback; the match must not be used afterwards.
func (m *Match) Close() {
	m.cancelAll()
	m.active = false
}

// =============================================================================
// WEAPON SPAWNS
// =============================================================================

// Spawns returns a copy of the weapons on the floor.
func (m *Match) Spawns() []WeaponSpawn {
	return append([]WeaponSpawn(nil), m.spawns...)
}

func (m *Match) spawnIndex(id string) int {
	for i, s := range m.spawns {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m *Match) newServerSpawn() WeaponSpawn {
	pos := m.arena.RandomWeaponPoint(m.rng)
	return WeaponSpawn{
		ID:         uuid.NewString(),
		WeaponName: m.catalog.RandomSpawnable(m.rng),
		X:          pos.X,
		Y:          pos.Y,
		Z:          pos.Z,
	}
}

// TakeSpawn removes a spawn on behalf of playerID. The first caller wins;
// later calls for the same id return false and change nothing.
func (m *Match) TakeSpawn(spawnID, playerID string) (WeaponSpawn, bool) {
	i := m.spawnIndex(spawnID)
	if i < 0 {
		return WeaponSpawn{}, false
	}
	s := m.spawns[i]
	m.spawns = append(m.spawns[:i], m.spawns[i+1:]...)
	if p := m.byID[playerID]; p != nil {
		p.granted = s.WeaponName
	}
	m.journal.EmitSimple(EventTypePickup, m.roomID, m.tick, playerID, PickupPayload{SpawnID: s.ID, Weapon: s.WeaponName})
	if m.hooks.PickedUp != nil {
		m.hooks.PickedUp(s.ID, playerID)
	}
	return s, true
}

// AddSpawn places a client-announced weapon. The position is clamped to the map.
func (m *Match) AddSpawn(s WeaponSpawn) (WeaponSpawn, error) {
	if !m.catalog.Has(s.WeaponName) {
		return WeaponSpawn{}, ErrUnknownWeapon
	}
	if m.spawnIndex(s.ID) >= 0 {
		return WeaponSpawn{}, ErrDuplicateSpawn
	}
	if m.cfg.MaxWeaponSpawns > 0 && len(m.spawns) >= m.cfg.MaxWeaponSpawns {
		return WeaponSpawn{}, ErrSpawnLimit
	}
	s.X, s.Z = m.arena.Clamp(s.X, s.Z)
	if math.IsNaN(s.Y) || math.IsInf(s.Y, 0) {
		s.Y = m.arena.WeaponY
	}
	m.spawns = append(m.spawns, s)
	if m.hooks.Spawned != nil {
		m.hooks.Spawned(s)
	}
	return s, nil
}

// spawnReplacement drops a new server-chosen weapon after a bot pickup.
func (m *Match) spawnReplacement() {
	if m.cfg.MaxWeaponSpawns > 0 && len(m.spawns) >= m.cfg.MaxWeaponSpawns {
		return
	}
	s := m.newServerSpawn()
	m.spawns = append(m.spawns, s)
	if m.hooks.Spawned != nil {
		m.hooks.Spawned(s)
	}
}

// Equip records a weapon change reported by a client. Only the weapon the
// server granted through a pickup, or unequipping, is accepted.
func (m *Match) Equip(playerID, weapon string) bool {
	p := m.byID[playerID]
	if p == nil {
		return false
	}
	if weapon != "" && weapon != p.granted {
		return false
	}
	p.EquippedWeapon = weapon
	if m.hooks.Equipped != nil {
		m.hooks.Equipped(playerID, weapon)
	}
	return true
}

// =============================================================================
// SCHEDULING
// =============================================================================

func respawnKey(id string) string { return "respawn:" + id }
func unlockKey(id string) string  { return "unlock:" + id }

func (m *Match) schedule(key string, d time.Duration, fn func()) {
	if m.sched == nil {
		return
	}
	m.cancel(key)
	m.timerSeq++
	id := m.timerSeq
	cancel := m.sched.After(d, func() {
		if t, ok := m.timers[key]; ok && t.id == id {
			delete(m.timers, key)
		}
		fn()
	})
	m.timers[key] = pendingTimer{id: id, cancel: cancel}
}

func (m *Match) cancel(key string) {
	if t, ok := m.timers[key]; ok {
		t.cancel()
		delete(m.timers, key)
	}
}

func (m *Match) cancelAll() {
	for key, t := range m.timers {
		t.cancel()
		delete(m.timers, key)
	}
}

// PendingTimers returns how many delayed callbacks are outstanding.
func (m *Match) PendingTimers() int { return len(m.timers) }

func (m *Match) ticksFor(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(m.cfg.Tick)))
}

func (m *Match) secondsToTicks(s float64) int {
	return m.ticksFor(time.Duration(s * float64(time.Second)))
}
