package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"arena-brawl/internal/config"
	"arena-brawl/internal/game"
	"arena-brawl/internal/metrics"
	"arena-brawl/internal/protocol"
)

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 6
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Match   config.MatchConfig
	Limits  config.ResourceLimits
	Catalog *game.Catalog
	Journal *game.EventLog
	// Leaderboard collects finished rounds; nil creates a fresh one.
	Leaderboard *game.Leaderboard
	Logger      *zap.Logger
	// Seed makes room randomness reproducible; zero seeds from the clock.
	Seed int64
}

// Registry holds every open room by code. Rooms are created by their first
// player and removed when no human is left.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg     config.MatchConfig
	limits  config.ResourceLimits
	catalog *game.Catalog
	journal *game.EventLog
	board   *game.Leaderboard
	log     *zap.Logger
	seed    int64
	created int64
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Match.TickInterval <= 0 {
		opts.Match = config.DefaultMatch()
	}
	if opts.Limits.MaxRooms <= 0 {
		opts.Limits = config.DefaultLimits()
	}
	if opts.Catalog == nil {
		opts.Catalog = game.DefaultCatalog()
	}
	if opts.Leaderboard == nil {
		opts.Leaderboard = game.NewLeaderboard(0)
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		cfg:     opts.Match,
		limits:  opts.Limits,
		catalog: opts.Catalog,
		journal: opts.Journal,
		board:   opts.Leaderboard,
		log:     opts.Logger,
		seed:    opts.Seed,
	}
}

// Catalog returns the weapon table shared by all rooms.
func (g *Registry) Catalog() *game.Catalog { return g.catalog }

// Leaderboard returns the cross-room results table.
func (g *Registry) Leaderboard() *game.Leaderboard { return g.board }

// normalize fills defaults and clamps owner-chosen settings.
func (g *Registry) normalize(req protocol.CreateRoom) Settings {
	s := Settings{
		Name:       strings.TrimSpace(req.RoomName),
		Map:        req.Map,
		MaxPlayers: req.MaxPlayers,
		Visibility: req.Visibility,
		RoundTime:  req.RoundTime,
	}
	if s.Name == "" {
		s.Name = strings.TrimSpace(req.Nickname) + "'s room"
	}
	if !game.ValidMap(s.Map) {
		s.Map = game.MapCity
	}
	if s.MaxPlayers <= 0 {
		s.MaxPlayers = g.cfg.DefaultMaxPlayers
	}
	s.MaxPlayers = min(max(s.MaxPlayers, 1), g.cfg.MaxPlayersCap)
	if s.Visibility != VisibilityPrivate {
		s.Visibility = VisibilityPublic
	}
	if s.RoundTime <= 0 {
		s.RoundTime = g.cfg.DefaultRoundTime
	}
	s.RoundTime = min(max(s.RoundTime, g.cfg.MinRoundTime), g.cfg.MaxRoundTime)
	return s
}

// Create opens a new room owned by conn and seats it.
func (g *Registry) Create(conn Conn, req protocol.CreateRoom) (*Room, error) {
	settings := g.normalize(req)

	g.mu.Lock()
	if len(g.rooms) >= g.limits.MaxRooms {
		g.mu.Unlock()
		return nil, ErrTooManyRooms
	}
	code := g.newCodeLocked()
	g.created++
	seed := g.seed + g.created
	if g.seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := New(Options{
		ID:              code,
		Settings:        settings,
		Match:           g.cfg,
		MaxWeaponSpawns: g.limits.MaxWeaponSpawns,
		Catalog:         g.catalog,
		Journal:         g.journal,
		Leaderboard:     g.board,
		Logger:          g.log,
		Rand:            mrand.New(mrand.NewSource(seed)),
		OnEmpty:         g.remove,
	})
	g.rooms[code] = r
	count := len(g.rooms)
	g.mu.Unlock()

	go r.Run()
	metrics.SetRooms(count)
	g.log.Info("room created", zap.String("room", code), zap.String("map", settings.Map), zap.String("visibility", settings.Visibility))

	if err := r.Join(conn, Identity{Nickname: req.Nickname, Character: req.Character}, protocol.TypeRoomCreated); err != nil {
		g.remove(code)
		return nil, fmt.Errorf("seat creator: %w", err)
	}
	return r, nil
}

// Join seats conn in the room with the given code.
func (g *Registry) Join(conn Conn, req protocol.JoinRoom) (*Room, error) {
	code := strings.ToUpper(strings.TrimSpace(req.RoomID))
	if !ValidCode(code) {
		return nil, ErrInvalidCode
	}
	r, ok := g.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := r.Join(conn, Identity{Nickname: req.Nickname, Character: req.Character}, protocol.TypeRoomJoined); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return r, nil
}

// Get returns the room with the given code.
func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[code]
	return r, ok
}

// ListPublic returns the public rooms sorted by code.
func (g *Registry) ListPublic() []protocol.RoomSummary {
	g.mu.RLock()
	out := make([]protocol.RoomSummary, 0, len(g.rooms))
	for _, r := range g.rooms {
		info := r.Info()
		if info.Visibility != VisibilityPublic {
			continue
		}
		out = append(out, protocol.RoomSummary{
			ID:         info.ID,
			Name:       info.Name,
			Map:        info.Map,
			Players:    info.Players,
			MaxPlayers: info.MaxPlayers,
			Status:     string(info.Status),
		})
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats summarizes all rooms.
type Stats struct {
	Rooms   int `json:"rooms"`
	Playing int `json:"playing"`
	Humans  int `json:"humans"`
	Bots    int `json:"bots"`
}

// Stats returns aggregate counts across rooms.
func (g *Registry) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{Rooms: len(g.rooms)}
	for _, r := range g.rooms {
		info := r.Info()
		if info.Status == StatusPlaying {
			s.Playing++
		}
		s.Humans += info.Humans
		s.Bots += info.Players - info.Humans
	}
	return s
}

// Count returns the number of open rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Shutdown stops every room and waits for their loops to exit.
func (g *Registry) Shutdown() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for code, r := range g.rooms {
		rooms = append(rooms, r)
		delete(g.rooms, code)
	}
	g.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
	for _, r := range rooms {
		<-r.Done()
	}
	metrics.SetRooms(0)
	g.log.Info("registry shut down", zap.Int("rooms", len(rooms)))
}

func (g *Registry) remove(code string) {
	g.mu.Lock()
	r, ok := g.rooms[code]
	if ok {
		delete(g.rooms, code)
	}
	count := len(g.rooms)
	g.mu.Unlock()

	if ok {
		r.Stop()
		metrics.SetRooms(count)
		g.log.Info("room removed", zap.String("room", code))
	}
}

func (g *Registry) newCodeLocked() string {
	for {
		code := generateCode(codeLength)
		if _, exists := g.rooms[code]; !exists {
			return code
		}
	}
}

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}

// ValidCode reports whether code has the shape of a room code.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeChars, rune(code[i])) {
			return false
		}
	}
	return true
}
