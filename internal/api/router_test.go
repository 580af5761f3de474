package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"arena-brawl/internal/api"
	"arena-brawl/internal/config"
	"arena-brawl/internal/game"
	"arena-brawl/internal/protocol"
	"arena-brawl/internal/room"
)

// ============================================================================
// Helpers
// ============================================================================

// stubConn is a room.Conn that only records messages.
type stubConn struct {
	id   string
	mu   sync.Mutex
	msgs []string
}

func (c *stubConn) ID() string { return c.id }

func (c *stubConn) Send(msgType string, _ any) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, msgType)
	c.mu.Unlock()
	return nil
}

func (c *stubConn) Detach(string) {}

func testMatchConfig() config.MatchConfig {
	cfg := config.DefaultMatch()
	cfg.BotStartDelay = time.Hour
	cfg.ClockInterval = time.Hour
	return cfg
}

func newRegistry(t *testing.T) *room.Registry {
	t.Helper()
	reg := room.NewRegistry(room.RegistryOptions{
		Match:  testMatchConfig(),
		Limits: config.DefaultLimits(),
		Logger: zaptest.NewLogger(t),
		Seed:   11,
	})
	t.Cleanup(reg.Shutdown)
	return reg
}

func newTestRouter(t *testing.T, reg *room.Registry, cfg api.RouterConfig) *httptest.Server {
	t.Helper()
	cfg.Registry = reg
	cfg.DisableLogging = true
	if cfg.RateLimiter == nil {
		rl := api.NewIPRateLimiter(api.RateLimitConfig{
			RequestsPerSecond: 1000, // High limit for tests
			Burst:             1000,
			CleanupInterval:   time.Hour,
		})
		t.Cleanup(rl.Stop)
		cfg.RateLimiter = rl
	}
	ts := httptest.NewServer(api.NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createRoom(t *testing.T, reg *room.Registry, owner string, visibility string) *room.Room {
	t.Helper()
	r, err := reg.Create(&stubConn{id: owner}, protocol.CreateRoom{Nickname: owner, Visibility: visibility})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return r
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

func TestHealth(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})

	var body map[string]any
	if code := getJSON(t, ts.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestListRoomsShowsPublicOnly(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})

	pub := createRoom(t, reg, "alice", "public")
	createRoom(t, reg, "bob", "private")

	var rooms []protocol.RoomSummary
	if code := getJSON(t, ts.URL+"/api/rooms", &rooms); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(rooms) != 1 {
		t.Fatalf("Expected 1 public room, got %d", len(rooms))
	}
	if rooms[0].ID != pub.ID() {
		t.Errorf("Expected room %s, got %s", pub.ID(), rooms[0].ID)
	}
	if rooms[0].Players != 1 || rooms[0].Status != "waiting" {
		t.Errorf("Unexpected summary: %+v", rooms[0])
	}
}

func TestGetRoom(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})
	r := createRoom(t, reg, "alice", "private")

	tests := []struct {
		name       string
		code       string
		wantStatus int
	}{
		{name: "existing room", code: r.ID(), wantStatus: http.StatusOK},
		{name: "lowercase code", code: lower(r.ID()), wantStatus: http.StatusOK},
		{name: "malformed code", code: "abc", wantStatus: http.StatusBadRequest},
		{name: "unknown room", code: "ZZZZZZ", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			code := getJSON(t, ts.URL+"/api/rooms/"+tt.code, &body)
			if code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, code)
			}
			if code == http.StatusOK && body["id"] != r.ID() {
				t.Errorf("Expected id %s, got %v", r.ID(), body["id"])
			}
		})
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestGetWeapons(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})

	var weapons []map[string]any
	if code := getJSON(t, ts.URL+"/api/weapons", &weapons); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(weapons) != len(reg.Catalog().All()) {
		t.Errorf("Expected %d weapons, got %d", len(reg.Catalog().All()), len(weapons))
	}
}

func TestGetStats(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})
	createRoom(t, reg, "alice", "public")
	createRoom(t, reg, "bob", "private")

	var body struct {
		Rooms room.Stats `json:"rooms"`
	}
	if code := getJSON(t, ts.URL+"/api/stats", &body); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if body.Rooms.Rooms != 2 || body.Rooms.Humans != 2 {
		t.Errorf("Unexpected stats: %+v", body.Rooms)
	}
}

func TestGetLeaderboard(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})

	var entries []game.LeaderboardEntry
	if code := getJSON(t, ts.URL+"/api/leaderboard", &entries); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty leaderboard, got %d entries", len(entries))
	}

	p := game.NewPlayer("p1", "alice", "")
	p.Kills = 4
	reg.Leaderboard().RecordRound([]*game.Player{p})

	if code := getJSON(t, ts.URL+"/api/leaderboard?limit=5", &entries); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(entries) != 1 || entries[0].Nickname != "alice" || entries[0].Rank != 1 {
		t.Errorf("Unexpected leaderboard: %+v", entries)
	}

	if code := getJSON(t, ts.URL+"/api/leaderboard?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", code)
	}
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestCORSHeaders(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{CORSOrigins: []string{"http://test.example.com"}})

	req, _ := http.NewRequest("GET", ts.URL+"/api/rooms", nil)
	req.Header.Set("Origin", "http://test.example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://test.example.com" {
		t.Errorf("Expected Access-Control-Allow-Origin 'http://test.example.com', got '%s'", got)
	}
}

func TestRateLimiting(t *testing.T) {
	reg := newRegistry(t)
	rl := api.NewIPRateLimiter(api.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   time.Hour,
	})
	t.Cleanup(rl.Stop)
	ts := newTestRouter(t, reg, api.RouterConfig{RateLimiter: rl})

	var gotRateLimited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/api/rooms")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			gotRateLimited = true
			break
		}
	}

	if !gotRateLimited {
		t.Error("Expected to be rate limited after burst exceeded")
	}
	if rl.Stats()["rejected"] == 0 {
		t.Error("Expected rejected counter to move")
	}
}

func TestWebSocketRouteOnlyWithHub(t *testing.T) {
	reg := newRegistry(t)
	ts := newTestRouter(t, reg, api.RouterConfig{})

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without a hub, got %d", resp.StatusCode)
	}
}

// ============================================================================
// Limiter Tests
// ============================================================================

func TestConnLimiter(t *testing.T) {
	cl := api.NewConnLimiter(3, 2)

	if ok, _ := cl.Acquire("1.1.1.1"); !ok {
		t.Fatal("first connection should be allowed")
	}
	if ok, _ := cl.Acquire("1.1.1.1"); !ok {
		t.Fatal("second connection should be allowed")
	}
	if ok, reason := cl.Acquire("1.1.1.1"); ok || reason != "ws_ip_limit" {
		t.Fatalf("third connection from same IP: ok=%v reason=%q", ok, reason)
	}
	if ok, _ := cl.Acquire("2.2.2.2"); !ok {
		t.Fatal("other IP should be allowed")
	}
	if ok, reason := cl.Acquire("3.3.3.3"); ok || reason != "ws_total_limit" {
		t.Fatalf("over total: ok=%v reason=%q", ok, reason)
	}

	cl.Release("1.1.1.1")
	if got := cl.CountFor("1.1.1.1"); got != 1 {
		t.Errorf("Expected 1 slot for IP after release, got %d", got)
	}
	if got := cl.Count(); got != 2 {
		t.Errorf("Expected 2 total slots, got %d", got)
	}
}

func TestOriginChecker(t *testing.T) {
	oc := api.NewOriginChecker([]string{"http://localhost:*", "https://*.example.com", "https://game.test"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://localhost", true},
		{"https://play.example.com", true},
		{"https://game.test", true},
		{"https://evil.test", false},
		{"http://play.example.com", false},
	}
	for _, tt := range tests {
		if got := oc.Allow(tt.origin); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	if !api.NewOriginChecker([]string{"*"}).Allow("https://anything.test") {
		t.Error("wildcard should allow every origin")
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := api.GetClientIP(req); got != "10.0.0.1" {
		t.Errorf("RemoteAddr: got %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := api.GetClientIP(req); got != "203.0.113.9" {
		t.Errorf("X-Forwarded-For: got %s", got)
	}
}
