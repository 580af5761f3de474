package game

import (
	"math/rand"
	"sort"
	"testing"
	"time"
)

// manualScheduler runs callbacks only when the test advances time.
type manualScheduler struct {
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	at        time.Duration
	fn        func()
	cancelled bool
}

func (s *manualScheduler) After(d time.Duration, fn func()) func() {
	t := &manualTask{at: s.now + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return func() { t.cancelled = true }
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.now += d
	for {
		sort.SliceStable(s.tasks, func(i, j int) bool { return s.tasks[i].at < s.tasks[j].at })
		if len(s.tasks) == 0 || s.tasks[0].at > s.now {
			return
		}
		t := s.tasks[0]
		s.tasks = s.tasks[1:]
		if !t.cancelled {
			t.fn()
		}
	}
}

// recorder captures every hook invocation.
type recorder struct {
	health   []HealthUpdate
	scores   [][]Score
	feed     []KillFeed
	respawn  []string
	attacks  []string
	pickups  []string
	spawned  []WeaponSpawn
	equipped map[string]string
	updates  int
}

func (r *recorder) hooks() Hooks {
	r.equipped = map[string]string{}
	return Hooks{
		Health:      func(u HealthUpdate) { r.health = append(r.health, u) },
		Scores:      func(s []Score) { r.scores = append(r.scores, s) },
		KillFeed:    func(k KillFeed) { r.feed = append(r.feed, k) },
		Respawned:   func(p *Player) { r.respawn = append(r.respawn, p.ID) },
		BotUpdated:  func(State) { r.updates++ },
		BotAttacked: func(id, anim string) { r.attacks = append(r.attacks, id+":"+anim) },
		PickedUp:    func(spawnID, playerID string) { r.pickups = append(r.pickups, spawnID+":"+playerID) },
		Spawned:     func(s WeaponSpawn) { r.spawned = append(r.spawned, s) },
		Equipped:    func(id, w string) { r.equipped[id] = w },
	}
}

type fixture struct {
	m     *Match
	sched *manualScheduler
	rec   *recorder
}

func newFixture(t *testing.T, spawns int) *fixture {
	t.Helper()
	cfg := DefaultMatchConfig()
	cfg.InitialWeaponSpawns = spawns
	f := &fixture{sched: &manualScheduler{}, rec: &recorder{}}
	f.m = NewMatch(MatchOptions{
		RoomID:    "TEST22",
		MapID:     MapCity,
		Config:    cfg,
		Scheduler: f.sched,
		Hooks:     f.rec.hooks(),
		Rand:      rand.New(rand.NewSource(1)),
	})
	return f
}

// step advances the clock by one tick and runs the bot loop.
func (f *fixture) step(n int) {
	for i := 0; i < n; i++ {
		f.sched.Advance(f.m.cfg.Tick)
		f.m.Tick()
	}
}

func (f *fixture) human(id string) *Player {
	p := NewPlayer(id, id, "Knight_Male")
	f.m.AddPlayer(p)
	return p
}

func (f *fixture) bot(t *testing.T, difficulty, personality string) *Player {
	t.Helper()
	d, ok := LookupDifficulty(difficulty)
	if !ok {
		t.Fatalf("unknown difficulty %s", difficulty)
	}
	pers, ok := LookupPersonality(personality)
	if !ok {
		t.Fatalf("unknown personality %s", personality)
	}
	p := f.m.NewBot(d, pers)
	f.m.AddPlayer(p)
	return p
}

func place(p *Player, x, z float64) {
	p.Transform.Position = Vec3{X: x, Z: z}
}

func TestRosterKeepsJoinOrder(t *testing.T) {
	f := newFixture(t, 0)
	f.human("a")
	f.human("b")
	f.human("c")

	f.m.RemovePlayer("b")
	f.human("d")

	var ids []string
	for _, p := range f.m.Players() {
		ids = append(ids, p.ID)
	}
	want := []string{"a", "c", "d"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("roster order = %v, want %v", ids, want)
		}
	}
}

func TestBeginResetsScoresAndSpawnsWeapons(t *testing.T) {
	f := newFixture(t, 10)
	p := f.human("a")
	p.Kills, p.Deaths, p.Health = 4, 2, 0
	p.KillProcessed = true

	spawns := f.m.Begin()

	if len(spawns) != 10 {
		t.Fatalf("expected 10 spawns, got %d", len(spawns))
	}
	if p.Kills != 0 || p.Deaths != 0 || p.Health != MaxHealth || p.KillProcessed {
		t.Errorf("player not reset: %+v", p.Summary())
	}
	seen := map[string]bool{}
	for _, s := range spawns {
		if seen[s.ID] {
			t.Fatalf("duplicate spawn id %s", s.ID)
		}
		seen[s.ID] = true
		if !f.m.Catalog().Has(s.WeaponName) || s.WeaponName == "Potion1_Filled.fbx" {
			t.Errorf("invalid spawn weapon %q", s.WeaponName)
		}
	}
}

func TestTakeSpawnIsExclusive(t *testing.T) {
	f := newFixture(t, 3)
	f.human("a")
	f.human("b")
	spawns := f.m.Begin()
	id := spawns[0].ID

	_, okA := f.m.TakeSpawn(id, "a")
	_, okB := f.m.TakeSpawn(id, "b")

	if !okA || okB {
		t.Fatalf("expected exactly the first pickup to win, got a=%v b=%v", okA, okB)
	}
	if len(f.m.Spawns()) != 2 {
		t.Errorf("spawn list should shrink by one, got %d", len(f.m.Spawns()))
	}
	if len(f.rec.pickups) != 1 {
		t.Errorf("expected 1 pickup broadcast, got %d", len(f.rec.pickups))
	}

	// Only the winner may equip it.
	if !f.m.Equip("a", spawns[0].WeaponName) {
		t.Error("winner should be able to equip")
	}
	if f.m.Equip("b", spawns[0].WeaponName) {
		t.Error("loser must not equip a weapon it never received")
	}
	if !f.m.Equip("b", "") {
		t.Error("unequip is always allowed")
	}
}

func TestAddSpawnValidation(t *testing.T) {
	f := newFixture(t, 0)
	f.m.Begin()

	s, err := f.m.AddSpawn(WeaponSpawn{ID: "w1", WeaponName: "Sword.fbx", X: 500, Y: 1, Z: -500})
	if err != nil {
		t.Fatalf("AddSpawn: %v", err)
	}
	if s.X != 39 || s.Z != -39 {
		t.Errorf("position not clamped: %+v", s)
	}

	if _, err := f.m.AddSpawn(WeaponSpawn{ID: "w1", WeaponName: "Sword.fbx"}); err != ErrDuplicateSpawn {
		t.Errorf("duplicate id: got %v", err)
	}
	if _, err := f.m.AddSpawn(WeaponSpawn{ID: "w2", WeaponName: "Railgun.fbx"}); err != ErrUnknownWeapon {
		t.Errorf("unknown weapon: got %v", err)
	}
}

func TestEndCancelsPendingCallbacks(t *testing.T) {
	f := newFixture(t, 0)
	f.human("h")
	b := f.bot(t, "normal", "balanced")
	f.m.Begin()

	f.m.ApplyDamage(b.ID, 100, "h", nil, nil)
	if f.m.PendingTimers() != 1 {
		t.Fatalf("expected a pending respawn, got %d", f.m.PendingTimers())
	}

	f.m.End()
	if f.m.PendingTimers() != 0 {
		t.Errorf("End should cancel timers, %d left", f.m.PendingTimers())
	}
	f.sched.Advance(5 * time.Second)
	if len(f.rec.respawn) != 0 {
		t.Error("respawn fired after match end")
	}
}
