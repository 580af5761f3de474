package game

import (
	"testing"
	"time"
)

func TestApplyDamageClampsAtZero(t *testing.T) {
	tests := []struct {
		name   string
		hits   []int
		health int
		deaths int
	}{
		{"single hit", []int{30}, 70, 0},
		{"exact kill", []int{50, 50}, 0, 1},
		{"overkill", []int{60, 60}, 0, 1},
		{"hits after death", []int{100, 20, 20}, 0, 1},
		{"zero damage", []int{0}, 100, 0},
		{"negative treated as zero", []int{-40}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.human("attacker")
			victim := f.human("victim")
			f.m.Begin()

			for _, dmg := range tt.hits {
				f.m.ApplyDamage("victim", dmg, "attacker", nil, nil)
			}

			if victim.Health != tt.health {
				t.Errorf("health = %d, want %d", victim.Health, tt.health)
			}
			if victim.Deaths != tt.deaths {
				t.Errorf("deaths = %d, want %d", victim.Deaths, tt.deaths)
			}
		})
	}
}

func TestDoubleClaimRecordsOneKill(t *testing.T) {
	f := newFixture(t, 0)
	a := f.human("a")
	b := f.human("b")
	f.m.Begin()

	f.m.ApplyDamage("b", 60, "a", nil, nil)
	f.m.ApplyDamage("b", 60, "a", nil, nil)

	if b.Health != 0 {
		t.Errorf("health = %d, want 0", b.Health)
	}
	if a.Kills != 1 || b.Deaths != 1 {
		t.Errorf("kills=%d deaths=%d, want 1/1", a.Kills, b.Deaths)
	}
	if len(f.rec.scores) != 1 || len(f.rec.feed) != 1 {
		t.Errorf("expected one scoreboard and one kill feed, got %d/%d", len(f.rec.scores), len(f.rec.feed))
	}
	if len(f.rec.health) != 2 {
		t.Errorf("every claim broadcasts health, got %d", len(f.rec.health))
	}
}

func TestDeathSignalAfterDamageKillIsNoop(t *testing.T) {
	f := newFixture(t, 0)
	a := f.human("a")
	v := f.human("v")
	f.m.Begin()

	f.m.ApplyDamage("v", 100, "a", nil, nil)
	if f.m.ReportDeath("v", "a") {
		t.Error("second death signal should be ignored")
	}
	if a.Kills != 1 || v.Deaths != 1 {
		t.Errorf("kills=%d deaths=%d, want 1/1", a.Kills, v.Deaths)
	}
}

func TestReportDeathBeforeDamage(t *testing.T) {
	f := newFixture(t, 0)
	a := f.human("a")
	v := f.human("v")
	f.m.Begin()

	if !f.m.ReportDeath("v", "a") {
		t.Fatal("first death signal should be processed")
	}
	// A late damage claim for the same life changes nothing.
	f.m.ApplyDamage("v", 40, "a", nil, nil)

	if v.Health != 0 || a.Kills != 1 || v.Deaths != 1 {
		t.Errorf("health=%d kills=%d deaths=%d", v.Health, a.Kills, v.Deaths)
	}
}

func TestSelfDamageKeepsAttribution(t *testing.T) {
	f := newFixture(t, 0)
	killer := f.human("killer")
	v := f.human("v")
	f.m.Begin()

	f.m.ApplyDamage("v", 50, "killer", nil, nil)
	f.m.ApplyDamage("v", 50, "v", nil, nil)

	if v.LastHitBy != "killer" {
		t.Errorf("LastHitBy = %q, want killer", v.LastHitBy)
	}
	if killer.Kills != 1 {
		t.Errorf("real attacker should get the kill, kills=%d", killer.Kills)
	}
	if v.Kills != 0 {
		t.Error("victim must not credit itself")
	}
}

func TestSuicideWithoutAttributionCountsDeathOnly(t *testing.T) {
	f := newFixture(t, 0)
	v := f.human("v")
	f.m.Begin()

	f.m.ApplyDamage("v", 100, "v", nil, nil)

	if v.Kills != 0 || v.Deaths != 1 {
		t.Errorf("kills=%d deaths=%d, want 0/1", v.Kills, v.Deaths)
	}
}

func TestKillFeedWithoutKiller(t *testing.T) {
	f := newFixture(t, 0)
	f.human("v")
	f.m.Begin()

	f.m.ApplyDamage("v", 100, "", nil, nil)

	if len(f.rec.feed) != 1 {
		t.Fatalf("expected one feed entry, got %d", len(f.rec.feed))
	}
	if fd := f.rec.feed[0]; fd.AttackerName != "World" || fd.AttackerCharacter != "Default" {
		t.Errorf("unexpected feed %+v", fd)
	}
}

func TestRespawnClearsGuardAndAttribution(t *testing.T) {
	f := newFixture(t, 0)
	a := f.human("a")
	v := f.human("v")
	f.m.Begin()

	f.m.ApplyDamage("v", 100, "a", nil, nil)
	if !f.m.Respawn("v") {
		t.Fatal("dead human should respawn")
	}
	if v.KillProcessed || v.LastHitBy != "" || v.Health != MaxHealth {
		t.Fatalf("respawn did not reset: guard=%v lastHitBy=%q health=%d", v.KillProcessed, v.LastHitBy, v.Health)
	}

	f.m.ApplyDamage("v", 100, "a", nil, nil)
	if a.Kills != 2 || v.Deaths != 2 {
		t.Errorf("second life should count again, kills=%d deaths=%d", a.Kills, v.Deaths)
	}
}

func TestRespawnRequiresDeath(t *testing.T) {
	f := newFixture(t, 0)
	v := f.human("v")
	f.m.Begin()
	f.m.ApplyDamage("v", 30, "", nil, nil)

	if f.m.Respawn("v") {
		t.Error("living player must not respawn")
	}
	if v.Health != 70 {
		t.Errorf("health = %d, want 70", v.Health)
	}
}

func TestBotRespawnsAfterDelay(t *testing.T) {
	f := newFixture(t, 0)
	f.human("h")
	b := f.bot(t, "normal", "balanced")
	f.m.Begin()

	f.m.ApplyDamage(b.ID, 100, "h", nil, nil)

	f.sched.Advance(2900 * time.Millisecond)
	if !b.IsDead() {
		t.Fatal("bot respawned too early")
	}
	f.sched.Advance(200 * time.Millisecond)
	if b.Health != MaxHealth || b.KillProcessed || b.LastHitBy != "" {
		t.Fatalf("bot not respawned: %+v", b.Summary())
	}
	if len(f.rec.respawn) != 1 || f.rec.respawn[0] != b.ID {
		t.Errorf("respawn hook = %v", f.rec.respawn)
	}
	if !f.m.Arena().CanMoveTo(b.Position().X, b.Position().Z) {
		t.Errorf("respawn position %+v is blocked", b.Position())
	}
}

func TestBotRespawnSkippedWhenBotRemoved(t *testing.T) {
	f := newFixture(t, 0)
	f.human("h")
	b := f.bot(t, "normal", "balanced")
	f.m.Begin()

	f.m.ApplyDamage(b.ID, 100, "h", nil, nil)
	f.m.RemovePlayer(b.ID)
	f.sched.Advance(5 * time.Second)

	if len(f.rec.respawn) != 0 {
		t.Error("removed bot must not respawn")
	}
}

func TestHealthStaysClampedForBots(t *testing.T) {
	f := newFixture(t, 0)
	f.human("h")
	b := f.bot(t, "hard", "defensive")
	f.m.Begin()

	for _, dmg := range []int{7, 33, 0, 90, 15, 1} {
		f.m.ApplyDamage(b.ID, dmg, "h", nil, nil)
		if b.Health < 0 || b.Health > MaxHealth {
			t.Fatalf("health out of range: %d", b.Health)
		}
	}
}

func TestEffectsStunAndKnockBot(t *testing.T) {
	f := newFixture(t, 0)
	h := f.human("h")
	b := f.bot(t, "normal", "balanced")
	f.m.Begin()
	place(h, 15, 15)
	place(b, 17, 15)

	fx := Effects{KnockbackStrength: 3, KnockbackDuration: 0.2, StunDuration: 0.2}
	pos := h.Position()
	f.m.ApplyDamage(b.ID, 10, "h", &fx, &pos)

	if b.Bot.State != BotStunned {
		t.Fatalf("state = %s, want stunned", b.Bot.State)
	}
	if b.Bot.StunTicks != 2 || b.Bot.KnockbackTicks != 2 {
		t.Errorf("stun=%d knockback=%d, want 2/2", b.Bot.StunTicks, b.Bot.KnockbackTicks)
	}
	if b.Bot.KnockbackVel.X <= 0 {
		t.Errorf("knockback should push away from attacker, vel=%+v", b.Bot.KnockbackVel)
	}

	before := b.Position().X
	f.step(2)
	if b.Position().X <= before {
		t.Error("bot should drift away while knocked back")
	}
	if b.Bot.State == BotStunned {
		t.Error("stun should wear off after its duration")
	}
}

func TestEffectsIgnoredForHumans(t *testing.T) {
	f := newFixture(t, 0)
	f.human("a")
	v := f.human("v")
	f.m.Begin()
	before := v.Position()

	fx := BotHitEffects
	upd, ok := f.m.ApplyDamage("v", 10, "a", &fx, nil)
	if !ok {
		t.Fatal("ApplyDamage failed")
	}
	if v.Position() != before {
		t.Error("server must not move human players")
	}
	if upd.Effects == nil || upd.Effects.KnockbackStrength != 3 {
		t.Error("effects should still be broadcast for the client to apply")
	}
}

func TestApplyDamageUnknownTarget(t *testing.T) {
	f := newFixture(t, 0)
	f.m.Begin()
	if _, ok := f.m.ApplyDamage("ghost", 10, "", nil, nil); ok {
		t.Error("missing target should be a no-op")
	}
	if len(f.rec.health) != 0 {
		t.Error("no broadcast for missing target")
	}
}
