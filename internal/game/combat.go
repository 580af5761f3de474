package game

import "math"

// ApplyDamage is the single entry point for health loss, whether the hit
// came from a client claim or from the bot loop.
//
// The returned bool is false when the target does not exist. Damage on an
// entity already at zero health is broadcast but never counted twice.
func (m *Match) ApplyDamage(targetID string, amount int, attackerID string, fx *Effects, attackerPos *Vec3) (HealthUpdate, bool) {
	target := m.byID[targetID]
	if target == nil {
		return HealthUpdate{}, false
	}
	if amount < 0 {
		amount = 0
	}

	// Self-damage keeps the previous attribution.
	if attackerID != "" && attackerID != targetID {
		target.LastHitBy = attackerID
	}

	target.Health -= amount
	if target.Health < 0 {
		target.Health = 0
	}

	if target.Bot != nil && target.Health > 0 {
		target.Bot.LastDamagedTick = m.tick
		target.Bot.dodgePending = true
		if fx != nil {
			m.applyEffects(target, fx, attackerID, attackerPos)
		}
	}

	upd := HealthUpdate{
		PlayerID:         target.ID,
		Health:           target.Health,
		AttackerID:       attackerID,
		Effects:          fx,
		AttackerPosition: attackerPos,
	}
	if m.hooks.Health != nil {
		m.hooks.Health(upd)
	}
	m.journal.EmitSimple(EventTypeDamage, m.roomID, m.tick, attackerID, DamagePayload{
		AttackerID: attackerID,
		VictimID:   target.ID,
		Damage:     amount,
		VictimHP:   target.Health,
	})

	if target.Health == 0 {
		m.resolveDeath(target, attackerID)
	}
	return upd, true
}

// applyEffects turns knockback/stun parameters into bot timers.
func (m *Match) applyEffects(bot *Player, fx *Effects, attackerID string, attackerPos *Vec3) {
	b := bot.Bot

	if fx.KnockbackStrength > 0 && fx.KnockbackDuration > 0 {
		var from Vec3
		haveSource := false
		if attackerPos != nil {
			from, haveSource = *attackerPos, true
		} else if a := m.byID[attackerID]; a != nil && a != bot {
			from, haveSource = a.Position(), true
		}

		dx, dz := 0.0, 0.0
		if haveSource {
			dx, dz = bot.Transform.Position.X-from.X, bot.Transform.Position.Z-from.Z
		}
		if d := math.Hypot(dx, dz); d > 1e-6 {
			dx, dz = dx/d, dz/d
		} else {
			// Push backwards relative to facing.
			dx, dz = -math.Sin(bot.Transform.Yaw), -math.Cos(bot.Transform.Yaw)
		}
		b.KnockbackVel = vec2{X: dx * fx.KnockbackStrength, Z: dz * fx.KnockbackStrength}
		b.KnockbackTicks = m.secondsToTicks(fx.KnockbackDuration)
	}

	if fx.StunDuration > 0 {
		if t := m.secondsToTicks(fx.StunDuration); t > b.StunTicks {
			b.StunTicks = t
		}
	}

	if b.StunTicks > 0 || b.KnockbackTicks > 0 {
		b.RollTicks = 0
		b.interrupt(BotStunned)
	}
}

// resolveDeath runs kill/death accounting once per life.
func (m *Match) resolveDeath(victim *Player, claimedAttacker string) {
	if victim.Health > 0 || victim.KillProcessed {
		return
	}
	victim.KillProcessed = true
	victim.IsAttacking = false

	killerID := victim.LastHitBy
	if killerID == "" {
		killerID = claimedAttacker
	}
	killer := m.byID[killerID]
	if killer != nil && killer != victim {
		killer.Kills++
	}
	victim.Deaths++

	feed := KillFeed{
		AttackerName:      "World",
		AttackerCharacter: "Default",
		VictimID:          victim.ID,
		VictimName:        victim.Nickname,
		VictimCharacter:   victim.Character,
	}
	if killer != nil {
		feed.AttackerID = killer.ID
		feed.AttackerName = killer.Nickname
		feed.AttackerCharacter = killer.Character
	}

	var killerKills int
	if killer != nil {
		killerKills = killer.Kills
	}
	m.journal.EmitSimple(EventTypeKill, m.roomID, m.tick, "", KillPayload{
		KillerID:     feed.AttackerID,
		VictimID:     victim.ID,
		KillerKills:  killerKills,
		VictimDeaths: victim.Deaths,
	})

	if m.hooks.Scores != nil {
		m.hooks.Scores(m.Scores())
	}
	if m.hooks.KillFeed != nil {
		m.hooks.KillFeed(feed)
	}

	if victim.Bot != nil {
		victim.Bot.reset()
		m.cancel(unlockKey(victim.ID))
		m.scheduleBotRespawn(victim)
	}
}

func (m *Match) scheduleBotRespawn(bot *Player) {
	id, life := bot.ID, bot.Life
	m.schedule(respawnKey(id), m.cfg.BotRespawnDelay, func() {
		p := m.byID[id]
		if p != bot || p.Life != life || !p.IsDead() || !m.active {
			return
		}
		m.respawnBot(p)
	})
}

func (m *Match) respawnBot(p *Player) {
	p.resetLife()
	p.Bot.reset()
	p.EquippedWeapon = ""
	p.granted = ""
	p.Animation = "Idle"
	p.Transform.Position = m.arena.RandomSpawn(m.rng)

	m.journal.EmitSimple(EventTypeRespawn, m.roomID, m.tick, "", RespawnPayload{PlayerID: p.ID, Position: p.Position()})
	if m.hooks.Health != nil {
		m.hooks.Health(HealthUpdate{PlayerID: p.ID, Health: p.Health})
	}
	if m.hooks.Respawned != nil {
		m.hooks.Respawned(p)
	}
}

// ReportDeath handles a client's own death signal. The victim is forced to
// zero health and accounted once; repeated reports for the same life are
// ignored.
func (m *Match) ReportDeath(victimID, attackerID string) bool {
	victim := m.byID[victimID]
	if victim == nil || victim.KillProcessed {
		return false
	}
	if victim.Health > 0 {
		victim.Health = 0
		if m.hooks.Health != nil {
			m.hooks.Health(HealthUpdate{PlayerID: victim.ID, Health: 0, AttackerID: attackerID})
		}
	}
	m.resolveDeath(victim, attackerID)
	return true
}

// Respawn brings a dead human back. It clears the death guard and
// attribution before the entity can take damage again.
func (m *Match) Respawn(playerID string) bool {
	p := m.byID[playerID]
	if p == nil || p.IsBot() || !p.IsDead() {
		return false
	}
	p.resetLife()
	m.journal.EmitSimple(EventTypeRespawn, m.roomID, m.tick, p.ID, RespawnPayload{PlayerID: p.ID, Position: p.Position()})
	if m.hooks.Health != nil {
		m.hooks.Health(HealthUpdate{PlayerID: p.ID, Health: p.Health})
	}
	return true
}
