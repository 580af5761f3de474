package game

import (
	"math"
)

// AI tuning. Distances are world units, durations are ticks.
const (
	fleeRadius         = 10.0
	fleeDistance       = 8.0
	fleeHysteresis     = 10 // health above threshold+this ends a flee
	engageRadius       = 30.0
	weaponSearchRadius = 15.0
	pickupRadius       = 1.5
	entitySpacing      = 1.3

	unarmedReach = 2.0
	minReach     = 1.6
	maxReach     = 3.0

	wanderSpeed = 2.0
	chaseSpeed  = 3.0
	seekSpeed   = 3.0
	fleeSpeed   = 3.5
	rollSpeed   = 7.0

	wanderTTLMin      = 30
	wanderTTLMax      = 60
	stuckThreshold    = 20
	recentDamageTicks = 3
	rollDurationTicks = 5
	rollCooldownTicks = 30
)

// Tick advances every living bot by one simulation step.
func (m *Match) Tick() {
	if !m.active {
		return
	}
	m.tick++
	m.rebuildGrid()

	for _, p := range m.players {
		if p.Bot == nil || p.IsDead() {
			continue
		}
		m.tickBot(p)
	}
}

func (m *Match) rebuildGrid() {
	m.grid.Clear()
	for i, p := range m.players {
		if p.IsDead() {
			continue
		}
		m.grid.Insert(uint32(i), p.Transform.Position.X, p.Transform.Position.Z)
	}
}

// neighbours calls fn for every living entity other than self within r.
func (m *Match) neighbours(self *Player, r float64, fn func(q *Player, dist float64)) {
	pos := self.Position()
	// Grid positions are from the start of the tick; widen by one step.
	for _, idx := range m.grid.QueryRadius(pos.X, pos.Z, r+1) {
		if int(idx) >= len(m.players) {
			continue
		}
		q := m.players[idx]
		if q == self || q.IsDead() {
			continue
		}
		if d := pos.DistXZ(q.Position()); d <= r {
			fn(q, d)
		}
	}
}

func (m *Match) tickBot(p *Player) {
	b := p.Bot
	b.Ticks++
	if b.AttackCooldown > 0 {
		b.AttackCooldown--
	}
	if b.RollCooldown > 0 {
		b.RollCooldown--
	}

	if m.resolveStatus(p) || m.tryDodge(p) {
		m.publish(p)
		return
	}

	m.evaluateFlee(p)

	decide := (b.Ticks-1)%uint64(max(1, b.Difficulty.ReactionTicks)) == 0
	if decide {
		m.evaluateEquipment(p)
	}
	m.tryPickup(p)

	m.validateTarget(p)
	if decide {
		m.selectTarget(p)
	}

	if dest, speed, ok := m.destination(p); ok && !b.AttackLocked {
		m.moveToward(p, dest, speed)
	} else {
		b.StuckTicks = 0
	}

	m.tryAttack(p)
	m.publish(p)
}

func (m *Match) publish(p *Player) {
	if m.hooks.BotUpdated != nil {
		m.hooks.BotUpdated(p.State())
	}
}

// resolveStatus advances stun, knockback and roll. It returns true while
// the bot is not allowed to think this tick.
func (m *Match) resolveStatus(p *Player) bool {
	b := p.Bot
	if !b.State.interrupting() {
		return false
	}
	dt := m.cfg.Tick.Seconds()

	switch b.State {
	case BotStunned:
		if b.KnockbackTicks > 0 {
			m.tryStep(p, b.KnockbackVel.X*dt, b.KnockbackVel.Z*dt, false)
			b.KnockbackTicks--
		}
		if b.StunTicks > 0 {
			b.StunTicks--
		}
		if b.StunTicks == 0 && b.KnockbackTicks == 0 {
			b.KnockbackVel = vec2{}
			b.State = b.resume
		}
	case BotRolling:
		if b.RollTicks > 0 {
			m.tryStep(p, b.RollDir.X*rollSpeed*dt, b.RollDir.Z*rollSpeed*dt, false)
			b.RollTicks--
		}
		if b.RollTicks == 0 {
			b.State = b.resume
			p.Animation = "Idle"
		}
	}
	return true
}

// tryDodge rolls away from the nearest threat shortly after being hit.
func (m *Match) tryDodge(p *Player) bool {
	b := p.Bot
	if !b.dodgePending {
		return false
	}
	if m.tick-b.LastDamagedTick > recentDamageTicks {
		b.dodgePending = false
		return false
	}
	if b.RollCooldown > 0 || b.AttackLocked {
		return false
	}
	b.dodgePending = false
	if m.rng.Float64() >= b.Personality.DodgeChance {
		return false
	}

	dir := vec2{X: -math.Sin(p.Transform.Yaw), Z: -math.Cos(p.Transform.Yaw)}
	if threat, _ := m.nearestEnemy(p, fleeRadius); threat != nil {
		dx := p.Transform.Position.X - threat.Transform.Position.X
		dz := p.Transform.Position.Z - threat.Transform.Position.Z
		if d := math.Hypot(dx, dz); d > 1e-6 {
			dir = vec2{X: dx / d, Z: dz / d}
		}
	}

	b.RollDir = dir
	b.RollTicks = rollDurationTicks
	b.RollCooldown = rollCooldownTicks
	b.interrupt(BotRolling)
	p.Animation = "Roll"
	return true
}

func (m *Match) nearestEnemy(p *Player, r float64) (*Player, float64) {
	var best *Player
	bestDist := math.MaxFloat64
	m.neighbours(p, r, func(q *Player, d float64) {
		if d < bestDist {
			best, bestDist = q, d
		}
	})
	return best, bestDist
}

// evaluateFlee enters or leaves the fleeing state.
func (m *Match) evaluateFlee(p *Player) {
	b := p.Bot

	// Near death: stand and fight.
	if p.Health <= b.Personality.LastStand {
		if b.State == BotFleeing {
			b.State = BotChasing
		}
		return
	}

	nearby := 0
	m.neighbours(p, fleeRadius, func(*Player, float64) { nearby++ })

	// Each extra enemy in range raises the bar.
	threshold := b.FleeThreshold
	if nearby > 1 {
		threshold += 10 * (nearby - 1)
	}

	if b.State == BotFleeing {
		if nearby == 0 || p.Health > threshold+fleeHysteresis {
			b.State = BotIdle
		}
		return
	}
	if nearby > 0 && p.Health <= threshold {
		b.State = BotFleeing
		b.WeaponTarget = ""
		b.TargetID = ""
	}
}

// IsFleeing reports whether a bot is currently running away.
func (p *Player) IsFleeing() bool {
	return p.Bot != nil && p.Bot.State == BotFleeing
}

// evaluateEquipment picks the weapon spawn the bot should walk to.
func (m *Match) evaluateEquipment(p *Player) {
	b := p.Bot
	if b.State == BotFleeing {
		return
	}
	pos := p.Position()
	armed := p.EquippedWeapon != ""
	current := m.catalog.Tier(p.EquippedWeapon)

	best := ""
	bestTier, bestDist := -1, math.MaxFloat64
	for _, s := range m.spawns {
		w, ok := m.catalog.Get(s.WeaponName)
		if !ok || !w.IsMelee() {
			continue
		}
		d := pos.DistXZ(s.Position())
		if armed {
			if d > weaponSearchRadius || w.Tier <= current {
				continue
			}
			if w.Tier > bestTier || (w.Tier == bestTier && d < bestDist) {
				best, bestTier, bestDist = s.ID, w.Tier, d
			}
			continue
		}
		if d < bestDist {
			best, bestDist = s.ID, d
		}
	}
	b.WeaponTarget = best
}

// tryPickup equips the targeted weapon once the bot stands on it.
func (m *Match) tryPickup(p *Player) {
	b := p.Bot
	if b.WeaponTarget == "" {
		return
	}
	i := m.spawnIndex(b.WeaponTarget)
	if i < 0 {
		b.WeaponTarget = ""
		return
	}
	if p.Position().DistXZ(m.spawns[i].Position()) > pickupRadius {
		return
	}

	s, ok := m.TakeSpawn(b.WeaponTarget, p.ID)
	b.WeaponTarget = ""
	if !ok {
		return
	}
	p.EquippedWeapon = s.WeaponName
	if m.hooks.Equipped != nil {
		m.hooks.Equipped(p.ID, s.WeaponName)
	}
	if b.State == BotSeekingWeapon {
		b.State = BotIdle
	}
	m.spawnReplacement()
}

// validateTarget drops a target that died, left or ran too far.
func (m *Match) validateTarget(p *Player) {
	b := p.Bot
	if b.TargetID == "" {
		return
	}
	t := m.byID[b.TargetID]
	if t == nil || t.IsDead() || p.Position().DistXZ(t.Position()) > engageRadius*1.5 {
		b.TargetID = ""
	}
}

// selectTarget scores living opponents: weaker and closer is better.
func (m *Match) selectTarget(p *Player) {
	b := p.Bot
	if b.State == BotFleeing {
		return
	}
	best := ""
	bestScore := math.Inf(-1)
	m.neighbours(p, engageRadius, func(q *Player, d float64) {
		score := float64(MaxHealth-q.Health)/MaxHealth + (1 - d/engageRadius)
		if score > bestScore || (score == bestScore && q.ID < best) {
			best, bestScore = q.ID, score
		}
	})
	b.TargetID = best
}

// destination resolves where the bot walks this tick and how fast.
// Priority: flee point, weapon, chase target, wander point.
func (m *Match) destination(p *Player) (Vec3, float64, bool) {
	b := p.Bot
	pos := p.Position()

	if b.State == BotFleeing {
		threat, _ := m.nearestEnemy(p, fleeRadius*2)
		if threat == nil {
			b.State = BotIdle
		} else {
			dx, dz := pos.X-threat.Transform.Position.X, pos.Z-threat.Transform.Position.Z
			d := math.Hypot(dx, dz)
			if d < 1e-6 {
				dx, dz, d = -math.Sin(p.Transform.Yaw), -math.Cos(p.Transform.Yaw), 1
			}
			x, z := m.arena.Clamp(pos.X+dx/d*fleeDistance, pos.Z+dz/d*fleeDistance)
			return Vec3{X: x, Y: pos.Y, Z: z}, fleeSpeed, true
		}
	}

	if b.WeaponTarget != "" {
		if i := m.spawnIndex(b.WeaponTarget); i >= 0 {
			if b.State != BotAttacking {
				b.State = BotSeekingWeapon
			}
			s := m.spawns[i]
			return Vec3{X: s.X, Y: pos.Y, Z: s.Z}, seekSpeed, true
		}
		b.WeaponTarget = ""
	}

	if t := m.byID[b.TargetID]; t != nil && !t.IsDead() {
		if b.State != BotAttacking {
			b.State = BotChasing
		}
		d := pos.DistXZ(t.Position())
		if d <= m.meleeReach(p)*0.8 {
			m.face(p, t.Position())
			return Vec3{}, 0, false
		}
		return t.Position(), chaseSpeed, true
	}

	if b.State != BotAttacking {
		b.State = BotIdle
	}
	b.WanderTTL--
	if b.WanderTTL <= 0 || pos.DistXZ(b.Wander) < 0.5 {
		b.Wander = m.arena.RandomSpawn(m.rng)
		b.WanderTTL = wanderTTLMin + m.rng.Intn(wanderTTLMax-wanderTTLMin+1)
	}
	return b.Wander, wanderSpeed, true
}

func (m *Match) face(p *Player, target Vec3) {
	dx, dz := target.X-p.Transform.Position.X, target.Z-p.Transform.Position.Z
	if dx != 0 || dz != 0 {
		p.Transform.Yaw = math.Atan2(dx, dz)
	}
}

// moveToward steps at speed toward dest, deflecting 90 degrees around
// obstacles and other entities. A bot that makes no progress for
// stuckThreshold ticks drops everything and goes idle.
func (m *Match) moveToward(p *Player, dest Vec3, speed float64) {
	b := p.Bot
	pos := p.Position()
	dx, dz := dest.X-pos.X, dest.Z-pos.Z
	dist := math.Hypot(dx, dz)
	if dist < 0.05 {
		b.StuckTicks = 0
		return
	}

	step := speed * m.cfg.Tick.Seconds()
	if step > dist {
		step = dist
	}
	ux, uz := dx/dist, dz/dist
	p.Transform.Yaw = math.Atan2(ux, uz)

	moved := m.tryStep(p, ux*step, uz*step, true) ||
		m.tryStep(p, -uz*step, ux*step, true) ||
		m.tryStep(p, uz*step, -ux*step, true)

	if moved {
		p.Animation = "Run"
		if b.State == BotIdle {
			p.Animation = "Walk"
		}
	} else {
		p.Animation = "Idle"
	}

	if pos.DistXZ(p.Position()) < step*0.1 {
		b.StuckTicks++
	} else {
		b.StuckTicks = 0
	}

	if b.StuckTicks >= stuckThreshold {
		b.State = BotIdle
		b.TargetID = ""
		b.WeaponTarget = ""
		b.WanderTTL = 0
		b.StuckTicks = 0
	}
}

// tryStep moves p by (dx, dz) if the destination is free.
func (m *Match) tryStep(p *Player, dx, dz float64, checkEntities bool) bool {
	pos := p.Position()
	nx, nz := pos.X+dx, pos.Z+dz
	if !m.arena.CanMoveTo(nx, nz) {
		return false
	}
	if checkEntities {
		next := Vec3{X: nx, Z: nz}
		blocked := false
		m.neighbours(p, entitySpacing+math.Hypot(dx, dz), func(q *Player, d float64) {
			nd := next.DistXZ(q.Position())
			// Moving apart from an overlapping entity is always allowed.
			if nd < entitySpacing && nd < d {
				blocked = true
			}
		})
		if blocked {
			return false
		}
	}
	p.Transform.Position.X, p.Transform.Position.Z = nx, nz
	return true
}

// meleeReach returns the bot's attack range for its current weapon.
func (m *Match) meleeReach(p *Player) float64 {
	reach := unarmedReach
	if w, ok := m.catalog.Get(p.EquippedWeapon); ok && w.IsMelee() && w.Reach > 0 {
		reach = w.Reach
	}
	return clamp(reach, minReach, maxReach)
}

// tryAttack swings at the current target when every precondition holds.
func (m *Match) tryAttack(p *Player) {
	b := p.Bot
	if b.State == BotFleeing || b.AttackLocked || b.AttackCooldown > 0 {
		return
	}
	t := m.byID[b.TargetID]
	if t == nil || t.IsDead() {
		return
	}
	if p.Position().DistXZ(t.Position()) > m.meleeReach(p) {
		return
	}
	if m.rng.Float64() >= b.Difficulty.Accuracy {
		return
	}

	m.face(p, t.Position())
	anim := attackAnimationFor("")
	if w, ok := m.catalog.Get(p.EquippedWeapon); ok {
		anim = w.AttackAnimation()
	}

	b.State = BotAttacking
	b.AttackLocked = true
	b.AttackCooldown = m.ticksFor(b.Difficulty.AttackCooldown)
	p.IsAttacking = true
	p.Animation = anim
	if m.hooks.BotAttacked != nil {
		m.hooks.BotAttacked(p.ID, anim)
	}
	m.scheduleUnlock(p)

	fx := BotHitEffects
	pos := p.Position()
	m.ApplyDamage(t.ID, b.Difficulty.Damage, p.ID, &fx, &pos)
}

func (m *Match) scheduleUnlock(p *Player) {
	id, life := p.ID, p.Life
	m.schedule(unlockKey(id), m.cfg.AttackLockDuration, func() {
		q := m.byID[id]
		if q != p || q.Life != life || q.Bot == nil {
			return
		}
		q.Bot.AttackLocked = false
		q.IsAttacking = false
		if q.Bot.State == BotAttacking {
			q.Bot.State = BotChasing
		} else if q.Bot.State.interrupting() && q.Bot.resume == BotAttacking {
			q.Bot.resume = BotChasing
		}
	})
}
