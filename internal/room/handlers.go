package room

import (
	"go.uber.org/zap"

	"arena-brawl/internal/game"
	"arena-brawl/internal/metrics"
	"arena-brawl/internal/protocol"
)

// handle routes one client message. It runs on the room goroutine.
func (r *Room) handle(playerID string, msg protocol.Inbound) {
	p := r.match.Player(playerID)
	if p == nil || p.IsBot() || r.closed {
		return
	}

	var err error
	switch m := msg.(type) {
	case protocol.Ready:
		r.toggleReady(p)
	case protocol.StartGameRequest:
		err = r.start(playerID)
	case protocol.GameUpdate:
		r.onGameUpdate(p, m)
	case protocol.PlayerAttack:
		r.broadcastExcept(p.ID, protocol.TypePlayerAttack, protocol.PlayerAttackEvent{PlayerID: p.ID, AnimationName: m.Animation})
	case protocol.PlayerDamage:
		r.onDamage(p, m)
	case protocol.PlayerKilled:
		r.onKilled(p, m)
	case protocol.PlayerRespawned:
		if m.PlayerID == p.ID && r.status == StatusPlaying {
			r.match.Respawn(p.ID)
		}
	case protocol.WeaponPickedUp:
		if r.status == StatusPlaying {
			r.match.TakeSpawn(m.UUID, p.ID)
		}
	case protocol.WeaponSpawned:
		r.onWeaponSpawned(p, m)
	case protocol.WeaponEquipped:
		r.match.Equip(p.ID, m.WeaponName)
	case protocol.AddBot:
		err = r.addBot(playerID, m)
	case protocol.ChangeMap:
		err = r.changeMap(playerID, m.Map)
	case protocol.ClosePlayerSlot:
		err = r.closeSlot(playerID, m.Index)
	case protocol.IncreaseMaxPlayers:
		err = r.increaseMaxPlayers(playerID)
	default:
		r.log.Debug("message not routed to room", zap.String("type", msg.Type()))
	}
	if err != nil {
		r.reject(playerID, err)
	}
}

// =============================================================================
// LOBBY
// =============================================================================

func (r *Room) toggleReady(p *game.Player) {
	p.Ready = !p.Ready
	r.broadcastRoster()
	if r.allReady() {
		r.sendTo(r.ownerID, protocol.TypeAllPlayersReady, protocol.AllPlayersReady{})
	}
}

func (r *Room) addBot(playerID string, m protocol.AddBot) error {
	switch {
	case r.status == StatusPlaying:
		return ErrInProgress
	case playerID != r.ownerID:
		return ErrNotOwner
	case r.match.Len() >= r.settings.MaxPlayers:
		return ErrRoomFull
	}

	d, ok := game.LookupDifficulty(m.Difficulty)
	if !ok {
		d, _ = game.LookupDifficulty("normal")
	}
	pers, ok := game.LookupPersonality(m.Personality)
	if !ok {
		pers = game.RandomPersonality(r.rng)
	}

	bot := r.match.NewBot(d, pers)
	r.match.AddPlayer(bot)
	r.log.Info("bot added", zap.String("bot", bot.ID), zap.String("difficulty", d.Name), zap.String("personality", pers.Name))
	r.broadcastRoster()
	return nil
}

func (r *Room) changeMap(playerID, mapID string) error {
	switch {
	case r.status == StatusPlaying:
		return ErrInProgress
	case playerID != r.ownerID:
		return ErrNotOwner
	case !r.match.SetMap(mapID):
		return ErrInvalidMap
	}
	r.settings.Map = mapID
	r.broadcast(protocol.TypeMapChanged, protocol.MapChanged{Map: mapID})
	return nil
}

func (r *Room) closeSlot(playerID string, index int) error {
	if playerID != r.ownerID {
		return ErrNotOwner
	}
	if index >= r.settings.MaxPlayers {
		return ErrInvalidSlot
	}

	if players := r.match.Players(); index < len(players) {
		target := players[index]
		if target.ID == r.ownerID {
			return ErrInvalidSlot
		}
		if c, human := r.conns[target.ID]; human {
			r.sendTo(target.ID, protocol.TypeKicked, protocol.Kicked{RoomID: r.id})
			r.reject(target.ID, ErrKicked)
			c.Detach(r.id)
		}
		r.removeMember(target.ID)
		if r.closed {
			return nil
		}
	}

	r.settings.MaxPlayers = max(r.match.Len(), r.settings.MaxPlayers-1)
	r.broadcastRoster()
	return nil
}

func (r *Room) increaseMaxPlayers(playerID string) error {
	if playerID != r.ownerID {
		return ErrNotOwner
	}
	if r.settings.MaxPlayers >= r.cfg.MaxPlayersCap {
		return ErrMaxPlayers
	}
	r.settings.MaxPlayers++
	r.broadcastRoster()
	return nil
}

// =============================================================================
// IN-MATCH
// =============================================================================

// onGameUpdate stores the sender's pose and relays it. Reported health is
// never applied.
func (r *Room) onGameUpdate(p *game.Player, m protocol.GameUpdate) {
	x, z := r.match.Arena().Clamp(m.Position.X, m.Position.Z)
	p.Transform = game.Transform{
		Position: game.Vec3{X: x, Y: m.Position.Y, Z: z},
		Yaw:      m.Rotation,
	}
	p.Animation = m.Animation
	p.IsAttacking = m.IsAttacking
	if m.EquippedWeapon != nil && *m.EquippedWeapon != p.EquippedWeapon {
		r.match.Equip(p.ID, *m.EquippedWeapon)
	}
	r.broadcastExcept(p.ID, protocol.TypeGameUpdate, p.State())
}

// onDamage turns a client hit claim into a combat engine call. Claims from
// or on behalf of bots, and claims with no resolvable attacker, are dropped.
func (r *Room) onDamage(sender *game.Player, m protocol.PlayerDamage) {
	if r.status != StatusPlaying {
		metrics.RecordDamageRejected("not_playing")
		return
	}

	attackerID := m.AttackerID
	if attackerID == "" {
		attackerID = sender.ID
	}
	attacker := r.match.Player(attackerID)
	switch {
	case attacker == nil:
		metrics.RecordDamageRejected("unknown_attacker")
		return
	case attacker.IsBot():
		metrics.RecordDamageRejected("bot_attacker")
		return
	}

	amount := min(max(m.Damage, 0), game.MaxHealth)
	if amount <= 0 {
		metrics.RecordDamageRejected("non_positive")
		return
	}

	if _, ok := r.match.ApplyDamage(m.TargetID, amount, attacker.ID, m.Effects, m.AttackerPosition); ok {
		metrics.RecordDamage(false, amount)
	}
}

// onKilled accepts a death report only from the victim itself.
func (r *Room) onKilled(sender *game.Player, m protocol.PlayerKilled) {
	if r.status != StatusPlaying || m.VictimID != sender.ID {
		return
	}
	r.match.ReportDeath(m.VictimID, m.AttackerID)
}

func (r *Room) onWeaponSpawned(sender *game.Player, m protocol.WeaponSpawned) {
	if r.status != StatusPlaying {
		return
	}
	if _, err := r.match.AddSpawn(m.WeaponSpawn); err != nil {
		r.log.Debug("weapon spawn dropped", zap.String("player", sender.ID), zap.String("weapon", m.WeaponName), zap.Error(err))
	}
}
