package game

// MaxHealth is the health every entity spawns with.
const MaxHealth = 100

// Transform is the pose a client reports for its avatar.
type Transform struct {
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"rotation"`
}

// Player is a combatant. Humans and bots share this shape; Bot is non-nil
// only for AI-controlled entities.
type Player struct {
	ID             string
	Nickname       string
	Character      string
	Ready          bool
	Health         int
	EquippedWeapon string
	Kills          int
	Deaths         int

	// KillProcessed guards kill/death accounting for the current life.
	KillProcessed bool
	// LastHitBy is the id of the last other entity that damaged this one.
	LastHitBy string

	Transform   Transform
	Animation   string
	IsAttacking bool

	// Life increments on every respawn; delayed callbacks compare it to
	// detect that the life they were scheduled for is over.
	Life int

	Bot *BotBrain

	// granted is the last weapon the server handed out via pickup.
	granted string
}

// NewPlayer creates a human entity at full health.
func NewPlayer(id, nickname, character string) *Player {
	return &Player{
		ID:        id,
		Nickname:  nickname,
		Character: character,
		Health:    MaxHealth,
	}
}

// IsBot reports whether the entity is AI-controlled.
func (p *Player) IsBot() bool { return p.Bot != nil }

// IsDead reports whether the entity is waiting for respawn.
func (p *Player) IsDead() bool { return p.Health <= 0 }

// Position is shorthand for the transform position.
func (p *Player) Position() Vec3 { return p.Transform.Position }

// Granted returns the weapon most recently awarded by a pickup.
func (p *Player) Granted() string { return p.granted }

// resetLife restores health and clears per-life combat state.
func (p *Player) resetLife() {
	p.Health = MaxHealth
	p.KillProcessed = false
	p.LastHitBy = ""
	p.IsAttacking = false
	p.Life++
}

// resetScore zeroes kills and deaths for a new match.
func (p *Player) resetScore() {
	p.Kills = 0
	p.Deaths = 0
}

// Summary is the roster view of a player.
type Summary struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	Character      string `json:"character"`
	Ready          bool   `json:"ready"`
	IsBot          bool   `json:"isBot"`
	Health         int    `json:"health"`
	EquippedWeapon string `json:"equippedWeapon,omitempty"`
	Kills          int    `json:"kills"`
	Deaths         int    `json:"deaths"`
}

// Summary returns the roster view.
func (p *Player) Summary() Summary {
	return Summary{
		ID:             p.ID,
		Nickname:       p.Nickname,
		Character:      p.Character,
		Ready:          p.Ready,
		IsBot:          p.IsBot(),
		Health:         p.Health,
		EquippedWeapon: p.EquippedWeapon,
		Kills:          p.Kills,
		Deaths:         p.Deaths,
	}
}

// Score is one scoreboard row.
type Score struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
}

// State is the per-frame snapshot broadcast for an entity.
type State struct {
	PlayerID       string  `json:"playerId"`
	Position       Vec3    `json:"position"`
	Rotation       float64 `json:"rotation"`
	Animation      string  `json:"animation"`
	Health         int     `json:"health"`
	EquippedWeapon string  `json:"equippedWeapon"`
	IsAttacking    bool    `json:"isAttacking"`
	BotState       string  `json:"botState,omitempty"`
}

// State returns the broadcast snapshot.
func (p *Player) State() State {
	s := State{
		PlayerID:       p.ID,
		Position:       p.Transform.Position,
		Rotation:       p.Transform.Yaw,
		Animation:      p.Animation,
		Health:         p.Health,
		EquippedWeapon: p.EquippedWeapon,
		IsAttacking:    p.IsAttacking,
	}
	if p.Bot != nil {
		s.BotState = p.Bot.State.String()
	}
	return s
}
