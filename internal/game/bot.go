package game

import (
	"fmt"
	"math/rand"
	"time"
)

// BotState is the behaviour a bot is currently executing.
type BotState int

const (
	BotIdle BotState = iota
	BotSeekingWeapon
	BotChasing
	BotFleeing
	BotAttacking
	BotStunned
	BotRolling
)

func (s BotState) String() string {
	switch s {
	case BotIdle:
		return "idle"
	case BotSeekingWeapon:
		return "seeking-weapon"
	case BotChasing:
		return "chasing"
	case BotFleeing:
		return "fleeing"
	case BotAttacking:
		return "attacking"
	case BotStunned:
		return "stunned"
	case BotRolling:
		return "rolling"
	default:
		return "unknown"
	}
}

// interrupting reports whether the state suspends decision-making.
func (s BotState) interrupting() bool {
	return s == BotStunned || s == BotRolling
}

// Difficulty is a tuning row for bot skill.
type Difficulty struct {
	Name           string
	ReactionTicks  int     // ticks between target/weapon re-evaluation
	Damage         int     // per landed hit
	Accuracy       float64 // probability a swing in range connects
	FleeHealth     int     // base flee threshold before personality bias
	AttackCooldown time.Duration
}

var difficulties = map[string]Difficulty{
	"easy": {
		Name:           "easy",
		ReactionTicks:  8,
		Damage:         10,
		Accuracy:       0.55,
		FleeHealth:     35,
		AttackCooldown: 1300 * time.Millisecond,
	},
	"normal": {
		Name:           "normal",
		ReactionTicks:  5,
		Damage:         15,
		Accuracy:       0.75,
		FleeHealth:     25,
		AttackCooldown: 900 * time.Millisecond,
	},
	"hard": {
		Name:           "hard",
		ReactionTicks:  2,
		Damage:         20,
		Accuracy:       0.9,
		FleeHealth:     20,
		AttackCooldown: 700 * time.Millisecond,
	},
}

// LookupDifficulty returns the named tier; ok is false for unknown names.
func LookupDifficulty(name string) (Difficulty, bool) {
	d, ok := difficulties[name]
	return d, ok
}

// Personality biases flee and dodge decisions.
type Personality struct {
	Name        string
	FleeBias    float64 // multiplies the difficulty flee threshold
	DodgeChance float64 // probability of rolling after being hit
	LastStand   int     // at or below this health the bot stops fleeing and fights
}

var personalities = map[string]Personality{
	"aggressive": {Name: "aggressive", FleeBias: 0.5, DodgeChance: 0.15, LastStand: 5},
	"balanced":   {Name: "balanced", FleeBias: 1.0, DodgeChance: 0.3, LastStand: 3},
	"defensive":  {Name: "defensive", FleeBias: 1.5, DodgeChance: 0.5, LastStand: 1},
}

// LookupPersonality returns the named personality.
func LookupPersonality(name string) (Personality, bool) {
	p, ok := personalities[name]
	return p, ok
}

// RandomPersonality picks one of the personalities.
func RandomPersonality(rng *rand.Rand) Personality {
	names := []string{"aggressive", "balanced", "defensive"}
	return personalities[names[rng.Intn(len(names))]]
}

// vec2 is a planar direction or velocity.
type vec2 struct{ X, Z float64 }

// BotBrain is the AI runtime attached to a bot entity.
type BotBrain struct {
	Difficulty  Difficulty
	Personality Personality
	// FleeThreshold is derived from difficulty and personality but may be
	// overridden per bot.
	FleeThreshold int

	State BotState
	// resume is the logical state to return to after stun or roll.
	resume BotState

	TargetID     string // player being chased
	WeaponTarget string // uuid of the spawn being sought

	Wander    Vec3
	WanderTTL int

	AttackCooldown int // ticks
	RollCooldown   int

	StunTicks      int
	KnockbackTicks int
	KnockbackVel   vec2
	RollTicks      int
	RollDir        vec2

	// AttackLocked is set for the duration of the swing animation.
	AttackLocked bool

	LastDamagedTick uint64
	// dodgePending is set by a hit and consumed by the next dodge roll.
	dodgePending bool

	StuckTicks int // consecutive ticks without progress

	Ticks uint64
}

// NewBotBrain builds a runtime for the given tuning.
func NewBotBrain(d Difficulty, p Personality) *BotBrain {
	return &BotBrain{
		Difficulty:    d,
		Personality:   p,
		FleeThreshold: int(float64(d.FleeHealth) * p.FleeBias),
		State:         BotIdle,
		resume:        BotIdle,
	}
}

// interrupt enters stun or roll, remembering the logical state.
func (b *BotBrain) interrupt(s BotState) {
	if !b.State.interrupting() {
		b.resume = b.State
	}
	b.State = s
}

// reset clears transient AI state; used on respawn and when stuck.
func (b *BotBrain) reset() {
	b.State = BotIdle
	b.resume = BotIdle
	b.TargetID = ""
	b.WeaponTarget = ""
	b.WanderTTL = 0
	b.StunTicks = 0
	b.KnockbackTicks = 0
	b.KnockbackVel = vec2{}
	b.RollTicks = 0
	b.AttackLocked = false
	b.StuckTicks = 0
	b.dodgePending = false
}

var botNames = []string{
	"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Ghost", "Hunter",
	"Ivy", "Jester", "Kilo", "Luna", "Maverick", "Nova", "Orion",
}

var botCharacters = []string{
	"BlueSoldier_Female", "Casual_Male", "Casual2_Female", "Casual3_Female",
	"Chef_Hat", "Cowboy_Female", "Doctor_Female_Young", "Goblin_Female",
	"Goblin_Male", "Kimono_Female", "Knight_Golden_Male", "Knight_Male",
	"Ninja_Male", "Ninja_Sand", "OldClassy_Male", "Pirate_Male", "Pug",
	"Soldier_Male", "Elf", "Suit_Male", "Viking_Male", "VikingHelmet",
	"Wizard", "Worker_Female", "Zombie_Male", "Cow",
}

// RandomBotIdentity returns a nickname and character for a new bot.
func RandomBotIdentity(rng *rand.Rand) (nickname, character string) {
	nickname = fmt.Sprintf("%s#%02d", botNames[rng.Intn(len(botNames))], rng.Intn(100))
	character = botCharacters[rng.Intn(len(botCharacters))]
	return nickname, character
}
