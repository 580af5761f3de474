// Package protocol defines the closed set of messages exchanged with game
// clients and the codecs that put them on the wire.
//
// Every frame is an envelope {type, payload}. Inbound payloads are decoded
// into a concrete type and validated before anything touches room state.
package protocol

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"arena-brawl/internal/game"
)

var (
	// ErrUnknownType is returned for an envelope type outside the message set.
	ErrUnknownType = errors.New("unknown message type")
	// ErrInvalidPayload wraps every validation failure.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Field limits
const (
	MaxNicknameLen  = 20
	MaxCharacterLen = 48
	MaxRoomNameLen  = 32
	MaxAnimationLen = 48
	MaxWeaponLen    = 64
	MaxIDLen        = 64
	MaxCoordinate   = 1000
)

// Inbound type names
const (
	TypeCreateRoom         = "createRoom"
	TypeJoinRoom           = "joinRoom"
	TypeGetPublicRooms     = "getPublicRooms"
	TypeReady              = "ready"
	TypeStartGameRequest   = "startGameRequest"
	TypeGameUpdate         = "gameUpdate"
	TypePlayerAttack       = "playerAttack"
	TypePlayerDamage       = "playerDamage"
	TypePlayerKilled       = "playerKilled"
	TypePlayerRespawned    = "playerRespawned"
	TypeWeaponPickedUp     = "weaponPickedUp"
	TypeWeaponSpawned      = "weaponSpawned"
	TypeWeaponEquipped     = "weaponEquipped"
	TypeAddBot             = "addBot"
	TypeChangeMap          = "changeMap"
	TypeClosePlayerSlot    = "closePlayerSlot"
	TypeIncreaseMaxPlayers = "increaseMaxPlayers"
	TypeLeaveRoom          = "leaveRoom"
)

// Inbound is a validated client intent.
type Inbound interface {
	Type() string
	Validate() error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

func checkText(field, v string, required bool, max int) error {
	if required && strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	if !utf8.ValidString(v) {
		return invalid("%s is not valid UTF-8", field)
	}
	if utf8.RuneCountInString(v) > max {
		return invalid("%s longer than %d characters", field, max)
	}
	return nil
}

func checkNumber(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxCoordinate {
		return invalid("%s out of range", field)
	}
	return nil
}

func checkVec(field string, v game.Vec3) error {
	for _, c := range []struct {
		axis string
		val  float64
	}{{"x", v.X}, {"y", v.Y}, {"z", v.Z}} {
		if err := checkNumber(field+"."+c.axis, c.val); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LOBBY
// =============================================================================

// CreateRoom opens a room with the sender as owner.
type CreateRoom struct {
	Nickname   string `json:"nickname"`
	Character  string `json:"character"`
	RoomName   string `json:"roomName"`
	Map        string `json:"map"`
	MaxPlayers int    `json:"maxPlayers"`
	Visibility string `json:"visibility"` // "public" or "private"
	RoundTime  int    `json:"roundTime"`  // seconds
}

func (CreateRoom) Type() string { return TypeCreateRoom }

func (m CreateRoom) Validate() error {
	if err := checkText("nickname", m.Nickname, true, MaxNicknameLen); err != nil {
		return err
	}
	if err := checkText("character", m.Character, false, MaxCharacterLen); err != nil {
		return err
	}
	if err := checkText("roomName", m.RoomName, false, MaxRoomNameLen); err != nil {
		return err
	}
	if m.Map != "" && !game.ValidMap(m.Map) {
		return invalid("unknown map %q", m.Map)
	}
	if m.Visibility != "" && m.Visibility != "public" && m.Visibility != "private" {
		return invalid("visibility must be public or private")
	}
	if m.MaxPlayers < 0 || m.RoundTime < 0 {
		return invalid("negative room setting")
	}
	return nil
}

// JoinRoom enters an existing room by code.
type JoinRoom struct {
	RoomID    string `json:"roomId"`
	Nickname  string `json:"nickname"`
	Character string `json:"character"`
}

func (JoinRoom) Type() string { return TypeJoinRoom }

func (m JoinRoom) Validate() error {
	if err := checkText("roomId", m.RoomID, true, MaxIDLen); err != nil {
		return err
	}
	if err := checkText("nickname", m.Nickname, true, MaxNicknameLen); err != nil {
		return err
	}
	return checkText("character", m.Character, false, MaxCharacterLen)
}

// GetPublicRooms asks for the lobby listing.
type GetPublicRooms struct{}

func (GetPublicRooms) Type() string    { return TypeGetPublicRooms }
func (GetPublicRooms) Validate() error { return nil }

// Ready toggles the sender's ready flag.
type Ready struct{}

func (Ready) Type() string    { return TypeReady }
func (Ready) Validate() error { return nil }

// StartGameRequest is the owner's request to begin the match.
type StartGameRequest struct{}

func (StartGameRequest) Type() string    { return TypeStartGameRequest }
func (StartGameRequest) Validate() error { return nil }

// LeaveRoom exits the current room without disconnecting.
type LeaveRoom struct{}

func (LeaveRoom) Type() string    { return TypeLeaveRoom }
func (LeaveRoom) Validate() error { return nil }

// =============================================================================
// IN-MATCH
// =============================================================================

// GameUpdate is the sender's per-frame state. Health is accepted on the
// wire for compatibility but never applied.
type GameUpdate struct {
	Position       game.Vec3 `json:"position"`
	Rotation       float64   `json:"rotation"`
	Animation      string    `json:"animation"`
	Health         *int      `json:"health,omitempty"`
	EquippedWeapon *string   `json:"equippedWeapon,omitempty"`
	IsAttacking    bool      `json:"isAttacking"`
}

func (GameUpdate) Type() string { return TypeGameUpdate }

func (m GameUpdate) Validate() error {
	if err := checkVec("position", m.Position); err != nil {
		return err
	}
	if math.IsNaN(m.Rotation) || math.IsInf(m.Rotation, 0) {
		return invalid("rotation out of range")
	}
	if err := checkText("animation", m.Animation, false, MaxAnimationLen); err != nil {
		return err
	}
	if m.EquippedWeapon != nil {
		return checkText("equippedWeapon", *m.EquippedWeapon, false, MaxWeaponLen)
	}
	return nil
}

// PlayerAttack declares an attack animation; damage arrives separately.
type PlayerAttack struct {
	Animation string `json:"animationName"`
}

func (PlayerAttack) Type() string { return TypePlayerAttack }

func (m PlayerAttack) Validate() error {
	return checkText("animationName", m.Animation, true, MaxAnimationLen)
}

// PlayerDamage is a client's claim that it hit someone.
type PlayerDamage struct {
	TargetID         string        `json:"targetId"`
	Damage           int           `json:"damage"`
	AttackerID       string        `json:"attackerId,omitempty"`
	Effects          *game.Effects `json:"effects,omitempty"`
	AttackerPosition *game.Vec3    `json:"attackerPosition,omitempty"`
}

func (PlayerDamage) Type() string { return TypePlayerDamage }

func (m PlayerDamage) Validate() error {
	if err := checkText("targetId", m.TargetID, true, MaxIDLen); err != nil {
		return err
	}
	if err := checkText("attackerId", m.AttackerID, false, MaxIDLen); err != nil {
		return err
	}
	if m.Damage < 0 {
		return invalid("damage must not be negative")
	}
	if fx := m.Effects; fx != nil {
		for _, v := range []float64{fx.KnockbackStrength, fx.KnockbackDuration, fx.StunDuration} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 10 {
				return invalid("effects out of range")
			}
		}
	}
	if m.AttackerPosition != nil {
		return checkVec("attackerPosition", *m.AttackerPosition)
	}
	return nil
}

// PlayerKilled is the victim's own death report.
type PlayerKilled struct {
	VictimID   string `json:"victimId"`
	AttackerID string `json:"attackerId,omitempty"`
}

func (PlayerKilled) Type() string { return TypePlayerKilled }

func (m PlayerKilled) Validate() error {
	if err := checkText("victimId", m.VictimID, true, MaxIDLen); err != nil {
		return err
	}
	return checkText("attackerId", m.AttackerID, false, MaxIDLen)
}

// PlayerRespawned tells the server a dead client is back.
type PlayerRespawned struct {
	PlayerID string `json:"playerId"`
}

func (PlayerRespawned) Type() string { return TypePlayerRespawned }

func (m PlayerRespawned) Validate() error {
	return checkText("playerId", m.PlayerID, true, MaxIDLen)
}

// WeaponPickedUp claims a floor weapon.
type WeaponPickedUp struct {
	UUID string `json:"uuid"`
}

func (WeaponPickedUp) Type() string { return TypeWeaponPickedUp }

func (m WeaponPickedUp) Validate() error {
	return checkText("uuid", m.UUID, true, MaxIDLen)
}

// WeaponSpawned announces a weapon the client dropped on the map.
type WeaponSpawned struct {
	game.WeaponSpawn
}

func (WeaponSpawned) Type() string { return TypeWeaponSpawned }

func (m WeaponSpawned) Validate() error {
	if err := checkText("uuid", m.ID, true, MaxIDLen); err != nil {
		return err
	}
	if err := checkText("weaponName", m.WeaponName, true, MaxWeaponLen); err != nil {
		return err
	}
	return checkVec("position", m.Position())
}

// WeaponEquipped reports the sender's equipped weapon; empty unequips.
type WeaponEquipped struct {
	WeaponName string `json:"weaponName"`
}

func (WeaponEquipped) Type() string { return TypeWeaponEquipped }

func (m WeaponEquipped) Validate() error {
	return checkText("weaponName", m.WeaponName, false, MaxWeaponLen)
}

// =============================================================================
// OWNER ADMINISTRATION
// =============================================================================

// AddBot adds an AI combatant. Empty fields pick defaults.
type AddBot struct {
	Difficulty  string `json:"difficulty"`
	Personality string `json:"personality"`
}

func (AddBot) Type() string { return TypeAddBot }

func (m AddBot) Validate() error {
	if m.Difficulty != "" {
		if _, ok := game.LookupDifficulty(m.Difficulty); !ok {
			return invalid("unknown difficulty %q", m.Difficulty)
		}
	}
	if m.Personality != "" {
		if _, ok := game.LookupPersonality(m.Personality); !ok {
			return invalid("unknown personality %q", m.Personality)
		}
	}
	return nil
}

// ChangeMap switches the room's map while waiting.
type ChangeMap struct {
	Map string `json:"map"`
}

func (ChangeMap) Type() string { return TypeChangeMap }

func (m ChangeMap) Validate() error {
	return checkText("map", m.Map, true, MaxIDLen)
}

// ClosePlayerSlot removes whoever occupies a roster index and shrinks capacity.
type ClosePlayerSlot struct {
	Index int `json:"index"`
}

func (ClosePlayerSlot) Type() string { return TypeClosePlayerSlot }

func (m ClosePlayerSlot) Validate() error {
	if m.Index < 0 {
		return invalid("index must not be negative")
	}
	return nil
}

// IncreaseMaxPlayers raises capacity by one.
type IncreaseMaxPlayers struct{}

func (IncreaseMaxPlayers) Type() string    { return TypeIncreaseMaxPlayers }
func (IncreaseMaxPlayers) Validate() error { return nil }
