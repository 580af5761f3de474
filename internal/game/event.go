package game

import (
	"encoding/json"
	"time"
)

// EventType enum for journal classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeMatchStart
	EventTypeMatchEnd
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeDamage
	EventTypeKill
	EventTypeRespawn
	EventTypePickup
)

// EventVersion is bumped when payload shapes change
const EventVersion uint8 = 1

// Event is one line of the combat journal
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	RoomID    string          `json:"roomId"`
	Tick      uint64          `json:"tick"`
	PlayerID  string          `json:"playerId,omitempty"` // Source entity (for rate limiting)
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeMatchEnd:
		return "match_end"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeRespawn:
		return "respawn"
	case EventTypePickup:
		return "pickup"
	default:
		return "unknown"
	}
}

// MarshalText lets the journal store readable type names.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads

// MatchPayload describes a match boundary
type MatchPayload struct {
	Map       string  `json:"map"`
	RoundTime int     `json:"roundTime,omitempty"`
	Players   int     `json:"players"`
	Scores    []Score `json:"scores,omitempty"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	AttackerID string `json:"attackerId"`
	VictimID   string `json:"victimId"`
	Damage     int    `json:"damage"`
	VictimHP   int    `json:"victimHp"`
}

// KillPayload contains kill event details
type KillPayload struct {
	KillerID     string `json:"killerId,omitempty"`
	VictimID     string `json:"victimId"`
	KillerKills  int    `json:"killerKills"`
	VictimDeaths int    `json:"victimDeaths"`
}

// RespawnPayload contains respawn event details
type RespawnPayload struct {
	PlayerID string `json:"playerId"`
	Position Vec3   `json:"position"`
}

// PickupPayload records a weapon leaving the floor
type PickupPayload struct {
	SpawnID string `json:"spawnId"`
	Weapon  string `json:"weapon"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, roomID string, tick uint64, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		RoomID:    roomID,
		Tick:      tick,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
