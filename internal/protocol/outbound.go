package protocol

import "arena-brawl/internal/game"

// Outbound type names
const (
	TypeConnected            = "connected"
	TypeRoomCreated          = "roomCreated"
	TypeRoomJoined           = "roomJoined"
	TypeRoomError            = "roomError"
	TypePublicRoomsList      = "publicRoomsList"
	TypeUpdatePlayers        = "updatePlayers"
	TypeAllPlayersReady      = "allPlayersReady"
	TypeStartGame            = "startGame"
	TypeHPUpdate             = "hpUpdate"
	TypeUpdateScores         = "updateScores"
	TypeKillFeed             = "killFeed"
	TypePlayerEquippedWeapon = "playerEquippedWeapon"
	TypeMapChanged           = "mapChanged"
	TypeUpdateTimer          = "updateTimer"
	TypeGameEnd              = "gameEnd"
	TypeKicked               = "kicked"
)

// Connected greets a new session with its player id.
type Connected struct {
	PlayerID string `json:"playerId"`
	Codec    string `json:"codec"`
}

// RoomInfo answers createRoom and joinRoom.
type RoomInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Map        string `json:"map"`
	OwnerID    string `json:"ownerId"`
	MaxPlayers int    `json:"maxPlayers"`
	RoundTime  int    `json:"roundTime"`
	Visibility string `json:"visibility"`
}

// RoomError is the only failure surface a client sees.
type RoomError struct {
	Message string `json:"message"`
}

// RoomSummary is one lobby listing row.
type RoomSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Map        string `json:"map"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Status     string `json:"status"`
}

// PublicRoomsList answers getPublicRooms.
type PublicRoomsList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// UpdatePlayers carries the roster after any membership or readiness change.
type UpdatePlayers struct {
	Players    []game.Summary `json:"players"`
	MaxPlayers int            `json:"maxPlayers"`
	OwnerID    string         `json:"ownerId"`
}

// AllPlayersReady tells the owner the match can start.
type AllPlayersReady struct{}

// StartGame opens a round.
type StartGame struct {
	Players        []game.Summary     `json:"players"`
	Map            string             `json:"map"`
	SpawnedWeapons []game.WeaponSpawn `json:"spawnedWeapons"`
	RoundTime      int                `json:"roundTime"`
}

// PlayerAttackEvent is an attack declaration rebroadcast with its author.
type PlayerAttackEvent struct {
	PlayerID      string `json:"playerId"`
	AnimationName string `json:"animationName"`
}

// UpdateScores is the scoreboard after a death.
type UpdateScores struct {
	Scores []game.Score `json:"scores"`
}

// WeaponPickedUpEvent announces a removed floor weapon.
type WeaponPickedUpEvent struct {
	UUID     string `json:"uuid"`
	PlayerID string `json:"playerId"`
}

// PlayerEquippedWeapon relays an accepted equip.
type PlayerEquippedWeapon struct {
	PlayerID   string `json:"playerId"`
	WeaponName string `json:"weaponName"`
}

// MapChanged announces the room's new map.
type MapChanged struct {
	Map string `json:"map"`
}

// UpdateTimer carries the remaining round seconds.
type UpdateTimer struct {
	Seconds int `json:"seconds"`
}

// GameEnd carries the final scoreboard.
type GameEnd struct {
	Scores []game.Score `json:"scores"`
}

// Kicked tells a player the owner closed their slot.
type Kicked struct {
	RoomID string `json:"roomId"`
}
