package room

import "errors"

// Errors returned by registry and room operations. Each one is reported to
// the requester as a roomError; none of them changes room state.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrInProgress    = errors.New("game is already in progress")
	ErrInvalidCode   = errors.New("invalid room code")
	ErrAlreadyJoined = errors.New("already in a room")
	ErrNotOwner      = errors.New("only the room owner can do that")
	ErrNotAllReady   = errors.New("not all players are ready")
	ErrInvalidMap    = errors.New("invalid map")
	ErrInvalidSlot   = errors.New("invalid player slot")
	ErrMaxPlayers    = errors.New("player limit reached")
	ErrRoomClosed    = errors.New("room is closed")
	ErrNotInRoom     = errors.New("not in a room")
	ErrTooManyRooms  = errors.New("server room limit reached")

	// ErrKicked is what a player sees when the owner closes their slot.
	ErrKicked = errors.New("removed from the room by the owner")
)

// errorKinds names each sentinel for the room error metric.
var errorKinds = map[error]string{
	ErrRoomNotFound:  "not_found",
	ErrRoomFull:      "full",
	ErrInProgress:    "in_progress",
	ErrInvalidCode:   "invalid_code",
	ErrAlreadyJoined: "already_joined",
	ErrNotOwner:      "not_owner",
	ErrNotAllReady:   "not_ready",
	ErrInvalidMap:    "invalid_map",
	ErrInvalidSlot:   "invalid_slot",
	ErrMaxPlayers:    "max_players",
	ErrRoomClosed:    "closed",
	ErrNotInRoom:     "not_in_room",
	ErrTooManyRooms:  "room_limit",
	ErrKicked:        "kicked",
}

// ErrorKind returns a bounded label for err, or "other".
func ErrorKind(err error) string {
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return "other"
}
