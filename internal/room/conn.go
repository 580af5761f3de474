package room

// Conn is a player's connection as seen by a room. Implementations encode
// the payload with their own codec and must not block the caller.
type Conn interface {
	ID() string
	Send(msgType string, payload any) error
	// Detach tells the connection it no longer belongs to roomID, for
	// removals the player did not ask for (kick, room teardown).
	Detach(roomID string)
}
