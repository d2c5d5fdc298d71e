package comms

import (
	"github.com/google/uuid"
)

// ConnectionID identifies a live transport connection.
type ConnectionID string

// NewConnectionID returns a fresh random ConnectionID.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New().String())
}

// RoomBroadcaster groups connections into named rooms and fans messages out
// to every connection in a room.
type RoomBroadcaster interface {
	// Join adds a connection to a room.
	Join(conn ConnectionID, room string)

	// Leave removes a connection from a room. Leaving a room the connection
	// is not in does nothing.
	Leave(conn ConnectionID, room string)

	// Emit delivers a message to every connection currently in the room
	// without waiting on any of them.
	Emit(room string, message Message)
}
