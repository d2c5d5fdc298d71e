package lobby

import (
	"fmt"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"
)

type EffectKind int

const (
	JoinRoom EffectKind = iota
	LeaveRoom
	Emit
)

func (k EffectKind) String() string {
	switch k {
	case JoinRoom:
		return "JoinRoom"
	case LeaveRoom:
		return "LeaveRoom"
	case Emit:
		return "Emit"
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// Effect is a transport side effect produced by a state transition. Conn is
// set for JoinRoom and LeaveRoom, Message for Emit.
type Effect struct {
	Kind    EffectKind
	Conn    comms.ConnectionID
	Room    Key
	Message comms.Message
}

func joinRoom(conn comms.ConnectionID, room Key) Effect {
	return Effect{Kind: JoinRoom, Conn: conn, Room: room}
}

func leaveRoom(conn comms.ConnectionID, room Key) Effect {
	return Effect{Kind: LeaveRoom, Conn: conn, Room: room}
}

func emit(room Key, contents interface{}) Effect {
	return Effect{Kind: Emit, Room: room, Message: comms.ToMessage(contents)}
}

// Apply executes effects against b in order.
func Apply(b comms.RoomBroadcaster, effects []Effect) {
	for _, e := range effects {
		switch e.Kind {
		case JoinRoom:
			b.Join(e.Conn, string(e.Room))
		case LeaveRoom:
			b.Leave(e.Conn, string(e.Room))
		case Emit:
			b.Emit(string(e.Room), e.Message)
		}
	}
}
