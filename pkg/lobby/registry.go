package lobby

import "github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"

// Binding records which lobby member a connection currently represents.
type Binding struct {
	Conn     comms.ConnectionID
	LobbyKey Key
	PlayerID PlayerID
}

type memberRef struct {
	key Key
	id  PlayerID
}

// Registry maps connections to their Binding, at most one per connection.
// It also indexes bindings by member so an identity claimed by a new
// connection can be released from the old one.
type Registry struct {
	bindings map[comms.ConnectionID]Binding
	holders  map[memberRef]comms.ConnectionID
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[comms.ConnectionID]Binding),
		holders:  make(map[memberRef]comms.ConnectionID),
	}
}

// Bind replaces any existing binding for conn.
func (r *Registry) Bind(conn comms.ConnectionID, key Key, id PlayerID) {
	r.Unbind(conn)
	r.bindings[conn] = Binding{Conn: conn, LobbyKey: key, PlayerID: id}
	r.holders[memberRef{key, id}] = conn
}

func (r *Registry) Unbind(conn comms.ConnectionID) {
	b, ok := r.bindings[conn]
	if !ok {
		return
	}
	delete(r.bindings, conn)
	ref := memberRef{b.LobbyKey, b.PlayerID}
	if r.holders[ref] == conn {
		delete(r.holders, ref)
	}
}

func (r *Registry) Lookup(conn comms.ConnectionID) (Binding, bool) {
	b, ok := r.bindings[conn]
	return b, ok
}

// Holder returns the connection currently bound to the member.
func (r *Registry) Holder(key Key, id PlayerID) (comms.ConnectionID, bool) {
	conn, ok := r.holders[memberRef{key, id}]
	return conn, ok
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	return len(r.bindings)
}
