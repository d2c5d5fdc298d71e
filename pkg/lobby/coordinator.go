package lobby

import (
	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"
	"go.uber.org/zap"
)

// Coordinator runs the join/leave protocol over a Store and a Registry. A
// connection is either unbound or bound to exactly one lobby member, and any
// prior binding is torn down before a new one is made.
type Coordinator struct {
	Log      *zap.Logger
	Store    *Store
	Registry *Registry
}

func NewCoordinator(log *zap.Logger, store *Store, registry *Registry) *Coordinator {
	return &Coordinator{Log: log, Store: store, Registry: registry}
}

// Join binds conn to the player in the lobby under key, creating the lobby if
// needed.
func (c *Coordinator) Join(conn comms.ConnectionID, key Key, name string, id PlayerID) []Effect {
	if key == "" || id == "" {
		c.Log.Debug("Ignoring join with missing lobby key or player ID", zap.String("conn", string(conn)))
		return nil
	}

	effects := c.Leave(conn)

	// The identity may still be held by a stale connection of the same client
	if holder, ok := c.Registry.Holder(key, id); ok && holder != conn {
		c.Registry.Unbind(holder)
		effects = append(effects, leaveRoom(holder, key))
		c.Log.Info("Player identity taken over by new connection",
			zap.String("lobby", string(key)),
			zap.String("player", string(id)),
			zap.String("oldConn", string(holder)),
			zap.String("conn", string(conn)))
	}

	if _, created := c.Store.Ensure(key); created {
		c.Log.Info("Lobby created", zap.String("lobby", string(key)))
	}
	c.Store.AddMember(key, Player{ID: id, Name: name})
	c.Registry.Bind(conn, key, id)
	c.Log.Info("Player joined lobby",
		zap.String("lobby", string(key)),
		zap.String("player", string(id)),
		zap.String("conn", string(conn)))

	snapshot, _ := c.Store.Snapshot(key)
	return append(effects,
		joinRoom(conn, key),
		emit(key, lobbyUpdate(snapshot)),
	)
}

// Leave removes conn's member from its lobby and clears the binding. It does
// nothing for an unbound connection.
func (c *Coordinator) Leave(conn comms.ConnectionID) []Effect {
	b, ok := c.Registry.Lookup(conn)
	if !ok {
		return nil
	}
	c.Registry.Unbind(conn)
	effects := []Effect{leaveRoom(conn, b.LobbyKey)}

	if !c.Store.RemoveMember(b.LobbyKey, b.PlayerID) {
		return effects
	}
	c.Log.Info("Player left lobby",
		zap.String("lobby", string(b.LobbyKey)),
		zap.String("player", string(b.PlayerID)),
		zap.String("conn", string(conn)))

	snapshot, ok := c.Store.Snapshot(b.LobbyKey)
	if !ok {
		c.Log.Info("Lobby deleted (empty)", zap.String("lobby", string(b.LobbyKey)))
		return effects
	}
	return append(effects, emit(b.LobbyKey, lobbyUpdate(snapshot)))
}

// Disconnect is Leave triggered by the transport losing the connection.
func (c *Coordinator) Disconnect(conn comms.ConnectionID) []Effect {
	return c.Leave(conn)
}
