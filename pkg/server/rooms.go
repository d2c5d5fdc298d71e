package server

import (
	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"
	"go.uber.org/zap"
)

// Rooms is the server's comms.RoomBroadcaster. It tracks open connections and
// the rooms each one is grouped under. Rooms is owned by the event loop and
// is not safe for concurrent use.
type Rooms struct {
	log     *zap.Logger
	metrics *Metrics

	conns     map[comms.ConnectionID]*Connection
	rooms     map[string]map[comms.ConnectionID]*Connection
	connRooms map[comms.ConnectionID]map[string]struct{}
}

func NewRooms(log *zap.Logger, metrics *Metrics) *Rooms {
	return &Rooms{
		log:       log,
		metrics:   metrics,
		conns:     make(map[comms.ConnectionID]*Connection),
		rooms:     make(map[string]map[comms.ConnectionID]*Connection),
		connRooms: make(map[comms.ConnectionID]map[string]struct{}),
	}
}

// Add registers an open connection.
func (r *Rooms) Add(conn *Connection) {
	r.conns[conn.ID] = conn
	r.metrics.connections.Set(float64(len(r.conns)))
}

// Remove drops a connection from every room and closes its send channel,
// which stops its write pump.
func (r *Rooms) Remove(id comms.ConnectionID) {
	conn, ok := r.conns[id]
	if !ok {
		return
	}
	for room := range r.connRooms[id] {
		r.Leave(id, room)
	}
	delete(r.conns, id)
	close(conn.send)
	r.metrics.connections.Set(float64(len(r.conns)))
}

func (r *Rooms) Join(id comms.ConnectionID, room string) {
	conn, ok := r.conns[id]
	if !ok {
		// Already disconnected
		return
	}
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[comms.ConnectionID]*Connection)
	}
	r.rooms[room][id] = conn
	if r.connRooms[id] == nil {
		r.connRooms[id] = make(map[string]struct{})
	}
	r.connRooms[id][room] = struct{}{}
}

func (r *Rooms) Leave(id comms.ConnectionID, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.connRooms[id]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.connRooms, id)
		}
	}
}

// Emit queues message for every connection in room. A connection whose
// queue is full is closed rather than waited on.
func (r *Rooms) Emit(room string, message comms.Message) {
	r.metrics.broadcasts.WithLabelValues(message.Type).Inc()
	for _, conn := range r.rooms[room] {
		if conn.evicted || conn.enqueue(message) {
			continue
		}
		conn.evicted = true
		r.metrics.dropped.Inc()
		r.log.Warn("Send queue full, evicting connection",
			zap.String("conn", string(conn.ID)),
			zap.String("room", room),
			zap.String("type", message.Type))
		conn.Close()
	}
}

// members returns the connections grouped under room.
func (r *Rooms) members(room string) []comms.ConnectionID {
	ids := make([]comms.ConnectionID, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes every open connection.
func (r *Rooms) CloseAll() {
	for _, conn := range r.conns {
		conn.Close()
	}
	r.log.Info("Closed client connections", zap.Int("count", len(r.conns)))
}
