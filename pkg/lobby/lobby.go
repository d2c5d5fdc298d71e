package lobby

import (
	"sort"
)

// DefaultTargetScore is the target score of a newly created lobby.
const DefaultTargetScore = 100

// Key names a lobby. It doubles as the name of the lobby's broadcast room.
type Key string

// PlayerID is the caller supplied identity of a player.
type PlayerID string

type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

type Lobby struct {
	Key         Key
	Members     map[PlayerID]*Player
	TargetScore int
}

// Snapshot is a read-only view of a lobby used to build broadcasts.
type Snapshot struct {
	Players     []Player
	TargetScore int
}

func (l *Lobby) snapshot() Snapshot {
	players := make([]Player, 0, len(l.Members))
	for _, p := range l.Members {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return Snapshot{Players: players, TargetScore: l.TargetScore}
}

// Store maps lobby keys to lobbies. A lobby is created on first join and
// deleted as soon as its last member leaves.
//
// Store is not safe for concurrent use; it is owned by the server's event
// loop.
type Store struct {
	lobbies            map[Key]*Lobby
	defaultTargetScore int
}

// NewStore returns an empty Store. A non-positive defaultTargetScore falls
// back to DefaultTargetScore.
func NewStore(defaultTargetScore int) *Store {
	if defaultTargetScore <= 0 {
		defaultTargetScore = DefaultTargetScore
	}
	return &Store{
		lobbies:            make(map[Key]*Lobby),
		defaultTargetScore: defaultTargetScore,
	}
}

// Ensure returns the lobby for key, creating an empty one if needed. The
// second result reports whether the lobby was created.
func (s *Store) Ensure(key Key) (*Lobby, bool) {
	if l, ok := s.lobbies[key]; ok {
		return l, false
	}
	l := &Lobby{
		Key:         key,
		Members:     make(map[PlayerID]*Player),
		TargetScore: s.defaultTargetScore,
	}
	s.lobbies[key] = l
	return l, true
}

func (s *Store) get(key Key) (*Lobby, bool) {
	l, ok := s.lobbies[key]
	return l, ok
}

// AddMember inserts player into the lobby's roster, replacing any member
// with the same ID.
func (s *Store) AddMember(key Key, player Player) {
	l, _ := s.Ensure(key)
	l.Members[player.ID] = &player
}

// RemoveMember removes a member and deletes the lobby if its roster is now
// empty. It reports whether a member was removed.
func (s *Store) RemoveMember(key Key, id PlayerID) bool {
	l, ok := s.lobbies[key]
	if !ok {
		return false
	}
	if _, ok := l.Members[id]; !ok {
		return false
	}
	delete(l.Members, id)
	if len(l.Members) == 0 {
		delete(s.lobbies, key)
	}
	return true
}

// SetTargetScore reports whether the lobby existed and was updated.
func (s *Store) SetTargetScore(key Key, score int) bool {
	l, ok := s.lobbies[key]
	if !ok {
		return false
	}
	l.TargetScore = score
	return true
}

// RenameMember reports whether the member existed and was renamed.
func (s *Store) RenameMember(key Key, id PlayerID, name string) bool {
	l, ok := s.lobbies[key]
	if !ok {
		return false
	}
	p, ok := l.Members[id]
	if !ok {
		return false
	}
	p.Name = name
	return true
}

func (s *Store) Snapshot(key Key) (Snapshot, bool) {
	l, ok := s.lobbies[key]
	if !ok {
		return Snapshot{}, false
	}
	return l.snapshot(), true
}

// Len returns the number of live lobbies.
func (s *Store) Len() int {
	return len(s.lobbies)
}
