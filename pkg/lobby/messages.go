package lobby

// Inbound event names
const (
	JoinLobbyEvent         = "join-lobby"
	UpdateTargetScoreEvent = "update-target-score"
	ChangeNameEvent        = "change-name"
	StartGameEvent         = "start-game"
	GameUpdateEvent        = "game-update"
	PlayerReadyEvent       = "player-ready"
	LeaveLobbyEvent        = "leave-lobby"
)

// KnownEvent reports whether name is an inbound event the Dispatcher handles.
func KnownEvent(name string) bool {
	switch name {
	case JoinLobbyEvent, UpdateTargetScoreEvent, ChangeNameEvent, StartGameEvent,
		GameUpdateEvent, PlayerReadyEvent, LeaveLobbyEvent:
		return true
	}
	return false
}

// Lobby Player management
type JoinLobbyRequest struct {
	LobbyKey   Key      `mapstructure:"lobbyKey"`
	PlayerName string   `mapstructure:"playerName"`
	PlayerID   PlayerID `mapstructure:"playerId"`
}

type ChangeNameRequest struct {
	LobbyKey Key      `mapstructure:"lobbyKey"`
	PlayerID PlayerID `mapstructure:"playerId"`
	NewName  string   `mapstructure:"newName"`
}

type LobbyUpdateBroadcast struct {
	Players     []Player `json:"players"`
	TargetScore int      `json:"targetScore"`
}

func (LobbyUpdateBroadcast) EventName() string { return "lobby-update" }

// Lobby configuration
type UpdateTargetScoreRequest struct {
	LobbyKey    Key  `mapstructure:"lobbyKey"`
	TargetScore *int `mapstructure:"targetScore"`
}

type TargetScoreUpdatedBroadcast struct {
	TargetScore int `json:"targetScore"`
}

func (TargetScoreUpdatedBroadcast) EventName() string { return "target-score-updated" }

// Game relay. State payloads are forwarded untouched.
type StartGameRequest struct {
	LobbyKey     Key         `mapstructure:"lobbyKey"`
	InitialState interface{} `mapstructure:"initialState"`
}

type GameStartedBroadcast struct {
	InitialState interface{} `json:"initialState"`
}

func (GameStartedBroadcast) EventName() string { return "game-started" }

type GameUpdateRequest struct {
	LobbyKey  Key         `mapstructure:"lobbyKey"`
	GameState interface{} `mapstructure:"gameState"`
}

type GameUpdatedBroadcast struct {
	GameState interface{} `json:"gameState"`
}

func (GameUpdatedBroadcast) EventName() string { return "game-updated" }

type PlayerReadyRequest struct {
	LobbyKey Key      `mapstructure:"lobbyKey"`
	PlayerID PlayerID `mapstructure:"playerId"`
}

type PlayerReadyUpdatedBroadcast struct {
	PlayerID PlayerID `json:"playerId"`
}

func (PlayerReadyUpdatedBroadcast) EventName() string { return "player-ready-updated" }

func lobbyUpdate(s Snapshot) LobbyUpdateBroadcast {
	return LobbyUpdateBroadcast{Players: s.Players, TargetScore: s.TargetScore}
}
