package lobby

import (
	"fmt"
	"math"
	"reflect"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/comms"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Dispatcher routes named client events to the Coordinator and Store. Each
// event performs at most one mutation and produces at most one broadcast.
// Requests naming an unknown lobby or member are silently ignored.
type Dispatcher struct {
	Log         *zap.Logger
	Coordinator *Coordinator
}

// NewDispatcher wires a Dispatcher over fresh lobby state.
func NewDispatcher(log *zap.Logger, defaultTargetScore int) *Dispatcher {
	return &Dispatcher{
		Log:         log,
		Coordinator: NewCoordinator(log, NewStore(defaultTargetScore), NewRegistry()),
	}
}

func (d *Dispatcher) Store() *Store {
	return d.Coordinator.Store
}

func (d *Dispatcher) Registry() *Registry {
	return d.Coordinator.Registry
}

// Handle processes one inbound message from conn and returns the effects to
// apply.
func (d *Dispatcher) Handle(conn comms.ConnectionID, message comms.Message) []Effect {
	log := d.Log.With(zap.String("conn", string(conn)), zap.String("type", message.Type))
	log.Debug("Handling event")

	switch message.Type {
	case JoinLobbyEvent:
		var req JoinLobbyRequest
		if !d.decode(log, message.Contents, &req) {
			return nil
		}
		return d.Coordinator.Join(conn, req.LobbyKey, req.PlayerName, req.PlayerID)

	case UpdateTargetScoreEvent:
		var req UpdateTargetScoreRequest
		if !d.decode(log, message.Contents, &req) || req.TargetScore == nil {
			return nil
		}
		if !d.Store().SetTargetScore(req.LobbyKey, *req.TargetScore) {
			return nil
		}
		return []Effect{emit(req.LobbyKey, TargetScoreUpdatedBroadcast{TargetScore: *req.TargetScore})}

	case ChangeNameEvent:
		var req ChangeNameRequest
		if !d.decode(log, message.Contents, &req) {
			return nil
		}
		if !d.Store().RenameMember(req.LobbyKey, req.PlayerID, req.NewName) {
			return nil
		}
		snapshot, _ := d.Store().Snapshot(req.LobbyKey)
		return []Effect{emit(req.LobbyKey, lobbyUpdate(snapshot))}

	case StartGameEvent:
		var req StartGameRequest
		if !d.decode(log, message.Contents, &req) || req.LobbyKey == "" {
			return nil
		}
		log.Info("Game started", zap.String("lobby", string(req.LobbyKey)))
		return []Effect{emit(req.LobbyKey, GameStartedBroadcast{InitialState: req.InitialState})}

	case GameUpdateEvent:
		var req GameUpdateRequest
		if !d.decode(log, message.Contents, &req) || req.LobbyKey == "" {
			return nil
		}
		return []Effect{emit(req.LobbyKey, GameUpdatedBroadcast{GameState: req.GameState})}

	case PlayerReadyEvent:
		var req PlayerReadyRequest
		if !d.decode(log, message.Contents, &req) || req.LobbyKey == "" {
			return nil
		}
		return []Effect{emit(req.LobbyKey, PlayerReadyUpdatedBroadcast{PlayerID: req.PlayerID})}

	case LeaveLobbyEvent:
		// The binding is resolved server-side; the payload's lobby key is not trusted
		return d.Coordinator.Leave(conn)

	default:
		log.Debug("Ignoring unknown event type")
		return nil
	}
}

// Disconnect handles the transport reporting that conn is gone.
func (d *Dispatcher) Disconnect(conn comms.ConnectionID) []Effect {
	return d.Coordinator.Disconnect(conn)
}

func (d *Dispatcher) decode(log *zap.Logger, contents interface{}, out interface{}) bool {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(strictIntHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		log.Error("Unable to build payload decoder", zap.Error(err))
		return false
	}
	if err := decoder.Decode(contents); err != nil {
		log.Debug("Unable to parse event contents", zap.Error(err))
		return false
	}
	return true
}

// strictIntHook rejects inputs that weak typing would otherwise coerce into a
// meaningless int: booleans, and floats that are non-finite or out of range.
func strictIntHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Bool:
		return nil, fmt.Errorf("cannot use bool %v as an integer", data)
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if math.IsNaN(f) || f < math.MinInt || f >= math.MaxInt {
			return nil, fmt.Errorf("%v is not a representable integer", f)
		}
	}
	return data, nil
}
