package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/hub"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/room"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 120 * time.Second
)

// Handler upgrades a connection and bridges it to the room actor. The client
// identifies its room by code and itself by the durable session token; an
// absent token means a first visit and a fresh one comes back in the welcome
// snapshot.
func Handler(h *hub.Hub, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		token := r.URL.Query().Get("token")
		name := r.URL.Query().Get("name")

		rm := h.Get(code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan types.ServerMessage, 32)

		rm.Inbox() <- room.Join{ClientID: clientID, Token: token, Name: name, Outbox: out}
		defer func() { rm.Inbox() <- room.Leave{ClientID: clientID} }()

		// Writer goroutine: drains the room outbox until it closes.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Errorw("marshal server message", "err", err)
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad_json", "malformed message")
				continue
			}

			msg, ok := toRoomMsg(clientID, cm)
			if !ok {
				writeError(r.Context(), conn, "unknown_type", "unknown message type")
				continue
			}
			rm.Inbox() <- msg
		}
	}
}

func toRoomMsg(clientID string, m types.ClientMessage) (room.Msg, bool) {
	switch m.Type {
	case types.MsgSetTeam:
		team, ok := parseTeam(m.Team)
		if !ok {
			return nil, false
		}
		return room.SetTeam{ClientID: clientID, Team: team}, true
	case types.MsgSetName:
		return room.SetName{ClientID: clientID, Name: m.Name}, true
	case types.MsgSetReady:
		return room.SetReady{ClientID: clientID, Ready: m.Ready}, true
	case types.MsgRoll:
		return room.FromClient{ClientID: clientID, Cmd: engine.Command{Type: engine.CmdRoll}}, true
	case types.MsgBanMap:
		return room.FromClient{ClientID: clientID, Cmd: engine.Command{Type: engine.CmdBanMap, MapID: m.MapID}}, true
	case types.MsgPickMap:
		return room.FromClient{ClientID: clientID, Cmd: engine.Command{Type: engine.CmdPickMap, MapID: m.MapID}}, true
	case types.MsgChat:
		return room.Chat{ClientID: clientID, Content: m.Content}, true
	default:
		return nil, false
	}
}

func parseTeam(team string) (engine.Team, bool) {
	switch team {
	case "A":
		return engine.TeamA, true
	case "B":
		return engine.TeamB, true
	case "":
		return engine.TeamNone, true
	default:
		return engine.TeamNone, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, code, message string) {
	msg := types.ServerMessage{Type: types.MsgError, Error: &types.ErrorPayload{Code: code, Message: message}}
	payload, _ := json.Marshal(msg)
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
