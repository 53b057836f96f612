// Package types defines the websocket wire format. One envelope per
// direction; the Type field discriminates which payload pointer is set.
package types

import (
	"time"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/roster"
)

// Client -> server message kinds.
const (
	MsgSetTeam  = "set_team"
	MsgSetName  = "set_name"
	MsgSetReady = "set_ready"
	MsgRoll     = "roll"
	MsgBanMap   = "ban_map"
	MsgPickMap  = "pick_map"
	MsgChat     = "chat"
)

type ClientMessage struct {
	Type    string `json:"type"`
	Team    string `json:"team,omitempty"`
	Name    string `json:"name,omitempty"`
	Ready   bool   `json:"ready,omitempty"`
	MapID   string `json:"map_id,omitempty"`
	Content string `json:"content,omitempty"`
}

// Server -> client message kinds.
const (
	MsgWelcome      = "welcome"
	MsgUserJoined   = "user_joined"
	MsgUserLeft     = "user_left"
	MsgTeamUpdated  = "team_updated"
	MsgNameUpdated  = "name_updated"
	MsgRollDone     = "roll_completed"
	MsgPhaseChanged = "phase_changed"
	MsgMapBanned    = "map_banned"
	MsgMapPicked    = "map_picked"
	MsgDecider      = "decider_resolved"
	MsgTimerTick    = "timer_tick"
	MsgChatMessage  = "chat_message"
	MsgFinished     = "bp_finished"
	MsgError        = "error"
)

type ServerMessage struct {
	Type        string              `json:"type"`
	Version     int                 `json:"version,omitempty"`
	Snapshot    *Snapshot           `json:"snapshot,omitempty"`
	Participant *roster.Participant `json:"participant,omitempty"`
	Roll        *RollPayload        `json:"roll,omitempty"`
	Phase       *PhasePayload       `json:"phase,omitempty"`
	Map         *MapPayload         `json:"map,omitempty"`
	Tick        *TickPayload        `json:"tick,omitempty"`
	Chat        *ChatPayload        `json:"chat,omitempty"`
	Result      *engine.Result      `json:"result,omitempty"`
	Error       *ErrorPayload       `json:"error,omitempty"`
}

// Snapshot is the full reconciliation payload sent to a connection on join.
// A reconnecting client discards local state and rehydrates from it.
type Snapshot struct {
	RoomCode     string               `json:"room_code"`
	Status       engine.SessionStatus `json:"status"`
	Phase        int                  `json:"phase"`
	ActingTeam   engine.Team          `json:"acting_team,omitempty"`
	RemainingSec int                  `json:"remaining_sec"`
	RollA        int                  `json:"roll_a,omitempty"`
	RollB        int                  `json:"roll_b,omitempty"`
	FirstTeam    engine.Team          `json:"first_team,omitempty"`
	Maps         []engine.MapCard     `json:"maps"`
	Participants []roster.Participant `json:"participants"`
	Result       *engine.Result       `json:"result,omitempty"`

	// Token is set only in the welcome message for the joining connection,
	// so a first-time client can persist its session token.
	Token  string `json:"token,omitempty"`
	SelfID string `json:"self_id,omitempty"`
}

type RollPayload struct {
	RollA     int         `json:"roll_a"`
	RollB     int         `json:"roll_b"`
	FirstTeam engine.Team `json:"first_team"`
}

type PhasePayload struct {
	Phase       int           `json:"phase"`
	Action      engine.Action `json:"action,omitempty"`
	ActingTeam  engine.Team   `json:"acting_team,omitempty"`
	DeadlineUTC time.Time     `json:"deadline_utc"`
}

type MapPayload struct {
	MapID  string           `json:"map_id"`
	Status engine.MapStatus `json:"status"`
	Team   engine.Team      `json:"team,omitempty"`
	Phase  int              `json:"phase"`
	Auto   bool             `json:"auto,omitempty"`
}

type TickPayload struct {
	Phase        int `json:"phase"`
	RemainingSec int `json:"remaining_sec"`
}

type ChatPayload struct {
	Team      engine.Team `json:"team,omitempty"`
	Name      string      `json:"name"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
