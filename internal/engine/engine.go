package engine

import (
	"errors"
	"fmt"

	"github.com/valyala/fastrand"
)

var ErrNotYourTurn = errors.New("not your turn")
var ErrInvalidPhase = errors.New("no action allowed in current phase")
var ErrMapUnavailable = errors.New("map unavailable")
var ErrWrongAction = errors.New("wrong action kind for current phase")
var ErrAlreadyRolled = errors.New("roll already completed")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrPoolCorrupt means the map pool no longer satisfies the one-decider
// invariant. The room must halt the session; there is no recovery.
var ErrPoolCorrupt = errors.New("map pool corrupt")

type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

func Other(t Team) Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type MapStatus string

const (
	MapAvailable MapStatus = "available"
	MapBanned    MapStatus = "banned"
	MapPicked    MapStatus = "picked"
	MapDecider   MapStatus = "decider"
)

type MapCard struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Icon    string    `json:"icon"`
	Status  MapStatus `json:"status"`
	ActedBy Team      `json:"acted_by,omitempty"`
	Ordinal int       `json:"ordinal,omitempty"` // phase number the map was acted on, 0 if untouched
	Auto    bool      `json:"auto,omitempty"`    // acted on by timeout auto-select
}

type SessionStatus string

const (
	StatusWaitingForRoll SessionStatus = "waiting_for_roll"
	StatusInProgress     SessionStatus = "in_progress"
	StatusFinished       SessionStatus = "finished"
)

const rollMax = 100

type State struct {
	Maps      []MapCard `json:"maps"`
	Rolled    bool      `json:"rolled"`
	RollA     int       `json:"roll_a,omitempty"`
	RollB     int       `json:"roll_b,omitempty"`
	FirstTeam Team      `json:"first_team,omitempty"` // winner of the roll, fixed for the session
	Cursor    int       `json:"cursor"`               // index into PhaseOrder, valid once Rolled
	Finished  bool      `json:"finished"`
	Result    *Result   `json:"result,omitempty"`
}

func (s State) Status() SessionStatus {
	switch {
	case s.Finished:
		return StatusFinished
	case s.Rolled:
		return StatusInProgress
	default:
		return StatusWaitingForRoll
	}
}

// Phase is the 1-based phase number: 0 before the roll, 7 once the decider
// has resolved.
func (s State) Phase() int {
	if !s.Rolled {
		return 0
	}
	if s.Finished {
		return len(PhaseOrder) + 1
	}
	return s.Cursor + 1
}

// ActingTeam resolves the phase template's role column against the roll
// outcome. It is never derived from who acted last.
func (s State) ActingTeam() Team {
	if !s.Rolled || s.Finished {
		return TeamNone
	}
	if PhaseOrder[s.Cursor].Role == RoleRollWinner {
		return s.FirstTeam
	}
	return Other(s.FirstTeam)
}

type CommandType string

const (
	CmdRoll           CommandType = "Roll"
	CmdBanMap         CommandType = "BanMap"
	CmdPickMap        CommandType = "PickMap"
	CmdTimeoutAdvance CommandType = "TimeoutAdvance"
)

type Command struct {
	Type  CommandType
	Team  Team
	MapID string
}

type EventType string

const (
	EvtRollCompleted   EventType = "RollCompleted"
	EvtMapBanned       EventType = "MapBanned"
	EvtMapPicked       EventType = "MapPicked"
	EvtPhaseChanged    EventType = "PhaseChanged"
	EvtDeciderResolved EventType = "DeciderResolved"
	EvtFinished        EventType = "Finished"
)

type Event struct {
	Type       EventType
	Team       Team
	MapID      string
	Phase      int
	Auto       bool
	RollA      int
	RollB      int
	ActingTeam Team
}

type ResultEntry struct {
	Phase  int    `json:"phase"`
	MapID  string `json:"map_id"`
	Team   Team   `json:"team"`
	Action Action `json:"action"`
	Auto   bool   `json:"auto"`
}

// Result is finalized when the decider resolves and never mutated after.
type Result struct {
	Entries   []ResultEntry `json:"entries"`
	DeciderID string        `json:"decider_id"`
	RollA     int           `json:"roll_a"`
	RollB     int           `json:"roll_b"`
	FirstTeam Team          `json:"first_team"`
}

// randomness hooks, stubbed in tests
var rollValue = func() int { return int(fastrand.Uint32n(rollMax)) + 1 }
var randIndex = func(n int) int { return int(fastrand.Uint32n(uint32(n))) }

// Apply validates cmd against s and returns the emitted events and the next
// state. s is never mutated; on error it is returned unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdRoll:
		return applyRoll(s)
	case CmdBanMap:
		return applyAction(s, cmd.Team, ActionBan, cmd.MapID, false)
	case CmdPickMap:
		return applyAction(s, cmd.Team, ActionPick, cmd.MapID, false)
	case CmdTimeoutAdvance:
		return applyTimeout(s)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyRoll(s State) ([]Event, State, error) {
	if s.Rolled {
		return nil, s, ErrAlreadyRolled
	}

	a, b := rollValue(), rollValue()
	for a == b {
		a, b = rollValue(), rollValue()
	}

	next := s
	next.Rolled = true
	next.RollA = a
	next.RollB = b
	next.FirstTeam = TeamA
	if b > a {
		next.FirstTeam = TeamB
	}
	next.Cursor = 0

	events := []Event{
		{Type: EvtRollCompleted, RollA: a, RollB: b, Team: next.FirstTeam},
		{Type: EvtPhaseChanged, Phase: 1, ActingTeam: next.ActingTeam()},
	}
	return events, next, nil
}

func applyAction(s State, team Team, action Action, mapID string, auto bool) ([]Event, State, error) {
	// Duplicate delivery of an already-applied action: the phase has moved
	// on, report success with no transition instead of a stale rejection.
	if alreadyApplied(s, team, action, mapID) {
		return nil, s, nil
	}

	if !s.Rolled || s.Finished {
		return nil, s, ErrInvalidPhase
	}

	step := PhaseOrder[s.Cursor]
	acting := s.ActingTeam()

	if !auto && team != acting {
		return nil, s, ErrNotYourTurn
	}

	idx := findMap(s.Maps, mapID)
	if idx < 0 || s.Maps[idx].Status != MapAvailable {
		return nil, s, ErrMapUnavailable
	}

	if action != step.Action {
		return nil, s, ErrWrongAction
	}

	next := s
	next.Maps = cloneMaps(s.Maps)

	phase := s.Cursor + 1
	status := MapBanned
	evt := EvtMapBanned
	if action == ActionPick {
		status = MapPicked
		evt = EvtMapPicked
	}
	next.Maps[idx].Status = status
	next.Maps[idx].ActedBy = acting
	next.Maps[idx].Ordinal = phase
	next.Maps[idx].Auto = auto

	events := []Event{{Type: evt, Team: acting, MapID: mapID, Phase: phase, Auto: auto}}

	next.Cursor++
	if next.Cursor < len(PhaseOrder) {
		events = append(events, Event{Type: EvtPhaseChanged, Phase: next.Cursor + 1, ActingTeam: next.ActingTeam()})
		return events, next, nil
	}

	events, next, err := resolveDecider(next, events)
	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}

// resolveDecider runs after the sixth action: exactly one map must remain.
func resolveDecider(s State, events []Event) ([]Event, State, error) {
	remaining := availableIndexes(s.Maps)
	if len(remaining) != 1 {
		return nil, s, fmt.Errorf("%w: %d maps left after final ban", ErrPoolCorrupt, len(remaining))
	}

	idx := remaining[0]
	s.Maps[idx].Status = MapDecider
	s.Maps[idx].Ordinal = len(PhaseOrder) + 1
	s.Finished = true
	s.Result = buildResult(s)

	events = append(events,
		Event{Type: EvtDeciderResolved, MapID: s.Maps[idx].ID, Phase: len(PhaseOrder) + 1},
		Event{Type: EvtFinished},
	)
	return events, s, nil
}

func applyTimeout(s State) ([]Event, State, error) {
	if !s.Rolled || s.Finished {
		return nil, s, ErrInvalidPhase
	}

	remaining := availableIndexes(s.Maps)
	if len(remaining) == 0 {
		return nil, s, fmt.Errorf("%w: no maps left to auto-select", ErrPoolCorrupt)
	}

	pick := s.Maps[remaining[randIndex(len(remaining))]]
	return applyAction(s, s.ActingTeam(), PhaseOrder[s.Cursor].Action, pick.ID, true)
}

func buildResult(s State) *Result {
	res := &Result{
		RollA:     s.RollA,
		RollB:     s.RollB,
		FirstTeam: s.FirstTeam,
		Entries:   make([]ResultEntry, 0, len(PhaseOrder)),
	}
	for phase := 1; phase <= len(PhaseOrder); phase++ {
		for _, m := range s.Maps {
			if m.Ordinal != phase {
				continue
			}
			action := ActionBan
			if m.Status == MapPicked {
				action = ActionPick
			}
			res.Entries = append(res.Entries, ResultEntry{
				Phase:  phase,
				MapID:  m.ID,
				Team:   m.ActedBy,
				Action: action,
				Auto:   m.Auto,
			})
		}
	}
	for _, m := range s.Maps {
		if m.Status == MapDecider {
			res.DeciderID = m.ID
		}
	}
	return res
}

func alreadyApplied(s State, team Team, action Action, mapID string) bool {
	idx := findMap(s.Maps, mapID)
	if idx < 0 {
		return false
	}
	card := s.Maps[idx]
	want := MapBanned
	if action == ActionPick {
		want = MapPicked
	}
	return card.Status == want && card.ActedBy == team
}

func findMap(maps []MapCard, id string) int {
	for i, m := range maps {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func availableIndexes(maps []MapCard) []int {
	var out []int
	for i, m := range maps {
		if m.Status == MapAvailable {
			out = append(out, i)
		}
	}
	return out
}

func cloneMaps(maps []MapCard) []MapCard {
	out := make([]MapCard, len(maps))
	copy(out, maps)
	return out
}
