// Package room runs one actor goroutine per room. The actor is the single
// writer for the room's session, map pool, roster and chat log; everything
// reaches it through the typed inbox, so action validation is atomic against
// the current session and no two transitions can interleave.
package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/roster"
	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/types"
)

var ErrNotReady = errors.New("both teams must be ready")

// Recorder persists transitions. Implementations must tolerate being called
// from the room goroutine; errors are logged, never fatal to the session.
type Recorder interface {
	RecordOperation(op Operation) error
	RecordResult(res engine.Result) error
}

type Operation struct {
	Phase int
	Kind  string // roll | ban | pick | decider
	Team  engine.Team
	MapID string
	Auto  bool
}

type Msg interface{ isRoomMsg() }

type Join struct {
	ClientID string
	Token    string
	Name     string
	Outbox   chan types.ServerMessage
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

// Start is the external readiness gate: it opens the roll. The state
// machine never re-derives readiness from participant flags.
type Start struct{ Reply chan error }

func (Start) isRoomMsg() {}

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isRoomMsg() {}

type SetTeam struct {
	ClientID string
	Team     engine.Team
}

func (SetTeam) isRoomMsg() {}

type SetName struct {
	ClientID string
	Name     string
}

func (SetName) isRoomMsg() {}

type SetReady struct {
	ClientID string
	Ready    bool
}

func (SetReady) isRoomMsg() {}

type Chat struct {
	ClientID string
	Content  string
}

func (Chat) isRoomMsg() {}

type GetState struct{ Reply chan View }

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// View reflects internal state for tests without data races.
type View struct {
	Version      int
	NumClients   int
	Started      bool
	Halted       bool
	RemainingSec int
	State        engine.State
	Participants []roster.Participant
}

type Options struct {
	Code          string
	Maps          []engine.MapCard
	MaxPerTeam    int
	OperationTime time.Duration
	TickEvery     time.Duration // defaults to one second
	Recorder      Recorder      // nil disables persistence
	Logger        *zap.SugaredLogger
}

type Room struct {
	inbox    chan Msg
	state    engine.State
	version  int
	started  bool
	halted   bool
	deadline time.Time

	roster  *roster.Roster
	clients map[string]chan types.ServerMessage
	members map[string]string // clientID -> participantID
	chat    []types.ChatPayload

	opts   Options
	log    *zap.SugaredLogger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	if opts.TickEvery <= 0 {
		opts.TickEvery = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   engine.NewState(opts.Maps),
		roster:  roster.New(opts.MaxPerTeam),
		clients: make(map[string]chan types.ServerMessage),
		members: make(map[string]string),
		opts:    opts,
		log:     log.Named("room." + opts.Code),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

// Inbox exposes the actor's mailbox to the ws layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	ticker := time.NewTicker(r.opts.TickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-ticker.C:
			r.onTick()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.onJoin(msg)
			case Leave:
				r.onLeave(msg.ClientID)
			case Start:
				msg.Reply <- r.onStart()
			case FromClient:
				r.applyCommand(msg.ClientID, msg.Cmd)
			case SetTeam:
				r.onSetTeam(msg)
			case SetName:
				r.onSetName(msg)
			case SetReady:
				r.onSetReady(msg)
			case Chat:
				r.onChat(msg)
			case GetState:
				msg.Reply <- View{
					Version:      r.version,
					NumClients:   len(r.clients),
					Started:      r.started,
					Halted:       r.halted,
					RemainingSec: r.remainingSec(),
					State:        r.state,
					Participants: r.roster.Snapshot(),
				}
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) onTick() {
	if !r.started || r.halted || r.state.Status() != engine.StatusInProgress {
		return
	}

	remaining := r.remainingSec()
	r.broadcast(types.ServerMessage{
		Type:    types.MsgTimerTick,
		Version: r.version,
		Tick:    &types.TickPayload{Phase: r.state.Phase(), RemainingSec: remaining},
	})

	if remaining <= 0 {
		r.applyCommand("", engine.Command{Type: engine.CmdTimeoutAdvance})
	}
}

func (r *Room) remainingSec() int {
	if r.deadline.IsZero() || r.state.Status() != engine.StatusInProgress {
		return 0
	}
	left := time.Until(r.deadline)
	if left < 0 {
		return 0
	}
	return int(left.Round(time.Second) / time.Second)
}

func (r *Room) onJoin(msg Join) {
	p, created := r.roster.ResolveOrCreate(msg.Token, msg.Name)
	r.clients[msg.ClientID] = msg.Outbox
	r.members[msg.ClientID] = p.ID

	welcome := r.snapshot()
	welcome.Token = p.Token
	welcome.SelfID = p.ID
	r.trySend(msg.ClientID, msg.Outbox, types.ServerMessage{Type: types.MsgWelcome, Version: r.version, Snapshot: welcome})

	if created {
		r.log.Infow("participant joined", "participant", p.ID, "name", p.Name)
	}
	r.broadcastExcept(msg.ClientID, types.ServerMessage{
		Type:        types.MsgUserJoined,
		Version:     r.version,
		Participant: &p,
	})
}

func (r *Room) onLeave(clientID string) {
	pid := r.members[clientID]
	delete(r.clients, clientID)
	delete(r.members, clientID)

	if p, ok := r.roster.Get(pid); ok {
		r.broadcast(types.ServerMessage{Type: types.MsgUserLeft, Version: r.version, Participant: &p})
	}
}

func (r *Room) onStart() error {
	if r.started {
		return nil
	}
	if !r.roster.BothTeamsReady() {
		return ErrNotReady
	}
	r.started = true
	r.log.Infow("session opened for roll")
	return nil
}

func (r *Room) onSetTeam(msg SetTeam) {
	p, ok := r.participant(msg.ClientID)
	if !ok {
		return
	}
	if err := r.roster.AssignTeam(p.ID, msg.Team); err != nil {
		r.sendError(msg.ClientID, "team_full", err)
		return
	}
	updated, _ := r.roster.Get(p.ID)
	r.broadcast(types.ServerMessage{Type: types.MsgTeamUpdated, Version: r.version, Participant: &updated})
}

func (r *Room) onSetName(msg SetName) {
	p, ok := r.participant(msg.ClientID)
	if !ok {
		return
	}
	_ = r.roster.SetName(p.ID, msg.Name)
	updated, _ := r.roster.Get(p.ID)
	r.broadcast(types.ServerMessage{Type: types.MsgNameUpdated, Version: r.version, Participant: &updated})
}

func (r *Room) onSetReady(msg SetReady) {
	p, ok := r.participant(msg.ClientID)
	if !ok {
		return
	}
	_ = r.roster.SetReady(p.ID, msg.Ready)
	updated, _ := r.roster.Get(p.ID)
	r.broadcast(types.ServerMessage{Type: types.MsgTeamUpdated, Version: r.version, Participant: &updated})
}

func (r *Room) onChat(msg Chat) {
	p, ok := r.participant(msg.ClientID)
	if !ok {
		return
	}
	entry := types.ChatPayload{Team: p.Team, Name: p.Name, Content: msg.Content, Timestamp: time.Now().UTC()}
	r.chat = append(r.chat, entry)
	r.broadcast(types.ServerMessage{Type: types.MsgChatMessage, Version: r.version, Chat: &entry})
}

// applyCommand funnels every mutation (manual or timeout) through the same
// engine transition, then broadcasts the emitted events in order.
func (r *Room) applyCommand(clientID string, cmd engine.Command) {
	if r.halted {
		r.sendError(clientID, "session_halted", errors.New("session halted"))
		return
	}

	if clientID != "" {
		p, ok := r.participant(clientID)
		if !ok {
			return
		}
		// team authority is the roster, never the client's claim
		cmd.Team = p.Team
		if cmd.Type == engine.CmdRoll && !r.started {
			r.sendError(clientID, "not_started", errors.New("room not started"))
			return
		}
	}

	events, next, err := engine.Apply(r.state, cmd)
	if err != nil {
		if errors.Is(err, engine.ErrPoolCorrupt) {
			// fatal invariant violation: halt rather than continue corrupted
			r.halted = true
			r.log.Errorw("session halted", "err", err)
			return
		}
		if errors.Is(err, engine.ErrAlreadyRolled) {
			// idempotent no-op per protocol
			return
		}
		r.sendError(clientID, errorCode(err), err)
		return
	}

	if len(events) == 0 {
		// duplicate of an already-applied action: answer with current state
		if out, ok := r.clients[clientID]; ok {
			r.trySend(clientID, out, types.ServerMessage{Type: types.MsgWelcome, Version: r.version, Snapshot: r.snapshot()})
		}
		return
	}

	r.state = next
	r.version++
	for _, e := range events {
		r.emit(e)
	}
}

func (r *Room) emit(e engine.Event) {
	switch e.Type {
	case engine.EvtRollCompleted:
		r.record(Operation{Kind: "roll", Team: e.Team})
		r.broadcast(types.ServerMessage{
			Type:    types.MsgRollDone,
			Version: r.version,
			Roll:    &types.RollPayload{RollA: e.RollA, RollB: e.RollB, FirstTeam: e.Team},
		})

	case engine.EvtPhaseChanged:
		r.deadline = time.Now().Add(r.opts.OperationTime)
		r.broadcast(types.ServerMessage{
			Type:    types.MsgPhaseChanged,
			Version: r.version,
			Phase: &types.PhasePayload{
				Phase:       e.Phase,
				Action:      engine.PhaseOrder[e.Phase-1].Action,
				ActingTeam:  e.ActingTeam,
				DeadlineUTC: r.deadline.UTC(),
			},
		})

	case engine.EvtMapBanned, engine.EvtMapPicked:
		kind, status, msgType := "ban", engine.MapBanned, types.MsgMapBanned
		if e.Type == engine.EvtMapPicked {
			kind, status, msgType = "pick", engine.MapPicked, types.MsgMapPicked
		}
		r.record(Operation{Phase: e.Phase, Kind: kind, Team: e.Team, MapID: e.MapID, Auto: e.Auto})
		r.broadcast(types.ServerMessage{
			Type:    msgType,
			Version: r.version,
			Map:     &types.MapPayload{MapID: e.MapID, Status: status, Team: e.Team, Phase: e.Phase, Auto: e.Auto},
		})

	case engine.EvtDeciderResolved:
		r.deadline = time.Time{}
		r.record(Operation{Phase: e.Phase, Kind: "decider", MapID: e.MapID})
		r.broadcast(types.ServerMessage{
			Type:    types.MsgDecider,
			Version: r.version,
			Map:     &types.MapPayload{MapID: e.MapID, Status: engine.MapDecider, Phase: e.Phase},
		})

	case engine.EvtFinished:
		if rec := r.opts.Recorder; rec != nil && r.state.Result != nil {
			if err := rec.RecordResult(*r.state.Result); err != nil {
				r.log.Errorw("persist result", "err", err)
			}
		}
		r.log.Infow("session finished", "decider", r.state.Result.DeciderID)
		r.broadcast(types.ServerMessage{Type: types.MsgFinished, Version: r.version, Result: r.state.Result})
	}
}

func (r *Room) record(op Operation) {
	if r.opts.Recorder == nil {
		return
	}
	if err := r.opts.Recorder.RecordOperation(op); err != nil {
		r.log.Errorw("persist operation", "kind", op.Kind, "err", err)
	}
}

func (r *Room) participant(clientID string) (roster.Participant, bool) {
	pid, ok := r.members[clientID]
	if !ok {
		return roster.Participant{}, false
	}
	return r.roster.Get(pid)
}

func (r *Room) sendError(clientID, code string, err error) {
	out, ok := r.clients[clientID]
	if !ok {
		return
	}
	r.trySend(clientID, out, types.ServerMessage{
		Type:  types.MsgError,
		Error: &types.ErrorPayload{Code: code, Message: err.Error()},
	})
}

func (r *Room) snapshot() *types.Snapshot {
	return &types.Snapshot{
		RoomCode:     r.opts.Code,
		Status:       r.state.Status(),
		Phase:        r.state.Phase(),
		ActingTeam:   r.state.ActingTeam(),
		RemainingSec: r.remainingSec(),
		RollA:        r.state.RollA,
		RollB:        r.state.RollB,
		FirstTeam:    r.state.FirstTeam,
		Maps:         r.state.Maps,
		Participants: r.roster.Snapshot(),
		Result:       r.state.Result,
	}
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for id, ch := range r.clients {
		r.trySend(id, ch, msg)
	}
}

func (r *Room) broadcastExcept(skipID string, msg types.ServerMessage) {
	for id, ch := range r.clients {
		if id == skipID {
			continue
		}
		r.trySend(id, ch, msg)
	}
}

func (r *Room) trySend(id string, ch chan types.ServerMessage, msg types.ServerMessage) {
	select {
	case ch <- msg:
	default:
		// slow or wedged client: drop it, reconnect will resnapshot
		close(ch)
		delete(r.clients, id)
		delete(r.members, id)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, engine.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, engine.ErrMapUnavailable):
		return "map_unavailable"
	case errors.Is(err, engine.ErrWrongAction):
		return "wrong_action_kind"
	default:
		return "rejected"
	}
}
