// Package roster resolves durable session tokens to room participants and
// owns team membership. It is not safe for concurrent use: a Roster belongs
// to its room's actor goroutine.
package roster

import (
	"errors"

	"github.com/google/uuid"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
)

var ErrTeamFull = errors.New("team is full")
var ErrUnknownParticipant = errors.New("unknown participant")

type Participant struct {
	ID    string      `json:"id"`
	Token string      `json:"-"` // durable browser token, never broadcast
	Team  engine.Team `json:"team"`
	Name  string      `json:"name"`
	Ready bool        `json:"ready"`
}

type Roster struct {
	maxPerTeam int
	byToken    map[string]*Participant
	byID       map[string]*Participant
	order      []string // participant ids in join order
}

func New(maxPerTeam int) *Roster {
	return &Roster{
		maxPerTeam: maxPerTeam,
		byToken:    make(map[string]*Participant),
		byID:       make(map[string]*Participant),
	}
}

// ResolveOrCreate returns the participant for token, creating an unassigned
// one when the token is unknown. An empty token mints a fresh one; the
// caller must hand it back to the client for durable storage.
func (r *Roster) ResolveOrCreate(token, name string) (Participant, bool) {
	if token != "" {
		if p, ok := r.byToken[token]; ok {
			if name != "" && p.Name == "" {
				p.Name = name
			}
			return *p, false
		}
	} else {
		token = uuid.NewString()
	}

	p := &Participant{
		ID:    uuid.NewString(),
		Token: token,
		Name:  name,
	}
	r.byToken[token] = p
	r.byID[p.ID] = p
	r.order = append(r.order, p.ID)
	return *p, true
}

// AssignTeam moves the participant onto team. Re-assigning the current team
// is a no-op success; a full target team is rejected.
func (r *Roster) AssignTeam(id string, team engine.Team) error {
	p, ok := r.byID[id]
	if !ok {
		return ErrUnknownParticipant
	}
	if p.Team == team {
		return nil
	}
	if team != engine.TeamNone && r.TeamSize(team) >= r.maxPerTeam {
		return ErrTeamFull
	}
	p.Team = team
	p.Ready = false
	return nil
}

func (r *Roster) SetReady(id string, ready bool) error {
	p, ok := r.byID[id]
	if !ok {
		return ErrUnknownParticipant
	}
	p.Ready = ready
	return nil
}

func (r *Roster) SetName(id, name string) error {
	p, ok := r.byID[id]
	if !ok {
		return ErrUnknownParticipant
	}
	p.Name = name
	return nil
}

func (r *Roster) Remove(id string) {
	p, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byToken, p.Token)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Roster) Get(id string) (Participant, bool) {
	p, ok := r.byID[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

func (r *Roster) TeamSize(team engine.Team) int {
	n := 0
	for _, p := range r.byID {
		if p.Team == team {
			n++
		}
	}
	return n
}

// BothTeamsReady reports whether each team has at least one participant and
// every assigned participant is ready. The room lifecycle consults this
// before opening the roll; the state machine itself never does.
func (r *Roster) BothTeamsReady() bool {
	counts := map[engine.Team]int{}
	for _, p := range r.byID {
		if p.Team == engine.TeamNone {
			continue
		}
		if !p.Ready {
			return false
		}
		counts[p.Team]++
	}
	return counts[engine.TeamA] > 0 && counts[engine.TeamB] > 0
}

// Snapshot lists participants in join order.
func (r *Roster) Snapshot() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}
