package engine

import (
	"errors"
	"testing"
)

// stubRolls makes the next roll deterministic: team A rolls a, team B rolls b.
func stubRolls(t *testing.T, vals ...int) {
	t.Helper()
	orig := rollValue
	i := 0
	rollValue = func() int {
		v := vals[i%len(vals)]
		i++
		return v
	}
	t.Cleanup(func() { rollValue = orig })
}

func stubRandIndex(t *testing.T, idx int) {
	t.Helper()
	orig := randIndex
	randIndex = func(n int) int { return idx % n }
	t.Cleanup(func() { randIndex = orig })
}

func rolledState(t *testing.T, first Team) State {
	t.Helper()
	if first == TeamA {
		stubRolls(t, 80, 20)
	} else {
		stubRolls(t, 20, 80)
	}
	_, s, err := Apply(NewState(DefaultPool()), Command{Type: CmdRoll})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	return s
}

func TestRoll_SetsFirstTeamAndStartsPhaseOne(t *testing.T) {
	stubRolls(t, 13, 77)

	events, s, err := Apply(NewState(DefaultPool()), Command{Type: CmdRoll})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.FirstTeam != TeamB {
		t.Fatalf("want first team B, got %q", s.FirstTeam)
	}
	if s.Phase() != 1 || s.ActingTeam() != TeamB {
		t.Fatalf("want phase 1 acted by B, got phase %d team %q", s.Phase(), s.ActingTeam())
	}
	if !ContainsEvent(events, EvtRollCompleted) || !ContainsEvent(events, EvtPhaseChanged) {
		t.Fatalf("missing roll events: %+v", events)
	}
}

func TestRoll_TieIsRerolled(t *testing.T) {
	stubRolls(t, 50, 50, 50, 50, 30, 60)

	_, s, err := Apply(NewState(DefaultPool()), Command{Type: CmdRoll})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.RollA != 30 || s.RollB != 60 {
		t.Fatalf("want rolls 30/60 after reroll, got %d/%d", s.RollA, s.RollB)
	}
}

func TestRoll_SecondRollRejected(t *testing.T) {
	s := rolledState(t, TeamA)
	_, _, err := Apply(s, Command{Type: CmdRoll})
	if !errors.Is(err, ErrAlreadyRolled) {
		t.Fatalf("want ErrAlreadyRolled, got %v", err)
	}
}

func TestApply_ValidationOrder(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(t *testing.T) State
		cmd     Command
		wantErr error
	}{
		{
			name:    "action before roll is InvalidPhase",
			setup:   func(t *testing.T) State { return NewState(DefaultPool()) },
			cmd:     Command{Type: CmdBanMap, Team: TeamA, MapID: "map01"},
			wantErr: ErrInvalidPhase,
		},
		{
			name:    "non-acting team is NotYourTurn",
			setup:   func(t *testing.T) State { return rolledState(t, TeamA) },
			cmd:     Command{Type: CmdBanMap, Team: TeamB, MapID: "map01"},
			wantErr: ErrNotYourTurn,
		},
		{
			name: "acted map is MapUnavailable",
			setup: func(t *testing.T) State {
				s := rolledState(t, TeamA)
				_, s, _ = Apply(s, Command{Type: CmdBanMap, Team: TeamA, MapID: "map01"})
				return s
			},
			cmd:     Command{Type: CmdBanMap, Team: TeamB, MapID: "map01"},
			wantErr: ErrMapUnavailable,
		},
		{
			name:    "unknown map is MapUnavailable",
			setup:   func(t *testing.T) State { return rolledState(t, TeamA) },
			cmd:     Command{Type: CmdBanMap, Team: TeamA, MapID: "map99"},
			wantErr: ErrMapUnavailable,
		},
		{
			name:    "pick during ban phase is WrongAction",
			setup:   func(t *testing.T) State { return rolledState(t, TeamA) },
			cmd:     Command{Type: CmdPickMap, Team: TeamA, MapID: "map01"},
			wantErr: ErrWrongAction,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.setup(t)
			_, after, err := Apply(before, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if after.Cursor != before.Cursor {
				t.Fatalf("rejected action moved cursor %d -> %d", before.Cursor, after.Cursor)
			}
			for i := range after.Maps {
				if after.Maps[i].Status != before.Maps[i].Status {
					t.Fatalf("rejected action touched map %s", after.Maps[i].ID)
				}
			}
		})
	}
}

func TestPhaseTemplate_ActingTeams(t *testing.T) {
	s := rolledState(t, TeamB)

	want := []Team{TeamB, TeamA, TeamB, TeamA, TeamA, TeamB}
	for i, team := range want {
		if got := s.ActingTeam(); got != team {
			t.Fatalf("phase %d: want acting team %q, got %q", i+1, team, got)
		}
		cmd := Command{Type: CmdBanMap, Team: team, MapID: s.Maps[i].ID}
		if PhaseOrder[i].Action == ActionPick {
			cmd.Type = CmdPickMap
		}
		var err error
		_, s, err = Apply(s, cmd)
		if err != nil {
			t.Fatalf("phase %d: %v", i+1, err)
		}
	}
}

func TestFullSession_ExampleFromStatement(t *testing.T) {
	s := rolledState(t, TeamA)

	steps := []struct {
		cmd  CommandType
		team Team
		id   string
	}{
		{CmdBanMap, TeamA, "map01"},
		{CmdBanMap, TeamB, "map02"},
		{CmdPickMap, TeamA, "map03"},
		{CmdPickMap, TeamB, "map04"},
		{CmdBanMap, TeamB, "map05"},
		{CmdBanMap, TeamA, "map06"},
	}

	var events []Event
	for _, st := range steps {
		var err error
		events, s, err = Apply(s, Command{Type: st.cmd, Team: st.team, MapID: st.id})
		if err != nil {
			t.Fatalf("%s %s by %s: %v", st.cmd, st.id, st.team, err)
		}
	}

	if !s.Finished || s.Status() != StatusFinished {
		t.Fatalf("session not finished after phase 6")
	}
	if !ContainsEvent(events, EvtDeciderResolved) || !ContainsEvent(events, EvtFinished) {
		t.Fatalf("missing terminal events: %+v", events)
	}

	var banned, picked, decider int
	for _, m := range s.Maps {
		switch m.Status {
		case MapBanned:
			banned++
		case MapPicked:
			picked++
		case MapDecider:
			decider++
			if m.ID != "map07" {
				t.Fatalf("want decider map07, got %s", m.ID)
			}
			if m.ActedBy != TeamNone {
				t.Fatalf("decider must have no acting team, got %q", m.ActedBy)
			}
		}
	}
	if banned != 4 || picked != 2 || decider != 1 {
		t.Fatalf("want 4 banned / 2 picked / 1 decider, got %d/%d/%d", banned, picked, decider)
	}

	res := s.Result
	if res == nil || len(res.Entries) != 6 || res.DeciderID != "map07" {
		t.Fatalf("bad result: %+v", res)
	}
	for i, st := range steps {
		e := res.Entries[i]
		if e.Phase != i+1 || e.MapID != st.id || e.Team != st.team {
			t.Fatalf("result entry %d: got %+v, want %s by %s", i, e, st.id, st.team)
		}
	}
}

func TestTimeout_AutoSelectsAmongAvailable(t *testing.T) {
	s := rolledState(t, TeamA)
	stubRandIndex(t, 2)

	events, next, err := Apply(s, Command{Type: CmdTimeoutAdvance})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Cursor != s.Cursor+1 {
		t.Fatalf("timeout must advance exactly one phase, cursor %d -> %d", s.Cursor, next.Cursor)
	}
	if next.Maps[2].Status != MapBanned || next.Maps[2].ActedBy != TeamA || !next.Maps[2].Auto {
		t.Fatalf("want map03 auto-banned by A, got %+v", next.Maps[2])
	}
	for _, e := range events {
		if e.Type == EvtMapBanned && !e.Auto {
			t.Fatalf("auto-select event must be flagged auto")
		}
	}
}

func TestTimeout_BeforeRollRejected(t *testing.T) {
	_, _, err := Apply(NewState(DefaultPool()), Command{Type: CmdTimeoutAdvance})
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("want ErrInvalidPhase, got %v", err)
	}
}

func TestDuplicateAction_IsRecognizedNotRejected(t *testing.T) {
	s := rolledState(t, TeamA)
	_, s, err := Apply(s, Command{Type: CmdBanMap, Team: TeamA, MapID: "map01"})
	if err != nil {
		t.Fatalf("ban: %v", err)
	}

	// network retry of the same ban after the phase advanced
	events, after, err := Apply(s, Command{Type: CmdBanMap, Team: TeamA, MapID: "map01"})
	if err != nil {
		t.Fatalf("duplicate must not error, got %v", err)
	}
	if len(events) != 0 || after.Cursor != s.Cursor {
		t.Fatalf("duplicate must be a no-op, events=%v cursor %d -> %d", events, s.Cursor, after.Cursor)
	}
}

func TestDeciderInvariant_CorruptPoolIsFatal(t *testing.T) {
	s := rolledState(t, TeamA)
	s.Cursor = len(PhaseOrder) - 1
	// fake an extra acted map so two remain after the final ban
	s.Maps[0].Status = MapBanned
	s.Maps[1].Status = MapBanned
	s.Maps[2].Status = MapBanned
	s.Maps[3].Status = MapPicked

	_, _, err := Apply(s, Command{Type: CmdBanMap, Team: s.ActingTeam(), MapID: "map05"})
	if !errors.Is(err, ErrPoolCorrupt) {
		t.Fatalf("want ErrPoolCorrupt, got %v", err)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := rolledState(t, TeamA)
	_, _, err := Apply(s, Command{Type: CmdBanMap, Team: TeamA, MapID: "map01"})
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if s.Maps[0].Status != MapAvailable {
		t.Fatalf("Apply mutated its input state")
	}
}
