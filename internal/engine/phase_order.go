package engine

type Role int

const (
	RoleRollWinner Role = iota
	RoleRollLoser
)

type PhaseStep struct {
	Action Action
	Role   Role
}

// PhaseOrder is the fixed six-action template; the seventh phase (decider)
// is auto-resolved and has no acting team. The Role column binds to the roll
// winner once per session.
var PhaseOrder = []PhaseStep{
	{Action: ActionBan, Role: RoleRollWinner},
	{Action: ActionBan, Role: RoleRollLoser},
	{Action: ActionPick, Role: RoleRollWinner},
	{Action: ActionPick, Role: RoleRollLoser},
	{Action: ActionBan, Role: RoleRollLoser},
	{Action: ActionBan, Role: RoleRollWinner},
}
