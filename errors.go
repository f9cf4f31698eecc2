package shcoll

import "errors"

// Sentinel errors for the argument/precondition error taxonomy. These are
// returned to the caller; they never perturb global state and never
// trigger GlobalExit.
var (
	ErrInvalidArgument    = errors.New("shcoll: invalid argument")
	ErrInvalidTeam        = errors.New("shcoll: invalid team")
	ErrPreconditionFailed = errors.New("shcoll: precondition failed")
)
