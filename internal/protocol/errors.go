package protocol

const (
	// Request validation.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidRoster = "E_INVALID_ROSTER"

	// Simulation routing/state.
	ErrSimNotFound        = "E_SIM_NOT_FOUND"
	ErrInvalidMode        = "E_INVALID_MODE"
	ErrInvalidControl     = "E_INVALID_CONTROL"
	ErrCheckpointNotFound = "E_CHECKPOINT_NOT_FOUND"
	ErrTickLimit          = "E_TICK_LIMIT"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:         {},
	ErrInvalidRoster:      {},
	ErrSimNotFound:        {},
	ErrInvalidMode:        {},
	ErrInvalidControl:     {},
	ErrCheckpointNotFound: {},
	ErrTickLimit:          {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
