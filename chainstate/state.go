// Package chainstate tracks the last signing position of the validator key
// and synchronizes it between the enclave and the host.
//
// The enclave never touches a filesystem. On session start it connects to
// the host state port and receives the last persisted state as the first
// frame; from then on it pushes every advance before the corresponding
// signature is released. The host side persists each update atomically to a
// JSON file, so a crashed and restarted signer resumes behind its last
// signature, never ahead of it.
package chainstate

// Consensus phases in signing order. A signature at a given (height, round)
// may only move forward through these.
const (
	StepPropose   int8 = 1
	StepPrevote   int8 = 2
	StepPrecommit int8 = 3
)

// State is the last known safe signing position, the bookkeeping that
// prevents double-signing across reconnects and restarts.
type State struct {
	Height  int64  `json:"height"`
	Round   int64  `json:"round"`
	Step    int8   `json:"step"`
	BlockID string `json:"block_id,omitempty"`
}

// CompareHRS orders s against other by height, then round, then step.
// It returns -1 if s is behind other, 0 for the same position, +1 if ahead.
func (s State) CompareHRS(other State) int {
	switch {
	case s.Height != other.Height:
		return compareInt64(s.Height, other.Height)
	case s.Round != other.Round:
		return compareInt64(s.Round, other.Round)
	default:
		return compareInt64(int64(s.Step), int64(other.Step))
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
