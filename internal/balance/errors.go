package balance

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientPlayers is returned when the pool cannot form two teams.
	ErrInsufficientPlayers = errors.New("insufficient players")
	ErrInvalidOptions      = errors.New("invalid balance options")
)

type WarningKind string

const (
	// WarningIncompleteProfile marks a player without any rating. The player
	// is still placed but left out of the average gap.
	WarningIncompleteProfile WarningKind = "incomplete_profile"
	WarningUnknownAge        WarningKind = "unknown_age"
	WarningNoGoalie          WarningKind = "no_goalie"
	// WarningBudgetExhausted means the search was cut short by its time
	// budget or by cancellation and the best split found so far was kept.
	WarningBudgetExhausted WarningKind = "budget_exhausted"
)

// Warning is a problem worth showing to an operator that did not stop the
// run. PlayerID is zero for warnings about the whole pool.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	PlayerID int64       `json:"playerId,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	if w.PlayerID != 0 {
		return fmt.Sprintf("%s (player %d): %s", w.Kind, w.PlayerID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
