// internal/api/picker/handlers.go
package picker

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Footy/internal/api/apiutil"
	"github.com/codr1/Footy/internal/balance"
	teampicker "github.com/codr1/Footy/internal/picker"
)

var (
	engine     *teampicker.Engine
	engineOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *teampicker.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

type balanceRequest struct {
	Seed       *uint64 `json:"seed"`
	Restarts   *int    `json:"restarts"`
	Iterations *int    `json:"iterations"`
}

type balanceResponse struct {
	GameDayID int64 `json:"gameDayId"`
	balance.Result
}

// POST /api/v1/gamedays/{id}/picker
func HandleBalance(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Picker engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameDayID, err := apiutil.PathInt64(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req balanceRequest
	if err := apiutil.DecodeOptionalJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err})
		return
	}

	opts := engine.Options()
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if req.Restarts != nil {
		opts.Restarts = *req.Restarts
	}
	if req.Iterations != nil {
		opts.Iterations = *req.Iterations
	}

	result, err := engine.BalanceGameDay(r.Context(), gameDayID, opts)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, balanceResponse{GameDayID: gameDayID, Result: result}); err != nil {
		logger.Error().Err(err).Msg("Failed to write balance response")
	}
}

// GET /api/v1/gamedays/{id}/picker
func HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Picker engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameDayID, err := apiutil.PathInt64(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	snap, err := engine.Snapshot(r.Context(), gameDayID)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, snap); err != nil {
		logger.Error().Err(err).Msg("Failed to write snapshot response")
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, balance.ErrInsufficientPlayers):
		return apiutil.HandlerError{Status: http.StatusUnprocessableEntity, Message: "Not enough players to pick two teams", Err: err}
	case errors.Is(err, teampicker.ErrConcurrentRun):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Teams are already being picked for this game day", Err: err}
	case errors.Is(err, balance.ErrInvalidOptions), errors.Is(err, teampicker.ErrInvalidGameDayID):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, teampicker.ErrGameDayNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Game day not found", Err: err}
	case errors.Is(err, teampicker.ErrNoSnapshot):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Game day has not been balanced", Err: err}
	}
	return err
}
