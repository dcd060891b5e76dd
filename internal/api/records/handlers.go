// internal/api/records/handlers.go
package records

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Footy/internal/api/apiutil"
	"github.com/codr1/Footy/internal/seasons"
)

var (
	engine     *seasons.Engine
	engineOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *seasons.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

// POST /api/v1/seasons/{year}/records
func HandleRecompute(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Season engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	year, err := yearFromPath(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	summary, err := engine.RecomputeYear(r.Context(), year)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, summary); err != nil {
		logger.Error().Err(err).Msg("Failed to write recompute response")
	}
}

// GET /api/v1/seasons/{year}/records?game_day={id}
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if engine == nil {
		logger.Error().Msg("Season engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	year, err := yearFromPath(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	gameDayID, err := apiutil.OptionalQueryInt64(r, "game_day")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	table, err := engine.Records(r.Context(), year, gameDayID)
	if err != nil {
		apiutil.WriteError(w, r, mapError(err))
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, table); err != nil {
		logger.Error().Err(err).Msg("Failed to write records response")
	}
}

// yearFromPath reads {year}. "all" and 0 both select the all-time table.
func yearFromPath(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("year"))
	if strings.EqualFold(raw, "all") {
		return seasons.AllTime, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		return 0, apiutil.FieldError{Field: "year", Reason: "must be a year or \"all\""}
	}
	return year, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, seasons.ErrInvalidYear):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, seasons.ErrNoRecords):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "No records for this season", Err: err}
	}
	return err
}
