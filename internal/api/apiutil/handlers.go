package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be left out.
// An empty body leaves dst untouched.
func DecodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := DecodeJSON(r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteError renders err as a JSON error body. HandlerError and FieldError
// keep their status and message; anything else is logged and reported as an
// internal error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	status := http.StatusInternalServerError
	body := errorBody{Error: "Internal Server Error"}

	var fieldErr FieldError
	var handlerErr HandlerError
	switch {
	case errors.As(err, &fieldErr):
		status = http.StatusBadRequest
		body = errorBody{Error: fieldErr.Error(), Field: fieldErr.Field}
	case errors.As(err, &handlerErr):
		status = handlerErr.Status
		body.Error = handlerErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	if writeErr := WriteJSON(w, status, body); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}
