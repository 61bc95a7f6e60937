package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kokistudios/cardbox/internal/deck"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.logger.Debug("Sending error response", "status", status, "message", msg, "path", r.URL.Path)
	s.respondJSON(w, status, errorResponse{Error: msg})
}

// respondErr maps deck errors to status codes.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, deck.ErrCardNotFound):
		status = http.StatusNotFound
	case errors.Is(err, deck.ErrUnknownCategory):
		status = http.StatusBadRequest
	case errors.Is(err, deck.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, deck.ErrUndoExpired):
		status = http.StatusGone
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
	}
	s.respondError(w, r, status, err.Error())
}

// decode reads a JSON body into v and validates it. An empty body is
// accepted and leaves v at its zero value.
func (s *Server) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := s.validate.Struct(v); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not one of %s", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "required":
			msgs = append(msgs, field+": missing")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: longer than %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
