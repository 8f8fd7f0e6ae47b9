package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/erazemk/sinalizacao/internal/engine"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// setDisposition sets Content-Disposition with filename quoted or encoded
// as needed.
func setDisposition(w http.ResponseWriter, kind, filename string) {
	v := mime.FormatMediaType(kind, map[string]string{"filename": filename})
	if v == "" {
		v = kind
	}
	w.Header().Set("Content-Disposition", v)
}

// engineError maps the engine error taxonomy to HTTP statuses.
func engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrPermissionDenied):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrInvalidOperation):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrAuth):
		jsonError(w, http.StatusUnauthorized, engine.ErrAuth.Error())
	default:
		slog.Error("internal error", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeValid decodes and validates a request body, writing a 400 and
// returning false on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		jsonError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "notblank":
			msgs = append(msgs, fe.Field()+" is required")
		case "eqfield":
			msgs = append(msgs, fe.Field()+" does not match")
		case "min":
			msgs = append(msgs, fe.Field()+" must have at least "+fe.Param()+" characters")
		case "max":
			msgs = append(msgs, fe.Field()+" must have at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
