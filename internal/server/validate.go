package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
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
	return v
}

var messages = map[string]string{
	"required": "The field '%s' is required.",
	"min":      "The field '%s' must be at least %s characters long.",
	"max":      "The field '%s' must be no longer than %s characters.",
}

func fieldMessage(e validator.FieldError) string {
	if msg, ok := messages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, e.Field(), e.Param())
		}
		return fmt.Sprintf(msg, e.Field())
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", e.Field(), e.Tag())
}

// validationErrors maps JSON field names to messages. It is empty when v is valid.
func validationErrors(v any) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if err := validate.Struct(v); errors.As(err, &verrs) {
		for _, e := range verrs {
			out[e.Field()] = fieldMessage(e)
		}
	}
	return out
}

// decode reads a JSON body into dst and validates it. On failure it writes a
// 400 (malformed JSON) or 422 (validation) response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if errs := validationErrors(dst); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": "validation failed",
			"errors": errs,
		})
		return false
	}
	return true
}
