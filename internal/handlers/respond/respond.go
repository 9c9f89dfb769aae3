// Package respond writes JSON responses and decodes validated request bodies.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1_048_576

var (
	ErrMultipleJSON = errors.New("request body must only contain a single JSON object")
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Validator validates request DTOs and reports fields by their JSON names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

// Decode reads a single JSON object into dst and validates it. It writes the
// 400 response itself and returns false on failure.
func (v *Validator) Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		Error(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		Error(w, ErrMultipleJSON.Error(), http.StatusBadRequest, nil)
		return false
	}
	if err := v.Struct(dst); err != nil {
		Error(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Error sends a JSON error response. Validation errors are expanded into
// per-field details.
func Error(w http.ResponseWriter, message string, status int, validationErr error) {
	resp := ErrorResponse{Error: message}

	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		resp.Details = make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			resp.Details[fe.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", fe.Tag())
		}
	}

	JSON(w, status, resp)
}

// ErrorCode sends an error with a stable machine-readable code.
func ErrorCode(w http.ResponseWriter, message, code string, status int) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}
