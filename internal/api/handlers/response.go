package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// decodeRequest binds the JSON body, fills `default` tags and validates.
// 빈 body는 빈 요청으로 취급 (필수 필드 검증에서 400)
func decodeRequest(r *http.Request, req interface{}) error {
	if err := bindBody(r, req); err != nil {
		return err
	}
	return finishRequest(r, req)
}

// bindBody only decodes the JSON body
func bindBody(r *http.Request, req interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return &requestError{message: "invalid request body"}
	}
	return nil
}

// finishRequest applies defaults and validation to an already bound request
func finishRequest(r *http.Request, req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return &requestError{message: err.Error()}
	}

	if err := validatorInstance().StructCtx(r.Context(), req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &requestError{message: fieldMessage(verrs[0])}
		}
		return &requestError{message: err.Error()}
	}
	return nil
}

// requestError is a 400 with a client-facing message
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Unwrap() error { return contracts.ErrMissingInput }

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " failed validation: " + fe.Tag()
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondErr maps the error taxonomy to a status code
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, contracts.StatusCode(err), err.Error())
}
