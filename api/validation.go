package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rpupo63/foodgram-backend/errs"
)

const maxBodyBytes = 10 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

// getValidator returns the shared validator. Field names in errors are the
// JSON names.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return usernamePattern.MatchString(value) && !strings.EqualFold(value, "me")
		})
	})
	return validate
}

var validationMessages = map[string]string{
	"required": "this field is required",
	"email":    "enter a valid email address",
	"username": "letters, digits and @/./+/-/_ only; \"me\" is reserved",
	"hexcolor": "enter a color like #49B64E",
}

var validationMessagesWithParam = map[string]string{
	"min": "ensure this field has at least %s characters",
	"max": "ensure this field has no more than %s characters",
	"gte": "ensure this value is greater than or equal to %s",
	"lte": "ensure this value is less than or equal to %s",
}

// validateStruct runs the validator and converts its result into field errors.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewBadRequestError(err.Error())
	}

	verr := errs.NewValidationErrors()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), translateFieldError(fe))
	}
	return verr
}

func translateFieldError(fe validator.FieldError) string {
	if msg, ok := validationMessages[fe.Tag()]; ok {
		return msg
	}
	if tmpl, ok := validationMessagesWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Param())
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewMaxBodySizeExceededError(maxErr.Limit)
		}
		return errs.NewBadRequestError("failed to read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errs.NewBadRequestError("request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errs.NewInvalidJSONError(err)
	}
	return validateStruct(dst)
}

// collectFieldErrors merges err into verr when err carries field errors.
func collectFieldErrors(verr *errs.ValidationErrors, err error) {
	var fieldErrs *errs.ValidationErrors
	if errors.As(err, &fieldErrs) {
		verr.Merge(fieldErrs)
	}
}
