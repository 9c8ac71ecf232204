package resource

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/andyle182810/ussdadmin/apiclient"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TagServer marks a ValidationError that came back from the backend rather
// than from local validation.
const TagServer = "server"

var (
	ussdCodePattern = regexp.MustCompile(`^\*[0-9]+(\*[0-9]+)*#$`)
	dialCodePattern = regexp.MustCompile(`^\+[0-9]{1,4}$`)
)

type Validator struct {
	Validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, err := range v {
		msgs = append(msgs, err.Message)
	}

	return strings.Join(msgs, "; ")
}

// Fields groups the messages by field, the way the backend reports them.
func (v ValidationErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(v))
	for _, err := range v {
		out[err.Field] = append(out[err.Field], err.Message)
	}

	return out
}

// FromAPIError turns the per-field messages of a rejected write into
// ValidationErrors. It returns nil when the body carries none.
func FromAPIError(apiErr *apiclient.APIError) ValidationErrors {
	fields := apiErr.FieldErrors()
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	sort.Strings(names)

	out := make(ValidationErrors, 0, len(fields))

	for _, name := range names {
		for _, msg := range fields[name] {
			out = append(out, ValidationError{
				Field:   name,
				Tag:     TagServer,
				Value:   "",
				Message: msg,
			})
		}
	}

	return out
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		const maxSplits = 2
		name := strings.SplitN(fld.Tag.Get("json"), ",", maxSplits)[0]

		if name == "-" {
			return ""
		}

		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()

			return f
		}

		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("ussd_code", func(fl validator.FieldLevel) bool {
		return ussdCodePattern.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("dial_code", func(fl validator.FieldLevel) bool {
		return dialCodePattern.MatchString(fl.Field().String())
	})

	return &Validator{Validator: v}
}

func (v *Validator) Validate(i any) error {
	if err := v.Validator.Struct(i); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.formatValidationErrors(validationErrs)
		}

		return err
	}

	return nil
}

func (v *Validator) formatValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	validationErrs := make(ValidationErrors, 0, len(errs))

	for _, err := range errs {
		field := err.Field()
		if field == "" {
			field = err.StructField()
		}

		validationErrs = append(validationErrs, ValidationError{
			Field:   field,
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
			Message: v.generateErrorMessage(field, err),
		})
	}

	return validationErrs
}

func (v *Validator) generateErrorMessage(field string, err validator.FieldError) string {
	msg := v.getSimpleErrorMessage(field, err.Tag())
	if msg != "" {
		return msg
	}

	return v.getParameterizedErrorMessage(field, err)
}

func (v *Validator) getSimpleErrorMessage(field, tag string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "e164":
		return field + " must be an E.164 phone number"
	case "iso3166_1_alpha2":
		return field + " must be an ISO 3166 alpha-2 country code"
	case "iso4217":
		return field + " must be an ISO 4217 currency code"
	case "ussd_code":
		return field + " must be a USSD code such as *123#"
	case "dial_code":
		return field + " must be a dial code such as +233"
	case "alphanum":
		return field + " must contain only alphanumeric characters"
	default:
		return ""
	}
}

func (v *Validator) getParameterizedErrorMessage(field string, err validator.FieldError) string {
	param := err.Param()
	tag := err.Tag()

	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	default:
		return fmt.Sprintf("%s failed validation on '%s'", field, err.Tag())
	}
}
