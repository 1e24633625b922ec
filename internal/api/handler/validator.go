package handler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/security"
)

// securityTags are the validation tags whose failure marks a request as an
// attack rather than a typo.
var securityTags = map[string]bool{
	"nosqli":       true,
	"noxss":        true,
	"secureinput":  true,
	"securetenant": true,
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to
// echo.Echo.Validator, with the security predicates registered as tags.
func NewValidator() *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return security.IsStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("nosqli", func(fl validator.FieldLevel) bool {
		return !security.ContainsSQLInjection(fl.Field().String())
	})
	_ = v.RegisterValidation("noxss", func(fl validator.FieldLevel) bool {
		return !security.ContainsXSS(fl.Field().String())
	})
	_ = v.RegisterValidation("secureinput", func(fl validator.FieldLevel) bool {
		return security.IsSecureInput(fl.Field().String())
	})
	_ = v.RegisterValidation("securetenant", func(fl validator.FieldLevel) bool {
		return security.IsSecureTenantID(fl.Field().String())
	})
	_ = v.RegisterValidation("subdomain", func(fl validator.FieldLevel) bool {
		return subdomainPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Field failures come back
// as a *domain.ValidationError.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := &domain.ValidationError{Fields: make([]string, 0, len(ve))}
			for _, fe := range ve {
				out.Fields = append(out.Fields, fieldError(fe))
				if securityTags[fe.Tag()] {
					out.Security = true
				}
			}
			return out
		}
		return err
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "strongpassword":
		return field + " must be at least 8 characters long and contain uppercase, lowercase, number and special character"
	case "nosqli":
		return field + " contains potentially dangerous SQL patterns"
	case "noxss":
		return field + " contains potentially dangerous XSS patterns"
	case "secureinput":
		return field + " contains potentially dangerous content"
	case "securetenant":
		return field + " must be a valid tenant ID"
	case "subdomain":
		return field + " must contain only lowercase letters, digits and hyphens"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
