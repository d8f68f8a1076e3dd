package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	dateLayout = "2006-01-02"

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("minuteofday", func(fl validator.FieldLevel) bool {
		return ValidateMinuteOfDay(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return ValidateDate(fl.Field().String())
	})
	return v
}

// Struct runs tag validation on a request body and flattens the first
// failure into a readable message.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "min", "max", "gte", "lte":
			return fmt.Errorf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
		default:
			return fmt.Errorf("%s is invalid", field)
		}
	}
	return err
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

// EmailDomain returns the part after '@', lowercased.
func EmailDomain(email string) string {
	i := strings.LastIndexByte(email, '@')
	if i < 0 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}

// IsEduDomain reports whether domain is a .edu domain.
func IsEduDomain(domain string) bool {
	return strings.HasSuffix(domain, ".edu") && len(domain) > len(".edu")
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 1 && len(name) <= 100
}

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 100
}

func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidateMinuteOfDay reports whether m is a minute within a day.
func ValidateMinuteOfDay(m int) bool {
	return m >= 0 && m <= 1439
}

// ValidateTimeWindow checks both bounds and their order.
func ValidateTimeWindow(earliest, latest int) bool {
	return ValidateMinuteOfDay(earliest) && ValidateMinuteOfDay(latest) && earliest <= latest
}

// ValidateDate accepts YYYY-MM-DD.
func ValidateDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
