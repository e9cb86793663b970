package schema

import (
	"github.com/go-playground/validator/v10"
)

// formatTags maps OpenAPI string formats onto validator tags. binary,
// password and unknown formats are not checked.
var formatTags = map[string]string{
	"date":      "datetime=2006-01-02",
	"date-time": "datetime=2006-01-02T15:04:05Z07:00",
	"email":     "email",
	"hostname":  "hostname_rfc1123",
	"ipv4":      "ipv4",
	"ipv6":      "ipv6",
	"uri":       "uri",
	"uuid":      "uuid",
	"byte":      "base64",
}

type formatChecker struct {
	validate *validator.Validate
}

func newFormatChecker() *formatChecker {
	return &formatChecker{validate: validator.New()}
}

func (f *formatChecker) check(format, value string) (ok bool, known bool) {
	tag, known := formatTags[format]
	if !known {
		return true, false
	}
	return f.validate.Var(value, tag) == nil, true
}

// KnownFormat reports whether format is checked by the validator
func KnownFormat(format string) bool {
	_, ok := formatTags[format]
	return ok
}
