package utils

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"famportal/apperr"
)

// Minimal internal validator. Supports:
// - required
// - staticid (in-game id: letters, digits and dashes, 1-32 chars)
// - nameok (letters, digits, space, dot, hyphen, apostrophe, underscore, 1-100 chars)
// - pwdmin (min length 6)
// - max=N (at most N characters)
// - eqfield=OtherField (field equals another field)

var (
	reStaticID = regexp.MustCompile(`^[0-9A-Za-z\-]{1,32}$`)
	reNameOK   = regexp.MustCompile(`^[\p{L}\p{N} .\-'_]{1,100}$`)
)

// ValidateStruct inspects struct tags `validate:"..."` and returns the
// first failure as a validation error.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return apperr.Validation("ValidateStruct expects a struct or pointer to struct")
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}
		name := jsonName(field)
		fv := v.Field(i)
		var sval string
		if fv.IsValid() && fv.Kind() == reflect.String {
			sval = fv.String()
		}
		for _, p := range strings.Split(tag, ",") {
			p = strings.TrimSpace(p)
			switch {
			case p == "required":
				if fv.IsZero() || (fv.Kind() == reflect.String && strings.TrimSpace(sval) == "") {
					return apperr.Validation(name + " is required")
				}
			case p == "staticid":
				if sval != "" && !reStaticID.MatchString(sval) {
					return apperr.Validation(name + " must contain only letters, digits and dashes")
				}
			case p == "nameok":
				if sval != "" && !reNameOK.MatchString(strings.TrimSpace(sval)) {
					return apperr.Validation(name + " contains invalid characters")
				}
			case p == "pwdmin":
				if len(sval) < 6 {
					return apperr.Validation(name + " must be at least 6 characters")
				}
			case strings.HasPrefix(p, "max="):
				limit, err := strconv.Atoi(strings.TrimPrefix(p, "max="))
				if err == nil && utf8.RuneCountInString(sval) > limit {
					return apperr.Validation(name + " is too long")
				}
			case strings.HasPrefix(p, "eqfield="):
				other := strings.TrimPrefix(p, "eqfield=")
				of := v.FieldByName(other)
				if of.IsValid() && of.Kind() == reflect.String && sval != of.String() {
					return apperr.Validation(name + " does not match")
				}
			}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
