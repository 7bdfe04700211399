package utils

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ExtractIDFromParams returns the {id} path value, dropping a trailing ".json".
func ExtractIDFromParams(r *http.Request) string {
	return strings.TrimSuffix(r.PathValue("id"), ".json")
}

// ParseFloatParam reads an optional float query parameter. A missing key
// yields 0 and leaves fieldErrors untouched; a malformed value is recorded
// under key.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return 0, fieldErrors
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, addFieldError(fieldErrors, key, "Invalid field value for field \""+key+"\".")
	}
	return val, fieldErrors
}

// ParseIntParam is ParseFloatParam for integers.
func ParseIntParam(params url.Values, key string, fieldErrors map[string][]string) (int, map[string][]string) {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return 0, fieldErrors
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, addFieldError(fieldErrors, key, "Invalid field value for field \""+key+"\".")
	}
	return val, fieldErrors
}

func addFieldError(fieldErrors map[string][]string, key, msg string) map[string][]string {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	fieldErrors[key] = append(fieldErrors[key], msg)
	return fieldErrors
}
