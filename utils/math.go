package utils

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"famportal/apperr"
)

// RoundFloat rounds a float64 to the specified number of decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// ParseAmount reads a money value sent either as a JSON number or as a
// numeric string. Empty, non-numeric and non-finite values are rejected.
func ParseAmount(raw json.RawMessage, field string) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, apperr.Validation(field + " is required")
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, apperr.Validation(field + " must be a number")
		}
		text = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Validation(field + " must be a number")
	}
	return v, nil
}
