package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ParseFloatParam retrieves a float64 value from URL query parameters.
// A missing key returns 0 with no error recorded; an unparsable value adds
// an entry to fieldErrors.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return 0, fieldErrors
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
	}
	return f, fieldErrors
}

// ParseIntParam retrieves an int value from URL query parameters, with the
// same conventions as ParseFloatParam.
func ParseIntParam(params url.Values, key string, fieldErrors map[string][]string) (int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return 0, fieldErrors
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
	}
	return n, fieldErrors
}

// ParseTimeParam parses a departure time parameter: epoch seconds, epoch
// milliseconds, or RFC3339. Empty means "now".
func ParseTimeParam(params url.Values, key string, fieldErrors map[string][]string) (time.Time, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := params.Get(key)
	if val == "" {
		return time.Now(), fieldErrors
	}

	if epoch, err := strconv.ParseInt(val, 10, 64); err == nil {
		// Millisecond timestamps are 13 digits; second timestamps 10.
		if epoch > 1e12 {
			return time.UnixMilli(epoch), fieldErrors
		}
		return time.Unix(epoch, 0), fieldErrors
	}

	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, fieldErrors
	}

	fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
	return time.Time{}, fieldErrors
}

// ValidateLatLon checks coordinate ranges, appending to fieldErrors.
func ValidateLatLon(lat, lon float64, latKey, lonKey string, fieldErrors map[string][]string) map[string][]string {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	if lat < -90 || lat > 90 {
		fieldErrors[latKey] = append(fieldErrors[latKey], "latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		fieldErrors[lonKey] = append(fieldErrors[lonKey], "longitude must be between -180 and 180")
	}
	return fieldErrors
}
