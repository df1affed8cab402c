package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// MaxCoordinateLen matches the latitude/longitude column width.
const MaxCoordinateLen = 32

// Plain decimals only: no exponents, hex floats, NaN or Inf.
var decimalRegex = regexp.MustCompile(`^-?\d{1,3}(\.\d+)?$`)

// ValidateCoordinates checks an optional latitude/longitude pair. Both must be
// present or both absent, and each must be a decimal within range.
func ValidateCoordinates(lat, lng *string) error {
	if lat == nil && lng == nil {
		return nil
	}
	if lat == nil || lng == nil {
		return fmt.Errorf("latitude and longitude must be provided together")
	}
	if err := checkDecimal("latitude", *lat, 90); err != nil {
		return err
	}
	return checkDecimal("longitude", *lng, 180)
}

func checkDecimal(name, raw string, limit float64) error {
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxCoordinateLen {
		return fmt.Errorf("%s must not exceed %d characters", name, MaxCoordinateLen)
	}
	if !decimalRegex.MatchString(raw) {
		return fmt.Errorf("%s must be a decimal number", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s must be a decimal number", name)
	}
	if v < -limit || v > limit {
		return fmt.Errorf("%s must be between %g and %g", name, -limit, limit)
	}
	return nil
}

// ValidateLink requires an absolute http(s) URL.
func ValidateLink(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("link %q must be an absolute URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("link %q must use http or https", raw)
	}
	return nil
}

// NormalizeTags trims, lower-cases and de-duplicates tags, dropping empties.
// Order of first occurrence is kept.
func NormalizeTags(tags []string, maxLen int) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if len(tag) > maxLen {
			return nil, fmt.Errorf("tag %q exceeds %d characters", tag, maxLen)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}
