package util

import "regexp"

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// IsValidUUID reports whether s is a lowercase UUID, the shape of every row
// id handed through path parameters.
func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

// IsValidEnum reports whether value is one of allowed. Empty values pass so
// optional request fields can fall back to their defaults; callers enforce
// required-ness separately.
func IsValidEnum(value string, allowed ...string) bool {
	if value == "" {
		return true
	}
	for _, v := range allowed {
		if value == v {
			return true
		}
	}
	return false
}
