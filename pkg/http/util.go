package http

import "strconv"

// ParseIntDefault parses a query parameter, falling back to def when empty
// or malformed.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
