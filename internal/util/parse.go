package util

import (
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

var unsupportedOps = []string{"neq.", "gt.", "gte.", "lt.", "lte.", "like.", "ilike.", "in.", "is."}

// ParseEqFilter splits a "eq.value" table filter. Bare values are accepted
// as equality too.
func ParseEqFilter(raw string) (string, bool) {
	if v, ok := strings.CutPrefix(raw, "eq."); ok {
		return v, true
	}
	for _, op := range unsupportedOps {
		if strings.HasPrefix(raw, op) {
			return "", false
		}
	}
	return raw, true
}

// ParseOrder reads "created_at.desc", "desc" or "asc". Newest first is the default.
func ParseOrder(raw string) (descending bool) {
	raw = strings.ToLower(raw)
	return !strings.HasSuffix(raw, "asc")
}
