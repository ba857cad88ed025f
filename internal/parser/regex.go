package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

var patternCache sync.Map // string -> *regexp.Regexp

// Pattern returns a cached compiled regex or compiles and caches a new one.
func Pattern(expr string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", expr, err)
	}

	actual, _ := patternCache.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp), nil
}

// MustPattern is Pattern for expressions known to be valid.
func MustPattern(expr string) *regexp.Regexp {
	re, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return re
}

// Submatch returns the first capture group of expr in s, or "" when it does not match.
func Submatch(expr, s string) string {
	m := MustPattern(expr).FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// SubmatchInt is Submatch converted to an int; ok is false when there is no
// match or the capture is not an integer.
func SubmatchInt(expr, s string) (int, bool) {
	v := Submatch(expr, s)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IntOrString converts s to an int when possible, returning the raw string otherwise.
func IntOrString(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
