package monitor

import (
	"strings"

	"github.com/google/uuid"
)

// PathCache memoizes NormalizePath results.
type PathCache interface {
	Get(rawPath string) (string, bool)
	Set(rawPath, normalized string)
}

// NormalizePath maps a concrete request path onto a stable endpoint key:
// the query string is dropped, numeric and UUID segments become ":id",
// version segments such as "v2" become "v*", and a trailing slash is
// removed except for the root.
func NormalizePath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" || raw == "/" {
		return "/"
	}

	segments := strings.Split(raw, "/")
	for i, seg := range segments {
		switch {
		case seg == "":
		case isDigits(seg):
			segments[i] = ":id"
		case isVersion(seg):
			segments[i] = "v*"
		case isUUID(seg):
			segments[i] = ":id"
		}
	}

	out := strings.Join(segments, "/")
	if len(out) > 1 {
		out = strings.TrimRight(out, "/")
	}
	if out == "" {
		return "/"
	}
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isVersion(s string) bool {
	return len(s) > 1 && (s[0] == 'v' || s[0] == 'V') && isDigits(s[1:])
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func normalizeCached(c PathCache, raw string) string {
	if c == nil {
		return NormalizePath(raw)
	}
	if v, ok := c.Get(raw); ok {
		return v
	}
	v := NormalizePath(raw)
	c.Set(raw, v)
	return v
}
