package ratelimit

import "strings"

// unlimited is returned for liveness checks.
var unlimited = &Group{Name: "liveness"}

// MatchGroup returns the group covering method and path, or nil when the
// route falls under the default budget. Exact routes win over prefixes.
func MatchGroup(method, path string, groups []Group) *Group {
	if method == "GET" && (path == "/health" || path == "/ping") {
		return unlimited
	}

	route := method + " " + path
	var prefix *Group
	for i := range groups {
		for _, r := range groups[i].Routes {
			if r == route {
				return &groups[i]
			}
			if prefix == nil && strings.HasSuffix(r, "/") && strings.HasPrefix(route, r) {
				prefix = &groups[i]
			}
		}
	}
	return prefix
}
