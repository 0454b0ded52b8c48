package ratelimit

import "strings"

// healthPath is never rate limited
const healthPath = "/health"

// MatchEndpoint returns the configuration whose Path pattern and Method match
// the request, or nil. A pattern segment written as {name} matches any single
// path segment; a pattern ending in "/" matches any path below it. Exact
// patterns win over prefix patterns.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == healthPath && method == "GET" {
		return &EndpointConfig{Path: healthPath, Method: method}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && !strings.HasSuffix(c.Path, "/") && matchSegments(c.Path, path, false) {
			return c
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && matchSegments(c.Path, path, true) {
			return c
		}
	}
	return nil
}

func matchSegments(pattern, path string, prefix bool) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if prefix {
		if len(xs) <= len(ps) {
			return false
		}
		xs = xs[:len(ps)]
	} else if len(ps) != len(xs) {
		return false
	}
	for i, p := range ps {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if p != xs[i] {
			return false
		}
	}
	return true
}
