// Package emit assembles metric names and flushes request-scoped
// measurements through an emitter. It is shared by the HTTP middleware and
// the task reporter so both produce the same metric shapes.
package emit

import "strings"

// Join assembles a dotted metric name, skipping empty segments.
func Join(parts ...string) string {
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			joined = append(joined, p)
		}
	}
	return strings.Join(joined, ".")
}

// ViewName derives the metric segment identifying a matched route:
// the lowercased method joined with the normalized route pattern, so
// "GET /api/users/:id" becomes "get.api.users.id". An empty or root route
// yields the "root" segment.
func ViewName(method, route string) string {
	segments := make([]string, 0, 8)
	for _, segment := range strings.Split(route, "/") {
		segment = strings.TrimPrefix(segment, ":")
		segment = strings.TrimPrefix(segment, "*")
		segment = sanitizeSegment(segment)
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 {
		segments = append(segments, "root")
	}
	return Join(strings.ToLower(method), strings.Join(segments, "."))
}

// sanitizeSegment lowercases a path segment and maps runs of characters
// outside [a-z0-9_-] to a single dash. Segments reduced to nothing are
// dropped by the caller.
func sanitizeSegment(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))

	lastDash := false
	for _, r := range strings.ToLower(segment) {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		switch {
		case valid:
			b.WriteRune(r)
			lastDash = r == '-'
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}

	return strings.Trim(b.String(), "-")
}
