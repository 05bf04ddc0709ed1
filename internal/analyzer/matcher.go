package analyzer

import "strings"

// template is one compiled endpoint path, ready for segment matching.
type template struct {
	endpoint      Endpoint
	segments      []string
	paramCount    int
	literalPrefix int // leading literal segments before the first parameter
	order         int // declaration order in the source spec
}

// Matcher decides which declared endpoint template, if any, a concrete
// request path instantiates. Templates are compiled once and the matcher is
// read-only afterwards, so a single instance may serve many lookups.
//
// When several templates of the same method match one path (overlapping
// templating such as /users/{id} vs /users/active), the winner is chosen
// deterministically: fewest parameter segments first, then the longest run
// of leading literal segments, then declaration order.
type Matcher struct {
	byMethod map[string][]template
}

// NewMatcher compiles the endpoint set. Methods are normalized to upper
// case; empty path segments from leading, trailing or doubled slashes are
// dropped during compilation.
func NewMatcher(endpoints []Endpoint) *Matcher {
	m := &Matcher{byMethod: make(map[string][]template)}
	for i, ep := range endpoints {
		method := strings.ToUpper(ep.Method)
		segs := splitPath(ep.Path)
		t := template{
			endpoint:      Endpoint{Method: method, Path: ep.Path},
			segments:      segs,
			literalPrefix: len(segs),
			order:         i,
		}
		for j, s := range segs {
			if isParam(s) {
				t.paramCount++
				if j < t.literalPrefix {
					t.literalPrefix = j
				}
			}
		}
		m.byMethod[method] = append(m.byMethod[method], t)
	}
	return m
}

// Match returns the best-matching endpoint for the given concrete request,
// along with the total number of templates that matched. Zero means no
// match; anything above one signals ambiguous templating in the spec and is
// surfaced through Diagnostics by the aggregation pass.
func (m *Matcher) Match(method, path string) (Endpoint, int) {
	segs := splitPath(path)
	var best *template
	matches := 0

	candidates := m.byMethod[strings.ToUpper(method)]
	for i := range candidates {
		t := &candidates[i]
		if !t.matches(segs) {
			continue
		}
		matches++
		if best == nil || t.moreSpecificThan(best) {
			best = t
		}
	}
	if best == nil {
		return Endpoint{}, 0
	}
	return best.endpoint, matches
}

func (t *template) matches(segs []string) bool {
	if len(segs) != len(t.segments) {
		return false
	}
	for i, ts := range t.segments {
		if isParam(ts) {
			continue
		}
		if ts != segs[i] {
			return false
		}
	}
	return true
}

// moreSpecificThan orders overlapping templates: more literal wins.
func (t *template) moreSpecificThan(other *template) bool {
	if t.paramCount != other.paramCount {
		return t.paramCount < other.paramCount
	}
	if t.literalPrefix != other.literalPrefix {
		return t.literalPrefix > other.literalPrefix
	}
	return t.order < other.order
}

// splitPath splits on "/" discarding empty segments, so /users/, users and
// //users all compare equal.
func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// isParam reports whether a template segment is a named parameter ({id}).
func isParam(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
