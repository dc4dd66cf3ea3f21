package prediction

import "sort"

// Predictor returns the features likely needed after navigating to route.
// Unknown routes yield an empty list, never an error.
type Predictor interface {
	Predict(route string) []string
}

// Table is a read-only route prediction table.
type Table struct {
	routes map[string][]string
}

// NewTable copies m into a new Table. Duplicate names within a route keep
// their first position.
func NewTable(m map[string][]string) *Table {
	t := &Table{routes: make(map[string][]string, len(m))}
	for route, names := range m {
		seen := make(map[string]struct{}, len(names))
		list := make([]string, 0, len(names))
		for _, n := range names {
			if _, dup := seen[n]; dup || n == "" {
				continue
			}
			seen[n] = struct{}{}
			list = append(list, n)
		}
		t.routes[route] = list
	}
	return t
}

// Predict returns a copy of the route's predicted features.
func (t *Table) Predict(route string) []string {
	if t == nil {
		return nil
	}
	names := t.routes[route]
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Routes returns the configured routes, sorted.
func (t *Table) Routes() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.routes))
	for r := range t.routes {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Features returns every feature referenced by the table, sorted.
func (t *Table) Features() []string {
	if t == nil {
		return nil
	}
	set := map[string]struct{}{}
	for _, names := range t.routes {
		for _, n := range names {
			set[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Static is a Predictor backed by a plain map, handy in tests.
type Static map[string][]string

func (s Static) Predict(route string) []string {
	return append([]string(nil), s[route]...)
}
