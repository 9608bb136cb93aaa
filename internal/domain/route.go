package domain

// Params carries the sanitized structured-query parameters for one route.
// The classifier extracts these from hints or query text; free text never
// reaches the structured store.
type Params struct {
	Codes   []string // billing codes (HCPCS/CPT)
	Drug    string   // drug identifier for formulary lookups
	Device  string   // device category for DME lookups
	Service string   // service keywords for benefit lookups
}

// IsZero reports whether no parameter is populated.
func (p Params) IsZero() bool {
	return len(p.Codes) == 0 && p.Drug == "" && p.Device == "" && p.Service == ""
}

// Route is one classified destination for a query: a domain category plus
// the parameters each retrieval path needs.
type Route struct {
	category Category
	params   Params
	text     string // full-text query for the semantic path
	score    float64
	reason   string
}

// NewRoute creates a route for a category.
func NewRoute(category Category, params Params, text string, score float64, reason string) Route {
	return Route{category: category, params: params, text: text, score: score, reason: reason}
}

// Category returns the domain category this route targets.
func (r *Route) Category() Category { return r.category }

// Params returns the sanitized structured-query parameters.
func (r *Route) Params() Params { return r.params }

// Text returns the full-text query for the semantic path.
func (r *Route) Text() string { return r.text }

// Score returns the classifier's score for this route.
func (r *Route) Score() float64 { return r.score }

// Reason returns a short explanation of why this route was chosen.
func (r *Route) Reason() string { return r.reason }
