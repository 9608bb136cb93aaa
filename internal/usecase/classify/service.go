// Package classify routes a query to one or more domain categories and
// extracts the sanitized parameters each retrieval path needs.
package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/benefitlens/coverquery/internal/domain"
)

// Scoring defaults.
const (
	// DefaultMargin is how close a category score must be to the best one
	// to be routed alongside it (the query spans domains).
	DefaultMargin = 1.0
	// DefaultMinScore is the minimum best score required to route at all;
	// below it the query is unclassified and triggers clarification.
	DefaultMinScore = 1.0

	codeWeight    = 3.0
	keywordWeight = 1.0
)

// Billing code shapes: HCPCS level II (letter + 4 digits) and CPT (5 digits).
// CPT candidates go through looksLikeAmount before they count as codes.
var (
	hcpcsPattern = regexp.MustCompile(`\b[A-Va-v]\d{4}\b`)
	cptPattern   = regexp.MustCompile(`\b\d{5}\b`)
)

// categoryKeywords are the weighted pattern tables per category. Multi-word
// entries match as substrings of the lowercased query.
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryBilling: {
		"fee", "fees", "billing", "bill", "charge", "charges", "reimbursement",
		"cpt", "hcpcs", "code", "codes", "rate", "allowed amount",
	},
	domain.CategoryBenefit: {
		"covered", "coverage", "cover", "benefit", "benefits", "eligible",
		"eligibility", "copay", "coinsurance", "deductible", "visit", "visits",
		"out-of-pocket", "in-network", "out-of-network",
	},
	domain.CategoryFormulary: {
		"drug", "drugs", "medication", "medications", "formulary", "tier",
		"prescription", "generic", "brand", "pharmacy", "refill",
	},
	domain.CategoryDevice: {
		"device", "equipment", "dme", "wheelchair", "walker", "cpap",
		"prosthetic", "prosthesis", "orthotic", "oxygen", "glucose monitor",
	},
}

// stopwords are dropped when deriving a sanitized lookup subject from text.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "be": {},
	"do": {}, "does": {}, "did": {}, "what": {}, "whats": {}, "which": {},
	"how": {}, "much": {}, "many": {}, "my": {}, "me": {}, "i": {}, "it": {},
	"for": {}, "of": {}, "to": {}, "in": {}, "on": {}, "by": {}, "with": {},
	"and": {}, "or": {}, "if": {}, "can": {}, "will": {}, "would": {},
	"need": {}, "under": {}, "plan": {}, "this": {}, "that": {},
}

// Classifier maps queries to routes. Pure: no I/O, no state beyond tuning.
type Classifier struct {
	margin   float64
	minScore float64
}

// New creates a classifier with the given margin and minimum score.
// Non-positive values fall back to the defaults.
func New(margin, minScore float64) *Classifier {
	if margin <= 0 {
		margin = DefaultMargin
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Classifier{margin: margin, minScore: minScore}
}

// Routes classifies a query into one or more routes. Hints take precedence
// over text scoring. Never returns zero routes: when nothing scores above
// the minimum, the single unclassified route is returned so the caller asks
// for clarification instead of guessing.
func (c *Classifier) Routes(q domain.Query) []domain.Route {
	if routes := routesFromHints(q); len(routes) > 0 {
		return routes
	}
	return c.routesFromText(q)
}

// routesFromHints builds routes directly when a hint unambiguously names a
// category. Several hint kinds may be present at once; each yields a route.
func routesFromHints(q domain.Query) []domain.Route {
	h := q.Hints()
	var routes []domain.Route

	if len(h.Codes) == 0 {
		// The extractor may have missed inline codes; they are still an
		// unambiguous billing signal.
		h.Codes = extractCodes(q.Text())
	}
	if len(h.Codes) > 0 {
		routes = append(routes, domain.NewRoute(
			domain.CategoryBilling,
			domain.Params{Codes: h.Codes},
			q.Text(), codeWeight*float64(len(h.Codes)), "billing codes present",
		))
	}
	if h.Drug != "" {
		routes = append(routes, domain.NewRoute(
			domain.CategoryFormulary,
			domain.Params{Drug: h.Drug},
			q.Text(), codeWeight, "drug hint present",
		))
	}
	if h.Device != "" {
		routes = append(routes, domain.NewRoute(
			domain.CategoryDevice,
			domain.Params{Device: h.Device},
			q.Text(), codeWeight, "device hint present",
		))
	}
	if h.Service != "" {
		routes = append(routes, domain.NewRoute(
			domain.CategoryBenefit,
			domain.Params{Service: h.Service},
			q.Text(), codeWeight, "service hint present",
		))
	}
	return routes
}

// routesFromText scores each category by weighted keyword matches and keeps
// every category within margin of the best score.
func (c *Classifier) routesFromText(q domain.Query) []domain.Route {
	text := strings.ToLower(q.Text())
	tokens := tokenize(text)
	codes := extractCodes(q.Text())

	scores := make(map[domain.Category]float64, len(categoryKeywords))
	for cat, keywords := range categoryKeywords {
		scores[cat] = keywordScore(text, tokens, keywords)
	}
	scores[domain.CategoryBilling] += codeWeight * float64(len(codes))

	best := 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	if best < c.minScore {
		return []domain.Route{domain.NewRoute(
			domain.CategoryUnclassified, domain.Params{}, q.Text(), best,
			"no category scored above the minimum",
		)}
	}

	subject := subjectOf(tokens)
	var routes []domain.Route
	for _, cat := range domain.Categories() {
		s := scores[cat]
		if s <= 0 || best-s > c.margin {
			continue
		}
		routes = append(routes, domain.NewRoute(cat, paramsFor(cat, codes, subject), q.Text(), s, "keyword match"))
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Score() > routes[j].Score()
	})
	return routes
}

// paramsFor builds the sanitized structured parameters for a category.
// Free text never reaches the structured store: billing gets extracted
// codes, other categories get the derived subject keywords.
func paramsFor(cat domain.Category, codes []string, subject string) domain.Params {
	switch cat {
	case domain.CategoryBilling:
		return domain.Params{Codes: codes}
	case domain.CategoryFormulary:
		return domain.Params{Drug: subject}
	case domain.CategoryDevice:
		return domain.Params{Device: subject}
	case domain.CategoryBenefit:
		return domain.Params{Service: subject}
	default:
		return domain.Params{}
	}
}

// extractCodes pulls billing code tokens out of free text, HCPCS first,
// normalized to upper case, deduplicated in order of appearance.
func extractCodes(text string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, m := range hcpcsPattern.FindAllString(text, -1) {
		code := strings.ToUpper(m)
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	for _, loc := range cptPattern.FindAllStringIndex(text, -1) {
		if looksLikeAmount(text, loc[0], loc[1]) {
			continue
		}
		m := text[loc[0]:loc[1]]
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			codes = append(codes, m)
		}
	}
	return codes
}

// looksLikeAmount reports whether a 5-digit candidate at [start,end) is
// part of a dollar amount rather than a CPT code: preceded by "$" or a
// digit-comma/digit-dot group, or continuing into a decimal or thousands
// tail ("$10000", "1,00000", "10000.50").
func looksLikeAmount(text string, start, end int) bool {
	if start > 0 {
		switch prev := text[start-1]; prev {
		case '$':
			return true
		case ',', '.':
			if start > 1 && isDigit(text[start-2]) {
				return true
			}
		}
	}
	if end < len(text)-1 {
		switch next := text[end]; next {
		case ',', '.':
			if isDigit(text[end+1]) {
				return true
			}
		}
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func keywordScore(text string, tokens []string, keywords []string) float64 {
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	var score float64
	for _, kw := range keywords {
		if strings.Contains(kw, " ") || strings.Contains(kw, "-") {
			if strings.Contains(text, kw) {
				score += keywordWeight
			}
			continue
		}
		if _, ok := tokenSet[kw]; ok {
			score += keywordWeight
		}
	}
	return score
}

// subjectOf derives a sanitized lookup subject from query tokens: every
// keyword and stopword stripped, remaining tokens joined in order.
func subjectOf(tokens []string) string {
	known := make(map[string]struct{})
	for _, keywords := range categoryKeywords {
		for _, kw := range keywords {
			known[kw] = struct{}{}
		}
	}

	var subject []string
	for _, t := range tokens {
		if _, ok := stopwords[t]; ok {
			continue
		}
		if _, ok := known[t]; ok {
			continue
		}
		subject = append(subject, t)
	}
	return strings.Join(subject, " ")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		}
		return true
	})
}
