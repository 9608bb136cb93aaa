package merge

import (
	"regexp"
	"strconv"
	"strings"
)

// assertion is what a semantic passage independently claims about an entity.
// Nil pointer fields mean the passage asserts nothing about that field.
type assertion struct {
	covered     *bool
	amount      *float64
	requirement string
}

// Negation phrases are checked before positive ones: "not covered" contains
// "covered".
var negativePhrases = []string{
	"not covered", "is excluded", "are excluded", "no coverage",
	"non-covered", "noncovered", "not a covered", "coverage is denied",
}

var positivePhrases = []string{
	"is covered", "are covered", "covered at", "covered under",
	"covered when", "coverage includes", "is a covered",
}

var requirementPhrases = []string{
	"prior authorization", "preauthorization", "pre-authorization",
	"step therapy", "referral required", "requires a referral",
	"medical necessity review",
}

var amountPattern = regexp.MustCompile(`\$\s?(\d[\d,]*(?:\.\d{1,2})?)`)

// extractAssertion parses what a passage claims about coverage, fees, and
// requirements. Best-effort and conservative: a phrase that asserts nothing
// recognizable yields an empty assertion, never a guess.
func extractAssertion(text string) assertion {
	lower := strings.ToLower(text)
	var a assertion

	for _, p := range negativePhrases {
		if strings.Contains(lower, p) {
			v := false
			a.covered = &v
			break
		}
	}
	if a.covered == nil {
		for _, p := range positivePhrases {
			if strings.Contains(lower, p) {
				v := true
				a.covered = &v
				break
			}
		}
	}

	for _, p := range requirementPhrases {
		if strings.Contains(lower, p) {
			a.requirement = p
			break
		}
	}

	if m := amountPattern.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			a.amount = &f
		}
	}

	return a
}
