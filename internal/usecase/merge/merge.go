// Package merge aligns structured records with corroborating semantic
// passages, detects cross-path conflicts, and builds citations.
package merge

import (
	"sort"
	"strings"

	"github.com/benefitlens/coverquery/internal/domain"
)

// minOverlapTokens is the lexical-overlap fallback threshold used when a
// passage does not contain the record key verbatim.
const minOverlapTokens = 3

// Merge aligns records with passages. Records keep the structured store's
// natural order and come first; passages that match no record become
// provisional semantic-only items ordered by descending score. Structured
// data always wins for any field both paths provide; passage text only
// fills fields the record lacks.
func Merge(records []domain.Record, passages []domain.Passage) ([]domain.MergedItem, error) {
	items := make([]domain.MergedItem, 0, len(records)+len(passages))
	claimed := make([]bool, len(passages))

	for i := range records {
		rec := &records[i]

		var corroborating []domain.Passage
		for j := range passages {
			if claimed[j] {
				continue
			}
			if passageMatches(rec, &passages[j]) {
				corroborating = append(corroborating, passages[j])
				claimed[j] = true
			}
		}

		item, err := domain.NewMergedItem(
			rec, corroborating,
			deriveRequirement(rec, corroborating),
			BuildCitations(rec, corroborating),
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	// Leftover passages become provisional semantic-only items.
	var provisional []domain.MergedItem
	for j := range passages {
		if claimed[j] {
			continue
		}
		p := passages[j]
		item, err := domain.NewMergedItem(
			nil, []domain.Passage{p},
			extractAssertion(p.Text()).requirement,
			BuildCitations(nil, []domain.Passage{p}),
		)
		if err != nil {
			return nil, err
		}
		provisional = append(provisional, item)
	}
	sort.SliceStable(provisional, func(i, j int) bool {
		return provisional[i].Passages()[0].Score() > provisional[j].Passages()[0].Score()
	})

	return append(items, provisional...), nil
}

// passageMatches reports whether a passage references the same key entity
// as the record: exact identifier match in the passage text when the record
// has one, else a lexical-overlap heuristic.
func passageMatches(rec *domain.Record, p *domain.Passage) bool {
	text := strings.ToLower(p.Text())

	if key := strings.ToLower(rec.Key()); key != "" && strings.Contains(text, key) {
		return true
	}

	return tokenOverlap(rec.Description(), p.Text()) >= minOverlapTokens
}

// tokenOverlap counts distinct shared tokens of length >= 4 between two
// texts. Short tokens are too common to signal the same entity.
func tokenOverlap(a, b string) int {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(a)) {
		t = strings.Trim(t, ".,;:()")
		if len(t) >= 4 {
			set[t] = struct{}{}
		}
	}

	count := 0
	seen := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(b)) {
		t = strings.Trim(t, ".,;:()")
		if _, dup := seen[t]; dup {
			continue
		}
		if _, ok := set[t]; ok {
			seen[t] = struct{}{}
			count++
		}
	}
	return count
}

// deriveRequirement pulls a requirement from passage text only when the
// structured record lacks one.
func deriveRequirement(rec *domain.Record, passages []domain.Passage) string {
	if rec.Requirement() != "" {
		return "" // structured value wins; MergedItem.Requirement prefers it
	}
	for i := range passages {
		if req := extractAssertion(passages[i].Text()).requirement; req != "" {
			return req
		}
	}
	return ""
}
