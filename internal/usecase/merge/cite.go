package merge

import "github.com/benefitlens/coverquery/internal/domain"

// BuildCitations builds deduplicated citations for one item's evidence.
// The structured record cites its table row (key + description when
// available, the most specific location the store kept); each passage cites
// its source document and chunk location. Dedup key is (source, loc).
func BuildCitations(rec *domain.Record, passages []domain.Passage) []domain.Citation {
	seen := make(map[string]struct{})
	var citations []domain.Citation

	add := func(c domain.Citation) {
		if _, ok := seen[c.Key()]; ok {
			return
		}
		seen[c.Key()] = struct{}{}
		citations = append(citations, c)
	}

	if rec != nil {
		add(domain.NewCitation(rec.Source(), recordLoc(rec), rec.Page()))
	}
	for i := range passages {
		add(domain.NewCitation(passages[i].Source(), passages[i].Loc(), 0))
	}

	return citations
}

// recordLoc prefers the most specific location string available: an
// identifier plus its name beats a bare identifier or a document title.
func recordLoc(rec *domain.Record) string {
	if rec.Key() != "" && rec.Description() != "" {
		return rec.Key() + " " + rec.Description()
	}
	return rec.Loc()
}

// UnionCitations merges citation lists from several items, deduplicated by
// (source, loc), preserving first-seen order.
func UnionCitations(lists ...[]domain.Citation) []domain.Citation {
	seen := make(map[string]struct{})
	var out []domain.Citation
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c.Key()]; ok {
				continue
			}
			seen[c.Key()] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
