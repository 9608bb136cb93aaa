package domain

import "fmt"

// PathName identifies a retrieval path in provenance sets.
const (
	PathStructured = "structured"
	PathSemantic   = "semantic"
)

// Citation is one provenance entry, deduplicated by (source, loc).
type Citation struct {
	source string
	loc    string
	page   int
}

// NewCitation creates a citation. Page 0 means unknown.
func NewCitation(source, loc string, page int) Citation {
	return Citation{source: source, loc: loc, page: page}
}

// Source returns the source document or table name.
func (c *Citation) Source() string { return c.source }

// Loc returns the location within the source.
func (c *Citation) Loc() string { return c.loc }

// Page returns the page number, 0 when unknown.
func (c *Citation) Page() int { return c.page }

// Key returns the composite dedup key.
func (c *Citation) Key() string { return c.source + "\x00" + c.loc }

// Conflict records a disagreement between the two retrieval paths on one
// field of one logical entity. Conflicts are always surfaced, never
// silently resolved.
type Conflict struct {
	field           string
	structuredValue string
	semanticValue   string
	note            string
}

// NewConflict creates a conflict record.
func NewConflict(field, structuredValue, semanticValue, note string) Conflict {
	return Conflict{field: field, structuredValue: structuredValue, semanticValue: semanticValue, note: note}
}

// Field returns the disputed field name.
func (c *Conflict) Field() string { return c.field }

// StructuredValue returns the structured store's value.
func (c *Conflict) StructuredValue() string { return c.structuredValue }

// SemanticValue returns the value asserted by semantic evidence.
func (c *Conflict) SemanticValue() string { return c.semanticValue }

// Note returns the resolution note for the consuming layer.
func (c *Conflict) Note() string { return c.note }

// MergedItem is a structured record enriched with corroborating passages,
// or a passage-derived provisional item when no structured hit exists.
type MergedItem struct {
	record      *Record
	passages    []Passage
	requirement string // derived from passage text when the record lacks one
	citations   []Citation
}

// NewMergedItem builds a merged item. Every item must carry at least one
// citation; a citation-less item is a defect, not a degraded result.
func NewMergedItem(record *Record, passages []Passage, requirement string, citations []Citation) (MergedItem, error) {
	if record == nil && len(passages) == 0 {
		return MergedItem{}, fmt.Errorf("merged item needs a record or a passage")
	}
	if len(citations) == 0 {
		return MergedItem{}, ErrNoCitation
	}
	return MergedItem{record: record, passages: passages, requirement: requirement, citations: citations}, nil
}

// Record returns the structured record, nil for semantic-only items.
func (m *MergedItem) Record() *Record { return m.record }

// Passages returns the corroborating (or sole) semantic passages.
func (m *MergedItem) Passages() []Passage { return m.passages }

// Requirement returns the effective requirement: the structured value when
// present, else the one derived from passage text.
func (m *MergedItem) Requirement() string {
	if m.record != nil && m.record.Requirement() != "" {
		return m.record.Requirement()
	}
	return m.requirement
}

// Citations returns the item's provenance entries.
func (m *MergedItem) Citations() []Citation { return m.citations }

// Provenance returns the retrieval paths that contributed to this item,
// in canonical order (structured before semantic).
func (m *MergedItem) Provenance() []string {
	var prov []string
	if m.record != nil {
		prov = append(prov, PathStructured)
	}
	if len(m.passages) > 0 {
		prov = append(prov, PathSemantic)
	}
	return prov
}
