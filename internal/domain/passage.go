package domain

// Passage is a scored chunk returned by the semantic store.
type Passage struct {
	text   string
	source string
	loc    string
	score  float64
}

// NewPassage creates a semantic passage.
func NewPassage(text, source, loc string, score float64) Passage {
	return Passage{text: text, source: source, loc: loc, score: score}
}

// Text returns the passage text.
func (p *Passage) Text() string { return p.text }

// Source returns the source document name.
func (p *Passage) Source() string { return p.source }

// Loc returns the location within the source document.
func (p *Passage) Loc() string { return p.loc }

// Score returns the similarity score in [0,1].
func (p *Passage) Score() float64 { return p.score }
