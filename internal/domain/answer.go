package domain

// Decision is the top-level verdict of an answer card.
type Decision string

const (
	// DecisionCovered asserts the subject is covered by the plan.
	DecisionCovered Decision = "covered"
	// DecisionNotCovered asserts the subject is not covered.
	DecisionNotCovered Decision = "not_covered"
	// DecisionAnswered carries factual items without a coverage verdict
	// (e.g. a fee lookup).
	DecisionAnswered Decision = "answered"
	// DecisionNeedsMoreInfo means the engine will not guess: evidence was
	// missing, ambiguous, or contradictory at the top level.
	DecisionNeedsMoreInfo Decision = "needs_more_info"
)

// Followup is a clarification question emitted when confidence is low or
// routing was ambiguous.
type Followup struct {
	ask    string
	reason string
}

// NewFollowup creates a followup question.
func NewFollowup(ask, reason string) Followup {
	return Followup{ask: ask, reason: reason}
}

// Ask returns the question to put to the user.
func (f *Followup) Ask() string { return f.ask }

// Reason returns why the engine is asking.
func (f *Followup) Reason() string { return f.reason }

// AnswerCard is the engine's single structured output unit per query.
// Built once per request, never mutated after construction.
type AnswerCard struct {
	id         string
	decision   Decision
	items      []MergedItem
	citations  []Citation
	conflicts  []Conflict
	confidence float64
	provenance []string
	followups  []Followup
}

// NewAnswerCard assembles an answer card. Confidence is clamped to [0,1].
func NewAnswerCard(
	id string, decision Decision,
	items []MergedItem, citations []Citation, conflicts []Conflict,
	confidence float64, provenance []string, followups []Followup,
) AnswerCard {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return AnswerCard{
		id: id, decision: decision,
		items: items, citations: citations, conflicts: conflicts,
		confidence: confidence, provenance: provenance, followups: followups,
	}
}

// ID returns the card's trace identifier.
func (a *AnswerCard) ID() string { return a.id }

// Decision returns the top-level verdict.
func (a *AnswerCard) Decision() Decision { return a.decision }

// Items returns the merged evidence items.
func (a *AnswerCard) Items() []MergedItem { return a.items }

// Citations returns the deduplicated provenance entries.
func (a *AnswerCard) Citations() []Citation { return a.citations }

// Conflicts returns the detected cross-path disagreements.
func (a *AnswerCard) Conflicts() []Conflict { return a.conflicts }

// Confidence returns the calibrated confidence in [0,1].
func (a *AnswerCard) Confidence() float64 { return a.confidence }

// Provenance returns which retrieval paths contributed, canonical order.
func (a *AnswerCard) Provenance() []string { return a.provenance }

// Followups returns clarification questions, if any.
func (a *AnswerCard) Followups() []Followup { return a.followups }
