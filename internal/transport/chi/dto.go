package chi

import "github.com/benefitlens/coverquery/internal/domain"

// answerRequest is the POST /api/v1/answers body.
type answerRequest struct {
	Query string    `json:"query"`
	TopK  int       `json:"top_k,omitempty"`
	Hints *hintsDTO `json:"hints,omitempty"`
}

type hintsDTO struct {
	Codes    []string `json:"codes,omitempty"`
	Drug     string   `json:"drug,omitempty"`
	Device   string   `json:"device,omitempty"`
	Service  string   `json:"service,omitempty"`
	PlanTier string   `json:"plan_tier,omitempty"`
}

func (h *hintsDTO) toDomain() domain.Hints {
	if h == nil {
		return domain.Hints{}
	}
	return domain.Hints{
		Codes:    h.Codes,
		Drug:     h.Drug,
		Device:   h.Device,
		Service:  h.Service,
		PlanTier: h.PlanTier,
	}
}

// answerResponse is the wire form of an answer card.
type answerResponse struct {
	AnswerID   string         `json:"answer_id"`
	Decision   string         `json:"decision"`
	Provenance []string       `json:"provenance"`
	Confidence float64        `json:"confidence"`
	Items      []itemDTO      `json:"items"`
	Citations  []citationDTO  `json:"citations"`
	Conflicts  []conflictDTO  `json:"conflicts"`
	Followups  []followupDTO  `json:"followups"`
}

type citationDTO struct {
	Source string `json:"source"`
	Loc    string `json:"loc"`
	Page   int    `json:"page,omitempty"`
}

type conflictDTO struct {
	Field       string `json:"field"`
	SQLValue    string `json:"sql_value"`
	VectorValue string `json:"vector_value"`
	Note        string `json:"note"`
}

type followupDTO struct {
	Ask    string `json:"ask"`
	Reason string `json:"reason"`
}

type passageDTO struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Loc    string  `json:"loc"`
	Score  float64 `json:"score"`
}

// itemDTO is one merged evidence item. Record fields are present for
// structured-backed items; passages carry the semantic evidence.
type itemDTO struct {
	Category    string       `json:"category,omitempty"`
	Key         string       `json:"key,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      *float64     `json:"amount,omitempty"`
	Covered     *bool        `json:"covered,omitempty"`
	Requirement string       `json:"requirement,omitempty"`
	RuleText    string       `json:"rule_text,omitempty"`
	Passages    []passageDTO `json:"passages,omitempty"`
	Provenance  []string     `json:"provenance"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned to clients.
const (
	codeBadRequest        = "bad_request"
	codeMalformedQuery    = "malformed_query"
	codeStoreUnavailable  = "store_unavailable"
	codeEmbeddingProvider = "embedding_provider_error"
	codeInternal          = "internal_error"
)

func cardToResponse(card *domain.AnswerCard) answerResponse {
	items := make([]itemDTO, 0, len(card.Items()))
	for _, it := range card.Items() {
		items = append(items, itemToDTO(&it))
	}

	citations := make([]citationDTO, 0, len(card.Citations()))
	for _, c := range card.Citations() {
		citations = append(citations, citationDTO{Source: c.Source(), Loc: c.Loc(), Page: c.Page()})
	}

	conflicts := make([]conflictDTO, 0, len(card.Conflicts()))
	for _, c := range card.Conflicts() {
		conflicts = append(conflicts, conflictDTO{
			Field:       c.Field(),
			SQLValue:    c.StructuredValue(),
			VectorValue: c.SemanticValue(),
			Note:        c.Note(),
		})
	}

	followups := make([]followupDTO, 0, len(card.Followups()))
	for _, f := range card.Followups() {
		followups = append(followups, followupDTO{Ask: f.Ask(), Reason: f.Reason()})
	}

	provenance := card.Provenance()
	if provenance == nil {
		provenance = []string{}
	}

	return answerResponse{
		AnswerID:   card.ID(),
		Decision:   string(card.Decision()),
		Provenance: provenance,
		Confidence: card.Confidence(),
		Items:      items,
		Citations:  citations,
		Conflicts:  conflicts,
		Followups:  followups,
	}
}

func itemToDTO(item *domain.MergedItem) itemDTO {
	dto := itemDTO{
		Requirement: item.Requirement(),
		Provenance:  item.Provenance(),
	}

	if rec := item.Record(); rec != nil {
		dto.Category = string(rec.Category())
		dto.Key = rec.Key()
		dto.Description = rec.Description()
		dto.Amount = rec.Amount()
		dto.Covered = rec.Covered()
		dto.RuleText = rec.RuleText()
	}

	for _, p := range item.Passages() {
		dto.Passages = append(dto.Passages, passageDTO{
			Text:   p.Text(),
			Source: p.Source(),
			Loc:    p.Loc(),
			Score:  p.Score(),
		})
	}

	return dto
}
