package answer

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/benefitlens/coverquery/internal/domain"
	"github.com/benefitlens/coverquery/internal/usecase/retrieve"
)

type fakeClassifier struct {
	routes []domain.Route
}

func (f *fakeClassifier) Routes(domain.Query) []domain.Route { return f.routes }

type fakeExecutor struct {
	byCategory map[domain.Category]retrieve.Result
}

func (f *fakeExecutor) Execute(_ context.Context, route domain.Route, _ int) retrieve.Result {
	return f.byCategory[route.Category()]
}

func covered(v bool) *bool      { return &v }
func amount(v float64) *float64 { return &v }

func billingRoute() domain.Route {
	return domain.NewRoute(domain.CategoryBilling,
		domain.Params{Codes: []string{"A0425"}}, "what does A0425 cost", 3.0, "code hint")
}

func formularyRoute() domain.Route {
	return domain.NewRoute(domain.CategoryFormulary,
		domain.Params{Drug: "drugx"}, "is DrugX covered", 3.0, "drug hint")
}

func newTestService(classifier RouteClassifier, executor RouteExecutor, cfg Config) *Service {
	return NewService(classifier, executor, cfg, nil, zap.NewNop())
}

func mustQuery(t *testing.T, text string) domain.Query {
	t.Helper()
	q, err := domain.NewQuery(text, domain.Hints{}, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return q
}

func TestAnswer_StructuredOnlyFeeLookup(t *testing.T) {
	classifier := &fakeClassifier{routes: []domain.Route{billingRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryBilling: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryBilling, "A0425", "ground mileage", amount(42.50), nil,
				"", "", "fee_schedule", "", 12,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "what does A0425 cost"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.Decision() != domain.DecisionAnswered {
		t.Errorf("decision = %s, want answered", card.Decision())
	}
	if math.Abs(card.Confidence()-0.90) > 1e-9 {
		t.Errorf("confidence = %v, want 0.90", card.Confidence())
	}
	if len(card.Citations()) == 0 {
		t.Error("card must carry at least one citation")
	}
	if len(card.Provenance()) != 1 || card.Provenance()[0] != domain.PathStructured {
		t.Errorf("provenance = %v, want [structured]", card.Provenance())
	}
	if card.ID() == "" {
		t.Error("answer id must be set")
	}
	if len(card.Followups()) != 0 {
		t.Errorf("high-confidence answer must not ask followups, got %v", card.Followups())
	}
}

func TestAnswer_CorroboratedCoverageWithRequirement(t *testing.T) {
	classifier := &fakeClassifier{routes: []domain.Route{formularyRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryFormulary: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryFormulary, "drugx", "DrugX 20mg", nil, covered(true),
				"", "", "formulary", "", 7,
			)},
			Passages: []domain.Passage{domain.NewPassage(
				"DrugX requires prior authorization before the first fill.",
				"formulary.pdf", "chunk-2", 0.9,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "is DrugX covered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.Decision() != domain.DecisionCovered {
		t.Errorf("decision = %s, want covered", card.Decision())
	}
	if len(card.Conflicts()) != 0 {
		t.Errorf("a requirement phrase is not a contradiction, got %v", card.Conflicts())
	}
	// base 0.9 + one corroborating passage.
	if math.Abs(card.Confidence()-0.93) > 1e-9 {
		t.Errorf("confidence = %v, want 0.93", card.Confidence())
	}
	if len(card.Items()) != 1 || card.Items()[0].Requirement() != "prior authorization" {
		t.Error("requirement must be derived from the corroborating passage")
	}
	want := []string{domain.PathStructured, domain.PathSemantic}
	if got := card.Provenance(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("provenance = %v, want %v", got, want)
	}
}

func TestAnswer_CorroborationBonusPerPassage(t *testing.T) {
	classifier := &fakeClassifier{routes: []domain.Route{formularyRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryFormulary: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryFormulary, "drugx", "DrugX 20mg", nil, covered(true),
				"", "", "formulary", "", 7,
			)},
			Passages: []domain.Passage{
				domain.NewPassage(
					"DrugX is covered under the standard formulary tier.",
					"formulary.pdf", "chunk-2", 0.9,
				),
				domain.NewPassage(
					"DrugX requires prior authorization before the first fill.",
					"policy.pdf", "chunk-8", 0.8,
				),
			},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "is DrugX covered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(card.Conflicts()) != 0 {
		t.Errorf("agreeing passages must not conflict, got %v", card.Conflicts())
	}
	if len(card.Items()) != 1 || len(card.Items()[0].Passages()) != 2 {
		t.Fatalf("both passages must corroborate the single record, got %v items", len(card.Items()))
	}
	// base 0.9 + two corroborating passages on one record.
	if math.Abs(card.Confidence()-0.96) > 1e-9 {
		t.Errorf("confidence = %v, want 0.96", card.Confidence())
	}
}

func TestAnswer_ConflictIsSurfacedAndPenalized(t *testing.T) {
	classifier := &fakeClassifier{routes: []domain.Route{formularyRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryFormulary: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryFormulary, "drugx", "DrugX 20mg", nil, covered(true),
				"", "", "formulary", "", 7,
			)},
			Passages: []domain.Passage{domain.NewPassage(
				"DrugX is not covered under this plan tier.",
				"formulary.pdf", "chunk-5", 0.85,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "is DrugX covered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(card.Conflicts()) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(card.Conflicts()))
	}
	c := card.Conflicts()[0]
	if c.Field() != "covered" || c.StructuredValue() != "true" || c.SemanticValue() != "false" {
		t.Errorf("conflict = %s %s/%s, want covered true/false",
			c.Field(), c.StructuredValue(), c.SemanticValue())
	}
	// base 0.9 + 0.03 corroboration - 0.10 penalty.
	if math.Abs(card.Confidence()-0.83) > 1e-9 {
		t.Errorf("confidence = %v, want 0.83", card.Confidence())
	}
	// Structured data wins the verdict; the conflict rides along visibly.
	if card.Decision() != domain.DecisionCovered {
		t.Errorf("decision = %s, want covered", card.Decision())
	}
}

func TestAnswer_NoEvidenceRefusesToGuess(t *testing.T) {
	classifier := &fakeClassifier{routes: []domain.Route{formularyRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryFormulary: {
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "is DrugZ covered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.Decision() != domain.DecisionNeedsMoreInfo {
		t.Errorf("decision = %s, want needs_more_info", card.Decision())
	}
	if card.Confidence() != 0 {
		t.Errorf("confidence = %v, want 0", card.Confidence())
	}
	if len(card.Followups()) == 0 {
		t.Error("empty evidence must produce followup questions")
	}
}

func TestAnswer_UnclassifiedQuery(t *testing.T) {
	unclassified := domain.NewRoute(domain.CategoryUnclassified, domain.Params{}, "hello there", 0, "no signal")
	classifier := &fakeClassifier{routes: []domain.Route{unclassified}}

	svc := newTestService(classifier, &fakeExecutor{}, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "hello there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.Decision() != domain.DecisionNeedsMoreInfo {
		t.Errorf("decision = %s, want needs_more_info", card.Decision())
	}
	if card.Confidence() != 0 || len(card.Followups()) == 0 {
		t.Errorf("unclassified card must have zero confidence and followups, got %v / %d",
			card.Confidence(), len(card.Followups()))
	}
}

func TestAnswer_OpposingRouteVerdictsDowngrade(t *testing.T) {
	benefitRoute := domain.NewRoute(domain.CategoryBenefit,
		domain.Params{Service: "wheelchair repair"}, "is wheelchair repair covered", 2.0, "keyword match")
	deviceRoute := domain.NewRoute(domain.CategoryDevice,
		domain.Params{Device: "wheelchair"}, "is wheelchair repair covered", 2.0, "keyword match")

	classifier := &fakeClassifier{routes: []domain.Route{benefitRoute, deviceRoute}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryBenefit: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryBenefit, "wheelchair repair", "wheelchair repair services",
				nil, covered(true), "", "covered as DME maintenance", "benefits", "", 9,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
		domain.CategoryDevice: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryDevice, "wheelchair", "power wheelchairs",
				nil, covered(false), "", "rental only, purchase excluded", "device_coverage", "", 14,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "is wheelchair repair covered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.Decision() != domain.DecisionNeedsMoreInfo {
		t.Errorf("decision = %s, opposing verdicts must downgrade to needs_more_info", card.Decision())
	}
	if len(card.Followups()) == 0 {
		t.Error("opposing verdicts must ask the user to disambiguate")
	}
	if len(card.Items()) != 2 {
		t.Errorf("both routes' evidence must survive on the card, got %d items", len(card.Items()))
	}
}

func TestAnswer_DegradedPathAsksToRetry(t *testing.T) {
	classifier := &fakeClassifier{routes: []domain.Route{formularyRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryFormulary: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryFormulary, "drugx", "DrugX 20mg", nil, covered(true),
				"", "", "formulary", "", 7,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeTimeout,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "is DrugX covered"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, f := range card.Followups() {
		if f.Reason() == "one of the data stores did not respond in time" {
			found = true
		}
	}
	if !found {
		t.Errorf("degraded retrieval must surface a retry followup, got %v", card.Followups())
	}
	// The surviving structured evidence still answers.
	if card.Decision() != domain.DecisionCovered {
		t.Errorf("decision = %s, want covered from the surviving path", card.Decision())
	}
}

func TestAnswer_RouteWeightsBiasConfidence(t *testing.T) {
	benefitRoute := domain.NewRoute(domain.CategoryBenefit,
		domain.Params{Service: "therapy"}, "therapy", 2.0, "keyword match")
	classifier := &fakeClassifier{routes: []domain.Route{billingRoute(), benefitRoute}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryBilling: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryBilling, "A0425", "ground mileage", amount(42.50), nil,
				"", "", "fee_schedule", "", 12,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
		domain.CategoryBenefit: {
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	// Equal weights: (0.9 + 0.0) / 2.
	svc := newTestService(classifier, executor, Config{})
	card, err := svc.Answer(context.Background(), mustQuery(t, "therapy and A0425"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(card.Confidence()-0.45) > 1e-9 {
		t.Errorf("confidence = %v, want 0.45", card.Confidence())
	}

	// Billing weighted 3x: (3*0.9 + 0.0) / 4.
	svc = newTestService(classifier, executor, Config{
		RouteWeights: map[domain.Category]float64{domain.CategoryBilling: 3},
	})
	card, err = svc.Answer(context.Background(), mustQuery(t, "therapy and A0425"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(card.Confidence()-0.675) > 1e-9 {
		t.Errorf("confidence = %v, want 0.675", card.Confidence())
	}
}

func TestAnswer_DeterministicAcrossRuns(t *testing.T) {
	benefitRoute := domain.NewRoute(domain.CategoryBenefit,
		domain.Params{Service: "therapy"}, "therapy", 2.0, "keyword match")
	classifier := &fakeClassifier{routes: []domain.Route{benefitRoute, billingRoute()}}
	executor := &fakeExecutor{byCategory: map[domain.Category]retrieve.Result{
		domain.CategoryBilling: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryBilling, "A0425", "ground mileage", amount(42.50), nil,
				"", "", "fee_schedule", "", 12,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
		domain.CategoryBenefit: {
			Records: []domain.Record{domain.ReconstructRecord(
				domain.CategoryBenefit, "therapy", "therapy services", nil, covered(true),
				"", "", "benefits", "", 4,
			)},
			StructuredOutcome: retrieve.OutcomeOK,
			SemanticOutcome:   retrieve.OutcomeOK,
		},
	}}

	svc := newTestService(classifier, executor, Config{})
	q := mustQuery(t, "therapy and A0425")

	first, err := svc.Answer(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := svc.Answer(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.Decision() != first.Decision() || again.Confidence() != first.Confidence() {
			t.Fatal("decision or confidence changed between identical runs")
		}
		if len(again.Items()) != len(first.Items()) {
			t.Fatal("item count changed between identical runs")
		}
		for j := range again.Items() {
			a, b := again.Items()[j], first.Items()[j]
			if a.Citations()[0].Key() != b.Citations()[0].Key() {
				t.Fatal("item order changed between identical runs")
			}
		}
	}
}
