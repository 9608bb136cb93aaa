// Package answer orchestrates the full pipeline for one query: classify
// into routes, retrieve both paths per route concurrently, merge, detect
// conflicts, score, and assemble the answer card.
package answer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benefitlens/coverquery/internal/domain"
	"github.com/benefitlens/coverquery/internal/usecase/merge"
	"github.com/benefitlens/coverquery/internal/usecase/score"
)

// DefaultConfidenceThreshold is the confidence below which the card asks
// followup questions instead of standing on its answer alone.
const DefaultConfidenceThreshold = 0.7

// Config tunes the orchestrator.
type Config struct {
	ConfidenceThreshold float64
	// RouteWeights biases the confidence average per category. Missing
	// categories weigh 1.0.
	RouteWeights map[domain.Category]float64
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return c
}

// Service answers queries. Safe for concurrent use.
type Service struct {
	classifier RouteClassifier
	executor   RouteExecutor
	cfg        Config
	metrics    MetricsRecorder
	log        *zap.Logger
}

// NewService creates the orchestrator. A nil metrics recorder is replaced
// with a no-op one.
func NewService(classifier RouteClassifier, executor RouteExecutor, cfg Config, metrics MetricsRecorder, log *zap.Logger) *Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		classifier: classifier,
		executor:   executor,
		cfg:        cfg.withDefaults(),
		metrics:    metrics,
		log:        log,
	}
}

// routeResult is the fully processed evidence of one route.
type routeResult struct {
	route      domain.Route
	items      []domain.MergedItem
	conflicts  []domain.Conflict
	confidence float64
	decision   domain.Decision
	degraded   bool
	err        error
}

// Answer runs the whole pipeline. The same query always yields the same
// card modulo the generated id.
func (s *Service) Answer(ctx context.Context, q domain.Query) (domain.AnswerCard, error) {
	routes := s.classifier.Routes(q)

	routable := routes[:0:0]
	for _, r := range routes {
		if r.Category().Routable() {
			routable = append(routable, r)
		}
	}
	if len(routable) == 0 {
		return s.unclassifiedCard(q), nil
	}

	results := make([]routeResult, len(routable))
	var wg sync.WaitGroup
	for i := range routable {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.runRoute(ctx, routable[i], q.TopK())
		}(i)
	}
	wg.Wait()

	for i := range results {
		if results[i].err != nil {
			return domain.AnswerCard{}, fmt.Errorf("route %s: %w",
				results[i].route.Category(), results[i].err)
		}
	}

	card := s.assemble(results)
	s.metrics.ObserveConfidence(card.Confidence())
	s.metrics.AddConflicts(len(card.Conflicts()))

	s.log.Info("answer assembled",
		zap.String("answer_id", card.ID()),
		zap.String("decision", string(card.Decision())),
		zap.Float64("confidence", card.Confidence()),
		zap.Int("routes", len(routable)),
		zap.Int("items", len(card.Items())),
		zap.Int("conflicts", len(card.Conflicts())))

	return card, nil
}

func (s *Service) runRoute(ctx context.Context, route domain.Route, topK int) routeResult {
	res := s.executor.Execute(ctx, route, topK)

	items, err := merge.Merge(res.Records, res.Passages)
	if err != nil {
		return routeResult{route: route, err: err}
	}
	conflicts := merge.DetectConflicts(items)

	numRecords := 0
	numCorroborating := 0
	for i := range items {
		if items[i].Record() == nil {
			continue
		}
		numRecords++
		// Every passage aligned with a structured record corroborates it;
		// the bonus counts passages, not corroborated records.
		numCorroborating += len(items[i].Passages())
	}

	return routeResult{
		route:      route,
		items:      items,
		conflicts:  conflicts,
		confidence: score.Confidence(numRecords, numCorroborating, len(res.Passages) > 0, len(conflicts) > 0),
		decision:   decideRoute(items),
		degraded:   res.Degraded(),
	}
}

// decideRoute derives one route's verdict from its evidence. A single
// structured "not covered" row outweighs covered rows for the same route:
// the engine surfaces the restriction rather than the average.
func decideRoute(items []domain.MergedItem) domain.Decision {
	if len(items) == 0 {
		return domain.DecisionNeedsMoreInfo
	}

	sawCovered := false
	for i := range items {
		rec := items[i].Record()
		if rec == nil || rec.Covered() == nil {
			continue
		}
		if !*rec.Covered() {
			return domain.DecisionNotCovered
		}
		sawCovered = true
	}
	if sawCovered {
		return domain.DecisionCovered
	}
	return domain.DecisionAnswered
}

// assemble folds per-route results into one card. Routes are processed in
// category order so the output is independent of goroutine completion order.
func (s *Service) assemble(results []routeResult) domain.AnswerCard {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].route.Category() < results[j].route.Category()
	})

	var (
		items         []domain.MergedItem
		conflicts     []domain.Conflict
		citationLists [][]domain.Citation
		degraded      bool
	)
	confSum, weightSum := 0.0, 0.0
	decisions := make(map[domain.Decision]bool)

	for i := range results {
		r := &results[i]
		items = append(items, r.items...)
		conflicts = append(conflicts, r.conflicts...)
		for j := range r.items {
			citationLists = append(citationLists, r.items[j].Citations())
		}

		w := s.routeWeight(r.route.Category())
		confSum += w * r.confidence
		weightSum += w

		decisions[r.decision] = true
		degraded = degraded || r.degraded
	}

	confidence := 0.0
	if weightSum > 0 {
		confidence = confSum / weightSum
	}

	decision := combineDecisions(decisions)
	followups := s.buildFollowups(decision, confidence, decisions, degraded)

	return domain.NewAnswerCard(
		uuid.NewString(),
		decision,
		items,
		merge.UnionCitations(citationLists...),
		conflicts,
		confidence,
		provenanceOf(items),
		followups,
	)
}

func (s *Service) routeWeight(cat domain.Category) float64 {
	if w, ok := s.cfg.RouteWeights[cat]; ok && w > 0 {
		return w
	}
	return 1.0
}

// combineDecisions folds per-route verdicts into the card's verdict.
// Opposing coverage verdicts across routes are never averaged away.
func combineDecisions(seen map[domain.Decision]bool) domain.Decision {
	if seen[domain.DecisionCovered] && seen[domain.DecisionNotCovered] {
		return domain.DecisionNeedsMoreInfo
	}
	switch {
	case seen[domain.DecisionNotCovered]:
		return domain.DecisionNotCovered
	case seen[domain.DecisionCovered]:
		return domain.DecisionCovered
	case seen[domain.DecisionAnswered]:
		return domain.DecisionAnswered
	default:
		return domain.DecisionNeedsMoreInfo
	}
}

func (s *Service) buildFollowups(decision domain.Decision, confidence float64, seen map[domain.Decision]bool, degraded bool) []domain.Followup {
	var followups []domain.Followup

	if seen[domain.DecisionCovered] && seen[domain.DecisionNotCovered] {
		followups = append(followups, domain.NewFollowup(
			"Which specific service or item do you mean?",
			"the plan answers differently for the matched interpretations",
		))
	}
	if decision == domain.DecisionNeedsMoreInfo && len(followups) == 0 {
		followups = append(followups, domain.NewFollowup(
			"Can you name the exact service, drug, device, or billing code?",
			"no matching evidence was found in the plan data",
		))
	}
	if confidence < s.cfg.ConfidenceThreshold && decision != domain.DecisionNeedsMoreInfo {
		followups = append(followups, domain.NewFollowup(
			"Which plan tier are you on?",
			"confidence is below the reporting threshold",
		))
	}
	if degraded {
		followups = append(followups, domain.NewFollowup(
			"Would you like me to retry this lookup?",
			"one of the data stores did not respond in time",
		))
	}
	return followups
}

// provenanceOf unions the items' retrieval paths in canonical order.
func provenanceOf(items []domain.MergedItem) []string {
	hasStructured, hasSemantic := false, false
	for i := range items {
		for _, p := range items[i].Provenance() {
			switch p {
			case domain.PathStructured:
				hasStructured = true
			case domain.PathSemantic:
				hasSemantic = true
			}
		}
	}

	var prov []string
	if hasStructured {
		prov = append(prov, domain.PathStructured)
	}
	if hasSemantic {
		prov = append(prov, domain.PathSemantic)
	}
	return prov
}

// unclassifiedCard is the refusal card: the engine never guesses a category.
func (s *Service) unclassifiedCard(q domain.Query) domain.AnswerCard {
	s.log.Info("query unclassified", zap.Int("text_len", len(q.Text())))

	return domain.NewAnswerCard(
		uuid.NewString(),
		domain.DecisionNeedsMoreInfo,
		nil, nil, nil,
		0,
		nil,
		[]domain.Followup{domain.NewFollowup(
			"Is this about a billing code, a covered service, a drug, or a device?",
			"the question did not match any supported category",
		)},
	)
}
