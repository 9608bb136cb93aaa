// Package retrieve runs the two retrieval paths for a single route
// concurrently, each under its own timeout, and joins the results.
package retrieve

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/benefitlens/coverquery/internal/domain"
)

// Path outcome labels, also used as metric label values.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

const (
	defaultStructuredTimeout = 400 * time.Millisecond
	defaultSemanticTimeout   = 900 * time.Millisecond
	defaultRouteBudget       = 1500 * time.Millisecond
)

// Config bounds the executor's timing. The route budget caps the whole
// join; each path additionally gets its own tighter deadline.
// DefaultTopK applies when the query did not request a passage count.
type Config struct {
	StructuredTimeout time.Duration
	SemanticTimeout   time.Duration
	RouteBudget       time.Duration
	DefaultTopK       int
}

func (c Config) withDefaults() Config {
	if c.StructuredTimeout <= 0 {
		c.StructuredTimeout = defaultStructuredTimeout
	}
	if c.SemanticTimeout <= 0 {
		c.SemanticTimeout = defaultSemanticTimeout
	}
	if c.RouteBudget <= 0 {
		c.RouteBudget = defaultRouteBudget
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = domain.DefaultTopK
	}
	return c
}

// Result is the joined output of both paths for one route. A failed or
// timed-out path contributes empty results, never an error: one slow
// store must not take the whole answer down.
type Result struct {
	Records  []domain.Record
	Passages []domain.Passage

	StructuredOutcome string
	SemanticOutcome   string
}

// StructuredOK reports whether the structured path returned successfully.
func (r Result) StructuredOK() bool { return r.StructuredOutcome == OutcomeOK }

// SemanticOK reports whether the semantic path returned successfully.
func (r Result) SemanticOK() bool { return r.SemanticOutcome == OutcomeOK }

// Degraded reports whether any path failed to complete.
func (r Result) Degraded() bool {
	return r.StructuredOutcome == OutcomeTimeout || r.StructuredOutcome == OutcomeError ||
		r.SemanticOutcome == OutcomeTimeout || r.SemanticOutcome == OutcomeError
}

// Executor fans a route out to both stores and joins the results.
type Executor struct {
	structured StructuredClient
	semantic   SemanticClient
	cfg        Config
	metrics    MetricsRecorder
	log        *zap.Logger
}

// NewExecutor creates an executor. A nil metrics recorder is replaced
// with a no-op one.
func NewExecutor(structured StructuredClient, semantic SemanticClient, cfg Config, metrics MetricsRecorder, log *zap.Logger) *Executor {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Executor{
		structured: structured,
		semantic:   semantic,
		cfg:        cfg.withDefaults(),
		metrics:    metrics,
		log:        log,
	}
}

type structuredReply struct {
	records []domain.Record
	err     error
	elapsed time.Duration
}

type semanticReply struct {
	passages []domain.Passage
	err      error
	elapsed  time.Duration
}

// Execute runs both paths concurrently and returns the joined result.
// It never returns later than the route budget plus scheduling slack,
// even against a client that ignores cancellation.
func (e *Executor) Execute(ctx context.Context, route domain.Route, topK int) Result {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RouteBudget)
	defer cancel()

	structCh := make(chan structuredReply, 1)
	semCh := make(chan semanticReply, 1)

	go e.runStructured(ctx, route, structCh)
	go e.runSemantic(ctx, route, topK, semCh)

	res := Result{
		StructuredOutcome: OutcomeTimeout,
		SemanticOutcome:   OutcomeTimeout,
	}
	for pending := 2; pending > 0; pending-- {
		select {
		case r := <-structCh:
			res.Records = r.records
			res.StructuredOutcome = e.classify("structured", route, r.err, r.elapsed)
		case r := <-semCh:
			res.Passages = r.passages
			res.SemanticOutcome = e.classify("semantic", route, r.err, r.elapsed)
		case <-ctx.Done():
			// Budget exhausted; whatever has not reported stays a timeout.
			e.log.Warn("route budget exhausted",
				zap.String("category", string(route.Category())),
				zap.Duration("budget", e.cfg.RouteBudget))
			return res
		}
	}
	return res
}

func (e *Executor) runStructured(ctx context.Context, route domain.Route, out chan<- structuredReply) {
	if route.Params().IsZero() {
		out <- structuredReply{err: errSkipped}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.StructuredTimeout)
	defer cancel()

	start := time.Now()
	records, err := e.structured.Query(ctx, route.Category(), route.Params())
	out <- structuredReply{records: records, err: err, elapsed: time.Since(start)}
}

func (e *Executor) runSemantic(ctx context.Context, route domain.Route, topK int, out chan<- semanticReply) {
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.SemanticTimeout)
	defer cancel()

	start := time.Now()
	passages, err := e.semantic.Search(ctx, route.Category(), route.Text(), topK)
	out <- semanticReply{passages: passages, err: err, elapsed: time.Since(start)}
}

var errSkipped = errors.New("path skipped")

func (e *Executor) classify(path string, route domain.Route, err error, elapsed time.Duration) string {
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, errSkipped):
		outcome = OutcomeSkipped
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	default:
		outcome = OutcomeError
	}

	if outcome == OutcomeTimeout || outcome == OutcomeError {
		e.log.Warn("retrieval path degraded",
			zap.String("path", path),
			zap.String("category", string(route.Category())),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}
	e.metrics.ObserveRetrieval(path, outcome, elapsed)
	return outcome
}
