package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/benefitlens/coverquery/internal/domain"
	answeruc "github.com/benefitlens/coverquery/internal/usecase/answer"
	healthuc "github.com/benefitlens/coverquery/internal/usecase/health"
	"github.com/benefitlens/coverquery/internal/usecase/retrieve"
)

type stubClassifier struct {
	routes []domain.Route
}

func (s *stubClassifier) Routes(domain.Query) []domain.Route { return s.routes }

type stubExecutor struct {
	result retrieve.Result
}

func (s *stubExecutor) Execute(context.Context, domain.Route, int) retrieve.Result {
	return s.result
}

type stubPinger struct{ err error }

func (s *stubPinger) PingContext(context.Context) error { return s.err }
func (s *stubPinger) Ping(context.Context) error        { return s.err }

func boolPtr(v bool) *bool { return &v }

func newTestServer(executor answeruc.RouteExecutor, routes []domain.Route) *Server {
	answers := answeruc.NewService(
		&stubClassifier{routes: routes}, executor,
		answeruc.Config{}, nil, zap.NewNop(),
	)
	health := healthuc.New(&stubPinger{}, &stubPinger{}, nil)
	return NewServer(answers, health, zap.NewNop())
}

func TestCreateAnswer_WireContract(t *testing.T) {
	route := domain.NewRoute(domain.CategoryFormulary,
		domain.Params{Drug: "drugx"}, "is DrugX covered", 3.0, "drug hint")
	executor := &stubExecutor{result: retrieve.Result{
		Records: []domain.Record{domain.ReconstructRecord(
			domain.CategoryFormulary, "drugx", "DrugX (tier 2)", nil, boolPtr(true),
			"", "", "formulary", "", 7,
		)},
		Passages: []domain.Passage{domain.NewPassage(
			"DrugX is not covered under this plan tier.", "formulary.pdf", "chunk-5", 0.85,
		)},
		StructuredOutcome: retrieve.OutcomeOK,
		SemanticOutcome:   retrieve.OutcomeOK,
	}}

	srv := newTestServer(executor, []domain.Route{route})
	router := srv.Router(BearerAuthMiddleware(nil))

	body := `{"query": "is DrugX covered", "hints": {"drug": "DrugX"}}`
	req := httptest.NewRequest("POST", "/api/v1/answers", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{
		"answer_id", "decision", "provenance", "confidence",
		"items", "citations", "conflicts", "followups",
	} {
		if _, ok := resp[field]; !ok {
			t.Errorf("response missing field %q", field)
		}
	}

	var conflicts []map[string]string
	if err := json.Unmarshal(resp["conflicts"], &conflicts); err != nil {
		t.Fatalf("decode conflicts: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c["field"] != "covered" || c["sql_value"] != "true" || c["vector_value"] != "false" {
		t.Errorf("conflict wire form = %v", c)
	}
	if c["note"] == "" {
		t.Error("conflict note must be populated")
	}

	var citations []map[string]any
	if err := json.Unmarshal(resp["citations"], &citations); err != nil {
		t.Fatalf("decode citations: %v", err)
	}
	if len(citations) == 0 {
		t.Fatal("expected citations")
	}
	if citations[0]["source"] == "" || citations[0]["loc"] == "" {
		t.Errorf("citation wire form = %v", citations[0])
	}
}

func TestCreateAnswer_InvalidBody(t *testing.T) {
	srv := newTestServer(&stubExecutor{}, nil)
	router := srv.Router(BearerAuthMiddleware(nil))

	req := httptest.NewRequest("POST", "/api/v1/answers", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != codeBadRequest {
		t.Errorf("code = %s, want %s", errResp.Code, codeBadRequest)
	}
}

func TestCreateAnswer_EmptyQuery(t *testing.T) {
	srv := newTestServer(&stubExecutor{}, nil)
	router := srv.Router(BearerAuthMiddleware(nil))

	req := httptest.NewRequest("POST", "/api/v1/answers", strings.NewReader(`{"query": "   "}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != codeMalformedQuery {
		t.Errorf("code = %s, want %s", errResp.Code, codeMalformedQuery)
	}
}

func TestCreateAnswer_RequiresAuthWhenConfigured(t *testing.T) {
	srv := newTestServer(&stubExecutor{}, nil)
	router := srv.Router(BearerAuthMiddleware([]string{"secret"}))

	req := httptest.NewRequest("POST", "/api/v1/answers", strings.NewReader(`{"query": "q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&stubExecutor{}, nil)
	router := srv.Router(BearerAuthMiddleware([]string{"secret"}))

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Checks["structured_store"] != "ok" || resp.Checks["semantic_store"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}
}
