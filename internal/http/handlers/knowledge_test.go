package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/structa/knowledge-backend/internal/cache"
	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/http/response"
	"github.com/structa/knowledge-backend/internal/jobs"
	"github.com/structa/knowledge-backend/internal/services"
	"github.com/structa/knowledge-backend/internal/trust"
)

type fakeFulltext struct {
	items map[domain.Kind][]domain.EvidenceItem
	err   error
}

func (f *fakeFulltext) Search(_ context.Context, _ string, kind domain.Kind, _ int) ([]domain.EvidenceItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return domain.CloneEvidenceItems(f.items[kind]), nil
}

type fakeVector struct{}

func (fakeVector) Available() bool { return false }

func (fakeVector) Search(context.Context, []float32, domain.Kind, int) ([]domain.EvidenceItem, error) {
	return nil, nil
}

func testRouter(t *testing.T, ft services.FulltextSearcher, manager *jobs.Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	analyzer := trust.NewAnalyzer(trust.DefaultLexicon(), nil)
	caches := services.Caches{
		Search:   cache.New(time.Minute, 16, services.SearchResult.Clone),
		Evidence: cache.New(time.Minute, 16, services.EvidencePackResult.Clone),
		Duration: cache.New(time.Minute, 16, services.DurationResult.Clone),
	}
	knowledge := services.NewKnowledgeService(nil, ft, fakeVector{}, nil, nil, analyzer, caches)
	enrichment := services.NewEnrichmentService(nil, knowledge, manager)
	duration := services.NewDurationService(nil, knowledge)

	r := gin.New()
	kh := NewKnowledgeHandler(knowledge, enrichment)
	r.POST("/api/knowledge/search", kh.Search)
	r.POST("/api/knowledge/answer", kh.Answer)
	r.POST("/api/knowledge/enrich", kh.Enrich)
	r.POST("/api/knowledge/evidence-pack", kh.EvidencePack)
	r.POST("/api/agents/duration", NewDurationHandler(duration).Plan)
	r.GET("/api/jobs/:id", NewJobHandler(enrichment).GetJob)
	r.GET("/healthcheck", NewHealthHandler(nil).HealthCheck)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func stdEvidence() map[domain.Kind][]domain.EvidenceItem {
	return map[domain.Kind][]domain.EvidenceItem{
		domain.KindStandard: {{
			Key:       "std-1",
			Kind:      domain.KindStandard,
			Excerpt:   "콘크리트 타설 후 양생 기간은 5일 이상으로 한다.",
			Retrieval: domain.RetrievalFulltext,
			RawScore:  2.0,
			Title:     "표준시방서 콘크리트공사",
		}},
	}
}

func TestSearchEndpoint(t *testing.T) {
	r := testRouter(t, &fakeFulltext{items: stdEvidence()}, nil)

	w := postJSON(t, r, "/api/knowledge/search", gin.H{"query": "양생 기간", "mode": "fulltext"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res services.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Standards) != 1 || res.Standards[0].Key != "std-1" {
		t.Fatalf("standards = %+v", res.Standards)
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, nil)

	w := postJSON(t, r, "/api/knowledge/search", gin.H{"query": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "invalid_request" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestSearchEndpointRejectsUnknownMode(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, nil)

	w := postJSON(t, r, "/api/knowledge/search", gin.H{"query": "q", "mode": "semantic"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpointRetrievalDown(t *testing.T) {
	r := testRouter(t, &fakeFulltext{err: fmt.Errorf("connection refused")}, nil)

	w := postJSON(t, r, "/api/knowledge/search", gin.H{"query": "항타 기준", "mode": "fulltext"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "retrieval_unavailable" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestAnswerEndpointWithoutGenerator(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, nil)

	w := postJSON(t, r, "/api/knowledge/answer", gin.H{"query": "항타 기준"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "generation_disabled" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestEnrichEndpointInline(t *testing.T) {
	r := testRouter(t, &fakeFulltext{items: stdEvidence()}, nil)

	w := postJSON(t, r, "/api/knowledge/enrich", gin.H{
		"items": []gin.H{{"id": "a", "query": "양생 기간"}},
		"mode":  "fulltext",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res services.EnrichResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Enriched != 1 {
		t.Fatalf("enriched = %d", res.Enriched)
	}
}

func TestEnrichEndpointAsync(t *testing.T) {
	manager := jobs.NewManager(jobs.Config{Concurrency: 1, QueueSize: 4}, nil)
	defer manager.Close()
	r := testRouter(t, &fakeFulltext{items: stdEvidence()}, manager)

	w := postJSON(t, r, "/api/knowledge/enrich", gin.H{
		"items": []gin.H{{"id": "a", "query": "양생 기간"}},
		"mode":  "fulltext",
		"async": true,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		JobID     string `json:"job_id"`
		StatusURL string `json:"status_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.JobID == "" || res.StatusURL != "/api/jobs/"+res.JobID {
		t.Fatalf("response = %+v", res)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, res.StatusURL, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("job status = %d, body %s", w.Code, w.Body.String())
		}
		var body struct {
			Job jobs.Record `json:"job"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if body.Job.Status == jobs.StatusCompleted {
			break
		}
		if body.Job.Status == jobs.StatusFailed {
			t.Fatalf("job failed: %s", body.Job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", body.Job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJobEndpointRejectsBadID(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, jobs.NewManager(jobs.Config{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestJobEndpointUnknownID(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, jobs.NewManager(jobs.Config{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/6f1e9a39-0b9b-4c5e-9a87-2f6f6f8d9e10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestEvidencePackEndpoint(t *testing.T) {
	r := testRouter(t, &fakeFulltext{items: stdEvidence()}, nil)

	w := postJSON(t, r, "/api/knowledge/evidence-pack", gin.H{
		"items": []gin.H{{"id": "a", "title": "양생", "query": "양생 기간"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res services.EvidencePackResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.EvidenceIndex) != 1 {
		t.Fatalf("index = %d", len(res.EvidenceIndex))
	}
}

func TestDurationEndpoint(t *testing.T) {
	r := testRouter(t, &fakeFulltext{items: stdEvidence()}, nil)

	w := postJSON(t, r, "/api/agents/duration", gin.H{
		"current_days": 150,
		"target_days":  120,
		"mode":         "fulltext",
		"tasks": []gin.H{
			{"name": "골조공사", "duration_days": 60, "critical": true},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res services.DurationResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Scenarios) != 3 || res.PrimaryScenarioID == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestDurationEndpointRejectsNonPositiveDays(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, nil)

	w := postJSON(t, r, "/api/agents/duration", gin.H{"current_days": 0, "target_days": 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "invalid_plan_input" {
		t.Fatalf("code = %q, want invalid_plan_input", env.Error.Code)
	}
}

func TestHealthcheckEndpoint(t *testing.T) {
	r := testRouter(t, &fakeFulltext{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
}
